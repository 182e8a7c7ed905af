package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string

	// Identity provider: JWKS when JWKSURL is set, HS256 with JWTSecret otherwise.
	JWTSecret string
	JWKSURL   string

	// WebhookEncryptionKey seals Slack webhook URLs at rest; empty keeps them in plaintext.
	WebhookEncryptionKey string

	// RedisURL selects the Redis mailbox; empty uses the in-process one.
	RedisURL string

	MeiliURL       string
	MeiliMasterKey string

	UploadsDir     string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MaxUploadBytes int64

	FCMServiceAccount string

	LongPollMax     time.Duration
	LongPollDefault time.Duration
}

func Load() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Environment:          getEnv("ENVIRONMENT", "dev"),
		DatabaseURL:          getEnv("DATABASE_URL", "memoboard.db"),
		CORSOrigins:          getEnv("CORS_ORIGINS", "http://localhost:3000"),
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWKSURL:              getEnv("JWKS_URL", ""),
		WebhookEncryptionKey: getEnv("WEBHOOK_ENCRYPTION_KEY", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		MeiliURL:             getEnv("MEILI_URL", ""),
		MeiliMasterKey:       getEnv("MEILI_MASTER_KEY", ""),
		UploadsDir:           getEnv("UPLOADS_DIR", "uploads"),
		MinioEndpoint:        getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:       getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:       getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:          getEnv("MINIO_BUCKET", "memoboard-attachments"),
		MinioUseSSL:          getEnv("MINIO_USE_SSL", "false") == "true",
		MaxUploadBytes:       int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		FCMServiceAccount:    getEnv("FCM_SERVICE_ACCOUNT", ""),
		LongPollMax:          time.Duration(getEnvInt("LONG_POLL_MAX_SECONDS", 120)) * time.Second,
		LongPollDefault:      time.Duration(getEnvInt("LONG_POLL_DEFAULT_SECONDS", 30)) * time.Second,
	}
}

// IsDev reports whether debug-level logging and SQL tracing should be on.
func (c *Config) IsDev() bool {
	return c.Environment == "dev"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
