package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnold/memoboard-api/internal/config"
	"github.com/arnold/memoboard-api/internal/database"
	"github.com/arnold/memoboard-api/internal/handlers"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/middleware"
	"github.com/arnold/memoboard-api/internal/notify"
	"github.com/arnold/memoboard-api/internal/realtime"
	"github.com/arnold/memoboard-api/internal/routes"
	"github.com/arnold/memoboard-api/internal/search"
	"github.com/arnold/memoboard-api/internal/secret"
	"github.com/arnold/memoboard-api/internal/services"
	"github.com/arnold/memoboard-api/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/spf13/cobra"
)

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, config.Load())
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)
	logger.Info("server starting", "environment", cfg.Environment, "port", cfg.Port)

	db, err := database.Connect(cfg.DatabaseURL, logger, cfg.IsDev())
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info("database connected")

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return err
	}

	cipher, err := secret.NewCipher(cfg.WebhookEncryptionKey)
	if err != nil {
		return fmt.Errorf("webhook cipher: %w", err)
	}
	if !cipher.Enabled() {
		logger.Warn("WEBHOOK_ENCRYPTION_KEY not set, webhook URLs are stored in plaintext")
	}

	store, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}

	mailbox, err := newMailbox(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var meili *search.Meili
	if cfg.MeiliURL != "" {
		meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	}
	finder := search.NewService(meili, search.NewSQL(db), logger)

	hub := realtime.NewHub(logger)
	purger := lifecycle.NewPurger(store, logger)

	users := services.NewUserService(db, logger)
	push := services.NewPushService(ctx, cfg.FCMServiceAccount, users, logger)
	var pusher notify.Pusher
	if push.Enabled() {
		pusher = push
	}
	dispatcher := notify.NewDispatcher(mailbox, db, pusher, logger)

	activity := services.NewActivityService(db, logger)
	slack := services.NewSlackService(db, cipher, logger)
	teams := services.NewTeamService(db, users, activity, dispatcher, slack, purger, logger)
	memos := services.NewMemoService(db, purger, activity, finder)
	tasks := services.NewTaskService(db, purger, teams, users, activity, dispatcher, slack, finder)

	h := &handlers.Handler{
		Users:           users,
		Teams:           teams,
		Memos:           memos,
		Tasks:           tasks,
		Boards:          services.NewBoardService(db, purger, memos, tasks, users, activity, hub, slack),
		Categories:      services.NewCategoryService(db),
		Tags:            services.NewTagService(db),
		Comments:        services.NewCommentService(db, purger, teams, users, activity, dispatcher),
		Attachments:     services.NewAttachmentService(db, store, cfg.MaxUploadBytes, logger),
		Activity:        activity,
		Notifications:   services.NewNotificationService(db),
		Slack:           slack,
		Search:          finder,
		Mailbox:         dispatcher.Mailbox(),
		Hub:             hub,
		Verifier:        verifier,
		Logger:          logger,
		LongPollMax:     cfg.LongPollMax,
		LongPollDefault: cfg.LongPollDefault,
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		BodyLimit:    int(cfg.MaxUploadBytes) + 1<<20,
		ReadTimeout:  30 * time.Second,
		// Long-polls hold the response open up to LongPollMax.
		WriteTimeout: cfg.LongPollMax + 10*time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	routes.Setup(app, h)

	errc := make(chan error, 1)
	go func() { errc <- app.Listen(":" + cfg.Port) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown", "error", err)
	}
	slack.Wait()
	dispatcher.Wait()
	finder.Wait()
	return nil
}

func newVerifier(ctx context.Context, cfg *config.Config) (middleware.Verifier, error) {
	if cfg.JWKSURL != "" {
		return middleware.NewJWKSVerifier(ctx, cfg.JWKSURL)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET or JWKS_URL is required")
	}
	return middleware.NewHMACVerifier(cfg.JWTSecret), nil
}

func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.MinioEndpoint == "" {
		return storage.NewLocalStore(cfg.UploadsDir)
	}
	return storage.NewMinioStore(ctx, storage.MinioConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	})
}

func newMailbox(ctx context.Context, cfg *config.Config, logger *slog.Logger) (notify.Mailbox, error) {
	if cfg.RedisURL == "" {
		logger.Info("REDIS_URL not set, using in-process notification mailbox")
		return notify.NewMemoryMailbox(), nil
	}
	client, err := notify.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	return notify.NewRedisMailbox(client), nil
}
