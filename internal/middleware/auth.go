package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the identity provider claims the API reads. The subject is the
// user id.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Verifier validates a bearer token.
type Verifier interface {
	VerifyToken(token string) (*Claims, error)
}

// HMACVerifier checks HS256 tokens signed with a shared secret.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) VerifyToken(tokenString string) (*Claims, error) {
	return parse(tokenString, func(*jwt.Token) (interface{}, error) { return v.secret, nil }, "HS256")
}

// JWKSVerifier checks RS256/ES256 tokens against an identity provider's key
// set. Keys are cached and refreshed by keyfunc.
type JWKSVerifier struct {
	jwks keyfunc.Keyfunc
}

func NewJWKSVerifier(ctx context.Context, url string) (*JWKSVerifier, error) {
	if url == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{url})
	if err != nil {
		return nil, fmt.Errorf("create JWKS client: %w", err)
	}
	return &JWKSVerifier{jwks: jwks}, nil
}

func (v *JWKSVerifier) VerifyToken(tokenString string) (*Claims, error) {
	return parse(tokenString, v.jwks.Keyfunc, "RS256", "ES256")
}

func parse(tokenString string, key jwt.Keyfunc, methods ...string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, key, jwt.WithValidMethods(methods))
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}

// GenerateToken mints an HS256 token for local development.
func GenerateToken(subject, email, name, secret string, ttl time.Duration) (string, error) {
	claims := Claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Provisioner records the caller on first sight.
type Provisioner interface {
	Provision(ctx context.Context, id services.Identity) (*models.User, error)
}

// Protected requires a valid bearer token and provisions the caller.
func Protected(v Verifier, users Provisioner) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization format",
			})
		}

		claims, err := v.VerifyToken(tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		if _, err := users.Provision(c.UserContext(), services.Identity{
			Subject: claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
		}); err != nil {
			return err
		}

		c.Locals("userId", claims.Subject)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals("userId").(string)
	return userID
}
