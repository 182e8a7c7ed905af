package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key"

type fakeUsers struct {
	seen []services.Identity
}

func (f *fakeUsers) Provision(_ context.Context, id services.Identity) (*models.User, error) {
	f.seen = append(f.seen, id)
	return &models.User{ID: id.Subject, Email: id.Email, Name: id.Name}, nil
}

func TestGenerateAndVerifyToken(t *testing.T) {
	token, err := GenerateToken("user-123", "a@example.com", "Ana", testSecret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := NewHMACVerifier(testSecret).VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if claims.Subject != "user-123" || claims.Email != "a@example.com" || claims.Name != "Ana" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	v := NewHMACVerifier(testSecret)

	wrongSecret, _ := GenerateToken("user-123", "", "", "other-secret", time.Hour)
	expired, _ := GenerateToken("user-123", "", "", testSecret, -time.Minute)
	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	// HS384 with the right secret is still refused: only HS256 is accepted.
	wrongAlg, _ := jwt.NewWithClaims(jwt.SigningMethodHS384, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte(testSecret))
	unsigned, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-123"},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"wrong secret": wrongSecret,
		"expired":      expired,
		"no subject":   noSubject,
		"wrong alg":    wrongAlg,
		"alg none":     unsigned,
		"garbage":      "not.a.token",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.VerifyToken(token); !errors.Is(err, domain.ErrUnauthorized) {
				t.Errorf("expected unauthorized, got %v", err)
			}
		})
	}
}

func TestProtected(t *testing.T) {
	users := &fakeUsers{}
	app := fiber.New()
	app.Get("/me", Protected(NewHMACVerifier(testSecret), users), func(c *fiber.Ctx) error {
		return c.SendString(GetUserID(c))
	})

	token, _ := GenerateToken("user-123", "a@example.com", "Ana", testSecret, time.Hour)
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", fiber.StatusUnauthorized, `{"error":"Missing authorization header"}`},
		{"wrong scheme", "Token " + token, fiber.StatusUnauthorized, `{"error":"Invalid authorization format"}`},
		{"bad token", "Bearer nope", fiber.StatusUnauthorized, `{"error":"Invalid or expired token"}`},
		{"valid", "Bearer " + token, fiber.StatusOK, "user-123"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != tc.status || string(body) != tc.body {
				t.Errorf("got %d %s, want %d %s", resp.StatusCode, body, tc.status, tc.body)
			}
		})
	}

	if len(users.seen) != 1 || users.seen[0].Email != "a@example.com" {
		t.Errorf("expected the caller provisioned once, got %+v", users.seen)
	}
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)))})
	routes := map[string]error{
		"/missing":   domain.NotFound("Team memo not found"),
		"/invalid":   &domain.ValidationError{Message: "Validation failed", Issues: map[string]string{"title": "cannot be blank"}},
		"/forbidden": domain.Forbidden("Team admin role required"),
		"/gone":      domain.Gone("Invite has expired or reached its usage limit"),
		"/stale":     &domain.StaleError{Message: "Task was modified by someone else", Latest: map[string]string{"title": "new"}},
		"/fiber":     fiber.NewError(fiber.StatusRequestEntityTooLarge, "Request Entity Too Large"),
		"/boom":      errors.New("database exploded"),
		"/duplicate": domain.ErrDuplicateBoardItem,
	}
	for path, err := range routes {
		err := err
		app.Get(path, func(*fiber.Ctx) error { return err })
	}

	tests := []struct {
		path    string
		status  int
		message string
		extra   string
	}{
		{"/missing", 404, "Team memo not found", ""},
		{"/invalid", 400, "Validation failed", "issues"},
		{"/forbidden", 403, "Team admin role required", ""},
		{"/gone", 410, "Invite has expired or reached its usage limit", ""},
		{"/stale", 409, "Task was modified by someone else", "latestData"},
		{"/fiber", 413, "Request Entity Too Large", ""},
		{"/boom", 500, "Internal Server Error", ""},
		{"/duplicate", 400, "Item already exists in board", ""},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", tc.path, nil))
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Errorf("status %d, want %d", resp.StatusCode, tc.status)
			}
			var body map[string]any
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != tc.message {
				t.Errorf("error %q, want %q", body["error"], tc.message)
			}
			if body["code"] != float64(tc.status) {
				t.Errorf("code %v, want %d", body["code"], tc.status)
			}
			if tc.extra != "" && body[tc.extra] == nil {
				t.Errorf("expected %s in body %v", tc.extra, body)
			}
		})
	}
}
