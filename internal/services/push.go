package services

import (
	"context"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// PushService sends push notifications via Firebase Cloud Messaging
type PushService struct {
	client *messaging.Client
	users  *UserService
	logger *slog.Logger
}

// NewPushService initializes the Firebase push notification service.
// Returns a disabled service if no service account is configured (dev mode)
// or Firebase cannot be initialized.
func NewPushService(ctx context.Context, serviceAccountPath string, users *UserService, logger *slog.Logger) *PushService {
	p := &PushService{users: users, logger: logger}
	if serviceAccountPath == "" {
		logger.Info("FCM: no service account configured, push notifications disabled")
		return p
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(serviceAccountPath))
	if err != nil {
		logger.Warn("FCM: failed to initialize Firebase app", "error", err)
		return p
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		logger.Warn("FCM: failed to get messaging client", "error", err)
		return p
	}

	p.client = client
	logger.Info("FCM: push notifications enabled")
	return p
}

// Enabled reports whether pushes are actually sent.
func (p *PushService) Enabled() bool { return p.client != nil }

// SendToUser sends a push notification to a user by their ID.
// No-op if push is not configured or user has no FCM token.
func (p *PushService) SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	if p.client == nil {
		return nil
	}

	token, err := p.users.DeviceToken(ctx, userID)
	if err != nil || token == "" {
		return nil
	}

	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if _, err := p.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("fcm send to %s: %w", userID, err)
	}
	return nil
}
