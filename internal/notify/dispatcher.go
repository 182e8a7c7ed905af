package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

// Pusher sends a device notification to a user. Implementations no-op when
// the user has no registered device.
type Pusher interface {
	SendToUser(ctx context.Context, userID, title, body string, data map[string]string) error
}

// Dispatcher fans an event out to the mailbox, the persisted inbox and
// device push. Every delivery is best-effort: failures are logged and never
// reach the caller.
type Dispatcher struct {
	mailbox Mailbox
	db      *gorm.DB
	push    Pusher
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher wires the delivery targets. db and push may be nil.
func NewDispatcher(mailbox Mailbox, db *gorm.DB, push Pusher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{mailbox: mailbox, db: db, push: push, logger: logger}
}

func (d *Dispatcher) Notify(ctx context.Context, userID string, event Event) {
	if err := d.mailbox.Push(ctx, userID, event); err != nil {
		d.logger.WarnContext(ctx, "mailbox push failed", "user", userID, "kind", event.Kind, "error", err)
	}

	if d.db != nil {
		if err := d.persist(ctx, userID, event); err != nil {
			d.logger.WarnContext(ctx, "notification insert failed", "user", userID, "kind", event.Kind, "error", err)
		}
	}

	if d.push != nil {
		data := make(map[string]string, len(event.Data)+1)
		for k, v := range event.Data {
			data[k] = fmt.Sprint(v)
		}
		data["type"] = string(event.Kind)

		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := d.push.SendToUser(pushCtx, userID, event.Title, event.Body, data); err != nil {
				d.logger.Warn("device push failed", "user", userID, "kind", event.Kind, "error", err)
			}
		}()
	}
}

func (d *Dispatcher) persist(ctx context.Context, userID string, event Event) error {
	n := models.Notification{
		UserID: userID,
		Kind:   string(event.Kind),
		Title:  event.Title,
		Body:   event.Body,
	}
	if event.Data != nil {
		raw, err := json.Marshal(event.Data)
		if err != nil {
			return err
		}
		n.Metadata = raw
	}
	return d.db.WithContext(ctx).Create(&n).Error
}

// Mailbox returns the mailbox long-polling handlers wait on.
func (d *Dispatcher) Mailbox() Mailbox { return d.mailbox }

// Wait blocks until in-flight device pushes have finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }
