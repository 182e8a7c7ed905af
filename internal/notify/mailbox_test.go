package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisMailbox(t *testing.T) *RedisMailbox {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisMailbox(client)
}

func mailboxes(t *testing.T) map[string]Mailbox {
	return map[string]Mailbox{
		"memory": NewMemoryMailbox(),
		"redis":  newRedisMailbox(t),
	}
}

func TestMailboxReturnsQueuedEvents(t *testing.T) {
	for name, mb := range mailboxes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			ev := NewEvent(KindJoinRequestStatus, "Approved", "You joined", map[string]any{"teamId": 1})
			if err := mb.Push(ctx, "u1", ev); err != nil {
				t.Fatalf("push: %v", err)
			}

			waitCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			got, err := mb.Wait(waitCtx, "u1", KindJoinRequestStatus)
			if err != nil {
				t.Fatalf("wait: %v", err)
			}
			if len(got) != 1 || got[0].ID != ev.ID {
				t.Fatalf("got %+v, want the pushed event", got)
			}

			// Delivered events are removed.
			shortCtx, cancel2 := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel2()
			if _, err := mb.Wait(shortCtx, "u1", KindJoinRequestStatus); !errors.Is(err, context.DeadlineExceeded) {
				t.Fatalf("second wait err = %v, want deadline exceeded", err)
			}
		})
	}
}

func TestMailboxWakesWaiter(t *testing.T) {
	for name, mb := range mailboxes(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			type result struct {
				events []Event
				err    error
			}
			done := make(chan result, 1)
			go func() {
				events, err := mb.Wait(ctx, "u2", KindTaskAssigned)
				done <- result{events, err}
			}()

			time.Sleep(50 * time.Millisecond)
			if err := mb.Push(context.Background(), "u2", NewEvent(KindTaskAssigned, "Task", "T1", nil)); err != nil {
				t.Fatalf("push: %v", err)
			}

			select {
			case r := <-done:
				if r.err != nil {
					t.Fatalf("wait: %v", r.err)
				}
				if len(r.events) != 1 || r.events[0].Kind != KindTaskAssigned {
					t.Fatalf("got %+v", r.events)
				}
			case <-time.After(time.Second):
				t.Fatal("waiter was not woken")
			}
		})
	}
}

func TestMailboxFiltersKinds(t *testing.T) {
	for name, mb := range mailboxes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mb.Push(ctx, "u3", NewEvent(KindCommentMention, "Mention", "", nil))
			mb.Push(ctx, "u3", NewEvent(KindTaskAssigned, "Task", "", nil))

			waitCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()
			got, err := mb.Wait(waitCtx, "u3", KindTaskAssigned)
			if err != nil {
				t.Fatalf("wait: %v", err)
			}
			if len(got) != 1 || got[0].Kind != KindTaskAssigned {
				t.Fatalf("got %+v, want only the task event", got)
			}

			// The mention is still queued.
			got, err = mb.Wait(waitCtx, "u3")
			if err != nil {
				t.Fatalf("wait all: %v", err)
			}
			if len(got) != 1 || got[0].Kind != KindCommentMention {
				t.Fatalf("got %+v, want the mention", got)
			}
		})
	}
}

func TestMailboxIsolatesUsers(t *testing.T) {
	mb := NewMemoryMailbox()
	mb.Push(context.Background(), "alice", NewEvent(KindTaskAssigned, "Task", "", nil))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := mb.Wait(ctx, "bob"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("bob err = %v, want deadline exceeded", err)
	}
}

func TestParseKinds(t *testing.T) {
	kinds, err := ParseKinds("")
	if err != nil || len(kinds) != len(Kinds) {
		t.Fatalf("empty filter = %v, %v", kinds, err)
	}
	kinds, err = ParseKinds("task.assigned, comment.mention")
	if err != nil || len(kinds) != 2 {
		t.Fatalf("two kinds = %v, %v", kinds, err)
	}
	if _, err := ParseKinds("task.deleted"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
