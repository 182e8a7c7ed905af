package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
)

type recorder struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (r *recorder) WriteMessage(_ int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, data)
	return nil
}

func TestHubPublishSkipsActor(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	alice, bob := &recorder{}, &recorder{}
	leaveAlice := h.Join(7, "alice", alice)
	leaveBob := h.Join(7, "bob", bob)

	h.Publish(7, "alice", EventItemAdded, map[string]string{"displayId": "M1"})

	if len(alice.msgs) != 0 {
		t.Fatalf("actor received %d messages", len(alice.msgs))
	}
	if len(bob.msgs) != 1 {
		t.Fatalf("bob received %d messages", len(bob.msgs))
	}
	var ev Event
	if err := json.Unmarshal(bob.msgs[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventItemAdded || ev.BoardID != 7 || ev.UserID != "alice" {
		t.Fatalf("event = %+v", ev)
	}

	leaveBob()
	leaveAlice()
	if n := h.Subscribers(7); n != 0 {
		t.Fatalf("subscribers after leave = %d", n)
	}
}

func TestHubRoomsAreIsolated(t *testing.T) {
	h := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	other := &recorder{}
	defer h.Join(8, "carol", other)()

	h.Publish(7, "alice", EventBoardUpdated, nil)
	if len(other.msgs) != 0 {
		t.Fatal("event leaked to another board")
	}
}
