package notify

import (
	"context"
	"sync"
)

// Mailbox queues events per user until a waiter drains them. Delivery is at
// most once: Wait removes what it returns.
type Mailbox interface {
	Push(ctx context.Context, userID string, event Event) error
	// Wait blocks until events of the given kinds (all kinds when none are
	// given) are queued for the user, or ctx is done. It returns ctx.Err()
	// when nothing arrived in time.
	Wait(ctx context.Context, userID string, kinds ...Kind) ([]Event, error)
}

// maxQueued bounds a user's queue; the oldest events are dropped first.
const maxQueued = 100

// MemoryMailbox is a process-local Mailbox. Events are lost on restart.
type MemoryMailbox struct {
	mu     sync.Mutex
	queues map[string][]Event
	wake   map[string]chan struct{}
}

func NewMemoryMailbox() *MemoryMailbox {
	return &MemoryMailbox{
		queues: make(map[string][]Event),
		wake:   make(map[string]chan struct{}),
	}
}

func (m *MemoryMailbox) Push(_ context.Context, userID string, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := append(m.queues[userID], event)
	if len(q) > maxQueued {
		q = q[len(q)-maxQueued:]
	}
	m.queues[userID] = q

	if ch, ok := m.wake[userID]; ok {
		close(ch)
		delete(m.wake, userID)
	}
	return nil
}

func (m *MemoryMailbox) Wait(ctx context.Context, userID string, kinds ...Kind) ([]Event, error) {
	for {
		m.mu.Lock()
		if events := m.take(userID, kinds); len(events) > 0 {
			m.mu.Unlock()
			return events, nil
		}
		ch, ok := m.wake[userID]
		if !ok {
			ch = make(chan struct{})
			m.wake[userID] = ch
		}
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// take removes and returns the queued events matching kinds. m.mu must be held.
func (m *MemoryMailbox) take(userID string, kinds []Kind) []Event {
	q := m.queues[userID]
	if len(q) == 0 {
		return nil
	}

	var taken, kept []Event
	for _, e := range q {
		if selects(kinds, e.Kind) {
			taken = append(taken, e)
		} else {
			kept = append(kept, e)
		}
	}
	if len(kept) == 0 {
		delete(m.queues, userID)
	} else {
		m.queues[userID] = kept
	}
	return taken
}
