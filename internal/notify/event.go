// Package notify delivers per-user events: an injected mailbox drained by
// long-polling clients, persisted inbox rows and device pushes.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindTaskAssigned       Kind = "task.assigned"
	KindJoinRequestCreated Kind = "join_request.created"
	KindJoinRequestStatus  Kind = "join_request.status"
	KindCommentMention     Kind = "comment.mention"
)

// Kinds lists every event kind.
var Kinds = []Kind{KindTaskAssigned, KindJoinRequestCreated, KindJoinRequestStatus, KindCommentMention}

// ParseKinds parses a comma separated kind filter. An empty string selects
// every kind.
func ParseKinds(s string) ([]Kind, error) {
	if strings.TrimSpace(s) == "" {
		return Kinds, nil
	}
	var kinds []Kind
	for _, part := range strings.Split(s, ",") {
		k := Kind(strings.TrimSpace(part))
		if !k.valid() {
			return nil, fmt.Errorf("unknown event kind %q", part)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func (k Kind) valid() bool {
	switch k {
	case KindTaskAssigned, KindJoinRequestCreated, KindJoinRequestStatus, KindCommentMention:
		return true
	}
	return false
}

type Event struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// NewEvent stamps an event with an id and the current time.
func NewEvent(kind Kind, title, body string, data map[string]any) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Body:      body,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
}

func selects(kinds []Kind, k Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}
