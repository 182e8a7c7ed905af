package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Board event types
const (
	EventItemAdded    = "item_added"
	EventItemRemoved  = "item_removed"
	EventBoardUpdated = "board_updated"
)

// Event is the JSON message sent to connected clients
type Event struct {
	Type    string `json:"type"`
	BoardID uint   `json:"boardId"`
	UserID  string `json:"userId"`
	Data    any    `json:"data,omitempty"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
}

// textMessage matches websocket.TextMessage.
const textMessage = 1

type subscriber struct {
	conn   Conn
	userID string
	mu     sync.Mutex
}

func (s *subscriber) send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(textMessage, msg)
}

// Hub fans board events out to the websocket subscribers of each board
type Hub struct {
	mu     sync.RWMutex
	rooms  map[uint]map[*subscriber]bool // boardID -> set of subscribers
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[uint]map[*subscriber]bool),
		logger: logger,
	}
}

// Join subscribes a connection to a board. The returned func unsubscribes it.
func (h *Hub) Join(boardID uint, userID string, conn Conn) func() {
	sub := &subscriber{conn: conn, userID: userID}

	h.mu.Lock()
	if h.rooms[boardID] == nil {
		h.rooms[boardID] = make(map[*subscriber]bool)
	}
	h.rooms[boardID][sub] = true
	h.logger.Debug("ws join", "user", userID, "board", boardID, "total", len(h.rooms[boardID]))
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if subs, ok := h.rooms[boardID]; ok {
			delete(subs, sub)
			h.logger.Debug("ws leave", "user", userID, "board", boardID, "remaining", len(subs))
			if len(subs) == 0 {
				delete(h.rooms, boardID)
			}
		}
	}
}

// Subscribers returns the number of connections on a board.
func (h *Hub) Subscribers(boardID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[boardID])
}

// Publish sends an event to every subscriber of the board except the actor.
func (h *Hub) Publish(boardID uint, actorID, eventType string, data any) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.rooms[boardID]))
	for s := range h.rooms[boardID] {
		if s.userID != actorID {
			subs = append(subs, s)
		}
	}
	h.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	msg, err := json.Marshal(Event{Type: eventType, BoardID: boardID, UserID: actorID, Data: data})
	if err != nil {
		h.logger.Warn("ws marshal failed", "error", err)
		return
	}
	for _, s := range subs {
		if err := s.send(msg); err != nil {
			h.logger.Debug("ws write failed", "user", s.userID, "board", boardID, "error", err)
		}
	}
}
