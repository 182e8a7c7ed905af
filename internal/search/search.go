// Package search finds memos and tasks of a scope by text.
package search

import (
	"crypto/sha1"
	"encoding/hex"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
)

// Record is what the index stores for one memo or task.
type Record struct {
	ID        string          `json:"id"`
	ScopeKey  string          `json:"scopeKey"`
	Type      domain.ItemType `json:"type"`
	DisplayID string          `json:"displayId"`
	Title     string          `json:"title"`
	Body      string          `json:"body"`
	UpdatedAt int64           `json:"updatedAt"`
}

// NewRecord builds a record whose id is stable for (scope, type, display id).
func NewRecord(scopeKey string, t domain.ItemType, displayID, title, body string, updatedAt time.Time) Record {
	return Record{
		ID:        DocumentID(scopeKey, t, displayID),
		ScopeKey:  scopeKey,
		Type:      t,
		DisplayID: displayID,
		Title:     title,
		Body:      body,
		UpdatedAt: updatedAt.Unix(),
	}
}

// DocumentID is the index primary key. Meilisearch ids only allow
// alphanumerics, dashes and underscores, so the natural key is hashed.
func DocumentID(scopeKey string, t domain.ItemType, displayID string) string {
	sum := sha1.Sum([]byte(scopeKey + "|" + string(t) + "|" + displayID))
	return hex.EncodeToString(sum[:])
}

type Query struct {
	ScopeKey string
	Text     string
	Type     domain.ItemType // empty for both
	Limit    int
}

type Result struct {
	Type      domain.ItemType `json:"type"`
	DisplayID string          `json:"displayId"`
	Title     string          `json:"title"`
	Snippet   string          `json:"snippet"`
}

type Response struct {
	Results []Result `json:"results"`
	Query   string   `json:"query"`
	Engine  string   `json:"engine"`
}
