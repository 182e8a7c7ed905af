package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/arnold/memoboard-api/internal/domain"
	meili "github.com/meilisearch/meilisearch-go"
)

const idxItems = "memoboard_items"

// Meili indexes and queries items in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	logger  *slog.Logger
}

// NewMeili connects and configures the index. An unreachable server leaves
// the client marked unhealthy; the caller falls back to SQL.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
	}
	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
		return m
	}
	m.healthy.Store(true)
	m.configure()
	return m
}

func (m *Meili) configure() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxItems, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", idxItems, "error", err)
	}

	index := m.client.Index(idxItems)
	filterable := []interface{}{"scopeKey", "type"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", "index", idxItems, "error", err)
	}
	searchable := []string{"title", "body", "displayId"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", "index", idxItems, "error", err)
	}
}

func (m *Meili) Healthy() bool { return m.healthy.Load() }

func (m *Meili) Upsert(r Record) error {
	_, err := m.client.Index(idxItems).AddDocuments([]Record{r}, nil)
	return err
}

func (m *Meili) Remove(id string) error {
	_, err := m.client.Index(idxItems).DeleteDocument(id, nil)
	return err
}

func (m *Meili) Search(q Query) ([]Result, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}

	filters := []string{fmt.Sprintf("scopeKey = %q", q.ScopeKey)}
	if q.Type != "" {
		filters = append(filters, fmt.Sprintf("type = %q", string(q.Type)))
	}
	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: []*meili.SearchRequest{{
			IndexUID: idxItems,
			Query:    q.Text,
			Limit:    int64(q.Limit),
			Filter:   filters,
		}},
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	var results []Result
	for _, sr := range resp.Results {
		for _, hit := range sr.Hits {
			results = append(results, Result{
				Type:      domain.ItemType(decodeString(hit, "type")),
				DisplayID: decodeString(hit, "displayId"),
				Title:     decodeString(hit, "title"),
				Snippet:   snippet(decodeString(hit, "body")),
			})
		}
	}
	return results, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func snippet(body string) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= 160 {
		return string(runes)
	}
	return string(runes[:160]) + "…"
}
