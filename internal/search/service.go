package search

import (
	"context"
	"log/slog"
	"sync"

	"github.com/arnold/memoboard-api/internal/domain"
)

// Service queries Meilisearch when it is configured and healthy and falls
// back to SQL otherwise. Index maintenance is fire-and-forget.
type Service struct {
	meili  *Meili
	sql    *SQL
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewService creates the facade. meili may be nil.
func NewService(meili *Meili, sql *SQL, logger *slog.Logger) *Service {
	return &Service{meili: meili, sql: sql, logger: logger}
}

func (s *Service) Search(ctx context.Context, q Query) (Response, error) {
	if q.Limit <= 0 || q.Limit > 50 {
		q.Limit = 20
	}

	if s.meili != nil && s.meili.Healthy() {
		results, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Query: q.Text, Engine: "meilisearch"}, nil
		}
		s.logger.WarnContext(ctx, "meilisearch failed, falling back to sql", "error", err)
	}

	results, err := s.sql.Search(ctx, q)
	if err != nil {
		return Response{}, err
	}
	return Response{Results: nonNil(results), Query: q.Text, Engine: "sql"}, nil
}

// Index adds or replaces an item in the index.
func (s *Service) Index(r Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.meili.Upsert(r); err != nil {
			s.logger.Warn("search index failed", "displayId", r.DisplayID, "error", err)
		}
	}()
}

// Remove drops an item from the index.
func (s *Service) Remove(scopeKey string, t domain.ItemType, displayID string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	id := DocumentID(scopeKey, t, displayID)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.meili.Remove(id); err != nil {
			s.logger.Warn("search remove failed", "displayId", displayID, "error", err)
		}
	}()
}

// Wait blocks until pending index updates have been sent.
func (s *Service) Wait() { s.wg.Wait() }

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
