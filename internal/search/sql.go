package search

import (
	"context"
	"strings"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

// SQL searches active memos and tasks with LIKE.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) Search(ctx context.Context, q Query) ([]Result, error) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	pattern := "%" + escapeLike(strings.ToLower(q.Text)) + "%"
	var results []Result

	if q.Type == "" || q.Type == domain.ItemMemo {
		var memos []models.Memo
		err := s.db.WithContext(ctx).
			Where("scope_key = ?", q.ScopeKey).
			Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(content) LIKE ? ESCAPE '\' OR LOWER(display_id) LIKE ? ESCAPE '\')`, pattern, pattern, pattern).
			Order("updated_at DESC").
			Limit(q.Limit).
			Find(&memos).Error
		if err != nil {
			return nil, err
		}
		for _, m := range memos {
			results = append(results, Result{Type: domain.ItemMemo, DisplayID: m.DisplayID, Title: m.Title, Snippet: snippet(m.Content)})
		}
	}

	if q.Type == "" || q.Type == domain.ItemTask {
		var tasks []models.Task
		err := s.db.WithContext(ctx).
			Where("scope_key = ?", q.ScopeKey).
			Where(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\' OR LOWER(display_id) LIKE ? ESCAPE '\')`, pattern, pattern, pattern).
			Order("updated_at DESC").
			Limit(q.Limit).
			Find(&tasks).Error
		if err != nil {
			return nil, err
		}
		for _, t := range tasks {
			results = append(results, Result{Type: domain.ItemTask, DisplayID: t.DisplayID, Title: t.Title, Snippet: snippet(t.Description)})
		}
	}

	if len(results) > q.Limit {
		results = results[:q.Limit]
	}
	return results, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
