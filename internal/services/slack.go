package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/secret"
	"github.com/slack-go/slack"
	"gorm.io/gorm"
)

// SlackService manages team webhook configs and posts team notifications to
// them. Posting is fire-and-forget.
type SlackService struct {
	db     *gorm.DB
	cipher *secret.Cipher
	client *http.Client
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewSlackService(db *gorm.DB, cipher *secret.Cipher, logger *slog.Logger) *SlackService {
	return &SlackService{
		db:     db,
		cipher: cipher,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *SlackService) view(cfg models.SlackConfig) models.SlackConfigView {
	url := s.cipher.Reveal(cfg.WebhookURL)
	hint := url
	if len(hint) > 12 {
		hint = "…" + hint[len(hint)-6:]
	}
	return models.SlackConfigView{SlackConfig: cfg, WebhookHint: hint}
}

func (s *SlackService) seal(url string) (string, error) {
	sealed, err := s.cipher.Encrypt(url)
	if err != nil {
		return "", fmt.Errorf("encrypt webhook url: %w", err)
	}
	return sealed, nil
}

func (s *SlackService) Create(ctx context.Context, owner domain.Owner, req models.CreateSlackConfigRequest) (*models.SlackConfigView, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	if req.BoardID != nil {
		var n int64
		if err := db.Model(&models.Board{}).Where("id = ? AND scope_key = ?", *req.BoardID, owner.ScopeKey()).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, domain.Invalid("Board not found in this team")
		}
	}

	sealed, err := s.seal(req.WebhookURL)
	if err != nil {
		return nil, err
	}
	cfg := models.SlackConfig{
		TeamID:     owner.TeamID,
		BoardID:    req.BoardID,
		WebhookURL: sealed,
		Enabled:    true,
		CreatedBy:  owner.UserID,
	}
	if err := db.Create(&cfg).Error; err != nil {
		return nil, err
	}
	v := s.view(cfg)
	return &v, nil
}

func (s *SlackService) List(ctx context.Context, owner domain.Owner) ([]models.SlackConfigView, error) {
	var configs []models.SlackConfig
	if err := s.db.WithContext(ctx).Where("team_id = ?", owner.TeamID).Order("id ASC").Find(&configs).Error; err != nil {
		return nil, err
	}
	out := make([]models.SlackConfigView, len(configs))
	for i, c := range configs {
		out[i] = s.view(c)
	}
	return out, nil
}

func (s *SlackService) get(ctx context.Context, owner domain.Owner, id uint) (*models.SlackConfig, error) {
	var cfg models.SlackConfig
	if err := s.db.WithContext(ctx).Where("id = ? AND team_id = ?", id, owner.TeamID).First(&cfg).Error; err != nil {
		return nil, notFoundOr(err, "Slack config not found")
	}
	return &cfg, nil
}

func (s *SlackService) Update(ctx context.Context, owner domain.Owner, id uint, req models.UpdateSlackConfigRequest) (*models.SlackConfigView, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	cfg, err := s.get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.WebhookURL != nil {
		sealed, err := s.seal(*req.WebhookURL)
		if err != nil {
			return nil, err
		}
		updates["webhook_url"] = sealed
	}
	if req.Enabled != nil {
		updates["enabled"] = *req.Enabled
	}
	if len(updates) > 0 {
		db := s.db.WithContext(ctx)
		if err := db.Model(cfg).Updates(updates).Error; err != nil {
			return nil, err
		}
		var fresh models.SlackConfig
		if err := db.First(&fresh, cfg.ID).Error; err != nil {
			return nil, err
		}
		cfg = &fresh
	}
	v := s.view(*cfg)
	return &v, nil
}

func (s *SlackService) Delete(ctx context.Context, owner domain.Owner, id uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND team_id = ?", id, owner.TeamID).Delete(&models.SlackConfig{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Slack config not found")
	}
	return nil
}

// Test sends a message synchronously and reports delivery failures.
func (s *SlackService) Test(ctx context.Context, owner domain.Owner, id uint) error {
	cfg, err := s.get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.send(ctx, s.cipher.Reveal(cfg.WebhookURL), "Slack notifications are connected."); err != nil {
		return domain.Invalid("Slack rejected the test message: " + err.Error())
	}
	return nil
}

// Post sends text to the team's enabled team-wide configs and, when boardID
// is set, to the configs of that board.
func (s *SlackService) Post(ctx context.Context, teamID uint, boardID *uint, text string) {
	if s == nil {
		return
	}

	q := s.db.WithContext(ctx).Where("team_id = ? AND enabled = ?", teamID, true)
	if boardID != nil {
		q = q.Where("board_id IS NULL OR board_id = ?", *boardID)
	} else {
		q = q.Where("board_id IS NULL")
	}
	var configs []models.SlackConfig
	if err := q.Find(&configs).Error; err != nil {
		s.logger.WarnContext(ctx, "load slack configs failed", "team", teamID, "error", err)
		return
	}

	for _, cfg := range configs {
		url := s.cipher.Reveal(cfg.WebhookURL)
		id := cfg.ID
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			sendCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := s.send(sendCtx, url, text); err != nil {
				s.logger.Warn("slack post failed", "config", id, "team", teamID, "error", err)
			}
		}()
	}
}

func (s *SlackService) send(ctx context.Context, url, text string) error {
	msg := &slack.WebhookMessage{
		Text: text,
		Blocks: &slack.Blocks{BlockSet: []slack.Block{
			slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
		}},
	}
	return slack.PostWebhookCustomHTTPContext(ctx, url, s.client, msg)
}

// Wait blocks until in-flight posts have finished.
func (s *SlackService) Wait() { s.wg.Wait() }
