package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/notify"
	"gorm.io/gorm"
)

type CommentService struct {
	db       *gorm.DB
	purger   *lifecycle.Purger
	teams    *TeamService
	users    *UserService
	activity *ActivityService
	notifier Notifier
}

func NewCommentService(db *gorm.DB, purger *lifecycle.Purger, teams *TeamService, users *UserService, activity *ActivityService, notifier Notifier) *CommentService {
	return &CommentService{db: db, purger: purger, teams: teams, users: users, activity: activity, notifier: notifier}
}

// Create comments on an active memo, task or board. Mentions are kept only
// in team scope, where every mentioned user must be a member.
func (s *CommentService) Create(ctx context.Context, owner domain.Owner, req models.CreateCommentRequest) (*models.Comment, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	target, err := domain.ParseTargetType(req.TargetType)
	if err != nil {
		return nil, err
	}
	if !target.Commentable() {
		return nil, domain.Invalid("Comments cannot target a comment")
	}

	var mentions []string
	if owner.IsTeam() {
		seen := map[string]bool{}
		for _, id := range req.Mentions {
			if seen[id] {
				continue
			}
			seen[id] = true
			ok, err := s.teams.IsMember(ctx, owner.TeamID, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.Invalid(fmt.Sprintf("Mentioned user %s is not a team member", id))
			}
			mentions = append(mentions, id)
		}
	}

	comment := models.Comment{
		ScopeKey:        owner.ScopeKey(),
		TeamID:          owner.TeamIDPtr(),
		TargetType:      target,
		TargetDisplayID: req.TargetDisplayID,
		UserID:          owner.UserID,
		Content:         sanitize(req.Content),
	}
	if len(mentions) > 0 {
		data, err := json.Marshal(mentions)
		if err != nil {
			return nil, err
		}
		comment.Mentions = data
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := targetExists(tx, owner.ScopeKey(), target, req.TargetDisplayID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("Target not found")
		}
		return tx.Omit("User").Create(&comment).Error
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("User").First(&comment, comment.ID).Error; err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionCommented, target, req.TargetDisplayID, map[string]any{"commentId": comment.ID})
	s.mentioned(ctx, owner, comment, mentions)
	return &comment, nil
}

func (s *CommentService) mentioned(ctx context.Context, owner domain.Owner, comment models.Comment, mentions []string) {
	if s.notifier == nil || len(mentions) == 0 {
		return
	}
	author := s.users.Handle(ctx, owner.UserID)
	for _, id := range mentions {
		if id == owner.UserID {
			continue
		}
		s.notifier.Notify(ctx, id, notify.NewEvent(notify.KindCommentMention,
			"You were mentioned",
			fmt.Sprintf("%s mentioned you on %s", author, comment.TargetDisplayID),
			map[string]any{
				"commentId":  comment.ID,
				"targetType": comment.TargetType,
				"targetId":   comment.TargetDisplayID,
				"teamId":     owner.TeamID,
			},
		))
	}
}

// List returns the comments on a target, oldest first.
func (s *CommentService) List(ctx context.Context, owner domain.Owner, targetType, key string) ([]models.Comment, error) {
	target, err := domain.ParseTargetType(targetType)
	if err != nil {
		return nil, err
	}
	comments := []models.Comment{}
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("scope_key = ? AND target_type = ? AND target_display_id = ?", owner.ScopeKey(), target, key).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}

func (s *CommentService) get(tx *gorm.DB, owner domain.Owner, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := tx.Where("id = ? AND scope_key = ?", id, owner.ScopeKey()).First(&comment).Error; err != nil {
		return nil, notFoundOr(err, "Comment not found")
	}
	return &comment, nil
}

// Update edits the caller's own comment.
func (s *CommentService) Update(ctx context.Context, owner domain.Owner, id uint, req models.UpdateCommentRequest) (*models.Comment, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	comment, err := s.get(db, owner, id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != owner.UserID {
		return nil, domain.Forbidden("You can only edit your own comments")
	}
	if err := db.Model(comment).Update("content", sanitize(req.Content)).Error; err != nil {
		return nil, err
	}
	var fresh models.Comment
	if err := db.Preload("User").First(&fresh, comment.ID).Error; err != nil {
		return nil, err
	}
	return &fresh, nil
}

// Delete removes a comment and its attachments. Authors may delete their
// own; team admins may delete any.
func (s *CommentService) Delete(ctx context.Context, owner domain.Owner, id uint) error {
	var blobs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comment, err := s.get(tx, owner, id)
		if err != nil {
			return err
		}
		if comment.UserID != owner.UserID && !(owner.IsTeam() && owner.IsAdmin()) {
			return domain.Forbidden("You can only delete your own comments")
		}
		if blobs, err = s.purger.Dependents(tx, owner.ScopeKey(), domain.TargetComment, strconv.FormatUint(uint64(comment.ID), 10)); err != nil {
			return err
		}
		return tx.Delete(comment).Error
	})
	if err != nil {
		return err
	}
	s.purger.RemoveBlobs(ctx, blobs)
	return nil
}
