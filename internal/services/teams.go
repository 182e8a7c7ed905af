package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/lifecycle"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
)

// TeamService manages teams, their members, invites and join requests, and
// answers the membership guards every team route runs first.
type TeamService struct {
	db       *gorm.DB
	users    *UserService
	activity *ActivityService
	notifier Notifier
	slack    *SlackService
	purger   *lifecycle.Purger
	logger   *slog.Logger
	now      func() time.Time
}

func NewTeamService(db *gorm.DB, users *UserService, activity *ActivityService, notifier Notifier, slack *SlackService, purger *lifecycle.Purger, logger *slog.Logger) *TeamService {
	return &TeamService{
		db:       db,
		users:    users,
		activity: activity,
		notifier: notifier,
		slack:    slack,
		purger:   purger,
		logger:   logger,
		now:      time.Now,
	}
}

// Member returns the caller's owner context for a team it belongs to.
func (s *TeamService) Member(ctx context.Context, teamID uint, userID string) (domain.Owner, error) {
	db := s.db.WithContext(ctx)

	var member models.TeamMember
	err := db.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error
	if err == nil {
		return domain.TeamScope(teamID, userID, member.Role), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Owner{}, err
	}

	var n int64
	if err := db.Model(&models.Team{}).Where("id = ?", teamID).Count(&n).Error; err != nil {
		return domain.Owner{}, err
	}
	if n == 0 {
		return domain.Owner{}, domain.NotFound("Team not found")
	}
	return domain.Owner{}, domain.Forbidden("You are not a member of this team")
}

// Admin is Member restricted to team admins.
func (s *TeamService) Admin(ctx context.Context, teamID uint, userID string) (domain.Owner, error) {
	owner, err := s.Member(ctx, teamID, userID)
	if err != nil {
		return owner, err
	}
	if !owner.IsAdmin() {
		return domain.Owner{}, domain.Forbidden("Team admin role required")
	}
	return owner, nil
}

func (s *TeamService) IsMember(ctx context.Context, teamID uint, userID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&n).Error
	return n > 0, err
}

func (s *TeamService) Create(ctx context.Context, userID string, req models.CreateTeamRequest) (*models.TeamSummary, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	team := models.Team{Name: req.Name, Description: req.Description, OwnerID: userID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken := func(slug string) (bool, error) {
			var n int64
			err := tx.Model(&models.Team{}).Where("slug = ?", slug).Count(&n).Error
			return n > 0, err
		}

		if req.Slug != "" {
			used, err := taken(req.Slug)
			if err != nil {
				return err
			}
			if used {
				return domain.Conflict("Team slug already taken")
			}
			team.Slug = req.Slug
		} else {
			slug, err := uniqueSlug(models.Slugify(req.Name), taken)
			if err != nil {
				return err
			}
			team.Slug = slug
		}

		if err := tx.Create(&team).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return domain.Conflict("Team slug already taken")
			}
			return err
		}
		return tx.Create(&models.TeamMember{TeamID: team.ID, UserID: userID, Role: domain.RoleAdmin}).Error
	})
	if err != nil {
		return nil, err
	}

	owner := domain.TeamScope(team.ID, userID, domain.RoleAdmin)
	s.activity.Log(ctx, owner, ActionCreated, "", team.Slug, map[string]any{"name": team.Name})
	return &models.TeamSummary{Team: team, Role: domain.RoleAdmin, MemberCount: 1}, nil
}

// ListMine returns the teams the user belongs to.
func (s *TeamService) ListMine(ctx context.Context, userID string) ([]models.TeamSummary, error) {
	db := s.db.WithContext(ctx)

	var memberships []models.TeamMember
	if err := db.Where("user_id = ?", userID).Find(&memberships).Error; err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []models.TeamSummary{}, nil
	}

	ids := make([]uint, len(memberships))
	roles := make(map[uint]string, len(memberships))
	for i, m := range memberships {
		ids[i] = m.TeamID
		roles[m.TeamID] = m.Role
	}

	var teams []models.Team
	if err := db.Where("id IN ?", ids).Order("name ASC").Find(&teams).Error; err != nil {
		return nil, err
	}
	counts, err := s.memberCounts(db, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.TeamSummary, len(teams))
	for i, t := range teams {
		out[i] = models.TeamSummary{Team: t, Role: roles[t.ID], MemberCount: counts[t.ID]}
	}
	return out, nil
}

func (s *TeamService) memberCounts(db *gorm.DB, ids []uint) (map[uint]int64, error) {
	var rows []struct {
		TeamID uint
		Count  int64
	}
	err := db.Model(&models.TeamMember{}).
		Select("team_id, COUNT(*) AS count").
		Where("team_id IN ?", ids).
		Group("team_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.TeamID] = r.Count
	}
	return counts, nil
}

func (s *TeamService) Get(ctx context.Context, owner domain.Owner) (*models.TeamSummary, error) {
	db := s.db.WithContext(ctx)
	var team models.Team
	if err := db.First(&team, owner.TeamID).Error; err != nil {
		return nil, notFoundOr(err, "Team not found")
	}
	counts, err := s.memberCounts(db, []uint{team.ID})
	if err != nil {
		return nil, err
	}
	return &models.TeamSummary{Team: team, Role: owner.Role, MemberCount: counts[team.ID]}, nil
}

func (s *TeamService) Update(ctx context.Context, owner domain.Owner, req models.UpdateTeamRequest) (*models.TeamSummary, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Team{}).Where("id = ?", owner.TeamID).Updates(updates).Error; err != nil {
			return nil, err
		}
		s.activity.Log(ctx, owner, ActionUpdated, "", "", updates)
	}
	return s.Get(ctx, owner)
}

// scopedTables hold rows keyed by scope_key.
var scopedTables = []any{
	&models.Memo{}, &models.DeletedMemo{}, &models.Task{}, &models.Board{}, &models.DeletedBoard{},
	&models.BoardItem{}, &models.Category{}, &models.Tag{}, &models.Tagging{},
	&models.Comment{}, &models.Activity{},
}

// teamTables hold rows keyed by team_id.
var teamTables = []any{
	&models.TeamMember{}, &models.TeamInvite{}, &models.JoinRequest{}, &models.SlackConfig{},
}

// Delete removes the team and every row of its scope.
func (s *TeamService) Delete(ctx context.Context, owner domain.Owner) error {
	scope := owner.ScopeKey()
	var blobs []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Attachment{}).Where("scope_key = ?", scope).Pluck("storage_key", &blobs).Error; err != nil {
			return err
		}
		if err := tx.Where("scope_key = ?", scope).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		for _, table := range scopedTables {
			if err := tx.Unscoped().Where("scope_key = ?", scope).Delete(table).Error; err != nil {
				return err
			}
		}
		for _, table := range teamTables {
			if err := tx.Where("team_id = ?", owner.TeamID).Delete(table).Error; err != nil {
				return err
			}
		}
		res := tx.Delete(&models.Team{}, owner.TeamID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.NotFound("Team not found")
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.purger.RemoveBlobs(ctx, blobs)
	return nil
}

func (s *TeamService) ListMembers(ctx context.Context, owner domain.Owner) ([]models.TeamMember, error) {
	members := []models.TeamMember{}
	err := s.db.WithContext(ctx).
		Where("team_id = ?", owner.TeamID).
		Preload("User").
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (s *TeamService) adminCount(tx *gorm.DB, teamID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.TeamMember{}).Where("team_id = ? AND role = ?", teamID, domain.RoleAdmin).Count(&n).Error
	return n, err
}

func (s *TeamService) UpdateMemberRole(ctx context.Context, owner domain.Owner, userID string, req models.UpdateMemberRequest) (*models.TeamMember, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var member models.TeamMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ? AND user_id = ?", owner.TeamID, userID).First(&member).Error; err != nil {
			return notFoundOr(err, "Member not found")
		}
		if member.Role == req.Role {
			return nil
		}
		if member.Role == domain.RoleAdmin {
			admins, err := s.adminCount(tx, owner.TeamID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return domain.Invalid("The last admin cannot be demoted")
			}
		}
		member.Role = req.Role
		return tx.Model(&member).Update("role", req.Role).Error
	})
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionMemberRole, "", userID, map[string]any{"role": req.Role})
	return &member, nil
}

// RemoveMember removes another member. The last admin cannot be removed.
func (s *TeamService) RemoveMember(ctx context.Context, owner domain.Owner, userID string) error {
	if err := s.removeMember(ctx, owner.TeamID, userID); err != nil {
		return err
	}
	s.activity.Log(ctx, owner, ActionMemberLeft, "", userID, map[string]any{"removedBy": owner.UserID})
	return nil
}

// Leave removes the caller from the team.
func (s *TeamService) Leave(ctx context.Context, owner domain.Owner) error {
	if err := s.removeMember(ctx, owner.TeamID, owner.UserID); err != nil {
		return err
	}
	s.activity.Log(ctx, owner, ActionMemberLeft, "", owner.UserID, nil)
	return nil
}

func (s *TeamService) removeMember(ctx context.Context, teamID uint, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.TeamMember
		if err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).First(&member).Error; err != nil {
			return notFoundOr(err, "Member not found")
		}
		if member.Role == domain.RoleAdmin {
			admins, err := s.adminCount(tx, teamID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return domain.Invalid("The last admin cannot leave or be removed; promote another member or delete the team")
			}
		}
		return tx.Delete(&member).Error
	})
}
