package services

import (
	"context"
	"fmt"
	"time"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"github.com/arnold/memoboard-api/internal/notify"
	"gorm.io/gorm"
)

// CreateInvite generates an invite code for the team (admin only)
func (s *TeamService) CreateInvite(ctx context.Context, owner domain.Owner, req models.CreateInviteRequest) (*models.TeamInvite, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	invite := models.TeamInvite{
		TeamID:    owner.TeamID,
		InviterID: owner.UserID,
		MaxUses:   req.MaxUses,
	}
	if req.ExpiresInHours > 0 {
		exp := s.now().Add(time.Duration(req.ExpiresInHours) * time.Hour)
		invite.ExpiresAt = &exp
	}
	if err := s.db.WithContext(ctx).Create(&invite).Error; err != nil {
		return nil, err
	}
	return &invite, nil
}

func (s *TeamService) ListInvites(ctx context.Context, owner domain.Owner) ([]models.TeamInvite, error) {
	invites := []models.TeamInvite{}
	err := s.db.WithContext(ctx).Where("team_id = ?", owner.TeamID).Order("created_at DESC").Find(&invites).Error
	return invites, err
}

func (s *TeamService) RevokeInvite(ctx context.Context, owner domain.Owner, inviteID uint) error {
	res := s.db.WithContext(ctx).Where("id = ? AND team_id = ?", inviteID, owner.TeamID).Delete(&models.TeamInvite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Invite not found")
	}
	return nil
}

func (s *TeamService) findInvite(tx *gorm.DB, code string) (*models.TeamInvite, *models.Team, error) {
	var invite models.TeamInvite
	if err := tx.Where("code = ?", code).First(&invite).Error; err != nil {
		return nil, nil, notFoundOr(err, "Invite not found")
	}
	var team models.Team
	if err := tx.First(&team, invite.TeamID).Error; err != nil {
		return nil, nil, notFoundOr(err, "Team not found")
	}
	return &invite, &team, nil
}

// PreviewInvite shows which team an invite code leads to.
func (s *TeamService) PreviewInvite(ctx context.Context, code string) (*models.InvitePreview, error) {
	invite, team, err := s.findInvite(s.db.WithContext(ctx), code)
	if err != nil {
		return nil, err
	}
	return &models.InvitePreview{
		Code:      invite.Code,
		TeamID:    team.ID,
		TeamName:  team.Name,
		TeamSlug:  team.Slug,
		ExpiresAt: invite.ExpiresAt,
		Valid:     invite.IsValid(s.now()),
	}, nil
}

// SubmitJoinRequest asks to join the team behind an invite code.
func (s *TeamService) SubmitJoinRequest(ctx context.Context, userID, code string, req models.CreateJoinRequest) (*models.JoinRequest, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var (
		request models.JoinRequest
		team    *models.Team
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invite, t, err := s.findInvite(tx, code)
		if err != nil {
			return err
		}
		team = t
		if !invite.IsValid(s.now()) {
			return domain.Gone("Invite has expired or reached its usage limit")
		}

		var n int64
		if err := tx.Model(&models.TeamMember{}).Where("team_id = ? AND user_id = ?", team.ID, userID).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict("Already a member of this team")
		}
		if err := tx.Model(&models.JoinRequest{}).
			Where("team_id = ? AND user_id = ? AND status = ?", team.ID, userID, models.JoinPending).
			Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return domain.Conflict("A join request for this team is already pending")
		}

		request = models.JoinRequest{
			TeamID:   team.ID,
			UserID:   userID,
			InviteID: invite.ID,
			Message:  req.Message,
			Status:   models.JoinPending,
		}
		return tx.Create(&request).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifyAdmins(ctx, team.ID, notify.NewEvent(notify.KindJoinRequestCreated,
		"New join request",
		fmt.Sprintf("%s asked to join %s", s.users.Handle(ctx, userID), team.Name),
		map[string]any{"teamId": team.ID, "requestId": request.ID},
	))
	return &request, nil
}

func (s *TeamService) notifyAdmins(ctx context.Context, teamID uint, event notify.Event) {
	if s.notifier == nil {
		return
	}
	var admins []string
	err := s.db.WithContext(ctx).Model(&models.TeamMember{}).
		Where("team_id = ? AND role = ?", teamID, domain.RoleAdmin).
		Pluck("user_id", &admins).Error
	if err != nil {
		s.logger.WarnContext(ctx, "load team admins failed", "team", teamID, "error", err)
		return
	}
	for _, id := range admins {
		s.notifier.Notify(ctx, id, event)
	}
}

// ListJoinRequests returns the team's requests with the given status,
// pending when empty.
func (s *TeamService) ListJoinRequests(ctx context.Context, owner domain.Owner, status string) ([]models.JoinRequest, error) {
	if status == "" {
		status = models.JoinPending
	}
	requests := []models.JoinRequest{}
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND status = ?", owner.TeamID, status).
		Preload("User").
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

// ListMyJoinRequests returns the caller's requests across teams.
func (s *TeamService) ListMyJoinRequests(ctx context.Context, userID string) ([]models.JoinRequest, error) {
	requests := []models.JoinRequest{}
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Team").
		Order("created_at DESC").
		Find(&requests).Error
	return requests, err
}

func (s *TeamService) pendingRequest(tx *gorm.DB, owner domain.Owner, requestID uint) (*models.JoinRequest, error) {
	var request models.JoinRequest
	err := tx.Where("id = ? AND team_id = ? AND status = ?", requestID, owner.TeamID, models.JoinPending).
		Preload("Team").
		First(&request).Error
	if err != nil {
		return nil, notFoundOr(err, "Join request not found")
	}
	return &request, nil
}

// ApproveJoinRequest admits the requester and consumes one use of the
// invite the request was made with.
func (s *TeamService) ApproveJoinRequest(ctx context.Context, owner domain.Owner, requestID uint) (*models.JoinRequest, error) {
	var request *models.JoinRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if request, err = s.pendingRequest(tx, owner, requestID); err != nil {
			return err
		}

		res := tx.Model(&models.TeamInvite{}).
			Where("id = ? AND (max_uses = 0 OR used_count < max_uses) AND (expires_at IS NULL OR expires_at > ?)",
				request.InviteID, s.now()).
			UpdateColumn("used_count", gorm.Expr("used_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.Gone("Invite has been revoked, has expired or reached its usage limit")
		}

		// A failed insert aborts the transaction on postgres, so look first.
		var existing int64
		if err := tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND user_id = ?", owner.TeamID, request.UserID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing == 0 {
			member := models.TeamMember{TeamID: owner.TeamID, UserID: request.UserID, Role: domain.RoleMember}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
		}
		return s.decide(tx, owner, request, models.JoinApproved)
	})
	if err != nil {
		return nil, err
	}

	s.activity.Log(ctx, owner, ActionMemberJoined, "", request.UserID, map[string]any{"approvedBy": owner.UserID})
	s.notifyRequester(ctx, request, "approved")
	s.slack.Post(ctx, owner.TeamID, nil, fmt.Sprintf("*%s* joined *%s*", s.users.Handle(ctx, request.UserID), request.Team.Name))
	return request, nil
}

func (s *TeamService) RejectJoinRequest(ctx context.Context, owner domain.Owner, requestID uint) (*models.JoinRequest, error) {
	var request *models.JoinRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if request, err = s.pendingRequest(tx, owner, requestID); err != nil {
			return err
		}
		return s.decide(tx, owner, request, models.JoinRejected)
	})
	if err != nil {
		return nil, err
	}

	s.notifyRequester(ctx, request, "rejected")
	return request, nil
}

// decide moves a pending request to status. A request decided concurrently
// is reported as not found.
func (s *TeamService) decide(tx *gorm.DB, owner domain.Owner, request *models.JoinRequest, status string) error {
	now := s.now()
	res := tx.Model(&models.JoinRequest{}).
		Where("id = ? AND status = ?", request.ID, models.JoinPending).
		Updates(map[string]any{"status": status, "decided_by": owner.UserID, "decided_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("Join request not found")
	}
	request.Status = status
	request.DecidedBy = &owner.UserID
	request.DecidedAt = &now
	return nil
}

func (s *TeamService) notifyRequester(ctx context.Context, request *models.JoinRequest, verdict string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, request.UserID, notify.NewEvent(notify.KindJoinRequestStatus,
		"Join request "+verdict,
		fmt.Sprintf("Your request to join %s was %s", request.Team.Name, verdict),
		map[string]any{"teamId": request.TeamID, "requestId": request.ID, "status": request.Status},
	))
}
