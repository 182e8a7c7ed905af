package services

import (
	"context"
	"log/slog"

	"github.com/arnold/memoboard-api/internal/domain"
	"github.com/arnold/memoboard-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Identity is the verified caller as described by the identity provider.
type Identity struct {
	Subject string
	Email   string
	Name    string
}

type UserService struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewUserService(db *gorm.DB, logger *slog.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

// Provision inserts the caller on first sight and refreshes email and name
// from later tokens. Profile fields edited through the API are left alone.
func (s *UserService) Provision(ctx context.Context, id Identity) (*models.User, error) {
	user := models.User{ID: id.Subject, Email: id.Email, Name: id.Name}

	assign := []string{"updated_at"}
	if id.Email != "" {
		assign = append(assign, "email")
	}
	if id.Name != "" {
		assign = append(assign, "name")
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(assign),
	}).Create(&user).Error
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id.Subject)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &user, nil
}

// Handle returns the display handle of a user, or the id when the lookup
// fails.
func (s *UserService) Handle(ctx context.Context, id string) string {
	user, err := s.Get(ctx, id)
	if err != nil {
		return id
	}
	return user.Handle()
}

func (s *UserService) UpdateProfile(ctx context.Context, id string, req models.UpdateProfileRequest) (*models.User, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if req.DisplayName != nil {
		updates["display_name"] = *req.DisplayName
	}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.AvatarURL != nil {
		updates["avatar_url"] = *req.AvatarURL
	}
	if len(updates) > 0 {
		res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, domain.NotFound("User not found")
		}
	}
	return s.Get(ctx, id)
}

// SetDeviceToken registers the caller's device for push notifications.
func (s *UserService) SetDeviceToken(ctx context.Context, id string, req models.DeviceTokenRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("fcm_token", req.Token).Error
}

// DeviceToken returns the registered push token of a user, if any.
func (s *UserService) DeviceToken(ctx context.Context, id string) (string, error) {
	var user models.User
	err := s.db.WithContext(ctx).Select("fcm_token").First(&user, "id = ?", id).Error
	if err != nil {
		return "", err
	}
	return user.FCMToken, nil
}
