package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-service/internal/model"
	"clinic-service/prometheus"
)

// IssueRefreshToken creates a fresh refresh token for a user
func (r *Repository) IssueRefreshToken(ctx context.Context, userID uuid.UUID, lifetime time.Duration) (*model.RefreshToken, error) {
	token := model.RefreshToken{
		UserID:    userID,
		ExpiresAt: time.Now().Add(lifetime),
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := r.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// RotateRefreshToken atomically revokes a presented refresh token and issues
// its replacement. Invalid, expired or revoked tokens are rejected with
// ErrNotFound so callers cannot distinguish the cases.
func (r *Repository) RotateRefreshToken(ctx context.Context, presented string, lifetime time.Duration) (*model.RefreshToken, error) {
	var next *model.RefreshToken

	defer prometheus.TrackDBOperation("update")(time.Now())
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current model.RefreshToken
		if err := tx.Where("token = ?", presented).First(&current).Error; err != nil {
			return notFoundOr(err)
		}
		if !current.IsValid() {
			return ErrNotFound
		}
		if err := tx.Model(&current).Update("revoked", true).Error; err != nil {
			return err
		}

		replacement := model.RefreshToken{
			UserID:    current.UserID,
			ExpiresAt: time.Now().Add(lifetime),
		}
		if err := tx.Create(&replacement).Error; err != nil {
			return err
		}
		next = &replacement
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

// RevokeUserTokens invalidates every outstanding refresh token of a user
func (r *Repository) RevokeUserTokens(ctx context.Context, userID uuid.UUID) error {
	defer prometheus.TrackDBOperation("update")(time.Now())
	return r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true).Error
}
