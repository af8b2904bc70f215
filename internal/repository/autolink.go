package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-service/internal/model"
)

// ResolveAppUserLink finds the app login a clinical record should be linked
// to: the single patient-role user whose normalized email matches. It returns
// (nil, nil) when no such user exists. Callers treat any error as a soft
// failure; linking is a best-effort enrichment and must never block the save
// of the record itself.
func (r *Repository) ResolveAppUserLink(ctx context.Context, email string) (*uuid.UUID, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, nil
	}

	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Where("role IN ?", []model.Role{model.RolePatient, model.RoleLegacyPatient}).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user.ID, nil
}

// autoLink fills rec.AppUserID when it is still empty and a matching app user
// exists. Already-linked records are left untouched. Lookup failures are
// logged and swallowed.
func (r *Repository) autoLink(ctx context.Context, rec *model.PatientRecord) {
	if rec.AppUserID != nil || rec.Email == "" {
		return
	}
	linkID, err := r.ResolveAppUserLink(ctx, rec.Email)
	if err != nil {
		r.log.Warn("app user auto-link lookup failed",
			zap.String("email", rec.Email), zap.Error(err))
		return
	}
	rec.AppUserID = linkID
}
