package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-service/internal/model"
	"clinic-service/internal/scope"
	"clinic-service/prometheus"
)

// CreateOrganizationInput is the payload for provisioning a clinic (admin only)
type CreateOrganizationInput struct {
	Name     string         `json:"name"`
	Slug     string         `json:"slug"`
	PlanType model.PlanType `json:"plan_type"`
	TaxID    string         `json:"tax_id"`
}

// UpdateOrganizationInput carries a partial update; nil fields are left
// unchanged. Plan changes are reserved to admins.
type UpdateOrganizationInput struct {
	Name     *string         `json:"name"`
	LogoURL  *string         `json:"logo_url"`
	PlanType *model.PlanType `json:"plan_type"`
	Active   *bool           `json:"is_active"`
}

// ListOrganizations returns every clinic. Admin only.
func (r *Repository) ListOrganizations(ctx context.Context, p scope.Principal) ([]model.Organization, error) {
	if !p.Role.IsAdmin() {
		return nil, scope.ErrPermissionDenied
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var orgs []model.Organization
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&orgs).Error; err != nil {
		return nil, err
	}
	return orgs, nil
}

// GetOrganization returns one clinic if it is inside the caller's scope: their
// own for tenant members, any for admins.
func (r *Repository) GetOrganization(ctx context.Context, p scope.Principal, id uuid.UUID) (*model.Organization, error) {
	access, err := scope.Resolve(p, scope.ResourceOrganization)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var org model.Organization
	err = access.Apply(r.db.WithContext(ctx)).Where("id = ?", id).First(&org).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &org, nil
}

// GetOwnOrganization returns the caller's clinic
func (r *Repository) GetOwnOrganization(ctx context.Context, p scope.Principal) (*model.Organization, error) {
	if p.OrganizationID == nil {
		return nil, scope.ErrPermissionDenied
	}
	return r.GetOrganization(ctx, p, *p.OrganizationID)
}

// CreateOrganization provisions a clinic. Admin only.
func (r *Repository) CreateOrganization(ctx context.Context, p scope.Principal, in CreateOrganizationInput) (*model.Organization, error) {
	if !p.Role.IsAdmin() {
		return nil, scope.ErrPermissionDenied
	}
	if in.Name == "" {
		return nil, invalid("name", "is required")
	}
	if in.Slug == "" {
		return nil, invalid("slug", "is required")
	}
	if in.PlanType == "" {
		in.PlanType = model.PlanStarter
	}

	org := model.Organization{
		Name:     in.Name,
		Slug:     in.Slug,
		PlanType: in.PlanType,
		TaxID:    in.TaxID,
		Active:   true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.Organization{}).Where("slug = ?", in.Slug).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return invalid("slug", "already taken")
		}
		return tx.Create(&org).Error
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("organization created",
		zap.String("organization_id", org.ID.String()),
		zap.String("plan_type", string(org.PlanType)))
	return &org, nil
}

// UpdateOrganization applies a partial update to a clinic inside the caller's
// scope. Owners may rename and rebrand their clinic; only admins change plans.
func (r *Repository) UpdateOrganization(ctx context.Context, p scope.Principal, id uuid.UUID, in UpdateOrganizationInput) (*model.Organization, error) {
	access, err := scope.Resolve(p, scope.ResourceOrganization)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite() {
		return nil, scope.ErrPermissionDenied
	}

	org, err := r.GetOrganization(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, invalid("name", "is required")
		}
		org.Name = *in.Name
	}
	if in.LogoURL != nil {
		if *in.LogoURL != "" && !org.AllowsBranding() && !p.Role.IsAdmin() {
			return nil, invalid("logo_url", "custom branding is not included in the current plan")
		}
		org.LogoURL = *in.LogoURL
	}
	if in.PlanType != nil {
		if !p.Role.IsAdmin() {
			return nil, scope.ErrPermissionDenied
		}
		org.PlanType = *in.PlanType
	}
	if in.Active != nil {
		if !p.Role.IsAdmin() {
			return nil, scope.ErrPermissionDenied
		}
		org.Active = *in.Active
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Save(org).Error
	})
	if err != nil {
		return nil, err
	}
	return org, nil
}

// DeleteOrganization removes a clinic and every clinical record it owns.
// Admin only. User accounts are kept; they lose their affiliation.
func (r *Repository) DeleteOrganization(ctx context.Context, p scope.Principal, id uuid.UUID) error {
	if !p.Role.IsAdmin() {
		return scope.ErrPermissionDenied
	}

	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		return notFoundOr(err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", org.ID).Delete(&model.PatientRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.User{}).
			Where("organization_id = ?", org.ID).
			Update("organization_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&org).Error
	})
}
