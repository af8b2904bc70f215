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

// CreatePatientInput is the payload for opening a clinical record. The
// owning organization is never part of the payload; it is always the
// caller's own organization.
type CreatePatientInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	PhotoURL  string `json:"photo"`
}

// UpdatePatientInput carries a partial update; nil fields are left unchanged
type UpdatePatientInput struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	PhotoURL  *string `json:"photo"`
	Active    *bool   `json:"is_active"`
}

// ListPatients returns the clinical records visible to the principal, newest
// first, optionally narrowed by a substring search over name and email.
func (r *Repository) ListPatients(ctx context.Context, p scope.Principal, search string) ([]model.PatientRecord, error) {
	access, err := scope.Resolve(p, scope.ResourcePatientRecord)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	q := access.Apply(r.db.WithContext(ctx).Model(&model.PatientRecord{}))
	q = searchFilter(q, search, "first_name", "last_name", "email")

	var records []model.PatientRecord
	if err := q.Order("created_at DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// GetPatient returns one clinical record if it is inside the caller's scope
func (r *Repository) GetPatient(ctx context.Context, p scope.Principal, id uuid.UUID) (*model.PatientRecord, error) {
	access, err := scope.Resolve(p, scope.ResourcePatientRecord)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var rec model.PatientRecord
	err = access.Apply(r.db.WithContext(ctx)).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &rec, nil
}

// CreatePatient opens a clinical record in the caller's organization. The
// app-user link is resolved as an explicit enrichment step before the insert;
// its failure never fails the save.
func (r *Repository) CreatePatient(ctx context.Context, p scope.Principal, in CreatePatientInput) (*model.PatientRecord, error) {
	access, err := scope.Resolve(p, scope.ResourcePatientRecord)
	if err != nil {
		return nil, err
	}
	if !access.CanWrite() {
		return nil, scope.ErrPermissionDenied
	}

	if in.FirstName == "" {
		return nil, invalid("first_name", "is required")
	}

	orgID := p.OrganizationID
	if orgID == nil {
		// Admins carry no organization and therefore cannot own records.
		return nil, invalid("organization", "caller has no organization to assign the record to")
	}

	if err := r.checkPatientLimit(ctx, *orgID); err != nil {
		return nil, err
	}

	rec := model.PatientRecord{
		OrganizationID: *orgID,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Email:          model.NormalizeEmail(in.Email),
		Phone:          in.Phone,
		PhotoURL:       in.PhotoURL,
		Active:         true,
	}
	r.autoLink(ctx, &rec)

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordAutoLink(rec.AppUserID != nil)
	r.log.Info("patient record created",
		zap.String("patient_id", rec.ID.String()),
		zap.String("organization_id", rec.OrganizationID.String()),
		zap.String("link_status", rec.StatusLabel()))
	return &rec, nil
}

// UpdatePatient applies a partial update to a record inside the caller's
// scope. Changing the email re-normalizes it and retries the app-user link if
// the record is still unlinked; an existing link is never changed or cleared.
func (r *Repository) UpdatePatient(ctx context.Context, p scope.Principal, id uuid.UUID, in UpdatePatientInput) (*model.PatientRecord, error) {
	rec, err := r.GetPatient(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		if *in.FirstName == "" {
			return nil, invalid("first_name", "is required")
		}
		rec.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		rec.LastName = *in.LastName
	}
	if in.Email != nil {
		rec.Email = model.NormalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		rec.Phone = *in.Phone
	}
	if in.PhotoURL != nil {
		rec.PhotoURL = *in.PhotoURL
	}
	if in.Active != nil {
		rec.Active = *in.Active
	}

	r.autoLink(ctx, rec)

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Save(rec).Error
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// DeletePatient removes a record inside the caller's scope
func (r *Repository) DeletePatient(ctx context.Context, p scope.Principal, id uuid.UUID) error {
	rec, err := r.GetPatient(ctx, p, id)
	if err != nil {
		return err
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Delete(rec).Error
	})
}

// SetPatientPhoto stores the uploaded photo URL on a record inside the
// caller's scope
func (r *Repository) SetPatientPhoto(ctx context.Context, p scope.Principal, id uuid.UUID, url string) (*model.PatientRecord, error) {
	return r.UpdatePatient(ctx, p, id, UpdatePatientInput{PhotoURL: &url})
}

// checkPatientLimit enforces the plan-derived cap on active records
func (r *Repository) checkPatientLimit(ctx context.Context, orgID uuid.UUID) error {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", orgID).Error; err != nil {
		return notFoundOr(err)
	}

	var count int64
	err := r.db.WithContext(ctx).Model(&model.PatientRecord{}).
		Where("organization_id = ? AND active = ?", orgID, true).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count >= int64(org.MaxPatients()) {
		return invalid("organization", "active patient limit reached for the current plan")
	}
	return nil
}
