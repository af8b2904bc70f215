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

// CreateUserInput is the payload for creating an account. Organization is
// honored only for admin callers; everyone else gets their own organization
// stamped on the row.
type CreateUserInput struct {
	Email          string     `json:"email"`
	Password       string     `json:"-"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Role           model.Role `json:"role"`
	OrganizationID *uuid.UUID `json:"organization_id"`
}

// UpdateUserInput carries a partial update; nil fields are left unchanged
type UpdateUserInput struct {
	FirstName *string     `json:"first_name"`
	LastName  *string     `json:"last_name"`
	PhotoURL  *string     `json:"photo"`
	Active    *bool       `json:"is_active"`
	Role      *model.Role `json:"role"`
}

// ListUsers returns the accounts visible to the principal, newest first
func (r *Repository) ListUsers(ctx context.Context, p scope.Principal, search string) ([]model.User, error) {
	access, err := scope.Resolve(p, scope.ResourceUser)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	q := access.Apply(r.db.WithContext(ctx).Model(&model.User{}))
	q = searchFilter(q, search, "email", "first_name", "last_name")

	var users []model.User
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns one account if it is inside the caller's scope
func (r *Repository) GetUser(ctx context.Context, p scope.Principal, id uuid.UUID) (*model.User, error) {
	access, err := scope.Resolve(p, scope.ResourceUser)
	if err != nil {
		return nil, err
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	err = access.Apply(r.db.WithContext(ctx)).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

// CreateUser provisions an account inside the caller's scope. Only admins may
// create admins or pick the target organization; clinic owners create staff
// and patients in their own clinic.
func (r *Repository) CreateUser(ctx context.Context, p scope.Principal, in CreateUserInput) (*model.User, error) {
	access, err := scope.Resolve(p, scope.ResourceUser)
	if err != nil {
		return nil, err
	}
	// Self-scoped principals (professionals, patients) cannot create accounts.
	if !access.All && access.OrganizationID == nil {
		return nil, scope.ErrPermissionDenied
	}
	if in.Role.IsAdmin() && !access.All {
		return nil, scope.ErrPermissionDenied
	}

	orgID := in.OrganizationID
	if !access.All {
		orgID = p.OrganizationID
	}

	return r.insertUser(ctx, in, orgID)
}

// RegisterUser provisions an account from the public signup path, before any
// principal exists. The account starts without an organization; assignment
// happens later through an owner or admin.
func (r *Repository) RegisterUser(ctx context.Context, in CreateUserInput) (*model.User, error) {
	return r.insertUser(ctx, in, nil)
}

func (r *Repository) insertUser(ctx context.Context, in CreateUserInput, orgID *uuid.UUID) (*model.User, error) {
	email := model.NormalizeEmail(in.Email)
	if email == "" {
		return nil, invalid("email", "is required")
	}
	if in.Password == "" {
		return nil, invalid("password", "is required")
	}
	if in.Role == "" {
		in.Role = model.RoleProfessional
	}
	if !in.Role.Valid() {
		return nil, invalid("role", "unknown role")
	}

	user := model.User{
		Email:          email,
		Password:       in.Password,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		Role:           in.Role,
		OrganizationID: orgID,
		Active:         true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return invalid("email", "already registered")
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		// Profile creation is an explicit part of account creation, not a
		// side effect of saving the row.
		return createProfileFor(tx, &user)
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("user created",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	return &user, nil
}

// createProfileFor creates the empty role-matching profile for a fresh account
func createProfileFor(tx *gorm.DB, user *model.User) error {
	switch {
	case user.Role.IsProfessional() || user.Role.IsOrgOwner():
		return tx.Create(&model.ProfessionalProfile{UserID: user.ID}).Error
	case user.Role.IsPatient():
		return tx.Create(&model.PatientProfile{UserID: user.ID}).Error
	}
	return nil
}

// UpdateUser applies a partial update to an account inside the caller's
// scope. Email is immutable; role changes are reserved to admins and clinic
// owners. The admin-has-no-organization invariant is re-applied on every
// write.
func (r *Repository) UpdateUser(ctx context.Context, p scope.Principal, id uuid.UUID, in UpdateUserInput) (*model.User, error) {
	user, err := r.GetUser(ctx, p, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		user.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		user.LastName = *in.LastName
	}
	if in.PhotoURL != nil {
		user.PhotoURL = *in.PhotoURL
	}
	if in.Active != nil {
		user.Active = *in.Active
	}
	if in.Role != nil {
		if !p.Role.IsAdmin() && !p.Role.IsOrgOwner() {
			return nil, scope.ErrPermissionDenied
		}
		if in.Role.IsAdmin() && !p.Role.IsAdmin() {
			return nil, scope.ErrPermissionDenied
		}
		if !in.Role.Valid() {
			return nil, invalid("role", "unknown role")
		}
		user.Role = *in.Role
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Save(user).Error
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes an account inside the caller's scope. Linked clinical
// records and authored meals are kept; their references are nullified.
func (r *Repository) DeleteUser(ctx context.Context, p scope.Principal, id uuid.UUID) error {
	user, err := r.GetUser(ctx, p, id)
	if err != nil {
		return err
	}
	if user.ID == p.ID {
		return invalid("id", "cannot delete the calling account")
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.PatientRecord{}).
			Where("app_user_id = ?", user.ID).
			Update("app_user_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Meal{}).
			Where("created_by_id = ?", user.ID).
			Update("created_by_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

// FindUserByEmail loads an account for credential verification. This is the
// authenticator's path; it runs before any scope exists.
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("email = ?", model.NormalizeEmail(email)).
		First(&user).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}

// FindUserByID reloads an account by primary key, outside any scope. Used by
// the token refresh path.
func (r *Repository) FindUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &user, nil
}
