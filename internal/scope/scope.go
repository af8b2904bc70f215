// Package scope computes, per request, which rows a principal may read and
// write. Every data access in the service goes through the repository, and
// the repository resolves an Access here before touching the store, so the
// tenant-isolation rules live in exactly one place: the decision table in
// Resolve.
package scope

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-service/internal/model"
)

// ErrPermissionDenied is returned when the principal's role or organization
// does not satisfy the decision table for the requested resource. The message
// is intentionally generic; callers must not leak what would have been visible.
var ErrPermissionDenied = errors.New("permission denied")

// Resource names a collection subject to scoping
type Resource string

const (
	ResourceUser          Resource = "users"
	ResourcePatientRecord Resource = "patient_records"
	ResourceDietPlan      Resource = "diet_plans"
	ResourceMeal          Resource = "meals"
	ResourceOrganization  Resource = "organizations"
)

// Principal is the authenticated actor a request runs as. It is rebuilt from
// the verified token on every request; Access values derived from it must
// never be cached across requests, since the organization assignment can
// change between two calls.
type Principal struct {
	ID             uuid.UUID
	Email          string
	Role           model.Role
	OrganizationID *uuid.UUID
}

// Access is the structured predicate bounding what the principal can see and
// mutate in one resource collection. Exactly one of the filter fields is set
// unless All is true.
type Access struct {
	// All grants unrestricted visibility (admin only)
	All bool
	// OrganizationID restricts rows to one tenant (organization_id column)
	OrganizationID *uuid.UUID
	// ProfessionalID restricts diet plans to those created by this user
	ProfessionalID *uuid.UUID
	// PatientID restricts diet plans to those assigned to this user
	PatientID *uuid.UUID
	// RowID restricts visibility to a single row by primary key
	RowID *uuid.UUID
	// ReadOnly forbids create/update/delete entirely
	ReadOnly bool
	// OwnerWrite allows writes only on rows created by the principal;
	// reads stay governed by the filter fields above
	OwnerWrite bool
}

// Apply narrows a query to the rows the access predicate admits
func (a Access) Apply(db *gorm.DB) *gorm.DB {
	switch {
	case a.All:
		return db
	case a.OrganizationID != nil:
		return db.Where("organization_id = ?", *a.OrganizationID)
	case a.ProfessionalID != nil:
		return db.Where("professional_id = ?", *a.ProfessionalID)
	case a.PatientID != nil:
		return db.Where("patient_id = ?", *a.PatientID)
	case a.RowID != nil:
		return db.Where("id = ?", *a.RowID)
	}
	// No filter matched: admit nothing rather than everything.
	return db.Where("1 = 0")
}

// CanWrite reports whether the access allows any mutation at all
func (a Access) CanWrite() bool {
	return !a.ReadOnly
}

// Resolve maps (principal, resource) to an access predicate. It is a pure
// function of the principal's role and organization; rules are evaluated in
// order and the first match wins.
func Resolve(p Principal, resource Resource) (Access, error) {
	// Rule 1: the super admin sees and mutates everything.
	if p.Role.IsAdmin() {
		return Access{All: true}, nil
	}

	switch resource {
	case ResourcePatientRecord:
		// Rules 2-3: clinic staff, strictly inside their own organization.
		if !p.Role.IsOrgOwner() && !p.Role.IsProfessional() {
			return Access{}, ErrPermissionDenied
		}
		if p.OrganizationID == nil {
			return Access{}, ErrPermissionDenied
		}
		return Access{OrganizationID: p.OrganizationID}, nil

	case ResourceUser:
		// Rule 2: the clinic owner manages every account in the clinic.
		if p.Role.IsOrgOwner() {
			if p.OrganizationID == nil {
				return Access{}, ErrPermissionDenied
			}
			return Access{OrganizationID: p.OrganizationID}, nil
		}
		// Rule 6: everyone else sees only their own account.
		id := p.ID
		return Access{RowID: &id}, nil

	case ResourceDietPlan:
		// Rule 4: professionals (and owners acting as one) manage the plans
		// they created.
		if p.Role.IsProfessional() || p.Role.IsOrgOwner() {
			id := p.ID
			return Access{ProfessionalID: &id, OwnerWrite: true}, nil
		}
		// Rule 5: patients read the plans assigned to them.
		if p.Role.IsPatient() {
			id := p.ID
			return Access{PatientID: &id, ReadOnly: true}, nil
		}
		return Access{}, ErrPermissionDenied

	case ResourceMeal:
		// The recipe catalog is shared reading; writes stay with the author.
		if p.Role.IsProfessional() || p.Role.IsOrgOwner() {
			return Access{All: true, OwnerWrite: true}, nil
		}
		return Access{All: true, ReadOnly: true}, nil

	case ResourceOrganization:
		if p.OrganizationID == nil {
			return Access{}, ErrPermissionDenied
		}
		// Owners may update their clinic; everyone else only reads it.
		return Access{RowID: p.OrganizationID, ReadOnly: !p.Role.IsOrgOwner()}, nil
	}

	return Access{}, ErrPermissionDenied
}
