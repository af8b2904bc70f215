package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies what a user is allowed to do and how queries are scoped
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleOrgOwner     Role = "ORG_OWNER"
	RoleProfessional Role = "PROFESSIONAL"
	RolePatient      Role = "PACIENTE"

	// Legacy role spellings still present in older rows. Kept until the
	// data migration that rewrites them lands.
	RoleLegacyProfessional Role = "NUTRICIONISTA"
	RoleLegacyPatient      Role = "PATIENT"
)

// IsAdmin reports whether the role is the platform super admin
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// IsOrgOwner reports whether the role is a clinic owner
func (r Role) IsOrgOwner() bool {
	return r == RoleOrgOwner
}

// IsProfessional reports whether the role is a nutrition professional,
// accepting the legacy spelling
func (r Role) IsProfessional() bool {
	return r == RoleProfessional || r == RoleLegacyProfessional
}

// IsPatient reports whether the role is a patient, accepting the legacy spelling
func (r Role) IsPatient() bool {
	return r == RolePatient || r == RoleLegacyPatient
}

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrgOwner, RoleProfessional, RolePatient,
		RoleLegacyProfessional, RoleLegacyPatient:
		return true
	}
	return false
}

// NormalizeEmail lowercases and trims an email address so lookups and
// uniqueness checks are case-insensitive
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// User represents an authenticated principal: an admin, a clinic owner, a
// nutrition professional or a patient
type User struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Email          string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password       string         `json:"-" gorm:"type:varchar(255)"`
	FirstName      string         `json:"first_name" gorm:"type:varchar(150)"`
	LastName       string         `json:"last_name" gorm:"type:varchar(150)"`
	PhotoURL       string         `json:"photo,omitempty" gorm:"type:varchar(500)"`
	Role           Role           `json:"role" gorm:"type:varchar(20);not null;default:'PROFESSIONAL'"`
	OrganizationID *uuid.UUID     `json:"organization_id,omitempty" gorm:"type:uuid;index"`
	Active         bool           `json:"is_active" gorm:"default:true"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Organization *Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate hook assigns a UUID primary key if one was not provided
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// BeforeSave enforces the admin invariant: a super admin never belongs to an
// organization, regardless of what the caller supplied
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role.IsAdmin() {
		u.OrganizationID = nil
	}
	return nil
}

// FullName returns the display name of the user
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ProfessionalProfile carries the professional-facing attributes of a user
type ProfessionalProfile struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	LicenseNumber string    `json:"license_number" gorm:"type:varchar(50)"`
	Bio           string    `json:"bio" gorm:"type:text"`
	Specialties   string    `json:"specialties" gorm:"type:jsonb"`
	Phone         string    `json:"phone" gorm:"type:varchar(20)"`
	City          string    `json:"city" gorm:"type:varchar(100)"`
	Rating        float64   `json:"rating" gorm:"type:decimal(3,2);default:0"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PatientProfile carries the medical attributes of a patient user
type PatientProfile struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	UserID            uuid.UUID  `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	Gender            string     `json:"gender" gorm:"type:varchar(20)"`
	HeightCm          float64    `json:"height" gorm:"type:decimal(5,2)"`
	WeightKg          float64    `json:"weight" gorm:"type:decimal(5,2)"`
	Allergies         string     `json:"allergies" gorm:"type:text"`
	MedicalConditions string     `json:"medical_conditions" gorm:"type:text"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
