package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PatientRecord is the clinical chart of a patient. It is owned by exactly
// one organization for its whole lifetime and may be linked, best effort, to
// the app login of the same person (a patient-role User with matching email).
// The link unifies the two into one account; it never transfers ownership.
type PatientRecord struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID      `json:"organization_id" gorm:"type:uuid;index;not null"`
	FirstName      string         `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName       string         `json:"last_name" gorm:"type:varchar(100)"`
	Email          string         `json:"email,omitempty" gorm:"type:varchar(100);index"`
	Phone          string         `json:"phone,omitempty" gorm:"type:varchar(20)"`
	PhotoURL       string         `json:"photo,omitempty" gorm:"type:varchar(500)"`
	Active         bool           `json:"is_active" gorm:"default:true"`
	AppUserID      *uuid.UUID     `json:"app_user_id" gorm:"type:uuid;index"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Organization *Organization `json:"-" gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate hook assigns a UUID primary key if one was not provided
func (p *PatientRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// StatusLabel returns the linking state shown in patient lists
func (p *PatientRecord) StatusLabel() string {
	if p.AppUserID != nil {
		return "linked"
	}
	return "pending"
}

// Initials returns the uppercased initials for avatar placeholders,
// e.g. "Juan Perez" -> "JP"
func (p *PatientRecord) Initials() string {
	var b strings.Builder
	if p.FirstName != "" {
		b.WriteString(string([]rune(p.FirstName)[0]))
	}
	if p.LastName != "" {
		b.WriteString(string([]rune(p.LastName)[0]))
	}
	return strings.ToUpper(b.String())
}
