package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanType identifies the subscription tier of an organization
type PlanType string

const (
	PlanStarter      PlanType = "STARTER"
	PlanProfessional PlanType = "PROFESSIONAL"
	PlanBusiness     PlanType = "BUSINESS"
	PlanEnterprise   PlanType = "ENTERPRISE"
)

// Organization represents a clinic, the unit of data isolation.
// Plan limits and feature flags are derived from PlanType and never stored.
type Organization struct {
	ID                uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	Name              string         `json:"name" gorm:"type:varchar(255);not null"`
	Slug              string         `json:"slug" gorm:"type:varchar(100);uniqueIndex;not null"`
	LogoURL           string         `json:"logo_url,omitempty" gorm:"type:varchar(500)"`
	PlanType          PlanType       `json:"plan_type" gorm:"type:varchar(20);not null;default:'STARTER'"`
	Active            bool           `json:"is_active" gorm:"default:true"`
	SubscriptionStart time.Time      `json:"subscription_start" gorm:"autoCreateTime"`
	SubscriptionEnd   *time.Time     `json:"subscription_end,omitempty"`
	TaxID             string         `json:"tax_id,omitempty" gorm:"type:varchar(20)"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate hook assigns a UUID primary key if one was not provided
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// HasActiveSubscription reports whether the subscription is still in force.
// A missing end date means an open-ended subscription.
func (o *Organization) HasActiveSubscription() bool {
	if o.SubscriptionEnd == nil {
		return true
	}
	return time.Now().Before(*o.SubscriptionEnd)
}

// MaxPatients returns the maximum number of active patient records allowed
// by the organization's plan. ENTERPRISE has no practical limit.
func (o *Organization) MaxPatients() int {
	switch o.PlanType {
	case PlanStarter:
		return 10
	case PlanProfessional:
		return 30
	case PlanBusiness:
		return 100
	default:
		return 999999
	}
}

// AllowsBranding reports whether the plan allows custom branding
func (o *Organization) AllowsBranding() bool {
	return o.PlanType == PlanBusiness || o.PlanType == PlanEnterprise
}

// AllowsMarketplace reports whether the organization appears in the public directory
func (o *Organization) AllowsMarketplace() bool {
	return o.PlanType == PlanProfessional || o.PlanType == PlanBusiness || o.PlanType == PlanEnterprise
}

// AllowsShoppingList reports whether the plan includes the interactive shopping list
func (o *Organization) AllowsShoppingList() bool {
	return o.PlanType == PlanProfessional || o.PlanType == PlanBusiness || o.PlanType == PlanEnterprise
}

// SupportLevel returns the support tier label for the plan
func (o *Organization) SupportLevel() string {
	switch o.PlanType {
	case PlanEnterprise:
		return "Priority Support"
	case PlanBusiness:
		return "Email Support"
	default:
		return "Community Support"
	}
}
