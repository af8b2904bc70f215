package model

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RefreshToken is an opaque, rotating credential used to obtain a fresh
// access token without re-entering the password
type RefreshToken struct {
	ID        string         `json:"id" gorm:"primaryKey"`
	Token     string         `json:"-" gorm:"uniqueIndex"` // never exposed in JSON responses
	UserID    uuid.UUID      `json:"user_id" gorm:"type:uuid;index;not null"`
	ExpiresAt time.Time      `json:"expires_at"`
	Revoked   bool           `json:"revoked" gorm:"default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// BeforeCreate hook fills in the identifier and the secret token
func (t *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = generateSecureID("ref_")
	}
	if t.Token == "" {
		t.Token = generateSecureToken()
	}
	return nil
}

// IsExpired checks if the token is past its expiry
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid checks if the token is usable (not expired and not revoked)
func (t *RefreshToken) IsValid() bool {
	return !t.Revoked && !t.IsExpired()
}

// generateSecureID creates a secure random ID with a prefix
func generateSecureID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%s%s", prefix, base64.RawURLEncoding.EncodeToString(b))
}

// generateSecureToken creates a secure random token string
func generateSecureToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
