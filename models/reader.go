// models/reader.go
package models

import "time"

// ReaderProfile mirrors the external profile/entitlement service. Rows are
// upserted by the sync workers; the core never writes them from handlers.
// is_premium is informational here — no reading behavior gates on it.
type ReaderProfile struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	Username  string  `json:"username"`
	Email     string  `json:"email"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`

	IsPremium    bool       `gorm:"default:false" json:"is_premium"`
	PremiumSince *time.Time `json:"premium_since,omitempty"`

	Timestamps
}
