// models/progression.go
package models

import "time"

// UserProgression tracks gamified progression for each reader (denormalized for performance)
type UserProgression struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to auth/profile service

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"default:0"`
	Level   int   `json:"level" gorm:"default:1"`

	// Activity counters
	TotalValidations int64 `json:"total_validations" gorm:"default:0"`
	BooksCompleted   int64 `json:"books_completed" gorm:"default:0"`
	TotalJokersUsed  int64 `json:"total_jokers_used" gorm:"default:0"`
	BestStreakDays   int64 `json:"best_streak_days" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}
