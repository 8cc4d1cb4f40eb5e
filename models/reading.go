// models/reading.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	StatusToRead     = "to_read"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ReadingProgress is one user's journey through one book — exactly one row
// per (user, book). Status is derived from validations by the reconciler;
// the stored value is a cache of that derivation.
type ReadingProgress struct {
	ID     string `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex:ux_progress_user_book;not null"`
	BookID string `json:"book_id" gorm:"uniqueIndex:ux_progress_user_book;not null"`

	CurrentPage int    `json:"current_page" gorm:"default:0"` // monotonically non-decreasing
	TotalPages  int    `json:"total_pages" gorm:"default:0"`
	Status      string `json:"status" gorm:"default:'to_read'"` // to_read | in_progress | completed

	StreakCurrent int `json:"streak_current" gorm:"default:0"`
	StreakBest    int `json:"streak_best" gorm:"default:0"`
	JokersUsed    int `json:"jokers_used" gorm:"default:0"`

	StartedAt *time.Time `json:"started_at"`

	Book        Book                `json:"book" gorm:"foreignKey:BookID;references:ID"`
	Validations []ReadingValidation `json:"validations" gorm:"foreignKey:ProgressID"`

	Timestamps
}

// ReadingValidation is an append-only confirmation that a user completed a
// segment. The unique index is the idempotency guarantee: a double-submit
// (double-click, joker double-call) can never produce two rows.
type ReadingValidation struct {
	ID         string `json:"id" gorm:"primaryKey"`
	UserID     string `json:"user_id" gorm:"uniqueIndex:ux_validation_user_book_segment;not null"`
	BookID     string `json:"book_id" gorm:"uniqueIndex:ux_validation_user_book_segment;not null"`
	Segment    int    `json:"segment" gorm:"uniqueIndex:ux_validation_user_book_segment;not null"`
	ProgressID string `json:"progress_id" gorm:"index;not null"`

	QuestionID *string `json:"question_id,omitempty"`
	Answer     string  `json:"answer,omitempty"`
	Correct    bool    `json:"correct"`
	UsedJoker  bool    `json:"used_joker"`

	ValidatedAt time.Time `json:"validated_at" gorm:"autoCreateTime"`
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
