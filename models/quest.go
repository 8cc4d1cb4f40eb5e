// models/quest.go
package models

import "time"

// Quest: a tracked objective with visible progress toward a single metric.
type Quest struct {
	ID          string `gorm:"primaryKey"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "READ_3_BOOKS"
	Name        string `gorm:"not null"`
	Description string
	Metric      string `gorm:"not null"` // total_validations | books_completed | best_streak_days | level
	Target      int64  `gorm:"not null"`
	XPReward    int64  `gorm:"default:0"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// UserQuest mirrors a user's progress toward a quest. CompletedAt is set
// exactly once; the XP reward is granted in the same transaction.
type UserQuest struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex:ux_user_quest;not null" json:"external_user_id"`
	QuestCode      string `gorm:"uniqueIndex:ux_user_quest;not null" json:"quest_code"`

	Progress    int64      `gorm:"default:0" json:"progress"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// QuestCatalog is seeded into DB on boot and evaluated after validations.
var QuestCatalog = []Quest{
	{Code: "FIRST_STEPS", Name: "Premiers pas", Description: "Validate 5 segments", Metric: "total_validations", Target: 5, XPReward: 25},
	{Code: "READ_3_BOOKS", Name: "Trilogie", Description: "Finish 3 books", Metric: "books_completed", Target: 3, XPReward: 150},
	{Code: "STEADY_READER", Name: "Lecteur assidu", Description: "Hold a 14-day streak", Metric: "best_streak_days", Target: 14, XPReward: 100},
	{Code: "SEGMENT_50", Name: "Mi-parcours", Description: "Validate 50 segments", Metric: "total_validations", Target: 50, XPReward: 75},
}
