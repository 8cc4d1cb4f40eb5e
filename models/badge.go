// models/badge.go
package models

import (
	"time"
)

// BadgeType: static config (seeded into DB on boot)
type BadgeType struct {
	ID          string `gorm:"primaryKey"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "FIRST_PAGE", "STREAK_7"
	Name        string `gorm:"not null"`
	Description string
	IconURL     string           `gorm:"type:text"`
	Rarity      string           `gorm:"type:varchar(16);default:'common'"` // common, rare, epic, legendary
	Threshold   map[string]int64 `gorm:"serializer:json;type:jsonb"`        // e.g., {"total_validations": 10}
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
}

// UserBadge: awarded instance — at most one per (user, badge type)
type UserBadge struct {
	ID             string    `gorm:"primaryKey"`
	ExternalUserID string    `gorm:"uniqueIndex:ux_user_badge;not null"`
	BadgeTypeCode  string    `gorm:"uniqueIndex:ux_user_badge;not null"`
	AwardedAt      time.Time `gorm:"autoCreateTime"`
	Metadata       string    `gorm:"type:jsonb"`
}

// BadgeTriggers are evaluated after every validation against the user's
// progression counters. Grants are idempotent.
var BadgeTriggers = []BadgeType{
	{
		Code:        "FIRST_PAGE",
		Name:        "Première page",
		Description: "Validated your first segment",
		Rarity:      "common",
		Threshold:   map[string]int64{"total_validations": 1},
	},
	{
		Code:        "FINISHER",
		Name:        "Le mot de la fin",
		Description: "Finished your first book",
		Rarity:      "rare",
		Threshold:   map[string]int64{"books_completed": 1},
	},
	{
		Code:        "BOOKWORM",
		Name:        "Dévoreur de livres",
		Description: "Finished 5 books",
		Rarity:      "epic",
		Threshold:   map[string]int64{"books_completed": 5},
	},
	{
		Code:        "STREAK_7",
		Name:        "Une semaine sans faute",
		Description: "Validated 7 days in a row",
		Rarity:      "rare",
		Threshold:   map[string]int64{"best_streak_days": 7},
	},
	{
		Code:        "STREAK_30",
		Name:        "Marathon lecteur",
		Description: "Validated 30 days in a row",
		Rarity:      "legendary",
		Threshold:   map[string]int64{"best_streak_days": 30},
	},
	{
		Code:        "CENTURION",
		Name:        "Centurion",
		Description: "Validated 100 segments",
		Rarity:      "epic",
		Threshold:   map[string]int64{"total_validations": 100},
	},
	{
		Code:        "LEVEL_10",
		Name:        "Lecteur confirmé",
		Description: "Reached level 10",
		Rarity:      "rare",
		Threshold:   map[string]int64{"level": 10},
	},
}
