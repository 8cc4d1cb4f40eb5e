// models/companion.go
package models

import "time"

// Companion stages, unlocked by total distinct reading days.
const (
	CompanionStageEgg       = "egg"
	CompanionStageHatchling = "hatchling"
	CompanionStageJuvenile  = "juvenile"
	CompanionStageEvolved   = "evolved"
	CompanionStageAncient   = "ancient"
)

// CompanionStageThresholds maps stage → minimum total reading days.
var CompanionStageThresholds = []struct {
	Stage   string
	MinDays int64
}{
	{CompanionStageAncient, 100},
	{CompanionStageEvolved, 30},
	{CompanionStageJuvenile, 7},
	{CompanionStageHatchling, 3},
	{CompanionStageEgg, 0},
}

// CompanionStageForDays returns the stage a companion with the given number
// of reading days should be in.
func CompanionStageForDays(days int64) string {
	for _, t := range CompanionStageThresholds {
		if days >= t.MinDays {
			return t.Stage
		}
	}
	return CompanionStageEgg
}

// Ritual kinds — one-time celebratory UI events.
const (
	RitualBirth     = "birth"     // first validation ever
	RitualEvolution = "evolution" // stage increase
	RitualWeek      = "week"      // 7th distinct reading day
	RitualReturn    = "return"    // came back after a break
)

// CompanionState is mutated as a side effect of successful validations.
// Pending flags are one-shot: set on a qualifying transition, cleared only
// by the UI acknowledgment (ritual-seen), never by the recorder.
type CompanionState struct {
	ID             string `gorm:"primaryKey" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"`

	Stage            string `gorm:"default:'egg'" json:"stage"`
	TotalReadingDays int64  `gorm:"default:0" json:"total_reading_days"`

	FirstValidatedAt  *time.Time `json:"first_validated_at,omitempty"`
	LastValidationDay *time.Time `json:"last_validation_day,omitempty"` // midnight of the last day with a validation

	PendingBirth     bool `gorm:"default:false" json:"pending_birth"`
	PendingEvolution bool `gorm:"default:false" json:"pending_evolution"`
	PendingWeek      bool `gorm:"default:false" json:"pending_week"`
	PendingReturn    bool `gorm:"default:false" json:"pending_return"`

	LastRitualSeen   string     `json:"last_ritual_seen,omitempty"`
	LastRitualSeenAt *time.Time `json:"last_ritual_seen_at,omitempty"`

	Timestamps
}

// NextRitual resolves the pending flags into at most one ritual to show,
// by fixed priority: birth > evolution > week > return.
func (c *CompanionState) NextRitual() (string, bool) {
	switch {
	case c.PendingBirth:
		return RitualBirth, true
	case c.PendingEvolution:
		return RitualEvolution, true
	case c.PendingWeek:
		return RitualWeek, true
	case c.PendingReturn:
		return RitualReturn, true
	}
	return "", false
}
