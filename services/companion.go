// services/companion.go
package services

import (
	"fmt"
	"time"

	"vread-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReturnGapDays: a break longer than this triggers the "return" ritual on
// the next validation.
const ReturnGapDays = 7

// WeekRitualDays: the reading-day count that triggers the "week" ritual.
const WeekRitualDays = 7

type CompanionService struct {
	DB  *gorm.DB
	Loc *time.Location
}

func NewCompanionService(db *gorm.DB, loc *time.Location) *CompanionService {
	if loc == nil {
		loc = time.UTC
	}
	return &CompanionService{DB: db, Loc: loc}
}

// ApplyValidation advances the companion after one accepted validation.
// Each qualifying transition raises its pending ritual flag at most once;
// the flags are consumed only by MarkRitualSeen (the UI acknowledgment).
func (s *CompanionService) ApplyValidation(externalUserID string, at time.Time) (*models.CompanionState, error) {
	var state models.CompanionState
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("external_user_id = ?", externalUserID).First(&state).Error
		day := midnight(at, s.Loc)

		if err == gorm.ErrRecordNotFound {
			// First validation ever → birth.
			state = models.CompanionState{
				ID:                uuid.NewString(),
				ExternalUserID:    externalUserID,
				Stage:             models.CompanionStageEgg,
				TotalReadingDays:  1,
				FirstValidatedAt:  &at,
				LastValidationDay: &day,
				PendingBirth:      true,
			}
			fmt.Printf("🐣 Companion born for %s\n", externalUserID)
			return tx.Create(&state).Error
		}
		if err != nil {
			return err
		}

		if state.LastValidationDay != nil && state.LastValidationDay.Equal(day) {
			return nil // same reading day, nothing evolves
		}

		if state.LastValidationDay != nil {
			gap := int64(day.Sub(*state.LastValidationDay).Hours() / 24)
			if gap > ReturnGapDays {
				state.PendingReturn = true
			}
		}

		state.TotalReadingDays++
		state.LastValidationDay = &day

		if state.TotalReadingDays == WeekRitualDays {
			state.PendingWeek = true
		}

		next := models.CompanionStageForDays(state.TotalReadingDays)
		if next != state.Stage {
			state.Stage = next
			state.PendingEvolution = true
			fmt.Printf("✨ Companion of %s evolved to %s\n", externalUserID, next)
		}

		return tx.Save(&state).Error
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// GetState returns the companion state, creating nothing.
func (s *CompanionService) GetState(externalUserID string) (*models.CompanionState, error) {
	var state models.CompanionState
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&state).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// MarkRitualSeen consumes exactly one pending ritual flag. A second ack for
// the same ritual is a no-op.
func (s *CompanionService) MarkRitualSeen(externalUserID, ritual string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var state models.CompanionState
		if err := tx.Where("external_user_id = ?", externalUserID).First(&state).Error; err != nil {
			return err
		}

		switch ritual {
		case models.RitualBirth:
			state.PendingBirth = false
		case models.RitualEvolution:
			state.PendingEvolution = false
		case models.RitualWeek:
			state.PendingWeek = false
		case models.RitualReturn:
			state.PendingReturn = false
		default:
			return fmt.Errorf("unknown ritual %q", ritual)
		}

		now := time.Now()
		state.LastRitualSeen = ritual
		state.LastRitualSeenAt = &now
		return tx.Save(&state).Error
	})
}

func midnight(ts time.Time, loc *time.Location) time.Time {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
