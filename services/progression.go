// services/progression.go
package services

import (
	"fmt"
	"math"
	"time"

	"vread-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XPWeights define relative values (tunable via config/env later)
type XPWeights struct {
	ValidationXP     int64 `default:"10"`
	BookCompletedXP  int64 `default:"100"` // 10× validation
	StreakMilestone  int64 `default:"50"`  // hit 7/30/100 days
	QuestCompletedXP int64 `default:"25"`
}

var DefaultXPWeights = XPWeights{
	ValidationXP:     10,
	BookCompletedXP:  100,
	StreakMilestone:  50,
	QuestCompletedXP: 25,
}

// StreakMilestoneDays are the streak lengths worth bonus XP.
var StreakMilestoneDays = []int{7, 30, 100}

// LevelConfig: XP needed for *next* level (e.g., level 1 → 2 needs BaseXPPerLevel * 1^1.2)
const BaseXPPerLevel = 100

// xpForNextLevel returns XP required to reach level+1 from current level
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// EnsureProgressionRecord ensures a UserProgression row exists (idempotent)
func (s *ProgressionService) EnsureProgressionRecord(externalUserID string) (*models.UserProgression, error) {
	var prog models.UserProgression
	err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.UserProgression{
			ID:             uuid.NewString(),
			ExternalUserID: externalUserID,
			TotalXP:        0,
			Level:          1,
		}
		if err := s.DB.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// AwardXP atomically updates XP and level — returns updated progression
func (s *ProgressionService) AwardXP(externalUserID string, xp int64, reason string) (*models.UserProgression, error) {
	var updated *models.UserProgression
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		updated, err = awardXP(tx, externalUserID, xp, reason)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Auto-award badges once the XP is committed — the grant path opens its
	// own writes and must not run while the transaction holds the lock.
	badgeSvc := NewBadgeService(s.DB)
	_ = badgeSvc.AutoAwardBadges(externalUserID) // fire-and-forget

	return updated, nil
}

// awardXP applies the XP and level-up math on the given handle so callers can
// run it inside their own transaction.
func awardXP(tx *gorm.DB, externalUserID string, xp int64, reason string) (*models.UserProgression, error) {
	var prog models.UserProgression
	if err := tx.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return nil, fmt.Errorf("progression record not found for %s", externalUserID)
	}

	prog.TotalXP += xp

	// Level-up logic: accumulate until enough for next level
	for prog.TotalXP >= int64(BaseXPPerLevel)*int64(prog.Level)+xpForNextLevel(prog.Level) {
		prog.Level++
		now := time.Now()
		prog.LastLevelUpAt = &now
	}

	if err := tx.Save(&prog).Error; err != nil {
		return nil, err
	}

	fmt.Printf("📚 XP Awarded: %s → XP=%d, Lvl=%d (reason: %s)\n",
		externalUserID, prog.TotalXP, prog.Level, reason)

	updated := prog
	return &updated, nil
}

// RecordValidationActivity bumps the activity counters after one accepted
// validation and awards the matching XP. bookCompleted marks the validation
// that crossed the completion boundary; streak is the freshly recomputed
// value for the book that was validated.
func (s *ProgressionService) RecordValidationActivity(externalUserID string, bookID string, bookCompleted bool, streak Streak, usedJoker bool) error {
	prog, err := s.EnsureProgressionRecord(externalUserID)
	if err != nil {
		return err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		prog.TotalValidations++
		if bookCompleted {
			prog.BooksCompleted++
		}
		if usedJoker {
			prog.TotalJokersUsed++
		}
		if int64(streak.Best) > prog.BestStreakDays {
			prog.BestStreakDays = int64(streak.Best)
		}
		return tx.Save(prog).Error
	})
	if err != nil {
		return err
	}

	xp := DefaultXPWeights.ValidationXP
	reason := "segment_validated"
	if bookCompleted {
		xp += DefaultXPWeights.BookCompletedXP
		reason = fmt.Sprintf("book_%s_completed", bookID)
	}
	for _, m := range StreakMilestoneDays {
		if streak.Current == m {
			xp += DefaultXPWeights.StreakMilestone
			reason = fmt.Sprintf("%s+streak_%d", reason, m)
			break
		}
	}

	_, err = s.AwardXP(externalUserID, xp, reason)
	return err
}
