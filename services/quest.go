// services/quest.go
package services

import (
	"fmt"
	"time"

	"vread-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuestService struct {
	DB *gorm.DB
}

func NewQuestService(db *gorm.DB) *QuestService {
	return &QuestService{DB: db}
}

// EvaluateQuests syncs every catalog quest's progress from the user's
// progression counters and completes any quest whose target is reached.
// Completion is idempotent: CompletedAt is set at most once and the XP
// reward is granted in the same transaction as the flip.
func (s *QuestService) EvaluateQuests(externalUserID string) error {
	var prog models.UserProgression
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return err
	}

	var completed int
	for _, quest := range models.QuestCatalog {
		value := questMetricValue(&prog, quest.Metric)
		if value > quest.Target {
			value = quest.Target
		}

		err := s.DB.Transaction(func(tx *gorm.DB) error {
			var uq models.UserQuest
			err := tx.Where("external_user_id = ? AND quest_code = ?", externalUserID, quest.Code).
				First(&uq).Error
			if err == gorm.ErrRecordNotFound {
				uq = models.UserQuest{
					ID:             uuid.NewString(),
					ExternalUserID: externalUserID,
					QuestCode:      quest.Code,
				}
			} else if err != nil {
				return err
			}

			if uq.CompletedAt != nil {
				return nil // already done — never re-grant
			}

			uq.Progress = value
			if value >= quest.Target {
				now := time.Now()
				uq.CompletedAt = &now
				completed++
				fmt.Printf("🗺️ Quest completed: %s → %s\n", quest.Name, externalUserID)
				if quest.XPReward > 0 {
					if _, err := awardXP(tx, externalUserID, quest.XPReward, "quest_"+quest.Code); err != nil {
						return err
					}
				}
			}
			return tx.Save(&uq).Error
		})
		if err != nil {
			return err
		}
	}

	if completed > 0 {
		// Quest XP can cross badge thresholds (e.g., a level), so re-check
		// once the completions are committed.
		_ = NewBadgeService(s.DB).AutoAwardBadges(externalUserID)
	}
	return nil
}

// ListUserQuests returns catalog quests annotated with the user's progress.
func (s *QuestService) ListUserQuests(externalUserID string) ([]map[string]interface{}, error) {
	var rows []models.UserQuest
	if err := s.DB.Where("external_user_id = ?", externalUserID).Find(&rows).Error; err != nil {
		return nil, err
	}
	byCode := make(map[string]models.UserQuest, len(rows))
	for _, r := range rows {
		byCode[r.QuestCode] = r
	}

	out := make([]map[string]interface{}, 0, len(models.QuestCatalog))
	for _, q := range models.QuestCatalog {
		uq := byCode[q.Code]
		out = append(out, map[string]interface{}{
			"code":         q.Code,
			"name":         q.Name,
			"description":  q.Description,
			"target":       q.Target,
			"xp_reward":    q.XPReward,
			"progress":     uq.Progress,
			"completed_at": uq.CompletedAt,
		})
	}
	return out, nil
}

func questMetricValue(prog *models.UserProgression, metric string) int64 {
	switch metric {
	case "total_validations":
		return prog.TotalValidations
	case "books_completed":
		return prog.BooksCompleted
	case "best_streak_days":
		return prog.BestStreakDays
	case "level":
		return int64(prog.Level)
	}
	return 0
}
