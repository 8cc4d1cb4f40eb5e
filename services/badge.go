// services/badge.go
package services

import (
	"fmt"

	"vread-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// AutoAwardBadges checks all badge triggers for a user after a progression update
func (s *BadgeService) AutoAwardBadges(externalUserID string) error {
	var prog models.UserProgression
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&prog).Error; err != nil {
		return err
	}

	var awarded []string
	for _, trigger := range models.BadgeTriggers {
		if !s.meetsThreshold(&prog, trigger.Threshold) {
			continue
		}
		// Check if already awarded
		var count int64
		s.DB.Model(&models.UserBadge{}).
			Where("external_user_id = ? AND badge_type_code = ?", externalUserID, trigger.Code).
			Count(&count)
		if count == 0 {
			userBadge := models.UserBadge{
				ID:             uuid.NewString(),
				ExternalUserID: externalUserID,
				BadgeTypeCode:  trigger.Code,
			}
			if err := s.DB.Create(&userBadge).Error; err != nil {
				return err
			}
			awarded = append(awarded, trigger.Name)
			fmt.Printf("🎖️ Badge awarded: %s → %s\n", trigger.Name, externalUserID)
		}
	}

	if len(awarded) > 0 {
		// Optional: emit event for push notification: "🎉 You earned: 'Première page'!"
	}
	return nil
}

// ListUserBadges returns the user's badges joined with their static config.
func (s *BadgeService) ListUserBadges(externalUserID string) ([]map[string]interface{}, error) {
	var userBadges []models.UserBadge
	if err := s.DB.Where("external_user_id = ?", externalUserID).
		Order("awarded_at DESC").
		Find(&userBadges).Error; err != nil {
		return nil, err
	}

	byCode := make(map[string]models.BadgeType, len(models.BadgeTriggers))
	for _, t := range models.BadgeTriggers {
		byCode[t.Code] = t
	}

	out := make([]map[string]interface{}, 0, len(userBadges))
	for _, ub := range userBadges {
		t := byCode[ub.BadgeTypeCode]
		out = append(out, map[string]interface{}{
			"id":          ub.ID,
			"code":        ub.BadgeTypeCode,
			"name":        t.Name,
			"description": t.Description,
			"icon_url":    t.IconURL,
			"rarity":      t.Rarity,
			"awarded_at":  ub.AwardedAt,
		})
	}
	return out, nil
}

func (s *BadgeService) meetsThreshold(prog *models.UserProgression, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "total_validations":
			if prog.TotalValidations < required {
				return false
			}
		case "books_completed":
			if prog.BooksCompleted < required {
				return false
			}
		case "best_streak_days":
			if prog.BestStreakDays < required {
				return false
			}
		case "level":
			if int64(prog.Level) < required {
				return false
			}
		case "event": // special: always true (e.g., signup)
			return true
		}
	}
	return true
}
