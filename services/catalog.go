// services/catalog.go
package services

import (
	"log"

	"vread-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCatalogs upserts the static badge and quest catalogs. Conflict on code
// is a no-op, so reboots never duplicate or overwrite tuned rows.
func SeedCatalogs(db *gorm.DB) error {
	for _, badge := range models.BadgeTriggers {
		badge.ID = uuid.NewString()
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&badge).Error; err != nil {
			return err
		}
	}

	for _, quest := range models.QuestCatalog {
		quest.ID = uuid.NewString()
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&quest).Error; err != nil {
			return err
		}
	}

	log.Printf("📚 Seeded catalogs: %d badge types, %d quests", len(models.BadgeTriggers), len(models.QuestCatalog))
	return nil
}
