package services

import (
	"testing"

	"vread-backend/models"
)

func TestSeedCatalogsIdempotent(t *testing.T) {
	db := newTestDB(t)

	if err := SeedCatalogs(db); err != nil {
		t.Fatal(err)
	}
	if err := SeedCatalogs(db); err != nil {
		t.Fatalf("reseeding must be a no-op, got %v", err)
	}

	var badgeCount, questCount int64
	db.Model(&models.BadgeType{}).Count(&badgeCount)
	db.Model(&models.Quest{}).Count(&questCount)
	if badgeCount != int64(len(models.BadgeTriggers)) {
		t.Fatalf("badge types = %d, want %d", badgeCount, len(models.BadgeTriggers))
	}
	if questCount != int64(len(models.QuestCatalog)) {
		t.Fatalf("quests = %d, want %d", questCount, len(models.QuestCatalog))
	}

	var quest models.Quest
	if err := db.Where("code = ?", "FIRST_STEPS").First(&quest).Error; err != nil {
		t.Fatal(err)
	}
	if quest.Target != 5 || quest.XPReward != 25 {
		t.Fatalf("FIRST_STEPS seeded as target %d / reward %d, want 5/25", quest.Target, quest.XPReward)
	}
}
