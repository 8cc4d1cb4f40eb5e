package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"vread-backend/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a named in-memory sqlite database migrated with the full
// schema. The name is derived from the test so parallel tests never share
// state.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Book{},
		&models.ReadingQuestion{},
		&models.ReadingProgress{},
		&models.ReadingValidation{},
		&models.UserProgression{},
		&models.BadgeType{},
		&models.UserBadge{},
		&models.Quest{},
		&models.UserQuest{},
		&models.CompanionState{},
		&models.ReaderProfile{},
	); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

func seedBook(t *testing.T, db *gorm.DB, segments, pages int, status string) *models.Book {
	t.Helper()
	book := &models.Book{
		ID:               uuid.NewString(),
		Slug:             "test-" + uuid.NewString()[:8],
		Title:            "Le Petit Prince",
		Status:           status,
		TotalPages:       pages,
		ExpectedSegments: segments,
	}
	if err := db.Create(book).Error; err != nil {
		t.Fatalf("failed to seed book: %v", err)
	}
	return book
}

func newTestValidationService(t *testing.T, db *gorm.DB, invalidated *int) *ValidationService {
	t.Helper()
	svc := NewValidationService(db,
		NewProgressionService(db),
		NewQuestService(db),
		NewCompanionService(db, nil),
		func(string) {
			if invalidated != nil {
				*invalidated++
			}
		})
	svc.Loc = time.UTC
	return svc
}
