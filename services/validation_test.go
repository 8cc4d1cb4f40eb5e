package services

import (
	"errors"
	"testing"

	"vread-backend/models"

	"github.com/google/uuid"
)

func TestRecordSequentialValidationsToCompletion(t *testing.T) {
	db := newTestDB(t)
	svc := newTestValidationService(t, db, nil)
	book := seedBook(t, db, 3, 90, models.BookStatusPublished)
	const userID = "reader-1"

	res, err := svc.Record(userID, book.ID, 1, ValidationInput{Answer: "soleil", Correct: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Duplicate {
		t.Fatal("first validation must not be a duplicate")
	}
	if res.Progress.Status != models.StatusInProgress {
		t.Fatalf("status after segment 1 = %s, want in_progress", res.Progress.Status)
	}
	if res.Progress.CurrentPage != 30 {
		t.Fatalf("current_page = %d, want 30", res.Progress.CurrentPage)
	}
	if res.Progress.StartedAt == nil {
		t.Fatal("started_at must be set on first validation")
	}

	if _, err := svc.Record(userID, book.ID, 2, ValidationInput{Correct: true}); err != nil {
		t.Fatal(err)
	}
	res, err = svc.Record(userID, book.ID, 3, ValidationInput{Correct: true})
	if err != nil {
		t.Fatal(err)
	}
	if res.Progress.Status != models.StatusCompleted {
		t.Fatalf("status after final segment = %s, want completed", res.Progress.Status)
	}
	if res.Progress.CurrentPage != 90 {
		t.Fatalf("current_page = %d, want capped at total pages 90", res.Progress.CurrentPage)
	}

	var rows int64
	db.Model(&models.ReadingValidation{}).Where("user_id = ?", userID).Count(&rows)
	if rows != 3 {
		t.Fatalf("validation rows = %d, want 3", rows)
	}

	var prog models.UserProgression
	if err := db.Where("external_user_id = ?", userID).First(&prog).Error; err != nil {
		t.Fatal(err)
	}
	if prog.TotalValidations != 3 {
		t.Fatalf("total_validations = %d, want 3", prog.TotalValidations)
	}
	if prog.BooksCompleted != 1 {
		t.Fatalf("books_completed = %d, want 1", prog.BooksCompleted)
	}
	// 3 validations × 10 XP + 100 XP completion bonus.
	if prog.TotalXP != 130 {
		t.Fatalf("total_xp = %d, want 130", prog.TotalXP)
	}

	// Cascade effects: first-validation badge and quest, companion born.
	var badges int64
	db.Model(&models.UserBadge{}).
		Where("external_user_id = ? AND badge_type_code = ?", userID, "FIRST_PAGE").
		Count(&badges)
	if badges != 1 {
		t.Fatalf("FIRST_PAGE badge count = %d, want 1", badges)
	}
	db.Model(&models.UserBadge{}).
		Where("external_user_id = ? AND badge_type_code = ?", userID, "FINISHER").
		Count(&badges)
	if badges != 1 {
		t.Fatalf("FINISHER badge count = %d, want 1 after completing the book", badges)
	}
	var uq models.UserQuest
	if err := db.Where("external_user_id = ? AND quest_code = ?", userID, "FIRST_STEPS").First(&uq).Error; err != nil {
		t.Fatal(err)
	}
	if uq.Progress != 3 || uq.CompletedAt != nil {
		t.Fatalf("FIRST_STEPS progress = %d (completed=%v), want 3 and not yet completed",
			uq.Progress, uq.CompletedAt)
	}
	var companion models.CompanionState
	if err := db.Where("external_user_id = ?", userID).First(&companion).Error; err != nil {
		t.Fatal(err)
	}
	if !companion.PendingBirth {
		t.Fatal("companion birth ritual should be pending")
	}
}

func TestRecordDuplicateIsBenign(t *testing.T) {
	db := newTestDB(t)
	svc := newTestValidationService(t, db, nil)
	book := seedBook(t, db, 5, 150, models.BookStatusPublished)
	const userID = "reader-1"

	first, err := svc.Record(userID, book.ID, 1, ValidationInput{Correct: true})
	if err != nil {
		t.Fatal(err)
	}

	replay, err := svc.Record(userID, book.ID, 1, ValidationInput{Correct: true})
	if err != nil {
		t.Fatalf("duplicate must be swallowed, got %v", err)
	}
	if !replay.Duplicate {
		t.Fatal("replay should be flagged as duplicate")
	}
	if replay.Validation.ID != first.Validation.ID {
		t.Fatal("replay must return the original validation row")
	}

	var rows int64
	db.Model(&models.ReadingValidation{}).Where("user_id = ?", userID).Count(&rows)
	if rows != 1 {
		t.Fatalf("validation rows = %d, want exactly 1", rows)
	}

	// No side effects ran twice.
	var prog models.UserProgression
	if err := db.Where("external_user_id = ?", userID).First(&prog).Error; err != nil {
		t.Fatal(err)
	}
	if prog.TotalValidations != 1 || prog.TotalXP != 10 {
		t.Fatalf("progression = validations:%d xp:%d, want 1/10 — duplicate must not re-award",
			prog.TotalValidations, prog.TotalXP)
	}
}

func TestRecordOutOfOrderSegment(t *testing.T) {
	db := newTestDB(t)
	svc := newTestValidationService(t, db, nil)
	book := seedBook(t, db, 5, 150, models.BookStatusPublished)

	if _, err := svc.Record("reader-1", book.ID, 2, ValidationInput{Correct: true}); !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("skipping segment 1 → err = %v, want ErrIntegrityViolation", err)
	}
	if _, err := svc.Record("reader-1", book.ID, 0, ValidationInput{Correct: true}); !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("segment 0 → err = %v, want ErrIntegrityViolation", err)
	}

	var rows int64
	db.Model(&models.ReadingValidation{}).Count(&rows)
	if rows != 0 {
		t.Fatalf("rejected validations must not leave rows, got %d", rows)
	}
}

func TestRecordRejectsUnpublishedBook(t *testing.T) {
	db := newTestDB(t)
	svc := newTestValidationService(t, db, nil)
	draft := seedBook(t, db, 5, 150, models.BookStatusDraft)

	if _, err := svc.Record("reader-1", draft.ID, 1, ValidationInput{Correct: true}); !errors.Is(err, ErrBookNotFound) {
		t.Fatalf("err = %v, want ErrBookNotFound for a draft book", err)
	}
	if _, err := svc.Record("", draft.ID, 1, ValidationInput{Correct: true}); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("err = %v, want ErrNotAuthenticated for empty user", err)
	}
}

func TestJokerRevealsAndEnforcesQuota(t *testing.T) {
	db := newTestDB(t)
	svc := newTestValidationService(t, db, nil)
	svc.JokersPerBook = 1
	book := seedBook(t, db, 5, 150, models.BookStatusPublished)
	const userID = "reader-1"

	question := models.ReadingQuestion{
		ID:       uuid.NewString(),
		BookID:   book.ID,
		Segment:  1,
		Question: "Quel astre éclaire la planète ?",
		Answer:   "soleil",
	}
	if err := db.Create(&question).Error; err != nil {
		t.Fatal(err)
	}

	reveal, err := svc.RevealAndValidate(userID, book.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if reveal.Answer != "soleil" {
		t.Fatalf("revealed answer = %q, want %q", reveal.Answer, "soleil")
	}
	if !reveal.Result.Validation.UsedJoker {
		t.Fatal("joker validation must be marked used_joker")
	}
	if reveal.Result.Progress.JokersUsed != 1 {
		t.Fatalf("jokers_used = %d, want 1", reveal.Result.Progress.JokersUsed)
	}

	// Quota of 1 is spent — the next joker is rejected and records nothing.
	if _, err := svc.RevealAndValidate(userID, book.ID, 2); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	var rows int64
	db.Model(&models.ReadingValidation{}).Where("user_id = ?", userID).Count(&rows)
	if rows != 1 {
		t.Fatalf("validation rows = %d, want 1 — rejected joker must not insert", rows)
	}

	// Replaying the joker on an already-validated segment is a duplicate, not
	// a second spend.
	replay, err := svc.RevealAndValidate(userID, book.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if !replay.Result.Duplicate {
		t.Fatal("joker replay should be a duplicate")
	}
	if replay.Result.Progress.JokersUsed != 1 {
		t.Fatalf("jokers_used = %d after replay, want still 1", replay.Result.Progress.JokersUsed)
	}
}

func TestAddToReadingListIdempotent(t *testing.T) {
	db := newTestDB(t)
	var invalidated int
	svc := newTestValidationService(t, db, &invalidated)
	book := seedBook(t, db, 5, 150, models.BookStatusPublished)

	first, err := svc.AddToReadingList("reader-1", book.ID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != models.StatusToRead {
		t.Fatalf("fresh reading status = %s, want to_read", first.Status)
	}

	second, err := svc.AddToReadingList("reader-1", book.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatal("re-adding must return the same progress row")
	}
	var rows int64
	db.Model(&models.ReadingProgress{}).Count(&rows)
	if rows != 1 {
		t.Fatalf("progress rows = %d, want 1", rows)
	}
	if invalidated != 2 {
		t.Fatalf("invalidate calls = %d, want 2 (cache cleared on every mutation)", invalidated)
	}
}

func TestRemoveFromReadingListKeepsValidations(t *testing.T) {
	db := newTestDB(t)
	svc := newTestValidationService(t, db, nil)
	book := seedBook(t, db, 5, 150, models.BookStatusPublished)
	const userID = "reader-1"

	if _, err := svc.Record(userID, book.ID, 1, ValidationInput{Correct: true}); err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoveFromReadingList(userID, book.ID); err != nil {
		t.Fatal(err)
	}

	var prog models.ReadingProgress
	err := db.Where("user_id = ? AND book_id = ?", userID, book.ID).First(&prog).Error
	if err == nil {
		t.Fatal("progress row should be soft-deleted")
	}
	var rows int64
	db.Model(&models.ReadingValidation{}).Where("user_id = ?", userID).Count(&rows)
	if rows != 1 {
		t.Fatalf("validations must survive list removal, got %d rows", rows)
	}
}

func TestReAddAfterRemovalRestoresReading(t *testing.T) {
	db := newTestDB(t)
	svc := newTestValidationService(t, db, nil)
	book := seedBook(t, db, 5, 150, models.BookStatusPublished)
	const userID = "reader-1"

	first, err := svc.AddToReadingList(userID, book.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Record(userID, book.ID, 1, ValidationInput{Correct: true}); err != nil {
		t.Fatal(err)
	}
	if err := svc.RemoveFromReadingList(userID, book.ID); err != nil {
		t.Fatal(err)
	}

	// Re-adding revives the removed row — the (user, book) pair is never
	// permanently blocked by its own history.
	again, err := svc.AddToReadingList(userID, book.ID)
	if err != nil {
		t.Fatalf("re-add after removal failed: %v", err)
	}
	if again.ID != first.ID {
		t.Fatal("re-add must restore the original progress row")
	}
	if again.DeletedAt.Valid {
		t.Fatal("restored row must not stay soft-deleted")
	}

	// Validation picks up where it left off.
	res, err := svc.Record(userID, book.ID, 2, ValidationInput{Correct: true})
	if err != nil {
		t.Fatalf("validation after re-add failed: %v", err)
	}
	if res.Duplicate {
		t.Fatal("segment 2 after re-add is a fresh validation, not a duplicate")
	}

	var total int64
	db.Unscoped().Model(&models.ReadingProgress{}).
		Where("user_id = ? AND book_id = ?", userID, book.ID).
		Count(&total)
	if total != 1 {
		t.Fatalf("progress rows including deleted = %d, want exactly 1", total)
	}
}
