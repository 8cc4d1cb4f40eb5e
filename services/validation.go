// services/validation.go
package services

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"vread-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultJokersPerBook: reveal hints available per (user, book).
const DefaultJokersPerBook = 3

// ValidationInput carries the answer context for one segment validation.
type ValidationInput struct {
	QuestionID *string
	Answer     string
	Correct    bool
	UsedJoker  bool
}

// ValidationResult is the outcome of a Record call. Duplicate marks a benign
// replay: Validation then holds the original row and no side effect ran.
type ValidationResult struct {
	Validation models.ReadingValidation `json:"validation"`
	Progress   models.ReadingProgress   `json:"progress"`
	Duplicate  bool                     `json:"duplicate"`
}

// RevealResult is the outcome of the atomic joker flow.
type RevealResult struct {
	Answer string           `json:"answer"`
	Result ValidationResult `json:"result"`
}

type ValidationService struct {
	DB          *gorm.DB
	Progression *ProgressionService
	Quests      *QuestService
	Companion   *CompanionService

	Loc           *time.Location
	GraceDays     int
	JokersPerBook int

	invalidate func(userID string) // clears caches + schedules the debounced warm-up
	now        func() time.Time
}

func NewValidationService(db *gorm.DB, progression *ProgressionService, quests *QuestService, companion *CompanionService, invalidate func(userID string)) *ValidationService {
	if invalidate == nil {
		invalidate = func(string) {}
	}
	return &ValidationService{
		DB:            db,
		Progression:   progression,
		Quests:        quests,
		Companion:     companion,
		Loc:           StreakLocation(),
		GraceDays:     StreakGraceDays(),
		JokersPerBook: jokersPerBook(),
		invalidate:    invalidate,
		now:           time.Now,
	}
}

func jokersPerBook() int {
	v := os.Getenv("JOKERS_PER_BOOK")
	if v == "" {
		return DefaultJokersPerBook
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("⚠️ [VALIDATION] invalid JOKERS_PER_BOOK %q, using default %d", v, DefaultJokersPerBook)
		return DefaultJokersPerBook
	}
	return n
}

// Record appends one segment validation. The segment must be the next
// unvalidated one: replays of already-validated segments come back as a
// benign duplicate carrying the original row, skipping ahead is an integrity
// violation. The unique index on (user, book, segment) backstops the
// pre-checks, so even a racing double-submit yields exactly one row.
func (s *ValidationService) Record(userID, bookID string, segment int, input ValidationInput) (*ValidationResult, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	if segment < 1 {
		return nil, ErrIntegrityViolation
	}

	var book models.Book
	if err := s.DB.Where("id = ? AND status = ?", bookID, models.BookStatusPublished).
		First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	res := &ValidationResult{}
	var bookCompleted bool
	var streak Streak

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		prog, err := s.ensureProgress(tx, userID, &book)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.ReadingValidation{}).
			Where("user_id = ? AND book_id = ?", userID, bookID).
			Count(&count).Error; err != nil {
			return err
		}

		switch {
		case segment <= int(count):
			var existing models.ReadingValidation
			if err := tx.Where("user_id = ? AND book_id = ? AND segment = ?", userID, bookID, segment).
				First(&existing).Error; err != nil {
				return err
			}
			res.Validation = existing
			res.Progress = *prog
			res.Duplicate = true
			return nil
		case segment > int(count)+1:
			return ErrIntegrityViolation
		}

		if input.UsedJoker && prog.JokersUsed >= s.JokersPerBook {
			return ErrQuotaExceeded
		}

		validation := models.ReadingValidation{
			ID:         uuid.NewString(),
			UserID:     userID,
			BookID:     bookID,
			Segment:    segment,
			ProgressID: prog.ID,
			QuestionID: input.QuestionID,
			Answer:     input.Answer,
			Correct:    input.Correct,
			UsedJoker:  input.UsedJoker,
		}
		created := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}, {Name: "segment"}},
			DoNothing: true,
		}).Create(&validation)
		if created.Error != nil {
			return created.Error
		}
		if created.RowsAffected == 0 {
			// Lost a race against a concurrent submit of the same segment.
			var existing models.ReadingValidation
			if err := tx.Where("user_id = ? AND book_id = ? AND segment = ?", userID, bookID, segment).
				First(&existing).Error; err != nil {
				return err
			}
			res.Validation = existing
			res.Progress = *prog
			res.Duplicate = true
			return nil
		}

		// Streak from the full history, not an increment.
		var times []time.Time
		if err := tx.Model(&models.ReadingValidation{}).
			Where("user_id = ? AND book_id = ?", userID, bookID).
			Order("validated_at ASC").
			Pluck("validated_at", &times).Error; err != nil {
			return err
		}
		streak = ComputeStreak(times, s.now(), s.Loc, s.GraceDays)
		prog.StreakCurrent = streak.Current
		if streak.Best > prog.StreakBest {
			prog.StreakBest = streak.Best
		}

		// current_page only moves forward.
		page := segment * models.PagesPerSegment
		if prog.TotalPages > 0 && page > prog.TotalPages {
			page = prog.TotalPages
		}
		if page > prog.CurrentPage {
			prog.CurrentPage = page
		}
		if prog.StartedAt == nil {
			now := s.now()
			prog.StartedAt = &now
		}
		if input.UsedJoker {
			prog.JokersUsed++
		}

		prevStatus := prog.Status
		prog.Status = ComputeStatus(int(count)+1, book.EffectiveSegments(), prog.CurrentPage, prog.TotalPages)
		bookCompleted = prog.Status == models.StatusCompleted && prevStatus != models.StatusCompleted

		if err := tx.Save(prog).Error; err != nil {
			return err
		}

		res.Validation = validation
		res.Progress = *prog
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Duplicate {
		log.Printf("[VALIDATION] duplicate segment replay: user=%s book=%s segment=%d", userID, bookID, segment)
		return res, nil
	}

	s.afterValidation(userID, bookID, bookCompleted, streak, input.UsedJoker)
	return res, nil
}

// RevealAndValidate is the joker flow: reveal the answer AND record the
// validation in one operation. There is deliberately no separate "reveal"
// endpoint — revealing without recording once caused double validation
// calls, so the two can no longer be split.
func (s *ValidationService) RevealAndValidate(userID, bookID string, segment int) (*RevealResult, error) {
	var question models.ReadingQuestion
	err := s.DB.Where("book_id = ? AND segment = ?", bookID, segment).First(&question).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	input := ValidationInput{Correct: true, UsedJoker: true}
	if question.ID != "" {
		qid := question.ID
		input.QuestionID = &qid
		input.Answer = question.Answer
	}

	res, err := s.Record(userID, bookID, segment, input)
	if err != nil {
		return nil, err
	}
	return &RevealResult{Answer: question.Answer, Result: *res}, nil
}

// AddToReadingList creates the (user, book) progress row if missing —
// idempotent, so double-taps on "add" are harmless.
func (s *ValidationService) AddToReadingList(userID, bookID string) (*models.ReadingProgress, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}
	var book models.Book
	if err := s.DB.Where("id = ? AND status = ?", bookID, models.BookStatusPublished).
		First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	var prog *models.ReadingProgress
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		prog, err = s.ensureProgress(tx, userID, &book)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(userID)
	return prog, nil
}

// RemoveFromReadingList soft-deletes the progress row. Validations stay —
// the row is never hard-deleted while referenced.
func (s *ValidationService) RemoveFromReadingList(userID, bookID string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	err := s.DB.Where("user_id = ? AND book_id = ?", userID, bookID).
		Delete(&models.ReadingProgress{}).Error
	if err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// UserStreak recomputes the user's global streak across all books.
func (s *ValidationService) UserStreak(userID string) (Streak, error) {
	if userID == "" {
		return Streak{}, ErrNotAuthenticated
	}
	var times []time.Time
	if err := s.DB.Model(&models.ReadingValidation{}).
		Where("user_id = ?", userID).
		Pluck("validated_at", &times).Error; err != nil {
		return Streak{}, err
	}
	return ComputeStreak(times, s.now(), s.Loc, s.GraceDays), nil
}

func (s *ValidationService) ensureProgress(tx *gorm.DB, userID string, book *models.Book) (*models.ReadingProgress, error) {
	// Unscoped: a removed reading occupies the (user, book) unique index, so
	// re-adding must restore that row instead of inserting a second one.
	var prog models.ReadingProgress
	err := tx.Unscoped().Where("user_id = ? AND book_id = ?", userID, book.ID).First(&prog).Error
	if err == gorm.ErrRecordNotFound {
		prog = models.ReadingProgress{
			ID:         uuid.NewString(),
			UserID:     userID,
			BookID:     book.ID,
			TotalPages: book.TotalPages,
			Status:     models.StatusToRead,
		}
		if err := tx.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	if prog.DeletedAt.Valid {
		if err := tx.Unscoped().Model(&prog).Update("deleted_at", nil).Error; err != nil {
			return nil, err
		}
		prog.DeletedAt = gorm.DeletedAt{}
	}
	return &prog, nil
}

// afterValidation runs the cascading mechanics once the validation row is
// committed. Failures here must not undo an accepted validation: they are
// logged with enough context to replay, never returned.
func (s *ValidationService) afterValidation(userID, bookID string, bookCompleted bool, streak Streak, usedJoker bool) {
	if err := s.Progression.RecordValidationActivity(userID, bookID, bookCompleted, streak, usedJoker); err != nil {
		log.Printf("⚠️ [VALIDATION] progression update failed (user=%s book=%s): %v", userID, bookID, err)
	}
	if err := s.Quests.EvaluateQuests(userID); err != nil {
		log.Printf("⚠️ [VALIDATION] quest evaluation failed (user=%s book=%s): %v", userID, bookID, err)
	}
	if _, err := s.Companion.ApplyValidation(userID, s.now()); err != nil {
		log.Printf("⚠️ [VALIDATION] companion update failed (user=%s book=%s): %v", userID, bookID, err)
	}
	s.invalidate(userID)
}
