package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"vread-backend/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent map[string]string // userID → kind
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, userID, kind, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sent == nil {
		d.sent = make(map[string]string)
	}
	d.sent[userID] = kind
	return nil
}

func (d *recordingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func seedValidation(t *testing.T, db *gorm.DB, userID string, segment int, at time.Time) {
	t.Helper()
	v := models.ReadingValidation{
		ID:          uuid.NewString(),
		UserID:      userID,
		BookID:      "book-1",
		Segment:     segment,
		ProgressID:  "prog-" + userID,
		Correct:     true,
		ValidatedAt: at,
	}
	if err := db.Create(&v).Error; err != nil {
		t.Fatal(err)
	}
}

func TestStreakNudgeRunDispatchesAndDedupes(t *testing.T) {
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	dispatcher := &recordingDispatcher{}
	svc := NewStreakNudgeService(db, rdb, dispatcher, time.UTC)

	now := time.Date(2025, 5, 10, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// at-risk: validated yesterday, nothing today.
	seedValidation(t, db, "at-risk", 1, now.AddDate(0, 0, -1))

	// milestone: a 7-day streak ending today.
	for i := 0; i < 7; i++ {
		seedValidation(t, db, "milestone", i+1, now.AddDate(0, 0, -i))
	}

	// quiet today but no milestone: validated today with a 2-day streak.
	seedValidation(t, db, "ordinary", 1, now.AddDate(0, 0, -1))
	seedValidation(t, db, "ordinary", 2, now)

	// long gone: last validation five days ago — nothing left to save.
	seedValidation(t, db, "gone", 1, now.AddDate(0, 0, -5))

	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	dispatcher.mu.Lock()
	atRisk, milestone := dispatcher.sent["at-risk"], dispatcher.sent["milestone"]
	_, ordinaryNudged := dispatcher.sent["ordinary"]
	_, goneNudged := dispatcher.sent["gone"]
	dispatcher.mu.Unlock()

	if atRisk != NudgeStreakAtRisk {
		t.Fatalf("at-risk user got %q, want %q", atRisk, NudgeStreakAtRisk)
	}
	if milestone != NudgeStreakKept {
		t.Fatalf("milestone user got %q, want %q", milestone, NudgeStreakKept)
	}
	if ordinaryNudged {
		t.Fatal("a non-milestone same-day user must not be nudged")
	}
	if goneNudged {
		t.Fatal("a user whose streak died days ago must be left alone")
	}
	if dispatcher.count() != 2 {
		t.Fatalf("dispatched = %d, want 2", dispatcher.count())
	}

	// A second run the same day is fully deduped by redis.
	dispatcher.mu.Lock()
	dispatcher.sent = nil
	dispatcher.mu.Unlock()

	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if dispatcher.count() != 0 {
		t.Fatalf("second run dispatched %d nudges, want 0", dispatcher.count())
	}

	// The next day the at-risk slot opens again.
	now = now.AddDate(0, 0, 1)
	if err := svc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	dispatcher.mu.Lock()
	kind, nudged := dispatcher.sent["ordinary"]
	dispatcher.mu.Unlock()
	if !nudged || kind != NudgeStreakAtRisk {
		t.Fatalf("ordinary user next day got %q (nudged=%v), want at-risk", kind, nudged)
	}
}
