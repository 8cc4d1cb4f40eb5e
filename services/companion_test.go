package services

import (
	"testing"
	"time"

	"vread-backend/models"
)

func TestCompanionBirthThenSameDayNoop(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, time.UTC)
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

	state, err := svc.ApplyValidation("reader-1", at)
	if err != nil {
		t.Fatal(err)
	}
	if !state.PendingBirth {
		t.Fatal("first validation ever must raise the birth ritual")
	}
	if state.Stage != models.CompanionStageEgg || state.TotalReadingDays != 1 {
		t.Fatalf("got stage=%s days=%d, want egg/1", state.Stage, state.TotalReadingDays)
	}

	// A second validation on the same day changes nothing.
	state, err = svc.ApplyValidation("reader-1", at.Add(6*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if state.TotalReadingDays != 1 {
		t.Fatalf("same-day validation bumped reading days to %d", state.TotalReadingDays)
	}
}

func TestCompanionEvolutionAndWeekRitual(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, time.UTC)
	base := time.Date(2025, 5, 1, 20, 0, 0, 0, time.UTC)

	var state *models.CompanionState
	var err error
	for i := 0; i < 7; i++ {
		state, err = svc.ApplyValidation("reader-1", base.AddDate(0, 0, i))
		if err != nil {
			t.Fatal(err)
		}
	}

	if state.TotalReadingDays != 7 {
		t.Fatalf("total reading days = %d, want 7", state.TotalReadingDays)
	}
	if state.Stage != models.CompanionStageJuvenile {
		t.Fatalf("stage = %s, want juvenile at 7 reading days", state.Stage)
	}
	if !state.PendingEvolution {
		t.Fatal("stage change must raise the evolution ritual")
	}
	if !state.PendingWeek {
		t.Fatal("7th reading day must raise the week ritual")
	}

	// Birth was never acknowledged, so it still wins the priority order.
	ritual, ok := state.NextRitual()
	if !ok || ritual != models.RitualBirth {
		t.Fatalf("next ritual = %q, want birth (highest priority)", ritual)
	}
}

func TestCompanionReturnAfterGap(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, time.UTC)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	if _, err := svc.ApplyValidation("reader-1", base); err != nil {
		t.Fatal(err)
	}
	// Ten days of silence — beyond the 7-day return threshold.
	state, err := svc.ApplyValidation("reader-1", base.AddDate(0, 0, 10))
	if err != nil {
		t.Fatal(err)
	}
	if !state.PendingReturn {
		t.Fatal("a gap longer than a week must raise the return ritual")
	}
	if state.TotalReadingDays != 2 {
		t.Fatalf("total reading days = %d, want 2 — gaps do not reset the count", state.TotalReadingDays)
	}
}

func TestMarkRitualSeenConsumesOneFlag(t *testing.T) {
	db := newTestDB(t)
	svc := NewCompanionService(db, time.UTC)
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		if _, err := svc.ApplyValidation("reader-1", base.AddDate(0, 0, i)); err != nil {
			t.Fatal(err)
		}
	}
	// Day 3 crosses egg → hatchling: birth and evolution both pending.

	if err := svc.MarkRitualSeen("reader-1", models.RitualBirth); err != nil {
		t.Fatal(err)
	}
	state, err := svc.GetState("reader-1")
	if err != nil {
		t.Fatal(err)
	}
	if state.PendingBirth {
		t.Fatal("birth flag should be consumed")
	}
	ritual, ok := state.NextRitual()
	if !ok || ritual != models.RitualEvolution {
		t.Fatalf("next ritual = %q, want evolution once birth is acknowledged", ritual)
	}
	if state.LastRitualSeen != models.RitualBirth {
		t.Fatalf("last ritual seen = %q, want birth", state.LastRitualSeen)
	}

	// Double-ack is harmless, unknown rituals are rejected.
	if err := svc.MarkRitualSeen("reader-1", models.RitualBirth); err != nil {
		t.Fatalf("re-acknowledging is a no-op, got %v", err)
	}
	if err := svc.MarkRitualSeen("reader-1", "fireworks"); err == nil {
		t.Fatal("unknown ritual must be rejected")
	}
}
