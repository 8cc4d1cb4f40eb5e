package services

import (
	"testing"

	"vread-backend/models"
)

func TestComputeStatusFromValidations(t *testing.T) {
	tests := []struct {
		name             string
		validations      int
		expectedSegments int
		currentPage      int
		totalPages       int
		want             string
	}{
		{"no activity", 0, 5, 0, 150, models.StatusToRead},
		{"pages only, partway", 0, 5, 40, 150, models.StatusInProgress},
		{"pages only, finished", 0, 5, 150, 150, models.StatusCompleted},
		{"one validation", 1, 5, 0, 150, models.StatusInProgress},
		{"just below boundary", 4, 5, 120, 150, models.StatusInProgress},
		{"at boundary", 5, 5, 150, 150, models.StatusCompleted},
		{"count beyond segments still completed", 7, 5, 150, 150, models.StatusCompleted},
		{"zero segments falls back to one", 1, 0, 0, 0, models.StatusCompleted},
		{"validations win over pages", 2, 5, 150, 150, models.StatusInProgress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStatus(tt.validations, tt.expectedSegments, tt.currentPage, tt.totalPages)
			if got != tt.want {
				t.Fatalf("ComputeStatus(%d, %d, %d, %d) = %q, want %q",
					tt.validations, tt.expectedSegments, tt.currentPage, tt.totalPages, got, tt.want)
			}
		})
	}
}

// Status can only move forward across a sequence of in-order validations.
func TestComputeStatusMonotonicity(t *testing.T) {
	rank := map[string]int{
		models.StatusToRead:     0,
		models.StatusInProgress: 1,
		models.StatusCompleted:  2,
	}

	const segments = 5
	prev := ComputeStatus(0, segments, 0, 150)
	for count := 1; count <= segments; count++ {
		page := count * models.PagesPerSegment
		got := ComputeStatus(count, segments, page, 150)
		if rank[got] < rank[prev] {
			t.Fatalf("status went backward at validation %d: %s → %s", count, prev, got)
		}
		prev = got
	}
	if prev != models.StatusCompleted {
		t.Fatalf("final status = %s, want completed", prev)
	}
}
