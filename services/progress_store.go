// services/progress_store.go
package services

import (
	"context"
	"sync"
	"time"

	"vread-backend/models"

	"gorm.io/gorm"
)

// EnrichedProgress is a reading row joined with its book metadata and full
// validation list — one logical read, not N+1 queries.
type EnrichedProgress struct {
	models.ReadingProgress
	ValidationCount  int `json:"validation_count"`
	ExpectedSegments int `json:"expected_segments"`
}

// ProgressFetcher loads the enriched readings of one user from the source of
// truth.
type ProgressFetcher func(ctx context.Context, userID string) ([]EnrichedProgress, error)

type progressEntry struct {
	data      []EnrichedProgress
	fetchedAt time.Time
}

// ProgressStore is a per-process, TTL-bounded cache of enriched reading
// records, keyed by user id. Two instances run with different freshness
// requirements (30s next to the validation flow, 10m for the reading list) —
// they are deliberately separate stores, not one cache with two TTLs.
type ProgressStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	fetch   ProgressFetcher
	entries map[string]progressEntry

	now func() time.Time // overridable in tests
}

func NewProgressStore(ttl time.Duration, fetch ProgressFetcher) *ProgressStore {
	return &ProgressStore{
		ttl:     ttl,
		fetch:   fetch,
		entries: make(map[string]progressEntry),
		now:     time.Now,
	}
}

// Get returns the user's enriched readings, serving from cache while the
// entry is fresh. force bypasses the TTL, refetches and overwrites the entry.
// On fetch failure nothing is cached and the error is returned — it never
// propagates as a panic past this boundary.
func (s *ProgressStore) Get(ctx context.Context, userID string, force bool) ([]EnrichedProgress, error) {
	if userID == "" {
		return nil, ErrNotAuthenticated
	}

	s.mu.Lock()
	if e, ok := s.entries[userID]; ok && !force && s.now().Sub(e.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return e.data, nil
	}
	s.mu.Unlock()

	data, err := s.fetch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []EnrichedProgress{}
	}

	s.mu.Lock()
	s.entries[userID] = progressEntry{data: data, fetchedAt: s.now()}
	s.mu.Unlock()
	return data, nil
}

// Clear drops one user's entry. Must be called after any mutation that
// changes that user's validation/progress data.
func (s *ProgressStore) Clear(userID string) {
	s.mu.Lock()
	delete(s.entries, userID)
	s.mu.Unlock()
}

// ClearAll wipes the cache — the logout hook, so no trace of a previous
// user's readings can leak into a new session.
func (s *ProgressStore) ClearAll() {
	s.mu.Lock()
	s.entries = make(map[string]progressEntry)
	s.mu.Unlock()
}

// NewProgressFetcher builds the canonical DB fetcher: progress rows with
// preloaded book and validations, status reconciled through the single
// ComputeStatus path.
func NewProgressFetcher(db *gorm.DB, reconciler *Reconciler) ProgressFetcher {
	return func(ctx context.Context, userID string) ([]EnrichedProgress, error) {
		var rows []models.ReadingProgress
		if err := db.WithContext(ctx).
			Preload("Book").
			Preload("Validations", func(tx *gorm.DB) *gorm.DB {
				return tx.Order("segment ASC")
			}).
			Where("user_id = ?", userID).
			Order("updated_at DESC").
			Find(&rows).Error; err != nil {
			return nil, err
		}

		enriched := make([]EnrichedProgress, 0, len(rows))
		for i := range rows {
			prog := rows[i]
			count := len(prog.Validations)
			reconciler.Reconcile(&prog, &prog.Book, count)
			enriched = append(enriched, EnrichedProgress{
				ReadingProgress:  prog,
				ValidationCount:  count,
				ExpectedSegments: prog.Book.EffectiveSegments(),
			})
		}
		return enriched, nil
	}
}
