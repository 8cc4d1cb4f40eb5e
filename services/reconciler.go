// services/reconciler.go
package services

import (
	"log"

	"vread-backend/models"

	"gorm.io/gorm"
)

// ComputeStatus derives the canonical reading status. This is the single
// source of truth — the list fetch, the single-book fetch and the validation
// recorder all go through it, so the stored status can only ever drift, not
// diverge by call site.
//
// Validations win over page position: once at least one segment is
// validated, pages are ignored. The validation count is capped against
// expectedSegments for the comparison only — storage is never capped.
func ComputeStatus(validationCount, expectedSegments, currentPage, totalPages int) string {
	if expectedSegments < 1 {
		expectedSegments = 1
	}
	if validationCount > 0 {
		if validationCount >= expectedSegments {
			return models.StatusCompleted
		}
		return models.StatusInProgress
	}
	if totalPages > 0 && currentPage >= totalPages {
		return models.StatusCompleted
	}
	if currentPage > 0 {
		return models.StatusInProgress
	}
	return models.StatusToRead
}

type Reconciler struct {
	DB *gorm.DB
}

func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{DB: db}
}

// Reconcile computes the canonical status and, when the persisted value has
// drifted, issues a detached correction write. The write never blocks the
// read path and its failure is logged, not surfaced.
func (r *Reconciler) Reconcile(prog *models.ReadingProgress, book *models.Book, validationCount int) string {
	status := ComputeStatus(validationCount, book.EffectiveSegments(), prog.CurrentPage, prog.TotalPages)
	if status == prog.Status {
		return status
	}

	progID := prog.ID
	stale := prog.Status
	go func() {
		if err := r.DB.Model(&models.ReadingProgress{}).
			Where("id = ?", progID).
			Update("status", status).Error; err != nil {
			log.Printf("⚠️ [RECONCILE] status correction failed for progress %s (%s → %s): %v",
				progID, stale, status, err)
		} else {
			log.Printf("[RECONCILE] corrected stale status for progress %s: %s → %s", progID, stale, status)
		}
	}()

	prog.Status = status
	return status
}
