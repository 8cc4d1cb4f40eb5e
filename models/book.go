// models/book.go
package models

import (
	"math"
	"time"

	"gorm.io/gorm"
)

const (
	BookStatusDraft     = "draft"
	BookStatusScheduled = "scheduled"
	BookStatusPublished = "published"
)

// PagesPerSegment is the size of one validation segment (~30 pages).
const PagesPerSegment = 30

type Book struct {
	ID          string `json:"id" gorm:"primaryKey"`
	Slug        string `json:"slug" gorm:"uniqueIndex;not null"`
	Title       string `json:"title" gorm:"not null"`
	Author      string `json:"author"`
	Description string `json:"description"`

	// 🖼️ Media
	CoverURL string `json:"cover_url"` // R2/CDN URL

	TotalPages       int `json:"total_pages"`
	TotalChapters    int `json:"total_chapters"`
	ExpectedSegments int `json:"expected_segments"` // authoritative validation ladder length

	// 🎛️ Publishing state
	Status    string     `json:"status" gorm:"default:'draft'"` // draft | scheduled | published
	PublishAt *time.Time `json:"publish_at"`                    // only used if scheduled

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// EffectiveSegments returns the segment count used for status comparisons.
// Fallback chain: expected_segments → ceil(total_pages/30) → total_chapters → 1,
// so a book with missing metadata can never break the completion math.
func (b *Book) EffectiveSegments() int {
	if b.ExpectedSegments > 0 {
		return b.ExpectedSegments
	}
	if b.TotalPages > 0 {
		return int(math.Ceil(float64(b.TotalPages) / float64(PagesPerSegment)))
	}
	if b.TotalChapters > 0 {
		return b.TotalChapters
	}
	return 1
}

// ReadingQuestion is the one-word question that gates a segment validation.
type ReadingQuestion struct {
	ID       string `json:"id" gorm:"primaryKey"`
	BookID   string `json:"book_id" gorm:"uniqueIndex:ux_question_book_segment;not null"`
	Segment  int    `json:"segment" gorm:"uniqueIndex:ux_question_book_segment;not null"`
	Question string `json:"question" gorm:"not null"`
	Answer   string `json:"answer" gorm:"not null"` // one word, compared accent-insensitively
	Hint     string `json:"hint"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
