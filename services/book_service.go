// services/book_service.go
package services

import (
	"errors"
	"path/filepath"
	"strconv"
	"time"

	"vread-backend/models"
	"vread-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookService struct {
	DB *gorm.DB
}

func NewBookService(db *gorm.DB) *BookService {
	return &BookService{DB: db}
}

// MinimalBook struct for lightweight listing
type MinimalBook struct {
	ID               string `json:"id"`
	Slug             string `json:"slug"`
	Title            string `json:"title"`
	Author           string `json:"author"`
	CoverURL         string `json:"cover_url"`
	ExpectedSegments int    `json:"expected_segments"`
}

// GetAllBooks lists published books (public catalog).
func (s *BookService) GetAllBooks(c *fiber.Ctx) error {
	q := s.DB.Where("status = ?", models.BookStatusPublished)
	if search := c.Query("q"); search != "" {
		like := "%" + search + "%"
		q = q.Where("title ILIKE ? OR author ILIKE ?", like, like)
	}

	var books []models.Book
	if err := q.Order("created_at DESC").Find(&books).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list books",
			"cause": err.Error(),
		})
	}

	minimal := make([]MinimalBook, 0, len(books))
	for _, b := range books {
		minimal = append(minimal, MinimalBook{
			ID:               b.ID,
			Slug:             b.Slug,
			Title:            b.Title,
			Author:           b.Author,
			CoverURL:         b.CoverURL,
			ExpectedSegments: b.EffectiveSegments(),
		})
	}
	return c.JSON(minimal)
}

// GetBookBySlug returns one published book with its segment count resolved.
func (s *BookService) GetBookBySlug(c *fiber.Ctx) error {
	var book models.Book
	if err := s.DB.Where("slug = ? AND status = ?", c.Params("slug"), models.BookStatusPublished).
		First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "book not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch book",
			"cause": err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"book":              book,
		"expected_segments": book.EffectiveSegments(),
	})
}

// CreateBook creates a draft (or scheduled) book. Slug is derived from the
// title; the cover goes to R2 when provided.
func (s *BookService) CreateBook(c *fiber.Ctx) error {
	title := c.FormValue("title")
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title is required"})
	}

	book := &models.Book{
		ID:          uuid.NewString(),
		Slug:        slug.Make(title),
		Title:       title,
		Author:      c.FormValue("author"),
		Description: c.FormValue("description"),
		Status:      models.BookStatusDraft,
	}
	if v, err := fiberFormInt(c, "total_pages"); err == nil {
		book.TotalPages = v
	}
	if v, err := fiberFormInt(c, "total_chapters"); err == nil {
		book.TotalChapters = v
	}
	if v, err := fiberFormInt(c, "expected_segments"); err == nil {
		book.ExpectedSegments = v
	}

	if publishAt := c.FormValue("publish_at"); publishAt != "" {
		t, err := time.Parse(time.RFC3339, publishAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid publish_at (RFC3339 expected)"})
		}
		book.Status = models.BookStatusScheduled
		book.PublishAt = &t
	} else if c.FormValue("status") == models.BookStatusPublished {
		book.Status = models.BookStatusPublished
	}

	// Cover upload → R2 (small, public asset)
	if coverFile, err := c.FormFile("cover"); err == nil && coverFile.Size > 0 {
		if err := utils.ValidateCoverUpload(coverFile); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		coverExt := filepath.Ext(coverFile.Filename)
		if coverExt == "" {
			coverExt = ".jpg"
		}
		coverKey := "covers/" + uuid.NewString() + coverExt
		coverURL, err := utils.UploadFileToR2(coverFile, coverKey)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).
				JSON(fiber.Map{"error": "failed to upload cover to R2"})
		}
		book.CoverURL = coverURL
	}

	if err := s.DB.Create(book).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create book",
			"cause": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// UpdateBook patches book metadata (admin edits on a published book are the
// only allowed mutation path).
func (s *BookService) UpdateBook(c *fiber.Ctx) error {
	var book models.Book
	if err := s.DB.Where("id = ?", c.Params("id")).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "book not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch book",
			"cause": err.Error(),
		})
	}

	var req struct {
		Title            *string `json:"title"`
		Author           *string `json:"author"`
		Description      *string `json:"description"`
		TotalPages       *int    `json:"total_pages"`
		TotalChapters    *int    `json:"total_chapters"`
		ExpectedSegments *int    `json:"expected_segments"`
		Status           *string `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	if req.Title != nil {
		book.Title = *req.Title
		book.Slug = slug.Make(*req.Title)
	}
	if req.Author != nil {
		book.Author = *req.Author
	}
	if req.Description != nil {
		book.Description = *req.Description
	}
	if req.TotalPages != nil {
		book.TotalPages = *req.TotalPages
	}
	if req.TotalChapters != nil {
		book.TotalChapters = *req.TotalChapters
	}
	if req.ExpectedSegments != nil {
		book.ExpectedSegments = *req.ExpectedSegments
	}
	if req.Status != nil {
		book.Status = *req.Status
	}

	if err := s.DB.Save(&book).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to update book",
			"cause": err.Error(),
		})
	}
	return c.JSON(book)
}

// DeleteBook soft-deletes a book.
func (s *BookService) DeleteBook(c *fiber.Ctx) error {
	if err := s.DB.Where("id = ?", c.Params("id")).Delete(&models.Book{}).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete book",
			"cause": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"message": "book deleted"})
}

// GenerateQuestions bulk-upserts the segment questions for a book. Upsert on
// (book_id, segment) so regeneration overwrites instead of duplicating.
func (s *BookService) GenerateQuestions(c *fiber.Ctx) error {
	bookID := c.Params("id")

	var book models.Book
	if err := s.DB.Where("id = ?", bookID).First(&book).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "book not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch book",
			"cause": err.Error(),
		})
	}

	var req struct {
		Questions []struct {
			Segment  int    `json:"segment"`
			Question string `json:"question"`
			Answer   string `json:"answer"`
			Hint     string `json:"hint"`
		} `json:"questions"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if len(req.Questions) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "questions are required"})
	}

	expected := book.EffectiveSegments()
	rows := make([]models.ReadingQuestion, 0, len(req.Questions))
	for _, q := range req.Questions {
		if q.Segment < 1 || q.Segment > expected {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "segment out of range",
				"cause": "segments run from 1 to expected_segments",
			})
		}
		rows = append(rows, models.ReadingQuestion{
			ID:       uuid.NewString(),
			BookID:   bookID,
			Segment:  q.Segment,
			Question: q.Question,
			Answer:   q.Answer,
			Hint:     q.Hint,
		})
	}

	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "book_id"}, {Name: "segment"}},
		DoUpdates: clause.AssignmentColumns([]string{"question", "answer", "hint", "updated_at"}),
	}).Create(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to upsert questions",
			"cause": err.Error(),
		})
	}

	return c.JSON(fiber.Map{"message": "questions generated", "count": len(rows)})
}

func fiberFormInt(c *fiber.Ctx, key string) (int, error) {
	v := c.FormValue(key)
	if v == "" {
		return 0, errors.New("empty")
	}
	return strconv.Atoi(v)
}
