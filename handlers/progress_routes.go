// handlers/progress_routes.go
package handlers

import (
	"errors"
	"log"

	"vread-backend/middleware"
	"vread-backend/models"
	"vread-backend/services"
	"vread-backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProgressDeps bundles everything the reading/progress routes touch.
type ProgressDeps struct {
	DB          *gorm.DB
	Validations *services.ValidationService
	ListStore   *services.ProgressStore // reading-list view, 10m TTL
	BookStore   *services.ProgressStore // validation-adjacent reads, 30s TTL
	Refresh     *services.RefreshManager
	Progression *services.ProgressionService
	Badges      *services.BadgeService
	Quests      *services.QuestService
	Companion   *services.CompanionService
}

func SetupProgressRoutes(app *fiber.App, deps ProgressDeps) {
	// 🔐 Secured routes — require user context (userID, roles)
	secured := app.Group("/user", middleware.UserContextMiddleware())

	secured.Get("/readings", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		force := c.QueryBool("refresh", false)

		readings, err := deps.ListStore.Get(c.Context(), userID, force)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load readings",
				"cause": err.Error(),
			})
		}
		return c.JSON(readings)
	})

	secured.Get("/readings/:book_id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bookID := c.Params("book_id")
		force := c.QueryBool("refresh", false)

		readings, err := deps.BookStore.Get(c.Context(), userID, force)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load reading",
				"cause": err.Error(),
			})
		}
		for _, r := range readings {
			if r.BookID == bookID {
				return c.JSON(r)
			}
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "reading not found"})
	})

	secured.Post("/readings", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			BookID string `json:"book_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.BookID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "book_id is required"})
		}

		prog, err := deps.Validations.AddToReadingList(userID, req.BookID)
		if err != nil {
			return validationError(c, userID, req.BookID, 0, err)
		}
		return c.Status(fiber.StatusCreated).JSON(prog)
	})

	secured.Delete("/readings/:book_id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := deps.Validations.RemoveFromReadingList(userID, c.Params("book_id")); err != nil {
			return validationError(c, userID, c.Params("book_id"), 0, err)
		}
		return c.JSON(fiber.Map{"message": "reading removed"})
	})

	// Answer a segment question. A wrong answer is NOT recorded — the user
	// retries until the answer matches (or burns a joker).
	secured.Post("/readings/:book_id/validations", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bookID := c.Params("book_id")

		var req struct {
			Segment int    `json:"segment"`
			Answer  string `json:"answer"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.Segment < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "segment must be ≥ 1"})
		}

		input := services.ValidationInput{Answer: req.Answer, Correct: true}
		var question models.ReadingQuestion
		err := deps.DB.Where("book_id = ? AND segment = ?", bookID, req.Segment).First(&question).Error
		switch {
		case err == nil:
			qid := question.ID
			input.QuestionID = &qid
			if !utils.AnswersMatch(req.Answer, question.Answer) {
				return c.JSON(fiber.Map{"correct": false, "recorded": false})
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// No question generated for this segment — validate on trust.
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load question",
				"cause": err.Error(),
			})
		}

		result, err := deps.Validations.Record(userID, bookID, req.Segment, input)
		if err != nil {
			return validationError(c, userID, bookID, req.Segment, err)
		}
		return c.JSON(fiber.Map{
			"correct":  true,
			"recorded": !result.Duplicate,
			"result":   result,
		})
	})

	// Joker: reveal the answer AND validate in one atomic call. The split
	// reveal-then-validate flow is deliberately not exposed.
	secured.Post("/readings/:book_id/joker", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		bookID := c.Params("book_id")

		var req struct {
			Segment int `json:"segment"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		reveal, err := deps.Validations.RevealAndValidate(userID, bookID, req.Segment)
		if err != nil {
			return validationError(c, userID, bookID, req.Segment, err)
		}
		return c.JSON(reveal)
	})

	secured.Get("/streak", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		streak, err := deps.Validations.UserStreak(userID)
		if err != nil {
			return validationError(c, userID, "", 0, err)
		}
		return c.JSON(streak)
	})

	secured.Get("/progression", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		prog, err := deps.Progression.EnsureProgressionRecord(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progression",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"id":                prog.ID,
			"xp":                prog.TotalXP,
			"level":             prog.Level,
			"total_validations": prog.TotalValidations,
			"books_completed":   prog.BooksCompleted,
			"best_streak_days":  prog.BestStreakDays,
			"last_level_up_at":  prog.LastLevelUpAt,
		})
	})

	secured.Get("/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		badges, err := deps.Badges.ListUserBadges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}
		return c.JSON(badges)
	})

	secured.Get("/quests", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		quests, err := deps.Quests.ListUserQuests(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get quests",
				"cause": err.Error(),
			})
		}
		return c.JSON(quests)
	})

	secured.Get("/companion", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		state, err := deps.Companion.GetState(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(fiber.Map{"stage": models.CompanionStageEgg, "total_reading_days": 0})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get companion",
				"cause": err.Error(),
			})
		}
		ritual, pending := state.NextRitual()
		resp := fiber.Map{"companion": state}
		if pending {
			resp["ritual"] = ritual
		}
		return c.JSON(resp)
	})

	secured.Post("/companion/ritual-seen", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		var req struct {
			Ritual string `json:"ritual"`
		}
		if err := c.BodyParser(&req); err != nil || req.Ritual == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ritual is required"})
		}
		if err := deps.Companion.MarkRitualSeen(userID, req.Ritual); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to mark ritual seen",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "ritual acknowledged"})
	})

	// Logout hook: wipe this user's cached readings and tear down their
	// refresh controller so nothing leaks into the next session.
	secured.Delete("/progress-cache", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		deps.ListStore.Clear(userID)
		deps.BookStore.Clear(userID)
		deps.Refresh.Drop(userID)
		log.Printf("[CACHE] cleared progress caches for user %s", userID)
		return c.JSON(fiber.Map{"message": "cache cleared"})
	})
}

// validationError maps service errors onto the HTTP taxonomy. Duplicates are
// benign and never reach here; everything logged carries user/book/segment.
func validationError(c *fiber.Ctx, userID, bookID string, segment int, err error) error {
	switch {
	case errors.Is(err, services.ErrNotAuthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "not authenticated"})
	case errors.Is(err, services.ErrBookNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "book not found"})
	case errors.Is(err, services.ErrQuotaExceeded):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no jokers left for this book"})
	case errors.Is(err, services.ErrIntegrityViolation):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "segment out of order — validate segments in sequence",
		})
	}
	log.Printf("❌ [PROGRESS] unexpected error (user=%s book=%s segment=%d): %v", userID, bookID, segment, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
		"cause": err.Error(),
	})
}
