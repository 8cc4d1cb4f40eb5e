// handlers/book_routes.go
package handlers

import (
	"vread-backend/middleware"
	"vread-backend/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBookRoutes(app *fiber.App, bookService *services.BookService) {
	// 🔓 Public catalog — no user context, but still behind Gateway auth
	app.Get("/books", bookService.GetAllBooks)
	app.Get("/books/:slug", bookService.GetBookBySlug)

	// 🔐 Admin routes — user context + admin role
	admin := app.Group("/admin", middleware.UserContextMiddleware(), middleware.RequireAdmin())

	admin.Post("/books", bookService.CreateBook)
	admin.Put("/books/:id", bookService.UpdateBook)
	admin.Patch("/books/:id", bookService.UpdateBook)
	admin.Delete("/books/:id", bookService.DeleteBook)
	admin.Post("/books/:id/questions", bookService.GenerateQuestions)
}
