package v1

import (
	"taskhub/internal/api/v1/handlers"
	"taskhub/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	// User & auth
	userRoutes := api.Group("/users")
	userRoutes.Post("/signup", handlers.Signup)
	userRoutes.Post("/login", handlers.Login)
	userRoutes.Post("/forgot-password", handlers.ForgotPassword)
	userRoutes.Post("/reset-password/:token", handlers.ResetPassword)
	userRoutes.Get("/logout", handlers.Logout)
	userRoutes.Get("/verify", middleware.UseToken, handlers.Verify)
	userRoutes.Get("/", middleware.UseToken, handlers.GetAllUsers)
	userRoutes.Put("/:id", middleware.UseToken, handlers.UpdateUser)

	// Task
	taskRoutes := api.Group("/tasks", middleware.UseToken)
	taskRoutes.Post("/", handlers.CreateTask)
	taskRoutes.Get("/", handlers.ListTasks)
	taskRoutes.Get("/:id", handlers.GetTask)
	taskRoutes.Put("/:id", handlers.UpdateTask)
	taskRoutes.Delete("/:id", handlers.DeleteTask)

	// Group
	groupRoutes := api.Group("/groups", middleware.UseToken)
	groupRoutes.Post("/", handlers.CreateGroup)
	groupRoutes.Get("/", handlers.ListGroups)
	groupRoutes.Get("/:id", handlers.GetGroup)
	groupRoutes.Put("/:id", handlers.UpdateGroup)
	groupRoutes.Delete("/:id", handlers.DeleteGroup)
}
