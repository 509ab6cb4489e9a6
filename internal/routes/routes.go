package routes

import (
	"github.com/gin-gonic/gin"

	"eventcrm/internal/authz"
	"eventcrm/internal/handlers"
	"eventcrm/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	jwtSecret []byte,
	eventHandler *handlers.EventHandler,
	taskHandler *handlers.TaskHandler,
	settingsHandler *handlers.SettingsHandler,
	reportHandler *handlers.ReportHandler,
) *gin.Engine {

	// ---- protected
	api := r.Group("/")
	api.Use(middleware.AuthMiddleware(jwtSecret))
	api.Use(middleware.ReadOnlyGuard())

	// EVENTS
	events := api.Group("/events")
	{
		events.POST("", middleware.RequireRoles("create events", authz.EventEditors...), eventHandler.Create)
		events.GET("/:id", eventHandler.GetByID)
		events.PATCH("/:id", middleware.RequireRoles("edit events", authz.EventEditors...), eventHandler.Update)
		events.GET("/:id/reminders", eventHandler.ListReminders)
		events.GET("/:id/progress", reportHandler.Progress)
		events.GET("/:id/summary.pdf", reportHandler.SummaryPDF)
	}

	// REMINDERS
	api.DELETE("/reminders/:id", middleware.RequireRoles("delete reminders", authz.EventEditors...), eventHandler.DeleteReminder)

	// ASSIGNMENTS
	api.GET("/assignments/:id/tasks", taskHandler.ListByAssignment)

	// TASKS
	tasks := api.Group("/tasks")
	{
		tasks.POST("", taskHandler.Create)
		tasks.GET("", taskHandler.GetAll)
		tasks.GET("/:id", taskHandler.GetByID)
		tasks.PATCH("/:id", taskHandler.Update)
		tasks.DELETE("/:id", taskHandler.Delete)
		tasks.GET("/:id/can-delete", taskHandler.CanDelete)
	}

	// SETTINGS
	settings := api.Group("/settings")
	{
		settings.GET("/notifications", settingsHandler.GetNotifications)
		settings.PUT("/notifications", middleware.RequireRoles("change notification settings", authz.SettingsEditors...), settingsHandler.PutNotifications)
	}

	return r
}
