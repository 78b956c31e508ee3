package routes

import (
	"eventcontrol/internal/handlers"

	"github.com/gin-gonic/gin"
)

// SetupEventRoutes sets up all routes related to event and entry management
func SetupEventRoutes(r *gin.Engine) {
	events := r.Group("/api/events")
	{
		events.GET("", handlers.ListEvents)
		events.POST("", handlers.CreateEvent)
		events.GET("/:id", handlers.GetEvent)
		events.DELETE("/:id", handlers.DeleteEvent)
		events.POST("/:id/resolve", handlers.ResolveEvent)
		events.GET("/:id/entries", handlers.ListEventEntries)
		events.POST("/:id/entries", handlers.CreateEntry)
	}
}
