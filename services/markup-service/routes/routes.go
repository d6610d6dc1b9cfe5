package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/markup-backend/services/markup-service/controllers"
)

// RegisterMarkupRoutes mounts the labeling API. session resolves the caller's
// session and must run before any handler that reads progress.
func RegisterMarkupRoutes(r *gin.Engine, mc *controllers.MarkupController, session gin.HandlerFunc) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "markup-service"})
	})
	r.GET("/tasks", mc.ListTasks)

	markup := r.Group("/markup")
	markup.Use(session)
	markup.GET("/search", mc.GetSearchStep)
	markup.POST("/search", mc.SubmitSearch)
	markup.GET("/matching", mc.GetMatchingStep)
	markup.POST("/matching", mc.SubmitMatching)

	r.GET("/stats", session, mc.GetStats)

	sessionRoutes := r.Group("/session")
	sessionRoutes.Use(session)
	sessionRoutes.GET("", mc.GetSession)
	sessionRoutes.POST("/restart", mc.RestartSession)

	admin := r.Group("/admin")
	admin.GET("/datasets", mc.ListDatasets)
	admin.POST("/datasets/:task/reload", mc.ReloadDataset)
}
