package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lumapix/moments-backend/internal/config"
	"github.com/lumapix/moments-backend/internal/handler"
	"github.com/lumapix/moments-backend/internal/middleware"
)

// Handlers bundles the HTTP handlers the router mounts
type Handlers struct {
	Scan        *handler.ScanHandler
	Albums      *handler.AlbumHandler
	Media       *handler.MediaHandler
	Consistency *handler.ConsistencyHandler
}

// SetupRouter builds the gin engine and mounts all routes
func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.RateLimit(300, time.Minute))

	// CORS
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Moments Backend API is running",
		})
	})

	api := r.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTSecret))
	{
		scan := api.Group("/scan")
		{
			scan.POST("/full", h.Scan.StartFullScan)
			scan.POST("/incremental", h.Scan.StartIncrementalScan)
			scan.GET("/status", h.Scan.Status)
		}

		days := api.Group("/days")
		{
			days.GET("", h.Albums.ListDays)
			days.GET("/:dayKey", h.Albums.GetDay)
			days.GET("/:dayKey/items", h.Media.ListDayItems)
		}

		api.GET("/clusters/:id", h.Albums.GetCluster)

		media := api.Group("/media")
		{
			media.GET("/:id", h.Media.GetItem)
			media.POST("/:id/hide", h.Media.Hide)
			media.POST("/:id/unhide", h.Media.Unhide)
			media.DELETE("", h.Media.Delete)
		}

		consistency := api.Group("/consistency")
		{
			consistency.GET("/verify", h.Consistency.Verify)
			consistency.POST("/repair", h.Consistency.Repair)
			consistency.POST("/prune", h.Consistency.Prune)
			consistency.POST("/drain", h.Consistency.Drain)
		}
	}

	return r
}
