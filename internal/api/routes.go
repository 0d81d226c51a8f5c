package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/cableworks/backend/internal/api/handlers"
	"github.com/cableworks/backend/internal/config"
	"github.com/cableworks/backend/internal/sim"
	"github.com/cableworks/backend/internal/store"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, mgr *sim.Manager, presets *store.PresetStore, cfg *config.Config) {
	// CRITICAL: No-cache middleware MUST be first in development
	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			// Aggressive no-cache for development
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] Aggressive no-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(mgr))

		v1.POST("/auth/token", handlers.IssueToken(cfg))

		// Rope endpoints. Reading state is open; anything that mutates
		// a simulation sits behind the bearer token.
		ropes := v1.Group("/ropes")
		{
			ropes.GET("", handlers.ListRopes(mgr))
			ropes.GET("/:id", handlers.GetRope(mgr))
			ropes.GET("/:id/ws", handlers.HandleRopeWebSocket())

			authed := ropes.Group("")
			authed.Use(handlers.AuthMiddleware(cfg))
			{
				authed.POST("", handlers.CreateRope(mgr, presets))
				authed.DELETE("/:id", handlers.DeleteRope(mgr))
				authed.POST("/:id/force", handlers.ApplyForce(mgr))
				authed.POST("/:id/grab", handlers.GrabRope(mgr))
				authed.POST("/:id/grab/move", handlers.MoveGrab(mgr))
				authed.POST("/:id/release", handlers.ReleaseRope(mgr))
				authed.POST("/:id/cut", handlers.CutRope(mgr))
				authed.POST("/:id/reset", handlers.ResetRope(mgr))
				authed.PUT("/:id/anchors/:end", handlers.MoveAnchor(mgr))
				authed.DELETE("/:id/anchors/:end", handlers.DetachAnchor(mgr))
			}
		}

		// Preset endpoints
		pr := v1.Group("/presets")
		{
			pr.GET("", handlers.ListPresets(presets))
			pr.GET("/:id", handlers.GetPreset(presets))

			authed := pr.Group("")
			authed.Use(handlers.AuthMiddleware(cfg))
			{
				authed.POST("", handlers.CreatePreset(presets))
				authed.PUT("/:id", handlers.UpdatePreset(presets))
				authed.DELETE("/:id", handlers.DeletePreset(presets))
			}
		}
	}
}
