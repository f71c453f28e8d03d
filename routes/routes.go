package routes

import (
	"net/http"
	"time"

	"homecare/handlers"
	"homecare/middleware"
	"homecare/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups the handlers wired in main.
type HandlerBundle struct {
	Tracking    *handlers.TrackingHandler
	Devices     *handlers.DeviceHandler
	Eligibility middleware.EligibilityVerifier
}

// RegisterTrackingRoutes registers the live-tracking endpoints.
func RegisterTrackingRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/tracking")
	{
		// Viewer endpoints: a share token in the query authorizes trusted
		// contacts, otherwise a bearer is required.
		api.GET("/:requestId", middleware.OptionalJWT(), hb.Tracking.GetSessionHandler)

		protected := api.Group("")
		protected.Use(middleware.JWTAuthMiddleware())
		protected.Use(middleware.EligibilityMiddleware(hb.Eligibility))
		protected.GET("/history", hb.Tracking.HistoryHandler)
		protected.GET("/history/:requestId", hb.Tracking.ArchivedSessionHandler)
		protected.POST("/sessions", hb.Tracking.OpenSessionHandler)
		protected.POST("/:requestId/status", hb.Tracking.TransitionHandler)
		protected.POST("/:requestId/location", hb.Tracking.LocationHandler)
		protected.POST("/:requestId/checkin", hb.Tracking.CheckInHandler)
		protected.POST("/:requestId/share", hb.Tracking.ShareHandler)
		protected.DELETE("/:requestId/share", hb.Tracking.RevokeShareHandler)
		protected.DELETE("/:requestId", hb.Tracking.EndTrackingHandler)
	}

	ws := r.Group("/ws/tracking")
	{
		ws.GET("/:requestId", middleware.OptionalJWT(), hb.Tracking.SubscribeHandler)
	}
}

// RegisterDeviceRoutes registers device-token endpoints.
func RegisterDeviceRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/devices")
	{
		api.Use(middleware.JWTAuthMiddleware())
		api.PUT("/fcm-token", hb.Devices.UpdateFCMTokenHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterTrackingRoutes(r, hb)
	RegisterDeviceRoutes(r, hb)
}
