package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health", "/metrics"},
	}))

	r.Use(gin.Recovery())

	// CORS for browser clients of the feed endpoints
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-Key"},
		ExposeHeaders:   []string{"X-Feed-Algorithm", "X-Feed-Items"},
		MaxAge:          12 * time.Hour,
	}))

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Feed and interaction endpoints
	r.GET("/feed", handler.GetFeed)
	r.POST("/interactions", handler.PostInteraction)

	// Health, status and metrics endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API endpoints (conditionally enabled with authentication)
	if apiAccessKey != "" && handler.configCache != nil {
		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/channels", handler.APIListChannels)
			api.POST("/channels/:name/import", handler.APIImportChannel)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Info("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := gin.H{
			"feed":         "/feed?viewer=<id>&kind=lens|trending|explore&limit=<n>&offset=<n>",
			"interactions": "/interactions (POST)",
			"health":       "/health",
			"stats":        "/stats",
			"metrics":      "/metrics",
		}

		// Add API endpoints if authentication is enabled
		if apiAccessKey != "" {
			endpoints["channels"] = "/api/channels (requires X-API-Key header)"
			endpoints["import"] = "/api/channels/<name>/import (POST, requires X-API-Key header)"
		}

		c.JSON(http.StatusOK, gin.H{
			"service":     "Lens",
			"version":     handler.version,
			"description": "Personalized short-video feed composition",
			"endpoints":   endpoints,
			"api_status": gin.H{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		// Also accept Authorization: Bearer <key>
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			return
		}

		if providedKey != apiAccessKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			return
		}

		// Continue to next middleware/handler
		c.Next()
	}
}
