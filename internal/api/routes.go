package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mtgproxyprint/server/internal/api/handlers"
	"github.com/mtgproxyprint/server/internal/bulk"
	"github.com/mtgproxyprint/server/internal/metrics"
	"github.com/mtgproxyprint/server/internal/services"
)

func SetupRouter(pipeline *services.Pipeline, resolver *services.Resolver, statsService *services.StatsService, store *bulk.Store) *gin.Engine {
	router := gin.Default()

	// Get frontend dist path from env
	frontendPath := os.Getenv("FRONTEND_DIST_PATH")
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	// CORS configuration - allow origins from environment or use defaults
	config := cors.DefaultConfig()
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		config.AllowOrigins = strings.Split(corsOrigins, ",")
	} else {
		config.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	config.AllowCredentials = false // Explicitly set
	router.Use(cors.New(config))

	router.Use(requestMetrics())

	// Initialize handlers
	resolveHandler := handlers.NewResolveHandler(pipeline)
	searchHandler := handlers.NewSearchHandler(resolver)
	pdfHandler := handlers.NewPDFHandler(statsService)
	statsHandler := handlers.NewStatsHandler(statsService)

	// API routes
	api := router.Group("/api")
	{
		api.POST("/resolve", resolveHandler.Resolve)
		api.POST("/search", searchHandler.Search)
		api.POST("/pdf", pdfHandler.Render)

		stats := api.Group("/stats")
		{
			stats.GET("", statsHandler.GetStats)
			stats.POST("/visit", statsHandler.RecordVisit)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":       "ok",
			"indexedCards": store.CardCount(),
		})
	})

	// Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		// Serve static assets
		router.Static("/assets", filepath.Join(frontendPath, "assets"))

		// Serve other static files (favicon, etc.)
		router.StaticFile("/vite.svg", filepath.Join(frontendPath, "vite.svg"))

		// Serve root index.html
		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			path := c.Request.URL.Path

			// Don't serve index.html for API routes
			if strings.HasPrefix(path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}

			// Serve index.html for SPA routing
			c.File(indexPath)
		})
	}

	return router
}

// requestMetrics records request counts and latency per route pattern.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
