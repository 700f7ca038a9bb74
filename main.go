package main

import (
	"database/sql"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"dispatch-dashboard/config"
	"dispatch-dashboard/handlers"
	"dispatch-dashboard/middleware"
	"dispatch-dashboard/models"
	"dispatch-dashboard/services"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Warn(".env file not found, using system environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Local snapshot cache backs the store fallback chain
	cache, err := services.NewCacheService(cfg.CacheDir)
	if err != nil {
		log.Fatalf("Failed to initialize snapshot cache: %v", err)
	}

	conn := services.NewConnectionState()

	// The remote store is best-effort: an unreachable database degrades
	// to cached or built-in demo data instead of failing startup.
	var db *sql.DB
	if cfg.OfflineMode {
		log.Warn("OFFLINE_MODE set, skipping remote store entirely")
		conn.Set(models.ConnOffline)
	} else {
		databaseService, err := services.NewDatabaseService(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database service: %v", err)
		}
		defer databaseService.Close()
		db = databaseService.DB()

		if err := services.InitSchema(db); err != nil {
			log.Warnf("Schema initialization failed, continuing in degraded mode: %v", err)
		}
	}

	// Initialize WebSocket service
	websocketHub := services.NewWebSocketHub()
	go websocketHub.Start()
	defer websocketHub.Stop()

	// Wire the state pipeline: store -> derived state -> presentation
	notifier := services.NewNotificationService(db, conn)
	eventService := services.NewEventService(db, cache, conn, notifier)
	vendorService := services.NewVendorService(db, cache, conn)
	stateService := services.NewStateService(eventService, notifier, vendorService, conn, websocketHub)

	stateService.Hydrate()

	dashboardHandler := handlers.NewDashboardHandler(stateService, vendorService, websocketHub)

	r := gin.Default()

	// CORS middleware for Gin
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Health endpoint (public)
	r.GET("/health", dashboardHandler.HealthHandler)

	// State feed
	r.GET("/ws/state", dashboardHandler.WebSocketHandler)

	api := r.Group("/api")
	{
		api.GET("/state", dashboardHandler.StateHandler)
		api.GET("/meta", dashboardHandler.MetaHandler)

		api.GET("/events", dashboardHandler.EventsHandler)
		api.GET("/kpis", dashboardHandler.KPIsHandler)
		api.GET("/analytics/weekly", dashboardHandler.WeeklyVolumeHandler)
		api.GET("/analytics/types", dashboardHandler.TopTypesHandler)
		api.GET("/analytics/urgent", dashboardHandler.UrgentItemsHandler)

		api.GET("/notifications", dashboardHandler.NotificationsHandler)
		api.GET("/vendors", dashboardHandler.VendorsHandler)
		api.GET("/vendors/:id/history", dashboardHandler.VendorHistoryHandler)

		// Mutations are rate limited per client IP
		mutations := api.Group("/")
		mutations.Use(middleware.RateLimitMiddleware(60, time.Minute))
		{
			mutations.POST("/events", dashboardHandler.LogEventHandler)
			mutations.PUT("/events/:id", dashboardHandler.EditEventHandler)
			mutations.DELETE("/events/:id", dashboardHandler.DeleteEventHandler)
			mutations.POST("/events/:id/approve", dashboardHandler.ApproveEventHandler)
			mutations.POST("/events/:id/resolve", dashboardHandler.ResolveEventHandler)

			mutations.DELETE("/notifications", dashboardHandler.ClearNotificationsHandler)

			mutations.POST("/vendors", dashboardHandler.CreateVendorHandler)
			mutations.PUT("/vendors/:id", dashboardHandler.UpdateVendorHandler)

			mutations.POST("/navigate", dashboardHandler.NavigateHandler)
			mutations.POST("/filter/vendor", dashboardHandler.FilterVendorHandler)
		}
	}

	log.Infof("Starting dispatch dashboard service on %s:%s", cfg.Host, cfg.Port)
	r.Run(cfg.Host + ":" + cfg.Port)
}
