package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/lifeplan/service/internal/infrastructure/api/rest"
	"github.com/lifeplan/service/internal/infrastructure/storage"
)

func (s *Server) setupRoutes() error {
	if s.config.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.MaxMultipartMemory = s.config.Server.MaxMultipartMemory

	loggingMiddleware := rest.NewLoggingMiddleware(s.logger)
	recoveryMiddleware := rest.NewRecoveryMiddleware(s.logger)
	bodySizeMiddleware := rest.NewBodySizeMiddleware(s.logger, s.config.Server.MaxBodySize)

	s.router.Use(recoveryMiddleware.Recovery())
	if s.config.Tracing.Enabled {
		s.router.Use(otelgin.Middleware(s.config.Tracing.ServiceName))
	}
	s.router.Use(loggingMiddleware.RequestLogger())
	s.router.Use(bodySizeMiddleware.LimitBodySize())
	s.router.Use(gzip.Gzip(gzip.DefaultCompression))

	allowedOrigins := s.config.Server.CORSAllowedOrigins
	allowAll := len(allowedOrigins) == 1 && allowedOrigins[0] == "*"

	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}

	s.router.Use(func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if allowAll {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			if _, ok := originSet[origin]; ok {
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				c.Writer.Header().Set("Vary", "Origin")
			}
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupHealthEndpoints()
	s.setupAPIv1Routes()

	s.logger.Info("REST API routes registered")
	return nil
}

func (s *Server) setupHealthEndpoints() {
	s.router.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if err := storage.Ping(ctx, s.db); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  fmt.Sprintf("database: %s", err.Error()),
			})
			return
		}

		if s.redisCache != nil {
			if err := s.redisCache.Health(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unhealthy",
					"error":  fmt.Sprintf("redis: %s", err.Error()),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	s.router.GET("/metrics", func(c *gin.Context) {
		dbStats := storage.Stats(s.db)

		metrics := gin.H{
			"database": gin.H{
				"open_connections": dbStats.OpenConnections,
				"in_use":           dbStats.InUse,
				"idle":             dbStats.Idle,
				"max_open_conns":   dbStats.MaxOpenConnections,
			},
		}

		if s.redisCache != nil {
			cacheStats := s.redisCache.Stats()
			metrics["redis"] = gin.H{
				"hits":        cacheStats.Hits,
				"misses":      cacheStats.Misses,
				"total_conns": cacheStats.TotalConns,
				"idle_conns":  cacheStats.IdleConns,
			}
		}

		c.JSON(http.StatusOK, gin.H{"metrics": metrics})
	})
}

func (s *Server) setupAPIv1Routes() {
	apiV1 := s.router.Group("/api/v1")
	{
		s.setupPlanRoutes(apiV1)
		s.setupTaskRoutes(apiV1)
		s.setupNotificationRoutes(apiV1)
	}
}

func (s *Server) setupPlanRoutes(apiV1 *gin.RouterGroup) {
	planHandlers := rest.NewPlanHandlers(s.planService, s.logger)

	plans := apiV1.Group("/plans")
	{
		plans.POST("", planHandlers.HandleCreatePlan)
		plans.GET("/:plan_id", planHandlers.HandleGetPlan)
		plans.PATCH("/:plan_id/facts", planHandlers.HandleUpdateFacts)
		plans.POST("/:plan_id/recompute", planHandlers.HandleRecomputePlan)
	}

	s.logger.Info("Plan endpoints registered")
}

func (s *Server) setupTaskRoutes(apiV1 *gin.RouterGroup) {
	taskHandlers := rest.NewTaskHandlers(s.taskService, s.logger)

	tasks := apiV1.Group("/plans/:plan_id/tasks")
	{
		tasks.GET("", taskHandlers.HandleListTasks)
		tasks.PATCH("/:task_id", taskHandlers.HandleUpdateTaskStatus)
	}

	s.logger.Info("Task endpoints registered")
}

func (s *Server) setupNotificationRoutes(apiV1 *gin.RouterGroup) {
	notificationHandlers := rest.NewNotificationHandlers(s.profileService, s.logger)

	apiV1.PUT("/plans/:plan_id/notification-profile", notificationHandlers.HandleUpsertNotificationProfile)
	apiV1.GET("/notifications/unsubscribe", notificationHandlers.HandleUnsubscribe)

	s.logger.Info("Notification endpoints registered")
}
