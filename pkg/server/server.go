// Package server provides an embeddable HTTP server for the
// life-event planning service.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uptrace/bun"

	"github.com/lifeplan/service/internal/application/notifyprofile"
	"github.com/lifeplan/service/internal/application/planservice"
	"github.com/lifeplan/service/internal/application/reminder"
	"github.com/lifeplan/service/internal/application/taskservice"
	"github.com/lifeplan/service/internal/application/trigger"
	"github.com/lifeplan/service/internal/config"
	"github.com/lifeplan/service/internal/domain/repository"
	"github.com/lifeplan/service/internal/infrastructure/cache"
	"github.com/lifeplan/service/internal/infrastructure/logger"
	"github.com/lifeplan/service/internal/infrastructure/storage"
	"github.com/lifeplan/service/internal/infrastructure/tracing"
)

// Server represents the planning service's HTTP server.
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	router     *gin.Engine
	httpServer *http.Server

	db         *bun.DB
	redisCache *cache.RedisCache
	tracer     *tracing.Provider

	templates planservice.TemplateLoader

	planRepo    repository.PlanRepository
	taskRepo    repository.TaskRepository
	profileRepo repository.NotificationProfileRepository
	outboxRepo  repository.NotificationOutboxRepository

	planService    *planservice.Service
	taskService    *taskservice.Service
	profileService *notifyprofile.Service

	scanner    *reminder.Scanner
	dispatcher *reminder.Dispatcher
	scheduler  *trigger.Scheduler
}

// New creates a new server with the given options.
func New(opts ...Option) (*Server, error) {
	s := &Server{}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if s.config == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
		s.config = cfg
	}

	if s.logger == nil {
		s.logger = logger.New(s.config.Logging)
	}

	if err := s.initComponents(); err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Run starts the server and blocks until a shutdown signal is received.
func (s *Server) Run() error {
	s.logger.Info("starting life-event planning server",
		"host", s.config.Server.Host,
		"port", s.config.Server.Port,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- s.httpServer.ListenAndServe()
	}()

	s.scheduler.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-shutdown:
		s.logger.Info("server shutdown initiated", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
		defer cancel()

		return s.Shutdown(ctx)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.scheduler != nil {
		s.logger.Info("stopping reminder scheduler...")
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Error("reminder scheduler shutdown failed", "error", err)
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("graceful shutdown failed", "error", err)
		if err := s.httpServer.Close(); err != nil {
			s.logger.Error("server close failed", "error", err)
		}
	}

	if s.redisCache != nil {
		if err := s.redisCache.Close(); err != nil {
			s.logger.Error("redis cache close failed", "error", err)
		}
	}

	if s.tracer != nil {
		if err := s.tracer.Shutdown(ctx); err != nil {
			s.logger.Error("tracing shutdown failed", "error", err)
		}
	}

	if s.db != nil {
		if err := storage.Close(s.db); err != nil {
			s.logger.Error("database close failed", "error", err)
		}
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the Gin router for adding custom endpoints.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Config returns the server configuration.
func (s *Server) Config() *config.Config {
	return s.config
}

// Logger returns the server logger.
func (s *Server) Logger() *logger.Logger {
	return s.logger
}

// DB returns the database connection.
func (s *Server) DB() *bun.DB {
	return s.db
}

// PlanService returns the plan lifecycle service.
func (s *Server) PlanService() *planservice.Service {
	return s.planService
}

// TaskService returns the task status-transition service.
func (s *Server) TaskService() *taskservice.Service {
	return s.taskService
}

// NotificationProfileService returns the notification profile service.
func (s *Server) NotificationProfileService() *notifyprofile.Service {
	return s.profileService
}
