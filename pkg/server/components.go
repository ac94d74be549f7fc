package server

import (
	"context"
	"fmt"

	"github.com/lifeplan/service/internal/application/emailprovider"
	"github.com/lifeplan/service/internal/application/notifyprofile"
	"github.com/lifeplan/service/internal/application/planservice"
	"github.com/lifeplan/service/internal/application/reminder"
	"github.com/lifeplan/service/internal/application/taskservice"
	"github.com/lifeplan/service/internal/application/template"
	"github.com/lifeplan/service/internal/application/trigger"
	"github.com/lifeplan/service/internal/config"
	"github.com/lifeplan/service/internal/infrastructure/cache"
	"github.com/lifeplan/service/internal/infrastructure/storage"
	"github.com/lifeplan/service/internal/infrastructure/tracing"
	"github.com/lifeplan/service/migrations"
)

// initComponents wires tracing, the database, template repository,
// domain repositories, application services, and reminder pipeline,
// in dependency order.
func (s *Server) initComponents() error {
	if err := s.initTracing(); err != nil {
		return err
	}
	if err := s.initDatabase(); err != nil {
		return err
	}
	if err := s.initRedisCache(); err != nil {
		return err
	}
	s.initTemplateRepository()
	s.initRepositories()
	s.initServices()
	s.initReminderPipeline()
	if err := s.initScheduler(); err != nil {
		return err
	}

	return nil
}

func (s *Server) initTracing() error {
	provider, err := tracing.NewProvider(context.Background(), tracing.Config{
		Enabled:     s.config.Tracing.Enabled,
		ServiceName: s.config.Tracing.ServiceName,
		Endpoint:    s.config.Tracing.Endpoint,
		Insecure:    s.config.Tracing.Insecure,
		SampleRate:  s.config.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.tracer = provider
	return nil
}

func (s *Server) initDatabase() error {
	dbCfg := storage.DefaultConfig()
	dbCfg.DSN = s.config.Database.URL
	dbCfg.Debug = s.config.Database.LogSQL

	db, err := storage.NewDB(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	s.db = db

	if s.config.Server.AutoCreateSchema {
		migrator, err := storage.NewMigrator(db, migrations.FS)
		if err != nil {
			return fmt.Errorf("failed to initialize migrator: %w", err)
		}
		if err := migrator.Up(context.Background()); err != nil {
			return fmt.Errorf("failed to auto-migrate schema: %w", err)
		}
	}

	return nil
}

func (s *Server) initRedisCache() error {
	if s.config.Template.CacheRedisURL == "" {
		return nil
	}

	redisCache, err := cache.NewRedisCache(config.RedisConfig{
		URL:      s.config.Template.CacheRedisURL,
		PoolSize: 10,
	})
	if err != nil {
		s.logger.Warn("template redis cache unavailable, continuing without it", "error", err)
		return nil
	}
	s.redisCache = redisCache
	return nil
}

func (s *Server) initTemplateRepository() {
	repo := template.NewRepository(s.config.Template.WorkflowsRoot)
	if s.redisCache != nil {
		s.templates = template.NewCachedRepository(repo, s.redisCache)
		return
	}
	s.templates = repo
}

func (s *Server) initRepositories() {
	s.planRepo = storage.NewPlanRepository(s.db)
	s.taskRepo = storage.NewTaskRepository(s.db)
	s.profileRepo = storage.NewNotificationProfileRepository(s.db)
	s.outboxRepo = storage.NewNotificationOutboxRepository(s.db)
}

func (s *Server) initServices() {
	s.planService = planservice.New(s.templates, s.planRepo, s.taskRepo)
	s.taskService = taskservice.New(s.taskRepo)
	s.profileService = notifyprofile.New(s.profileRepo, []byte(s.config.Notification.TokenSecret))
}

func (s *Server) initReminderPipeline() {
	provider := emailprovider.New(emailprovider.Config{
		FromName:                s.config.Email.FromName,
		FromEmail:               s.config.Email.FromAddress,
		APIKey:                  s.config.Email.BrevoAPIKey,
		BaseURL:                 s.config.Email.BrevoBaseURL,
		DryRun:                  s.config.Email.DryRun,
		AllowedRecipientDomains: s.config.Email.AllowedRecipientDomains,
	})

	s.scanner = reminder.NewScanner(
		s.profileRepo,
		s.taskRepo,
		s.outboxRepo,
		s.profileService,
		s.logger,
		s.config.Server.AppBaseURL,
	)
	s.dispatcher = reminder.NewDispatcher(s.outboxRepo, provider, s.logger, s.config.Trigger.OutboxMaxAttempts)
}

func (s *Server) initScheduler() error {
	scheduler, err := trigger.NewScheduler(trigger.SchedulerConfig{
		Scanner:            s.scanner,
		Dispatcher:         s.dispatcher,
		ScanDueSoonCron:    s.config.Trigger.ScanDueSoonCron,
		DispatchOutboxCron: s.config.Trigger.DispatchOutboxCron,
		OutboxBatchSize:    s.config.Trigger.OutboxBatchSize,
		Logger:             s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize reminder scheduler: %w", err)
	}
	s.scheduler = scheduler
	return nil
}
