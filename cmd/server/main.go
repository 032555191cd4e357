// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/nanis-backend/internal/cache"
	"github.com/unclebandit/nanis-backend/internal/config"
	"github.com/unclebandit/nanis-backend/internal/controller"
	"github.com/unclebandit/nanis-backend/internal/db"
	"github.com/unclebandit/nanis-backend/internal/handler"
	"github.com/unclebandit/nanis-backend/internal/logger"
	"github.com/unclebandit/nanis-backend/internal/queue"
	"github.com/unclebandit/nanis-backend/internal/repository"
	"github.com/unclebandit/nanis-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Must("info", "json").Fatal("failed to load config", zap.Error(err))
	}
	log := logger.Must(cfg.Logging.Level, cfg.Logging.Format)
	defer func() { _ = log.Sync() }()

	if cfg.Auth.JWTSecret == "" && !cfg.App.IsDevelopment() {
		log.Fatal("auth.jwt_secret is required outside development")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	sqlDB, err := db.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := db.EnsureSchema(ctx, sqlDB); err != nil {
		log.Fatal("failed to apply schema", zap.Error(err))
	}

	redisClient, err := db.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	pipeline, closePipeline, err := queue.OpenSendPipeline(cfg.AMQP, log)
	if err != nil {
		log.Fatal("failed to open send pipeline", zap.Error(err))
	}
	defer func() { _ = closePipeline() }()

	contactRepo := &repository.ContactRepository{DB: sqlDB}
	campaignRepo := &repository.CampaignRepository{DB: sqlDB}
	recipientRepo := &repository.RecipientRepository{DB: sqlDB}
	templateRepo := &repository.TemplateRepository{DB: sqlDB}
	tagRepo := &repository.TagRepository{DB: sqlDB}
	orgRepo := &repository.OrganizationRepository{DB: sqlDB}

	// a nil *CountCache inside the interface would not compare equal to nil
	var countCache service.CountCache
	if redisClient != nil {
		defer redisClient.Close()
		countCache = cache.NewCountCache(redisClient, cfg.Redis.Prefix, cfg.Redis.CountTTL)
	}

	audienceService := service.NewAudienceService(contactRepo, countCache, log.Named("audience"))
	campaignService := &service.CampaignService{
		CampaignRepo:  campaignRepo,
		RecipientRepo: recipientRepo,
		TemplateRepo:  templateRepo,
		Audience:      audienceService,
		Logger:        log.Named("campaigns"),
	}
	scheduleService := service.NewScheduleService(campaignRepo, pipeline, log.Named("scheduler"))

	router := newRouter(routes{
		Auth:      handler.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTAudience, log),
		Orgs:      orgRepo,
		Contacts:  &controller.ContactController{Audience: audienceService, Logger: log},
		Tags:      &controller.TagController{TagService: &service.TagService{TagRepo: tagRepo}, Logger: log},
		Campaigns: &controller.CampaignController{CampaignService: campaignService, Logger: log},
		Details:   &handler.CampaignHandler{Service: campaignService, Logger: log},
		Internal:  &handler.InternalHandler{Scheduler: scheduleService, CronSecret: cfg.Auth.CronSecret, Logger: log},
		Timeout:   cfg.Server.RequestTimeout,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server running", zap.String("addr", srv.Addr), zap.String("environment", cfg.App.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
