package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kazesawa-dev/certtrack/internal/config"
	"github.com/kazesawa-dev/certtrack/internal/jobs"
	"github.com/kazesawa-dev/certtrack/internal/repository"
	cronjobs "github.com/kazesawa-dev/certtrack/internal/scheduler"
	"github.com/kazesawa-dev/certtrack/internal/services"
	"github.com/kazesawa-dev/certtrack/internal/storage"
	"github.com/kazesawa-dev/certtrack/pkg/logger"
)

func main() {
	// Load configuration from .env file
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	logger.Log.Info("Logger initialized")

	// Select the persistence backend
	var store storage.CollectionStore
	var fileStore *storage.FileStore
	switch cfg.StoreBackend {
	case config.BackendRemote:
		store = storage.NewRemoteStore(storage.RemoteStoreOptions{
			BaseURL: cfg.RemoteAPIURL,
			Repo:    cfg.RemoteRepo,
			Branch:  cfg.RemoteBranch,
			Token:   cfg.RemoteToken,
		})
		logger.Log.WithField("repo", cfg.RemoteRepo).Info("Using remote versioned store")
	default:
		fileStore, err = storage.NewFileStore(cfg.DataDir, cfg.BackupDir)
		if err != nil {
			log.Fatalf("Store initialization error: %v", err)
		}
		store = fileStore
		logger.Log.WithField("data_dir", cfg.DataDir).Info("Using local file store")
	}

	// --- Repositories ---
	userRepo := repository.NewUserRepository(store)
	certRepo := repository.NewCertificationRepository(store)
	planRepo := repository.NewPlanRepository(store)
	achievementRepo := repository.NewAchievementRepository(store)
	notificationRepo := repository.NewNotificationRepository(store)
	sessionRepo := repository.NewSessionRepository(store)

	// --- Services ---
	// The request boundary (routing, validation) attaches on top of these;
	// this binary drives the maintenance side: seeding, sweeps, backups.
	auditService := services.NewAuditService()
	authService := services.NewAuthService(userRepo, sessionRepo, auditService)
	notificationService := services.NewNotificationService(notificationRepo, planRepo, achievementRepo, certRepo, userRepo)
	achievementService := services.NewAchievementService(achievementRepo, certRepo, notificationService, auditService)

	var backupService *services.BackupService
	if fileStore != nil {
		backupService = services.NewBackupService(fileStore, cfg.BackupRetentionDays)
	}

	ctx := context.Background()
	if err := authService.EnsureDefaultAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("Admin seeding error: %v", err)
	}

	maintenance := jobs.NewMaintenance(achievementService, notificationService, authService, backupService)

	if !cfg.CronEnabled {
		// One-shot mode for external schedulers: run the scan and exit.
		maintenance.RunDailyScan(ctx, time.Now())
		return
	}

	c := cronjobs.StartMaintenanceCronJobs(maintenance)
	logger.Log.Info("Maintenance cron started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	c.Stop()
	logger.Log.Info("Shutting down")
}
