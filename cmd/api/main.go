package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/config"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/domain/auth"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/fixtures"
	appHTTP "github.com/rakhaabhirama/leave-tracker-pro-63/internal/handler/http"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/cron"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/jwt"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/metrics"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/sse"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/pkg/storage"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/repository"
	serviceAuth "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/auth"
	employeeService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/employee"
	leaveService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/leave"
	leaveYearService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/leaveyear"
	"github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/onleave"
	reportService "github.com/rakhaabhirama/leave-tracker-pro-63/internal/service/report"
)

// snapshotLinkExpiry bounds signed rollover snapshot links on S3.
const snapshotLinkExpiry = 15 * time.Minute

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := repository.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()
	slog.Info("Database ready", "driver", cfg.Database.Driver)

	fileStorage, err := newFileStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	var snapshotURLExpiry time.Duration
	if cfg.Storage.Type == config.StorageS3 {
		snapshotURLExpiry = snapshotLinkExpiry
	}

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("invalid jwt configuration: %w", err)
	}

	m := metrics.New()
	hub := sse.NewHub()
	m.WatchStreams(hub.TotalSubscribers)
	resolver := onleave.NewResolver(repos.History, hub, m)
	ranker := fixtures.NewPositionRanker(cfg.Leave.PositionHierarchy)

	authSvc := serviceAuth.NewAuthService(repos.Admins, JWTService)
	employeeSvc := employeeService.NewEmployeeService(repos.Employees, resolver, ranker, employeeService.Config{
		AnnualGrant:         cfg.Leave.AnnualGrant,
		LowBalanceThreshold: cfg.Leave.LowBalanceThreshold,
	})
	leaveSvc := leaveService.NewLeaveService(
		repos.Transactor,
		repos.History,
		repos.Employees,
		leaveService.NewLedger(cfg.Leave.AnnualGrant),
		resolver,
		m,
	)
	rolloverSvc := leaveYearService.NewRolloverService(
		repos.Transactor,
		repos.Settings,
		repos.Runs,
		repos.Employees,
		fileStorage,
		hub,
		m,
		leaveYearService.Config{
			AnnualGrant:       cfg.Leave.AnnualGrant,
			BatchSize:         cfg.Leave.RolloverBatchSize,
			SnapshotURLExpiry: snapshotURLExpiry,
		},
	)
	reportSvc := reportService.NewReportService(repos.Employees, repos.History, repos.Settings, resolver, ranker)

	settings, err := rolloverSvc.EnsureSettings(ctx, cfg.Leave.StartYear)
	if err != nil {
		return fmt.Errorf("failed to load leave-year settings: %w", err)
	}
	slog.Info("Leave year loaded", "current_year", settings.CurrentYear)

	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		admin, created, err := authSvc.EnsureAdmin(ctx, auth.CreateAdminRequest{
			Email:    cfg.Admin.Email,
			Name:     cfg.Admin.Name,
			Password: cfg.Admin.Password,
		})
		if err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		if created {
			slog.Info("Seeded administrator", "email", admin.Email)
		}
	}

	scheduler := cron.NewScheduler()
	cron.RegisterOnLeaveRefresh(scheduler, resolver, cfg.Leave.RefreshInterval)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	router := appHTTP.NewRouter(JWTService, appHTTP.RouterConfig{
		AllowedOrigins: cfg.App.CORSOrigins,
		Env:            cfg.App.Env,
		Version:        version,
		LogLevel:       cfg.SlogLevel(),
		Metrics:        m.Handler(),
	}, appHTTP.Handlers{
		Auth:      appHTTP.NewAuthHandler(authSvc),
		Employee:  appHTTP.NewEmployeeHandler(employeeSvc),
		Leave:     appHTTP.NewLeaveHandler(leaveSvc, resolver),
		LeaveYear: appHTTP.NewLeaveYearHandler(rolloverSvc),
		Report:    appHTTP.NewReportHandler(reportSvc),
		Event:     appHTTP.NewEventHandler(hub, JWTService),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", "http://localhost"+server.Addr, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newFileStorage(ctx context.Context, cfg config.StorageConfig) (storage.FileStorage, error) {
	switch cfg.Type {
	case config.StorageLocal, "":
		fileStorage, err := storage.NewLocalStorage(cfg.BasePath, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return fileStorage, nil
	case config.StorageS3:
		fileStorage, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PathStyle:       cfg.S3PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		return fileStorage, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}
