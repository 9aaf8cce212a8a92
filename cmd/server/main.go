package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/controlx2/version-api/internal/api/common"
	internalMiddleware "github.com/controlx2/version-api/internal/middleware"
	"github.com/controlx2/version-api/internal/server"
	"github.com/controlx2/version-api/pkg/cache"
	"github.com/controlx2/version-api/pkg/config"
	"github.com/controlx2/version-api/pkg/github"
	"github.com/controlx2/version-api/pkg/logging"
	"github.com/controlx2/version-api/pkg/metrics"
	"github.com/controlx2/version-api/pkg/release"
	pkgServer "github.com/controlx2/version-api/pkg/server"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildTime=..."
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Parse flags
	var configPath string
	flag.StringVar(&configPath, "config-path", "", "Path to configuration file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize structured logging
	if err := logging.InitLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer func() { _ = logging.Logger.Sync() }()
	logging.Logger.Info("Structured logging initialized",
		zap.String("level", cfg.Logging.Level),
		zap.String("format", cfg.Logging.Format))
	if configPath != "" {
		logging.Logger.Info("Configuration loaded", zap.String("path", configPath))
	}

	m := metrics.New()

	source, err := github.NewSource(github.Options{
		Owner:   cfg.GitHub.Owner,
		Repo:    cfg.GitHub.Repo,
		Token:   cfg.GitHub.Token,
		PerPage: cfg.GitHub.PerPage,
		BaseURL: cfg.GitHub.BaseURL,
		Timeout: cfg.GitHub.Timeout,
		Counter: m,
	})
	if err != nil {
		logging.Logger.Fatal("Failed to create GitHub release source", zap.Error(err))
	}
	logging.Logger.Info("GitHub release source initialized",
		zap.String("repository", cfg.GitHub.Owner+"/"+cfg.GitHub.Repo),
		zap.Bool("token_set", cfg.GitHub.Token != ""))

	snapshots := cache.NewSnapshotCache(cfg.Cache.FilePath)
	defer func() {
		if err := snapshots.Close(); err != nil {
			logging.Logger.Warn("Failed to close release cache", zap.Error(err))
		}
	}()

	selector := release.NewSelector(cfg.Release.RecencyInterval, cfg.Release.UrgentMarker)
	releases := release.NewCache(source, selector, cfg.Release.CheckInterval,
		release.WithSnapshotStore(snapshots))
	releases.Warm(context.Background())

	instanceID, err := pkgServer.LoadOrCreateInstanceID(cfg.Cache.InstanceIDPath)
	if err != nil {
		logging.Logger.Fatal("Failed to get or create instance ID", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = common.NewValidator()

	e.Use(internalMiddleware.RecoverMiddleware())
	e.Use(internalMiddleware.LoggerMiddleware())
	e.Use(internalMiddleware.CORSMiddleware())

	srv := server.New(e, cfg, releases, m, instanceID, &server.VersionInfo{
		Version:   version,
		BuildTime: buildTime,
		GoVersion: runtime.Version(),
	})
	logging.Logger.Info("Server initialized",
		zap.String("instance_id", instanceID),
		zap.String("public_url", cfg.Server.PublicURL))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logging.Logger.Error("Server error", zap.Error(err))
		}
	case <-ctx.Done():
		logging.Logger.Info("Shutting down")
		if err := srv.Shutdown(context.Background()); err != nil {
			logging.Logger.Error("Shutdown error", zap.Error(err))
		}
	}
}
