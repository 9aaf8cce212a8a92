package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/controlx2/version-api/internal/api/check"
	"github.com/controlx2/version-api/internal/middleware"
	"github.com/controlx2/version-api/pkg/config"
	"github.com/controlx2/version-api/pkg/logging"
	"github.com/controlx2/version-api/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// VersionInfo contains build version information
type VersionInfo struct {
	Version   string `json:"version"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	PublicURL string `json:"publicUrl,omitempty"`
}

// Server represents the API server
type Server struct {
	echo          *echo.Echo
	config        *config.Config
	metrics       *metrics.Metrics
	metricsServer *http.Server
	instanceID    string
	versionInfo   *VersionInfo
}

// New creates a new API server instance and registers its routes
func New(
	e *echo.Echo,
	cfg *config.Config,
	releases check.ReleaseProvider,
	m *metrics.Metrics,
	instanceID string, // instance ID for the response header
	versionInfo *VersionInfo, // Version information for /version endpoint
) *Server {
	info := *versionInfo
	info.PublicURL = cfg.Server.PublicURL

	srv := &Server{
		echo:        e,
		config:      cfg,
		metrics:     m,
		instanceID:  instanceID,
		versionInfo: &info,
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Port != "" && m != nil {
		srv.metricsServer = &http.Server{
			Addr:              ":" + cfg.Metrics.Port,
			Handler:           srv.metricsMux(),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	e.Use(middleware.APIIDMiddleware(srv.instanceID))
	e.Use(middleware.VersionMiddleware(versionInfo.Version))

	checkHandler := check.NewHandler(releases, m)
	check.RegisterRoutes(e.Group(""), checkHandler)

	e.GET("/version", srv.handleVersion)

	// Health check, independent of release state
	e.GET("/healthz", srv.handleHealth)

	return srv
}

// handleHealth returns a plain "ok"
func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// handleVersion returns build information and the advertised public URL
func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, s.versionInfo)
}

// Start starts the metrics listener, if enabled, and the API server. It
// blocks until the API server stops; a graceful Shutdown is not an error.
func (s *Server) Start() error {
	if s.metricsServer != nil {
		go func() {
			logging.Logger.Info("Starting metrics server", zap.String("port", s.metricsServer.Addr))
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Logger.Error("Metrics server error", zap.Error(err))
			}
		}()
	}

	port := ":" + s.config.Server.Port
	logging.Logger.Info("Starting server", zap.String("port", port))
	if err := s.echo.Start(port); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops both listeners, waiting for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	var errs []error
	if s.metricsServer != nil {
		errs = append(errs, s.metricsServer.Shutdown(ctx))
	}
	errs = append(errs, s.echo.Shutdown(ctx))
	return errors.Join(errs...)
}

func (s *Server) metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}
