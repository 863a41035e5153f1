package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bcnelson/widget-authorizer/internal/api"
	"github.com/bcnelson/widget-authorizer/internal/auth"
	"github.com/bcnelson/widget-authorizer/internal/authorizer"
	"github.com/bcnelson/widget-authorizer/internal/config"
	"github.com/bcnelson/widget-authorizer/internal/logger"
	"github.com/bcnelson/widget-authorizer/internal/metrics"
	"github.com/bcnelson/widget-authorizer/internal/observability"
	"github.com/bcnelson/widget-authorizer/internal/query"
	"github.com/bcnelson/widget-authorizer/internal/service"
	sqlstore "github.com/bcnelson/widget-authorizer/internal/storage/sql"
	"github.com/bcnelson/widget-authorizer/internal/tenant"
	"github.com/bcnelson/widget-authorizer/internal/widgets"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("widget authorizer failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	telemetry := observability.Disabled()
	if cfg.Tracing.Enabled {
		if telemetry, err = observability.Init(ctx, cfg.Tracing, cfg.Logging.Service); err != nil {
			return err
		}
	}
	defer telemetry.Shutdown(context.Background())

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Namespace)
	}

	// Create data directory if needed (for SQLite)
	if cfg.Database.Driver == "sqlite3" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			return err
		}
	}

	// Initialize storage
	store, err := sqlstore.Open(ctx, cfg.Database, log.With("component", "storage"))
	if err != nil {
		return err
	}

	deployment, err := config.LoadDeployment(cfg.Deployment.Path)
	if err != nil {
		store.Close()
		return err
	}

	tracer := telemetry.Tracer()
	resolver := tenant.NewResolver(deployment, tenant.NewHTTPClientFactory(cfg.Admin),
		log.With("component", "tenant"), m, tracer)
	assembler := query.NewAssembler(resolver, log.With("component", "query"))
	widgetProvider := widgets.NewProvider(cfg.Widgets.Dir, store.WidgetMetadata(), log.With("component", "widgets"))
	authz := authorizer.New(store, widgetProvider, assembler, log.With("component", "authorizer"), m, tracer)

	svc := service.NewDataProviderService(authz, widgetProvider, store.WidgetMetadata(), store, log)
	if err := svc.Start(ctx); err != nil {
		store.Close()
		return err
	}
	defer svc.Stop()

	var verifier auth.TokenVerifier
	if cfg.OIDC.Enabled {
		v, err := auth.NewOIDCVerifier(ctx, cfg.OIDC.IssuerURL, cfg.OIDC.ClientID, cfg.OIDC.GetAllowedDomains())
		if err != nil {
			return err
		}
		verifier = v
	}

	traceName := ""
	if telemetry.Enabled() {
		traceName = cfg.Logging.Service
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(svc, verifier, cfg.API.Token, m, traceName, log),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting widget authorizer", "addr", server.Addr, "db_driver", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")

		// Graceful shutdown with timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
