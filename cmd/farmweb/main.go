// Farm Monitor - Real-time Farm Sensor Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/farmmonitor

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tomtom215/farmmonitor/internal/api"
	"github.com/tomtom215/farmmonitor/internal/auth"
	"github.com/tomtom215/farmmonitor/internal/bridge"
	"github.com/tomtom215/farmmonitor/internal/cache"
	"github.com/tomtom215/farmmonitor/internal/config"
	"github.com/tomtom215/farmmonitor/internal/logging"
	"github.com/tomtom215/farmmonitor/internal/store"
	"github.com/tomtom215/farmmonitor/internal/supervisor"
	"github.com/tomtom215/farmmonitor/internal/supervisor/services"
	"github.com/tomtom215/farmmonitor/internal/sysinfo"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// retentionInterval is how often old readings are pruned.
const retentionInterval = time.Hour

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	issueToken := flag.String("issue-token", "", "print a JWT for this subject and exit")
	role := flag.String("role", auth.RoleViewer, "role claim for -issue-token (viewer or admin)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if *issueToken != "" {
		token, err := mintToken(&cfg.Security, *issueToken, *role)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to issue token")
		}
		fmt.Println(token)
		return
	}

	logging.Info().
		Str("version", version).
		Str("db_driver", cfg.Database.Driver).
		Str("cache_backend", cfg.Cache.Backend).
		Str("auth_mode", cfg.Security.AuthMode).
		Bool("bridge_enabled", cfg.Bridge.Enabled).
		Msg("Starting farmweb")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("farmweb stopped with error")
	}
	logging.Info().Msg("farmweb stopped gracefully")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func mintToken(sec *config.SecurityConfig, subject, role string) (string, error) {
	if role != auth.RoleViewer && role != auth.RoleAdmin {
		return "", fmt.Errorf("unknown role %q", role)
	}
	mgr, err := auth.NewJWTManager(sec)
	if err != nil {
		return "", err
	}
	return mgr.GenerateToken(subject, role)
}

//nolint:gocyclo // Sequential setup steps with individual cleanup
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	readings, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open reading store: %w", err)
	}
	defer func() {
		if err := readings.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing reading store")
		}
	}()
	logging.Info().Str("driver", cfg.Database.Driver).Msg("Reading store initialized")

	latest, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("create latest cache: %w", err)
	}
	defer func() {
		if err := latest.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing latest cache")
		}
	}()

	var authn api.Authenticator
	if cfg.Security.AuthMode == auth.ModeJWT {
		jwtManager, err := auth.NewJWTManager(&cfg.Security)
		if err != nil {
			return fmt.Errorf("create JWT manager: %w", err)
		}
		authn = auth.NewMiddleware(jwtManager, cfg.Security.AuthMode)
	}

	health := api.NewHealthReporter(version, sysinfo.NewCollector(diskPath(cfg.Database)))
	handler := api.NewWebHandler(api.WebHandlerOptions{
		Store:           readings,
		Latest:          latest,
		Forwarder:       bridge.New(cfg.Bridge),
		Evaluator:       cfg.Thresholds.Evaluator(),
		HistoryMaxHours: cfg.Database.HistoryMaxHours,
		Health:          health,
	})
	defer handler.Close()

	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewWebRouter(handler, mw, authn),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		Name:            "farmweb",
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if cfg.Database.HistoryMaxHours > 0 {
		retention := time.Duration(cfg.Database.HistoryMaxHours) * time.Hour
		tree.AddIngestService(services.NewRetentionService(readings, retention, retentionInterval))
		logging.Info().Dur("retention", retention).Msg("Store retention added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server service added")

	return tree.Run(ctx)
}

// diskPath picks the filesystem reported by the health endpoint: the SQLite
// database directory, or the working directory otherwise.
func diskPath(db config.DatabaseConfig) string {
	if db.Driver != store.DriverSQLite {
		return "."
	}
	p := strings.TrimPrefix(db.DSN, "file:")
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == ":memory:" {
		return "."
	}
	return filepath.Dir(p)
}
