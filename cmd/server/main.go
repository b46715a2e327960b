/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tip calculator server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load config (YAML file, falling back to environment)
  2. Apply command-line overrides
  3. Initialize logger, metrics and store
  4. Create engine and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (default: config.yaml, missing file means env)
  -port    HTTP server port, overrides config
  -db      SQLite database path, overrides config
           Use ":memory:" for an in-memory SQLite database
           Use "" for the in-memory store
  -static  Frontend directory to serve (default: ./web/dist)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  ./server -db="./data/tips.db"
  ./server -config=/etc/tips/config.yaml -port=3000

ENVIRONMENT:
  See config.LoadFromEnv: TIPS_PORT, TIPS_DB_PATH, TIPS_RECONCILE,
  TIPS_MIN_SEGMENT, TIPS_RATE_LIMIT, LOG_LEVEL, LOG_FORMAT, ...

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration sources
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/robbie-likescodes/Tip-Calculator/api"
	"github.com/robbie-likescodes/Tip-Calculator/config"
	"github.com/robbie-likescodes/Tip-Calculator/logging"
	"github.com/robbie-likescodes/Tip-Calculator/metrics"
	"github.com/robbie-likescodes/Tip-Calculator/store/sqlite"
	"github.com/robbie-likescodes/Tip-Calculator/tips"
	memstore "github.com/robbie-likescodes/Tip-Calculator/tips/store"
)

func main() {
	// Flags
	configPath := flag.String("config", "config.yaml", "YAML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	staticDir := flag.String("static", "./web/dist", "frontend directory")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "db":
			cfg.Storage.DatabasePath = *dbPath
		}
	})

	logger := logging.NewWithSystem(cfg.Logging, os.Stderr, "server")
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheus(reg, "tips")

	// Initialize store
	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		logger.Error("failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	engine := tips.NewEngine(
		tips.WithMinSegment(cfg.Engine.MinSegmentMinutes),
		tips.WithLogger(logging.NewWithSystem(cfg.Logging, os.Stderr, "engine")),
		tips.WithMetrics(collector),
	)

	handler := api.NewHandler(store, engine, logging.NewWithSystem(cfg.Logging, os.Stderr, "api"))
	handler.Reconcile = cfg.Engine.Reconcile

	router := api.NewRouter(handler, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		Burst:          cfg.Server.Burst,
		Metrics:        collector,
		Gatherer:       reg,
		StaticDir:      *staticDir,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", cfg.Storage.DatabasePath,
			"reconcile", cfg.Engine.Reconcile, "min_segment", cfg.Engine.MinSegmentMinutes)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return
	}

	logger.Info("server stopped")
}

// openStore picks SQLite for a path and the in-memory store otherwise.
func openStore(cfg config.StorageConfig) (tips.Store, func(), error) {
	if cfg.DatabasePath == "" {
		return memstore.NewMemory(), func() {}, nil
	}
	if cfg.DatabasePath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	s, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}
