/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the kermes POS ledger server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (KERMES_* env vars, optional .env)
  2. Parse command-line flags (override config)
  3. Initialize SQLite store (runs migrations)
  4. Create API handler with dependencies
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: KERMES_PORT or 8080)
  -db      SQLite database path (default: KERMES_DB_PATH or kermes.db)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  KERMES_PORT, KERMES_APP_ENV, KERMES_ALLOWED_ORIGINS,
  KERMES_SHUTDOWN_TIMEOUT, KERMES_DB_PATH, KERMES_LOG_LEVEL,
  KERMES_TOP_PRODUCTS. See config/config.go.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (KERMES_SHUTDOWN_TIMEOUT)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/kermes.db"

  # Run with in-memory database
  ./server -db=":memory:"

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kermes/pos-ledger/api"
	"github.com/kermes/pos-ledger/config"
	"github.com/kermes/pos-ledger/store/sqlite"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Flags
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()
	cfg.Port = *port
	cfg.DBPath = *dbPath

	logger := config.NewLogger(cfg, os.Stderr)

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.DBPath).Msg("failed to initialize database")
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store, store, logger)
	if cfg.TopProducts > 0 {
		handler.TopProducts = cfg.TopProducts
	}

	if active, err := handler.Sessions.GetActiveSession(context.Background()); err != nil {
		logger.Warn().Err(err).Msg("could not read active session")
	} else if active != nil {
		logger.Info().Str("session_id", active.ID).Str("name", active.Name).Msg("resuming active session")
	}

	// Create router
	router := api.NewRouter(handler, cfg.AllowedOrigins)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Int("port", cfg.Port).Str("env", cfg.Env).Str("db", cfg.DBPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
