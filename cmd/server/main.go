/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the settlement ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Configure structured logging
  3. Initialize SQLite store
  4. Create ledger service and API handler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port       HTTP server port (default: 8080, env PORT)
  -db         SQLite database path (default: ledger.db, env DB_PATH)
              Use ":memory:" for an in-memory database
  -log-level  trace|debug|info|warn|error (default: info, env LOG_LEVEL)
  -log-format console|json (default: console, env LOG_FORMAT)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ledger.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port with JSON logs
  ./server -port=3000 -log-format=json

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/fahimfaisal1454/jjbb-ledger/api"
	"github.com/fahimfaisal1454/jjbb-ledger/ledger"
	"github.com/fahimfaisal1454/jjbb-ledger/logger"
	"github.com/fahimfaisal1454/jjbb-ledger/store/sqlite"
)

func main() {
	// .env is optional; flags still win over environment values.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DB_PATH", "ledger.db"), "SQLite database path")
	logLevel := flag.String("log-level", envStr("LOG_LEVEL", "info"), "log level")
	logFormat := flag.String("log-format", envStr("LOG_FORMAT", "console"), "log format (console or json)")
	flag.Parse()

	if err := logger.Setup(logger.Config{Level: *logLevel, Format: *logFormat, Output: "stderr"}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to configure logging: %v\n", err)
		os.Exit(1)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Str("db", *dbPath).Msg("failed to initialize database")
	}
	defer store.Close()

	// Wire the service over the store. Stock adjustments are a no-op here;
	// deployments with an inventory subsystem inject their own adjuster.
	service := ledger.NewService(store,
		ledger.WithLogger(logger.WithComponent("ledger")),
	)

	handler := api.NewHandler(service, store)
	router := api.NewRouter(handler, logger.WithComponent("http"))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", *port).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
