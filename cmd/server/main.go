/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the budget execution engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store and run migrations
  3. Seed the activity catalog tables from the built-in defaults
  4. Create the execution service and API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: execution.db)
            Use ":memory:" for an in-memory database
  -verbose  Debug-level logging

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/execution.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

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
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/execution-engine/api"
	"github.com/warp/execution-engine/catalog"
	"github.com/warp/execution-engine/execution"
	"github.com/warp/execution-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "execution.db", "SQLite database path")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Seed the catalog tables so lookups survive restarts
	if err := seedCatalog(context.Background(), store); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed activity catalog")
	}

	// Wire the service: the SQLite store doubles as the catalog source
	service := execution.NewService(store, store, logger)
	handler := api.NewHandler(service, store, logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Int("port", *port).Str("db", *dbPath).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}

// seedCatalog pushes the built-in catalogs into the database.
func seedCatalog(ctx context.Context, store *sqlite.Store) error {
	defaults := catalog.NewWithDefaults()
	for _, pair := range defaults.Pairs() {
		items, err := defaults.Lookup(ctx, pair[0], pair[1])
		if err != nil {
			return err
		}
		if err := store.SeedCatalog(ctx, pair[0], pair[1], items); err != nil {
			return err
		}
	}
	return nil
}
