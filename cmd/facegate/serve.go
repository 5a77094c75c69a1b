package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/facegate/facegate/application/service"
	"github.com/facegate/facegate/infrastructure/api"
	apimiddleware "github.com/facegate/facegate/infrastructure/api/middleware"
	v1 "github.com/facegate/facegate/infrastructure/api/v1"
	"github.com/facegate/facegate/infrastructure/cache"
	"github.com/facegate/facegate/infrastructure/extractor"
	"github.com/facegate/facegate/infrastructure/persistence"
	"github.com/facegate/facegate/infrastructure/similarity"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/log"
	"github.com/facegate/facegate/internal/validate"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. Command line flags

Environment variables:
  HOST                     Server host to bind to (default: 0.0.0.0)
  PORT                     Server port to listen on (default: 8080)
  DB_URL                   Database URL (default: sqlite:///facegate.db)
  LOG_LEVEL                Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT               Log format: pretty, json (default: pretty)
  SIMILARITY_THRESHOLD     Cosine similarity acceptance threshold (default: 0.8)
  NEAR_MATCH_CUTOFF        Minimum similarity shown as a near match (default: 0.05)
  CACHE_TTL_SECONDS        Corpus cache lifetime in seconds (default: 3600)
  MAX_IMAGE_BYTES          Maximum accepted image size (default: 5242880)
  API_KEYS                 Comma-separated list of valid API keys

  EXTRACTOR_*              Embedding extractor service configuration
    BASE_URL               Base URL of the extractor service (required)
    API_KEY                API key for authentication
    MODEL                  Model identifier
    TIMEOUT                Request timeout in seconds (default: 30)
    MAX_RETRIES            Retry attempts (default: 2)

  STORE_*                  Embedding store behaviour
    TIMEOUT                Query timeout in seconds (default: 5)
    MAX_RETRIES            Corpus fetch retry attempts (default: 3)
    RETRY_DELAY_MS         Delay between fetch retries (default: 200)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	// Flags take precedence over env vars.
	cfg = applyServeOverrides(cfg, host, port)

	if !cfg.Extractor().IsConfigured() {
		return fmt.Errorf("extractor service not configured: set EXTRACTOR_BASE_URL")
	}

	logger := log.Configure(cfg)
	slogger := logger.Slog()

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	slogger.LogAttrs(context.Background(), slog.LevelInfo, "starting facegate", attrs...)

	db, err := database.NewDatabase(context.Background(), cfg.DBURL())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slogger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if db.IsPostgres() {
		if err := db.ConfigurePool(25, 5, 30*time.Minute); err != nil {
			return fmt.Errorf("configure connection pool: %w", err)
		}
	}

	if err := persistence.AutoMigrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := persistence.NewEmbeddingStore(db, slogger)
	engine := similarity.NewEngine(slogger)
	corpusCache := cache.NewCorpusCache(store, engine, cfg.CacheTTL(), cfg.Store(), slogger)
	extractorClient := extractor.NewClientFromConfig(cfg.Extractor(), slogger)
	validator := validate.NewImageValidator(cfg.MaxImageBytes())

	auth := service.NewAuth(store, extractorClient, corpusCache, engine, validator, cfg.SimilarityThreshold(), slogger)
	health := service.NewHealth(store, corpusCache, cfg.Store().Timeout(), slogger)

	server := api.NewServer(cfg.Addr(), slogger)
	router := server.Router()

	// CorrelationID first so the request log carries the correlation ID.
	router.Use(apimiddleware.CorrelationID)
	router.Use(apimiddleware.Logging(slogger))

	authRouter := v1.NewAuthRouter(auth, cfg.MaxImageBytes(), cfg.NearMatchCutoff(), slogger)
	usersRouter := v1.NewUsersRouter(auth, slogger)
	healthRouter := api.NewHealthRouter(health, slogger)

	apiKeys := apimiddleware.NewAuthConfig(cfg.APIKeys())
	if apiKeys.Enabled() {
		slogger.Info("API key authentication enabled")
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(apimiddleware.APIKey(apiKeys))
		r.Mount("/users", usersRouter.Routes())
		r.Mount("/", authRouter.Routes())
	})

	router.Mount("/health", healthRouter.Routes())

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, `{"name":"facegate","version":%q}`, version)
	})

	// Graceful shutdown on SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := server.Start(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
