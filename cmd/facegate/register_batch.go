package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/facegate/facegate/application/service"
	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/infrastructure/cache"
	"github.com/facegate/facegate/infrastructure/extractor"
	"github.com/facegate/facegate/infrastructure/persistence"
	"github.com/facegate/facegate/infrastructure/similarity"
	"github.com/facegate/facegate/internal/database"
	"github.com/facegate/facegate/internal/log"
	"github.com/facegate/facegate/internal/validate"
)

func registerBatchCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "register-batch <dir>",
		Short: "Register every face image in a directory",
		Long: `Register every face image in a directory.

Each file must be named <user_id>.<ext> (e.g. 42.jpg); the user ID is taken
from the file name. Supported extensions: jpg, jpeg, png, webp. Users that
already have an active embedding are skipped, so the command is safe to
re-run after adding new images.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegisterBatch(envFile, args[0])
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	return cmd
}

func runRegisterBatch(envFile, dir string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	if !cfg.Extractor().IsConfigured() {
		return fmt.Errorf("extractor service not configured: set EXTRACTOR_BASE_URL")
	}

	logger := log.Configure(cfg)
	slogger := logger.Slog()

	db, err := database.NewDatabase(context.Background(), cfg.DBURL())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slogger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if err := persistence.AutoMigrate(db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store := persistence.NewEmbeddingStore(db, slogger)
	engine := similarity.NewEngine(slogger)
	corpusCache := cache.NewCorpusCache(store, engine, cfg.CacheTTL(), cfg.Store(), slogger)
	extractorClient := extractor.NewClientFromConfig(cfg.Extractor(), slogger)
	validator := validate.NewImageValidator(cfg.MaxImageBytes())
	auth := service.NewAuth(store, extractorClient, corpusCache, engine, validator, cfg.SimilarityThreshold(), slogger)

	start := time.Now()
	summary, err := registerDir(context.Background(), auth, dir, slogger)
	if err != nil {
		return err
	}

	slogger.Info("batch registration finished",
		"registered", summary.registered,
		"skipped", summary.skipped,
		"failed", summary.failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	if summary.failed > 0 {
		return fmt.Errorf("%d file(s) failed to register", summary.failed)
	}
	return nil
}

// batchSummary counts the outcomes of one directory pass.
type batchSummary struct {
	registered int
	skipped    int
	failed     int
}

// registerDir registers every supported image in dir, taking the user ID
// from the file name. Already-registered users count as skipped; files
// without a positive numeric stem or with failing extractions count as
// failed without aborting the pass.
func registerDir(ctx context.Context, auth *service.Auth, dir string, logger *slog.Logger) (batchSummary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return batchSummary{}, fmt.Errorf("read directory: %w", err)
	}

	var summary batchSummary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		switch ext {
		case ".jpg", ".jpeg", ".png", ".webp":
		default:
			continue
		}

		userID, err := strconv.ParseInt(strings.TrimSuffix(name, filepath.Ext(name)), 10, 64)
		if err != nil || userID <= 0 {
			logger.Warn("file name is not a user ID", "file", name)
			summary.failed++
			continue
		}

		image, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("read image failed", "file", name, "error", err)
			summary.failed++
			continue
		}

		result, err := auth.Register(ctx, userID, image)
		switch {
		case err == nil:
			logger.Info("registered", "file", name, "user_id", userID, "dim", result.Dim())
			summary.registered++
		case errors.Is(err, embedding.ErrDuplicateUser):
			logger.Info("already registered, skipping", "file", name, "user_id", userID)
			summary.skipped++
		default:
			logger.Warn("registration failed", "file", name, "user_id", userID, "error", err)
			summary.failed++
		}
	}

	return summary, nil
}
