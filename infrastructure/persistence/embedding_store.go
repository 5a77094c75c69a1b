package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/internal/database"
)

// EmbeddingStore implements embedding.Store using GORM.
// Vectors are stored as JSON; similarity math happens in the comparison
// engine, never in SQL.
type EmbeddingStore struct {
	db     database.Database
	mapper embeddingMapper
	logger *slog.Logger
}

// NewEmbeddingStore creates a new EmbeddingStore.
func NewEmbeddingStore(db database.Database, logger *slog.Logger) *EmbeddingStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmbeddingStore{
		db:     db,
		mapper: embeddingMapper{},
		logger: logger,
	}
}

// Insert persists a new active embedding and returns the assigned record ID.
func (s *EmbeddingStore) Insert(ctx context.Context, userID int64, vector []float64) (int64, error) {
	vec := make(Float64Slice, len(vector))
	copy(vec, vector)

	model := EmbeddingModel{
		UserID:    userID,
		Vector:    vec,
		Active:    true,
		CreatedAt: time.Now(),
	}

	if err := s.db.Session(ctx).Create(&model).Error; err != nil {
		return 0, fmt.Errorf("%w: insert embedding: %v", embedding.ErrStoreUnavailable, err)
	}
	return model.ID, nil
}

// FetchAllActive retrieves every active embedding record.
func (s *EmbeddingStore) FetchAllActive(ctx context.Context) ([]embedding.Record, error) {
	var models []EmbeddingModel
	err := s.db.Session(ctx).
		Where("active = ?", true).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: fetch active embeddings: %v", embedding.ErrStoreUnavailable, err)
	}

	records := make([]embedding.Record, len(models))
	for i, m := range models {
		records[i] = s.mapper.ToDomain(m)
	}
	return records, nil
}

// ExistsForUser reports whether the user has an active embedding.
func (s *EmbeddingStore) ExistsForUser(ctx context.Context, userID int64) (bool, error) {
	var count int64
	err := s.db.Session(ctx).
		Model(&EmbeddingModel{}).
		Where("user_id = ? AND active = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("%w: check user embedding: %v", embedding.ErrStoreUnavailable, err)
	}
	return count > 0, nil
}

// Deactivate marks the user's active embeddings inactive.
// Returns embedding.ErrUserNotFound when the user has none.
func (s *EmbeddingStore) Deactivate(ctx context.Context, userID int64) error {
	result := s.db.Session(ctx).
		Model(&EmbeddingModel{}).
		Where("user_id = ? AND active = ?", userID, true).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("%w: deactivate embedding: %v", embedding.ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return embedding.ErrUserNotFound
	}

	s.logger.DebugContext(ctx, "deactivated embeddings", "user_id", userID, "rows", result.RowsAffected)
	return nil
}

// ActiveUserIDs lists the distinct user IDs with active embeddings.
func (s *EmbeddingStore) ActiveUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.db.Session(ctx).
		Model(&EmbeddingModel{}).
		Where("active = ?", true).
		Distinct().
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list active users: %v", embedding.ErrStoreUnavailable, err)
	}
	return ids, nil
}

// Ping verifies store connectivity.
func (s *EmbeddingStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", embedding.ErrStoreUnavailable, err)
	}
	return nil
}
