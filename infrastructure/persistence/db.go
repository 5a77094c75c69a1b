// Package persistence provides database storage implementations.
package persistence

import (
	"context"

	"github.com/facegate/facegate/internal/database"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db database.Database) error {
	return db.Session(context.Background()).AutoMigrate(
		&EmbeddingModel{},
	)
}
