package persistence

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/facegate/facegate/domain/embedding"
)

// Float64Slice is a custom type for JSON serialization of []float64.
type Float64Slice []float64

// Scan implements sql.Scanner for reading JSON from the database.
func (f *Float64Slice) Scan(value any) error {
	if value == nil {
		*f = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Float64Slice", value)
	}

	return json.Unmarshal(data, f)
}

// Value implements driver.Valuer for writing JSON to the database.
func (f Float64Slice) Value() (driver.Value, error) {
	if f == nil {
		return nil, nil
	}
	return json.Marshal(f)
}

// EmbeddingModel represents a facial embedding row.
type EmbeddingModel struct {
	ID        int64        `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64        `gorm:"column:user_id;index:idx_face_embeddings_user_active"`
	Vector    Float64Slice `gorm:"column:vector;type:json;not null"`
	Active    bool         `gorm:"column:active;index:idx_face_embeddings_user_active"`
	CreatedAt time.Time    `gorm:"column:created_at"`
}

// TableName returns the database table name.
func (EmbeddingModel) TableName() string { return "face_embeddings" }

// embeddingMapper maps between embedding.Record and EmbeddingModel.
type embeddingMapper struct{}

func (embeddingMapper) ToDomain(model EmbeddingModel) embedding.Record {
	return embedding.ReconstructRecord(
		model.ID,
		model.UserID,
		[]float64(model.Vector),
		model.CreatedAt,
		model.Active,
	)
}

func (embeddingMapper) ToModel(rec embedding.Record) EmbeddingModel {
	vec := rec.Vector()
	cp := make(Float64Slice, len(vec))
	copy(cp, vec)
	return EmbeddingModel{
		ID:        rec.ID(),
		UserID:    rec.UserID(),
		Vector:    cp,
		Active:    rec.Active(),
		CreatedAt: rec.CreatedAt(),
	}
}
