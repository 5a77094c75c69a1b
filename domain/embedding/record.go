// Package embedding contains the core domain types for facial embedding
// storage and comparison.
package embedding

import "time"

// Record is a stored facial embedding bound to a user identity.
type Record struct {
	id        int64
	userID    int64
	vector    []float64
	createdAt time.Time
	active    bool
}

// NewRecord creates a Record for insertion (no store-assigned ID yet).
func NewRecord(userID int64, vector []float64) Record {
	vec := make([]float64, len(vector))
	copy(vec, vector)
	return Record{
		userID: userID,
		vector: vec,
		active: true,
	}
}

// ReconstructRecord rebuilds a Record from persisted state.
func ReconstructRecord(id, userID int64, vector []float64, createdAt time.Time, active bool) Record {
	vec := make([]float64, len(vector))
	copy(vec, vector)
	return Record{
		id:        id,
		userID:    userID,
		vector:    vec,
		createdAt: createdAt,
		active:    active,
	}
}

// ID returns the store-assigned record identifier.
func (r Record) ID() int64 { return r.id }

// UserID returns the owning user identifier.
func (r Record) UserID() int64 { return r.userID }

// Vector returns the embedding vector (copy).
func (r Record) Vector() []float64 {
	vec := make([]float64, len(r.vector))
	copy(vec, r.vector)
	return vec
}

// Dim returns the vector length.
func (r Record) Dim() int { return len(r.vector) }

// CreatedAt returns the record creation time.
func (r Record) CreatedAt() time.Time { return r.createdAt }

// Active reports whether the record participates in verification.
func (r Record) Active() bool { return r.active }
