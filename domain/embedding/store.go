package embedding

import "context"

// Store defines persistence operations for facial embeddings.
// Implementations must be safe for concurrent reads: verification traffic
// refetches the whole active corpus and may race on cache misses.
type Store interface {
	// Insert persists a new active embedding for the user and returns the
	// store-assigned record ID.
	Insert(ctx context.Context, userID int64, vector []float64) (int64, error)

	// FetchAllActive retrieves every active embedding record.
	FetchAllActive(ctx context.Context) ([]Record, error)

	// ExistsForUser reports whether the user has an active embedding.
	ExistsForUser(ctx context.Context, userID int64) (bool, error)

	// Deactivate marks the user's active embeddings inactive.
	// Returns ErrUserNotFound when the user has none.
	Deactivate(ctx context.Context, userID int64) error

	// ActiveUserIDs lists the distinct user IDs with active embeddings.
	ActiveUserIDs(ctx context.Context) ([]int64, error)

	// Ping verifies store connectivity.
	Ping(ctx context.Context) error
}

// Extractor converts image bytes into a facial embedding vector.
// It is an external collaborator: a black box with contract
// "image bytes in, fixed-length float vector out, or ErrFaceNotFound".
type Extractor interface {
	Extract(ctx context.Context, image []byte) ([]float64, error)
}
