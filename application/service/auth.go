// Package service contains the application-level orchestrators.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/infrastructure/cache"
	"github.com/facegate/facegate/infrastructure/similarity"
	"github.com/facegate/facegate/internal/validate"
)

// RegisterResult reports a completed registration.
type RegisterResult struct {
	userID      int64
	embeddingID int64
	dim         int
}

// UserID returns the registered user ID.
func (r RegisterResult) UserID() int64 { return r.userID }

// EmbeddingID returns the store-assigned embedding record ID.
func (r RegisterResult) EmbeddingID() int64 { return r.embeddingID }

// Dim returns the embedding vector length.
func (r RegisterResult) Dim() int { return r.dim }

// VerifyResult reports the outcome of a verification attempt.
type VerifyResult struct {
	matched    bool
	faceFound  bool
	userID     string
	similarity float64
	threshold  float64
	others     []embedding.Match
}

// Matched reports whether the best similarity met the threshold.
func (r VerifyResult) Matched() bool { return r.matched }

// FaceFound reports whether the extractor detected a face in the image.
func (r VerifyResult) FaceFound() bool { return r.faceFound }

// UserID returns the best-matching user ID ("" when the corpus is empty).
func (r VerifyResult) UserID() string { return r.userID }

// Similarity returns the best cosine similarity.
func (r VerifyResult) Similarity() float64 { return r.similarity }

// Threshold returns the acceptance threshold used for the decision.
func (r VerifyResult) Threshold() float64 { return r.threshold }

// Others returns the ranked matches below the best one.
func (r VerifyResult) Others() []embedding.Match { return r.others }

// Auth orchestrates registration and verification. It is stateless per
// request: every call validates, extracts, reads the cached corpus, and
// decides against the configured threshold.
type Auth struct {
	store     embedding.Store
	extractor embedding.Extractor
	cache     *cache.CorpusCache
	engine    *similarity.Engine
	validator *validate.ImageValidator
	threshold float64
	logger    *slog.Logger
}

// NewAuth creates a new Auth orchestrator.
func NewAuth(
	store embedding.Store,
	extractor embedding.Extractor,
	corpusCache *cache.CorpusCache,
	engine *similarity.Engine,
	validator *validate.ImageValidator,
	threshold float64,
	logger *slog.Logger,
) *Auth {
	if logger == nil {
		logger = slog.Default()
	}
	return &Auth{
		store:     store,
		extractor: extractor,
		cache:     corpusCache,
		engine:    engine,
		validator: validator,
		threshold: threshold,
		logger:    logger,
	}
}

// Register extracts an embedding from the image and stores it for the user.
// The cache is invalidated strictly after the durable write so the user is
// matchable on the very next verification. Registration is never retried:
// a duplicate user is rejected with embedding.ErrDuplicateUser.
func (a *Auth) Register(ctx context.Context, userID int64, image []byte) (RegisterResult, error) {
	if err := a.validator.Validate(image); err != nil {
		return RegisterResult{}, err
	}

	vector, err := a.extractor.Extract(ctx, image)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("extract embedding: %w", err)
	}

	exists, err := a.store.ExistsForUser(ctx, userID)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("check existing registration: %w", err)
	}
	if exists {
		return RegisterResult{}, embedding.ErrDuplicateUser
	}

	embeddingID, err := a.store.Insert(ctx, userID, vector)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("store embedding: %w", err)
	}

	a.cache.Invalidate()

	a.logger.InfoContext(ctx, "user registered",
		"user_id", userID,
		"embedding_id", embeddingID,
		"dim", len(vector),
	)

	return RegisterResult{
		userID:      userID,
		embeddingID: embeddingID,
		dim:         len(vector),
	}, nil
}

// Verify extracts an embedding from the image and compares it against the
// cached corpus. The best similarity meeting the threshold (>=) is a match.
// An empty corpus is a valid non-match, not an error.
func (a *Auth) Verify(ctx context.Context, image []byte) (VerifyResult, error) {
	if err := a.validator.Validate(image); err != nil {
		return VerifyResult{}, err
	}

	vector, err := a.extractor.Extract(ctx, image)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("extract embedding: %w", err)
	}

	return a.verifyVector(ctx, vector)
}

// VerifyFrame behaves like Verify but tolerates faceless frames: a frame
// without a detectable face yields a non-match result instead of an error,
// so interactive clients can stream frames without error handling per frame.
func (a *Auth) VerifyFrame(ctx context.Context, image []byte) (VerifyResult, error) {
	if err := a.validator.Validate(image); err != nil {
		return VerifyResult{}, err
	}

	vector, err := a.extractor.Extract(ctx, image)
	if err != nil {
		if errors.Is(err, embedding.ErrFaceNotFound) {
			return VerifyResult{threshold: a.threshold}, nil
		}
		return VerifyResult{}, fmt.Errorf("extract embedding: %w", err)
	}

	return a.verifyVector(ctx, vector)
}

func (a *Auth) verifyVector(ctx context.Context, vector []float64) (VerifyResult, error) {
	snap, err := a.cache.Snapshot(ctx)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("load corpus: %w", err)
	}

	result := VerifyResult{threshold: a.threshold, faceFound: true}

	if snap.Corpus().Empty() {
		a.logger.WarnContext(ctx, "verification against empty corpus")
		return result, nil
	}

	matches := a.engine.Compare(vector, snap.Prepared())
	if len(matches) == 0 {
		return result, nil
	}

	best := matches[0]
	result.userID = best.UserID()
	result.similarity = best.Similarity()
	result.matched = best.Similarity() >= a.threshold
	result.others = matches[1:]

	a.logger.InfoContext(ctx, "verification completed",
		"matched", result.matched,
		"user_id", result.userID,
		"similarity", result.similarity,
		"threshold", a.threshold,
		"corpus_size", snap.Corpus().Len(),
	)

	return result, nil
}

// ListUsers returns the IDs of all users with an active embedding.
func (a *Auth) ListUsers(ctx context.Context) ([]int64, error) {
	ids, err := a.store.ActiveUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// DeleteUser deactivates the user's embedding and invalidates the cache.
func (a *Auth) DeleteUser(ctx context.Context, userID int64) error {
	if err := a.store.Deactivate(ctx, userID); err != nil {
		return err
	}

	a.cache.Invalidate()

	a.logger.InfoContext(ctx, "user deleted", "user_id", userID)
	return nil
}
