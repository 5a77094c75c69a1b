package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/infrastructure/cache"
	"github.com/facegate/facegate/infrastructure/persistence"
	"github.com/facegate/facegate/infrastructure/similarity"
	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/testdb"
	"github.com/facegate/facegate/internal/validate"
)

// fakeExtractor returns a preset vector or error for the next Extract call.
type fakeExtractor struct {
	next []float64
	err  error
}

func (f *fakeExtractor) Extract(context.Context, []byte) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]float64, len(f.next))
	copy(out, f.next)
	return out, nil
}

type authFixture struct {
	auth      *Auth
	extractor *fakeExtractor
	store     *persistence.EmbeddingStore
}

func newAuthFixture(t *testing.T, threshold float64) *authFixture {
	t.Helper()
	db := testdb.New(t)
	store := persistence.NewEmbeddingStore(db, nil)
	engine := similarity.NewEngine(nil)
	corpusCache := cache.NewCorpusCache(store, engine, config.DefaultCacheTTL, config.NewStoreConfig(), nil)
	extractor := &fakeExtractor{}
	validator := validate.NewImageValidator(config.DefaultMaxImageBytes)

	return &authFixture{
		auth:      NewAuth(store, extractor, corpusCache, engine, validator, threshold, nil),
		extractor: extractor,
		store:     store,
	}
}

func testImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 128, 128))))
	return buf.Bytes()
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)
	f.extractor.next = []float64{1, 0, 0}

	result, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)
	assert.Equal(t, int64(42), result.UserID())
	assert.Positive(t, result.EmbeddingID())
	assert.Equal(t, 3, result.Dim())

	ids, err := f.auth.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)
}

func TestAuth_Register_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)
	f.extractor.next = []float64{1, 0, 0}

	_, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)

	_, err = f.auth.Register(ctx, 42, testImage(t))
	assert.ErrorIs(t, err, embedding.ErrDuplicateUser)

	// The conflict must not overwrite the original embedding.
	records, err := f.store.FetchAllActive(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestAuth_Register_InvalidImage(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	_, err := f.auth.Register(ctx, 42, []byte("not an image"))
	assert.ErrorIs(t, err, validate.ErrValidation)
}

func TestAuth_Register_NoFace(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)
	f.extractor.err = embedding.ErrFaceNotFound

	_, err := f.auth.Register(ctx, 42, testImage(t))
	assert.ErrorIs(t, err, embedding.ErrFaceNotFound)
}

func TestAuth_Verify_Match(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	f.extractor.next = []float64{1, 0, 0}
	_, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)

	f.extractor.next = []float64{0.99, 0.1, 0}
	result, err := f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)

	assert.True(t, result.Matched())
	assert.Equal(t, "42", result.UserID())
	assert.GreaterOrEqual(t, result.Similarity(), 0.8)
	assert.Equal(t, 0.8, result.Threshold())
}

func TestAuth_Verify_NonMatch(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	f.extractor.next = []float64{1, 0, 0}
	_, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)

	f.extractor.next = []float64{0, 1, 0}
	result, err := f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)

	assert.False(t, result.Matched())
	assert.Equal(t, "42", result.UserID(), "best candidate is still reported")
	assert.Less(t, result.Similarity(), 0.8)
}

func TestAuth_Verify_ThresholdIsInclusive(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 1.0)

	f.extractor.next = []float64{1, 0, 0}
	_, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)

	f.extractor.next = []float64{1, 0, 0}
	result, err := f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)

	assert.True(t, result.Matched(), "similarity equal to the threshold accepts")
}

func TestAuth_Verify_EmptyCorpus(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)
	f.extractor.next = []float64{1, 0, 0}

	result, err := f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)

	assert.False(t, result.Matched())
	assert.Empty(t, result.UserID())
	assert.Zero(t, result.Similarity())
}

func TestAuth_Verify_SeesRegistrationImmediately(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	// Warm the cache with an empty corpus.
	f.extractor.next = []float64{1, 0, 0}
	result, err := f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)
	require.False(t, result.Matched())

	// Register, then verify again: invalidation must expose the new user
	// without waiting for TTL expiry.
	_, err = f.auth.Register(ctx, 7, testImage(t))
	require.NoError(t, err)

	result, err = f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)
	assert.True(t, result.Matched())
	assert.Equal(t, "7", result.UserID())
}

func TestAuth_Verify_OthersRanked(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	f.extractor.next = []float64{1, 0, 0}
	_, err := f.auth.Register(ctx, 1, testImage(t))
	require.NoError(t, err)
	f.extractor.next = []float64{0.9, 0.4, 0}
	_, err = f.auth.Register(ctx, 2, testImage(t))
	require.NoError(t, err)
	f.extractor.next = []float64{0, 0, 1}
	_, err = f.auth.Register(ctx, 3, testImage(t))
	require.NoError(t, err)

	f.extractor.next = []float64{1, 0, 0}
	result, err := f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)

	assert.Equal(t, "1", result.UserID())
	require.Len(t, result.Others(), 2)
	assert.Equal(t, "2", result.Others()[0].UserID())
	assert.Equal(t, "3", result.Others()[1].UserID())
	assert.Greater(t, result.Others()[0].Similarity(), result.Others()[1].Similarity())
}

func TestAuth_VerifyFrame_NoFaceIsNonMatch(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)
	f.extractor.err = embedding.ErrFaceNotFound

	result, err := f.auth.VerifyFrame(ctx, testImage(t))
	require.NoError(t, err)
	assert.False(t, result.Matched())
	assert.Equal(t, 0.8, result.Threshold())
}

func TestAuth_VerifyFrame_Match(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	f.extractor.next = []float64{1, 0, 0}
	_, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)

	result, err := f.auth.VerifyFrame(ctx, testImage(t))
	require.NoError(t, err)
	assert.True(t, result.Matched())
	assert.Equal(t, "42", result.UserID())
}

func TestAuth_DeleteUser(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	f.extractor.next = []float64{1, 0, 0}
	_, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)

	require.NoError(t, f.auth.DeleteUser(ctx, 42))

	ids, err := f.auth.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Deleted users must not match even though the cache was warm.
	result, err := f.auth.Verify(ctx, testImage(t))
	require.NoError(t, err)
	assert.False(t, result.Matched())
}

func TestAuth_DeleteUser_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	err := f.auth.DeleteUser(ctx, 999)
	assert.ErrorIs(t, err, embedding.ErrUserNotFound)
}

func TestAuth_DeletedUserCanReRegister(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, 0.8)

	f.extractor.next = []float64{1, 0, 0}
	_, err := f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)
	require.NoError(t, f.auth.DeleteUser(ctx, 42))

	f.extractor.next = []float64{0, 1, 0}
	_, err = f.auth.Register(ctx, 42, testImage(t))
	require.NoError(t, err)

	ids, err := f.auth.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, ids)
}
