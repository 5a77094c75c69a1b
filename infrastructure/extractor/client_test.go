package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facegate/facegate/domain/embedding"
)

func fastClient(url string, opts ...Option) *Client {
	base := []Option{
		WithMaxRetries(2),
		WithInitialDelay(time.Millisecond),
	}
	return NewClient(url, append(base, opts...)...)
}

func TestClient_Extract_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/extract", r.URL.Path)

		require.NoError(t, r.ParseMultipartForm(10<<20))
		file, _, err := r.FormFile("image")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	}))
	defer srv.Close()

	client := fastClient(srv.URL)
	vec, err := client.Extract(context.Background(), []byte("fake-image"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestClient_Extract_SendsAuthAndModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(10<<20))
		assert.Equal(t, "facenet512", r.FormValue("model"))

		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{1}})
	}))
	defer srv.Close()

	client := fastClient(srv.URL, WithAPIKey("secret"), WithModel("facenet512"))
	_, err := client.Extract(context.Background(), []byte("img"))
	require.NoError(t, err)
}

func TestClient_Extract_NoFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "no face detected"})
	}))
	defer srv.Close()

	client := fastClient(srv.URL)
	_, err := client.Extract(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, embedding.ErrFaceNotFound)
}

func TestClient_Extract_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.5}})
	}))
	defer srv.Close()

	client := fastClient(srv.URL)
	vec, err := client.Extract(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, vec)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClient_Extract_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := fastClient(srv.URL)
	_, err := client.Extract(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, embedding.ErrExtractorUnavailable)
	assert.EqualValues(t, 3, calls.Load(), "initial attempt plus two retries")
}

func TestClient_Extract_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unsupported format"})
	}))
	defer srv.Close()

	client := fastClient(srv.URL)
	_, err := client.Extract(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, embedding.ErrExtractorUnavailable)
	assert.Contains(t, err.Error(), "unsupported format")
	assert.EqualValues(t, 1, calls.Load())
}

func TestClient_Extract_ConnectionRefused(t *testing.T) {
	client := fastClient("http://127.0.0.1:1")
	_, err := client.Extract(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, embedding.ErrExtractorUnavailable)
}

func TestClient_Extract_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{}})
	}))
	defer srv.Close()

	client := fastClient(srv.URL)
	_, err := client.Extract(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, embedding.ErrExtractorUnavailable)
}

func TestClient_Extract_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := fastClient(srv.URL)
	_, err := client.Extract(ctx, []byte("img"))
	assert.ErrorIs(t, err, context.Canceled)
}
