// Package v1 implements the versioned HTTP API.
package v1

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/application/service"
	"github.com/facegate/facegate/infrastructure/api/middleware"
	"github.com/facegate/facegate/infrastructure/api/v1/dto"
	"github.com/facegate/facegate/internal/validate"
)

// AuthRouter handles registration and verification endpoints.
type AuthRouter struct {
	auth            *service.Auth
	maxImageBytes   int64
	nearMatchCutoff float64
	logger          *slog.Logger
}

// NewAuthRouter creates a new AuthRouter.
func NewAuthRouter(auth *service.Auth, maxImageBytes int64, nearMatchCutoff float64, logger *slog.Logger) *AuthRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthRouter{
		auth:            auth,
		maxImageBytes:   maxImageBytes,
		nearMatchCutoff: nearMatchCutoff,
		logger:          logger,
	}
}

// Routes returns the chi router for auth endpoints.
func (rt *AuthRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", rt.Register)
	router.Post("/verify", rt.Verify)
	router.Post("/verify/frame", rt.VerifyFrame)

	return router
}

// Register handles POST /api/v1/register.
func (rt *AuthRouter) Register(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	userID, err := formUserID(req, rt.maxImageBytes)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	image, err := formImage(req, rt.maxImageBytes)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	result, err := rt.auth.Register(ctx, userID, image)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.RegisterResponse{
		Message:     fmt.Sprintf("user %d registered", result.UserID()),
		UserID:      result.UserID(),
		EmbeddingID: result.EmbeddingID(),
	})
}

// Verify handles POST /api/v1/verify. A non-match is HTTP 401 carrying the
// best similarity so clients can display how close the attempt was.
func (rt *AuthRouter) Verify(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	image, err := formImage(req, rt.maxImageBytes)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	result, err := rt.auth.Verify(ctx, image)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	body := dto.VerifyResponse{
		Matched:    result.Matched(),
		Similarity: result.Similarity(),
	}
	if result.Matched() {
		body.UserID = result.UserID()
		middleware.WriteJSON(w, http.StatusOK, body)
		return
	}
	middleware.WriteJSON(w, http.StatusUnauthorized, body)
}

// VerifyFrame handles POST /api/v1/verify/frame. Always 200 on a processed
// frame; the body carries the decision, the threshold, and ranked near-matches
// above the display cutoff.
func (rt *AuthRouter) VerifyFrame(w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	image, err := formImage(req, rt.maxImageBytes)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	result, err := rt.auth.VerifyFrame(ctx, image)
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	near := make([]dto.NearMatch, 0, len(result.Others()))
	for _, m := range result.Others() {
		if m.Similarity() < rt.nearMatchCutoff {
			break
		}
		near = append(near, dto.NearMatch{
			UserID:     m.UserID(),
			Similarity: m.Similarity(),
		})
	}

	body := dto.FrameVerifyResponse{
		Matched:     result.Matched(),
		FaceFound:   result.FaceFound(),
		Similarity:  result.Similarity(),
		Threshold:   result.Threshold(),
		NearMatches: near,
	}
	if result.Matched() {
		body.UserID = result.UserID()
	}
	middleware.WriteJSON(w, http.StatusOK, body)
}

// formUserID extracts and parses the user_id multipart field.
func formUserID(req *http.Request, maxBytes int64) (int64, error) {
	if err := parseMultipart(req, maxBytes); err != nil {
		return 0, err
	}
	raw := req.FormValue("user_id")
	if raw == "" {
		return 0, fmt.Errorf("%w: user_id is required", validate.ErrValidation)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: user_id must be a positive integer", validate.ErrValidation)
	}
	return id, nil
}

// formImage extracts the image multipart file.
func formImage(req *http.Request, maxBytes int64) ([]byte, error) {
	if err := parseMultipart(req, maxBytes); err != nil {
		return nil, err
	}
	file, _, err := req.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("%w: image file is required", validate.ErrValidation)
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", validate.ErrValidation, err)
	}
	return data, nil
}

func parseMultipart(req *http.Request, maxBytes int64) error {
	if req.MultipartForm != nil {
		return nil
	}
	if err := req.ParseMultipartForm(maxBytes + 1); err != nil {
		return fmt.Errorf("%w: multipart form expected: %v", validate.ErrValidation, err)
	}
	return nil
}
