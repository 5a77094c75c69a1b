package v1

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/facegate/facegate/application/service"
	"github.com/facegate/facegate/infrastructure/api/middleware"
	"github.com/facegate/facegate/infrastructure/api/v1/dto"
	"github.com/facegate/facegate/internal/validate"
)

// UsersRouter handles user management endpoints.
type UsersRouter struct {
	auth   *service.Auth
	logger *slog.Logger
}

// NewUsersRouter creates a new UsersRouter.
func NewUsersRouter(auth *service.Auth, logger *slog.Logger) *UsersRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &UsersRouter{
		auth:   auth,
		logger: logger,
	}
}

// Routes returns the chi router for user endpoints.
func (rt *UsersRouter) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", rt.List)
	router.Delete("/{id}", rt.Delete)

	return router
}

// List handles GET /api/v1/users.
func (rt *UsersRouter) List(w http.ResponseWriter, req *http.Request) {
	ids, err := rt.auth.ListUsers(req.Context())
	if err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	middleware.WriteJSON(w, http.StatusOK, dto.UsersResponse{
		Users: ids,
		Count: len(ids),
	})
}

// Delete handles DELETE /api/v1/users/{id}.
func (rt *UsersRouter) Delete(w http.ResponseWriter, req *http.Request) {
	raw := chi.URLParam(req, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, req,
			fmt.Errorf("%w: user id must be a positive integer", validate.ErrValidation),
			rt.logger)
		return
	}

	if err := rt.auth.DeleteUser(req.Context(), id); err != nil {
		middleware.WriteError(w, req, err, rt.logger)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.DeleteUserResponse{
		Message: fmt.Sprintf("user %d deleted", id),
		UserID:  id,
	})
}
