package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
	"github.com/your-org/todostack/internal/usecases"
)

// UserHandler handles account management. Every route is admin-only.
type UserHandler struct {
	responder
	usecase *usecases.UserUsecase
}

// NewUserHandler creates a new user handler
func NewUserHandler(usecase *usecases.UserUsecase, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		responder: responder{logger: logger},
		usecase:   usecase,
	}
}

type createUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

type passwordRequest struct {
	Password *string `json:"password"`
}

// ListUsers handles GET /api/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.usecase.List(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, users)
}

// GetUser handles GET /api/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.usecase.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// CreateUser handles POST /api/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := required(field{"email", req.Email}, field{"password", req.Password}, field{"role", req.Role}); err != nil {
		h.respondErr(w, r, err)
		return
	}

	in := usecases.NewUser{
		Email:    *req.Email,
		Password: *req.Password,
		Role:     domain.Role(*req.Role),
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	user, err := h.usecase.Create(r.Context(), in)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, user)
}

// UpdateUser handles PUT /api/users/{id}
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch domain.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondErr(w, r, err)
		return
	}
	user, err := h.usecase.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.usecase.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, nil)
}

// ChangePassword handles POST /api/users/{id}/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := required(field{"password", req.Password}); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.usecase.ChangePassword(r.Context(), chi.URLParam(r, "id"), *req.Password); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, nil)
}
