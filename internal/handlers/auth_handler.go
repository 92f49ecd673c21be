package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
	"github.com/your-org/todostack/internal/metrics"
	"github.com/your-org/todostack/internal/middleware"
	"github.com/your-org/todostack/internal/session"
	"github.com/your-org/todostack/internal/usecases"
)

// AuthHandler handles login, logout and first-run setup
type AuthHandler struct {
	responder
	manager  *session.Manager
	sessions *middleware.Sessions
	users    *usecases.UserUsecase
	metrics  *metrics.Metrics
}

// NewAuthHandler creates a new auth handler. m may be nil.
func NewAuthHandler(manager *session.Manager, sessions *middleware.Sessions, users *usecases.UserUsecase, m *metrics.Metrics, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		responder: responder{logger: logger},
		manager:   manager,
		sessions:  sessions,
		users:     users,
		metrics:   m,
	}
}

type credentials struct {
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type setupRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type loginResponse struct {
	User      *domain.PublicUser `json:"user"`
	CSRFToken string             `json:"csrf_token"`
}

type statusResponse struct {
	Authenticated bool               `json:"authenticated"`
	User          *domain.PublicUser `json:"user"`
	CSRFToken     string             `json:"csrf_token"`
	SetupRequired bool               `json:"setup_required"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := required(field{"email", req.Email}, field{"password", req.Password}); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.login(w, r, *req.Email, *req.Password, http.StatusOK)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, email, password string, status int) {
	sess, user, err := h.manager.Login(r.Context(), session.FromContext(r.Context()), middleware.ClientIP(r), email, password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRateLimited):
			h.metrics.ObserveLogin(metrics.LoginLocked)
		case errors.Is(err, domain.ErrUnauthorized):
			h.metrics.ObserveLogin(metrics.LoginFailure)
		}
		h.respondErr(w, r, err)
		return
	}
	h.metrics.ObserveLogin(metrics.LoginSuccess)

	h.sessions.SetCookie(w, r, sess)
	h.respondJSON(w, r, status, loginResponse{User: user.Public(), CSRFToken: sess.CSRFToken})
}

// Logout handles POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := h.manager.Logout(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.sessions.SetCookie(w, r, sess)
	h.respondJSON(w, r, http.StatusOK, nil)
}

// Status handles GET /api/auth/status. It also hands anonymous clients
// the anti-forgery token they need to log in.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := session.FromContext(ctx)

	authenticated, err := h.manager.Check(ctx, sess)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	resp := statusResponse{Authenticated: authenticated, CSRFToken: sess.CSRFToken}
	if authenticated {
		user, err := h.users.Get(ctx, sess.UserID)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			resp.Authenticated = false
		case err != nil:
			h.respondErr(w, r, err)
			return
		default:
			resp.User = user
		}
	}

	hasUsers, err := h.users.HasUsers(ctx)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	resp.SetupRequired = !hasUsers

	h.respondJSON(w, r, http.StatusOK, resp)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	user, err := h.users.Get(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.respondError(w, r, http.StatusUnauthorized, "Not authenticated")
			return
		}
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, user)
}

// Setup handles POST /api/auth/setup. It creates the first account as
// super admin and logs it in; once any account exists it is forbidden.
func (h *AuthHandler) Setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := required(field{"name", req.Name}, field{"email", req.Email}, field{"password", req.Password}); err != nil {
		h.respondErr(w, r, err)
		return
	}

	if _, err := h.users.Setup(r.Context(), usecases.NewUser{
		Name:     *req.Name,
		Email:    *req.Email,
		Password: *req.Password,
	}); err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.logger.Info("first-run setup completed", zap.String("request_id", middleware.GetRequestID(r.Context())))

	h.login(w, r, *req.Email, *req.Password, http.StatusCreated)
}
