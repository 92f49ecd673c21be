package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/session"
)

// CSRFHeader carries the anti-forgery token on write requests
const CSRFHeader = "X-CSRF-Token"

const maxCSRFBody = 1 << 20

// Sessions binds the session manager to HTTP cookies
type Sessions struct {
	manager    *session.Manager
	cookieName string
	secure     bool
	logger     *zap.Logger
}

// NewSessions creates the cookie layer. secure forces the Secure flag even
// for plain HTTP requests.
func NewSessions(manager *session.Manager, cookieName string, secure bool, logger *zap.Logger) *Sessions {
	if cookieName == "" {
		cookieName = "todostack_session"
	}
	return &Sessions{
		manager:    manager,
		cookieName: cookieName,
		secure:     secure,
		logger:     logger,
	}
}

func (s *Sessions) isSecure(r *http.Request) bool {
	return s.secure || r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SetCookie issues the cookie for sess
func (s *Sessions) SetCookie(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isSecure(r),
		SameSite: http.SameSiteStrictMode,
	})
}

// Load resolves the session cookie and stores the session in the request
// context, creating an anonymous session when needed.
func (s *Sessions) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(s.cookieName); err == nil {
			id = c.Value
		}

		sess, created, err := s.manager.Start(r.Context(), id)
		if err != nil {
			s.logger.Error("failed to start session",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if created {
			s.SetCookie(w, r, sess)
		}

		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// RequireAuth rejects anonymous or timed out sessions with 401
func (s *Sessions) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		ok, err := s.manager.Check(r.Context(), sess)
		if err != nil {
			s.logger.Error("failed to refresh session", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin lets only admin sessions through
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireWriter rejects write requests from roles that may only read
func RequireWriter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isWrite(r.Method) && !session.FromContext(r.Context()).CanWrite() {
			writeError(w, http.StatusForbidden, "Read-only access")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isWrite(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// CSRF rejects write requests whose token does not match the session.
// The token is read from the X-CSRF-Token header, else from the
// csrf_token field of a JSON body.
func CSRF(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isWrite(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token := r.Header.Get(CSRFHeader)
			if token == "" && r.Body != nil {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxCSRFBody))
				if err != nil {
					writeError(w, http.StatusBadRequest, "Invalid request body")
					return
				}
				r.Body.Close()
				r.Body = io.NopCloser(bytes.NewReader(body))

				var payload struct {
					CSRFToken string `json:"csrf_token"`
				}
				if json.Unmarshal(body, &payload) == nil {
					token = payload.CSRFToken
				}
			}

			if !session.ValidateCSRF(session.FromContext(r.Context()), token) {
				logger.Warn("csrf validation failed",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
				)
				writeError(w, http.StatusForbidden, "Invalid CSRF token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
