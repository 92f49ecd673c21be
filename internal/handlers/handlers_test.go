package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/your-org/todostack/internal/clock"
	"github.com/your-org/todostack/internal/domain"
	"github.com/your-org/todostack/internal/metrics"
	"github.com/your-org/todostack/internal/middleware"
	"github.com/your-org/todostack/internal/ratelimit"
	"github.com/your-org/todostack/internal/repositories"
	"github.com/your-org/todostack/internal/session"
	"github.com/your-org/todostack/internal/usecases"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin password"
	readerEmail   = "reader@example.com"
	readerPass    = "reader password"
)

type testAPI struct {
	handler http.Handler
	users   *usecases.UserUsecase
	clock   *clock.Manual
	metrics *metrics.Metrics
}

func newTestAPI(t *testing.T, seedUsers bool) *testAPI {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()
	clk := clock.NewManual(time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC))

	listRepo := repositories.NewFileListRepository(filepath.Join(dir, "todos.json"), logger)
	userRepo := repositories.NewFileUserRepository(filepath.Join(dir, "users.json"), logger, clk.Now)
	attemptRepo := repositories.NewFileAttemptRepository(filepath.Join(dir, "rate_limits.json"), logger)

	lists := usecases.NewListUsecase(listRepo, clk, logger)
	users := usecases.NewUserUsecase(userRepo, clk, usecases.UserConfig{MinPasswordLength: 8, BcryptCost: bcrypt.MinCost}, logger)
	limiter := ratelimit.New(attemptRepo, clk, ratelimit.DefaultConfig(), logger)

	store := session.NewStore(4, 2*time.Hour, time.Minute, clk)
	manager := session.NewManager(store, users, limiter, clk, 2*time.Hour, logger)
	sessions := middleware.NewSessions(manager, "todostack_session", false, logger)
	m := metrics.New()

	if seedUsers {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
		require.NoError(t, err)
		require.NoError(t, users.EnsureSuperAdmin(context.Background(), adminEmail, "Admin", string(hash)))
		_, err = users.Create(context.Background(), usecases.NewUser{
			Name: "Reader", Email: readerEmail, Password: readerPass, Role: domain.RoleReadonly,
		})
		require.NoError(t, err)
	}

	router := NewRouter(RouterConfig{
		List:           NewListHandler(lists, logger),
		Auth:           NewAuthHandler(manager, sessions, users, m, logger),
		Users:          NewUserHandler(users, logger),
		Health:         NewHealthHandler(repositories.NewDataDir(dir, logger), clk, logger),
		Session:        sessions,
		Metrics:        m,
		RequestTimeout: 5 * time.Second,
		Logger:         logger,
	})

	return &testAPI{handler: router, users: users, clock: clk, metrics: m}
}

// client keeps the session cookie and anti-forgery token between calls
type client struct {
	t      *testing.T
	api    *testAPI
	cookie *http.Cookie
	csrf   string
	ip     string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (a *testAPI) newClient(t *testing.T) *client {
	c := &client{t: t, api: a, ip: "192.0.2.1:4000"}
	c.refreshStatus()
	return c
}

func (c *client) do(method, path string, body interface{}) (int, envelope) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = c.ip
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.csrf != "" {
		req.Header.Set(middleware.CSRFHeader, c.csrf)
	}

	rec := httptest.NewRecorder()
	c.api.handler.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "todostack_session" {
			c.cookie = ck
		}
	}

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (c *client) refreshStatus() statusResponse {
	c.t.Helper()
	code, env := c.do(http.MethodGet, "/api/auth/status", nil)
	require.Equal(c.t, http.StatusOK, code)
	var status statusResponse
	require.NoError(c.t, json.Unmarshal(env.Data, &status))
	c.csrf = status.CSRFToken
	return status
}

func (c *client) login(email, password string) (int, envelope) {
	c.t.Helper()
	code, env := c.do(http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password})
	if code == http.StatusOK {
		var resp loginResponse
		require.NoError(c.t, json.Unmarshal(env.Data, &resp))
		c.csrf = resp.CSRFToken
	}
	return code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func loggedIn(t *testing.T, api *testAPI, email, password string) *client {
	t.Helper()
	c := api.newClient(t)
	code, env := c.login(email, password)
	require.Equal(t, http.StatusOK, code, env.Error)
	return c
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	api := newTestAPI(t, true)
	c := api.newClient(t)

	code, env := c.do(http.MethodGet, "/api/list", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)

	code, _ = c.do(http.MethodPost, "/api/sections", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLoginRequiresCSRFToken(t *testing.T) {
	api := newTestAPI(t, true)
	c := api.newClient(t)
	c.csrf = ""

	code, env := c.login(adminEmail, adminPassword)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Invalid CSRF token", env.Error)
}

func TestLoginAndStatus(t *testing.T) {
	api := newTestAPI(t, true)
	c := api.newClient(t)
	anonCSRF := c.csrf

	code, env := c.login(adminEmail, adminPassword)
	require.Equal(t, http.StatusOK, code)
	resp := decode[loginResponse](t, env)
	assert.Equal(t, adminEmail, resp.User.Email)
	assert.True(t, resp.User.IsSuperAdmin)
	assert.NotEqual(t, anonCSRF, resp.CSRFToken)
	assert.NotContains(t, string(env.Data), "password_hash")

	status := c.refreshStatus()
	assert.True(t, status.Authenticated)
	require.NotNil(t, status.User)
	assert.Equal(t, adminEmail, status.User.Email)
	assert.False(t, status.SetupRequired)

	code, env = c.do(http.MethodGet, "/api/auth/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, adminEmail, decode[domain.PublicUser](t, env).Email)

	code, env = c.do(http.MethodPost, "/api/auth/logout", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", string(env.Data))

	status = c.refreshStatus()
	assert.False(t, status.Authenticated)
	assert.Nil(t, status.User)
}

func TestLoginFailures(t *testing.T) {
	api := newTestAPI(t, true)
	c := api.newClient(t)

	code, env := c.login(adminEmail, "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: password", env.Error)

	for i := 0; i < 5; i++ {
		code, env = c.login(adminEmail, "wrong password")
		assert.Equal(t, http.StatusUnauthorized, code)
		assert.Equal(t, "Invalid email or password", env.Error)
	}

	// the sixth attempt fails even with the right password
	code, env = c.login(adminEmail, adminPassword)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Contains(t, env.Error, "Too many login attempts")

	// a different client is not affected
	other := api.newClient(t)
	other.ip = "198.51.100.9:5000"
	code, _ = other.login(adminEmail, adminPassword)
	assert.Equal(t, http.StatusOK, code)

	api.clock.Advance(15 * time.Minute)
	code, _ = c.login(adminEmail, adminPassword)
	assert.Equal(t, http.StatusOK, code)
}

func TestSectionScenario(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	code, env := c.do(http.MethodPost, "/api/sections", map[string]string{"title": "Home"})
	require.Equal(t, http.StatusCreated, code)
	code, env = c.do(http.MethodPost, "/api/sections", map[string]string{"title": "Work"})
	require.Equal(t, http.StatusCreated, code)
	work := decode[domain.Section](t, env)
	assert.Equal(t, 2, work.Position)
	assert.Equal(t, "Work", work.Title)

	code, env = c.do(http.MethodPut, "/api/sections/"+work.ID+"/reorder", map[string]int{"position": 0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, decode[domain.Section](t, env).Position)

	code, env = c.do(http.MethodGet, "/api/list", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[domain.List](t, env)
	require.Len(t, list.Sections, 3)
	assert.Equal(t, work.ID, list.Sections[0].ID)
	for i, s := range list.Sections {
		assert.Equal(t, i, s.Position)
	}

	code, env = c.do(http.MethodPut, "/api/sections/missing/reorder", map[string]int{"position": 0})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Section not found", env.Error)
}

func TestDeleteSection(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	_, env := c.do(http.MethodGet, "/api/list", nil)
	only := decode[domain.List](t, env).Sections[0]

	code, env := c.do(http.MethodDelete, "/api/sections/"+only.ID, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot delete section (not found or only section)", env.Error)

	_, env = c.do(http.MethodPost, "/api/sections", map[string]string{"title": "B"})
	b := decode[domain.Section](t, env)

	code, env = c.do(http.MethodDelete, "/api/sections/"+b.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"deleted":true}`, string(env.Data))
}

func TestMoveItemScenario(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	_, env := c.do(http.MethodGet, "/api/list", nil)
	a := decode[domain.List](t, env).Sections[0]
	_, env = c.do(http.MethodPost, "/api/sections", map[string]string{"title": "B"})
	b := decode[domain.Section](t, env)

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		code, env := c.do(http.MethodPost, "/api/sections/"+a.ID+"/items", map[string]string{"title": title})
		require.Equal(t, http.StatusCreated, code)
		ids = append(ids, decode[domain.Item](t, env).ID)
	}
	code, _ := c.do(http.MethodPost, "/api/sections/"+b.ID+"/items", map[string]string{"title": "b-one"})
	require.Equal(t, http.StatusCreated, code)

	code, env = c.do(http.MethodPut, "/api/items/"+ids[1]+"/move", map[string]interface{}{"sectionId": b.ID, "position": 0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, decode[domain.Item](t, env).Position)

	_, env = c.do(http.MethodGet, "/api/list", nil)
	list := decode[domain.List](t, env)
	src, _ := list.FindSection(a.ID)
	dst, _ := list.FindSection(b.ID)
	require.Len(t, src.Items, 2)
	require.Len(t, dst.Items, 2)
	assert.Equal(t, ids[1], dst.Items[0].ID)
	for i, it := range src.Items {
		assert.Equal(t, i, it.Position)
		assert.NotEqual(t, ids[1], it.ID)
	}
	for i, it := range dst.Items {
		assert.Equal(t, i, it.Position)
	}
}

func TestItemAndChildEndpoints(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	_, env := c.do(http.MethodGet, "/api/list", nil)
	sectionID := decode[domain.List](t, env).Sections[0].ID

	code, env := c.do(http.MethodPost, "/api/sections/"+sectionID+"/items", map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: title", env.Error)

	code, env = c.do(http.MethodPost, "/api/sections/missing/items", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, code)

	_, env = c.do(http.MethodPost, "/api/sections/"+sectionID+"/items", map[string]string{"title": "Trip"})
	item := decode[domain.Item](t, env)

	code, env = c.do(http.MethodPut, "/api/items/"+item.ID, map[string]interface{}{
		"description": "summer",
		"priority":    "high",
		"dueDate":     "2026-07-01",
	})
	require.Equal(t, http.StatusOK, code)
	updated := decode[domain.Item](t, env)
	require.NotNil(t, updated.Priority)
	assert.Equal(t, domain.PriorityHigh, *updated.Priority)

	code, env = c.do(http.MethodPut, "/api/items/"+item.ID, map[string]interface{}{"priority": nil})
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, decode[domain.Item](t, env).Priority)

	code, _ = c.do(http.MethodPut, "/api/items/"+item.ID, map[string]interface{}{"priority": "urgent"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = c.do(http.MethodPut, "/api/items/"+item.ID+"/toggle", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[domain.Item](t, env).Completed)

	code, env = c.do(http.MethodPost, "/api/items/"+item.ID+"/children", map[string]string{"title": "tickets"})
	require.Equal(t, http.StatusCreated, code)
	child := decode[domain.Child](t, env)
	assert.Equal(t, 0, child.Position)

	childPath := "/api/items/" + item.ID + "/children/" + child.ID
	code, env = c.do(http.MethodPut, childPath+"/toggle", nil)
	require.Equal(t, http.StatusOK, code)
	assert.True(t, decode[domain.Child](t, env).Completed)

	code, env = c.do(http.MethodPut, childPath, map[string]string{"title": "train tickets"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "train tickets", decode[domain.Child](t, env).Title)

	code, _ = c.do(http.MethodDelete, childPath, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodDelete, childPath, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Child item not found", env.Error)

	code, env = c.do(http.MethodPost, "/api/items/missing/children", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Parent item not found", env.Error)

	code, _ = c.do(http.MethodDelete, "/api/items/"+item.ID, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/items/"+item.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Item not found", env.Error)
}

func TestSettings(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	code, env := c.do(http.MethodPut, "/api/settings", map[string]interface{}{"theme": "dark"})
	require.Equal(t, http.StatusOK, code)
	settings := decode[domain.Settings](t, env)
	assert.Equal(t, "dark", settings.Theme)
	assert.False(t, settings.HideCompleted)

	code, _ = c.do(http.MethodPut, "/api/settings", map[string]interface{}{"theme": "neon"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCSRFMismatchDoesNotMutate(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	_, env := c.do(http.MethodGet, "/api/list", nil)
	before := string(env.Data)
	sectionID := decode[domain.List](t, env).Sections[0].ID

	good := c.csrf
	c.csrf = "0000"
	writes := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodPost, "/api/sections", map[string]string{"title": "x"}},
		{http.MethodPut, "/api/sections/" + sectionID, map[string]string{"title": "x"}},
		{http.MethodPut, "/api/settings", map[string]string{"theme": "dark"}},
		{http.MethodPost, "/api/sections/" + sectionID + "/items", map[string]string{"title": "x"}},
		{http.MethodDelete, "/api/sections/" + sectionID, nil},
	}
	for _, w := range writes {
		code, env := c.do(w.method, w.path, w.body)
		assert.Equal(t, http.StatusForbidden, code, w.path)
		assert.Equal(t, "Invalid CSRF token", env.Error)
	}

	c.csrf = good
	_, env = c.do(http.MethodGet, "/api/list", nil)
	assert.Equal(t, before, string(env.Data))
}

func TestCSRFTokenInBody(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	token := c.csrf
	c.csrf = ""
	code, env := c.do(http.MethodPost, "/api/sections", map[string]string{"title": "Body", "csrf_token": token})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Body", decode[domain.Section](t, env).Title)
}

func TestReadonlyCannotWrite(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, readerEmail, readerPass)

	code, _ := c.do(http.MethodGet, "/api/list", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env := c.do(http.MethodPost, "/api/sections", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Read-only access", env.Error)

	code, _ = c.do(http.MethodGet, "/api/users", nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAccountChangesApplyToLiveSessions(t *testing.T) {
	api := newTestAPI(t, true)
	admin := loggedIn(t, api, adminEmail, adminPassword)

	code, env := admin.do(http.MethodPost, "/api/users", map[string]string{
		"name": "Editor", "email": "editor@example.com", "password": "editor password", "role": "admin",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	editorID := decode[domain.PublicUser](t, env).ID

	editor := loggedIn(t, api, "editor@example.com", "editor password")
	code, _ = editor.do(http.MethodPost, "/api/sections", map[string]string{"title": "mine"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = admin.do(http.MethodPut, "/api/users/"+editorID, map[string]string{"role": "readonly"})
	require.Equal(t, http.StatusOK, code)

	code, env = editor.do(http.MethodPost, "/api/sections", map[string]string{"title": "again"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Read-only access", env.Error)
	code, _ = editor.do(http.MethodGet, "/api/list", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = admin.do(http.MethodDelete, "/api/users/"+editorID, nil)
	require.Equal(t, http.StatusOK, code)

	code, _ = editor.do(http.MethodGet, "/api/list", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, editor.refreshStatus().Authenticated)
}

func TestUserManagement(t *testing.T) {
	api := newTestAPI(t, true)
	c := loggedIn(t, api, adminEmail, adminPassword)

	code, env := c.do(http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, code)
	users := decode[[]domain.PublicUser](t, env)
	require.Len(t, users, 2)
	assert.NotContains(t, string(env.Data), "password_hash")

	code, env = c.do(http.MethodPost, "/api/users", map[string]string{"email": "new@example.com", "password": "long enough"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required field: role", env.Error)

	code, env = c.do(http.MethodPost, "/api/users", map[string]string{"email": "new@example.com", "password": "short", "role": "readonly"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Password must be at least 8 characters", env.Error)

	code, env = c.do(http.MethodPost, "/api/users", map[string]string{"email": "new@example.com", "password": "long enough", "role": "readonly"})
	require.Equal(t, http.StatusCreated, code)
	created := decode[domain.PublicUser](t, env)

	code, env = c.do(http.MethodPost, "/api/users", map[string]string{"email": "NEW@example.com", "password": "long enough", "role": "readonly"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "A user with this email already exists", env.Error)

	code, env = c.do(http.MethodPut, "/api/users/"+created.ID, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "No data provided", env.Error)

	code, env = c.do(http.MethodPut, "/api/users/"+created.ID, map[string]string{"role": "admin"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, domain.RoleAdmin, decode[domain.PublicUser](t, env).Role)

	code, _ = c.do(http.MethodPost, "/api/users/"+created.ID+"/password", map[string]string{"password": "another password"})
	require.Equal(t, http.StatusOK, code)

	var superID string
	for _, u := range users {
		if u.IsSuperAdmin {
			superID = u.ID
		}
	}
	code, env = c.do(http.MethodDelete, "/api/users/"+superID, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Cannot delete super admin", env.Error)

	code, _ = c.do(http.MethodDelete, "/api/users/"+created.ID, nil)
	require.Equal(t, http.StatusOK, code)
	code, env = c.do(http.MethodGet, "/api/users/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", env.Error)
}

func TestFirstRunSetup(t *testing.T) {
	api := newTestAPI(t, false)
	c := api.newClient(t)

	status := c.refreshStatus()
	assert.True(t, status.SetupRequired)

	code, env := c.do(http.MethodPost, "/api/auth/setup", map[string]string{
		"name": "Owner", "email": "owner@example.com", "password": "owner password",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	resp := decode[loginResponse](t, env)
	assert.True(t, resp.User.IsSuperAdmin)
	c.csrf = resp.CSRFToken

	status = c.refreshStatus()
	assert.True(t, status.Authenticated)
	assert.False(t, status.SetupRequired)

	other := api.newClient(t)
	code, _ = other.do(http.MethodPost, "/api/auth/setup", map[string]string{
		"name": "Intruder", "email": "x@example.com", "password": "intruder password",
	})
	assert.Equal(t, http.StatusForbidden, code)
}

func TestNotFoundAndHealth(t *testing.T) {
	api := newTestAPI(t, true)
	c := api.newClient(t)

	code, env := c.do(http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not found", env.Error)

	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = httptest.NewRecorder()
	api.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "todostack_http_requests_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NewError(domain.ErrValidation, "x"), http.StatusBadRequest},
		{domain.NewError(domain.ErrConflict, "x"), http.StatusBadRequest},
		{domain.NewError(domain.ErrNotFound, "x"), http.StatusNotFound},
		{domain.NewError(domain.ErrUnauthorized, "x"), http.StatusUnauthorized},
		{domain.NewError(domain.ErrForbidden, "x"), http.StatusForbidden},
		{domain.NewError(domain.ErrRateLimited, "x"), http.StatusTooManyRequests},
		{domain.ErrStorage, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
