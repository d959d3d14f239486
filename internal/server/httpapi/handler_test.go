package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/revocation"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

type memDirectory struct {
	mu    sync.Mutex
	users map[int64]*models.User
	err   error
}

func (d *memDirectory) GetByEmail(_ context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (d *memDirectory) GetByID(_ context.Context, id int64) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, common.ErrorNotFound
}

type fakeUsers struct {
	registered []string
	err        error
	lastName   *string
	lastPass   *string
}

func (f *fakeUsers) Register(_ context.Context, name, email, _ string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.registered = append(f.registered, email)
	return &models.User{ID: 10, Name: name, Email: email, PasswordHash: "secret-hash"}, nil
}

func (f *fakeUsers) Get(_ context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id, Name: "Alice", Email: "alice@example.com"}, nil
}

func (f *fakeUsers) List(context.Context) ([]*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []*models.User{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}, nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, name, password *string) (*models.User, error) {
	f.lastName, f.lastPass = name, password
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id, Name: "Updated"}, nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.User{ID: id}, nil
}

type testEnv struct {
	router    *gin.Engine
	mr        *miniredis.Miniredis
	directory *memDirectory
	users     *fakeUsers
}

const (
	aliceEmail    = "alice@example.com"
	alicePassword = "correct horse"
)

func newTestEnv(t *testing.T, dev bool) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	hasher := auth.NewHasher(4)
	hash, err := hasher.Hash(alicePassword)
	require.NoError(t, err)

	dir := &memDirectory{users: map[int64]*models.User{
		1: {ID: 1, Name: "Alice", Email: aliceEmail, PasswordHash: hash},
	}}

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	issuer := auth.NewIssuer([]byte("test-secret"), time.Hour, func() time.Time { return clock })
	ledger := revocation.NewRedisLedger(client)

	validator, err := services.NewCredentialValidator(dir, hasher)
	require.NoError(t, err)
	login := services.NewLoginService(validator, issuer, ledger, logging.Nop{})
	guard := services.NewAuthenticator(issuer, ledger, dir, logging.Nop{})
	users := &fakeUsers{}

	h := NewHandler(guard, login, users, logging.Nop{}, dev)
	checks := map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return client.Ping(ctx).Err() },
	}

	return &testEnv{
		router:    NewRouter(h, logging.Nop{}, checks),
		mr:        mr,
		directory: dir,
		users:     users,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, presented string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/auth/login", `{"email":"`+aliceEmail+`","password":"`+alicePassword+`"}`, presented)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// --- tests ---

func TestLoginAndProfile(t *testing.T) {
	env := newTestEnv(t, false)

	token := env.login(t, "")

	w := env.do(t, http.MethodGet, "/auth/profile", "", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1,"email":"alice@example.com","name":"Alice"}`, w.Body.String())
}

func TestLogin_InvalidCredentialsIndistinguishable(t *testing.T) {
	env := newTestEnv(t, false)

	wrong := env.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"nope"}`, "")
	unknown := env.do(t, http.MethodPost, "/auth/login", `{"email":"ghost@example.com","password":"nope"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.JSONEq(t, `{"statusCode":401,"message":"Unauthorized access"}`, wrong.Body.String())
}

func TestLogin_SupersedesPresentedToken(t *testing.T) {
	env := newTestEnv(t, false)

	first := env.login(t, "")
	second := env.login(t, first)
	assert.NotEqual(t, first, second)

	assert.True(t, env.mr.Exists(revocation.Key(first)))
	assert.Equal(t, time.Hour+time.Second, env.mr.TTL(revocation.Key(first)))

	w := env.do(t, http.MethodGet, "/auth/profile", "", first)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"statusCode":401,"message":"Unauthorized access"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/auth/profile", "", second)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogin_LedgerDown(t *testing.T) {
	env := newTestEnv(t, false)
	first := env.login(t, "")

	env.mr.SetError("ERR backend failure")

	w := env.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct horse"}`, first)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "access_token")
	assert.JSONEq(t, `{"statusCode":503,"message":"Something went wrong. Please try again later."}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/auth/profile", "", first)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "guard fails closed")
}

func TestLogin_DirectoryDown(t *testing.T) {
	env := newTestEnv(t, false)
	env.directory.err = errors.New("connection refused")

	w := env.do(t, http.MethodPost, "/auth/login", `{"email":"alice@example.com","password":"correct horse"}`, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestLogin_Validation(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/auth/login", `{"email":"not-an-email"}`, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, "Validation failed", resp.Message)
	assert.Equal(t, []map[string][]string{
		{"email": {"Invalid email format"}},
		{"password": {"password should not be empty"}},
	}, resp.Errors)
	assert.Empty(t, resp.Error)
}

func TestLogin_MalformedBody(t *testing.T) {
	env := newTestEnv(t, false)

	for _, body := range []string{`{`, `{"email":"alice@example.com","password":"x","role":"admin"}`} {
		w := env.do(t, http.MethodPost, "/auth/login", body, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, msgBadRequest, decodeError(t, w).Message, body)
	}
}

func TestDevModeAddsErrorDetail(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/auth/profile", "", "garbage")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	resp := decodeError(t, w)
	assert.Equal(t, msgUnauthorized, resp.Message)
	assert.Contains(t, resp.Error, "invalid token")
}

func TestProfile_Unauthorized(t *testing.T) {
	env := newTestEnv(t, false)

	for _, header := range []string{"", "Basic abc", "Bearer", "Bearer not.a.jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/auth/profile", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.JSONEq(t, `{"statusCode":401,"message":"Unauthorized access"}`, w.Body.String(), header)
	}
}

func TestProfile_DeletedSubject(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.login(t, "")

	env.directory.mu.Lock()
	delete(env.directory.users, 1)
	env.directory.mu.Unlock()

	w := env.do(t, http.MethodGet, "/auth/profile", "", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, false)
	token := env.login(t, "")

	w := env.do(t, http.MethodPost, "/auth/logout", "", token)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, http.MethodGet, "/auth/profile", "", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodPost, "/auth/logout", "", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/health", "", "")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"redis":"up"}}`, w.Body.String())

	env.mr.SetError("ERR backend failure")
	w = env.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"down"}}`, w.Body.String())
}
