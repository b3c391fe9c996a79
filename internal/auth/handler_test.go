package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/comercio-app/comercio/internal/shared"
)

type memoryRepo struct {
	byEmail map[string]*User
	byID    map[string]*User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: map[string]*User{}, byID: map[string]*User{}}
}

func (m *memoryRepo) add(u *User) {
	m.byEmail[u.Email] = u
	m.byID[u.ID] = u
}

func (m *memoryRepo) FindByEmail(_ context.Context, email string) (User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return *u, nil
}

func (m *memoryRepo) FindByID(_ context.Context, id string) (User, error) {
	u, ok := m.byID[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return *u, nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newTestHandler(t *testing.T, repo *memoryRepo) (*Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "comercio_session", time.Hour, false)
	csrf := shared.NewCSRFManager("test-csrf-secret")
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	return NewHandler(logger, NewService(repo), sessions, csrf), sessions
}

func requestWithSession(t *testing.T, sessions *shared.SessionManager, method, target, body string) (*http.Request, *shared.Session) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	sess, err := sessions.Load(req.Context(), req)
	require.NoError(t, err)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestLoginSuccess(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(&User{ID: "u1", Email: "ana@comercio.test", Name: "Ana", PasswordHash: hashPassword(t, "secreto123")})
	h, sessions := newTestHandler(t, repo)

	req, sess := requestWithSession(t, sessions, http.MethodPost, "/login",
		`{"email":"ana@comercio.test","password":"secreto123"}`)
	rec := httptest.NewRecorder()
	h.login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1", sess.User())
	require.Contains(t, rec.Body.String(), "csrf_token")
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(&User{ID: "u1", Email: "ana@comercio.test", PasswordHash: hashPassword(t, "secreto123")})
	h, sessions := newTestHandler(t, repo)

	req, sess := requestWithSession(t, sessions, http.MethodPost, "/login",
		`{"email":"ana@comercio.test","password":"incorrecta1"}`)
	rec := httptest.NewRecorder()
	h.login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, sess.User())
}

func TestLoginUnknownEmailLooksLikeBadPassword(t *testing.T) {
	h, sessions := newTestHandler(t, newMemoryRepo())

	req, _ := requestWithSession(t, sessions, http.MethodPost, "/login",
		`{"email":"nadie@comercio.test","password":"loquesea12"}`)
	rec := httptest.NewRecorder()
	h.login(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Invalid email or password")
}

func TestLoginSuspendedAccount(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(&User{ID: "u1", Email: "ana@comercio.test", PasswordHash: hashPassword(t, "secreto123"), Suspended: true})
	h, sessions := newTestHandler(t, repo)

	req, sess := requestWithSession(t, sessions, http.MethodPost, "/login",
		`{"email":"ana@comercio.test","password":"secreto123"}`)
	rec := httptest.NewRecorder()
	h.login(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "suspended")
	require.Empty(t, sess.User())
}

func TestRequireAuthRejectsAnonymous(t *testing.T) {
	h, sessions := newTestHandler(t, newMemoryRepo())

	req, _ := requestWithSession(t, sessions, http.MethodGet, "/products", "")
	rec := httptest.NewRecorder()

	reached := false
	h.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })).
		ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, reached)
}

func TestRequireAuthForcesSignOutWhenSuspended(t *testing.T) {
	repo := newMemoryRepo()
	user := &User{ID: "u1", Email: "ana@comercio.test", PasswordHash: hashPassword(t, "secreto123")}
	repo.add(user)
	h, sessions := newTestHandler(t, repo)

	req, sess := requestWithSession(t, sessions, http.MethodGet, "/products", "")
	sess.SetUser("u1")

	// suspension lands after the session was established
	user.Suspended = true

	rec := httptest.NewRecorder()
	reached := false
	h.RequireAuth(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { reached = true })).
		ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, reached)
	require.Empty(t, sess.User())
}

func TestMeReturnsCurrentUser(t *testing.T) {
	repo := newMemoryRepo()
	repo.add(&User{ID: "u1", Email: "ana@comercio.test", Name: "Ana", PasswordHash: hashPassword(t, "secreto123")})
	h, sessions := newTestHandler(t, repo)

	req, sess := requestWithSession(t, sessions, http.MethodGet, "/me", "")
	sess.SetUser("u1")

	rec := httptest.NewRecorder()
	h.me(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ana@comercio.test")
	require.NotContains(t, rec.Body.String(), "password")
}
