package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "test_session", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	sess.SetUser("user-1")
	sess.Set("lang", "es")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "test_session", cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "user-1", loaded.User())
	require.Equal(t, "es", loaded.Get("lang"))
}

func TestSessionDestroyClearsStateAndCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	sess.SetUser("user-1")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, sess))
	cookie := rec.Result().Cookies()[0]

	sm.Destroy(sess)
	require.Empty(t, sess.User())

	rec2 := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec2, sess))
	cleared := rec2.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(cookie)
	loaded, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}

func TestSessionUnknownCookieStartsFresh(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "not-in-redis"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, sess.User())
	require.Equal(t, "not-in-redis", sess.ID)
}

func TestCSRFTokenStableWithinSession(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc", values: map[string]string{}}
	ctx := context.Background()

	first, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.NoError(t, m.VerifyToken(ctx, sess, first))
}

func TestCSRFTokenMismatch(t *testing.T) {
	m := NewCSRFManager("secret")
	sess := &Session{ID: "abc", values: map[string]string{}}
	ctx := context.Background()

	token, err := m.EnsureToken(ctx, sess)
	require.NoError(t, err)

	require.ErrorIs(t, m.VerifyToken(ctx, sess, token+"x"), ErrCSRFTokenMismatch)
	require.ErrorIs(t, m.VerifyToken(ctx, sess, ""), ErrCSRFTokenMissing)

	fresh := &Session{ID: "other", values: map[string]string{}}
	require.ErrorIs(t, m.VerifyToken(ctx, fresh, token), ErrCSRFTokenMissing)
}
