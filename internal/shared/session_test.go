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
	return NewSessionManager(client, "test_session", "secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.SetUser("42")
	sess.Set("csrf_token", "abc")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "test_session", cookies[0].Name)
	require.Equal(t, sess.ID, cookies[0].Value)
	require.True(t, cookies[0].HttpOnly)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "abc", loaded.Get("csrf_token"))
}

func TestSessionDestroyClearsStateAndCookie(t *testing.T) {
	sm := newTestSessionManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("7")

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))
	cookie := rec.Result().Cookies()[0]

	sm.Destroy(sess)
	rec = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rec, req, sess))
	expired := rec.Result().Cookies()
	require.Len(t, expired, 1)
	require.Equal(t, -1, expired[0].MaxAge)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}

func TestSessionWithUnknownCookieStartsFresh(t *testing.T) {
	sm := newTestSessionManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "test_session", Value: "gone"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "gone", sess.ID)
	require.Empty(t, sess.User())
}
