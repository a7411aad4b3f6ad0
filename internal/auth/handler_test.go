package auth_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/atrium-hms/atrium/internal/auth"
	"github.com/atrium-hms/atrium/internal/shared"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(slog.Default(), auth.NewService(repo), sessionManager, csrfManager)
	return handler, sessionManager
}

func doLogin(t *testing.T, handler *auth.Handler, sessions *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	router := chi.NewRouter()
	router.Route("/auth", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sessions.Load(context.Background(), req)
	require.NoError(t, err)
	req = req.WithContext(shared.ContextWithSession(req.Context(), sess))

	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.NoError(t, sessions.Commit(req.Context(), res, req, sess))
	return res, sess
}

func TestLoginSuccess(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{ID: 7, Email: "manager@atrium.test", Name: "Front Desk", PasswordHash: string(hashed), IsActive: true}}
	handler, sessions := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessions, `{"email":"manager@atrium.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"user_id":7`)
	require.Contains(t, res.Body.String(), "csrf_token")
	require.Equal(t, "7", sess.User())
	require.Contains(t, repo.sessions, sess.ID)
}

func TestLoginWrongPassword(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{ID: 7, Email: "manager@atrium.test", PasswordHash: string(hashed), IsActive: true}}
	handler, sessions := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sessions, `{"email":"manager@atrium.test","password":"wrong-password"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Empty(t, sess.User())
}

func TestLoginInactiveAccount(t *testing.T) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &stubRepo{user: &auth.User{ID: 7, Email: "manager@atrium.test", PasswordHash: string(hashed), IsActive: false}}
	handler, sessions := newAuthHandler(t, repo)

	res, _ := doLogin(t, handler, sessions, `{"email":"manager@atrium.test","password":"correct-horse"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginValidation(t *testing.T) {
	handler, sessions := newAuthHandler(t, &stubRepo{})

	res, _ := doLogin(t, handler, sessions, `{"email":"not-an-email","password":"short"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
}
