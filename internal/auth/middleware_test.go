package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nexusai/terminal-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubUserFetcher struct {
	getByID func(ctx context.Context, id string) (*models.User, error)
}

func (s *stubUserFetcher) GetByID(ctx context.Context, id string) (*models.User, error) {
	if s.getByID != nil {
		return s.getByID(ctx, id)
	}
	return &models.User{ID: id}, nil
}

func protectedEcho(t *testing.T, tm *TokenManager, users UserFetcher, req *http.Request) (*httptest.ResponseRecorder, *models.SessionClaims) {
	t.Helper()

	var got *models.SessionClaims
	handler := Protect(tm, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetUserFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w, got
}

func TestProtect_BearerHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Hour)
	token, err := tm.GenerateSessionToken("user-123")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/accounts/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w, claims := protectedEcho(t, tm, &stubUserFetcher{}, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestProtect_SessionCookie(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Hour)
	token, err := tm.GenerateSessionToken("user-123")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/accounts/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})

	w, claims := protectedEcho(t, tm, &stubUserFetcher{}, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestProtect_NoToken(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Hour)

	req := httptest.NewRequest("GET", "/accounts/profile", nil)
	w, _ := protectedEcho(t, tm, &stubUserFetcher{}, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtect_MalformedAuthHeader(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Hour)
	token, err := tm.GenerateSessionToken("user-123")
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/accounts/profile", nil)
	req.Header.Set("Authorization", "Token "+token)

	w, _ := protectedEcho(t, tm, &stubUserFetcher{}, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtect_InvalidToken(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Hour)

	req := httptest.NewRequest("GET", "/accounts/profile", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	w, _ := protectedEcho(t, tm, &stubUserFetcher{}, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtect_UserDeletedAfterTokenIssued(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16", time.Hour)
	token, err := tm.GenerateSessionToken("user-123")
	require.NoError(t, err)

	users := &stubUserFetcher{
		getByID: func(ctx context.Context, id string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	req := httptest.NewRequest("GET", "/accounts/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	w, _ := protectedEcho(t, tm, users, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionCookie_SetAndClear(t *testing.T) {
	w := httptest.NewRecorder()
	SetSessionCookie(w, "tok", 3600, DefaultCookieConfig("production"))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)

	w = httptest.NewRecorder()
	ClearSessionCookie(w, DefaultCookieConfig("development"))
	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}
