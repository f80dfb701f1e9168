package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/models"
	"github.com/nexusai/terminal-api/internal/services"
)

func newTestAccountsHandler(svc AuthServiceInterface) *AccountsHandler {
	return NewAccountsHandler(svc, auth.DefaultCookieConfig("development"), 3600)
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestAccountsHandler_Register_Success(t *testing.T) {
	svc := &MockAuthService{
		RegisterFunc: func(ctx context.Context, username, email, password string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				User:  &services.ProfileResponse{ID: "user123", Username: username, Email: email, Role: "user"},
				Token: "session-token",
			}, nil
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/accounts", RegisterRequest{
		Username: "satoshi",
		Email:    "satoshi@example.com",
		Password: "SecurePassword123",
	})
	w := httptest.NewRecorder()
	newTestAccountsHandler(svc).Register(w, req)

	var resp services.AuthResponse
	AssertJSONResponse(t, w, http.StatusCreated, &resp)
	assert.Equal(t, "user123", resp.User.ID)
	assert.Equal(t, "session-token", resp.Token)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie, "register must set the session cookie")
	assert.Equal(t, "session-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestAccountsHandler_Register_Conflict(t *testing.T) {
	svc := &MockAuthService{
		RegisterFunc: func(ctx context.Context, username, email, password string) (*services.AuthResponse, error) {
			return nil, models.ErrConflict
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/accounts", RegisterRequest{
		Username: "satoshi",
		Email:    "taken@example.com",
		Password: "SecurePassword123",
	})
	w := httptest.NewRecorder()
	newTestAccountsHandler(svc).Register(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest)
	assert.Nil(t, sessionCookie(w))
}

func TestAccountsHandler_Register_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body RegisterRequest
	}{
		{"missing username", RegisterRequest{Email: "a@b.com", Password: "SecurePassword123"}},
		{"invalid email", RegisterRequest{Username: "satoshi", Email: "not-an-email", Password: "SecurePassword123"}},
		{"short password", RegisterRequest{Username: "satoshi", Email: "a@b.com", Password: "short"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := NewTestRequest(t, http.MethodPost, "/accounts", tt.body)
			w := httptest.NewRecorder()
			newTestAccountsHandler(&MockAuthService{}).Register(w, req)

			AssertErrorResponse(t, w, http.StatusBadRequest)
		})
	}
}

func TestAccountsHandler_Login_Success(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				User:  &services.ProfileResponse{ID: "user123", Username: "satoshi", Email: email, Role: "user"},
				Token: "session-token",
			}, nil
		},
	}

	req := NewTestRequest(t, http.MethodPost, "/accounts/auth", LoginRequest{
		Email:    "satoshi@example.com",
		Password: "SecurePassword123",
	})
	w := httptest.NewRecorder()
	newTestAccountsHandler(svc).Login(w, req)

	var resp services.AuthResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "session-token", resp.Token)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "session-token", cookie.Value)
}

func TestAccountsHandler_Login_BadCredentials(t *testing.T) {
	req := NewTestRequest(t, http.MethodPost, "/accounts/auth", LoginRequest{
		Email:    "satoshi@example.com",
		Password: "WrongPassword123",
	})
	w := httptest.NewRecorder()
	newTestAccountsHandler(&MockAuthService{}).Login(w, req)

	AssertErrorResponse(t, w, http.StatusUnauthorized)
	assert.Nil(t, sessionCookie(w))
}

func TestAccountsHandler_Logout_ClearsCookie(t *testing.T) {
	req := NewTestRequest(t, http.MethodPost, "/accounts/logout", nil)
	w := httptest.NewRecorder()
	newTestAccountsHandler(&MockAuthService{}).Logout(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Equal(t, -1, cookie.MaxAge)
}
