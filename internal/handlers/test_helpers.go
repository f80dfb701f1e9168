package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/models"
	"github.com/nexusai/terminal-api/internal/services"
	pkghttp "github.com/nexusai/terminal-api/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds session claims to the request context for testing
// authenticated endpoints without running the middleware.
func WithAuthContext(req *http.Request, userID string) *http.Request {
	claims := &models.SessionClaims{UserID: userID}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks status and decodes the JSON body into target
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that the response is an error with the given status
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc func(ctx context.Context, username, email, password string) (*services.AuthResponse, error)
	LoginFunc    func(ctx context.Context, email, password string) (*services.AuthResponse, error)
}

func (m *MockAuthService) Register(ctx context.Context, username, email, password string) (*services.AuthResponse, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RegisterFunc(ctx, username, email, password)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, email, password)
}

// MockPasswordResetService implements PasswordResetServiceInterface for testing
type MockPasswordResetService struct {
	RequestResetFunc    func(ctx context.Context, email string) error
	RedeemResetFunc     func(ctx context.Context, secret, newPassword string) (*services.AuthResponse, error)
	PlainResetTokenFunc func(ctx context.Context, email string) (string, error)
}

func (m *MockPasswordResetService) RequestReset(ctx context.Context, email string) error {
	if m.RequestResetFunc == nil {
		return models.ErrNotFound
	}
	return m.RequestResetFunc(ctx, email)
}

func (m *MockPasswordResetService) RedeemReset(ctx context.Context, secret, newPassword string) (*services.AuthResponse, error) {
	if m.RedeemResetFunc == nil {
		return nil, models.ErrResetInvalidOrExpired
	}
	return m.RedeemResetFunc(ctx, secret, newPassword)
}

func (m *MockPasswordResetService) PlainResetToken(ctx context.Context, email string) (string, error) {
	if m.PlainResetTokenFunc == nil {
		return "", models.ErrNotFound
	}
	return m.PlainResetTokenFunc(ctx, email)
}

// MockUserService implements UserServiceInterface for testing
type MockUserService struct {
	GetProfileFunc    func(ctx context.Context, id string) (*services.ProfileResponse, error)
	UpdateProfileFunc func(ctx context.Context, id string, input services.UpdateProfileInput) (*services.ProfileResponse, error)
}

func (m *MockUserService) GetProfile(ctx context.Context, id string) (*services.ProfileResponse, error) {
	if m.GetProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetProfileFunc(ctx, id)
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id string, input services.UpdateProfileInput) (*services.ProfileResponse, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateProfileFunc(ctx, id, input)
}

// MockWalletService implements WalletServiceInterface for testing
type MockWalletService struct {
	NonceFunc      func(ctx context.Context, userID string) (string, error)
	BindWalletFunc func(ctx context.Context, userID, claimedAddress, signature string) (*services.ProfileResponse, error)
}

func (m *MockWalletService) Nonce(ctx context.Context, userID string) (string, error) {
	if m.NonceFunc == nil {
		return "", models.ErrNotFound
	}
	return m.NonceFunc(ctx, userID)
}

func (m *MockWalletService) BindWallet(ctx context.Context, userID, claimedAddress, signature string) (*services.ProfileResponse, error) {
	if m.BindWalletFunc == nil {
		return nil, models.ErrSignatureInvalid
	}
	return m.BindWalletFunc(ctx, userID, claimedAddress, signature)
}
