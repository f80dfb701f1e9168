package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nexusai/terminal-api/internal/models"
	"github.com/nexusai/terminal-api/internal/services"
)

const testWalletAddress = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

func TestProfileHandler_GetProfile_Success(t *testing.T) {
	users := &MockUserService{
		GetProfileFunc: func(ctx context.Context, id string) (*services.ProfileResponse, error) {
			return &services.ProfileResponse{ID: id, Username: "satoshi", Email: "satoshi@example.com", Role: "user"}, nil
		},
	}
	h := NewProfileHandler(users, &MockWalletService{})

	req := WithAuthContext(NewTestRequest(t, http.MethodGet, "/accounts/profile", nil), "user123")
	w := httptest.NewRecorder()
	h.GetProfile(w, req)

	var resp services.ProfileResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "user123", resp.ID)
	assert.Equal(t, "satoshi", resp.Username)
}

func TestProfileHandler_GetProfile_NoClaims(t *testing.T) {
	h := NewProfileHandler(&MockUserService{}, &MockWalletService{})

	req := NewTestRequest(t, http.MethodGet, "/accounts/profile", nil)
	w := httptest.NewRecorder()
	h.GetProfile(w, req)

	AssertErrorResponse(t, w, http.StatusUnauthorized)
}

func TestProfileHandler_UpdateProfile_Fields(t *testing.T) {
	var gotInput services.UpdateProfileInput
	users := &MockUserService{
		UpdateProfileFunc: func(ctx context.Context, id string, input services.UpdateProfileInput) (*services.ProfileResponse, error) {
			gotInput = input
			return &services.ProfileResponse{ID: id, Username: input.Username, Email: "satoshi@example.com", Role: "user"}, nil
		},
	}
	h := NewProfileHandler(users, &MockWalletService{})

	req := WithAuthContext(NewTestRequest(t, http.MethodPut, "/accounts/profile", UpdateProfileRequest{Username: "nakamoto"}), "user123")
	w := httptest.NewRecorder()
	h.UpdateProfile(w, req)

	var resp services.ProfileResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "nakamoto", gotInput.Username)
	assert.Empty(t, gotInput.Email)
	assert.Equal(t, "nakamoto", resp.Username)
}

func TestProfileHandler_UpdateProfile_WalletBind(t *testing.T) {
	bound := false
	users := &MockUserService{
		UpdateProfileFunc: func(ctx context.Context, id string, input services.UpdateProfileInput) (*services.ProfileResponse, error) {
			assert.True(t, bound, "bind must run before profile mutations")
			return &services.ProfileResponse{ID: id, Username: "satoshi", Email: "satoshi@example.com", Role: "user", WalletAddress: testWalletAddress}, nil
		},
	}
	wallets := &MockWalletService{
		BindWalletFunc: func(ctx context.Context, userID, claimedAddress, signature string) (*services.ProfileResponse, error) {
			assert.Equal(t, testWalletAddress, claimedAddress)
			assert.Equal(t, "0xsig", signature)
			bound = true
			return &services.ProfileResponse{ID: userID, Username: "satoshi", Email: "satoshi@example.com", Role: "user", WalletAddress: claimedAddress}, nil
		},
	}
	h := NewProfileHandler(users, wallets)

	req := WithAuthContext(NewTestRequest(t, http.MethodPut, "/accounts/profile", UpdateProfileRequest{
		WalletAddress: testWalletAddress,
		Signature:     "0xsig",
	}), "user123")
	w := httptest.NewRecorder()
	h.UpdateProfile(w, req)

	var resp services.ProfileResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, testWalletAddress, resp.WalletAddress)
}

func TestProfileHandler_UpdateProfile_WalletWithoutSignature(t *testing.T) {
	h := NewProfileHandler(&MockUserService{}, &MockWalletService{})

	req := WithAuthContext(NewTestRequest(t, http.MethodPut, "/accounts/profile", UpdateProfileRequest{
		WalletAddress: testWalletAddress,
	}), "user123")
	w := httptest.NewRecorder()
	h.UpdateProfile(w, req)

	AssertErrorResponse(t, w, http.StatusBadRequest)
}

func TestProfileHandler_UpdateProfile_SignatureErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"malformed signature", models.ErrSignatureInvalid, http.StatusBadRequest},
		{"address mismatch", models.ErrSignatureMismatch, http.StatusBadRequest},
		{"address taken", models.ErrWalletAddressTaken, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profileWritten := false
			users := &MockUserService{
				UpdateProfileFunc: func(ctx context.Context, id string, input services.UpdateProfileInput) (*services.ProfileResponse, error) {
					profileWritten = true
					return &services.ProfileResponse{ID: id, Role: "user"}, nil
				},
			}
			wallets := &MockWalletService{
				BindWalletFunc: func(ctx context.Context, userID, claimedAddress, signature string) (*services.ProfileResponse, error) {
					return nil, tt.err
				},
			}
			h := NewProfileHandler(users, wallets)

			req := WithAuthContext(NewTestRequest(t, http.MethodPut, "/accounts/profile", UpdateProfileRequest{
				Username:      "nakamoto",
				Password:      "FreshPassword123",
				WalletAddress: testWalletAddress,
				Signature:     "0xsig",
			}), "user123")
			w := httptest.NewRecorder()
			h.UpdateProfile(w, req)

			AssertErrorResponse(t, w, tt.wantStatus)
			assert.False(t, profileWritten, "a rejected bind must not commit profile mutations")
		})
	}
}

func TestProfileHandler_GetNonce(t *testing.T) {
	wallets := &MockWalletService{
		NonceFunc: func(ctx context.Context, userID string) (string, error) {
			return "819204", nil
		},
	}
	h := NewProfileHandler(&MockUserService{}, wallets)

	req := WithAuthContext(NewTestRequest(t, http.MethodGet, "/accounts/nonce", nil), "user123")
	w := httptest.NewRecorder()
	h.GetNonce(w, req)

	var resp NonceResponse
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "819204", resp.Nonce)
}

func TestProfileHandler_GetNonce_NoClaims(t *testing.T) {
	h := NewProfileHandler(&MockUserService{}, &MockWalletService{})

	req := NewTestRequest(t, http.MethodGet, "/accounts/nonce", nil)
	w := httptest.NewRecorder()
	h.GetNonce(w, req)

	AssertErrorResponse(t, w, http.StatusUnauthorized)
}
