package integration

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusai/terminal-api/internal/services"
	"github.com/nexusai/terminal-api/internal/web3"
)

var testEnv *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		// No docker available; unit tests cover the layers individually.
		os.Exit(0)
	}
	testEnv = db

	code := m.Run()
	_ = testEnv.Teardown(ctx)
	os.Exit(code)
}

func TestAccountLifecycle(t *testing.T) {
	require.NoError(t, testEnv.CleanupTables(context.Background()))

	ts := NewTestServer(testEnv.DB)
	defer ts.Close()

	username, email, password := TestUser("lifecycle")

	// Register
	resp, err := ts.Request(http.MethodPost, "/accounts", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, err := ExtractToken(resp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Duplicate registration is rejected
	resp, err = ts.Request(http.MethodPost, "/accounts", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Login
	resp, err = ts.Request(http.MethodPost, "/accounts/auth", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, err = ExtractToken(resp)
	require.NoError(t, err)

	// Profile round trip
	resp, err = ts.RequestWithAuth(http.MethodGet, "/accounts/profile", token, nil)
	require.NoError(t, err)
	var profile services.ProfileResponse
	require.NoError(t, ParseJSONResponse(resp, &profile))
	assert.Equal(t, email, profile.Email)
	assert.Equal(t, username, profile.Username)

	// Wrong password is rejected
	resp, err = ts.Request(http.MethodPost, "/accounts/auth", map[string]string{
		"email":    email,
		"password": "WrongPassword123!",
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPasswordResetFlow(t *testing.T) {
	require.NoError(t, testEnv.CleanupTables(context.Background()))

	ts := NewTestServer(testEnv.DB)
	defer ts.Close()

	username, email, password := TestUser("reset")
	_, err := SeedUser(context.Background(), testEnv.DB, username, email, password)
	require.NoError(t, err)

	// Request a reset
	resp, err := ts.Request(http.MethodPost, "/accounts/forgotpassword", map[string]string{"email": email}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	mail := ts.EmailService.LastEmail()
	require.NotNil(t, mail)
	assert.Equal(t, email, mail.To)
	secret := ExtractSecretFromLink(mail.ResetLink)
	require.NotEmpty(t, secret)

	// Redeem it
	resp, err = ts.Request(http.MethodPut, "/accounts/resetpassword/"+secret, map[string]string{
		"password": "ReplacedPassword1!",
	}, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var redeem struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
	}
	require.NoError(t, ParseJSONResponse(resp, &redeem))
	assert.True(t, redeem.Success)
	assert.NotEmpty(t, redeem.Token)

	// The secret is single use
	resp, err = ts.Request(http.MethodPut, "/accounts/resetpassword/"+secret, map[string]string{
		"password": "AnotherPassword1!",
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Old password no longer works, new one does
	resp, err = ts.Request(http.MethodPost, "/accounts/auth", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = ts.Request(http.MethodPost, "/accounts/auth", map[string]string{
		"email":    email,
		"password": "ReplacedPassword1!",
	}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPasswordResetDispatchFailureRollsBack(t *testing.T) {
	require.NoError(t, testEnv.CleanupTables(context.Background()))

	ts := NewTestServer(testEnv.DB)
	defer ts.Close()

	username, email, password := TestUser("rollback")
	_, err := SeedUser(context.Background(), testEnv.DB, username, email, password)
	require.NoError(t, err)

	ts.EmailService.FailNext = assert.AnError
	resp, err := ts.Request(http.MethodPost, "/accounts/forgotpassword", map[string]string{"email": email}, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	// The rolled-back secret must not be redeemable even if guessed.
	user, err := ts.UserRepo.GetByEmail(context.Background(), email)
	require.NoError(t, err)
	assert.Nil(t, user.ResetSecretDigest)
	assert.Nil(t, user.ResetExpiresAt)
}

func TestWalletBindFlow(t *testing.T) {
	require.NoError(t, testEnv.CleanupTables(context.Background()))

	ts := NewTestServer(testEnv.DB)
	defer ts.Close()

	username, email, password := TestUser("wallet")
	_, err := SeedUser(context.Background(), testEnv.DB, username, email, password)
	require.NoError(t, err)

	resp, err := ts.Request(http.MethodPost, "/accounts/auth", map[string]string{
		"email":    email,
		"password": password,
	}, nil)
	require.NoError(t, err)
	token, err := ExtractToken(resp)
	require.NoError(t, err)

	// Fetch the nonce
	resp, err = ts.RequestWithAuth(http.MethodGet, "/accounts/nonce", token, nil)
	require.NoError(t, err)
	var nonceResp struct {
		Nonce string `json:"nonce"`
	}
	require.NoError(t, ParseJSONResponse(resp, &nonceResp))
	require.NotEmpty(t, nonceResp.Nonce)

	// Sign the challenge and bind
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	sig, err := crypto.Sign(web3.PersonalSignHash(services.ChallengeMessage(nonceResp.Nonce)), key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27

	resp, err = ts.RequestWithAuth(http.MethodPut, "/accounts/profile", token, map[string]string{
		"walletAddress": address,
		"signature":     hexutil.Encode(sig),
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var profile services.ProfileResponse
	require.NoError(t, ParseJSONResponse(resp, &profile))
	assert.Equal(t, address, profile.WalletAddress)

	// The nonce rotated, so the same signature cannot be replayed.
	resp, err = ts.RequestWithAuth(http.MethodGet, "/accounts/nonce", token, nil)
	require.NoError(t, err)
	var rotated struct {
		Nonce string `json:"nonce"`
	}
	require.NoError(t, ParseJSONResponse(resp, &rotated))
	assert.NotEqual(t, nonceResp.Nonce, rotated.Nonce)

	resp, err = ts.RequestWithAuth(http.MethodPut, "/accounts/profile", token, map[string]string{
		"walletAddress": address,
		"signature":     hexutil.Encode(sig),
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWalletAddressUniqueAcrossAccounts(t *testing.T) {
	require.NoError(t, testEnv.CleanupTables(context.Background()))

	ts := NewTestServer(testEnv.DB)
	defer ts.Close()

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	bindWallet := func(suffix string) int {
		username, email, password := TestUser(suffix)
		_, err := SeedUser(context.Background(), testEnv.DB, username, email, password)
		require.NoError(t, err)

		resp, err := ts.Request(http.MethodPost, "/accounts/auth", map[string]string{
			"email":    email,
			"password": password,
		}, nil)
		require.NoError(t, err)
		token, err := ExtractToken(resp)
		require.NoError(t, err)

		resp, err = ts.RequestWithAuth(http.MethodGet, "/accounts/nonce", token, nil)
		require.NoError(t, err)
		var nonceResp struct {
			Nonce string `json:"nonce"`
		}
		require.NoError(t, ParseJSONResponse(resp, &nonceResp))

		sig, err := crypto.Sign(web3.PersonalSignHash(services.ChallengeMessage(nonceResp.Nonce)), key)
		require.NoError(t, err)
		sig[crypto.RecoveryIDOffset] += 27

		resp, err = ts.RequestWithAuth(http.MethodPut, "/accounts/profile", token, map[string]string{
			"walletAddress": address,
			"signature":     hexutil.Encode(sig),
		})
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	// Same key, two accounts: the unique index allows exactly one bind.
	assert.Equal(t, http.StatusOK, bindWallet("unique-a"))
	assert.Equal(t, http.StatusConflict, bindWallet("unique-b"))
}
