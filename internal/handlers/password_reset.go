package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/models"
	"github.com/nexusai/terminal-api/internal/services"
	pkghttp "github.com/nexusai/terminal-api/pkg/http"
)

// PasswordResetServiceInterface defines the interface for the reset lifecycle
type PasswordResetServiceInterface interface {
	RequestReset(ctx context.Context, email string) error
	RedeemReset(ctx context.Context, secret, newPassword string) (*services.AuthResponse, error)
	PlainResetToken(ctx context.Context, email string) (string, error)
}

// PasswordResetHandler handles password recovery HTTP requests
type PasswordResetHandler struct {
	service      PasswordResetServiceInterface
	cookies      auth.CookieConfig
	cookieMaxAge int
}

// NewPasswordResetHandler creates a new PasswordResetHandler
func NewPasswordResetHandler(service PasswordResetServiceInterface, cookies auth.CookieConfig, cookieMaxAge int) *PasswordResetHandler {
	return &PasswordResetHandler{
		service:      service,
		cookies:      cookies,
		cookieMaxAge: cookieMaxAge,
	}
}

// ForgotPasswordRequest represents the request body for a reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for redeeming a reset secret
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// ResetPasswordResponse confirms a redeemed reset and carries a fresh session
type ResetPasswordResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
}

// ForgotPassword issues a reset secret and mails the recovery link
func (h *PasswordResetHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.service.RequestReset(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No account with this email")
		case errors.Is(err, models.ErrEmailDispatchFailed):
			pkghttp.WriteInternalError(w, "Email could not be sent")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    "Email sent",
	})
}

var resetViewTemplate = template.Must(template.New("resetview").Parse(`<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>Reset Password</title>
</head>
<body>
	<h1>Choose a new password</h1>
	<form id="reset-form">
		<input type="password" id="password" placeholder="New password" minlength="8" required>
		<button type="submit">Reset password</button>
	</form>
	<p id="result"></p>
	<script>
		document.getElementById('reset-form').addEventListener('submit', async function (e) {
			e.preventDefault();
			const res = await fetch('/accounts/resetpassword/{{.Secret}}', {
				method: 'PUT',
				headers: { 'Content-Type': 'application/json' },
				body: JSON.stringify({ password: document.getElementById('password').value })
			});
			const body = await res.json();
			document.getElementById('result').textContent =
				res.ok ? 'Password updated.' : (body.message || 'Reset failed.');
		});
	</script>
</body>
</html>
`))

// ResetPasswordView serves a minimal HTML form that submits the new password
// against the redemption endpoint. Used when no SPA frontend handles the link.
func (h *PasswordResetHandler) ResetPasswordView(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")
	if secret == "" {
		pkghttp.WriteBadRequest(w, "Missing reset secret")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = resetViewTemplate.Execute(w, struct{ Secret string }{Secret: secret})
}

// ResetPassword redeems a reset secret for a new password and session
func (h *PasswordResetHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "secret")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.RedeemReset(r.Context(), secret, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrResetInvalidOrExpired):
			pkghttp.WriteBadRequest(w, "Invalid or expired reset link")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "Invalid password")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, resp.Token, h.cookieMaxAge, h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, ResetPasswordResponse{Success: true, Token: resp.Token})
}

// TestResetToken exposes the plaintext reset secret for development tooling.
// Always forbidden in production.
func (h *PasswordResetHandler) TestResetToken(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")

	plain, err := h.service.PlainResetToken(r.Context(), email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrForbidden):
			pkghttp.WriteForbidden(w, "Not available in production")
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "No active reset for this email")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"resetToken": plain})
}
