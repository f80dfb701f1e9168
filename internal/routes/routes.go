package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/handlers"
	"github.com/nexusai/terminal-api/internal/middleware"
)

// RegisterRoutes registers the account surface under /accounts
func RegisterRoutes(
	router chi.Router,
	accountsHandler *handlers.AccountsHandler,
	resetHandler *handlers.PasswordResetHandler,
	profileHandler *handlers.ProfileHandler,
	tokenManager *auth.TokenManager,
	users auth.UserFetcher,
) {
	authLimit := middleware.RateLimitByIP(middleware.DefaultAuthRateLimit())
	resetLimit := middleware.RateLimitByIP(middleware.DefaultResetRateLimit())

	router.Route("/accounts", func(r chi.Router) {
		// Public
		r.With(authLimit).Post("/", accountsHandler.Register)
		r.With(authLimit).Post("/auth", accountsHandler.Login)
		r.Post("/logout", accountsHandler.Logout)

		r.With(resetLimit).Post("/forgotpassword", resetHandler.ForgotPassword)
		r.Get("/resetview/{secret}", resetHandler.ResetPasswordView)
		r.With(resetLimit).Put("/resetpassword/{secret}", resetHandler.ResetPassword)
		r.Get("/test-reset-token/{email}", resetHandler.TestResetToken)

		// Authenticated
		r.Group(func(r chi.Router) {
			r.Use(auth.Protect(tokenManager, users))

			r.Get("/profile", profileHandler.GetProfile)
			r.Put("/profile", profileHandler.UpdateProfile)
			r.Get("/nonce", profileHandler.GetNonce)
		})
	})
}
