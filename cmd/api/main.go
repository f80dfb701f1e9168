package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/background"
	"github.com/nexusai/terminal-api/internal/config"
	"github.com/nexusai/terminal-api/internal/database"
	"github.com/nexusai/terminal-api/internal/handlers"
	middlewareCustom "github.com/nexusai/terminal-api/internal/middleware"
	"github.com/nexusai/terminal-api/internal/models"
	"github.com/nexusai/terminal-api/internal/repositories"
	"github.com/nexusai/terminal-api/internal/routes"
	"github.com/nexusai/terminal-api/internal/services"
	pkgauth "github.com/nexusai/terminal-api/pkg/auth"
	pkglogger "github.com/nexusai/terminal-api/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Run migrations
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	migrateCancel()

	// Repositories
	userRepo := repositories.NewUserRepository(db)

	// Token manager and audit logging
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Email service: real SES when configured, log-only otherwise.
	// config.Load rejects a production environment without mail transport.
	var emailService services.EmailService
	if cfg.Email.Configured() {
		sesService, err := services.NewAWSSESEmailService(context.Background(), &cfg.Email, logger)
		if err != nil {
			logger.Error("failed to initialize email service", slog.Any("error", err))
			os.Exit(1)
		}
		emailService = sesService
	} else {
		logger.Info("no mail transport configured, simulating outbound email")
		emailService = services.NewSimulatedEmailService(logger)
	}

	// Services
	authService := services.NewAuthService(userRepo, tokenManager, auditLogger, logger)
	userService := services.NewUserService(userRepo, logger)
	resetService := services.NewPasswordResetService(userRepo, emailService, tokenManager, cfg, auditLogger, logger)
	walletService := services.NewWalletService(userRepo, auditLogger, logger)

	// Handlers
	cookieConfig := auth.DefaultCookieConfig(cfg.Server.Env)
	cookieMaxAge := tokenManager.SessionExpirySeconds()
	accountsHandler := handlers.NewAccountsHandler(authService, cookieConfig, cookieMaxAge)
	resetHandler := handlers.NewPasswordResetHandler(resetService, cookieConfig, cookieMaxAge)
	profileHandler := handlers.NewProfileHandler(userService, walletService)

	// Reset-secret janitor
	cleanupManager := background.NewCleanupManager(userRepo, logger, 15*time.Minute)

	// Bootstrap a seed account if configured
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureSeedUser(seedCtx, userRepo, cfg.Seed, logger); err != nil {
		logger.Error("failed to ensure seed user", slog.Any("error", err))
	}
	seedCancel()

	// Router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.CORS(middlewareCustom.NewCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, accountsHandler, resetHandler, profileHandler, tokenManager, userRepo)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// ensureSeedUser creates a bootstrap account if the seed config is enabled.
// Useful for demo environments and local frontend work.
func ensureSeedUser(ctx context.Context, userRepo *repositories.UserRepository, seed config.SeedConfig, logger *slog.Logger) error {
	if !seed.Enabled() {
		return nil
	}

	_, err := userRepo.GetByEmail(ctx, seed.Email)
	if err == nil {
		logger.Info("seed user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if seed user exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(seed.Password)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	if _, err := userRepo.Create(ctx, &models.User{
		Username:     seed.Username,
		Email:        seed.Email,
		PasswordHash: hashedPassword,
	}); err != nil {
		return fmt.Errorf("failed to create seed user: %w", err)
	}

	logger.Info("seed user created")
	return nil
}
