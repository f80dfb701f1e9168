package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nexusai/terminal-api/internal/auth"
	"github.com/nexusai/terminal-api/internal/config"
	"github.com/nexusai/terminal-api/internal/database"
	"github.com/nexusai/terminal-api/internal/handlers"
	"github.com/nexusai/terminal-api/internal/repositories"
	"github.com/nexusai/terminal-api/internal/routes"
	"github.com/nexusai/terminal-api/internal/services"
	pkglogger "github.com/nexusai/terminal-api/pkg/logger"
)

// SentEmail represents a captured outbound email
type SentEmail struct {
	To        string
	ResetLink string
}

// CaptureEmailService records reset emails for test assertions. FailNext
// makes the next dispatch fail, to exercise the rollback path.
type CaptureEmailService struct {
	mu       sync.Mutex
	Sent     []SentEmail
	FailNext error
}

func (m *CaptureEmailService) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext != nil {
		err := m.FailNext
		m.FailNext = nil
		return err
	}
	m.Sent = append(m.Sent, SentEmail{To: to, ResetLink: resetLink})
	return nil
}

// LastEmail returns the most recent captured email, or nil
func (m *CaptureEmailService) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Sent) == 0 {
		return nil
	}
	return &m.Sent[len(m.Sent)-1]
}

// TestServer wraps httptest.Server with a real database and captured email
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *CaptureEmailService
	Config       *config.Config
	UserRepo     *repositories.UserRepository
}

// NewTestServer wires the full production stack over the given database,
// with email capture instead of SES.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:     "test-secret-32-characters-long-for-testing",
			SessionExpiry: 30 * 24 * time.Hour,
		},
		Email: config.EmailConfig{
			FromAddress:  "noreply@test.local",
			ResetURLBase: "http://localhost:3000",
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
		},
	}

	userRepo := repositories.NewUserRepository(db)
	mockEmail := &CaptureEmailService{}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	authService := services.NewAuthService(userRepo, tokenManager, auditLogger, logger)
	userService := services.NewUserService(userRepo, logger)
	resetService := services.NewPasswordResetService(userRepo, mockEmail, tokenManager, cfg, auditLogger, logger)
	walletService := services.NewWalletService(userRepo, auditLogger, logger)

	cookieConfig := auth.DefaultCookieConfig(cfg.Server.Env)
	cookieMaxAge := tokenManager.SessionExpirySeconds()
	accountsHandler := handlers.NewAccountsHandler(authService, cookieConfig, cookieMaxAge)
	resetHandler := handlers.NewPasswordResetHandler(resetService, cookieConfig, cookieMaxAge)
	profileHandler := handlers.NewProfileHandler(userService, walletService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, accountsHandler, resetHandler, profileHandler, tokenManager, userRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		DB:           db,
		EmailService: mockEmail,
		Config:       cfg,
		UserRepo:     userRepo,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated request with a session token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// ParseJSONResponse parses a JSON response body into target
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractToken pulls the session token out of an auth response
func ExtractToken(resp *http.Response) (string, error) {
	var authResp struct {
		Token string `json:"token"`
	}
	if err := ParseJSONResponse(resp, &authResp); err != nil {
		return "", err
	}
	return authResp.Token, nil
}
