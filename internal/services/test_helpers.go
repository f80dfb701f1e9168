package services

import (
	"context"
	"time"

	"github.com/nexusai/terminal-api/internal/models"
)

// MockUserRepository implements UserRepository with overridable functions
type MockUserRepository struct {
	GetByIDFunc           func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc        func(ctx context.Context, email string) (*models.User, error)
	GetByResetDigestFunc  func(ctx context.Context, digest string) (*models.User, error)
	CreateFunc            func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfileFunc     func(ctx context.Context, id, username, email string) (*models.User, error)
	UpdatePasswordFunc    func(ctx context.Context, id, passwordHash string) error
	SetResetSecretFunc    func(ctx context.Context, id, digest string, plain *string, expiresAt time.Time) error
	ClearResetSecretFunc  func(ctx context.Context, id string) error
	RedeemResetSecretFunc func(ctx context.Context, id, passwordHash string) (*models.User, error)
	BindWalletFunc        func(ctx context.Context, id, address string) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByResetDigest(ctx context.Context, digest string) (*models.User, error) {
	if m.GetByResetDigestFunc != nil {
		return m.GetByResetDigestFunc(ctx, digest)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id, username, email string) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, username, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetResetSecret(ctx context.Context, id, digest string, plain *string, expiresAt time.Time) error {
	if m.SetResetSecretFunc != nil {
		return m.SetResetSecretFunc(ctx, id, digest, plain, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) ClearResetSecret(ctx context.Context, id string) error {
	if m.ClearResetSecretFunc != nil {
		return m.ClearResetSecretFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) RedeemResetSecret(ctx context.Context, id, passwordHash string) (*models.User, error) {
	if m.RedeemResetSecretFunc != nil {
		return m.RedeemResetSecretFunc(ctx, id, passwordHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) BindWallet(ctx context.Context, id, address string) (*models.User, error) {
	if m.BindWalletFunc != nil {
		return m.BindWalletFunc(ctx, id, address)
	}
	return nil, models.ErrNotFound
}

// NewTestUser creates a user fixture with sensible defaults
func NewTestUser(id, username, email string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Username:  username,
		Email:     email,
		Role:      "user",
		Nonce:     "42",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MockEmailService implements EmailService with overridable functions
type MockEmailService struct {
	SendPasswordResetFunc func(ctx context.Context, to, resetLink string) error
	Sent                  []SentMail
}

// SentMail records a dispatched reset email
type SentMail struct {
	To        string
	ResetLink string
}

func (m *MockEmailService) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	if m.SendPasswordResetFunc != nil {
		if err := m.SendPasswordResetFunc(ctx, to, resetLink); err != nil {
			return err
		}
	}
	m.Sent = append(m.Sent, SentMail{To: to, ResetLink: resetLink})
	return nil
}
