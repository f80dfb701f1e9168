package repositories

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nexusai/terminal-api/internal/database"
	"github.com/nexusai/terminal-api/internal/models"
)

const userColumns = `id, username, email, password_hash, role,
		reset_secret_digest, reset_secret_plain, reset_expires_at,
		wallet_address, nonce, created_at, updated_at`

// NonceRange bounds the random nonce value; nonces are uniform in [0, NonceRange).
const NonceRange = 1_000_000

// UserRepository persists accounts. Mutations that the protocols need to be
// atomic (digest+expiry together, address+nonce together) are single UPDATE
// statements, so callers cannot get them wrong.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

// GenerateNonce produces a fresh signing nonce: a uniform random integer in
// [0, NonceRange), stringified.
func GenerateNonce() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(NonceRange))
	if err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return n.String(), nil
}

// rowScanner interface for scanning user rows (single row or multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanUserRowRaw populates a User model from a database row, leaving the
// driver error untouched for callers that need the constraint name.
func scanUserRowRaw(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role,
		&user.ResetSecretDigest, &user.ResetSecretPlain, &user.ResetExpiresAt,
		&user.WalletAddress, &user.Nonce,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// scanUserRow maps driver errors onto the model sentinels
func scanUserRow(scanner rowScanner) (*models.User, error) {
	user, err := scanUserRowRaw(scanner)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

// GetByResetDigest finds the account holding a pending reset secret. Expiry
// is checked by the caller so that "no match" and "expired" stay
// indistinguishable in the response.
func (r *UserRepository) GetByResetDigest(ctx context.Context, digest string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_secret_digest = $1`

	return scanUserRow(r.pool.QueryRow(ctx, query, digest))
}

// Create inserts a new account. The id and the initial nonce are generated
// here; role defaults to the non-privileged one.
func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}
	user.Nonce = nonce

	if user.Role == "" {
		user.Role = "user"
	}

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, email, password_hash, role, nonce, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.Role, user.Nonce, user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateProfile updates the plain profile fields (not password, reset or
// wallet state, which have their own commands).
func (r *UserRepository) UpdateProfile(ctx context.Context, id, username, email string) (*models.User, error) {
	query := `
		UPDATE users SET username = $1, email = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, username, email, id))
}

// UpdatePassword replaces the password digest outside the reset flow
// (authenticated profile update).
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetResetSecret stores the reset digest, the expiry and (outside
// production) the plaintext in one statement, so a record can never hold a
// digest without its expiry.
func (r *UserRepository) SetResetSecret(ctx context.Context, id, digest string, plain *string, expiresAt time.Time) error {
	query := `
		UPDATE users
		SET reset_secret_digest = $1, reset_secret_plain = $2, reset_expires_at = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query, digest, plain, expiresAt, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ClearResetSecret rolls a pending reset back to the no-active-reset state.
func (r *UserRepository) ClearResetSecret(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET reset_secret_digest = NULL, reset_secret_plain = NULL, reset_expires_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RedeemResetSecret installs the new password digest and clears the reset
// state in the same statement, consuming the secret exactly once.
func (r *UserRepository) RedeemResetSecret(ctx context.Context, id, passwordHash string) (*models.User, error) {
	query := `
		UPDATE users
		SET password_hash = $1,
		    reset_secret_digest = NULL, reset_secret_plain = NULL, reset_expires_at = NULL,
		    updated_at = NOW()
		WHERE id = $2
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query, passwordHash, id))
}

// ClearExpiredResetSecrets drops reset state whose window has passed.
// Redemption checks expiry itself; this only keeps stale secrets from
// lingering in the table.
func (r *UserRepository) ClearExpiredResetSecrets(ctx context.Context) (int64, error) {
	query := `
		UPDATE users
		SET reset_secret_digest = NULL, reset_secret_plain = NULL, reset_expires_at = NULL, updated_at = NOW()
		WHERE reset_expires_at IS NOT NULL AND reset_expires_at <= NOW()
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

// BindWallet writes the verified address and a freshly generated nonce
// atomically. The unique constraint on wallet_address decides races between
// two accounts claiming the same address: exactly one UPDATE succeeds.
func (r *UserRepository) BindWallet(ctx context.Context, id, address string) (*models.User, error) {
	nonce, err := GenerateNonce()
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE users SET wallet_address = $1, nonce = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + userColumns

	user, err := scanUserRowRaw(r.pool.QueryRow(ctx, query, address, nonce, id))
	if err != nil {
		if database.UniqueViolation(err, "users_wallet_address_key") {
			return nil, models.ErrWalletAddressTaken
		}
		return nil, database.MapPostgresError(err)
	}

	return user, nil
}
