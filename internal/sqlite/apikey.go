package sqlite

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/repository"
	"github.com/zeebo/blake3"
)

// APIKeyRepository stores bearer tokens by hash and maps them to the
// ledger account they act as
type APIKeyRepository struct {
	db  *DB
	now func() time.Time
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db, now: time.Now}
}

// GenerateToken returns a new random bearer token
func GenerateToken() string {
	return "trk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// HashToken returns the stored form of a token
func HashToken(token string) string {
	sum := blake3.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add registers token for account
func (r *APIKeyRepository) Add(ctx context.Context, token string, account vesting.Account, description string) error {
	if strings.TrimSpace(token) == "" || account.IsNull() {
		return repository.ErrInvalidInput
	}
	_, err := r.db.conn(ctx).ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, account, created_at, description) VALUES (?, ?, ?, ?)`,
		HashToken(token), string(account), r.now().UTC(), description)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// ResolveCaller returns the account a token acts as and records its use
func (r *APIKeyRepository) ResolveCaller(ctx context.Context, token string) (vesting.Account, error) {
	hash := HashToken(token)
	var account string
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT account FROM api_keys WHERE key_hash = ?`, hash).Scan(&account)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, r.now().UTC(), hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return vesting.Account(account), nil
}
