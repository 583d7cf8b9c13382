package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidToken is returned when a bearer token maps to no actor.
var ErrInvalidToken = errors.New("unauthorized: invalid token")

// APIKeyRepository maps hashed bearer tokens to actor ids.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create registers token for actorID. Only the token hash is stored.
func (r *APIKeyRepository) Create(ctx context.Context, token, actorID, description string) error {
	if token == "" || actorID == "" {
		return errors.New("token and actor id are required")
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, actor_id, description, created_at) VALUES (?, ?, ?, ?)`,
		HashToken(token), actorID, description, time.Now().UTC(),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("api key already registered")
	}
	if err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ResolveActor returns the actor id a bearer token belongs to and records its use.
func (r *APIKeyRepository) ResolveActor(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var actorID string
	err := r.db.QueryRowContext(ctx, `SELECT actor_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&actorID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && actorID == "") {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash,
	); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return actorID, nil
}

// HashToken returns the hex SHA-256 of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
