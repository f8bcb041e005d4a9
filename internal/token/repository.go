// DamifeZion | 2026
// repository.go

package token

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DamifeZion/new-replay/internal/core"
)

type Repository interface {
	Create(ctx context.Context, token *Token) error
	FindActive(
		ctx context.Context,
		userID, value string,
		purpose Purpose,
	) (*Token, error)
	ExistsActive(ctx context.Context, value string) (bool, error)
	DeleteByPurpose(ctx context.Context, userID string, purpose Purpose) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *Token) error {
	query := `
		INSERT INTO tokens (id, user_id, token, purpose, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.Token,
		token.Purpose,
		token.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}

	return nil
}

func (r *repository) FindActive(
	ctx context.Context,
	userID, value string,
	purpose Purpose,
) (*Token, error) {
	query := `
		SELECT id, user_id, token, purpose, expires_at, created_at
		FROM tokens
		WHERE user_id = $1 AND token = $2 AND purpose = $3
			AND expires_at > NOW()`

	var token Token
	err := r.db.GetContext(ctx, &token, query, userID, value, purpose)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find token: %w", err)
	}

	return &token, nil
}

func (r *repository) ExistsActive(
	ctx context.Context,
	value string,
) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM tokens WHERE token = $1 AND expires_at > NOW()
		)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, value); err != nil {
		return false, fmt.Errorf("check token exists: %w", err)
	}

	return exists, nil
}

func (r *repository) DeleteByPurpose(
	ctx context.Context,
	userID string,
	purpose Purpose,
) error {
	query := `DELETE FROM tokens WHERE user_id = $1 AND purpose = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, purpose); err != nil {
		return fmt.Errorf("delete tokens by purpose: %w", err)
	}

	return nil
}

func (r *repository) DeleteAllForUser(
	ctx context.Context,
	userID string,
) error {
	query := `DELETE FROM tokens WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete user tokens: %w", err)
	}

	return nil
}

// DeleteExpired sweeps lapsed rows; a background loop calls this to
// emulate store-level TTL expiry.
func (r *repository) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM tokens WHERE expires_at < NOW()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
