// DamifeZion | 2026
// repository.go

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/DamifeZion/new-replay/internal/core"
)

type Repository interface {
	Create(ctx context.Context, session *Session) error
	GetByToken(ctx context.Context, token string) (*Session, error)
	GetByTokenOrID(ctx context.Context, identifier string) (*Session, error)
	AllForUser(ctx context.Context, userID string) ([]Session, error)
	CountForUser(ctx context.Context, userID string) (int, error)
	ExistsByToken(ctx context.Context, token string) (bool, error)
	SwapToken(ctx context.Context, oldToken, newToken string) error
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) (int64, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const sessionColumns = `
	id, user_id, session_token, user_agent, ip_address,
	created_at, updated_at`

func (r *repository) Create(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, session_token, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, session, query,
		session.ID,
		session.UserID,
		session.SessionToken,
		session.UserAgent,
		session.IPAddress,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create session: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create session: %w", err)
	}

	return nil
}

func (r *repository) GetByToken(
	ctx context.Context,
	token string,
) (*Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions WHERE session_token = $1`

	var session Session
	err := r.db.GetContext(ctx, &session, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &session, nil
}

// GetByTokenOrID resolves a session by its token or by its row id,
// whichever the identifier matches.
func (r *repository) GetByTokenOrID(
	ctx context.Context,
	identifier string,
) (*Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE session_token = $1 OR id::text = $1`

	var session Session
	err := r.db.GetContext(ctx, &session, query, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &session, nil
}

func (r *repository) AllForUser(
	ctx context.Context,
	userID string,
) ([]Session, error) {
	query := `SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1
		ORDER BY created_at ASC`

	var sessions []Session
	if err := r.db.SelectContext(ctx, &sessions, query, userID); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	return sessions, nil
}

func (r *repository) CountForUser(
	ctx context.Context,
	userID string,
) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE user_id = $1`

	var count int
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}

	return count, nil
}

func (r *repository) ExistsByToken(
	ctx context.Context,
	token string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM sessions WHERE session_token = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, token); err != nil {
		return false, fmt.Errorf("check session exists: %w", err)
	}

	return exists, nil
}

// SwapToken rotates a refresh token in place. The conditional WHERE
// makes concurrent rotations of the same token race-safe: exactly one
// wins, the rest see ErrNotFound.
func (r *repository) SwapToken(
	ctx context.Context,
	oldToken, newToken string,
) error {
	query := `
		UPDATE sessions
		SET session_token = $2, updated_at = NOW()
		WHERE session_token = $1`

	result, err := r.db.ExecContext(ctx, query, oldToken, newToken)
	if err != nil {
		return fmt.Errorf("swap session token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("swap session token: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("swap session token: %w", core.ErrNotFound)
	}

	return nil
}

// Delete is idempotent; removing an absent session is not an error.
func (r *repository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

func (r *repository) DeleteAllForUser(
	ctx context.Context,
	userID string,
) (int64, error) {
	query := `DELETE FROM sessions WHERE user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete user sessions: %w", err)
	}

	return rows, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
