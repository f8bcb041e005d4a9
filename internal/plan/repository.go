// DamifeZion | 2026
// repository.go

package plan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/DamifeZion/new-replay/internal/core"
)

type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByUserID(ctx context.Context, userID string) (*Plan, error)
	Update(ctx context.Context, plan *Plan) error
	DeleteByUserID(ctx context.Context, userID string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, plan *Plan) error {
	query := `
		INSERT INTO plans (id, user_id, name, duration, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.GetContext(ctx, plan, query,
		plan.ID,
		plan.UserID,
		plan.Name,
		plan.Duration,
		plan.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("create plan: %w", err)
	}

	return nil
}

func (r *repository) GetByUserID(
	ctx context.Context,
	userID string,
) (*Plan, error) {
	query := `
		SELECT id, user_id, name, duration, expires_at, created_at, updated_at
		FROM plans
		WHERE user_id = $1`

	var plan Plan
	err := r.db.GetContext(ctx, &plan, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get plan: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get plan: %w", err)
	}

	return &plan, nil
}

func (r *repository) Update(ctx context.Context, plan *Plan) error {
	query := `
		UPDATE plans
		SET name = $2, duration = $3, expires_at = $4, updated_at = NOW()
		WHERE user_id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &plan.UpdatedAt, query,
		plan.UserID,
		plan.Name,
		plan.Duration,
		plan.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update plan: %w", core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update plan: %w", err)
	}

	return nil
}

func (r *repository) DeleteByUserID(
	ctx context.Context,
	userID string,
) error {
	query := `DELETE FROM plans WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}

	return nil
}
