// DamifeZion | 2026
// service.go

package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DamifeZion/new-replay/internal/core"
)

var (
	ErrUnknownPlan  = errors.New("unknown plan")
	ErrNoActivePlan = errors.New("no active subscription plan")
	ErrNoChange     = errors.New("already subscribed to this plan")
)

// UserDirectory is the slice of the user store the plan service needs.
type UserDirectory interface {
	ExistsByID(ctx context.Context, id string) (bool, error)
}

type Service struct {
	repo  Repository
	users UserDirectory
	now   func() time.Time
}

func NewService(repo Repository, users UserDirectory) *Service {
	return &Service{
		repo:  repo,
		users: users,
		now:   time.Now,
	}
}

// ChangePlan moves a user to a new subscription tier. Expiry is
// re-derived from the new name and duration, never passed in.
func (s *Service) ChangePlan(
	ctx context.Context,
	userID, name string,
	duration *string,
) (*Plan, error) {
	if _, ok := Lookup(name); !ok {
		return nil, fmt.Errorf("change plan: %q: %w", name, ErrUnknownPlan)
	}

	exists, err := s.users.ExistsByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("change plan: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("change plan: user: %w", core.ErrNotFound)
	}

	current, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("change plan: %w", ErrNoActivePlan)
		}
		return nil, fmt.Errorf("change plan: %w", err)
	}

	if current.Name == name && equalDuration(current.Duration, duration) {
		return nil, fmt.Errorf("change plan: %w", ErrNoChange)
	}

	slog.Info("updating subscription",
		"user_id", userID,
		"from", current.Name,
		"to", name,
	)

	current.Name = name
	current.Duration = duration
	current.Normalize(s.now())

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, fmt.Errorf("change plan: %w", err)
	}

	return current, nil
}

func (s *Service) GetByUserID(
	ctx context.Context,
	userID string,
) (*Plan, error) {
	return s.repo.GetByUserID(ctx, userID)
}

func equalDuration(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
