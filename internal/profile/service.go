// DamifeZion | 2026
// service.go

package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/plan"
)

var (
	ErrDuplicateName = errors.New("profile name already exists")
	ErrLimitReached  = errors.New(
		"you have reached the maximum number of profiles allowed",
	)
	ErrLastProfile = errors.New(
		"at least one profile must remain",
	)
)

// PlanSource is the slice of the plan store the profile cap is read
// from.
type PlanSource interface {
	GetByUserID(ctx context.Context, userID string) (*plan.Plan, error)
}

// Service enforces the per-plan profile cap and the one-profile floor.
// Create and Delete hold the owning user's lock across their
// count-then-write sequences.
type Service struct {
	repo  Repository
	plans PlanSource
	locks *core.KeyedMutex
}

func NewService(repo Repository, plans PlanSource) *Service {
	return &Service{
		repo:  repo,
		plans: plans,
		locks: core.NewKeyedMutex(),
	}
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Profile, error) {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if profile.UserID != userID {
		return nil, fmt.Errorf("get profile: %w", core.ErrForbidden)
	}

	return profile, nil
}

func (s *Service) All(ctx context.Context, userID string) ([]Profile, error) {
	return s.repo.AllForUser(ctx, userID)
}

func (s *Service) Create(
	ctx context.Context,
	userID, name string,
	isKids bool,
	avatar string,
) (*Profile, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	taken, err := s.repo.ExistsByName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("create profile: %w", ErrDuplicateName)
	}

	count, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	userPlan, err := s.plans.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("create profile: %w", plan.ErrNoActivePlan)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	maxProfiles := userPlan.Capacity().MaxProfiles
	if maxProfiles != plan.Unlimited && count >= maxProfiles {
		return nil, fmt.Errorf("create profile: %w", ErrLimitReached)
	}

	p := New(userID, name, isKids, avatar)
	if err := s.repo.Create(ctx, p); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("create profile: %w", ErrDuplicateName)
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	return p, nil
}

func (s *Service) Update(
	ctx context.Context,
	userID, id string,
	name *string,
	isKids *bool,
	avatar *string,
) (*Profile, error) {
	profile, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if name != nil {
		profile.Name = *name
	}
	if isKids != nil {
		profile.IsKids = *isKids
	}
	if avatar != nil {
		profile.Avatar = *avatar
	}

	if err := s.repo.Update(ctx, profile); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("update profile: %w", ErrDuplicateName)
		}
		return nil, err
	}

	return profile, nil
}

// Delete refuses to remove the user's only remaining profile.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	profile, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	count, err := s.repo.CountForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if count <= 1 {
		return fmt.Errorf("delete profile: %w", ErrLastProfile)
	}

	return s.repo.Delete(ctx, profile.ID)
}
