// DamifeZion | 2026
// service_test.go

package plan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DamifeZion/new-replay/internal/core"
)

type fakeRepo struct {
	plans map[string]*Plan
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{plans: make(map[string]*Plan)}
}

func (f *fakeRepo) Create(_ context.Context, p *Plan) error {
	f.plans[p.UserID] = p
	return nil
}

func (f *fakeRepo) GetByUserID(_ context.Context, userID string) (*Plan, error) {
	p, ok := f.plans[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) Update(_ context.Context, p *Plan) error {
	if _, ok := f.plans[p.UserID]; !ok {
		return core.ErrNotFound
	}
	cp := *p
	f.plans[p.UserID] = &cp
	return nil
}

func (f *fakeRepo) DeleteByUserID(_ context.Context, userID string) error {
	delete(f.plans, userID)
	return nil
}

type fakeDirectory struct {
	users map[string]bool
}

func (f *fakeDirectory) ExistsByID(_ context.Context, id string) (bool, error) {
	return f.users[id], nil
}

func newTestService(repo *fakeRepo, userIDs ...string) *Service {
	users := &fakeDirectory{users: make(map[string]bool)}
	for _, id := range userIDs {
		users.users[id] = true
	}
	svc := NewService(repo, users)
	svc.now = func() time.Time {
		return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestChangePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("upgrades and derives expiry", func(t *testing.T) {
		repo := newFakeRepo()
		repo.plans["user-1"] = NewFree("user-1", time.Now())
		svc := newTestService(repo, "user-1")

		yearly := DurationYearly
		updated, err := svc.ChangePlan(ctx, "user-1", NamePremium, &yearly)
		if err != nil {
			t.Fatalf("ChangePlan: %v", err)
		}

		if updated.Name != NamePremium {
			t.Errorf("name = %q, want %q", updated.Name, NamePremium)
		}
		if updated.ExpiresAt == nil {
			t.Fatal("expires_at not derived")
		}
		wantExpiry := time.Date(2027, 3, 15, 12, 0, 0, 0, time.UTC)
		if !updated.ExpiresAt.Equal(wantExpiry) {
			t.Errorf("expires_at = %v, want %v", updated.ExpiresAt, wantExpiry)
		}

		persisted := repo.plans["user-1"]
		if persisted.Name != NamePremium {
			t.Errorf("persisted name = %q, want %q", persisted.Name, NamePremium)
		}
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, "user-1")

		_, err := svc.ChangePlan(ctx, "user-1", "platinum", nil)
		if !errors.Is(err, ErrUnknownPlan) {
			t.Errorf("err = %v, want ErrUnknownPlan", err)
		}
	})

	t.Run("rejects unknown user", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo)

		_, err := svc.ChangePlan(ctx, "ghost", NameBasic, nil)
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("rejects user without a plan row", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo, "user-1")

		_, err := svc.ChangePlan(ctx, "user-1", NameBasic, nil)
		if !errors.Is(err, ErrNoActivePlan) {
			t.Errorf("err = %v, want ErrNoActivePlan", err)
		}
	})

	t.Run("rejects no-op change", func(t *testing.T) {
		repo := newFakeRepo()
		monthly := DurationMonthly
		repo.plans["user-1"] = &Plan{
			UserID:   "user-1",
			Name:     NameBasic,
			Duration: &monthly,
		}
		svc := newTestService(repo, "user-1")

		_, err := svc.ChangePlan(ctx, "user-1", NameBasic, &monthly)
		if !errors.Is(err, ErrNoChange) {
			t.Errorf("err = %v, want ErrNoChange", err)
		}
	})

	t.Run("same name different duration is a change", func(t *testing.T) {
		repo := newFakeRepo()
		monthly := DurationMonthly
		repo.plans["user-1"] = &Plan{
			UserID:   "user-1",
			Name:     NameBasic,
			Duration: &monthly,
		}
		svc := newTestService(repo, "user-1")

		yearly := DurationYearly
		updated, err := svc.ChangePlan(ctx, "user-1", NameBasic, &yearly)
		if err != nil {
			t.Fatalf("ChangePlan: %v", err)
		}
		if updated.Duration == nil || *updated.Duration != DurationYearly {
			t.Errorf("duration = %v, want yearly", deref(updated.Duration))
		}
	})

	t.Run("downgrade to free clears expiry", func(t *testing.T) {
		repo := newFakeRepo()
		yearly := DurationYearly
		expires := time.Now().AddDate(1, 0, 0)
		repo.plans["user-1"] = &Plan{
			UserID:    "user-1",
			Name:      NamePremium,
			Duration:  &yearly,
			ExpiresAt: &expires,
		}
		svc := newTestService(repo, "user-1")

		updated, err := svc.ChangePlan(ctx, "user-1", NameFree, nil)
		if err != nil {
			t.Fatalf("ChangePlan: %v", err)
		}
		if updated.Duration != nil || updated.ExpiresAt != nil {
			t.Error("free plan must clear duration and expiry")
		}
	})
}
