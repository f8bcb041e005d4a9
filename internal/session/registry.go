// DamifeZion | 2026
// registry.go

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/plan"
	"github.com/DamifeZion/new-replay/internal/user"
)

var (
	ErrDuplicateSession = errors.New("session already exists")
	ErrSessionExpired   = errors.New("session expired")
)

// LimitError is returned when a user's plan has no free session slot.
// It carries the cap and the devices currently holding slots so the
// boundary can tell the user what to sign out of.
type LimitError struct {
	Max     int
	Devices []string
}

func (e *LimitError) Error() string {
	device := "device"
	from := "device"
	if e.Max > 1 {
		device = "devices"
		from = "one of the following devices"
	}

	return fmt.Sprintf(
		"You have reached the maximum number of devices allowed for "+
			"your plan (%d %s). Please sign out from %s: '%s' and try again.",
		e.Max,
		device,
		from,
		strings.Join(e.Devices, "', '"),
	)
}

// PlanSource is the slice of the plan store the registry reads
// capacity from.
type PlanSource interface {
	GetByUserID(ctx context.Context, userID string) (*plan.Plan, error)
}

// UserSource resolves the identity embedded in freshly minted access
// tokens.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

// Issuer mints and checks the credentials that back sessions.
type Issuer interface {
	IssueAccess(userID, name, email string) (string, error)
	IssueRefresh(userID string) (string, error)
	VerifyRefresh(token string) (string, error)
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Registry tracks active sessions per user and enforces the
// plan-derived concurrency cap.
type Registry struct {
	repo   Repository
	plans  PlanSource
	users  UserSource
	issuer Issuer
	locks  *core.KeyedMutex
}

func NewRegistry(
	repo Repository,
	plans PlanSource,
	users UserSource,
	issuer Issuer,
) *Registry {
	return &Registry{
		repo:   repo,
		plans:  plans,
		users:  users,
		issuer: issuer,
		locks:  core.NewKeyedMutex(),
	}
}

// Create inserts a session for the user if their plan has a free slot.
// The capacity check and the insert run under the user's lock so two
// concurrent logins cannot both squeeze past the cap.
func (r *Registry) Create(
	ctx context.Context,
	userID, refreshToken string,
	client Client,
) (*Session, error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	userPlan, err := r.plans.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("create session: %w", plan.ErrNoActivePlan)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	capacity := userPlan.Capacity().SimultaneousStreams

	active, err := r.repo.AllForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if capacity != plan.Unlimited && len(active) >= capacity {
		devices := make([]string, 0, len(active))
		for i := range active {
			devices = append(devices, active[i].Device())
		}

		return nil, &LimitError{Max: capacity, Devices: devices}
	}

	exists, err := r.repo.ExistsByToken(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("create session: %w", ErrDuplicateSession)
	}

	sess := newSession(userID, refreshToken, client)
	if err := r.repo.Create(ctx, sess); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("create session: %w", ErrDuplicateSession)
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	return sess, nil
}

// Get resolves a session by token or row id.
func (r *Registry) Get(
	ctx context.Context,
	identifier string,
) (*Session, error) {
	return r.repo.GetByTokenOrID(ctx, identifier)
}

func (r *Registry) All(
	ctx context.Context,
	userID string,
) ([]Session, error) {
	return r.repo.AllForUser(ctx, userID)
}

// Invalidate removes one session. Absent sessions are ignored.
func (r *Registry) Invalidate(ctx context.Context, sessionID string) error {
	return r.repo.Delete(ctx, sessionID)
}

// InvalidateAll removes every session a user holds and reports how
// many were dropped.
func (r *Registry) InvalidateAll(
	ctx context.Context,
	userID string,
) (int64, error) {
	return r.repo.DeleteAllForUser(ctx, userID)
}

// Refresh rotates a refresh token: the session row keeps its identity
// while its token is swapped old for new in one conditional update.
// A token no session holds means the session was revoked or already
// rotated; both surface as ErrSessionExpired.
func (r *Registry) Refresh(
	ctx context.Context,
	refreshToken string,
) (*TokenPair, error) {
	userID, err := r.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	owner, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh session: %w", ErrSessionExpired)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	accessToken, err := r.issuer.IssueAccess(
		owner.ID,
		owner.FullName,
		owner.Email,
	)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	newRefresh, err := r.issuer.IssueRefresh(owner.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	if err := r.repo.SwapToken(ctx, refreshToken, newRefresh); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("refresh session: %w", ErrSessionExpired)
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	slog.Debug("session token rotated", "user_id", owner.ID)

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
	}, nil
}
