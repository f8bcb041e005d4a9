// DamifeZion | 2026
// entity.go

package plan

import (
	"time"

	"github.com/google/uuid"
)

const (
	DurationMonthly = "monthly"
	DurationYearly  = "yearly"
)

// Plan is a user's subscription row, one per user.
type Plan struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Name      string     `db:"name"`
	Duration  *string    `db:"duration"`
	ExpiresAt *time.Time `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

// NewFree is the plan every account starts on.
func NewFree(userID string, now time.Time) *Plan {
	p := &Plan{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   NameFree,
	}
	p.Normalize(now)
	return p
}

// Normalize derives duration and expiry from the plan name:
// free plans carry neither; paid yearly plans expire in one year;
// any other duration value on a paid plan is coerced to monthly with
// a one month expiry.
func (p *Plan) Normalize(now time.Time) {
	if p.Name == NameFree {
		p.Duration = nil
		p.ExpiresAt = nil
		return
	}

	if p.Duration != nil && *p.Duration == DurationYearly {
		expires := now.AddDate(1, 0, 0)
		p.ExpiresAt = &expires
		return
	}

	monthly := DurationMonthly
	p.Duration = &monthly
	expires := now.AddDate(0, 1, 0)
	p.ExpiresAt = &expires
}

// Expired reports whether the plan's paid period has lapsed. Free
// plans never expire.
func (p *Plan) Expired(now time.Time) bool {
	if p.ExpiresAt == nil {
		return false
	}
	return now.After(*p.ExpiresAt)
}

func (p *Plan) Capacity() Features {
	entry, ok := Lookup(p.Name)
	if !ok {
		return catalog[NameFree].Features
	}
	return entry.Features
}
