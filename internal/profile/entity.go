// DamifeZion | 2026
// entity.go

package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a viewing identity under a user. Names are unique per
// user, and a user always keeps at least one profile.
type Profile struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	IsKids    bool      `db:"is_kids"`
	Avatar    string    `db:"avatar"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func New(userID, name string, isKids bool, avatar string) *Profile {
	return &Profile{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   name,
		IsKids: isKids,
		Avatar: avatar,
	}
}
