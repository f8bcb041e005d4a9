// DamifeZion | 2026
// entity.go

package session

import (
	"time"

	"github.com/google/uuid"
)

// Session is one authenticated device. SessionToken holds the current
// refresh token and is replaced in place on rotation.
type Session struct {
	ID           string    `db:"id"`
	UserID       string    `db:"user_id"`
	SessionToken string    `db:"session_token"`
	UserAgent    string    `db:"user_agent"`
	IPAddress    string    `db:"ip_address"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Client carries the request attributes recorded on each session.
type Client struct {
	UserAgent string
	IP        string
}

func (c Client) normalized() Client {
	out := c
	if out.UserAgent == "" {
		out.UserAgent = "unknown"
	}
	if out.IP == "" {
		out.IP = "unknown"
	}
	return out
}

// Device names the session for display, preferring the user agent and
// falling back to the address.
func (s *Session) Device() string {
	if s.UserAgent != "" && s.UserAgent != "unknown" {
		return s.UserAgent
	}
	return s.IPAddress
}

func newSession(userID, token string, client Client) *Session {
	client = client.normalized()
	return &Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		SessionToken: token,
		UserAgent:    client.UserAgent,
		IPAddress:    client.IP,
	}
}
