// DamifeZion | 2026
// entity.go

package user

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

var (
	ErrPasswordRequired   = errors.New("password is required for local accounts")
	ErrProviderIDRequired = errors.New("provider id is required for federated accounts")
)

// User is the identity record. FullName and Age are derived from the
// name parts and date of birth, never stored directly by callers.
type User struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	FullName     string    `db:"full_name"`
	Avatar       string    `db:"avatar"`
	DateOfBirth  time.Time `db:"date_of_birth"`
	Age          int       `db:"age"`
	PasswordHash string    `db:"password_hash"`
	Provider     string    `db:"provider"`
	ProviderID   string    `db:"provider_id"`
	EmailActive  bool      `db:"email_active"`
	PhoneActive  bool      `db:"phone_active"`
	PhoneNumber  string    `db:"phone_number"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// New builds a user with derived fields populated. The email is stored
// lowercase so uniqueness is case-insensitive.
func New(
	email, firstName, lastName string,
	dateOfBirth time.Time,
	now time.Time,
) *User {
	u := &User{
		ID:          uuid.New().String(),
		Email:       strings.ToLower(strings.TrimSpace(email)),
		FirstName:   strings.TrimSpace(firstName),
		LastName:    strings.TrimSpace(lastName),
		DateOfBirth: dateOfBirth,
		Provider:    ProviderLocal,
	}
	u.Derive(now)
	return u
}

// Derive recomputes full_name and age. Call after mutating the name
// parts or date of birth.
func (u *User) Derive(now time.Time) {
	u.FullName = strings.TrimSpace(u.FirstName + " " + u.LastName)
	u.Age = ageAt(u.DateOfBirth, now)
}

// Validate enforces the credential invariant: local accounts carry a
// password hash, federated accounts carry a provider id.
func (u *User) Validate() error {
	if u.Provider == ProviderLocal {
		if u.PasswordHash == "" {
			return ErrPasswordRequired
		}
		return nil
	}

	if u.ProviderID == "" {
		return ErrProviderIDRequired
	}
	return nil
}

func (u *User) IsLocal() bool {
	return u.Provider == ProviderLocal
}

func ageAt(dob, now time.Time) int {
	if dob.IsZero() || dob.After(now) {
		return 0
	}

	age := now.Year() - dob.Year()
	anniversary := dob.AddDate(age, 0, 0)
	if anniversary.After(now) {
		age--
	}
	return age
}
