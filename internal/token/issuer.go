// DamifeZion | 2026
// issuer.go

package token

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/DamifeZion/new-replay/internal/config"
	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/middleware"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
	kindReset   = "reset"
)

// Issuer signs and verifies the service's bearer credentials with a
// shared HMAC secret. Tokens are stateless; revocation happens by
// deleting the backing session row, not by blacklisting.
type Issuer struct {
	key jwk.Key
	cfg config.JWTConfig
	now func() time.Time
}

func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	key, err := jwk.Import([]byte(cfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("import signing key: %w", err)
	}

	return &Issuer{
		key: key,
		cfg: cfg,
		now: time.Now,
	}, nil
}

// Issue builds and signs a token of the given kind. Extra claims ride
// alongside the registered set.
func (i *Issuer) Issue(
	subject, kind string,
	extra map[string]any,
	ttl time.Duration,
) (string, error) {
	now := i.now()

	// The jti keeps two tokens minted for the same subject in the
	// same second from colliding; refresh tokens double as session
	// keys and must be unique.
	builder := jwt.NewBuilder().
		JwtID(uuid.New().String()).
		Issuer(i.cfg.Issuer).
		Audience([]string{i.cfg.Audience}).
		Subject(subject).
		IssuedAt(now).
		Expiration(now.Add(ttl)).
		NotBefore(now).
		Claim("type", kind)

	for name, value := range extra {
		builder = builder.Claim(name, value)
	}

	tok, err := builder.Build()
	if err != nil {
		return "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), i.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), nil
}

// IssueAccess mints the short-lived credential presented on every
// request. It embeds identity display fields so the boundary never has
// to hit the user store.
func (i *Issuer) IssueAccess(userID, name, email string) (string, error) {
	return i.Issue(userID, kindAccess, map[string]any{
		"name":  name,
		"email": email,
	}, i.cfg.AccessTokenExpire)
}

// IssueRefresh mints the long-lived credential that doubles as the
// session token. It carries the user id only.
func (i *Issuer) IssueRefresh(userID string) (string, error) {
	return i.Issue(userID, kindRefresh, nil, i.cfg.RefreshTokenExpire)
}

func (i *Issuer) IssueReset(userID string) (string, error) {
	return i.Issue(userID, kindReset, map[string]any{
		"purpose": string(PurposeResetPassword),
	}, i.cfg.ResetTokenExpire)
}

func (i *Issuer) VerifyAccessToken(
	_ context.Context,
	tokenString string,
) (*middleware.AccessClaims, error) {
	tok, err := i.parse(tokenString, kindAccess)
	if err != nil {
		return nil, err
	}

	subject, ok := tok.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	var name string
	if err := tok.Get("name", &name); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing name claim: %w",
			core.ErrTokenInvalid,
		)
	}

	var email string
	if err := tok.Get("email", &email); err != nil {
		return nil, fmt.Errorf(
			"verify token: missing email claim: %w",
			core.ErrTokenInvalid,
		)
	}

	return &middleware.AccessClaims{
		UserID: subject,
		Name:   name,
		Email:  email,
	}, nil
}

// VerifyRefresh validates a refresh token and returns the user id it
// was minted for.
func (i *Issuer) VerifyRefresh(tokenString string) (string, error) {
	return i.verifySubject(tokenString, kindRefresh)
}

// VerifyReset validates a password-reset token and returns the user id
// it was minted for.
func (i *Issuer) VerifyReset(tokenString string) (string, error) {
	return i.verifySubject(tokenString, kindReset)
}

func (i *Issuer) verifySubject(tokenString, kind string) (string, error) {
	tok, err := i.parse(tokenString, kind)
	if err != nil {
		return "", err
	}

	subject, ok := tok.Subject()
	if !ok || subject == "" {
		return "", fmt.Errorf(
			"verify token: missing subject: %w",
			core.ErrTokenInvalid,
		)
	}

	return subject, nil
}

func (i *Issuer) parse(tokenString, kind string) (jwt.Token, error) {
	tok, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256(), i.key),
		jwt.WithValidate(true),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithAudience(i.cfg.Audience),
		jwt.WithClock(jwt.ClockFunc(i.now)),
	)
	if err != nil {
		if isTokenExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
	}

	var tokenType string
	if err := tok.Get("type", &tokenType); err != nil || tokenType != kind {
		return nil, fmt.Errorf(
			"verify token: invalid token type: %w",
			core.ErrTokenInvalid,
		)
	}

	return tok, nil
}

func isTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
