// DamifeZion | 2026
// service.go

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DamifeZion/new-replay/internal/config"
	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/notify"
	"github.com/DamifeZion/new-replay/internal/plan"
	"github.com/DamifeZion/new-replay/internal/profile"
	"github.com/DamifeZion/new-replay/internal/session"
	"github.com/DamifeZion/new-replay/internal/token"
	"github.com/DamifeZion/new-replay/internal/user"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
)

// Service orchestrates the account lifecycle: registration with
// rollback, login, logout, and the deletion cascade. The purpose-token
// flows live in reset.go and verify.go.
type Service struct {
	users    user.Repository
	plans    plan.Repository
	profiles profile.Repository
	tokens   token.Repository
	sessions *session.Registry
	issuer   *token.Issuer
	otp      *token.OTPGenerator
	notifier notify.Notifier
	cfg      config.JWTConfig
	now      func() time.Time
}

func NewService(
	users user.Repository,
	plans plan.Repository,
	profiles profile.Repository,
	tokens token.Repository,
	sessions *session.Registry,
	issuer *token.Issuer,
	otp *token.OTPGenerator,
	notifier notify.Notifier,
	cfg config.JWTConfig,
) *Service {
	return &Service{
		users:    users,
		plans:    plans,
		profiles: profiles,
		tokens:   tokens,
		sessions: sessions,
		issuer:   issuer,
		otp:      otp,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// compensation is one recorded undo step of the signup saga.
type compensation struct {
	name string
	run  func(ctx context.Context) error
}

// Register creates the user row, then runs the signup saga: free plan,
// token pair, initial session, default profile. Any failure after the
// user row exists rolls back the recorded steps in reverse and deletes
// the user, so a half-created account never survives.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	exists, err := s.users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("register: %w", ErrEmailExists)
	}

	dob, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("register: date of birth: %w", core.ErrInvalidInput)
	}

	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now()
	u := user.New(req.Email, req.FirstName, req.LastName, dob, now)
	u.PasswordHash = passwordHash
	u.PhoneNumber = req.PhoneNumber
	u.Avatar = req.Avatar

	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, fmt.Errorf("register: %w", ErrEmailExists)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	resp, err := s.runSignup(ctx, u, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	s.sendEmail(ctx, notify.Email{
		To:       u.Email,
		Template: notify.TemplateWelcome,
		Data:     map[string]any{"name": u.FirstName},
	})

	return resp, nil
}

func (s *Service) runSignup(
	ctx context.Context,
	u *user.User,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	var compensations []compensation

	fail := func(step string, err error) (*AuthResponse, error) {
		s.rollbackSignup(ctx, u, compensations)
		return nil, fmt.Errorf("register: %s: %w", step, err)
	}

	userPlan := plan.NewFree(u.ID, s.now())
	if err := s.plans.Create(ctx, userPlan); err != nil {
		return fail("create plan", err)
	}
	compensations = append(compensations, compensation{
		name: "delete plan",
		run: func(ctx context.Context) error {
			return s.plans.DeleteByUserID(ctx, u.ID)
		},
	})

	accessToken, refreshToken, err := s.issuePair(u)
	if err != nil {
		return fail("issue tokens", err)
	}

	sess, err := s.sessions.Create(ctx, u.ID, refreshToken, session.Client{
		UserAgent: userAgent,
		IP:        ipAddress,
	})
	if err != nil {
		return fail("create session", err)
	}
	compensations = append(compensations, compensation{
		name: "delete session",
		run: func(ctx context.Context) error {
			return s.sessions.Invalidate(ctx, sess.ID)
		},
	})

	defaultProfile := profile.New(u.ID, u.FirstName, false, u.Avatar)
	if err := s.profiles.Create(ctx, defaultProfile); err != nil {
		return fail("create profile", err)
	}

	slog.Info("account registered", "user_id", u.ID)

	return &AuthResponse{
		User:   s.toUserResponse(u),
		Tokens: s.toTokenResponse(accessToken, refreshToken),
	}, nil
}

// rollbackSignup runs the recorded compensations newest-first, then
// removes the user row. Each step is best-effort; a failed undo is
// logged and the rest still run.
func (s *Service) rollbackSignup(
	ctx context.Context,
	u *user.User,
	compensations []compensation,
) {
	for i := len(compensations) - 1; i >= 0; i-- {
		c := compensations[i]
		if err := c.run(ctx); err != nil {
			slog.Error("signup rollback step failed",
				"user_id", u.ID,
				"step", c.name,
				"error", err,
			)
		}
	}

	if err := s.users.Delete(ctx, u.ID); err != nil {
		slog.Error("signup rollback failed to delete user",
			"user_id", u.ID,
			"error", err,
		)
	}
}

// Login authenticates a local account. Password verification runs even
// for unknown emails so response timing does not reveal which of the
// two was wrong.
func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
	userAgent, ipAddress string,
) (*AuthResponse, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, fmt.Errorf("login: %w", ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !u.IsLocal() {
		_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
		return nil, fmt.Errorf("login: %w", ErrInvalidCredentials)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&u.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !valid {
		return nil, fmt.Errorf("login: %w", ErrInvalidCredentials)
	}

	if newHash != "" {
		if err := s.users.UpdatePassword(ctx, u.ID, newHash); err != nil {
			slog.Warn("failed to persist rehashed password",
				"user_id", u.ID,
				"error", err,
			)
		}
	}

	if !u.EmailActive {
		return nil, fmt.Errorf("login: %w", ErrEmailNotVerified)
	}

	accessToken, refreshToken, err := s.issuePair(u)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if _, err := s.sessions.Create(ctx, u.ID, refreshToken, session.Client{
		UserAgent: userAgent,
		IP:        ipAddress,
	}); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	return &AuthResponse{
		User:   s.toUserResponse(u),
		Tokens: s.toTokenResponse(accessToken, refreshToken),
	}, nil
}

// Refresh rotates a refresh token through the session registry.
func (s *Service) Refresh(
	ctx context.Context,
	refreshToken string,
) (*TokenResponse, error) {
	pair, err := s.sessions.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	resp := s.toTokenResponse(pair.AccessToken, pair.RefreshToken)
	return &resp, nil
}

// Logout drops the session backing the presented refresh token. A
// token no session holds means the caller is already signed out.
func (s *Service) Logout(
	ctx context.Context,
	userID, refreshToken string,
) error {
	sess, err := s.sessions.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("logout: %w", session.ErrSessionExpired)
		}
		return fmt.Errorf("logout: %w", err)
	}

	if sess.UserID != userID {
		return fmt.Errorf("logout: %w", core.ErrForbidden)
	}

	return s.sessions.Invalidate(ctx, sess.ID)
}

// LogoutAll drops every session the user holds.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	dropped, err := s.sessions.InvalidateAll(ctx, userID)
	if err != nil {
		return fmt.Errorf("logout all: %w", err)
	}

	if dropped == 0 {
		return fmt.Errorf("logout all: %w", session.ErrSessionExpired)
	}

	return nil
}

func (s *Service) Sessions(
	ctx context.Context,
	userID string,
) ([]SessionInfo, error) {
	sessions, err := s.sessions.All(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	out := make([]SessionInfo, 0, len(sessions))
	for i := range sessions {
		out = append(out, SessionInfo{
			ID:        sessions[i].ID,
			UserAgent: sessions[i].UserAgent,
			IPAddress: sessions[i].IPAddress,
			CreatedAt: sessions[i].CreatedAt,
			UpdatedAt: sessions[i].UpdatedAt,
		})
	}

	return out, nil
}

// RevokeSession invalidates one of the caller's own sessions by id.
func (s *Service) RevokeSession(
	ctx context.Context,
	userID, sessionID string,
) error {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	if sess.UserID != userID {
		return fmt.Errorf("revoke session: %w", core.ErrForbidden)
	}

	return s.sessions.Invalidate(ctx, sess.ID)
}

// GetCurrentUser resolves the authenticated user's record.
func (s *Service) GetCurrentUser(
	ctx context.Context,
	userID string,
) (*UserResponse, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	resp := s.toUserResponse(u)
	return &resp, nil
}

// DeleteAccount removes everything a user owns, dependents first:
// profiles, plan, sessions, tokens, then the user row. The first
// failure aborts the cascade and propagates so nothing is silently
// half-deleted.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.profiles.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.plans.DeleteByUserID(ctx, userID); err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("delete account: %w", err)
		}
	}

	if _, err := s.sessions.InvalidateAll(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.tokens.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := s.users.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	slog.Info("account deleted", "user_id", userID)
	return nil
}

func (s *Service) issuePair(u *user.User) (string, string, error) {
	accessToken, err := s.issuer.IssueAccess(u.ID, u.FullName, u.Email)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := s.issuer.IssueRefresh(u.ID)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// sendEmail hands an event to the notifier without letting delivery
// failures surface into the calling operation.
func (s *Service) sendEmail(ctx context.Context, email notify.Email) {
	if err := s.notifier.Send(ctx, email); err != nil {
		slog.Error("failed to send email event",
			"to", email.To,
			"template", email.Template,
			"error", err,
		)
	}
}

func (s *Service) toUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		FullName:    u.FullName,
		Avatar:      u.Avatar,
		Age:         u.Age,
		EmailActive: u.EmailActive,
		CreatedAt:   u.CreatedAt,
	}
}

func (s *Service) toTokenResponse(access, refresh string) TokenResponse {
	expiresAt := s.now().Add(s.cfg.AccessTokenExpire)
	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.cfg.AccessTokenExpire.Seconds()),
		ExpiresAt:    expiresAt,
	}
}
