// DamifeZion | 2026
// service_test.go

package account

import (
	"context"
	"errors"
	"testing"
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

type fakeUserRepo struct {
	byID map[string]*user.User
	ops  *[]string
}

func (f *fakeUserRepo) Create(_ context.Context, u *user.User) error {
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return core.ErrDuplicateKey
		}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUserRepo) SetEmailActive(_ context.Context, id string, active bool) error {
	u, ok := f.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	u.EmailActive = active
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.byID, id)
	*f.ops = append(*f.ops, "delete user")
	return nil
}

func (f *fakeUserRepo) ExistsByID(_ context.Context, id string) (bool, error) {
	_, ok := f.byID[id]
	return ok, nil
}

func (f *fakeUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

type fakePlanRepo struct {
	byUser map[string]*plan.Plan
	ops    *[]string
}

func (f *fakePlanRepo) Create(_ context.Context, p *plan.Plan) error {
	cp := *p
	f.byUser[p.UserID] = &cp
	return nil
}

func (f *fakePlanRepo) GetByUserID(_ context.Context, userID string) (*plan.Plan, error) {
	p, ok := f.byUser[userID]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlanRepo) Update(_ context.Context, p *plan.Plan) error {
	if _, ok := f.byUser[p.UserID]; !ok {
		return core.ErrNotFound
	}
	cp := *p
	f.byUser[p.UserID] = &cp
	return nil
}

func (f *fakePlanRepo) DeleteByUserID(_ context.Context, userID string) error {
	delete(f.byUser, userID)
	*f.ops = append(*f.ops, "delete plan")
	return nil
}

type fakeProfileRepo struct {
	byID      map[string]*profile.Profile
	createErr error
	ops       *[]string
}

func (f *fakeProfileRepo) Create(_ context.Context, p *profile.Profile) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*profile.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfileRepo) AllForUser(_ context.Context, userID string) ([]profile.Profile, error) {
	var out []profile.Profile
	for _, p := range f.byID {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProfileRepo) CountForUser(ctx context.Context, userID string) (int, error) {
	all, _ := f.AllForUser(ctx, userID)
	return len(all), nil
}

func (f *fakeProfileRepo) ExistsByName(_ context.Context, userID, name string) (bool, error) {
	for _, p := range f.byID {
		if p.UserID == userID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, p *profile.Profile) error {
	if _, ok := f.byID[p.ID]; !ok {
		return core.ErrNotFound
	}
	cp := *p
	f.byID[p.ID] = &cp
	return nil
}

func (f *fakeProfileRepo) Delete(_ context.Context, id string) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeProfileRepo) DeleteAllForUser(_ context.Context, userID string) error {
	for id, p := range f.byID {
		if p.UserID == userID {
			delete(f.byID, id)
		}
	}
	*f.ops = append(*f.ops, "delete profiles")
	return nil
}

type fakeTokenRepo struct {
	rows map[string]*token.Token
	ops  *[]string
}

func (f *fakeTokenRepo) Create(_ context.Context, t *token.Token) error {
	cp := *t
	f.rows[t.ID] = &cp
	return nil
}

func (f *fakeTokenRepo) FindActive(
	_ context.Context,
	userID, value string,
	purpose token.Purpose,
) (*token.Token, error) {
	for _, row := range f.rows {
		if row.UserID == userID &&
			row.Token == value &&
			row.Purpose == purpose &&
			row.ExpiresAt.After(time.Now()) {
			cp := *row
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeTokenRepo) ExistsActive(_ context.Context, value string) (bool, error) {
	for _, row := range f.rows {
		if row.Token == value && row.ExpiresAt.After(time.Now()) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTokenRepo) DeleteByPurpose(
	_ context.Context,
	userID string,
	purpose token.Purpose,
) error {
	for id, row := range f.rows {
		if row.UserID == userID && row.Purpose == purpose {
			delete(f.rows, id)
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteAllForUser(_ context.Context, userID string) error {
	for id, row := range f.rows {
		if row.UserID == userID {
			delete(f.rows, id)
		}
	}
	*f.ops = append(*f.ops, "delete tokens")
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	var dropped int64
	for id, row := range f.rows {
		if row.ExpiresAt.Before(time.Now()) {
			delete(f.rows, id)
			dropped++
		}
	}
	return dropped, nil
}

func (f *fakeTokenRepo) countByPurpose(userID string, purpose token.Purpose) int {
	count := 0
	for _, row := range f.rows {
		if row.UserID == userID && row.Purpose == purpose {
			count++
		}
	}
	return count
}

type fakeSessionStore struct {
	byID    map[string]*session.Session
	byToken map[string]string
	ops     *[]string
}

func (f *fakeSessionStore) Create(_ context.Context, s *session.Session) error {
	if _, ok := f.byToken[s.SessionToken]; ok {
		return core.ErrDuplicateKey
	}
	cp := *s
	f.byID[s.ID] = &cp
	f.byToken[s.SessionToken] = s.ID
	return nil
}

func (f *fakeSessionStore) GetByToken(_ context.Context, tok string) (*session.Session, error) {
	id, ok := f.byToken[tok]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeSessionStore) GetByTokenOrID(
	ctx context.Context,
	identifier string,
) (*session.Session, error) {
	if s, err := f.GetByToken(ctx, identifier); err == nil {
		return s, nil
	}
	if s, ok := f.byID[identifier]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeSessionStore) AllForUser(_ context.Context, userID string) ([]session.Session, error) {
	var out []session.Session
	for _, s := range f.byID {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSessionStore) CountForUser(ctx context.Context, userID string) (int, error) {
	all, _ := f.AllForUser(ctx, userID)
	return len(all), nil
}

func (f *fakeSessionStore) ExistsByToken(_ context.Context, tok string) (bool, error) {
	_, ok := f.byToken[tok]
	return ok, nil
}

func (f *fakeSessionStore) SwapToken(_ context.Context, oldToken, newToken string) error {
	id, ok := f.byToken[oldToken]
	if !ok {
		return core.ErrNotFound
	}
	delete(f.byToken, oldToken)
	f.byToken[newToken] = id
	f.byID[id].SessionToken = newToken
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	if s, ok := f.byID[id]; ok {
		delete(f.byToken, s.SessionToken)
		delete(f.byID, id)
	}
	return nil
}

func (f *fakeSessionStore) DeleteAllForUser(_ context.Context, userID string) (int64, error) {
	var dropped int64
	for id, s := range f.byID {
		if s.UserID == userID {
			delete(f.byToken, s.SessionToken)
			delete(f.byID, id)
			dropped++
		}
	}
	*f.ops = append(*f.ops, "delete sessions")
	return dropped, nil
}

type fakeNotifier struct {
	sent []notify.Email
	err  error
}

func (f *fakeNotifier) Send(_ context.Context, email notify.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func (f *fakeNotifier) Close() error { return nil }

func (f *fakeNotifier) lastTemplate() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Template
}

type fixture struct {
	users    *fakeUserRepo
	plans    *fakePlanRepo
	profiles *fakeProfileRepo
	tokens   *fakeTokenRepo
	store    *fakeSessionStore
	notifier *fakeNotifier
	issuer   *token.Issuer
	svc      *Service
	ops      *[]string
}

func testConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:             "0123456789abcdef0123456789abcdef",
		AccessTokenExpire:  15 * time.Minute,
		RefreshTokenExpire: 168 * time.Hour,
		ResetTokenExpire:   3 * time.Hour,
		OTPExpire:          3 * time.Hour,
		Issuer:             "replay-api",
		Audience:           "replay-clients",
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ops := &[]string{}
	f := &fixture{
		users:    &fakeUserRepo{byID: make(map[string]*user.User), ops: ops},
		plans:    &fakePlanRepo{byUser: make(map[string]*plan.Plan), ops: ops},
		profiles: &fakeProfileRepo{byID: make(map[string]*profile.Profile), ops: ops},
		tokens:   &fakeTokenRepo{rows: make(map[string]*token.Token), ops: ops},
		store: &fakeSessionStore{
			byID:    make(map[string]*session.Session),
			byToken: make(map[string]string),
			ops:     ops,
		},
		notifier: &fakeNotifier{},
		ops:      ops,
	}

	issuer, err := token.NewIssuer(testConfig())
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	f.issuer = issuer

	registry := session.NewRegistry(f.store, f.plans, f.users, issuer)

	f.svc = NewService(
		f.users,
		f.plans,
		f.profiles,
		f.tokens,
		registry,
		issuer,
		token.NewOTPGenerator(f.tokens),
		f.notifier,
		testConfig(),
	)

	return f
}

func registerRequest() RegisterRequest {
	return RegisterRequest{
		Email:       "jane@example.com",
		Password:    "swordfish-42",
		FirstName:   "Jane",
		LastName:    "Doe",
		DateOfBirth: "1994-06-20",
	}
}

func register(t *testing.T, f *fixture) *AuthResponse {
	t.Helper()

	resp, err := f.svc.Register(
		context.Background(),
		registerRequest(),
		"test-agent",
		"192.0.2.1",
	)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return resp
}

// verifyAndClearSessions marks the account verified and drops the
// registration session so login tests start from a clean slate. The
// free plan allows a single device.
func verifyAndClearSessions(t *testing.T, f *fixture, userID string) {
	t.Helper()

	f.users.byID[userID].EmailActive = true
	if _, err := f.store.DeleteAllForUser(context.Background(), userID); err != nil {
		t.Fatalf("clear sessions: %v", err)
	}
	*f.ops = (*f.ops)[:0]
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("provisions plan session and profile", func(t *testing.T) {
		f := newFixture(t)
		resp := register(t, f)

		if resp.User.Email != "jane@example.com" {
			t.Errorf("email = %q", resp.User.Email)
		}
		if resp.User.FullName != "Jane Doe" {
			t.Errorf("full name = %q", resp.User.FullName)
		}
		if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
			t.Error("token pair missing")
		}

		userPlan, err := f.plans.GetByUserID(ctx, resp.User.ID)
		if err != nil {
			t.Fatalf("plan not provisioned: %v", err)
		}
		if userPlan.Name != plan.NameFree {
			t.Errorf("plan = %q, want free", userPlan.Name)
		}

		sessions, _ := f.store.AllForUser(ctx, resp.User.ID)
		if len(sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(sessions))
		}
		if sessions[0].SessionToken != resp.Tokens.RefreshToken {
			t.Error("session does not hold the issued refresh token")
		}

		profiles, _ := f.profiles.AllForUser(ctx, resp.User.ID)
		if len(profiles) != 1 {
			t.Fatalf("profiles = %d, want 1", len(profiles))
		}
		if profiles[0].Name != "Jane" {
			t.Errorf("default profile = %q, want first name", profiles[0].Name)
		}

		if f.notifier.lastTemplate() != notify.TemplateWelcome {
			t.Errorf("template = %q, want welcome", f.notifier.lastTemplate())
		}
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		f := newFixture(t)
		register(t, f)

		_, err := f.svc.Register(ctx, registerRequest(), "", "")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("err = %v, want ErrEmailExists", err)
		}
	})

	t.Run("rejects malformed date of birth", func(t *testing.T) {
		f := newFixture(t)
		req := registerRequest()
		req.DateOfBirth = "20-06-1994"

		_, err := f.svc.Register(ctx, req, "", "")
		if !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("err = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("rolls back on profile failure", func(t *testing.T) {
		f := newFixture(t)
		f.profiles.createErr = errors.New("profiles unavailable")

		_, err := f.svc.Register(ctx, registerRequest(), "", "")
		if err == nil {
			t.Fatal("Register should propagate the profile failure")
		}

		if len(f.users.byID) != 0 {
			t.Error("user row survived rollback")
		}
		if len(f.plans.byUser) != 0 {
			t.Error("plan row survived rollback")
		}
		if len(f.store.byID) != 0 {
			t.Error("session survived rollback")
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds with correct password", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)
		verifyAndClearSessions(t, f, created.User.ID)

		resp, err := f.svc.Login(ctx, LoginRequest{
			Email:    "jane@example.com",
			Password: "swordfish-42",
		}, "laptop", "192.0.2.2")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}

		if resp.User.ID != created.User.ID {
			t.Errorf("user id = %q, want %q", resp.User.ID, created.User.ID)
		}

		sessions, _ := f.store.AllForUser(ctx, created.User.ID)
		if len(sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(sessions))
		}
		if sessions[0].UserAgent != "laptop" {
			t.Errorf("user agent = %q", sessions[0].UserAgent)
		}
	})

	t.Run("rejects wrong password without a session", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)
		verifyAndClearSessions(t, f, created.User.ID)

		_, err := f.svc.Login(ctx, LoginRequest{
			Email:    "jane@example.com",
			Password: "wrong-password",
		}, "", "")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("err = %v, want ErrInvalidCredentials", err)
		}

		sessions, _ := f.store.AllForUser(ctx, created.User.ID)
		if len(sessions) != 0 {
			t.Errorf("sessions = %d, want 0", len(sessions))
		}
	})

	t.Run("rejects unknown email", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Login(ctx, LoginRequest{
			Email:    "ghost@example.com",
			Password: "whatever-12",
		}, "", "")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("rejects unverified email", func(t *testing.T) {
		f := newFixture(t)
		register(t, f)

		_, err := f.svc.Login(ctx, LoginRequest{
			Email:    "jane@example.com",
			Password: "swordfish-42",
		}, "", "")
		if !errors.Is(err, ErrEmailNotVerified) {
			t.Errorf("err = %v, want ErrEmailNotVerified", err)
		}
	})

	t.Run("enforces the plan session cap", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)
		f.users.byID[created.User.ID].EmailActive = true

		// The registration session occupies the free plan's only slot.
		_, err := f.svc.Login(ctx, LoginRequest{
			Email:    "jane@example.com",
			Password: "swordfish-42",
		}, "second-device", "")

		var limitErr *session.LimitError
		if !errors.As(err, &limitErr) {
			t.Fatalf("err = %v, want LimitError", err)
		}
		if limitErr.Max != 1 {
			t.Errorf("limit = %d, want 1", limitErr.Max)
		}
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := register(t, f)

	resp, err := f.svc.Refresh(ctx, created.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if resp.RefreshToken == created.Tokens.RefreshToken {
		t.Error("refresh token was not rotated")
	}

	// The old token is dead after rotation.
	_, err = f.svc.Refresh(ctx, created.Tokens.RefreshToken)
	if !errors.Is(err, session.ErrSessionExpired) {
		t.Errorf("replayed refresh err = %v, want ErrSessionExpired", err)
	}
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("drops the presented session", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		err := f.svc.Logout(ctx, created.User.ID, created.Tokens.RefreshToken)
		if err != nil {
			t.Fatalf("Logout: %v", err)
		}

		sessions, _ := f.store.AllForUser(ctx, created.User.ID)
		if len(sessions) != 0 {
			t.Errorf("sessions = %d, want 0", len(sessions))
		}
	})

	t.Run("rejects a token owned by someone else", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		err := f.svc.Logout(ctx, "intruder", created.Tokens.RefreshToken)
		if !errors.Is(err, core.ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("reports an already dead token as expired", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		if err := f.svc.Logout(ctx, created.User.ID, created.Tokens.RefreshToken); err != nil {
			t.Fatalf("Logout: %v", err)
		}

		err := f.svc.Logout(ctx, created.User.ID, created.Tokens.RefreshToken)
		if !errors.Is(err, session.ErrSessionExpired) {
			t.Errorf("err = %v, want ErrSessionExpired", err)
		}
	})
}

func TestLogoutAll(t *testing.T) {
	ctx := context.Background()

	t.Run("drops every session", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		if err := f.svc.LogoutAll(ctx, created.User.ID); err != nil {
			t.Fatalf("LogoutAll: %v", err)
		}

		sessions, _ := f.store.AllForUser(ctx, created.User.ID)
		if len(sessions) != 0 {
			t.Errorf("sessions = %d, want 0", len(sessions))
		}
	})

	t.Run("reports nothing to drop as expired", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		if err := f.svc.LogoutAll(ctx, created.User.ID); err != nil {
			t.Fatalf("LogoutAll: %v", err)
		}

		err := f.svc.LogoutAll(ctx, created.User.ID)
		if !errors.Is(err, session.ErrSessionExpired) {
			t.Errorf("err = %v, want ErrSessionExpired", err)
		}
	})
}

func TestRevokeSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := register(t, f)

	sessions, _ := f.svc.Sessions(ctx, created.User.ID)
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}

	if err := f.svc.RevokeSession(ctx, "intruder", sessions[0].ID); !errors.Is(err, core.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}

	if err := f.svc.RevokeSession(ctx, created.User.ID, sessions[0].ID); err != nil {
		t.Fatalf("RevokeSession: %v", err)
	}

	remaining, _ := f.svc.Sessions(ctx, created.User.ID)
	if len(remaining) != 0 {
		t.Errorf("remaining sessions = %d, want 0", len(remaining))
	}
}

func TestDeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := register(t, f)
	*f.ops = (*f.ops)[:0]

	if err := f.svc.DeleteAccount(ctx, created.User.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if len(f.users.byID) != 0 || len(f.plans.byUser) != 0 ||
		len(f.profiles.byID) != 0 || len(f.store.byID) != 0 ||
		len(f.tokens.rows) != 0 {
		t.Error("account data survived deletion")
	}

	// Dependents go first so a failure never strands orphaned rows
	// behind a deleted user.
	want := []string{
		"delete profiles",
		"delete plan",
		"delete sessions",
		"delete tokens",
		"delete user",
	}
	if len(*f.ops) != len(want) {
		t.Fatalf("cascade = %v, want %v", *f.ops, want)
	}
	for i, step := range want {
		if (*f.ops)[i] != step {
			t.Fatalf("cascade = %v, want %v", *f.ops, want)
		}
	}
}
