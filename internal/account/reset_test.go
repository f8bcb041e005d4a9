// DamifeZion | 2026
// reset_test.go

package account

import (
	"context"
	"errors"
	"testing"

	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/notify"
	"github.com/DamifeZion/new-replay/internal/token"
)

// requestReset kicks off the flow and pulls the mailed credentials out
// of the captured email event.
func requestReset(t *testing.T, f *fixture) (resetToken, otp string) {
	t.Helper()

	if err := f.svc.RequestReset(context.Background(), "jane@example.com"); err != nil {
		t.Fatalf("RequestReset: %v", err)
	}

	email := f.notifier.sent[len(f.notifier.sent)-1]
	if email.Template != notify.TemplateResetPassword {
		t.Fatalf("template = %q, want reset_password", email.Template)
	}

	resetToken, _ = email.Data["reset_token"].(string)
	otp, _ = email.Data["otp"].(string)
	if resetToken == "" || otp == "" {
		t.Fatalf("email data missing credentials: %v", email.Data)
	}
	return resetToken, otp
}

func TestRequestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("drops sessions and stores both credentials", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		requestReset(t, f)

		sessions, _ := f.store.AllForUser(ctx, created.User.ID)
		if len(sessions) != 0 {
			t.Errorf("sessions = %d, want 0 after reset request", len(sessions))
		}

		count := f.tokens.countByPurpose(created.User.ID, token.PurposeResetPassword)
		if count != 2 {
			t.Errorf("stored reset credentials = %d, want 2", count)
		}
	})

	t.Run("supersedes an earlier request", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		first, _ := requestReset(t, f)
		second, secondOTP := requestReset(t, f)

		count := f.tokens.countByPurpose(created.User.ID, token.PurposeResetPassword)
		if count != 2 {
			t.Errorf("stored reset credentials = %d, want 2 after reissue", count)
		}

		// Only the second lineage completes.
		err := f.svc.ConfirmReset(ctx, ResetPasswordRequest{
			ResetToken:      first,
			OTP:             secondOTP,
			NewPassword:     "new-password-1",
			ConfirmPassword: "new-password-1",
		})
		if !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("stale token err = %v, want ErrUnauthorized", err)
		}

		err = f.svc.ConfirmReset(ctx, ResetPasswordRequest{
			ResetToken:      second,
			OTP:             secondOTP,
			NewPassword:     "new-password-1",
			ConfirmPassword: "new-password-1",
		})
		if err != nil {
			t.Errorf("fresh lineage err = %v", err)
		}
	})

	t.Run("rejects unknown email", func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.RequestReset(ctx, "ghost@example.com")
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestConfirmReset(t *testing.T) {
	ctx := context.Background()

	t.Run("updates the password and destroys credentials", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)
		f.users.byID[created.User.ID].EmailActive = true
		resetToken, otp := requestReset(t, f)

		err := f.svc.ConfirmReset(ctx, ResetPasswordRequest{
			ResetToken:      resetToken,
			OTP:             otp,
			NewPassword:     "brand-new-pass",
			ConfirmPassword: "brand-new-pass",
		})
		if err != nil {
			t.Fatalf("ConfirmReset: %v", err)
		}

		count := f.tokens.countByPurpose(created.User.ID, token.PurposeResetPassword)
		if count != 0 {
			t.Errorf("reset credentials = %d, want 0 after confirm", count)
		}

		if _, err := f.svc.Login(ctx, LoginRequest{
			Email:    "jane@example.com",
			Password: "brand-new-pass",
		}, "", ""); err != nil {
			t.Errorf("login with new password: %v", err)
		}

		if _, err := f.svc.Login(ctx, LoginRequest{
			Email:    "jane@example.com",
			Password: "swordfish-42",
		}, "", ""); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("old password err = %v, want ErrInvalidCredentials", err)
		}
	})

	t.Run("rejects wrong otp without touching the password", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)
		resetToken, _ := requestReset(t, f)
		hashBefore := f.users.byID[created.User.ID].PasswordHash

		err := f.svc.ConfirmReset(ctx, ResetPasswordRequest{
			ResetToken:      resetToken,
			OTP:             "000000",
			NewPassword:     "brand-new-pass",
			ConfirmPassword: "brand-new-pass",
		})
		if !errors.Is(err, ErrInvalidOTP) {
			t.Fatalf("err = %v, want ErrInvalidOTP", err)
		}

		if f.users.byID[created.User.ID].PasswordHash != hashBefore {
			t.Error("password changed despite rejected otp")
		}
	})

	t.Run("rejects mismatched passwords", func(t *testing.T) {
		f := newFixture(t)
		register(t, f)
		resetToken, otp := requestReset(t, f)

		err := f.svc.ConfirmReset(ctx, ResetPasswordRequest{
			ResetToken:      resetToken,
			OTP:             otp,
			NewPassword:     "brand-new-pass",
			ConfirmPassword: "different-pass",
		})
		if !errors.Is(err, ErrPasswordMismatch) {
			t.Errorf("err = %v, want ErrPasswordMismatch", err)
		}
	})

	t.Run("rejects a forged token", func(t *testing.T) {
		f := newFixture(t)
		register(t, f)

		err := f.svc.ConfirmReset(ctx, ResetPasswordRequest{
			ResetToken:      "not-a-token",
			OTP:             "123456",
			NewPassword:     "brand-new-pass",
			ConfirmPassword: "brand-new-pass",
		})
		if !errors.Is(err, core.ErrTokenInvalid) {
			t.Errorf("err = %v, want ErrTokenInvalid", err)
		}
	})

	t.Run("rejects a valid token with no stored row", func(t *testing.T) {
		f := newFixture(t)
		created := register(t, f)

		// Signed correctly but never persisted, so the flow was never
		// started for it.
		orphan, err := f.issuer.IssueReset(created.User.ID)
		if err != nil {
			t.Fatalf("IssueReset: %v", err)
		}

		err = f.svc.ConfirmReset(ctx, ResetPasswordRequest{
			ResetToken:      orphan,
			OTP:             "123456",
			NewPassword:     "brand-new-pass",
			ConfirmPassword: "brand-new-pass",
		})
		if !errors.Is(err, core.ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})
}
