// DamifeZion | 2026
// reset.go

package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/DamifeZion/new-replay/internal/core"
	"github.com/DamifeZion/new-replay/internal/notify"
	"github.com/DamifeZion/new-replay/internal/token"
)

var (
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrInvalidOTP       = errors.New("invalid otp")
)

// RequestReset starts the password-reset flow: every live session is
// dropped, any earlier reset credentials are superseded, and a fresh
// signed token plus OTP are stored and mailed. Exactly one reset
// lineage is active at a time.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	if _, err := s.sessions.InvalidateAll(ctx, u.ID); err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	err = s.tokens.DeleteByPurpose(ctx, u.ID, token.PurposeResetPassword)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	resetToken, err := s.issuer.IssueReset(u.ID)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	now := s.now()
	err = s.tokens.Create(ctx, token.New(
		u.ID,
		resetToken,
		token.PurposeResetPassword,
		s.cfg.ResetTokenExpire,
		now,
	))
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	otp, err := s.otp.Generate(ctx)
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	err = s.tokens.Create(ctx, token.New(
		u.ID,
		otp,
		token.PurposeResetPassword,
		s.cfg.OTPExpire,
		now,
	))
	if err != nil {
		return fmt.Errorf("request reset: %w", err)
	}

	slog.Info("password reset requested", "user_id", u.ID)

	s.sendEmail(ctx, notify.Email{
		To:       u.Email,
		Template: notify.TemplateResetPassword,
		Data: map[string]any{
			"name":        u.FirstName,
			"reset_token": resetToken,
			"otp":         otp,
		},
	})

	return nil
}

// ConfirmReset finishes the flow. Both stored credentials must still be
// live: the signed token authorizes the request, the OTP proves mailbox
// access. On success the new password is persisted and every reset
// credential for the user is destroyed.
func (s *Service) ConfirmReset(
	ctx context.Context,
	req ResetPasswordRequest,
) error {
	userID, err := s.issuer.VerifyReset(req.ResetToken)
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}

	if req.NewPassword != req.ConfirmPassword {
		return fmt.Errorf("confirm reset: %w", ErrPasswordMismatch)
	}

	_, err = s.tokens.FindActive(
		ctx,
		userID,
		req.ResetToken,
		token.PurposeResetPassword,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("confirm reset: %w", core.ErrUnauthorized)
		}
		return fmt.Errorf("confirm reset: %w", err)
	}

	_, err = s.tokens.FindActive(
		ctx,
		userID,
		req.OTP,
		token.PurposeResetPassword,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("confirm reset: %w", ErrInvalidOTP)
		}
		return fmt.Errorf("confirm reset: %w", err)
	}

	passwordHash, err := core.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}

	err = s.tokens.DeleteByPurpose(ctx, userID, token.PurposeResetPassword)
	if err != nil {
		return fmt.Errorf("confirm reset: %w", err)
	}

	slog.Info("password reset completed", "user_id", userID)
	return nil
}
