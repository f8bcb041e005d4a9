// DamifeZion | 2026
// verify.go

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

var ErrAlreadyVerified = errors.New("email already verified")

// RequestEmailOTP issues a verification code to an unverified account,
// superseding any earlier one.
func (s *Service) RequestEmailOTP(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("request email otp: %w", err)
	}

	if u.EmailActive {
		return fmt.Errorf("request email otp: %w", ErrAlreadyVerified)
	}

	err = s.tokens.DeleteByPurpose(ctx, u.ID, token.PurposeEmailVerification)
	if err != nil {
		return fmt.Errorf("request email otp: %w", err)
	}

	otp, err := s.otp.Generate(ctx)
	if err != nil {
		return fmt.Errorf("request email otp: %w", err)
	}

	err = s.tokens.Create(ctx, token.New(
		u.ID,
		otp,
		token.PurposeEmailVerification,
		s.cfg.OTPExpire,
		s.now(),
	))
	if err != nil {
		return fmt.Errorf("request email otp: %w", err)
	}

	s.sendEmail(ctx, notify.Email{
		To:       u.Email,
		Template: notify.TemplateEmailVerification,
		Data: map[string]any{
			"name": u.FirstName,
			"otp":  otp,
		},
	})

	return nil
}

// ConfirmEmail consumes a verification code and activates the email.
func (s *Service) ConfirmEmail(
	ctx context.Context,
	userID, otp string,
) error {
	_, err := s.tokens.FindActive(
		ctx,
		userID,
		otp,
		token.PurposeEmailVerification,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return fmt.Errorf("confirm email: %w", ErrInvalidOTP)
		}
		return fmt.Errorf("confirm email: %w", err)
	}

	if err := s.users.SetEmailActive(ctx, userID, true); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}

	err = s.tokens.DeleteByPurpose(ctx, userID, token.PurposeEmailVerification)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}

	slog.Info("email verified", "user_id", userID)
	return nil
}
