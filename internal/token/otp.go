// DamifeZion | 2026
// otp.go

package token

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrGeneration = errors.New("otp generation failed")
	ErrExhausted  = errors.New("otp generation attempts exhausted")
)

const (
	otpMin  = 100000
	otpSpan = 900000

	// Collisions across six digits are rare; if ten fresh draws all hit
	// live rows something else is wrong and we stop rather than spin.
	defaultMaxAttempts = 10
)

// CollisionChecker is the slice of the token store the generator probes
// for in-flight duplicates.
type CollisionChecker interface {
	ExistsActive(ctx context.Context, value string) (bool, error)
}

// OTPGenerator produces six-digit numeric codes, rejection-sampled
// against unexpired stored tokens.
type OTPGenerator struct {
	store       CollisionChecker
	maxAttempts int
}

func NewOTPGenerator(store CollisionChecker) *OTPGenerator {
	return &OTPGenerator{
		store:       store,
		maxAttempts: defaultMaxAttempts,
	}
}

func (g *OTPGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrGeneration, err)
		}

		code := fmt.Sprintf("%06d", n.Int64()+otpMin)

		exists, err := g.store.ExistsActive(ctx, code)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrGeneration, err)
		}

		if !exists {
			return code, nil
		}
	}

	return "", ErrExhausted
}
