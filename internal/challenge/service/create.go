package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/medeez/gate/internal/challenge/domain"
	edomain "github.com/medeez/gate/internal/email/domain"
	"github.com/medeez/gate/internal/metrics"
)

// Creator issues email verification challenges.
type Creator struct {
	sender edomain.Sender
	log    zerolog.Logger
}

func NewCreator(sender edomain.Sender, log zerolog.Logger) *Creator {
	return &Creator{sender: sender, log: log}
}

// CreateChallenge mints a fresh 6-digit code, dispatches it to the user's
// email, and returns the challenge state. The code lives only in the private
// parameters.
func (c *Creator) CreateChallenge(ctx context.Context, attrs domain.Attributes) (domain.CreateResult, error) {
	email := attrs.Email()
	if email == "" {
		return domain.CreateResult{}, fmt.Errorf("challenge: user has no email address")
	}

	code, err := generateCode()
	if err != nil {
		return domain.CreateResult{}, fmt.Errorf("challenge: code generation failed: %w", err)
	}

	if err := c.sender.Send(ctx, verificationMessage(email, code)); err != nil {
		metrics.IncChallengeOutcome("create", "failure")
		return domain.CreateResult{}, fmt.Errorf("challenge: verification email dispatch failed: %w", err)
	}

	metrics.IncChallengeOutcome("create", "success")
	c.log.Info().Str("email", email).Msg("verification code sent")

	return domain.CreateResult{
		PublicParameters: map[string]string{
			"email":         email,
			"challengeType": "EMAIL_VERIFICATION",
		},
		PrivateParameters: map[string]string{
			"verificationCode": code,
		},
		Metadata: domain.MetadataEmailVerification,
	}, nil
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
