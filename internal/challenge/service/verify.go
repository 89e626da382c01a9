package service

import (
	"crypto/subtle"
	"strings"

	"github.com/medeez/gate/internal/challenge/domain"
	"github.com/medeez/gate/internal/metrics"
)

// VerifyResponse checks a user's answer against the challenge's private
// state. It never errors: any missing or unrecognized state reads as an
// incorrect answer.
func VerifyResponse(in domain.VerifyInput) bool {
	if in.Metadata != domain.MetadataEmailVerification {
		metrics.IncChallengeOutcome("verify", "failure")
		return false
	}

	expected := in.PrivateParameters["verificationCode"]
	answer := strings.TrimSpace(in.Answer)
	if expected == "" || answer == "" {
		metrics.IncChallengeOutcome("verify", "failure")
		return false
	}

	ok := subtle.ConstantTimeCompare([]byte(answer), []byte(expected)) == 1
	if ok {
		metrics.IncChallengeOutcome("verify", "success")
	} else {
		metrics.IncChallengeOutcome("verify", "failure")
	}
	return ok
}
