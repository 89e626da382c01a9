package service

import (
	"github.com/medeez/gate/internal/challenge/domain"
	"github.com/medeez/gate/internal/identity"
)

// DefaultSessionCap is how many ceremony steps a caller gets before the
// login is failed outright.
const DefaultSessionCap = 3

// RequiresMFA decides whether a user must pass the email challenge.
// SystemAdmin and Admin always do, as does anyone who opted in; Doctor is
// required by default. Staff is not, unless opted in.
func RequiresMFA(attrs domain.Attributes) bool {
	switch identity.Role(attrs.Role()) {
	case identity.RoleSystemAdmin, identity.RoleAdmin:
		return true
	}
	if attrs.MFAEnabled() {
		return true
	}
	return identity.Role(attrs.Role()) == identity.RoleDoctor
}

// DecideNextChallenge advances the ceremony one step.
//
// A fresh session with MFA required starts the custom challenge, as does a
// session whose only entry is the password (SRP_A) step. A session whose last
// custom challenge passed issues tokens. A session at or past the cap fails
// authentication. Anything else repeats the current challenge.
func DecideNextChallenge(session []domain.Attempt, attrs domain.Attributes, current string, cap int) domain.Decision {
	if cap <= 0 {
		cap = DefaultSessionCap
	}
	mfa := RequiresMFA(attrs)

	switch {
	case len(session) == 0 && mfa:
		return domain.Decision{ChallengeName: domain.ChallengeCustom}
	case len(session) == 1 && session[0].ChallengeName == domain.ChallengeSRPA && mfa:
		return domain.Decision{ChallengeName: domain.ChallengeCustom}
	case len(session) > 0 &&
		session[len(session)-1].ChallengeName == domain.ChallengeCustom &&
		session[len(session)-1].Passed:
		return domain.Decision{IssueTokens: true}
	case len(session) >= cap:
		return domain.Decision{FailAuthentication: true}
	default:
		return domain.Decision{ChallengeName: current}
	}
}
