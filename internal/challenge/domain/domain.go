// Package domain holds the types of the custom authentication ceremony. The
// stage logic is provider-agnostic; the controller translates hook payloads.
package domain

import (
	"context"
	"time"
)

// Challenge names as they appear in the provider's session log.
const (
	ChallengeCustom = "CUSTOM_CHALLENGE"
	ChallengeSRPA   = "SRP_A"
)

// MetadataEmailVerification marks challenges answered with an emailed code.
const MetadataEmailVerification = "EMAIL_VERIFICATION_CHALLENGE"

// Attempt is one completed step of the ceremony.
type Attempt struct {
	ChallengeName string `json:"challengeName"`
	Passed        bool   `json:"challengeResult"`
}

// Attributes are the user attributes the provider hands to each stage.
type Attributes map[string]string

func (a Attributes) Sub() string      { return a["sub"] }
func (a Attributes) Email() string    { return a["email"] }
func (a Attributes) ClinicID() string { return a["custom:clinicId"] }
func (a Attributes) Role() string     { return a["custom:role"] }

// MFAEnabled reports the per-user MFA opt-in flag.
func (a Attributes) MFAEnabled() bool { return a["custom:mfaEnabled"] == "true" }

// Decision is the define stage's verdict on what happens next.
type Decision struct {
	ChallengeName      string `json:"challengeName,omitempty"`
	IssueTokens        bool   `json:"issueTokens"`
	FailAuthentication bool   `json:"failAuthentication"`
}

// CreateResult carries a freshly issued challenge. PrivateParameters never
// leave the provider; PublicParameters are shown to the client.
type CreateResult struct {
	PublicParameters  map[string]string `json:"publicChallengeParameters"`
	PrivateParameters map[string]string `json:"privateChallengeParameters"`
	Metadata          string            `json:"challengeMetadata"`
}

// VerifyInput is the user's answer plus the private state of the challenge
// being answered.
type VerifyInput struct {
	Answer            string            `json:"challengeAnswer"`
	PrivateParameters map[string]string `json:"privateChallengeParameters"`
	Metadata          string            `json:"challengeMetadata"`
}

// PostAuthInput describes a login that just completed.
type PostAuthInput struct {
	UserID    string
	Email     string
	ClinicID  string
	Role      string
	SourceIP  string
	UserAgent string
	ClientID  string
}

// LoginRecorder persists login telemetry. Implementations live in the
// accounts repository.
type LoginRecorder interface {
	RecordLogin(ctx context.Context, userID, sourceIP string, at time.Time) error
	TouchClinicActivity(ctx context.Context, clinicID string, at time.Time) error
}
