// Package domain holds the account records the authentication gates consult.
package domain

import (
	"context"
	"errors"
	"time"
)

// SubscriptionStatus of a clinic's plan.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// ClinicStatus of the account itself, independent of billing.
type ClinicStatus string

const (
	ClinicActive    ClinicStatus = "active"
	ClinicSuspended ClinicStatus = "suspended"
)

// InvitationStatus lifecycle.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "PENDING"
	InvitationAccepted InvitationStatus = "ACCEPTED"
	InvitationRevoked  InvitationStatus = "REVOKED"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("accounts: not found")

// User is a clinic member as known to the gate.
type User struct {
	ID            string
	Email         string
	ClinicID      string
	Role          string
	IsActive      bool
	IsLocked      bool
	LockExpiresAt *time.Time
	LastLoginAt   *time.Time
	LastLoginIP   string
	LoginCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clinic is a tenant account.
type Clinic struct {
	ID                 string
	Name               string
	EmailDomain        string
	Status             ClinicStatus
	SubscriptionStatus SubscriptionStatus
	TrialEndsAt        *time.Time
	LastActivityAt     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Invitation lets a clinic admin pre-approve a registration.
type Invitation struct {
	ID           string
	Code         string
	InvitedEmail string
	ClinicID     string
	Role         string
	Status       InvitationStatus
	ExpiresAt    time.Time
	UsedAt       *time.Time
	CreatedAt    time.Time
}

// Repository is the storage surface the gates need.
type Repository interface {
	GetUser(ctx context.Context, id string) (User, error)
	GetClinic(ctx context.Context, id string) (Clinic, error)
	GetInvitationByCode(ctx context.Context, code string) (Invitation, error)
	CountTrialClinicsByDomain(ctx context.Context, emailDomain string) (int, error)
	RecordLogin(ctx context.Context, userID, sourceIP string, at time.Time) error
	TouchClinicActivity(ctx context.Context, clinicID string, at time.Time) error
}

// DenialCode identifies why a gate refused.
type DenialCode string

const (
	DenyRateLimited         DenialCode = "RATE_LIMITED"
	DenyNoClinic            DenialCode = "NO_CLINIC"
	DenyUserNotFound        DenialCode = "USER_NOT_FOUND"
	DenyUserDisabled        DenialCode = "USER_DISABLED"
	DenyUserLocked          DenialCode = "USER_LOCKED"
	DenyClinicNotFound      DenialCode = "CLINIC_NOT_FOUND"
	DenyClinicSuspended     DenialCode = "CLINIC_SUSPENDED"
	DenyTrialExpired        DenialCode = "TRIAL_EXPIRED"
	DenySubscriptionExpired DenialCode = "SUBSCRIPTION_EXPIRED"
	DenyEmailRequired       DenialCode = "EMAIL_REQUIRED"
	DenyInvalidInvitation   DenialCode = "INVALID_INVITATION"
	DenyInvitationUsed      DenialCode = "INVITATION_USED"
	DenyTrialLimit          DenialCode = "TRIAL_LIMIT"
	DenyDisposableEmail     DenialCode = "DISPOSABLE_EMAIL"
)

// Denial is a gate refusal with a user-facing message.
type Denial struct {
	Code    DenialCode
	Message string
}

func (d *Denial) Error() string { return string(d.Code) + ": " + d.Message }

func NewDenial(code DenialCode, message string) *Denial {
	return &Denial{Code: code, Message: message}
}

// AsDenial unwraps err into a Denial, or nil when it is an internal error.
func AsDenial(err error) *Denial {
	var d *Denial
	if errors.As(err, &d) {
		return d
	}
	return nil
}
