// Package service implements the pre-authentication and pre-signup gates.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/medeez/gate/internal/accounts/domain"
	adomain "github.com/medeez/gate/internal/audit/domain"
	"github.com/medeez/gate/internal/metrics"
	"github.com/medeez/gate/internal/platform/ratelimit"
)

// PreAuthInput is the login attempt under evaluation.
type PreAuthInput struct {
	UserID   string
	Email    string
	ClinicID string
	SourceIP string
	ClientID string
}

// PreAuthConfig tunes the gate's policy knobs.
type PreAuthConfig struct {
	TrialGracePeriod   time.Duration
	LoginAttemptLimit  int
	LoginAttemptWindow time.Duration
}

// PreAuth decides whether a login attempt may proceed to credential
// verification. Every outcome is audited before returning.
type PreAuth struct {
	repo    domain.Repository
	limiter ratelimit.Store
	audit   adomain.Publisher
	log     zerolog.Logger
	cfg     PreAuthConfig
}

func NewPreAuth(repo domain.Repository, limiter ratelimit.Store, audit adomain.Publisher, log zerolog.Logger, cfg PreAuthConfig) *PreAuth {
	if cfg.TrialGracePeriod <= 0 {
		cfg.TrialGracePeriod = 72 * time.Hour
	}
	if cfg.LoginAttemptLimit <= 0 {
		cfg.LoginAttemptLimit = 10
	}
	if cfg.LoginAttemptWindow <= 0 {
		cfg.LoginAttemptWindow = 15 * time.Minute
	}
	return &PreAuth{repo: repo, limiter: limiter, audit: audit, log: log, cfg: cfg}
}

// Check returns nil when the login may proceed. A *domain.Denial carries the
// user-facing refusal; any other error is an internal failure and the caller
// must fail closed.
func (s *PreAuth) Check(ctx context.Context, in PreAuthInput) error {
	err := s.check(ctx, in)
	s.auditOutcome(ctx, in, err)
	if err != nil {
		metrics.IncChallengeOutcome("pre_auth", "failure")
	} else {
		metrics.IncChallengeOutcome("pre_auth", "success")
	}
	return err
}

func (s *PreAuth) check(ctx context.Context, in PreAuthInput) error {
	if in.UserID == "" || in.Email == "" {
		return errors.New("accounts: missing required user attributes")
	}

	// Brute-force guard runs before any storage lookups. The counter store
	// failing must not block logins.
	allowed, _, err := s.limiter.Allow(ctx, ratelimit.EmailKey("login", in.Email),
		s.cfg.LoginAttemptLimit, s.cfg.LoginAttemptWindow)
	if err != nil {
		s.log.Error().Err(err).Msg("login attempt counter unavailable")
	} else if !allowed {
		metrics.IncRateLimitExceeded("pre-auth", "email")
		return domain.NewDenial(domain.DenyRateLimited,
			"Too many login attempts. Please try again later.")
	}

	if in.ClinicID == "" {
		return domain.NewDenial(domain.DenyNoClinic, "User not associated with any clinic")
	}

	user, err := s.repo.GetUser(ctx, in.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewDenial(domain.DenyUserNotFound, "User account not found")
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		return domain.NewDenial(domain.DenyUserDisabled, "User account is disabled")
	}
	if user.IsLocked {
		if user.LockExpiresAt == nil || user.LockExpiresAt.After(time.Now()) {
			return domain.NewDenial(domain.DenyUserLocked, "User account is locked")
		}
		s.log.Info().Str("user_id", user.ID).Msg("account lock expired, allowing login")
	}

	clinic, err := s.repo.GetClinic(ctx, in.ClinicID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewDenial(domain.DenyClinicNotFound, "Clinic not found")
	}
	if err != nil {
		return err
	}
	if clinic.Status == domain.ClinicSuspended {
		return domain.NewDenial(domain.DenyClinicSuspended,
			"Clinic account is suspended. Please contact support.")
	}

	return s.checkSubscription(ctx, in, clinic)
}

func (s *PreAuth) checkSubscription(ctx context.Context, in PreAuthInput, clinic domain.Clinic) error {
	now := time.Now()

	if clinic.SubscriptionStatus == domain.SubscriptionTrial && clinic.TrialEndsAt != nil &&
		now.After(*clinic.TrialEndsAt) {
		if now.After(clinic.TrialEndsAt.Add(s.cfg.TrialGracePeriod)) {
			return domain.NewDenial(domain.DenyTrialExpired,
				"Trial period has expired. Please upgrade your subscription.")
		}
		s.log.Info().Str("clinic_id", clinic.ID).Msg("clinic in grace period after trial expiration")
	}

	switch clinic.SubscriptionStatus {
	case domain.SubscriptionExpired, domain.SubscriptionCancelled:
		return domain.NewDenial(domain.DenySubscriptionExpired,
			"Subscription has expired. Please renew your subscription.")
	case domain.SubscriptionPastDue:
		s.log.Warn().Str("clinic_id", clinic.ID).Msg("subscription past due, allowing login with limited access")
		s.publish(ctx, adomain.Event{
			AuditType: "BILLING",
			EventType: "subscription_past_due_login",
			UserID:    in.UserID,
			ClinicID:  clinic.ID,
			IPAddress: in.SourceIP,
			Success:   true,
			Severity:  adomain.SeverityWarn,
		})
	}
	return nil
}

func (s *PreAuth) auditOutcome(ctx context.Context, in PreAuthInput, err error) {
	e := adomain.Event{
		AuditType: "SECURITY",
		EventType: "pre_auth_success",
		UserID:    in.UserID,
		ClinicID:  in.ClinicID,
		IPAddress: in.SourceIP,
		Success:   true,
		Severity:  adomain.SeverityInfo,
		Details:   map[string]string{"email": in.Email, "clientId": in.ClientID},
	}
	if err != nil {
		e.EventType = "pre_auth_failed"
		e.Success = false
		e.Severity = adomain.SeverityWarn
		if d := domain.AsDenial(err); d != nil {
			e.Details["reason"] = string(d.Code)
		} else {
			e.Details["error"] = err.Error()
		}
	}
	s.publish(ctx, e)
}

func (s *PreAuth) publish(ctx context.Context, e adomain.Event) {
	e.Timestamp = time.Now().UTC()
	if err := s.audit.Publish(ctx, e); err != nil {
		s.log.Error().Err(err).Str("event_type", e.EventType).Msg("audit publish failed")
	}
}
