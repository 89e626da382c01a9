package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medeez/gate/internal/accounts/domain"
	adomain "github.com/medeez/gate/internal/audit/domain"
	"github.com/medeez/gate/internal/metrics"
)

// PreSignupResult tells the provider how to finish a permitted registration.
type PreSignupResult struct {
	AutoConfirmUser bool
	AutoVerifyEmail bool
}

// PreSignup vets registrations: invitation codes, the one-trial-per-domain
// rule, and the disposable-address deny-list.
type PreSignup struct {
	repo              domain.Repository
	audit             adomain.Publisher
	log               zerolog.Logger
	disposableDomains map[string]struct{}
}

func NewPreSignup(repo domain.Repository, audit adomain.Publisher, log zerolog.Logger, disposableDomains []string) *PreSignup {
	deny := make(map[string]struct{}, len(disposableDomains))
	for _, d := range disposableDomains {
		deny[strings.ToLower(d)] = struct{}{}
	}
	return &PreSignup{repo: repo, audit: audit, log: log, disposableDomains: deny}
}

// Check evaluates a registration attempt. A *domain.Denial is a refusal with
// a user-facing message; other errors are internal and the caller fails
// closed.
func (s *PreSignup) Check(ctx context.Context, email, invitationCode string) (PreSignupResult, error) {
	res, err := s.check(ctx, email, invitationCode)
	s.auditOutcome(ctx, email, invitationCode != "", err)
	if err != nil {
		metrics.IncChallengeOutcome("pre_signup", "failure")
	} else {
		metrics.IncChallengeOutcome("pre_signup", "success")
	}
	return res, err
}

func (s *PreSignup) check(ctx context.Context, email, invitationCode string) (PreSignupResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return PreSignupResult{}, domain.NewDenial(domain.DenyEmailRequired,
			"Email is required for registration")
	}

	var res PreSignupResult
	if invitationCode != "" {
		if err := s.validateInvitation(ctx, email, invitationCode); err != nil {
			return PreSignupResult{}, err
		}
		// Invited users skip the provider's own email verification.
		res.AutoConfirmUser = true
		res.AutoVerifyEmail = true
	} else {
		if err := s.checkTrialEligibility(ctx, email); err != nil {
			return PreSignupResult{}, err
		}
	}

	if err := s.validateEmailDomain(email); err != nil {
		return PreSignupResult{}, err
	}
	return res, nil
}

// validateInvitation requires a pending, unexpired, unused invitation whose
// invited address matches the registrant exactly.
func (s *PreSignup) validateInvitation(ctx context.Context, email, code string) error {
	inv, err := s.repo.GetInvitationByCode(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewDenial(domain.DenyInvalidInvitation, "Invalid or expired invitation code")
	}
	if err != nil {
		return err
	}
	if inv.Status != domain.InvitationPending ||
		!inv.ExpiresAt.After(time.Now()) ||
		!strings.EqualFold(inv.InvitedEmail, email) {
		return domain.NewDenial(domain.DenyInvalidInvitation, "Invalid or expired invitation code")
	}
	if inv.UsedAt != nil {
		return domain.NewDenial(domain.DenyInvitationUsed, "Invitation code has already been used")
	}
	return nil
}

func (s *PreSignup) checkTrialEligibility(ctx context.Context, email string) error {
	emailDomain := domainOf(email)
	n, err := s.repo.CountTrialClinicsByDomain(ctx, emailDomain)
	if err != nil {
		return err
	}
	// One trial clinic per email domain.
	if n >= 1 {
		return domain.NewDenial(domain.DenyTrialLimit, "Trial limit exceeded for this email domain")
	}
	return nil
}

func (s *PreSignup) validateEmailDomain(email string) error {
	if _, blocked := s.disposableDomains[domainOf(email)]; blocked {
		return domain.NewDenial(domain.DenyDisposableEmail, "Disposable email addresses are not allowed")
	}
	return nil
}

func domainOf(email string) string {
	if i := strings.LastIndexByte(email, '@'); i >= 0 {
		return email[i+1:]
	}
	return ""
}

func (s *PreSignup) auditOutcome(ctx context.Context, email string, invited bool, err error) {
	e := adomain.Event{
		AuditType: "SECURITY",
		EventType: "user_registration_attempt",
		Success:   true,
		Severity:  adomain.SeverityInfo,
		Timestamp: time.Now().UTC(),
		Details: map[string]string{
			"email":             email,
			"hasInvitationCode": boolString(invited),
		},
	}
	if err != nil {
		e.EventType = "user_registration_failed"
		e.Success = false
		e.Severity = adomain.SeverityWarn
		if d := domain.AsDenial(err); d != nil {
			e.Details["reason"] = string(d.Code)
		} else {
			e.Details["error"] = err.Error()
		}
	}
	if perr := s.audit.Publish(ctx, e); perr != nil {
		s.log.Error().Err(perr).Str("event_type", e.EventType).Msg("audit publish failed")
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
