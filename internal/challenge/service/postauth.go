package service

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	adomain "github.com/medeez/gate/internal/audit/domain"
	"github.com/medeez/gate/internal/challenge/domain"
	"github.com/medeez/gate/internal/metrics"
)

// botSignatures flag automated clients masquerading as logged-in users.
var botSignatures = []*regexp.Regexp{
	regexp.MustCompile(`(?i)bot`),
	regexp.MustCompile(`(?i)crawler`),
	regexp.MustCompile(`(?i)spider`),
	regexp.MustCompile(`(?i)scraper`),
	regexp.MustCompile(`(?i)wget`),
	regexp.MustCompile(`(?i)curl`),
}

// PostAuth records login telemetry after the provider has issued tokens.
// Nothing here may fail the login: every sub-step's error is logged and
// swallowed.
type PostAuth struct {
	recorder domain.LoginRecorder
	audit    adomain.Publisher
	log      zerolog.Logger
}

func NewPostAuth(recorder domain.LoginRecorder, audit adomain.Publisher, log zerolog.Logger) *PostAuth {
	return &PostAuth{recorder: recorder, audit: audit, log: log}
}

func (p *PostAuth) PostAuthentication(ctx context.Context, in domain.PostAuthInput) {
	if in.UserID == "" || in.Email == "" || in.ClinicID == "" {
		p.log.Error().
			Str("user_id", in.UserID).
			Str("clinic_id", in.ClinicID).
			Msg("post-auth skipped: missing required user attributes")
		return
	}

	now := time.Now().UTC()

	if err := p.recorder.RecordLogin(ctx, in.UserID, in.SourceIP, now); err != nil {
		p.log.Error().Err(err).Str("user_id", in.UserID).Msg("last-login update failed")
	}

	if err := p.audit.Publish(ctx, adomain.Event{
		AuditType: "LOGIN",
		EventType: "user_login",
		UserID:    in.UserID,
		ClinicID:  in.ClinicID,
		IPAddress: in.SourceIP,
		UserAgent: in.UserAgent,
		Timestamp: now,
		Success:   true,
		Severity:  adomain.SeverityInfo,
		Details: map[string]string{
			"email":    in.Email,
			"role":     in.Role,
			"clientId": in.ClientID,
		},
	}); err != nil {
		p.log.Error().Err(err).Str("user_id", in.UserID).Msg("login audit write failed")
	}

	if err := p.recorder.TouchClinicActivity(ctx, in.ClinicID, now); err != nil {
		p.log.Error().Err(err).Str("clinic_id", in.ClinicID).Msg("clinic activity update failed")
	}

	p.checkAnomalies(ctx, in)

	if err := p.audit.Publish(ctx, adomain.Event{
		AuditType: "SECURITY",
		EventType: "user_login_success",
		UserID:    in.UserID,
		ClinicID:  in.ClinicID,
		IPAddress: in.SourceIP,
		UserAgent: in.UserAgent,
		Timestamp: now,
		Success:   true,
		Severity:  adomain.SeverityInfo,
		Details:   map[string]string{"email": in.Email, "role": in.Role},
	}); err != nil {
		p.log.Error().Err(err).Msg("login security event failed")
	}

	metrics.IncChallengeOutcome("post_auth", "success")
	p.log.Info().
		Str("user_id", in.UserID).
		Str("source_ip", in.SourceIP).
		Msg("user logged in")
}

func (p *PostAuth) checkAnomalies(ctx context.Context, in domain.PostAuthInput) {
	for _, re := range botSignatures {
		if re.MatchString(in.UserAgent) {
			if err := p.audit.Publish(ctx, adomain.Event{
				AuditType: "SECURITY",
				EventType: "suspicious_user_agent",
				UserID:    in.UserID,
				ClinicID:  in.ClinicID,
				IPAddress: in.SourceIP,
				UserAgent: in.UserAgent,
				Timestamp: time.Now().UTC(),
				Success:   true,
				Severity:  adomain.SeverityWarn,
			}); err != nil {
				p.log.Error().Err(err).Msg("suspicious user-agent event failed")
			}
			return
		}
	}
}
