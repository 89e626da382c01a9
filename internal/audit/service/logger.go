package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medeez/gate/internal/audit/domain"
)

// Logger is a Publisher that writes events to the structured log. It is the
// default sink in development and the local fallback when a shared sink is
// unreachable.
type Logger struct {
	log zerolog.Logger
}

func NewLogger(log zerolog.Logger) *Logger { return &Logger{log: log} }

func (l *Logger) Publish(_ context.Context, e domain.Event) error {
	ev := l.log.Info()
	switch e.Severity {
	case domain.SeverityWarn:
		ev = l.log.Warn()
	case domain.SeverityError:
		ev = l.log.Error()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	ev.Str("audit_type", e.AuditType).
		Str("event_type", e.EventType).
		Str("user_id", e.UserID).
		Str("clinic_id", e.ClinicID).
		Bool("success", e.Success)
	if e.ResourceType != "" {
		ev.Str("resource_type", e.ResourceType).Str("resource_id", e.ResourceID)
	}
	if e.IPAddress != "" {
		ev.Str("ip", e.IPAddress)
	}
	if e.RequestID != "" {
		ev.Str("request_id", e.RequestID)
	}
	if e.PHIAccessed {
		ev.Bool("phi_accessed", true)
	}
	if len(e.Details) > 0 {
		ev.Fields(map[string]any{"details": e.Details})
	}
	ev.Time("ts", e.Timestamp).Msg("audit event")
	return nil
}
