package domain

import (
	"context"
	"time"
)

// Severity classifies how urgently an event should surface in monitoring.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is a single security/audit record. Events are write-once; the gate
// only produces them, it never reads them back.
//
// EventType examples: "tenant_isolation_violation", "permission_denied",
// "user_login_success", "pre_auth_failed".
type Event struct {
	AuditType    string            `json:"auditType"`
	EventType    string            `json:"eventType"`
	ResourceType string            `json:"resourceType,omitempty"`
	ResourceID   string            `json:"resourceId,omitempty"`
	UserID       string            `json:"userId"`
	ClinicID     string            `json:"clinicId"`
	IPAddress    string            `json:"ipAddress,omitempty"`
	UserAgent    string            `json:"userAgent,omitempty"`
	RequestID    string            `json:"requestId,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
	Success      bool              `json:"success"`
	PHIAccessed  bool              `json:"phiAccessed,omitempty"`
	Severity     Severity          `json:"severity,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

// Publisher delivers events to an external sink (log, stream, queue).
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
