// Package tenant enforces clinic-level isolation on every scoped request.
package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medeez/gate/internal/audit/domain"
	"github.com/medeez/gate/internal/gate"
	"github.com/medeez/gate/internal/metrics"
)

const ctxTargetClinicKey = "tenant_target_clinic_id"

// maxBodyBytes caps how much of a JSON body the guard will buffer while
// scanning for clinic identifiers.
const maxBodyBytes = 1 << 20

// Guard validates that every clinic identifier a request carries matches the
// authenticated caller's clinic, and rewrites the body so downstream handlers
// can never act on a foreign one.
type Guard struct {
	audit   domain.Publisher
	log     zerolog.Logger
	devMode bool
}

func NewGuard(audit domain.Publisher, log zerolog.Logger, devMode bool) *Guard {
	return &Guard{audit: audit, log: log, devMode: devMode}
}

// Isolate rejects any request whose clinic identifiers disagree with the
// authenticated clinic. It must run after authentication.
func (g *Guard) Isolate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := gate.Identity(c)
			if !ok || id.ClinicID == "" {
				return writeForbidden(c, "Tenant context required")
			}
			userClinicID := id.ClinicID

			body, bodyClinicID, err := g.readBody(c)
			if err != nil {
				g.log.Error().Err(err).Msg("tenant guard could not read request body")
				return c.JSON(http.StatusInternalServerError, gate.ErrorBody{
					Error:     gate.CodeInternalError,
					Message:   "Tenant validation failed",
					Timestamp: time.Now().UTC().Format(time.RFC3339),
				})
			}

			sources := []struct {
				name  string
				value string
			}{
				{"header", c.Request().Header.Get("X-Clinic-Id")},
				{"body", bodyClinicID},
				{"params", c.Param("clinicId")},
				{"query", c.QueryParam("clinicId")},
			}
			for _, s := range sources {
				if s.value == "" || s.value == userClinicID {
					continue
				}
				metrics.IncTenantViolation(s.name)
				g.publish(c, domain.Event{
					AuditType: "SECURITY",
					EventType: "tenant_isolation_violation",
					UserID:    id.Sub,
					ClinicID:  userClinicID,
					Severity:  domain.SeverityError,
					Details: map[string]string{
						"attemptedClinicId": s.value,
						"source":            s.name,
						"url":               c.Request().RequestURI,
						"method":            c.Request().Method,
					},
				})
				return writeForbidden(c, "Cross-tenant access denied")
			}

			// Force the body's clinicId to the authenticated clinic before the
			// handler sees it.
			if body != nil {
				restoreBody(c, body, userClinicID)
			}

			c.Set(ctxTargetClinicKey, userClinicID)
			if g.devMode {
				c.Response().Header().Set("X-Tenant-Id", userClinicID)
			}

			g.log.Debug().
				Str("user_id", id.Sub).
				Str("clinic_id", userClinicID).
				Str("url", c.Request().RequestURI).
				Msg("tenant scope applied")
			return next(c)
		}
	}
}

// SystemAdminOverride lets SystemAdmin callers address a different clinic via
// the X-Target-Clinic-Id header or the targetClinicId query parameter. Every
// cross-tenant use is audited. Non-admin callers get the normal isolation
// behavior.
func (g *Guard) SystemAdminOverride() echo.MiddlewareFunc {
	isolate := g.Isolate()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		isolated := isolate(next)
		return func(c echo.Context) error {
			id, ok := gate.Identity(c)
			if !ok {
				return writeForbidden(c, "Authentication required")
			}
			if !id.IsSystemAdmin() {
				return isolated(c)
			}

			target := c.Request().Header.Get("X-Target-Clinic-Id")
			if target == "" {
				target = c.QueryParam("targetClinicId")
			}
			if target == "" {
				target = id.ClinicID
			}

			if target != id.ClinicID {
				g.publish(c, domain.Event{
					AuditType: "SECURITY",
					EventType: "system_admin_cross_tenant_access",
					UserID:    id.Sub,
					ClinicID:  id.ClinicID,
					Severity:  domain.SeverityWarn,
					Details: map[string]string{
						"targetClinicId": target,
						"url":            c.Request().RequestURI,
						"method":         c.Request().Method,
					},
				})
			}

			body, _, err := g.readBody(c)
			if err == nil && body != nil {
				restoreBody(c, body, target)
			}

			c.Set(ctxTargetClinicKey, target)
			g.log.Debug().
				Str("admin_user_id", id.Sub).
				Str("target_clinic_id", target).
				Msg("system admin tenant override applied")
			return next(c)
		}
	}
}

// ValidateResource checks a stored resource's clinic against the request's
// bound clinic, emitting a tenant_data_access_violation event on mismatch.
// Repositories call this before returning cross-referenced rows.
func (g *Guard) ValidateResource(ctx context.Context, requestClinicID, resourceClinicID, operation string) error {
	err := ValidateContext(requestClinicID, resourceClinicID)
	if errors.Is(err, ErrCrossTenant) {
		metrics.IncTenantViolation("resource")
		e := domain.Event{
			AuditType: "SECURITY",
			EventType: "tenant_data_access_violation",
			ClinicID:  requestClinicID,
			Severity:  domain.SeverityError,
			Timestamp: time.Now().UTC(),
			Details: map[string]string{
				"resourceClinicId": resourceClinicID,
				"operation":        operation,
			},
		}
		if perr := g.audit.Publish(ctx, e); perr != nil {
			g.log.Error().Err(perr).Msg("audit publish failed")
		}
	}
	return err
}

// TargetClinicID returns the clinic the request is scoped to after the guard
// ran. For SystemAdmin overrides this may differ from the caller's own clinic.
func TargetClinicID(c echo.Context) (string, bool) {
	v := c.Get(ctxTargetClinicKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// readBody buffers a JSON request body and extracts its clinicId field, if
// any. Non-JSON and empty bodies yield a nil map.
func (g *Guard) readBody(c echo.Context) (map[string]any, string, error) {
	req := c.Request()
	if req.Body == nil || req.ContentLength == 0 {
		return nil, "", nil
	}
	if ct := req.Header.Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		return nil, "", nil
	}

	raw, err := io.ReadAll(io.LimitReader(req.Body, maxBodyBytes))
	if err != nil {
		return nil, "", err
	}
	req.Body = io.NopCloser(bytes.NewReader(raw))

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		// Not an object; leave it untouched.
		return nil, "", nil
	}
	clinicID, _ := m["clinicId"].(string)
	return m, clinicID, nil
}

// restoreBody rewrites the buffered body with clinicId pinned to the scoped
// clinic.
func restoreBody(c echo.Context, m map[string]any, clinicID string) {
	m["clinicId"] = clinicID
	raw, err := json.Marshal(m)
	if err != nil {
		return
	}
	req := c.Request()
	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.ContentLength = int64(len(raw))
}

func (g *Guard) publish(c echo.Context, e domain.Event) {
	e.IPAddress = c.RealIP()
	e.UserAgent = c.Request().UserAgent()
	e.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	e.Timestamp = time.Now().UTC()
	if err := g.audit.Publish(c.Request().Context(), e); err != nil {
		g.log.Error().Err(err).Str("event_type", e.EventType).Msg("audit publish failed")
	}
}

func writeForbidden(c echo.Context, message string) error {
	return c.JSON(http.StatusForbidden, gate.ErrorBody{
		Error:     gate.CodeForbidden,
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
