// Package gate wires token verification, claims extraction, and permission
// checks into the HTTP request path.
package gate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medeez/gate/internal/audit/domain"
	"github.com/medeez/gate/internal/identity"
	"github.com/medeez/gate/internal/metrics"
	"github.com/medeez/gate/internal/permission"
	"github.com/medeez/gate/internal/token"
)

const (
	ctxIdentityKey = "gate_identity"
	ctxClinicIDKey = "gate_clinic_id"
)

// Verifier is the token verification dependency. *token.Verifier satisfies
// it; tests substitute fakes.
type Verifier interface {
	Verify(ctx context.Context, raw string) (jwt.MapClaims, error)
}

// Gate authenticates requests and enforces capability and role checks.
type Gate struct {
	verifier Verifier
	audit    domain.Publisher
	log      zerolog.Logger
}

func New(verifier Verifier, audit domain.Publisher, log zerolog.Logger) *Gate {
	return &Gate{verifier: verifier, audit: audit, log: log}
}

// RequireAuth rejects requests without a valid bearer access token. On
// success the caller's identity and clinic ID are bound to the context.
func (g *Gate) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, status, code, msg := g.authenticate(c)
			if code != "" {
				return writeError(c, status, code, msg)
			}
			BindIdentity(c, id)
			metrics.IncAuthOutcome("verify", "success")
			g.log.Debug().
				Str("user_id", id.Sub).
				Str("clinic_id", id.ClinicID).
				Str("role", string(id.Role)).
				Msg("user authenticated")
			return next(c)
		}
	}
}

// OptionalAuth binds an identity when a valid bearer token is present but
// never rejects the request. Rejected tokens are logged at debug only; no
// security events or failure metrics are emitted for them.
func (g *Gate) OptionalAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return next(c)
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			claims, err := g.verifier.Verify(c.Request().Context(), raw)
			if err != nil {
				g.log.Debug().Err(err).Msg("optional auth token rejected")
				return next(c)
			}
			id, err := identity.FromClaims(claims)
			if err != nil {
				g.log.Debug().Err(err).Msg("optional auth claims rejected")
				return next(c)
			}
			BindIdentity(c, id)
			return next(c)
		}
	}
}

// RequireCapability rejects authenticated callers whose groups do not grant
// the capability. It must run after RequireAuth.
func (g *Gate) RequireCapability(capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := Identity(c)
			if !ok {
				return writeError(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
			}
			if !permission.HasCapability(id.Groups, capability) {
				metrics.IncPermissionDenied("capability")
				g.publishSecurityEvent(c, id, "permission_denied", domain.SeverityWarn, map[string]string{
					"requiredPermission": capability,
					"userGroups":         strings.Join(id.Groups, ","),
				})
				return writeError(c, http.StatusForbidden, CodeForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}

// RequireRole rejects authenticated callers holding none of the allowed
// roles. SystemAdmin passes every role check. It must run after RequireAuth.
func (g *Gate) RequireRole(allowedRoles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := Identity(c)
			if !ok {
				return writeError(c, http.StatusUnauthorized, CodeUnauthorized, "Authentication required")
			}
			if !permission.HasRole(id.Groups, allowedRoles) {
				metrics.IncPermissionDenied("role")
				g.publishSecurityEvent(c, id, "role_access_denied", domain.SeverityWarn, map[string]string{
					"allowedRoles": strings.Join(allowedRoles, ","),
					"userGroups":   strings.Join(id.Groups, ","),
				})
				return writeError(c, http.StatusForbidden, CodeForbidden, "Role access denied")
			}
			return next(c)
		}
	}
}

// authenticate runs the bearer-extract / verify / claims-extract stages.
// A non-empty code means the request must be rejected with (status, code, msg).
func (g *Gate) authenticate(c echo.Context) (identity.Identity, int, string, string) {
	auth := c.Request().Header.Get("Authorization")
	if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
		metrics.IncAuthOutcome("bearer", "failure")
		g.publishSecurityEvent(c, identity.Identity{}, "missing_auth_token", domain.SeverityWarn, map[string]string{
			"url": c.Request().RequestURI,
		})
		return identity.Identity{}, http.StatusUnauthorized, CodeUnauthorized, "Access token required"
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	claims, err := g.verifier.Verify(c.Request().Context(), raw)
	if err != nil {
		metrics.IncAuthOutcome("verify", "failure")
		g.publishSecurityEvent(c, identity.Identity{}, "auth_failure", domain.SeverityWarn, map[string]string{
			"error": err.Error(),
			"url":   c.Request().RequestURI,
		})
		switch token.KindOf(err) {
		case token.KindExpired:
			return identity.Identity{}, http.StatusUnauthorized, CodeUnauthorized, "Token expired"
		case token.KindSignatureInvalid:
			return identity.Identity{}, http.StatusUnauthorized, CodeUnauthorized, "Invalid token signature"
		default:
			return identity.Identity{}, http.StatusUnauthorized, CodeUnauthorized, "Invalid token"
		}
	}

	id, err := identity.FromClaims(claims)
	if err != nil {
		metrics.IncAuthOutcome("extract", "failure")
		g.publishSecurityEvent(c, identity.Identity{}, "auth_failure", domain.SeverityWarn, map[string]string{
			"error": err.Error(),
			"url":   c.Request().RequestURI,
		})
		if errors.Is(err, identity.ErrNoTenant) {
			return identity.Identity{}, http.StatusForbidden, CodeForbidden, "User not associated with any clinic"
		}
		return identity.Identity{}, http.StatusUnauthorized, CodeUnauthorized, "Invalid token"
	}

	return id, 0, "", ""
}

func (g *Gate) publishSecurityEvent(c echo.Context, id identity.Identity, eventType string, sev domain.Severity, details map[string]string) {
	e := domain.Event{
		AuditType: "SECURITY",
		EventType: eventType,
		UserID:    id.Sub,
		ClinicID:  id.ClinicID,
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		RequestID: c.Response().Header().Get(echo.HeaderXRequestID),
		Timestamp: time.Now().UTC(),
		Success:   false,
		Severity:  sev,
		Details:   details,
	}
	if err := g.audit.Publish(c.Request().Context(), e); err != nil {
		g.log.Error().Err(err).Str("event_type", eventType).Msg("audit publish failed")
	}
}

// BindIdentity attaches an identity to the request context the way
// RequireAuth does. Exposed for wiring custom pipelines and tests.
func BindIdentity(c echo.Context, id identity.Identity) {
	c.Set(ctxIdentityKey, id)
	c.Set(ctxClinicIDKey, id.ClinicID)
}

// Identity returns the authenticated identity bound to the context.
func Identity(c echo.Context) (identity.Identity, bool) {
	v := c.Get(ctxIdentityKey)
	if v == nil {
		return identity.Identity{}, false
	}
	id, ok := v.(identity.Identity)
	return id, ok
}

// ClinicID returns the authenticated caller's clinic ID from the context.
func ClinicID(c echo.Context) (string, bool) {
	v := c.Get(ctxClinicIDKey)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}
