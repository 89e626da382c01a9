package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/medeez/gate/internal/accounts/domain"
	"github.com/medeez/gate/internal/accounts/service"
	adomain "github.com/medeez/gate/internal/audit/domain"
	"github.com/medeez/gate/internal/logger"
	"github.com/medeez/gate/internal/platform/ratelimit"
	"github.com/medeez/gate/internal/platform/validation"
)

type stubRepo struct {
	user    domain.User
	userErr error
	clinic  domain.Clinic
}

func (r *stubRepo) GetUser(context.Context, string) (domain.User, error) {
	return r.user, r.userErr
}

func (r *stubRepo) GetClinic(context.Context, string) (domain.Clinic, error) {
	return r.clinic, nil
}

func (r *stubRepo) GetInvitationByCode(context.Context, string) (domain.Invitation, error) {
	return domain.Invitation{}, domain.ErrNotFound
}

func (r *stubRepo) CountTrialClinicsByDomain(context.Context, string) (int, error) { return 0, nil }

func (r *stubRepo) RecordLogin(context.Context, string, string, time.Time) error { return nil }

func (r *stubRepo) TouchClinicActivity(context.Context, string, time.Time) error { return nil }

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, adomain.Event) error { return nil }

func newHookServer(repo *stubRepo) *echo.Echo {
	log := logger.Nop()
	preAuth := service.NewPreAuth(repo, ratelimit.NewMemoryStore(), nopPublisher{}, log, service.PreAuthConfig{})
	preSignup := service.NewPreSignup(repo, nopPublisher{}, log, nil)

	e := echo.New()
	e.Validator = validation.New()
	New(preAuth, preSignup).Register(e.Group("/hooks"))
	return e
}

func postJSON(e *echo.Echo, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func TestPreAuthenticationAllowed(t *testing.T) {
	trialEnd := time.Now().Add(10 * 24 * time.Hour)
	e := newHookServer(&stubRepo{
		user: domain.User{ID: "user-1", IsActive: true},
		clinic: domain.Clinic{
			ID:                 "clinic-1",
			Status:             domain.ClinicActive,
			SubscriptionStatus: domain.SubscriptionTrial,
			TrialEndsAt:        &trialEnd,
		},
	})

	rec, body := postJSON(e, "/hooks/pre-authentication", `{
		"userAttributes": {"sub":"user-1","email":"doc@clinic.example","custom:clinicId":"clinic-1"},
		"callerContext": {"sourceIp":"203.0.113.9","clientId":"client-1"}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", rec.Code, body)
	}
	if body["allowed"] != true {
		t.Errorf("body = %v", body)
	}
}

func TestPreAuthenticationDenied(t *testing.T) {
	e := newHookServer(&stubRepo{userErr: domain.ErrNotFound})

	rec, body := postJSON(e, "/hooks/pre-authentication", `{
		"userAttributes": {"sub":"ghost","email":"a@b.c","custom:clinicId":"clinic-1"}
	}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body["error"] != "USER_NOT_FOUND" {
		t.Errorf("error = %v, want USER_NOT_FOUND", body["error"])
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"].(string)); err != nil {
		t.Errorf("timestamp %v is not RFC3339", body["timestamp"])
	}
}

func TestPreAuthenticationFailsClosed(t *testing.T) {
	e := newHookServer(&stubRepo{userErr: errors.New("connection refused")})

	rec, body := postJSON(e, "/hooks/pre-authentication", `{
		"userAttributes": {"sub":"user-1","email":"a@b.c","custom:clinicId":"clinic-1"}
	}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if body["error"] != "INTERNAL_ERROR" || body["message"] != "Authentication failed" {
		t.Errorf("internal failures must not leak causes, got %v", body)
	}
}

func TestPreAuthenticationMissingAttributes(t *testing.T) {
	e := newHookServer(&stubRepo{})
	rec, _ := postJSON(e, "/hooks/pre-authentication", `{"callerContext":{}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPreSignUpTrial(t *testing.T) {
	e := newHookServer(&stubRepo{})

	rec, body := postJSON(e, "/hooks/pre-signup", `{
		"userAttributes": {"email":"founder@clinic.example"},
		"validationData": {}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %v", rec.Code, body)
	}
	if body["allowed"] != true || body["autoConfirmUser"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestPreSignUpInvalidInvitation(t *testing.T) {
	e := newHookServer(&stubRepo{})

	rec, body := postJSON(e, "/hooks/pre-signup", `{
		"userAttributes": {"email":"new@clinic.example"},
		"validationData": {"invitationCode":"NOPE"}
	}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if body["error"] != "INVALID_INVITATION" {
		t.Errorf("error = %v", body["error"])
	}
}
