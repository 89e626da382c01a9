package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	adomain "github.com/medeez/gate/internal/audit/domain"
	"github.com/medeez/gate/internal/challenge/domain"
	"github.com/medeez/gate/internal/logger"
)

type fakeRecorder struct {
	loginErr    error
	activityErr error
	logins      []string
	clinics     []string
}

func (r *fakeRecorder) RecordLogin(_ context.Context, userID, _ string, _ time.Time) error {
	if r.loginErr != nil {
		return r.loginErr
	}
	r.logins = append(r.logins, userID)
	return nil
}

func (r *fakeRecorder) TouchClinicActivity(_ context.Context, clinicID string, _ time.Time) error {
	if r.activityErr != nil {
		return r.activityErr
	}
	r.clinics = append(r.clinics, clinicID)
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	err    error
	events []adomain.Event
}

func (p *capturePublisher) Publish(_ context.Context, e adomain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) byType(eventType string) []adomain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []adomain.Event
	for _, e := range p.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

func loginInput() domain.PostAuthInput {
	return domain.PostAuthInput{
		UserID:    "user-1",
		Email:     "doc@clinic.example",
		ClinicID:  "clinic-1",
		Role:      "Doctor",
		SourceIP:  "203.0.113.9",
		UserAgent: "Mozilla/5.0",
		ClientID:  "client-1",
	}
}

func TestPostAuthentication(t *testing.T) {
	rec := &fakeRecorder{}
	pub := &capturePublisher{}
	p := NewPostAuth(rec, pub, logger.Nop())

	p.PostAuthentication(context.Background(), loginInput())

	if len(rec.logins) != 1 || rec.logins[0] != "user-1" {
		t.Errorf("logins = %v", rec.logins)
	}
	if len(rec.clinics) != 1 || rec.clinics[0] != "clinic-1" {
		t.Errorf("clinics = %v", rec.clinics)
	}
	login := pub.byType("user_login")
	if len(login) != 1 || login[0].AuditType != "LOGIN" || !login[0].Success {
		t.Fatalf("user_login events = %+v", login)
	}
	if login[0].Details["email"] != "doc@clinic.example" || login[0].Details["clientId"] != "client-1" {
		t.Errorf("user_login details = %v", login[0].Details)
	}
	if len(pub.byType("user_login_success")) != 1 {
		t.Error("expected one user_login_success event")
	}
	if len(pub.byType("suspicious_user_agent")) != 0 {
		t.Error("a browser user agent must not be flagged")
	}
}

func TestPostAuthenticationBotUserAgent(t *testing.T) {
	pub := &capturePublisher{}
	p := NewPostAuth(&fakeRecorder{}, pub, logger.Nop())

	for _, ua := range []string{"Googlebot/2.1", "curl/8.4.0", "my-spider", "Wget/1.21", "WebCrawler", "data-scraper"} {
		in := loginInput()
		in.UserAgent = ua
		p.PostAuthentication(context.Background(), in)
	}

	if got := len(pub.byType("suspicious_user_agent")); got != 6 {
		t.Errorf("suspicious_user_agent events = %d, want 6", got)
	}
}

func TestPostAuthenticationMissingAttributes(t *testing.T) {
	rec := &fakeRecorder{}
	pub := &capturePublisher{}
	p := NewPostAuth(rec, pub, logger.Nop())

	for _, in := range []domain.PostAuthInput{
		{Email: "a@b.c", ClinicID: "clinic-1"},
		{UserID: "user-1", ClinicID: "clinic-1"},
		{UserID: "user-1", Email: "a@b.c"},
	} {
		p.PostAuthentication(context.Background(), in)
	}

	if len(rec.logins) != 0 || len(pub.events) != 0 {
		t.Errorf("incomplete input must be a no-op, got logins=%v events=%+v", rec.logins, pub.events)
	}
}

func TestPostAuthenticationSwallowsErrors(t *testing.T) {
	rec := &fakeRecorder{loginErr: errors.New("db down"), activityErr: errors.New("db down")}
	pub := &capturePublisher{err: errors.New("stream down")}
	p := NewPostAuth(rec, pub, logger.Nop())

	// Must not panic and must not surface any failure.
	p.PostAuthentication(context.Background(), loginInput())
}
