// Package repository persists account records in Postgres via pgx.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medeez/gate/internal/accounts/domain"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

var _ domain.Repository = (*Postgres)(nil)

func (r *Postgres) GetUser(ctx context.Context, id string) (domain.User, error) {
	const q = `
		SELECT id, email, clinic_id, role, is_active, is_locked, lock_expires_at,
		       last_login_at, last_login_ip, login_count, created_at, updated_at
		FROM users WHERE id = $1`
	var u domain.User
	var lastIP *string
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.Email, &u.ClinicID, &u.Role, &u.IsActive, &u.IsLocked,
		&u.LockExpiresAt, &u.LastLoginAt, &lastIP, &u.LoginCount,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, err
	}
	if lastIP != nil {
		u.LastLoginIP = *lastIP
	}
	return u, nil
}

func (r *Postgres) GetClinic(ctx context.Context, id string) (domain.Clinic, error) {
	const q = `
		SELECT id, name, email_domain, status, subscription_status,
		       trial_ends_at, last_activity_at, created_at, updated_at
		FROM clinics WHERE id = $1`
	var c domain.Clinic
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&c.ID, &c.Name, &c.EmailDomain, &c.Status, &c.SubscriptionStatus,
		&c.TrialEndsAt, &c.LastActivityAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Clinic{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Clinic{}, err
	}
	return c, nil
}

func (r *Postgres) GetInvitationByCode(ctx context.Context, code string) (domain.Invitation, error) {
	const q = `
		SELECT id, code, invited_email, clinic_id, role, status, expires_at, used_at, created_at
		FROM invitations WHERE code = $1`
	var inv domain.Invitation
	err := r.pool.QueryRow(ctx, q, code).Scan(
		&inv.ID, &inv.Code, &inv.InvitedEmail, &inv.ClinicID, &inv.Role,
		&inv.Status, &inv.ExpiresAt, &inv.UsedAt, &inv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Invitation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Invitation{}, err
	}
	return inv, nil
}

func (r *Postgres) CountTrialClinicsByDomain(ctx context.Context, emailDomain string) (int, error) {
	const q = `
		SELECT COUNT(*) FROM clinics
		WHERE email_domain = $1 AND subscription_status = 'trial'`
	var n int
	if err := r.pool.QueryRow(ctx, q, emailDomain).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Postgres) RecordLogin(ctx context.Context, userID, sourceIP string, at time.Time) error {
	const q = `
		UPDATE users
		SET last_login_at = $2, last_login_ip = $3,
		    login_count = login_count + 1, updated_at = $2
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, userID, at, sourceIP)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Postgres) TouchClinicActivity(ctx context.Context, clinicID string, at time.Time) error {
	const q = `
		UPDATE clinics SET last_activity_at = $2, updated_at = $2 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, clinicID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
