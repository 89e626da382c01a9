// Command seed loads a small development data set: one trial clinic, one
// user per role, and a pending invitation.
package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/medeez/gate/internal/config"
	"github.com/medeez/gate/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.AppEnv)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to connect")
	}
	defer pool.Close()

	clinicID := uuid.NewString()
	trialEnd := time.Now().AddDate(0, 0, 30)

	_, err = pool.Exec(ctx, `
		INSERT INTO clinics (id, name, email_domain, status, subscription_status, trial_ends_at)
		VALUES ($1, 'Demo Clinic', 'demo-clinic.example', 'active', 'trial', $2)`,
		clinicID, trialEnd)
	if err != nil {
		log.Fatal().Err(err).Msg("seed clinic failed")
	}

	for _, role := range []string{"Admin", "Doctor", "Staff"} {
		userID := uuid.NewString()
		email := "demo-" + role + "@demo-clinic.example"
		_, err = pool.Exec(ctx, `
			INSERT INTO users (id, email, clinic_id, role)
			VALUES ($1, $2, $3, $4)`,
			userID, email, clinicID, role)
		if err != nil {
			log.Fatal().Err(err).Str("role", role).Msg("seed user failed")
		}
		log.Info().Str("email", email).Str("role", role).Msg("seeded user")
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO invitations (id, code, invited_email, clinic_id, role, status, expires_at)
		VALUES ($1, $2, 'invited@demo-clinic.example', $3, 'Staff', 'PENDING', $4)`,
		uuid.NewString(), uuid.NewString(), clinicID, time.Now().AddDate(0, 0, 7))
	if err != nil {
		log.Fatal().Err(err).Msg("seed invitation failed")
	}

	log.Info().Str("clinic_id", clinicID).Msg("seed complete")
}
