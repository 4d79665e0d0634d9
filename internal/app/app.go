// Package app wires configuration, the database pool and the optional AWS
// integrations into a request Handler. Every Lambda binary calls Bootstrap
// from init.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/clinicbook/internal/auth"
	"github.com/clinicbook/internal/config"
	"github.com/clinicbook/internal/db"
	"github.com/clinicbook/internal/encryption"
	"github.com/clinicbook/internal/handlers"
	"github.com/clinicbook/internal/idempotency"
	"github.com/clinicbook/internal/logging"
	"github.com/clinicbook/internal/ratelimit"
	"github.com/clinicbook/internal/store"
)

func Bootstrap(ctx context.Context) (*handlers.Handler, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.Env)

	conn, err := db.Init(ctx, cfg.DatabaseURL, cfg.RequireTLS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	var opts []store.Option
	if cfg.KMSKeyID != "" {
		kc, err := encryption.NewKMSClient(ctx, cfg.KMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize KMS: %v", err)
		}
		opts = append(opts, store.WithCipher(kc))
	}
	st := store.New(conn, opts...)

	deps := handlers.Deps{
		Users:           st,
		Appointments:    st,
		Locations:       st,
		Log:             log,
		AllowedOrigin:   cfg.AllowedOrigin,
		DefaultTimeZone: cfg.DefaultTimeZone,
		Limiter:         ratelimit.New(cfg.CheckAccessRPS, cfg.CheckAccessBurst),
	}
	if cfg.JWTSecret != "" {
		deps.Tokens = auth.NewIssuer(cfg.JWTSecret, cfg.SessionTTL)
	}
	if cfg.IdempotencyTableName != "" {
		svc, err := idempotency.NewService(ctx, cfg.IdempotencyTableName, log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize idempotency: %v", err)
		}
		deps.Dedupe = svc
	}

	log.Info("bootstrap complete",
		slog.Bool("sessions", deps.Tokens != nil),
		slog.Bool("dedupe", deps.Dedupe != nil),
		slog.Bool("encryption", cfg.KMSKeyID != ""),
	)
	return handlers.New(deps), nil
}
