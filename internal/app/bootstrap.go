package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"asistenku/internal/config"
	"asistenku/internal/domain"
	"asistenku/internal/repo"
)

// Bootstrap applies the seed section of the config to a freshly
// migrated database: superadmin account, unit constant and partner
// rates. All writes are idempotent so restarts are safe.
func Bootstrap(ctx context.Context, r repo.Repo, cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if cfg.Seed.Superadmin.ID != "" {
		if _, err := r.GetUserTx(ctx, tx, cfg.Seed.Superadmin.ID); errors.Is(err, repo.ErrNotFound) {
			name := cfg.Seed.Superadmin.Name
			if name == "" {
				name = cfg.Seed.Superadmin.ID
			}
			u := domain.User{
				ID:        cfg.Seed.Superadmin.ID,
				Role:      domain.RoleSuperadmin,
				Name:      name,
				Email:     cfg.Seed.Superadmin.Email,
				Status:    domain.StatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := r.InsertUserTx(ctx, tx, u); err != nil {
				return fmt.Errorf("seed superadmin: %w", err)
			}
		} else if err != nil {
			return err
		}
	}
	if cfg.Seed.KonstantaUnitClient > 0 {
		if err := r.SetKonstantaTx(ctx, tx, cfg.Seed.KonstantaUnitClient, now); err != nil {
			return fmt.Errorf("seed konstanta: %w", err)
		}
	}
	for tier, rate := range cfg.Seed.TarifPartner {
		t := domain.TarifPartner{TipePartner: tier, RatePerJam: rate, UpdatedAt: now}
		if err := r.SetTarifTx(ctx, tx, t); err != nil {
			return fmt.Errorf("seed tarif %s: %w", tier, err)
		}
	}
	return tx.Commit()
}
