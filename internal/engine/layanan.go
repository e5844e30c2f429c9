package engine

import (
	"context"

	"github.com/google/uuid"

	"asistenku/internal/domain"
	"asistenku/internal/engine/auth"
	"asistenku/internal/events"
	"asistenku/internal/repo"
)

// LayananCreateOptions are parameters for provisioning a service pool.
type LayananCreateOptions struct {
	ID          string
	OwnerClient string
	Nama        string
	Deskripsi   string
	UnitTotal   int64
	ActorID     string
}

// CreateLayanan provisions a capacity pool for a client. Admin or
// superadmin only.
func (e Engine) CreateLayanan(ctx context.Context, opts LayananCreateOptions) (domain.Layanan, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, opts.ActorID, domain.InternalRoleAdmin); err != nil {
		return domain.Layanan{}, err
	}
	if opts.Nama == "" {
		return domain.Layanan{}, ValidationError{Field: "nama", Reason: "required"}
	}
	if opts.UnitTotal < 0 {
		return domain.Layanan{}, ValidationError{Field: "unit_total", Reason: "must not be negative"}
	}
	owner, err := e.Repo.GetUser(ctx, opts.OwnerClient)
	if err == repo.ErrNotFound {
		return domain.Layanan{}, ValidationError{Field: "owner_client", Reason: "unknown client " + opts.OwnerClient}
	}
	if err != nil {
		return domain.Layanan{}, err
	}
	if owner.Role != domain.RoleClient {
		return domain.Layanan{}, ValidationError{Field: "owner_client", Reason: opts.OwnerClient + " is not a client"}
	}
	now := e.nowRFC3339()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	l := domain.Layanan{
		ID:          id,
		OwnerClient: owner.ID,
		Nama:        opts.Nama,
		Deskripsi:   opts.Deskripsi,
		UnitTotal:   opts.UnitTotal,
		IsActive:    true,
		CreatedAt:   now,
		CreatedBy:   opts.ActorID,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Layanan{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertLayanan(ctx, tx, l); err != nil {
		return domain.Layanan{}, err
	}
	if err := e.Events.Append(ctx, tx, "layanan.created", "layanan", l.ID, opts.ActorID, events.EventPayload{
		"owner_client": l.OwnerClient,
		"unit_total":   l.UnitTotal,
	}); err != nil {
		return domain.Layanan{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Layanan{}, err
	}
	return l, nil
}

// SetLayananActive toggles a pool. Deactivation blocks new
// reservations but leaves in-flight holds to settle normally.
func (e Engine) SetLayananActive(ctx context.Context, layananID string, active bool, actorID string) (domain.Layanan, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin); err != nil {
		return domain.Layanan{}, err
	}
	l, err := e.Repo.GetLayanan(ctx, layananID)
	if err != nil {
		return domain.Layanan{}, err
	}
	if l.IsActive == active {
		return domain.Layanan{}, ConflictError{Reason: "layanan " + layananID + " already in requested state"}
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Layanan{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.SetLayananActive(ctx, tx, layananID, active, now, actorID); err != nil {
		return domain.Layanan{}, err
	}
	evt := "layanan.deactivated"
	if active {
		evt = "layanan.activated"
	}
	if err := e.Events.Append(ctx, tx, evt, "layanan", layananID, actorID, nil); err != nil {
		return domain.Layanan{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Layanan{}, err
	}
	l.IsActive = active
	l.UpdatedAt = now
	l.UpdatedBy = actorID
	return l, nil
}

// TopUpLayanan raises the purchased capacity of a pool.
func (e Engine) TopUpLayanan(ctx context.Context, layananID string, units int64, actorID string) (domain.Layanan, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin, domain.InternalRoleFinance); err != nil {
		return domain.Layanan{}, err
	}
	if units <= 0 {
		return domain.Layanan{}, ValidationError{Field: "units", Reason: "must be positive"}
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Layanan{}, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE layanan SET unit_total = unit_total + ?, updated_at = ?, updated_by = ? WHERE id = ?`,
		units, now, actorID, layananID)
	if err != nil {
		return domain.Layanan{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Layanan{}, err
	}
	if n == 0 {
		return domain.Layanan{}, repo.ErrNotFound
	}
	if err := e.Events.Append(ctx, tx, "layanan.topup", "layanan", layananID, actorID, events.EventPayload{"units": units}); err != nil {
		return domain.Layanan{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Layanan{}, err
	}
	return e.Repo.GetLayanan(ctx, layananID)
}

// ShareLayanan grants another principal read access to a pool.
func (e Engine) ShareLayanan(ctx context.Context, layananID, principal, actorID string) error {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin); err != nil {
		return err
	}
	if principal == "" {
		return ValidationError{Field: "principal", Reason: "required"}
	}
	l, err := e.Repo.GetLayanan(ctx, layananID)
	if err != nil {
		return err
	}
	if l.OwnerClient == principal {
		return ConflictError{Reason: "principal already owns layanan " + layananID}
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertLayananShare(ctx, tx, layananID, principal, now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "layanan.shared", "layanan", layananID, actorID, events.EventPayload{"principal": principal}); err != nil {
		return err
	}
	return tx.Commit()
}

// UnshareLayanan revokes a previously granted share.
func (e Engine) UnshareLayanan(ctx context.Context, layananID, principal, actorID string) error {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteLayananShare(ctx, tx, layananID, principal); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "layanan.unshared", "layanan", layananID, actorID, events.EventPayload{"principal": principal}); err != nil {
		return err
	}
	return tx.Commit()
}

// GetLayanan returns one pool, visible to its owner, shared
// principals, and internal staff.
func (e Engine) GetLayanan(ctx context.Context, layananID, actorID string) (domain.Layanan, error) {
	actor, err := e.Auth.ActiveActor(ctx, actorID)
	if err != nil {
		return domain.Layanan{}, err
	}
	l, err := e.Repo.GetLayanan(ctx, layananID)
	if err != nil {
		return domain.Layanan{}, err
	}
	if !auth.IsInternal(actor) && l.OwnerClient != actor.ID {
		shared, err := e.Repo.IsLayananSharedWith(ctx, layananID, actor.ID)
		if err != nil {
			return domain.Layanan{}, err
		}
		if !shared {
			return domain.Layanan{}, auth.UnauthorizedError{Actor: actorID, Reason: "layanan not visible"}
		}
	}
	shares, err := e.Repo.ListLayananShares(ctx, layananID)
	if err != nil {
		return domain.Layanan{}, err
	}
	l.SharedWith = shares
	return l, nil
}

// ListLayanan returns the pools the actor can see: all of them for
// internal staff, owned plus shared for everyone else.
func (e Engine) ListLayanan(ctx context.Context, actorID string, limit int) ([]domain.Layanan, error) {
	actor, err := e.Auth.ActiveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	f := repo.LayananFilters{Limit: limit}
	if !auth.IsInternal(actor) {
		f.Principal = actor.ID
	}
	return e.Repo.ListLayanan(ctx, f)
}
