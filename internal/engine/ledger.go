package engine

import (
	"context"
	"database/sql"
	"fmt"

	"asistenku/internal/repo"
)

// Capacity moves through three ledger operations, all single
// conditional UPDATEs so two concurrent delegations can never
// overdraw a layanan:
//
//	reserve  unit_on_hold += n, guarded by the pool invariant
//	commit   unit_on_hold -= n, unit_used += n
//	release  unit_on_hold -= n
//
// unit_used + unit_on_hold <= unit_total holds before and after each.

func (e Engine) reserveUnits(ctx context.Context, tx *sql.Tx, layananID string, units int64, updatedAt string) error {
	if units <= 0 {
		return ValidationError{Field: "units", Reason: "must be positive"}
	}
	res, err := tx.ExecContext(ctx, `UPDATE layanan SET unit_on_hold = unit_on_hold + ?, updated_at = ?
WHERE id = ? AND is_active = 1 AND unit_used + unit_on_hold + ? <= unit_total`,
		units, updatedAt, layananID, units)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return e.diagnoseReserve(ctx, tx, layananID, units)
	}
	return nil
}

// diagnoseReserve explains a failed reserve: the row is missing, the
// pool is inactive, or the quota does not cover the request.
func (e Engine) diagnoseReserve(ctx context.Context, tx *sql.Tx, layananID string, units int64) error {
	l, err := e.Repo.GetLayananTx(ctx, tx, layananID)
	if err != nil {
		return err
	}
	if !l.IsActive {
		return ConflictError{Reason: "layanan " + layananID + " is inactive"}
	}
	return QuotaExceededError{
		LayananID: layananID,
		Requested: units,
		Available: l.UnitTotal - l.UnitUsed - l.UnitOnHold,
	}
}

func (e Engine) commitUnits(ctx context.Context, tx *sql.Tx, layananID string, units int64, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE layanan SET unit_on_hold = unit_on_hold - ?, unit_used = unit_used + ?, updated_at = ?
WHERE id = ? AND unit_on_hold >= ?`,
		units, units, updatedAt, layananID, units)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return e.ledgerStateError(ctx, tx, layananID, units, "commit")
	}
	return nil
}

func (e Engine) releaseUnits(ctx context.Context, tx *sql.Tx, layananID string, units int64, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE layanan SET unit_on_hold = unit_on_hold - ?, updated_at = ?
WHERE id = ? AND unit_on_hold >= ?`,
		units, updatedAt, layananID, units)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return e.ledgerStateError(ctx, tx, layananID, units, "release")
	}
	return nil
}

func (e Engine) ledgerStateError(ctx context.Context, tx *sql.Tx, layananID string, units int64, op string) error {
	l, err := e.Repo.GetLayananTx(ctx, tx, layananID)
	if err == repo.ErrNotFound {
		return repo.ErrNotFound
	}
	if err != nil {
		return err
	}
	return ConflictError{Reason: fmt.Sprintf("cannot %s %d units on layanan %s: only %d on hold", op, units, layananID, l.UnitOnHold)}
}
