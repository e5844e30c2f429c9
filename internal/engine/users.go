package engine

import (
	"context"

	"github.com/google/uuid"

	"asistenku/internal/domain"
	"asistenku/internal/engine/auth"
	"asistenku/internal/events"
	"asistenku/internal/repo"
)

// RegisterOptions are parameters for creating an account. Registration
// always lands in the pending status; an admin activates later.
type RegisterOptions struct {
	ID       string
	Name     string
	Email    string
	Whatsapp string
	Company  string
	Keahlian string
	Domisili string
}

func (e Engine) registerUser(ctx context.Context, opts RegisterOptions, role, internalRole, partnerLevel, actorID string) (domain.User, error) {
	if opts.Name == "" {
		return domain.User{}, ValidationError{Field: "name", Reason: "required"}
	}
	now := e.nowRFC3339()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	u := domain.User{
		ID:           id,
		Role:         role,
		Name:         opts.Name,
		Email:        opts.Email,
		Whatsapp:     opts.Whatsapp,
		Company:      opts.Company,
		Keahlian:     opts.Keahlian,
		Domisili:     opts.Domisili,
		InternalRole: internalRole,
		PartnerLevel: partnerLevel,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if actorID == "" {
		actorID = id
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertUserTx(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.registered", "user", u.ID, actorID, events.EventPayload{"role": role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// RegisterClient creates a pending client account. Open registration.
func (e Engine) RegisterClient(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	return e.registerUser(ctx, opts, domain.RoleClient, "", "", "")
}

// RegisterPartner creates a pending partner account at a given tier.
func (e Engine) RegisterPartner(ctx context.Context, opts RegisterOptions, partnerLevel string) (domain.User, error) {
	if !domain.ValidTier(partnerLevel) {
		return domain.User{}, ValidationError{Field: "partner_level", Reason: "unknown tier " + partnerLevel}
	}
	return e.registerUser(ctx, opts, domain.RolePartner, "", partnerLevel, "")
}

// RegisterInternal creates an internal staff account. Superadmin only.
func (e Engine) RegisterInternal(ctx context.Context, opts RegisterOptions, internalRole, actorID string) (domain.User, error) {
	if _, err := e.Auth.RequireSuperadmin(ctx, actorID); err != nil {
		return domain.User{}, err
	}
	switch internalRole {
	case domain.InternalRoleAdmin, domain.InternalRoleFinance, domain.InternalRoleConcierge, domain.InternalRoleAsistenmu:
	default:
		return domain.User{}, ValidationError{Field: "internal_role", Reason: "unknown internal role " + internalRole}
	}
	return e.registerUser(ctx, opts, domain.RoleInternal, internalRole, "", actorID)
}

// ClaimSuperadmin creates the superadmin account. Works exactly once,
// while no superadmin exists.
func (e Engine) ClaimSuperadmin(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	exists, err := e.Repo.SuperadminExists(ctx)
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, ConflictError{Reason: "superadmin already claimed"}
	}
	if opts.Name == "" {
		return domain.User{}, ValidationError{Field: "name", Reason: "required"}
	}
	now := e.nowRFC3339()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	u := domain.User{
		ID:        id,
		Role:      domain.RoleSuperadmin,
		Name:      opts.Name,
		Email:     opts.Email,
		Whatsapp:  opts.Whatsapp,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	// Guard against a concurrent claim racing past the check above.
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role=?`, domain.RoleSuperadmin).Scan(&n); err != nil {
		return domain.User{}, err
	}
	if n > 0 {
		return domain.User{}, ConflictError{Reason: "superadmin already claimed"}
	}
	if err := e.Repo.InsertUserTx(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.superadmin_claimed", "user", u.ID, u.ID, nil); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// SetUserStatus moves an account between pending, active, suspended
// and blacklisted. Admin or superadmin only.
func (e Engine) SetUserStatus(ctx context.Context, userID, status, actorID string) (domain.User, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin); err != nil {
		return domain.User{}, err
	}
	switch status {
	case domain.StatusPending, domain.StatusActive, domain.StatusSuspended, domain.StatusBlacklisted:
	default:
		return domain.User{}, ValidationError{Field: "status", Reason: "unknown status " + status}
	}
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Status == status {
		return domain.User{}, ConflictError{Reason: "user already " + status}
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateUserStatusTx(ctx, tx, userID, status, now); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.status_changed", "user", userID, actorID, events.EventPayload{"from": u.Status, "to": status}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	u.Status = status
	u.UpdatedAt = now
	return u, nil
}

// SetPartnerLevel changes a partner's tier. Affects future delegations
// only; delegated tasks keep the tier captured at delegation time.
func (e Engine) SetPartnerLevel(ctx context.Context, partnerID, level, actorID string) (domain.User, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin); err != nil {
		return domain.User{}, err
	}
	if !domain.ValidTier(level) {
		return domain.User{}, ValidationError{Field: "partner_level", Reason: "unknown tier " + level}
	}
	u, err := e.Repo.GetUser(ctx, partnerID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Role != domain.RolePartner {
		return domain.User{}, ValidationError{Field: "partner_id", Reason: partnerID + " is not a partner"}
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpdateUserPartnerLevelTx(ctx, tx, partnerID, level, now); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.partner_level_changed", "user", partnerID, actorID, events.EventPayload{"from": u.PartnerLevel, "to": level}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	u.PartnerLevel = level
	u.UpdatedAt = now
	return u, nil
}

// GetUser returns one account. Internal staff see everyone; other
// actors only themselves.
func (e Engine) GetUser(ctx context.Context, userID, actorID string) (domain.User, error) {
	actor, err := e.Auth.ActiveActor(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if !auth.IsInternal(actor) && actor.ID != userID {
		return domain.User{}, auth.UnauthorizedError{Actor: actorID, Reason: "user not visible"}
	}
	return e.Repo.GetUser(ctx, userID)
}

// ListUsers returns accounts filtered by role and status. Internal only.
func (e Engine) ListUsers(ctx context.Context, actorID string, f repo.UserFilters) ([]domain.User, error) {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return nil, err
	}
	return e.Repo.ListUsers(ctx, f)
}
