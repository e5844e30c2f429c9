package auth

import (
	"context"
	"database/sql"
	"fmt"

	"asistenku/internal/domain"
	"asistenku/internal/repo"
)

// UnauthorizedError indicates the acting user lacks the role or
// relationship an operation requires.
type UnauthorizedError struct {
	Actor  string
	Reason string
}

func (e UnauthorizedError) Error() string {
	return fmt.Sprintf("actor %s not authorized: %s", e.Actor, e.Reason)
}

// Service resolves actor IDs to registered users and enforces the role
// gates on operations. Role data lives in the users table.
type Service struct {
	DB *sql.DB
}

// Actor loads the user for an actor ID. Unknown actors are unauthorized
// rather than not found so the error maps to 403 at the API layer.
func (s Service) Actor(ctx context.Context, actorID string) (domain.User, error) {
	if actorID == "" {
		return domain.User{}, UnauthorizedError{Actor: actorID, Reason: "actor_id required"}
	}
	r := repo.Repo{DB: s.DB}
	u, err := r.GetUser(ctx, actorID)
	if err == repo.ErrNotFound {
		return domain.User{}, UnauthorizedError{Actor: actorID, Reason: "unknown actor"}
	}
	if err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// ActiveActor is Actor plus a status gate: suspended and blacklisted
// users cannot act.
func (s Service) ActiveActor(ctx context.Context, actorID string) (domain.User, error) {
	u, err := s.Actor(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Status == domain.StatusSuspended || u.Status == domain.StatusBlacklisted {
		return domain.User{}, UnauthorizedError{Actor: actorID, Reason: "account " + u.Status}
	}
	return u, nil
}

// IsInternal reports whether a user belongs to the internal org or is
// the superadmin. Superadmin passes every internal gate.
func IsInternal(u domain.User) bool {
	return u.Role == domain.RoleInternal || u.Role == domain.RoleSuperadmin
}

// RequireInternal gates the operator-only operations.
func (s Service) RequireInternal(ctx context.Context, actorID string) (domain.User, error) {
	u, err := s.ActiveActor(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if !IsInternal(u) {
		return domain.User{}, UnauthorizedError{Actor: actorID, Reason: "internal role required"}
	}
	return u, nil
}

// RequireInternalRole gates operations reserved for a specific internal
// sub-role, e.g. admin-only catalog maintenance.
func (s Service) RequireInternalRole(ctx context.Context, actorID string, roles ...string) (domain.User, error) {
	u, err := s.RequireInternal(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Role == domain.RoleSuperadmin {
		return u, nil
	}
	for _, role := range roles {
		if u.InternalRole == role {
			return u, nil
		}
	}
	return domain.User{}, UnauthorizedError{Actor: actorID, Reason: "internal role " + u.InternalRole + " not permitted"}
}

// RequireRole gates operations on the actor's top-level role.
func (s Service) RequireRole(ctx context.Context, actorID, role string) (domain.User, error) {
	u, err := s.ActiveActor(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Role != role && u.Role != domain.RoleSuperadmin {
		return domain.User{}, UnauthorizedError{Actor: actorID, Reason: "role " + role + " required"}
	}
	return u, nil
}

// RequireSuperadmin gates the superadmin-only operations. No bypass.
func (s Service) RequireSuperadmin(ctx context.Context, actorID string) (domain.User, error) {
	u, err := s.ActiveActor(ctx, actorID)
	if err != nil {
		return domain.User{}, err
	}
	if u.Role != domain.RoleSuperadmin {
		return domain.User{}, UnauthorizedError{Actor: actorID, Reason: "superadmin required"}
	}
	return u, nil
}
