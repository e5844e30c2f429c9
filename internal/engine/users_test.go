package engine_test

import (
	"errors"
	"testing"

	"asistenku/internal/domain"
	"asistenku/internal/engine"
	"asistenku/internal/engine/auth"
	"asistenku/internal/repo"
)

func TestClaimSuperadminOnce(t *testing.T) {
	env := newTestEnv(t)
	e := env.Engine

	u, err := e.ClaimSuperadmin(env.Ctx, engine.RegisterOptions{ID: "root", Name: "Root"})
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if u.Role != domain.RoleSuperadmin || u.Status != domain.StatusActive {
		t.Fatalf("claimed user = %+v", u)
	}

	_, err = e.ClaimSuperadmin(env.Ctx, engine.RegisterOptions{Name: "Pretender"})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("second claim: got %v, want ConflictError", err)
	}
}

func TestRegistrationLandsPending(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	c, err := e.RegisterClient(env.Ctx, engine.RegisterOptions{Name: "Budi", Email: "budi@example.com"})
	if err != nil {
		t.Fatalf("register client: %v", err)
	}
	if c.Status != domain.StatusPending || c.ID == "" {
		t.Fatalf("client = %+v", c)
	}

	// Pending accounts cannot act until an admin activates them.
	var ue auth.UnauthorizedError
	if _, err := e.ListMyTasks(env.Ctx, c.ID, "", 0); !errors.As(err, &ue) {
		t.Fatalf("pending actor: got %v, want UnauthorizedError", err)
	}
	if _, err := e.SetUserStatus(env.Ctx, c.ID, domain.StatusActive, "adm"); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if _, err := e.ListMyTasks(env.Ctx, c.ID, "", 0); err != nil {
		t.Fatalf("active client: %v", err)
	}

	var ve engine.ValidationError
	if _, err := e.RegisterPartner(env.Ctx, engine.RegisterOptions{Name: "Sari"}, "wizard"); !errors.As(err, &ve) {
		t.Fatalf("bad tier: got %v, want ValidationError", err)
	}
	if _, err := e.RegisterClient(env.Ctx, engine.RegisterOptions{}); !errors.As(err, &ve) {
		t.Fatalf("missing name: got %v, want ValidationError", err)
	}
}

func TestRegisterInternalRequiresSuperadmin(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	var ue auth.UnauthorizedError
	if _, err := e.RegisterInternal(env.Ctx, engine.RegisterOptions{Name: "Fin"}, domain.InternalRoleFinance, "adm"); !errors.As(err, &ue) {
		t.Fatalf("admin registering staff: got %v, want UnauthorizedError", err)
	}
	staff, err := e.RegisterInternal(env.Ctx, engine.RegisterOptions{ID: "fin", Name: "Fin"}, domain.InternalRoleFinance, "root")
	if err != nil {
		t.Fatalf("register internal: %v", err)
	}
	if staff.InternalRole != domain.InternalRoleFinance || staff.Status != domain.StatusPending {
		t.Fatalf("staff = %+v", staff)
	}
	var ve engine.ValidationError
	if _, err := e.RegisterInternal(env.Ctx, engine.RegisterOptions{Name: "X"}, "janitor", "root"); !errors.As(err, &ve) {
		t.Fatalf("bad internal role: got %v, want ValidationError", err)
	}
}

func TestSetUserStatusAndLevel(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	var ce engine.ConflictError
	if _, err := e.SetUserStatus(env.Ctx, "p1", domain.StatusActive, "adm"); !errors.As(err, &ce) {
		t.Fatalf("same status: got %v, want ConflictError", err)
	}
	var ve engine.ValidationError
	if _, err := e.SetUserStatus(env.Ctx, "p1", "frozen", "adm"); !errors.As(err, &ve) {
		t.Fatalf("unknown status: got %v, want ValidationError", err)
	}
	if _, err := e.SetUserStatus(env.Ctx, "nobody", domain.StatusActive, "adm"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing user: got %v, want ErrNotFound", err)
	}

	u, err := e.SetPartnerLevel(env.Ctx, "p1", domain.TierExpert, "adm")
	if err != nil {
		t.Fatalf("set level: %v", err)
	}
	if u.PartnerLevel != domain.TierExpert {
		t.Fatalf("level = %s, want expert", u.PartnerLevel)
	}
	if _, err := e.SetPartnerLevel(env.Ctx, "c1", domain.TierSenior, "adm"); !errors.As(err, &ve) {
		t.Fatalf("level on client: got %v, want ValidationError", err)
	}
}

func TestUserVisibility(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.GetUser(env.Ctx, "p1", "adm"); err != nil {
		t.Fatalf("internal reading partner: %v", err)
	}
	if _, err := e.GetUser(env.Ctx, "c1", "c1"); err != nil {
		t.Fatalf("self read: %v", err)
	}
	var ue auth.UnauthorizedError
	if _, err := e.GetUser(env.Ctx, "p1", "c1"); !errors.As(err, &ue) {
		t.Fatalf("client reading partner: got %v, want UnauthorizedError", err)
	}
	if _, err := e.ListUsers(env.Ctx, "c1", repo.UserFilters{}); !errors.As(err, &ue) {
		t.Fatalf("client listing users: got %v, want UnauthorizedError", err)
	}

	partners, err := e.ListUsers(env.Ctx, "adm", repo.UserFilters{Role: domain.RolePartner})
	if err != nil {
		t.Fatalf("list partners: %v", err)
	}
	if len(partners) != 2 {
		t.Fatalf("partners = %d, want 2", len(partners))
	}
}
