package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"asistenku/internal/db"
	"asistenku/internal/domain"
	"asistenku/internal/engine"
	"asistenku/internal/engine/auth"
	"asistenku/internal/migrate"
	"asistenku/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func seedUser(t *testing.T, env testEnv, u domain.User) {
	t.Helper()
	if u.Status == "" {
		u.Status = domain.StatusActive
	}
	u.CreatedAt = "2024-01-01T00:00:00Z"
	u.UpdatedAt = u.CreatedAt
	tx, err := env.Engine.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := env.Engine.Repo.InsertUserTx(env.Ctx, tx, u); err != nil {
		t.Fatalf("seed user %s: %v", u.ID, err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// seedWorld sets up the actors, a layanan and the calculator catalogs
// most task tests need: admin, two clients, a junior and a senior
// partner, layanan l1 with 50 units owned by c1, kamus WEB with 5
// standard hours and workload rules for both tiers. The migration
// seeds the unit constant at 3 company hours per client unit.
func seedWorld(t *testing.T, env testEnv) {
	t.Helper()
	seedUser(t, env, domain.User{ID: "root", Role: domain.RoleSuperadmin, Name: "Root"})
	seedUser(t, env, domain.User{ID: "adm", Role: domain.RoleInternal, InternalRole: domain.InternalRoleAdmin, Name: "Admin"})
	seedUser(t, env, domain.User{ID: "c1", Role: domain.RoleClient, Name: "Client One"})
	seedUser(t, env, domain.User{ID: "c2", Role: domain.RoleClient, Name: "Client Two"})
	seedUser(t, env, domain.User{ID: "p1", Role: domain.RolePartner, PartnerLevel: domain.TierJunior, Name: "Partner One"})
	seedUser(t, env, domain.User{ID: "p2", Role: domain.RolePartner, PartnerLevel: domain.TierSenior, Name: "Partner Two"})

	e := env.Engine
	if _, err := e.CreateLayanan(env.Ctx, engine.LayananCreateOptions{
		ID: "l1", OwnerClient: "c1", Nama: "Paket 50", UnitTotal: 50, ActorID: "adm",
	}); err != nil {
		t.Fatalf("create layanan: %v", err)
	}
	if _, err := e.UpsertKamus(env.Ctx, engine.KamusUpsertOptions{
		Kode: "WEB", KategoriPekerjaan: "digital", JenisPekerjaan: "website maintenance",
		JamStandar: 5, TipePartnerBoleh: []string{domain.TierJunior, domain.TierSenior},
		Aktif: true, ActorID: "adm",
	}); err != nil {
		t.Fatalf("upsert kamus: %v", err)
	}
	rules := []engine.AturanUpsertOptions{
		{Kode: "J1", TipePartner: domain.TierJunior, JamMin: 0, JamMax: 8, PolaBeban: domain.PolaTambahJamTetap, Nilai: 2},
		{Kode: "J2", TipePartner: domain.TierJunior, JamMin: 8, JamMax: 100, PolaBeban: domain.PolaTambahPerJam, Nilai: 1},
		{Kode: "S1", TipePartner: domain.TierSenior, JamMin: 0, JamMax: 100, PolaBeban: domain.PolaTambahJamTetap, Nilai: 0},
	}
	for _, r := range rules {
		r.Aktif = true
		r.ActorID = "adm"
		if _, err := e.UpsertAturan(env.Ctx, r); err != nil {
			t.Fatalf("upsert aturan %s: %v", r.Kode, err)
		}
	}
}

func mustLayanan(t *testing.T, env testEnv, id string) domain.Layanan {
	t.Helper()
	l, err := env.Engine.Repo.GetLayanan(env.Ctx, id)
	if err != nil {
		t.Fatalf("get layanan %s: %v", id, err)
	}
	return l
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	task, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Perbaiki landing page", RequestType: "WEB", ActorID: "adm",
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if task.Phase != domain.PhaseNewRequest {
		t.Fatalf("phase = %s, want %s", task.Phase, domain.PhaseNewRequest)
	}
	if task.OwnerClient != "c1" {
		t.Fatalf("owner = %s, want c1", task.OwnerClient)
	}

	// Junior tier, 4 estimated hours: 5 standard + 2 flat extra = 7
	// partner hours, ceil(7/3) = 3 client units on hold.
	task, err = e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", BebanJam: 4, ActorID: "adm"})
	if err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if task.Phase != domain.PhaseInProgress {
		t.Fatalf("phase = %s, want %s", task.Phase, domain.PhaseInProgress)
	}
	if task.JamKePartner == nil || *task.JamKePartner != 7 {
		t.Fatalf("jam_ke_partner = %v, want 7", task.JamKePartner)
	}
	if task.UnitTerpakai == nil || *task.UnitTerpakai != 3 {
		t.Fatalf("unit_terpakai = %v, want 3", task.UnitTerpakai)
	}
	l := mustLayanan(t, env, "l1")
	if l.UnitOnHold != 3 || l.UnitUsed != 0 {
		t.Fatalf("ledger after delegate: on_hold=%d used=%d, want 3/0", l.UnitOnHold, l.UnitUsed)
	}

	if _, err := e.PartnerAccept(env.Ctx, "t1", "p1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := e.PartnerAccept(env.Ctx, "t1", "p1"); err == nil {
		t.Fatal("second accept should conflict")
	}

	if _, err := e.MoveToQa(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("qa: %v", err)
	}
	if _, err := e.MoveToReviewClient(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("client review: %v", err)
	}
	task, err = e.ClientMarkSelesai(env.Ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("selesai: %v", err)
	}
	if task.Phase != domain.PhaseDone || task.CompletedAt == nil {
		t.Fatalf("task not finalized: phase=%s completed_at=%v", task.Phase, task.CompletedAt)
	}
	l = mustLayanan(t, env, "l1")
	if l.UnitUsed != 3 || l.UnitOnHold != 0 {
		t.Fatalf("ledger after selesai: used=%d on_hold=%d, want 3/0", l.UnitUsed, l.UnitOnHold)
	}

	// Repeating an applied transition is a conflict, not an invalid
	// edge.
	_, err = e.ClientMarkSelesai(env.Ctx, "t1", "c1")
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("repeat selesai: got %v, want ConflictError", err)
	}
}

func TestPartnerRejectReleasesReservation(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Riset kompetitor", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", BebanJam: 4, ActorID: "adm"}); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	if _, err := e.PartnerReject(env.Ctx, "t1", "", "p1"); err == nil {
		t.Fatal("reject without reason should fail")
	}
	if _, err := e.PartnerReject(env.Ctx, "t1", "overbooked", "p2"); err == nil {
		t.Fatal("reject by a different partner should fail")
	}
	task, err := e.PartnerReject(env.Ctx, "t1", "overbooked", "p1")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if task.Phase != domain.PhasePartnerDeclined {
		t.Fatalf("phase = %s, want %s", task.Phase, domain.PhasePartnerDeclined)
	}
	if task.AssignedPartner != nil {
		t.Fatalf("assignment should be cleared, got %v", *task.AssignedPartner)
	}
	if task.LastRejectReason == nil || *task.LastRejectReason != "overbooked" {
		t.Fatalf("reason = %v, want overbooked", task.LastRejectReason)
	}
	l := mustLayanan(t, env, "l1")
	if l.UnitOnHold != 0 || l.UnitUsed != 0 {
		t.Fatalf("reservation not released: on_hold=%d used=%d", l.UnitOnHold, l.UnitUsed)
	}

	// Re-delegation to the senior partner runs a fresh computation:
	// 5 standard hours plus nothing, ceil(5/3) = 2 units.
	task, err = e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p2", BebanJam: 5, ActorID: "adm"})
	if err != nil {
		t.Fatalf("re-delegate: %v", err)
	}
	if task.TipePartner == nil || *task.TipePartner != domain.TierSenior {
		t.Fatalf("tipe_partner = %v, want senior", task.TipePartner)
	}
	if task.UnitTerpakai == nil || *task.UnitTerpakai != 2 {
		t.Fatalf("unit_terpakai = %v, want 2", task.UnitTerpakai)
	}
	l = mustLayanan(t, env, "l1")
	if l.UnitOnHold != 2 {
		t.Fatalf("on_hold = %d, want 2", l.UnitOnHold)
	}
}

func TestDelegateQuotaExceeded(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateLayanan(env.Ctx, engine.LayananCreateOptions{
		ID: "l-small", OwnerClient: "c1", Nama: "Paket 1", UnitTotal: 1, ActorID: "adm",
	}); err != nil {
		t.Fatalf("create layanan: %v", err)
	}
	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l-small", Title: "Butuh 3 unit", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	_, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", BebanJam: 4, ActorID: "adm"})
	var qe engine.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("got %v, want QuotaExceededError", err)
	}
	if qe.Requested != 3 || qe.Available != 1 {
		t.Fatalf("requested=%d available=%d, want 3/1", qe.Requested, qe.Available)
	}
	// No partial application: the task and ledger stay untouched.
	task, err := e.Repo.GetTask(env.Ctx, "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.Phase != domain.PhaseNewRequest || task.AssignedPartner != nil {
		t.Fatalf("task mutated after failed delegate: phase=%s", task.Phase)
	}
	l := mustLayanan(t, env, "l-small")
	if l.UnitOnHold != 0 || l.UnitUsed != 0 {
		t.Fatalf("ledger mutated: on_hold=%d used=%d", l.UnitOnHold, l.UnitUsed)
	}
}

func TestDelegateRequiresWorkload(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Tanpa estimasi", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	_, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", ActorID: "adm"})
	var ve engine.ValidationError
	if !errors.As(err, &ve) || ve.Field != "beban_jam" {
		t.Fatalf("got %v, want beban_jam validation error", err)
	}
}

// TestConcurrentDelegationReservesOnce drives a rival delegation to
// completion in the window between the first delegation's phase check
// and its transaction. The clock hook is the last step before the
// transaction opens, which makes the interleaving deterministic. The
// guarded write must hand the slow delegation a conflict and roll its
// reservation back.
func TestConcurrentDelegationReservesOnce(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Diperebutkan", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	rivalEngine := engine.New(e.DB)
	rivalEngine.Now = e.Now
	var rival domain.Task
	var rivalErr error
	fired := false
	e.Now = func() time.Time {
		if !fired {
			fired = true
			rival, rivalErr = rivalEngine.Delegate(env.Ctx, engine.DelegateOptions{
				TaskID: "t1", PartnerID: "p1", BebanJam: 4, ActorID: "adm",
			})
		}
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	_, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p2", BebanJam: 5, ActorID: "adm"})
	if rivalErr != nil {
		t.Fatalf("first delegation: %v", rivalErr)
	}
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("second delegation: got %v, want ConflictError", err)
	}

	// Exactly one reservation survives.
	l := mustLayanan(t, env, "l1")
	if rival.UnitTerpakai == nil || l.UnitOnHold != *rival.UnitTerpakai {
		t.Fatalf("on_hold = %d, want %v", l.UnitOnHold, rival.UnitTerpakai)
	}
	task, err := e.Repo.GetTask(env.Ctx, "t1")
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if task.AssignedPartner == nil || *task.AssignedPartner != "p1" {
		t.Fatalf("assigned = %v, want p1", task.AssignedPartner)
	}
}

// A client revision landing between the sign-off's phase check and its
// transaction must abort the sign-off, including the unit commit that
// ran inside the same transaction.
func TestSelesaiRaceWithRevision(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Hampir selesai", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", BebanJam: 4, ActorID: "adm"}); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if _, err := e.MoveToQa(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("qa: %v", err)
	}
	if _, err := e.MoveToReviewClient(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("client review: %v", err)
	}

	rivalEngine := engine.New(e.DB)
	rivalEngine.Now = e.Now
	var rivalErr error
	fired := false
	e.Now = func() time.Time {
		if !fired {
			fired = true
			_, rivalErr = rivalEngine.RequestRevisiClient(env.Ctx, "t1", "ubah warna", "c1")
		}
		return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	_, err := e.ClientMarkSelesai(env.Ctx, "t1", "c1")
	if rivalErr != nil {
		t.Fatalf("revision: %v", rivalErr)
	}
	var it engine.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("selesai: got %v, want InvalidTransitionError", err)
	}
	if it.From != domain.PhaseRevision || it.To != domain.PhaseDone {
		t.Fatalf("edge = %s -> %s", it.From, it.To)
	}
	l := mustLayanan(t, env, "l1")
	if l.UnitOnHold != 3 || l.UnitUsed != 0 {
		t.Fatalf("ledger: on_hold=%d used=%d, want 3/0", l.UnitOnHold, l.UnitUsed)
	}
}

func TestCancelOnlyBeforeDelegation(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Batalkan saya", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, err := e.CancelTask(env.Ctx, "t1", "c2"); err == nil {
		t.Fatal("non-owner cancel should fail")
	}
	task, err := e.CancelTask(env.Ctx, "t1", "c1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if task.Phase != domain.PhaseClientCancelled {
		t.Fatalf("phase = %s, want %s", task.Phase, domain.PhaseClientCancelled)
	}

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t2", LayananID: "l1", Title: "Sudah didelegasikan", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t2", PartnerID: "p1", BebanJam: 4, ActorID: "adm"}); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	_, err = e.CancelTask(env.Ctx, "t2", "c1")
	var it engine.InvalidTransitionError
	if !errors.As(err, &it) {
		t.Fatalf("cancel after delegate: got %v, want InvalidTransitionError", err)
	}
}

func TestRevisionKeepsReservation(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Revisi dua kali", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", BebanJam: 4, ActorID: "adm"}); err != nil {
		t.Fatalf("delegate: %v", err)
	}
	if _, err := e.MoveToQa(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("qa: %v", err)
	}
	if _, err := e.MoveToReviewClient(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("client review: %v", err)
	}

	if _, err := e.RequestRevisiClient(env.Ctx, "t1", "", "c1"); err == nil {
		t.Fatal("revision without reason should fail")
	}
	task, err := e.RequestRevisiClient(env.Ctx, "t1", "warna salah", "c1")
	if err != nil {
		t.Fatalf("revision: %v", err)
	}
	if task.Phase != domain.PhaseRevision {
		t.Fatalf("phase = %s, want %s", task.Phase, domain.PhaseRevision)
	}
	l := mustLayanan(t, env, "l1")
	if l.UnitOnHold != 3 {
		t.Fatalf("reservation dropped during revision: on_hold=%d", l.UnitOnHold)
	}

	// Resuming from revision keeps the original breakdown; delegation
	// on a revision-phase task is rejected.
	if _, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p2", BebanJam: 4, ActorID: "adm"}); err == nil {
		t.Fatal("delegate from revision should fail")
	}
	task, err = e.BackToProgress(env.Ctx, "t1", "adm")
	if err != nil {
		t.Fatalf("back to progress: %v", err)
	}
	if task.UnitTerpakai == nil || *task.UnitTerpakai != 3 {
		t.Fatalf("breakdown changed on resume: unit_terpakai=%v", task.UnitTerpakai)
	}
	if task.AssignedPartner == nil || *task.AssignedPartner != "p1" {
		t.Fatalf("assignment changed on resume: %v", task.AssignedPartner)
	}

	if _, err := e.MoveToQa(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("qa after revision: %v", err)
	}
	if _, err := e.MoveToReviewClient(env.Ctx, "t1", "adm"); err != nil {
		t.Fatalf("client review after revision: %v", err)
	}
	if _, err := e.ClientMarkSelesai(env.Ctx, "t1", "c1"); err != nil {
		t.Fatalf("selesai: %v", err)
	}
	l = mustLayanan(t, env, "l1")
	if l.UnitUsed != 3 || l.UnitOnHold != 0 {
		t.Fatalf("ledger after selesai: used=%d on_hold=%d", l.UnitUsed, l.UnitOnHold)
	}
}

func TestRoleGates(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	var ue auth.UnauthorizedError
	_, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{LayananID: "l1", Title: "x", ActorID: "p1"})
	if !errors.As(err, &ue) {
		t.Fatalf("partner creating task: got %v, want UnauthorizedError", err)
	}
	_, err = e.CreateTask(env.Ctx, engine.TaskCreateOptions{LayananID: "l1", Title: "x", ActorID: "ghost"})
	if !errors.As(err, &ue) {
		t.Fatalf("unknown actor: got %v, want UnauthorizedError", err)
	}

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Gated", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	_, err = e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", ActorID: "c1"})
	if !errors.As(err, &ue) {
		t.Fatalf("client delegating: got %v, want UnauthorizedError", err)
	}

	// Suspended actors cannot act even with the right role.
	if _, err := e.SetUserStatus(env.Ctx, "c1", domain.StatusSuspended, "adm"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	_, err = e.CancelTask(env.Ctx, "t1", "c1")
	if !errors.As(err, &ue) {
		t.Fatalf("suspended actor: got %v, want UnauthorizedError", err)
	}
}

func TestInvalidTransitions(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Masih baru", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}

	var it engine.InvalidTransitionError
	if _, err := e.MoveToQa(env.Ctx, "t1", "adm"); !errors.As(err, &it) {
		t.Fatalf("qa from new-request: got %v, want InvalidTransitionError", err)
	}
	if it.From != domain.PhaseNewRequest || it.To != domain.PhaseQualityReview {
		t.Fatalf("edge = %s -> %s", it.From, it.To)
	}
	if _, err := e.MoveToReviewClient(env.Ctx, "t1", "adm"); !errors.As(err, &it) {
		t.Fatalf("client review from new-request: got %v, want InvalidTransitionError", err)
	}
	if _, err := e.BackToProgress(env.Ctx, "t1", "adm"); !errors.As(err, &it) {
		t.Fatalf("back to progress from new-request: got %v, want InvalidTransitionError", err)
	}
}

func TestTaskVisibility(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{
		ID: "t1", LayananID: "l1", Title: "Rahasia", RequestType: "WEB", ActorID: "adm",
	}); err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := e.Delegate(env.Ctx, engine.DelegateOptions{TaskID: "t1", PartnerID: "p1", BebanJam: 4, ActorID: "adm"}); err != nil {
		t.Fatalf("delegate: %v", err)
	}

	for _, actor := range []string{"adm", "c1", "p1", "root"} {
		if _, err := e.GetTask(env.Ctx, "t1", actor); err != nil {
			t.Fatalf("actor %s should see the task: %v", actor, err)
		}
	}
	var ue auth.UnauthorizedError
	if _, err := e.GetTask(env.Ctx, "t1", "c2"); !errors.As(err, &ue) {
		t.Fatal("unrelated client should not see the task")
	}
	if _, err := e.GetTask(env.Ctx, "t1", "p2"); !errors.As(err, &ue) {
		t.Fatal("unassigned partner should not see the task")
	}

	mine, err := e.ListMyTasks(env.Ctx, "p1", "", 0)
	if err != nil {
		t.Fatalf("list partner tasks: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != "t1" {
		t.Fatalf("partner lane = %v, want just t1", mine)
	}
	none, err := e.ListMyTasks(env.Ctx, "c2", "", 0)
	if err != nil {
		t.Fatalf("list client tasks: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("unrelated client lane should be empty, got %d", len(none))
	}
}

func TestCreateTaskOnInactiveLayanan(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.SetLayananActive(env.Ctx, "l1", false, "adm"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := e.CreateTask(env.Ctx, engine.TaskCreateOptions{LayananID: "l1", Title: "x", ActorID: "adm"})
	var ce engine.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("got %v, want ConflictError", err)
	}
	if _, err := e.SetLayananActive(env.Ctx, "l1", false, "adm"); !errors.As(err, &ce) {
		t.Fatalf("repeat deactivate: got %v, want ConflictError", err)
	}
}

func TestTopUpLayanan(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	if _, err := e.TopUpLayanan(env.Ctx, "l1", 10, "adm"); err != nil {
		t.Fatalf("topup: %v", err)
	}
	l := mustLayanan(t, env, "l1")
	if l.UnitTotal != 60 {
		t.Fatalf("unit_total = %d, want 60", l.UnitTotal)
	}
	if _, err := e.TopUpLayanan(env.Ctx, "l1", 0, "adm"); err == nil {
		t.Fatal("zero topup should fail")
	}
	if _, err := e.TopUpLayanan(env.Ctx, "missing", 5, "adm"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("topup on missing layanan: got %v, want ErrNotFound", err)
	}
}
