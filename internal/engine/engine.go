package engine

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"asistenku/internal/domain"
	"asistenku/internal/engine/auth"
	"asistenku/internal/events"
	"asistenku/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Auth   auth.Service
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Auth:   auth.Service{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowRFC3339() string {
	return e.now().UTC().Format(time.RFC3339)
}

var taskTransitions = map[string][]string{
	domain.PhaseNewRequest:      {domain.PhaseInProgress, domain.PhaseClientCancelled},
	domain.PhaseInProgress:      {domain.PhasePartnerDeclined, domain.PhaseQualityReview},
	domain.PhaseQualityReview:   {domain.PhaseClientReview},
	domain.PhaseClientReview:    {domain.PhaseDone, domain.PhaseRevision},
	domain.PhaseRevision:        {domain.PhaseInProgress},
	domain.PhasePartnerDeclined: {domain.PhaseInProgress},
}

// ensureTaskTransition checks one phase edge. Repeating an applied
// transition is a conflict, not an error in the machine itself.
func ensureTaskTransition(from, to string) error {
	if from == to {
		return ConflictError{Reason: "task already in phase " + to}
	}
	for _, t := range taskTransitions[from] {
		if t == to {
			return nil
		}
	}
	return InvalidTransitionError{From: from, To: to}
}

// updateTask writes t guarded by the phase it was read in. The guard
// misses when the row is gone or another writer moved the phase after
// our read; the re-read inside the same transaction tells which, and
// the failed write rolls back any ledger effect alongside it.
func (e Engine) updateTask(ctx context.Context, tx *sql.Tx, t domain.Task, from string) error {
	err := e.Repo.UpdateTask(ctx, tx, t, from)
	if err != repo.ErrStaleTask {
		return err
	}
	cur, err := e.Repo.GetTaskTx(ctx, tx, t.ID)
	if err != nil {
		return err
	}
	if err := ensureTaskTransition(cur.Phase, t.Phase); err != nil {
		return err
	}
	return ConflictError{Reason: "task " + t.ID + " changed concurrently"}
}

// TaskCreateOptions are parameters for creating a task.
type TaskCreateOptions struct {
	ID          string
	LayananID   string
	Title       string
	Detail      string
	RequestType string
	ActorID     string
}

// CreateTask opens a work request against a layanan in the initial
// phase. Internal staff create tasks on the client's behalf; the owner
// is taken from the layanan.
func (e Engine) CreateTask(ctx context.Context, opts TaskCreateOptions) (domain.Task, error) {
	if _, err := e.Auth.RequireInternal(ctx, opts.ActorID); err != nil {
		return domain.Task{}, err
	}
	if opts.Title == "" {
		return domain.Task{}, ValidationError{Field: "title", Reason: "required"}
	}
	if opts.LayananID == "" {
		return domain.Task{}, ValidationError{Field: "layanan_id", Reason: "required"}
	}
	l, err := e.Repo.GetLayanan(ctx, opts.LayananID)
	if err != nil {
		return domain.Task{}, err
	}
	if !l.IsActive {
		return domain.Task{}, ConflictError{Reason: "layanan " + l.ID + " is inactive"}
	}
	now := e.nowRFC3339()
	id := opts.ID
	if id == "" {
		id = uuid.NewString()
	}
	t := domain.Task{
		ID:          id,
		LayananID:   l.ID,
		OwnerClient: l.OwnerClient,
		Title:       opts.Title,
		Detail:      opts.Detail,
		RequestType: opts.RequestType,
		Phase:       domain.PhaseNewRequest,
		CreatedAt:   now,
		CreatedBy:   opts.ActorID,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.created", "task", t.ID, opts.ActorID, events.EventPayload{
		"layanan_id": t.LayananID,
		"title":      t.Title,
		"phase":      t.Phase,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// DelegateOptions are parameters for assigning a task to a partner.
type DelegateOptions struct {
	TaskID    string
	PartnerID string
	KodeKamus string
	BebanJam  int64
	ActorID   string
}

// Delegate moves a task into progress: the hour and unit breakdown is
// computed for the chosen partner's tier and the client units are
// reserved on the layanan, all in one transaction. Re-delegation from
// the declined phase runs the full computation again since the partner
// and tier may differ.
func (e Engine) Delegate(ctx context.Context, opts DelegateOptions) (domain.Task, error) {
	if _, err := e.Auth.RequireInternal(ctx, opts.ActorID); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, opts.TaskID)
	if err != nil {
		return domain.Task{}, err
	}
	if err := ensureTaskTransition(t.Phase, domain.PhaseInProgress); err != nil {
		return domain.Task{}, err
	}
	if t.Phase == domain.PhaseRevision {
		return domain.Task{}, InvalidTransitionError{From: t.Phase, To: domain.PhaseInProgress}
	}
	partner, err := e.Repo.GetUser(ctx, opts.PartnerID)
	if err == repo.ErrNotFound {
		return domain.Task{}, ValidationError{Field: "partner_id", Reason: "unknown partner " + opts.PartnerID}
	}
	if err != nil {
		return domain.Task{}, err
	}
	if partner.Role != domain.RolePartner {
		return domain.Task{}, ValidationError{Field: "partner_id", Reason: opts.PartnerID + " is not a partner"}
	}
	if partner.Status != domain.StatusActive {
		return domain.Task{}, ConflictError{Reason: "partner " + opts.PartnerID + " is " + partner.Status}
	}
	kode := opts.KodeKamus
	if kode == "" {
		kode = t.RequestType
	}
	if kode == "" {
		return domain.Task{}, ValidationError{Field: "kode_kamus", Reason: "required"}
	}
	if opts.BebanJam <= 0 {
		return domain.Task{}, ValidationError{Field: "beban_jam", Reason: "must be positive"}
	}
	breakdown, err := e.kalkulasi(ctx, kode, partner.PartnerLevel, opts.BebanJam)
	if err != nil {
		return domain.Task{}, err
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.reserveUnits(ctx, tx, t.LayananID, breakdown.UnitClient, now); err != nil {
		return domain.Task{}, err
	}
	from := t.Phase
	t.Phase = domain.PhaseInProgress
	t.AssignedPartner = &partner.ID
	t.KodeKamus = &breakdown.KodeKamus
	t.TipePartner = &breakdown.TipePartner
	t.BebanJam = &breakdown.BebanJam
	t.JamKePartner = &breakdown.JamKePartner
	t.JamPerusahaan = &breakdown.JamPerusahaan
	t.UnitTerpakai = &breakdown.UnitClient
	t.AcceptedAt = nil
	t.UpdatedAt = now
	if err := e.updateTask(ctx, tx, t, from); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.delegated", "task", t.ID, opts.ActorID, events.EventPayload{
		"partner_id":     partner.ID,
		"tipe_partner":   breakdown.TipePartner,
		"kode_kamus":     breakdown.KodeKamus,
		"beban_jam":      breakdown.BebanJam,
		"jam_ke_partner": breakdown.JamKePartner,
		"unit_terpakai":  breakdown.UnitClient,
	}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// PartnerAccept records the assigned partner's acknowledgement. The
// phase does not move; acknowledging twice is a conflict.
func (e Engine) PartnerAccept(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	actor, err := e.Auth.RequireRole(ctx, actorID, domain.RolePartner)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.AssignedPartner == nil || *t.AssignedPartner != actor.ID {
		return domain.Task{}, auth.UnauthorizedError{Actor: actorID, Reason: "not the assigned partner"}
	}
	if t.Phase != domain.PhaseInProgress {
		return domain.Task{}, InvalidTransitionError{From: t.Phase, To: domain.PhaseInProgress}
	}
	if t.AcceptedAt != nil {
		return domain.Task{}, ConflictError{Reason: "task already accepted"}
	}
	now := e.nowRFC3339()
	t.AcceptedAt = &now
	t.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.updateTask(ctx, tx, t, t.Phase); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.accepted", "task", t.ID, actorID, nil); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// PartnerReject declines an assignment. The reservation goes back to
// available capacity and the task becomes eligible for re-delegation.
// The computed breakdown stays on the task until the next delegation
// supersedes it.
func (e Engine) PartnerReject(ctx context.Context, taskID, reason, actorID string) (domain.Task, error) {
	actor, err := e.Auth.RequireRole(ctx, actorID, domain.RolePartner)
	if err != nil {
		return domain.Task{}, err
	}
	if reason == "" {
		return domain.Task{}, ValidationError{Field: "reason", Reason: "required"}
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.AssignedPartner == nil || *t.AssignedPartner != actor.ID {
		return domain.Task{}, auth.UnauthorizedError{Actor: actorID, Reason: "not the assigned partner"}
	}
	if err := ensureTaskTransition(t.Phase, domain.PhasePartnerDeclined); err != nil {
		return domain.Task{}, err
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if t.UnitTerpakai != nil && *t.UnitTerpakai > 0 {
		if err := e.releaseUnits(ctx, tx, t.LayananID, *t.UnitTerpakai, now); err != nil {
			return domain.Task{}, err
		}
	}
	rejectedBy := actor.ID
	from := t.Phase
	t.Phase = domain.PhasePartnerDeclined
	t.AssignedPartner = nil
	t.AcceptedAt = nil
	t.LastRejectReason = &reason
	t.RejectedBy = &rejectedBy
	t.RejectedAt = &now
	t.UpdatedAt = now
	if err := e.updateTask(ctx, tx, t, from); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.rejected", "task", t.ID, actorID, events.EventPayload{"reason": reason}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// movePhase applies a simple phase edge with no ledger effect.
func (e Engine) movePhase(ctx context.Context, t domain.Task, to, evtType, actorID string, payload events.EventPayload) (domain.Task, error) {
	if err := ensureTaskTransition(t.Phase, to); err != nil {
		return domain.Task{}, err
	}
	now := e.nowRFC3339()
	from := t.Phase
	t.Phase = to
	t.UpdatedAt = now

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if err := e.updateTask(ctx, tx, t, from); err != nil {
		return domain.Task{}, err
	}
	if payload == nil {
		payload = events.EventPayload{}
	}
	payload["from"] = from
	payload["to"] = to
	if err := e.Events.Append(ctx, tx, evtType, "task", t.ID, actorID, payload); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// MoveToQa sends finished partner work into internal quality review.
func (e Engine) MoveToQa(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	return e.movePhase(ctx, t, domain.PhaseQualityReview, "task.qa", actorID, nil)
}

// MoveToReviewClient hands reviewed work to the client for sign-off.
func (e Engine) MoveToReviewClient(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	return e.movePhase(ctx, t, domain.PhaseClientReview, "task.client_review", actorID, nil)
}

// ClientMarkSelesai is the client's acceptance. The reserved units are
// committed as used and the task is final.
func (e Engine) ClientMarkSelesai(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	actor, err := e.Auth.RequireRole(ctx, actorID, domain.RoleClient)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.OwnerClient != actor.ID {
		return domain.Task{}, auth.UnauthorizedError{Actor: actorID, Reason: "not the task owner"}
	}
	if err := ensureTaskTransition(t.Phase, domain.PhaseDone); err != nil {
		return domain.Task{}, err
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()

	if t.UnitTerpakai != nil && *t.UnitTerpakai > 0 {
		if err := e.commitUnits(ctx, tx, t.LayananID, *t.UnitTerpakai, now); err != nil {
			return domain.Task{}, err
		}
	}
	from := t.Phase
	t.Phase = domain.PhaseDone
	t.CompletedAt = &now
	t.UpdatedAt = now
	if err := e.updateTask(ctx, tx, t, from); err != nil {
		return domain.Task{}, err
	}
	if err := e.Events.Append(ctx, tx, "task.done", "task", t.ID, actorID, events.EventPayload{"unit_terpakai": t.UnitTerpakai}); err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// RequestRevisiClient sends reviewed work back for rework at the
// client's request. The reservation stays in place.
func (e Engine) RequestRevisiClient(ctx context.Context, taskID, reason, actorID string) (domain.Task, error) {
	actor, err := e.Auth.RequireRole(ctx, actorID, domain.RoleClient)
	if err != nil {
		return domain.Task{}, err
	}
	if reason == "" {
		return domain.Task{}, ValidationError{Field: "reason", Reason: "required"}
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.OwnerClient != actor.ID {
		return domain.Task{}, auth.UnauthorizedError{Actor: actorID, Reason: "not the task owner"}
	}
	return e.movePhase(ctx, t, domain.PhaseRevision, "task.revision_requested", actorID, events.EventPayload{"reason": reason, "requested_by": "client"})
}

// RequestRevisiInternal is the internal-side revision request on work
// sitting in client review.
func (e Engine) RequestRevisiInternal(ctx context.Context, taskID, reason, actorID string) (domain.Task, error) {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return domain.Task{}, err
	}
	if reason == "" {
		return domain.Task{}, ValidationError{Field: "reason", Reason: "required"}
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	return e.movePhase(ctx, t, domain.PhaseRevision, "task.revision_requested", actorID, events.EventPayload{"reason": reason, "requested_by": "internal"})
}

// BackToProgress resumes a task from revision. The original
// reservation is still held so no recalculation happens.
func (e Engine) BackToProgress(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.Phase == domain.PhasePartnerDeclined {
		return domain.Task{}, InvalidTransitionError{From: t.Phase, To: domain.PhaseInProgress}
	}
	return e.movePhase(ctx, t, domain.PhaseInProgress, "task.back_to_progress", actorID, nil)
}

// CancelTask withdraws an undelegated request. Nothing is reserved
// yet, so there is no ledger effect.
func (e Engine) CancelTask(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	actor, err := e.Auth.RequireRole(ctx, actorID, domain.RoleClient)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if t.OwnerClient != actor.ID {
		return domain.Task{}, auth.UnauthorizedError{Actor: actorID, Reason: "not the task owner"}
	}
	if t.AssignedPartner != nil {
		return domain.Task{}, InvalidTransitionError{From: t.Phase, To: domain.PhaseClientCancelled}
	}
	return e.movePhase(ctx, t, domain.PhaseClientCancelled, "task.cancelled", actorID, nil)
}

// GetTask returns a task visible to the actor: its owner, its assigned
// partner, or internal staff.
func (e Engine) GetTask(ctx context.Context, taskID, actorID string) (domain.Task, error) {
	actor, err := e.Auth.ActiveActor(ctx, actorID)
	if err != nil {
		return domain.Task{}, err
	}
	t, err := e.Repo.GetTask(ctx, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	if auth.IsInternal(actor) || t.OwnerClient == actor.ID {
		return t, nil
	}
	if t.AssignedPartner != nil && *t.AssignedPartner == actor.ID {
		return t, nil
	}
	return domain.Task{}, auth.UnauthorizedError{Actor: actorID, Reason: "task not visible"}
}

// ListMyTasks returns the tasks in the actor's lane: owned tasks for a
// client, assigned tasks for a partner, everything for internal staff.
func (e Engine) ListMyTasks(ctx context.Context, actorID, phase string, limit int) ([]domain.Task, error) {
	actor, err := e.Auth.ActiveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	f := repo.TaskFilters{Phase: phase, Limit: limit}
	switch {
	case actor.Role == domain.RoleClient:
		f.OwnerClient = actor.ID
	case actor.Role == domain.RolePartner:
		f.AssignedPartner = actor.ID
	}
	return e.Repo.ListTasks(ctx, f)
}
