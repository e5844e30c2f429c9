package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"asistenku/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// ErrStaleTask means a guarded task update matched no row: the task is
// gone or another writer moved its phase after the caller's read.
var ErrStaleTask = errors.New("task phase changed")

const layananColumns = `id,owner_client,nama,deskripsi,unit_total,unit_used,unit_on_hold,is_active,created_at,created_by,updated_at,updated_by`

func scanLayanan(scan func(dest ...any) error) (domain.Layanan, error) {
	var l domain.Layanan
	var deskripsi, updatedBy sql.NullString
	var active int
	err := scan(&l.ID, &l.OwnerClient, &l.Nama, &deskripsi, &l.UnitTotal, &l.UnitUsed, &l.UnitOnHold, &active, &l.CreatedAt, &l.CreatedBy, &l.UpdatedAt, &updatedBy)
	if err == sql.ErrNoRows {
		return l, ErrNotFound
	}
	if err != nil {
		return l, err
	}
	l.IsActive = active != 0
	if deskripsi.Valid {
		l.Deskripsi = deskripsi.String
	}
	if updatedBy.Valid {
		l.UpdatedBy = updatedBy.String
	}
	return l, nil
}

func (r Repo) InsertLayanan(ctx context.Context, tx *sql.Tx, l domain.Layanan) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO layanan(`+layananColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		l.ID, l.OwnerClient, l.Nama, nullable(l.Deskripsi), l.UnitTotal, l.UnitUsed, l.UnitOnHold, boolInt(l.IsActive),
		l.CreatedAt, l.CreatedBy, l.UpdatedAt, nullable(l.UpdatedBy))
	return err
}

func (r Repo) GetLayanan(ctx context.Context, id string) (domain.Layanan, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+layananColumns+` FROM layanan WHERE id=?`, id)
	return scanLayanan(row.Scan)
}

func (r Repo) GetLayananTx(ctx context.Context, tx *sql.Tx, id string) (domain.Layanan, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+layananColumns+` FROM layanan WHERE id=?`, id)
	return scanLayanan(row.Scan)
}

// SetLayananActive flips the archived/active flag. Archived pools reject
// new reservations but keep their accounting intact.
func (r Repo) SetLayananActive(ctx context.Context, tx *sql.Tx, id string, active bool, updatedAt, updatedBy string) error {
	res, err := tx.ExecContext(ctx, `UPDATE layanan SET is_active=?, updated_at=?, updated_by=? WHERE id=?`,
		boolInt(active), updatedAt, updatedBy, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type LayananFilters struct {
	OwnerClient string
	Principal   string // owner or shared-with
	Limit       int
}

func (r Repo) ListLayanan(ctx context.Context, f LayananFilters) ([]domain.Layanan, error) {
	var clauses []string
	var args []any
	if f.OwnerClient != "" {
		clauses = append(clauses, "owner_client=?")
		args = append(args, f.OwnerClient)
	}
	if f.Principal != "" {
		clauses = append(clauses, "(owner_client=? OR id IN (SELECT layanan_id FROM layanan_shares WHERE principal=?))")
		args = append(args, f.Principal, f.Principal)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + layananColumns + ` FROM layanan ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Layanan
	for rows.Next() {
		l, err := scanLayanan(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (r Repo) InsertLayananShare(ctx context.Context, tx *sql.Tx, layananID, principal, createdAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO layanan_shares(layanan_id, principal, created_at) VALUES (?,?,?)`,
		layananID, principal, createdAt)
	return err
}

func (r Repo) DeleteLayananShare(ctx context.Context, tx *sql.Tx, layananID, principal string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM layanan_shares WHERE layanan_id=? AND principal=?`, layananID, principal)
	return err
}

func (r Repo) ListLayananShares(ctx context.Context, layananID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT principal FROM layanan_shares WHERE layanan_id=? ORDER BY principal`, layananID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var principals []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

func (r Repo) IsLayananSharedWith(ctx context.Context, layananID, principal string) (bool, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT 1 FROM layanan_shares WHERE layanan_id=? AND principal=? LIMIT 1`, layananID, principal)
	var n int
	err := row.Scan(&n)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

const taskColumns = `id,layanan_id,owner_client,title,detail,request_type,phase,assigned_partner,kode_kamus,tipe_partner,beban_jam,jam_ke_partner,jam_perusahaan,unit_terpakai,accepted_at,last_reject_reason,rejected_by,rejected_at,created_at,created_by,updated_at,completed_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var detail, requestType sql.NullString
	var partner, kode, tipe, acceptedAt, rejectReason, rejectedBy, rejectedAt, completedAt sql.NullString
	var bebanJam, jamPartner, jamPerusahaan, unitTerpakai sql.NullInt64
	err := scan(&t.ID, &t.LayananID, &t.OwnerClient, &t.Title, &detail, &requestType, &t.Phase,
		&partner, &kode, &tipe, &bebanJam, &jamPartner, &jamPerusahaan, &unitTerpakai,
		&acceptedAt, &rejectReason, &rejectedBy, &rejectedAt, &t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &completedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if detail.Valid {
		t.Detail = detail.String
	}
	if requestType.Valid {
		t.RequestType = requestType.String
	}
	if partner.Valid {
		t.AssignedPartner = &partner.String
	}
	if kode.Valid {
		t.KodeKamus = &kode.String
	}
	if tipe.Valid {
		t.TipePartner = &tipe.String
	}
	if bebanJam.Valid {
		t.BebanJam = &bebanJam.Int64
	}
	if jamPartner.Valid {
		t.JamKePartner = &jamPartner.Int64
	}
	if jamPerusahaan.Valid {
		t.JamPerusahaan = &jamPerusahaan.Int64
	}
	if unitTerpakai.Valid {
		t.UnitTerpakai = &unitTerpakai.Int64
	}
	if acceptedAt.Valid {
		t.AcceptedAt = &acceptedAt.String
	}
	if rejectReason.Valid {
		t.LastRejectReason = &rejectReason.String
	}
	if rejectedBy.Valid {
		t.RejectedBy = &rejectedBy.String
	}
	if rejectedAt.Valid {
		t.RejectedAt = &rejectedAt.String
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.String
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.LayananID, t.OwnerClient, t.Title, nullable(t.Detail), nullable(t.RequestType), t.Phase,
		nullableStringPtr(t.AssignedPartner), nullableStringPtr(t.KodeKamus), nullableStringPtr(t.TipePartner),
		nullableInt64Ptr(t.BebanJam), nullableInt64Ptr(t.JamKePartner), nullableInt64Ptr(t.JamPerusahaan), nullableInt64Ptr(t.UnitTerpakai),
		nullableStringPtr(t.AcceptedAt), nullableStringPtr(t.LastRejectReason), nullableStringPtr(t.RejectedBy), nullableStringPtr(t.RejectedAt),
		t.CreatedAt, t.CreatedBy, t.UpdatedAt, nullableStringPtr(t.CompletedAt))
	return err
}

// UpdateTask writes the task row guarded by the phase the caller read
// it in. The guard makes the write the serialization point for phase
// transitions; zero matched rows come back as ErrStaleTask and the
// caller diagnoses the cause inside the same transaction.
func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task, fromPhase string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET phase=?, assigned_partner=?, kode_kamus=?, tipe_partner=?, beban_jam=?, jam_ke_partner=?, jam_perusahaan=?, unit_terpakai=?, accepted_at=?, last_reject_reason=?, rejected_by=?, rejected_at=?, updated_at=?, completed_at=? WHERE id=? AND phase=?`,
		t.Phase, nullableStringPtr(t.AssignedPartner), nullableStringPtr(t.KodeKamus), nullableStringPtr(t.TipePartner),
		nullableInt64Ptr(t.BebanJam), nullableInt64Ptr(t.JamKePartner), nullableInt64Ptr(t.JamPerusahaan), nullableInt64Ptr(t.UnitTerpakai),
		nullableStringPtr(t.AcceptedAt), nullableStringPtr(t.LastRejectReason), nullableStringPtr(t.RejectedBy), nullableStringPtr(t.RejectedAt),
		t.UpdatedAt, nullableStringPtr(t.CompletedAt), t.ID, fromPhase)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrStaleTask
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	return scanTask(row.Scan)
}

type TaskFilters struct {
	LayananID       string
	OwnerClient     string
	AssignedPartner string
	Phase           string
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.LayananID != "" {
		clauses = append(clauses, "layanan_id=?")
		args = append(args, f.LayananID)
	}
	if f.OwnerClient != "" {
		clauses = append(clauses, "owner_client=?")
		args = append(args, f.OwnerClient)
	}
	if f.AssignedPartner != "" {
		clauses = append(clauses, "assigned_partner=?")
		args = append(args, f.AssignedPartner)
	}
	if f.Phase != "" {
		clauses = append(clauses, "phase=?")
		args = append(args, f.Phase)
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) CountTasksByPhase(ctx context.Context, layananID string) (map[string]int, error) {
	query := `SELECT phase, count(*) FROM tasks`
	var args []any
	if layananID != "" {
		query += ` WHERE layanan_id=?`
		args = append(args, layananID)
	}
	query += ` GROUP BY phase`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var phase string
		var count int
		if err := rows.Scan(&phase, &count); err != nil {
			return nil, err
		}
		res[phase] = count
	}
	return res, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, limit int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if entityKind != "" {
		clauses = append(clauses, "entity_kind=?")
		args = append(args, entityKind)
	}
	if entityID != "" {
		clauses = append(clauses, "entity_id=?")
		args = append(args, entityID)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns events with IDs greater than the cursor in ascending order.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,ts,type,entity_kind,entity_id,actor_id,payload_json FROM events WHERE id>? ORDER BY id ASC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, query, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func scanEvent(scan func(dest ...any) error) (domain.Event, error) {
	var e domain.Event
	var entityID, payload sql.NullString
	err := scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &entityID, &e.ActorID, &payload)
	if err != nil {
		return e, err
	}
	if entityID.Valid {
		e.EntityID = entityID.String
	}
	if payload.Valid {
		e.Payload = payload.String
	}
	return e, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	if *v == "" {
		return nil
	}
	return *v
}

func nullableInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
