package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"asistenku/internal/domain"
)

// Catalog rows are never deleted: an upsert over an existing kode first
// copies the current row into the matching history table, then
// overwrites in place. Soft-delete is an upsert with aktif=false.

func (r Repo) UpsertKamusTx(ctx context.Context, tx *sql.Tx, k domain.KamusPekerjaan, archivedAt string) error {
	tiers, err := json.Marshal(k.TipePartnerBoleh)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kamus_pekerjaan_history(kode,kategori_pekerjaan,jenis_pekerjaan,jam_standar,tipe_partner_boleh,aktif,updated_at,updated_by,archived_at)
SELECT kode,kategori_pekerjaan,jenis_pekerjaan,jam_standar,tipe_partner_boleh,aktif,updated_at,updated_by,? FROM kamus_pekerjaan WHERE kode=?`, archivedAt, k.Kode); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO kamus_pekerjaan(kode,kategori_pekerjaan,jenis_pekerjaan,jam_standar,tipe_partner_boleh,aktif,updated_at,updated_by) VALUES (?,?,?,?,?,?,?,?)
ON CONFLICT(kode) DO UPDATE SET kategori_pekerjaan=excluded.kategori_pekerjaan, jenis_pekerjaan=excluded.jenis_pekerjaan, jam_standar=excluded.jam_standar, tipe_partner_boleh=excluded.tipe_partner_boleh, aktif=excluded.aktif, updated_at=excluded.updated_at, updated_by=excluded.updated_by`,
		k.Kode, k.KategoriPekerjaan, k.JenisPekerjaan, k.JamStandar, string(tiers), boolInt(k.Aktif), k.UpdatedAt, nullable(k.UpdatedBy))
	return err
}

func scanKamus(scan func(dest ...any) error) (domain.KamusPekerjaan, error) {
	var k domain.KamusPekerjaan
	var tiers string
	var aktif int
	var updatedBy sql.NullString
	err := scan(&k.Kode, &k.KategoriPekerjaan, &k.JenisPekerjaan, &k.JamStandar, &tiers, &aktif, &k.UpdatedAt, &updatedBy)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	if err != nil {
		return k, err
	}
	k.Aktif = aktif != 0
	if updatedBy.Valid {
		k.UpdatedBy = updatedBy.String
	}
	if err := json.Unmarshal([]byte(tiers), &k.TipePartnerBoleh); err != nil {
		return k, err
	}
	return k, nil
}

func (r Repo) GetKamus(ctx context.Context, kode string) (domain.KamusPekerjaan, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT kode,kategori_pekerjaan,jenis_pekerjaan,jam_standar,tipe_partner_boleh,aktif,updated_at,updated_by FROM kamus_pekerjaan WHERE kode=?`, kode)
	return scanKamus(row.Scan)
}

func (r Repo) ListKamus(ctx context.Context, includeInactive bool) ([]domain.KamusPekerjaan, error) {
	query := `SELECT kode,kategori_pekerjaan,jenis_pekerjaan,jam_standar,tipe_partner_boleh,aktif,updated_at,updated_by FROM kamus_pekerjaan`
	if !includeInactive {
		query += ` WHERE aktif=1`
	}
	query += ` ORDER BY kode`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.KamusPekerjaan
	for rows.Next() {
		k, err := scanKamus(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

func (r Repo) UpsertAturanTx(ctx context.Context, tx *sql.Tx, a domain.AturanBeban, archivedAt string) error {
	if _, err := tx.ExecContext(ctx, `INSERT INTO aturan_beban_history(kode,tipe_partner,jam_min,jam_max,pola_beban,nilai,aktif,updated_at,updated_by,archived_at)
SELECT kode,tipe_partner,jam_min,jam_max,pola_beban,nilai,aktif,updated_at,updated_by,? FROM aturan_beban WHERE kode=?`, archivedAt, a.Kode); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `INSERT INTO aturan_beban(kode,tipe_partner,jam_min,jam_max,pola_beban,nilai,aktif,updated_at,updated_by) VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(kode) DO UPDATE SET tipe_partner=excluded.tipe_partner, jam_min=excluded.jam_min, jam_max=excluded.jam_max, pola_beban=excluded.pola_beban, nilai=excluded.nilai, aktif=excluded.aktif, updated_at=excluded.updated_at, updated_by=excluded.updated_by`,
		a.Kode, a.TipePartner, a.JamMin, a.JamMax, a.PolaBeban, a.Nilai, boolInt(a.Aktif), a.UpdatedAt, nullable(a.UpdatedBy))
	return err
}

func scanAturan(scan func(dest ...any) error) (domain.AturanBeban, error) {
	var a domain.AturanBeban
	var aktif int
	var updatedBy sql.NullString
	err := scan(&a.Kode, &a.TipePartner, &a.JamMin, &a.JamMax, &a.PolaBeban, &a.Nilai, &aktif, &a.UpdatedAt, &updatedBy)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	a.Aktif = aktif != 0
	if updatedBy.Valid {
		a.UpdatedBy = updatedBy.String
	}
	return a, nil
}

func (r Repo) GetAturan(ctx context.Context, kode string) (domain.AturanBeban, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT kode,tipe_partner,jam_min,jam_max,pola_beban,nilai,aktif,updated_at,updated_by FROM aturan_beban WHERE kode=?`, kode)
	return scanAturan(row.Scan)
}

func (r Repo) ListAturan(ctx context.Context, includeInactive bool) ([]domain.AturanBeban, error) {
	query := `SELECT kode,tipe_partner,jam_min,jam_max,pola_beban,nilai,aktif,updated_at,updated_by FROM aturan_beban`
	if !includeInactive {
		query += ` WHERE aktif=1`
	}
	query += ` ORDER BY kode`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AturanBeban
	for rows.Next() {
		a, err := scanAturan(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ActiveAturanForTier returns the active rules for one tier ordered so
// the lowest jam_min (ties by kode) comes first.
func (r Repo) ActiveAturanForTier(ctx context.Context, tipePartner string) ([]domain.AturanBeban, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kode,tipe_partner,jam_min,jam_max,pola_beban,nilai,aktif,updated_at,updated_by FROM aturan_beban WHERE aktif=1 AND tipe_partner=? ORDER BY jam_min ASC, kode ASC`, tipePartner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.AturanBeban
	for rows.Next() {
		a, err := scanAturan(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

func (r Repo) UpsertSkillTx(ctx context.Context, tx *sql.Tx, s domain.SkillVerified) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO skill_verified(kode,nama,kategori,aktif,updated_at,updated_by) VALUES (?,?,?,?,?,?)
ON CONFLICT(kode) DO UPDATE SET nama=excluded.nama, kategori=excluded.kategori, aktif=excluded.aktif, updated_at=excluded.updated_at, updated_by=excluded.updated_by`,
		s.Kode, s.Nama, nullable(s.Kategori), boolInt(s.Aktif), s.UpdatedAt, nullable(s.UpdatedBy))
	return err
}

func (r Repo) GetSkill(ctx context.Context, kode string) (domain.SkillVerified, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT kode,nama,kategori,aktif,updated_at,updated_by FROM skill_verified WHERE kode=?`, kode)
	return scanSkill(row.Scan)
}

func scanSkill(scan func(dest ...any) error) (domain.SkillVerified, error) {
	var s domain.SkillVerified
	var kategori, updatedBy sql.NullString
	var aktif int
	err := scan(&s.Kode, &s.Nama, &kategori, &aktif, &s.UpdatedAt, &updatedBy)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.Aktif = aktif != 0
	if kategori.Valid {
		s.Kategori = kategori.String
	}
	if updatedBy.Valid {
		s.UpdatedBy = updatedBy.String
	}
	return s, nil
}

func (r Repo) ListSkills(ctx context.Context, includeInactive bool) ([]domain.SkillVerified, error) {
	query := `SELECT kode,nama,kategori,aktif,updated_at,updated_by FROM skill_verified`
	if !includeInactive {
		query += ` WHERE aktif=1`
	}
	query += ` ORDER BY kode`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.SkillVerified
	for rows.Next() {
		s, err := scanSkill(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// ReplacePartnerSkillsTx swaps a partner's verified skill set wholesale.
func (r Repo) ReplacePartnerSkillsTx(ctx context.Context, tx *sql.Tx, partnerID string, kodes []string, createdAt string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM partner_skills WHERE partner_id=?`, partnerID); err != nil {
		return err
	}
	for _, kode := range kodes {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO partner_skills(partner_id, kode_skill, created_at) VALUES (?,?,?)`, partnerID, kode, createdAt); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) ListPartnerSkills(ctx context.Context, partnerID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT kode_skill FROM partner_skills WHERE partner_id=? ORDER BY kode_skill`, partnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var kodes []string
	for rows.Next() {
		var kode string
		if err := rows.Scan(&kode); err != nil {
			return nil, err
		}
		kodes = append(kodes, kode)
	}
	return kodes, rows.Err()
}

func (r Repo) GetKonstanta(ctx context.Context) (domain.KonstantaUnitClient, error) {
	var k domain.KonstantaUnitClient
	err := r.DB.QueryRowContext(ctx, `SELECT unit_ke_jam, updated_at FROM konstanta_unit_client WHERE id=1`).Scan(&k.UnitKeJam, &k.UpdatedAt)
	if err == sql.ErrNoRows {
		return k, ErrNotFound
	}
	return k, err
}

func (r Repo) SetKonstantaTx(ctx context.Context, tx *sql.Tx, unitKeJam int64, updatedAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO konstanta_unit_client(id, unit_ke_jam, updated_at) VALUES (1,?,?)
ON CONFLICT(id) DO UPDATE SET unit_ke_jam=excluded.unit_ke_jam, updated_at=excluded.updated_at`, unitKeJam, updatedAt)
	return err
}

func (r Repo) GetTarif(ctx context.Context, tipePartner string) (domain.TarifPartner, error) {
	var t domain.TarifPartner
	err := r.DB.QueryRowContext(ctx, `SELECT tipe_partner, rate_per_jam, updated_at FROM tarif_partner WHERE tipe_partner=?`, tipePartner).
		Scan(&t.TipePartner, &t.RatePerJam, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) ListTarif(ctx context.Context) ([]domain.TarifPartner, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT tipe_partner, rate_per_jam, updated_at FROM tarif_partner ORDER BY rate_per_jam`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TarifPartner
	for rows.Next() {
		var t domain.TarifPartner
		if err := rows.Scan(&t.TipePartner, &t.RatePerJam, &t.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) SetTarifTx(ctx context.Context, tx *sql.Tx, t domain.TarifPartner) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tarif_partner(tipe_partner, rate_per_jam, updated_at) VALUES (?,?,?)
ON CONFLICT(tipe_partner) DO UPDATE SET rate_per_jam=excluded.rate_per_jam, updated_at=excluded.updated_at`,
		t.TipePartner, t.RatePerJam, t.UpdatedAt)
	return err
}

func (r Repo) PushMasterDataTx(ctx context.Context, tx *sql.Tx, m domain.MasterData) error {
	key := strings.TrimSpace(m.Key)
	_, err := tx.ExecContext(ctx, `INSERT INTO master_data(key, data_json, updated_at, updated_by) VALUES (?,?,?,?)
ON CONFLICT(key) DO UPDATE SET data_json=excluded.data_json, updated_at=excluded.updated_at, updated_by=excluded.updated_by`,
		key, m.DataJSON, m.UpdatedAt, nullable(m.UpdatedBy))
	return err
}

func (r Repo) GetMasterData(ctx context.Context, key string) (domain.MasterData, error) {
	var m domain.MasterData
	var updatedBy sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT key, data_json, updated_at, updated_by FROM master_data WHERE key=?`, key).
		Scan(&m.Key, &m.DataJSON, &m.UpdatedAt, &updatedBy)
	if err == sql.ErrNoRows {
		return m, ErrNotFound
	}
	if err != nil {
		return m, err
	}
	if updatedBy.Valid {
		m.UpdatedBy = updatedBy.String
	}
	return m, nil
}

func (r Repo) ListMasterDataKeys(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key FROM master_data ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
