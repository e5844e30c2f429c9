package engine

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"asistenku/internal/domain"
	"asistenku/internal/events"
)

// newKatalogKode mints a code for upserts that omit one. Codes are
// stable once issued; callers get the generated value back on the
// returned row.
func newKatalogKode(prefix string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + id[:8]
}

// KamusUpsertOptions are parameters for writing one job benchmark.
type KamusUpsertOptions struct {
	Kode              string
	KategoriPekerjaan string
	JenisPekerjaan    string
	JamStandar        int64
	TipePartnerBoleh  []string
	Aktif             bool
	ActorID           string
}

// UpsertKamus writes a job benchmark by kode. Existing rows are
// archived to history before being overwritten; deactivation is an
// upsert with aktif=false.
func (e Engine) UpsertKamus(ctx context.Context, opts KamusUpsertOptions) (domain.KamusPekerjaan, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, opts.ActorID, domain.InternalRoleAdmin); err != nil {
		return domain.KamusPekerjaan{}, err
	}
	if opts.Kode == "" {
		opts.Kode = newKatalogKode("kp")
	}
	if opts.KategoriPekerjaan == "" {
		return domain.KamusPekerjaan{}, ValidationError{Field: "kategori_pekerjaan", Reason: "required"}
	}
	if opts.JenisPekerjaan == "" {
		return domain.KamusPekerjaan{}, ValidationError{Field: "jenis_pekerjaan", Reason: "required"}
	}
	if opts.JamStandar < 0 {
		return domain.KamusPekerjaan{}, ValidationError{Field: "jam_standar", Reason: "must not be negative"}
	}
	if len(opts.TipePartnerBoleh) == 0 {
		return domain.KamusPekerjaan{}, ValidationError{Field: "tipe_partner_boleh", Reason: "at least one tier required"}
	}
	for _, t := range opts.TipePartnerBoleh {
		if !domain.ValidTier(t) {
			return domain.KamusPekerjaan{}, ValidationError{Field: "tipe_partner_boleh", Reason: "unknown tier " + t}
		}
	}
	now := e.nowRFC3339()
	k := domain.KamusPekerjaan{
		Kode:              opts.Kode,
		KategoriPekerjaan: opts.KategoriPekerjaan,
		JenisPekerjaan:    opts.JenisPekerjaan,
		JamStandar:        opts.JamStandar,
		TipePartnerBoleh:  opts.TipePartnerBoleh,
		Aktif:             opts.Aktif,
		UpdatedAt:         now,
		UpdatedBy:         opts.ActorID,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.KamusPekerjaan{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpsertKamusTx(ctx, tx, k, now); err != nil {
		return domain.KamusPekerjaan{}, err
	}
	if err := e.Events.Append(ctx, tx, "katalog.kamus.upserted", "kamus", k.Kode, opts.ActorID, events.EventPayload{
		"jam_standar": k.JamStandar,
		"aktif":       k.Aktif,
	}); err != nil {
		return domain.KamusPekerjaan{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.KamusPekerjaan{}, err
	}
	return k, nil
}

// AturanUpsertOptions are parameters for writing one workload rule.
type AturanUpsertOptions struct {
	Kode        string
	TipePartner string
	JamMin      int64
	JamMax      int64
	PolaBeban   string
	Nilai       int64
	Aktif       bool
	ActorID     string
}

// UpsertAturan writes a workload rule by kode, archiving any previous
// revision to history.
func (e Engine) UpsertAturan(ctx context.Context, opts AturanUpsertOptions) (domain.AturanBeban, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, opts.ActorID, domain.InternalRoleAdmin); err != nil {
		return domain.AturanBeban{}, err
	}
	if opts.Kode == "" {
		opts.Kode = newKatalogKode("ab")
	}
	if !domain.ValidTier(opts.TipePartner) {
		return domain.AturanBeban{}, ValidationError{Field: "tipe_partner", Reason: "unknown tier " + opts.TipePartner}
	}
	if opts.JamMin < 0 || opts.JamMax <= opts.JamMin {
		return domain.AturanBeban{}, ValidationError{Field: "jam_max", Reason: "band must satisfy 0 <= jam_min < jam_max"}
	}
	if opts.PolaBeban != domain.PolaTambahJamTetap && opts.PolaBeban != domain.PolaTambahPerJam {
		return domain.AturanBeban{}, ValidationError{Field: "pola_beban", Reason: "unknown pattern " + opts.PolaBeban}
	}
	if opts.Nilai < 0 {
		return domain.AturanBeban{}, ValidationError{Field: "nilai", Reason: "must not be negative"}
	}
	now := e.nowRFC3339()
	a := domain.AturanBeban{
		Kode:        opts.Kode,
		TipePartner: opts.TipePartner,
		JamMin:      opts.JamMin,
		JamMax:      opts.JamMax,
		PolaBeban:   opts.PolaBeban,
		Nilai:       opts.Nilai,
		Aktif:       opts.Aktif,
		UpdatedAt:   now,
		UpdatedBy:   opts.ActorID,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.AturanBeban{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpsertAturanTx(ctx, tx, a, now); err != nil {
		return domain.AturanBeban{}, err
	}
	if err := e.Events.Append(ctx, tx, "katalog.aturan.upserted", "aturan", a.Kode, opts.ActorID, events.EventPayload{
		"tipe_partner": a.TipePartner,
		"jam_min":      a.JamMin,
		"jam_max":      a.JamMax,
		"aktif":        a.Aktif,
	}); err != nil {
		return domain.AturanBeban{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.AturanBeban{}, err
	}
	return a, nil
}

// SetKonstanta replaces the hours-per-unit factor. Takes effect for
// subsequent calculations only; existing reservations keep the units
// computed at delegation time.
func (e Engine) SetKonstanta(ctx context.Context, unitKeJam int64, actorID string) (domain.KonstantaUnitClient, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin); err != nil {
		return domain.KonstantaUnitClient{}, err
	}
	if unitKeJam <= 0 {
		return domain.KonstantaUnitClient{}, ValidationError{Field: "unit_ke_jam", Reason: "must be positive"}
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.KonstantaUnitClient{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.SetKonstantaTx(ctx, tx, unitKeJam, now); err != nil {
		return domain.KonstantaUnitClient{}, err
	}
	if err := e.Events.Append(ctx, tx, "katalog.konstanta.updated", "konstanta", "unit_ke_jam", actorID, events.EventPayload{"unit_ke_jam": unitKeJam}); err != nil {
		return domain.KonstantaUnitClient{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.KonstantaUnitClient{}, err
	}
	return domain.KonstantaUnitClient{UnitKeJam: unitKeJam, UpdatedAt: now}, nil
}

// SkillUpsertOptions are parameters for one verified-skill entry.
type SkillUpsertOptions struct {
	Kode     string
	Nama     string
	Kategori string
	Aktif    bool
	ActorID  string
}

func (e Engine) UpsertSkill(ctx context.Context, opts SkillUpsertOptions) (domain.SkillVerified, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, opts.ActorID, domain.InternalRoleAdmin); err != nil {
		return domain.SkillVerified{}, err
	}
	if opts.Kode == "" {
		opts.Kode = newKatalogKode("sk")
	}
	if opts.Nama == "" {
		return domain.SkillVerified{}, ValidationError{Field: "nama", Reason: "required"}
	}
	now := e.nowRFC3339()
	s := domain.SkillVerified{
		Kode:      opts.Kode,
		Nama:      opts.Nama,
		Kategori:  opts.Kategori,
		Aktif:     opts.Aktif,
		UpdatedAt: now,
		UpdatedBy: opts.ActorID,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.SkillVerified{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.UpsertSkillTx(ctx, tx, s); err != nil {
		return domain.SkillVerified{}, err
	}
	if err := e.Events.Append(ctx, tx, "katalog.skill.upserted", "skill", s.Kode, opts.ActorID, events.EventPayload{"aktif": s.Aktif}); err != nil {
		return domain.SkillVerified{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.SkillVerified{}, err
	}
	return s, nil
}

// SetPartnerSkills replaces a partner's verified skill set. Every kode
// must exist and be active in the skill catalog.
func (e Engine) SetPartnerSkills(ctx context.Context, partnerID string, kodes []string, actorID string) error {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return err
	}
	partner, err := e.Repo.GetUser(ctx, partnerID)
	if err != nil {
		return err
	}
	if partner.Role != domain.RolePartner {
		return ValidationError{Field: "partner_id", Reason: partnerID + " is not a partner"}
	}
	for _, kode := range kodes {
		s, err := e.Repo.GetSkill(ctx, kode)
		if err != nil {
			return err
		}
		if !s.Aktif {
			return ValidationError{Field: "skills", Reason: "skill " + kode + " is inactive"}
		}
	}
	now := e.nowRFC3339()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.ReplacePartnerSkillsTx(ctx, tx, partnerID, kodes, now); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "partner.skills.updated", "user", partnerID, actorID, events.EventPayload{"skills": kodes}); err != nil {
		return err
	}
	return tx.Commit()
}

// SetTarif sets the hourly rate for one partner tier.
func (e Engine) SetTarif(ctx context.Context, tipePartner string, ratePerJam int64, actorID string) (domain.TarifPartner, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin, domain.InternalRoleFinance); err != nil {
		return domain.TarifPartner{}, err
	}
	if !domain.ValidTier(tipePartner) {
		return domain.TarifPartner{}, ValidationError{Field: "tipe_partner", Reason: "unknown tier " + tipePartner}
	}
	if ratePerJam <= 0 {
		return domain.TarifPartner{}, ValidationError{Field: "rate_per_jam", Reason: "must be positive"}
	}
	now := e.nowRFC3339()
	t := domain.TarifPartner{TipePartner: tipePartner, RatePerJam: ratePerJam, UpdatedAt: now}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.TarifPartner{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.SetTarifTx(ctx, tx, t); err != nil {
		return domain.TarifPartner{}, err
	}
	if err := e.Events.Append(ctx, tx, "katalog.tarif.updated", "tarif", tipePartner, actorID, events.EventPayload{"rate_per_jam": ratePerJam}); err != nil {
		return domain.TarifPartner{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.TarifPartner{}, err
	}
	return t, nil
}

// PushMasterData stores an opaque JSON document under a key, for
// reference data that has no dedicated table.
func (e Engine) PushMasterData(ctx context.Context, key, dataJSON, actorID string) (domain.MasterData, error) {
	if _, err := e.Auth.RequireInternalRole(ctx, actorID, domain.InternalRoleAdmin); err != nil {
		return domain.MasterData{}, err
	}
	if key == "" {
		return domain.MasterData{}, ValidationError{Field: "key", Reason: "required"}
	}
	if dataJSON == "" {
		return domain.MasterData{}, ValidationError{Field: "data_json", Reason: "required"}
	}
	now := e.nowRFC3339()
	m := domain.MasterData{Key: key, DataJSON: dataJSON, UpdatedAt: now, UpdatedBy: actorID}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.MasterData{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.PushMasterDataTx(ctx, tx, m); err != nil {
		return domain.MasterData{}, err
	}
	if err := e.Events.Append(ctx, tx, "masterdata.pushed", "master_data", key, actorID, nil); err != nil {
		return domain.MasterData{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.MasterData{}, err
	}
	return m, nil
}
