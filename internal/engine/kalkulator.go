package engine

import (
	"context"

	"asistenku/internal/domain"
	"asistenku/internal/engine/auth"
	"asistenku/internal/repo"
)

// KalkulasiAM is the deterministic hour and unit breakdown for one
// delegation: partner hours, company hours, and the client units the
// work will consume.
type KalkulasiAM struct {
	KodeKamus     string `json:"kode_kamus"`
	TipePartner   string `json:"tipe_partner" enum:"junior,senior,expert"`
	BebanJam      int64  `json:"beban_jam"`
	JamStandar    int64  `json:"jam_standar"`
	JamTambahan   int64  `json:"jam_tambahan"`
	JamKePartner  int64  `json:"jam_ke_partner"`
	JamPerusahaan int64  `json:"jam_perusahaan"`
	UnitClient    int64  `json:"unit_client"`
	AturanKode    string `json:"aturan_kode,omitempty"`
}

// hitungBeban computes the breakdown from already-loaded catalog rows.
// aturan must be ordered by jam_min then kode so the first band match
// wins overlaps. The second result reports whether any band matched.
func hitungBeban(kamus domain.KamusPekerjaan, aturan []domain.AturanBeban, konstanta domain.KonstantaUnitClient, tipePartner string, bebanJam int64) (KalkulasiAM, bool) {
	if bebanJam <= 0 {
		bebanJam = kamus.JamStandar
	}
	res := KalkulasiAM{
		KodeKamus:   kamus.Kode,
		TipePartner: tipePartner,
		BebanJam:    bebanJam,
		JamStandar:  kamus.JamStandar,
	}
	matched := false
	for _, a := range aturan {
		if bebanJam < a.JamMin || bebanJam >= a.JamMax {
			continue
		}
		switch a.PolaBeban {
		case domain.PolaTambahJamTetap:
			res.JamTambahan = a.Nilai
		case domain.PolaTambahPerJam:
			over := bebanJam - a.JamMin
			if over < 0 {
				over = 0
			}
			res.JamTambahan = a.Nilai * over
		}
		res.AturanKode = a.Kode
		matched = true
		break
	}
	res.JamKePartner = kamus.JamStandar + res.JamTambahan
	res.JamPerusahaan = res.JamKePartner
	res.UnitClient = (res.JamPerusahaan + konstanta.UnitKeJam - 1) / konstanta.UnitKeJam
	return res, matched
}

// Kalkulasi runs the breakdown against the live catalogs without
// touching any task or layanan. Same inputs, same result.
func (e Engine) Kalkulasi(ctx context.Context, actorID, kodeKamus, tipePartner string, bebanJam int64) (KalkulasiAM, error) {
	actor, err := e.Auth.ActiveActor(ctx, actorID)
	if err != nil {
		return KalkulasiAM{}, err
	}
	if !auth.IsInternal(actor) && actor.Role != domain.RolePartner && actor.Role != domain.RoleClient {
		return KalkulasiAM{}, auth.UnauthorizedError{Actor: actorID, Reason: "registered role required"}
	}
	return e.kalkulasi(ctx, kodeKamus, tipePartner, bebanJam)
}

func (e Engine) kalkulasi(ctx context.Context, kodeKamus, tipePartner string, bebanJam int64) (KalkulasiAM, error) {
	if !domain.ValidTier(tipePartner) {
		return KalkulasiAM{}, ValidationError{Field: "tipe_partner", Reason: "unknown tier " + tipePartner}
	}
	if bebanJam < 0 {
		return KalkulasiAM{}, ValidationError{Field: "beban_jam", Reason: "must not be negative"}
	}
	kamus, err := e.Repo.GetKamus(ctx, kodeKamus)
	if err != nil {
		return KalkulasiAM{}, err
	}
	if !kamus.Aktif {
		return KalkulasiAM{}, repo.ErrNotFound
	}
	allowed := false
	for _, t := range kamus.TipePartnerBoleh {
		if t == tipePartner {
			allowed = true
			break
		}
	}
	if !allowed {
		return KalkulasiAM{}, auth.UnauthorizedError{Actor: tipePartner, Reason: "tier not allowed for " + kamus.Kode}
	}
	aturan, err := e.Repo.ActiveAturanForTier(ctx, tipePartner)
	if err != nil {
		return KalkulasiAM{}, err
	}
	konstanta, err := e.Repo.GetKonstanta(ctx)
	if err != nil {
		return KalkulasiAM{}, err
	}
	res, matched := hitungBeban(kamus, aturan, konstanta, tipePartner, bebanJam)
	if !matched {
		return KalkulasiAM{}, repo.ErrNotFound
	}
	return res, nil
}
