package engine_test

import (
	"errors"
	"testing"

	"asistenku/internal/domain"
	"asistenku/internal/engine"
	"asistenku/internal/engine/auth"
	"asistenku/internal/repo"
)

func TestKalkulasiBreakdown(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	cases := []struct {
		name  string
		tier  string
		beban int64
		want  engine.KalkulasiAM
	}{
		{
			name: "junior flat band", tier: domain.TierJunior, beban: 4,
			want: engine.KalkulasiAM{
				KodeKamus: "WEB", TipePartner: domain.TierJunior, BebanJam: 4,
				JamStandar: 5, JamTambahan: 2, JamKePartner: 7, JamPerusahaan: 7,
				UnitClient: 3, AturanKode: "J1",
			},
		},
		{
			// 12 hours falls in the per-hour band: 1 extra hour per
			// hour over the band floor of 8.
			name: "junior per-hour band", tier: domain.TierJunior, beban: 12,
			want: engine.KalkulasiAM{
				KodeKamus: "WEB", TipePartner: domain.TierJunior, BebanJam: 12,
				JamStandar: 5, JamTambahan: 4, JamKePartner: 9, JamPerusahaan: 9,
				UnitClient: 3, AturanKode: "J2",
			},
		},
		{
			// Zero estimate defaults to the kamus standard hours.
			name: "zero defaults to standard", tier: domain.TierJunior, beban: 0,
			want: engine.KalkulasiAM{
				KodeKamus: "WEB", TipePartner: domain.TierJunior, BebanJam: 5,
				JamStandar: 5, JamTambahan: 2, JamKePartner: 7, JamPerusahaan: 7,
				UnitClient: 3, AturanKode: "J1",
			},
		},
		{
			name: "senior no surcharge", tier: domain.TierSenior, beban: 5,
			want: engine.KalkulasiAM{
				KodeKamus: "WEB", TipePartner: domain.TierSenior, BebanJam: 5,
				JamStandar: 5, JamTambahan: 0, JamKePartner: 5, JamPerusahaan: 5,
				UnitClient: 2, AturanKode: "S1",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Kalkulasi(env.Ctx, "adm", "WEB", tc.tier, tc.beban)
			if err != nil {
				t.Fatalf("kalkulasi: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestKalkulasiDeterministic(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	first, err := e.Kalkulasi(env.Ctx, "adm", "WEB", domain.TierJunior, 6)
	if err != nil {
		t.Fatalf("kalkulasi: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := e.Kalkulasi(env.Ctx, "adm", "WEB", domain.TierJunior, 6)
		if err != nil {
			t.Fatalf("kalkulasi: %v", err)
		}
		if again != first {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestKalkulasiOverlapLowestBandWins(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	// Add a second junior band that overlaps J1 but starts higher. The
	// band with the lower floor must win for beban inside both.
	if _, err := e.UpsertAturan(env.Ctx, engine.AturanUpsertOptions{
		Kode: "J9", TipePartner: domain.TierJunior, JamMin: 2, JamMax: 8,
		PolaBeban: domain.PolaTambahJamTetap, Nilai: 99, Aktif: true, ActorID: "adm",
	}); err != nil {
		t.Fatalf("upsert aturan: %v", err)
	}
	got, err := e.Kalkulasi(env.Ctx, "adm", "WEB", domain.TierJunior, 4)
	if err != nil {
		t.Fatalf("kalkulasi: %v", err)
	}
	if got.AturanKode != "J1" || got.JamTambahan != 2 {
		t.Fatalf("band = %s (+%d), want J1 (+2)", got.AturanKode, got.JamTambahan)
	}
}

func TestKalkulasiErrors(t *testing.T) {
	env := newTestEnv(t)
	seedWorld(t, env)
	e := env.Engine

	var ve engine.ValidationError
	if _, err := e.Kalkulasi(env.Ctx, "adm", "WEB", "principal", 4); !errors.As(err, &ve) {
		t.Fatalf("unknown tier: got %v, want ValidationError", err)
	}
	if _, err := e.Kalkulasi(env.Ctx, "adm", "WEB", domain.TierJunior, -1); !errors.As(err, &ve) {
		t.Fatalf("negative beban: got %v, want ValidationError", err)
	}
	if _, err := e.Kalkulasi(env.Ctx, "adm", "MISSING", domain.TierJunior, 4); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing kamus: got %v, want ErrNotFound", err)
	}

	// Expert is a valid tier but the kamus does not allow it.
	var ue auth.UnauthorizedError
	if _, err := e.Kalkulasi(env.Ctx, "adm", "WEB", domain.TierExpert, 4); !errors.As(err, &ue) {
		t.Fatalf("disallowed tier: got %v, want UnauthorizedError", err)
	}

	// No junior band covers 200 hours.
	if _, err := e.Kalkulasi(env.Ctx, "adm", "WEB", domain.TierJunior, 200); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("no band match: got %v, want ErrNotFound", err)
	}

	// Deactivated kamus behaves like a missing one.
	if _, err := e.UpsertKamus(env.Ctx, engine.KamusUpsertOptions{
		Kode: "WEB", KategoriPekerjaan: "digital", JenisPekerjaan: "website maintenance",
		JamStandar: 5, TipePartnerBoleh: []string{domain.TierJunior}, Aktif: false, ActorID: "adm",
	}); err != nil {
		t.Fatalf("deactivate kamus: %v", err)
	}
	if _, err := e.Kalkulasi(env.Ctx, "adm", "WEB", domain.TierJunior, 4); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("inactive kamus: got %v, want ErrNotFound", err)
	}

	if _, err := e.Kalkulasi(env.Ctx, "ghost", "WEB", domain.TierJunior, 4); !errors.As(err, &ue) {
		t.Fatalf("unknown actor: got %v, want UnauthorizedError", err)
	}
}
