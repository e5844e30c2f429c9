package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asistenku/internal/db"
	"asistenku/internal/domain"
	"asistenku/internal/engine"
	"asistenku/internal/migrate"
	"asistenku/internal/repo"
	"asistenku/internal/server"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	Client *http.Client
}

func newTestServer(t *testing.T) testServer {
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

	ctx := context.Background()
	seed := func(u domain.User) {
		if u.Status == "" {
			u.Status = domain.StatusActive
		}
		u.CreatedAt = "2024-01-01T00:00:00Z"
		u.UpdatedAt = u.CreatedAt
		tx, err := eng.DB.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		defer tx.Rollback()
		if err := eng.Repo.InsertUserTx(ctx, tx, u); err != nil {
			t.Fatalf("seed user %s: %v", u.ID, err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	seed(domain.User{ID: "root", Role: domain.RoleSuperadmin, Name: "Root"})
	seed(domain.User{ID: "adm", Role: domain.RoleInternal, InternalRole: domain.InternalRoleAdmin, Name: "Admin"})
	seed(domain.User{ID: "c1", Role: domain.RoleClient, Name: "Client One"})
	seed(domain.User{ID: "p1", Role: domain.RolePartner, PartnerLevel: domain.TierJunior, Name: "Partner One"})

	if _, err := eng.CreateLayanan(ctx, engine.LayananCreateOptions{
		ID: "l1", OwnerClient: "c1", Nama: "Paket 50", UnitTotal: 50, ActorID: "adm",
	}); err != nil {
		t.Fatalf("create layanan: %v", err)
	}
	if _, err := eng.UpsertKamus(ctx, engine.KamusUpsertOptions{
		Kode: "WEB", KategoriPekerjaan: "digital", JenisPekerjaan: "website maintenance",
		JamStandar: 5, TipePartnerBoleh: []string{domain.TierJunior}, Aktif: true, ActorID: "adm",
	}); err != nil {
		t.Fatalf("upsert kamus: %v", err)
	}
	if _, err := eng.UpsertAturan(ctx, engine.AturanUpsertOptions{
		Kode: "J1", TipePartner: domain.TierJunior, JamMin: 0, JamMax: 100,
		PolaBeban: domain.PolaTambahJamTetap, Nilai: 2, Aktif: true, ActorID: "adm",
	}); err != nil {
		t.Fatalf("upsert aturan: %v", err)
	}

	h, err := server.New(server.Config{
		Engine: eng,
		Auth: server.AuthConfig{
			JWTSecret:              "test-secret",
			AllowLegacyActorHeader: true,
		},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return testServer{URL: srv.URL, Engine: eng, Client: srv.Client()}
}

// call issues a request with the legacy actor header and decodes the
// response body into out when it is non-nil.
func (s testServer) call(t *testing.T, method, path, actor string, body, out any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set("X-Actor-Id", actor)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

// callWithKey is call, but authenticating with an API key instead of
// the legacy header.
func (s testServer) callWithKey(t *testing.T, method, path, key string, out any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("X-Api-Key", key)
	resp, err := s.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read error body: %v", err)
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		t.Fatalf("decode error body %q: %v", data, err)
	}
	if envelope.Error.Code == "" {
		t.Fatalf("no error code in %q", data)
	}
	return envelope.Error.Code
}

func TestHealthIsOpen(t *testing.T) {
	s := newTestServer(t)
	resp := s.call(t, http.MethodGet, "/v0/health", "", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestMissingCredentials(t *testing.T) {
	s := newTestServer(t)
	resp := s.call(t, http.MethodGet, "/v0/tasks", "", nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "unauthorized" {
		t.Fatalf("code = %s, want unauthorized", code)
	}
}

func TestTaskFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)

	var task domain.Task
	resp := s.call(t, http.MethodPost, "/v0/tasks", "adm", map[string]any{
		"layanan_id":   "l1",
		"title":        "Perbaiki landing page",
		"request_type": "WEB",
	}, &task)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	if task.Phase != domain.PhaseNewRequest {
		t.Fatalf("phase = %s", task.Phase)
	}

	resp = s.call(t, http.MethodPost, "/v0/tasks/"+task.ID+"/delegate", "adm", map[string]any{
		"partner_id": "p1",
		"beban_jam":  4,
	}, &task)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delegate: status = %d", resp.StatusCode)
	}
	if task.Phase != domain.PhaseInProgress {
		t.Fatalf("phase = %s", task.Phase)
	}
	if task.UnitTerpakai == nil || *task.UnitTerpakai != 3 {
		t.Fatalf("unit_terpakai = %v, want 3", task.UnitTerpakai)
	}

	for _, step := range []struct {
		path  string
		actor string
	}{
		{"/v0/tasks/" + task.ID + "/accept", "p1"},
		{"/v0/tasks/" + task.ID + "/qa", "adm"},
		{"/v0/tasks/" + task.ID + "/client-review", "adm"},
		{"/v0/tasks/" + task.ID + "/selesai", "c1"},
	} {
		resp = s.call(t, http.MethodPost, step.path, step.actor, nil, &task)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: status = %d", step.path, resp.StatusCode)
		}
	}
	if task.Phase != domain.PhaseDone {
		t.Fatalf("final phase = %s", task.Phase)
	}

	var l domain.Layanan
	resp = s.call(t, http.MethodGet, "/v0/layanan/l1", "c1", nil, &l)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get layanan: status = %d", resp.StatusCode)
	}
	if l.UnitUsed != 3 || l.UnitOnHold != 0 {
		t.Fatalf("ledger: used=%d on_hold=%d", l.UnitUsed, l.UnitOnHold)
	}
}

func TestErrorEnvelopes(t *testing.T) {
	s := newTestServer(t)

	resp := s.call(t, http.MethodGet, "/v0/tasks/nope", "adm", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "not_found" {
		t.Fatalf("code = %s, want not_found", code)
	}

	// Partners cannot open tasks.
	resp = s.call(t, http.MethodPost, "/v0/tasks", "p1", map[string]any{
		"layanan_id": "l1", "title": "x",
	}, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "forbidden" {
		t.Fatalf("code = %s, want forbidden", code)
	}

	// Quota exceeded surfaces as a 409 with the shortfall in details.
	var task domain.Task
	if _, err := s.Engine.CreateLayanan(context.Background(), engine.LayananCreateOptions{
		ID: "l-small", OwnerClient: "c1", Nama: "Paket 1", UnitTotal: 1, ActorID: "adm",
	}); err != nil {
		t.Fatalf("create layanan: %v", err)
	}
	resp = s.call(t, http.MethodPost, "/v0/tasks", "adm", map[string]any{
		"layanan_id": "l-small", "title": "Kebesaran", "request_type": "WEB",
	}, &task)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	resp = s.call(t, http.MethodPost, "/v0/tasks/"+task.ID+"/delegate", "adm", map[string]any{
		"partner_id": "p1", "beban_jam": 4,
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "quota_exceeded" {
		t.Fatalf("code = %s, want quota_exceeded", code)
	}

	resp = s.call(t, http.MethodPost, "/v0/tasks/"+task.ID+"/qa", "adm", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "invalid_transition" {
		t.Fatalf("code = %s, want invalid_transition", code)
	}
}

func TestKalkulatorEndpoint(t *testing.T) {
	s := newTestServer(t)

	var got engine.KalkulasiAM
	resp := s.call(t, http.MethodPost, "/v0/kalkulator/am", "c1", map[string]any{
		"kode_kamus":   "WEB",
		"tipe_partner": domain.TierJunior,
		"beban_jam":    4,
	}, &got)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	want := engine.KalkulasiAM{
		KodeKamus: "WEB", TipePartner: domain.TierJunior, BebanJam: 4,
		JamStandar: 5, JamTambahan: 2, JamKePartner: 7, JamPerusahaan: 7,
		UnitClient: 3, AturanKode: "J1",
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestClientRegistrationIsOpen(t *testing.T) {
	s := newTestServer(t)

	var u domain.User
	resp := s.call(t, http.MethodPost, "/v0/users/clients", "", map[string]any{
		"name":  "Budi",
		"email": "budi@example.com",
	}, &u)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if u.Role != domain.RoleClient || u.Status != domain.StatusPending {
		t.Fatalf("user = %+v", u)
	}

	// Admin-style user mutations under the same prefix still require a
	// credential.
	resp = s.call(t, http.MethodPost, "/v0/users/"+u.ID+"/status", "", map[string]any{
		"status": domain.StatusActive,
	}, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAPIKeyLifecycle(t *testing.T) {
	s := newTestServer(t)

	var created struct {
		ID      string `json:"id"`
		ActorID string `json:"actor_id"`
		Key     string `json:"key"`
	}
	resp := s.call(t, http.MethodPost, "/v0/apikeys", "adm", map[string]any{
		"actor_id": "c1",
		"name":     "integrasi gudang",
	}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d", resp.StatusCode)
	}
	if created.Key == "" || created.ActorID != "c1" {
		t.Fatalf("created = %+v", created)
	}

	// The key authenticates as its owner.
	var tasks []domain.Task
	resp = s.callWithKey(t, http.MethodGet, "/v0/tasks", created.Key, &tasks)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list with key: status = %d", resp.StatusCode)
	}

	var keys []domain.APIKey
	resp = s.call(t, http.MethodGet, "/v0/apikeys?actor_id=c1", "adm", nil, &keys)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list keys: status = %d", resp.StatusCode)
	}
	if len(keys) != 1 || keys[0].ID != created.ID {
		t.Fatalf("keys = %+v", keys)
	}
	if keys[0].KeyHash != "" {
		t.Fatal("digest leaked in listing")
	}
	if keys[0].LastUsedAt == nil {
		t.Fatal("last use not recorded")
	}

	resp = s.call(t, http.MethodDelete, "/v0/apikeys/"+created.ID, "adm", nil, nil)
	if resp.StatusCode >= 300 {
		t.Fatalf("revoke: status = %d", resp.StatusCode)
	}
	resp = s.callWithKey(t, http.MethodGet, "/v0/tasks", created.Key, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked key: status = %d", resp.StatusCode)
	}
	resp = s.call(t, http.MethodDelete, "/v0/apikeys/"+created.ID, "adm", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second revoke: status = %d", resp.StatusCode)
	}
}

func TestExpiredAPIKeyRejected(t *testing.T) {
	s := newTestServer(t)

	ctx := context.Background()
	raw := "rahasia-kedaluwarsa"
	past := "2020-01-01T00:00:00Z"
	tx, err := s.Engine.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := s.Engine.Repo.InsertAPIKey(ctx, tx, domain.APIKey{
		ID: "k-old", ActorID: "c1", KeyHash: repo.HashAPIKey(raw),
		CreatedAt: past, ExpiresAt: &past,
	}); err != nil {
		t.Fatalf("insert key: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	resp := s.callWithKey(t, http.MethodGet, "/v0/tasks", raw, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if code := errorCode(t, resp); code != "invalid_credentials" {
		t.Fatalf("code = %s, want invalid_credentials", code)
	}
}

func TestEventsAreInternalOnly(t *testing.T) {
	s := newTestServer(t)

	resp := s.call(t, http.MethodGet, "/v0/events", "c1", nil, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}

	var events []domain.Event
	resp = s.call(t, http.MethodGet, "/v0/events?limit=10", "adm", nil, &events)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(events) == 0 {
		t.Fatal("expected seeded catalog events")
	}
}
