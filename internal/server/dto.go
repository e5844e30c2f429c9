package server

// Request bodies for the HTTP API. Responses reuse the domain structs,
// which carry their own JSON tags.

type RegisterUserRequest struct {
	ID       *string `json:"id,omitempty"`
	Name     string  `json:"name"`
	Email    *string `json:"email,omitempty"`
	Whatsapp *string `json:"whatsapp,omitempty"`
	Company  *string `json:"company,omitempty"`
	Keahlian *string `json:"keahlian,omitempty"`
	Domisili *string `json:"domisili,omitempty"`
	// Partner registration only.
	PartnerLevel *string `json:"partner_level,omitempty" enum:"junior,senior,expert"`
	// Internal registration only.
	InternalRole *string `json:"internal_role,omitempty" enum:"admin,finance,concierge,asistenmu"`
}

type SetStatusRequest struct {
	Status string `json:"status" enum:"pending,active,suspended,blacklisted"`
}

type SetPartnerLevelRequest struct {
	PartnerLevel string `json:"partner_level" enum:"junior,senior,expert"`
}

type SetPartnerSkillsRequest struct {
	Skills []string `json:"skills"`
}

type CreateLayananRequest struct {
	ID          *string `json:"id,omitempty"`
	OwnerClient string  `json:"owner_client"`
	Nama        string  `json:"nama"`
	Deskripsi   *string `json:"deskripsi,omitempty"`
	UnitTotal   int64   `json:"unit_total"`
}

type TopUpRequest struct {
	Units int64 `json:"units"`
}

type ShareRequest struct {
	Principal string `json:"principal"`
}

type CreateTaskRequest struct {
	ID          *string `json:"id,omitempty"`
	LayananID   string  `json:"layanan_id"`
	Title       string  `json:"title"`
	Detail      *string `json:"detail,omitempty"`
	RequestType *string `json:"request_type,omitempty"`
}

type DelegateRequest struct {
	PartnerID string `json:"partner_id"`
	KodeKamus string `json:"kode_kamus,omitempty"`
	BebanJam  int64  `json:"beban_jam,omitempty"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type KalkulatorRequest struct {
	KodeKamus   string `json:"kode_kamus"`
	TipePartner string `json:"tipe_partner" enum:"junior,senior,expert"`
	BebanJam    int64  `json:"beban_jam,omitempty"`
}

type UpsertKamusRequest struct {
	KategoriPekerjaan string   `json:"kategori_pekerjaan"`
	JenisPekerjaan    string   `json:"jenis_pekerjaan"`
	JamStandar        int64    `json:"jam_standar"`
	TipePartnerBoleh  []string `json:"tipe_partner_boleh"`
	Aktif             *bool    `json:"aktif,omitempty"`
}

type UpsertAturanRequest struct {
	TipePartner string `json:"tipe_partner" enum:"junior,senior,expert"`
	JamMin      int64  `json:"jam_min"`
	JamMax      int64  `json:"jam_max"`
	PolaBeban   string `json:"pola_beban" enum:"TAMBAH_JAM_TETAP,TAMBAH_PER_JAM"`
	Nilai       int64  `json:"nilai"`
	Aktif       *bool  `json:"aktif,omitempty"`
}

type SetKonstantaRequest struct {
	UnitKeJam int64 `json:"unit_ke_jam"`
}

type UpsertSkillRequest struct {
	Nama     string  `json:"nama"`
	Kategori *string `json:"kategori,omitempty"`
	Aktif    *bool   `json:"aktif,omitempty"`
}

type SetTarifRequest struct {
	RatePerJam int64 `json:"rate_per_jam"`
}

type PushMasterDataRequest struct {
	Data map[string]any `json:"data"`
}

type CreateAPIKeyRequest struct {
	ActorID       string  `json:"actor_id"`
	Name          *string `json:"name,omitempty"`
	ExpiresInDays int     `json:"expires_in_days,omitempty" minimum:"0"`
}

type CreateAPIKeyResponse struct {
	ID        string  `json:"id"`
	ActorID   string  `json:"actor_id"`
	Key       string  `json:"key"`
	ExpiresAt *string `json:"expires_at,omitempty" format:"date-time"`
}

type DevLoginRequest struct {
	ActorID string `json:"actor_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Source  string `json:"source"`
	Role    string `json:"role,omitempty"`
	Status  string `json:"status,omitempty"`
}

func stringOrEmpty(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}

func boolOrTrue(ptr *bool) bool {
	if ptr == nil {
		return true
	}
	return *ptr
}
