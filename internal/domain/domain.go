package domain

// Task phases. Terminal phases are done and client-cancelled.
const (
	PhaseNewRequest      = "new-request"
	PhaseInProgress      = "in-progress"
	PhaseQualityReview   = "quality-review"
	PhaseClientReview    = "client-review"
	PhaseRevision        = "revision"
	PhaseDone            = "done"
	PhasePartnerDeclined = "partner-declined"
	PhaseClientCancelled = "client-cancelled"
)

// IsTerminalPhase reports whether a phase admits no further transitions.
func IsTerminalPhase(phase string) bool {
	return phase == PhaseDone || phase == PhaseClientCancelled
}

const (
	RoleClient     = "client"
	RolePartner    = "partner"
	RoleInternal   = "internal"
	RoleSuperadmin = "superadmin"
)

const (
	InternalRoleAdmin     = "admin"
	InternalRoleFinance   = "finance"
	InternalRoleConcierge = "concierge"
	InternalRoleAsistenmu = "asistenmu"
)

const (
	StatusPending     = "pending"
	StatusActive      = "active"
	StatusSuspended   = "suspended"
	StatusBlacklisted = "blacklisted"
)

const (
	TierJunior = "junior"
	TierSenior = "senior"
	TierExpert = "expert"
)

// ValidTier reports whether the given partner tier is one of the known levels.
func ValidTier(tier string) bool {
	return tier == TierJunior || tier == TierSenior || tier == TierExpert
}

// Workload rule patterns: a flat hour addition applied once, or a
// per-hour addition above the band minimum.
const (
	PolaTambahJamTetap = "TAMBAH_JAM_TETAP"
	PolaTambahPerJam   = "TAMBAH_PER_JAM"
)

type User struct {
	ID           string `json:"id"`
	Role         string `json:"role" enum:"client,partner,internal,superadmin"`
	Name         string `json:"name"`
	Email        string `json:"email,omitempty"`
	Whatsapp     string `json:"whatsapp,omitempty"`
	Company      string `json:"company,omitempty"`
	Keahlian     string `json:"keahlian,omitempty"`
	Domisili     string `json:"domisili,omitempty"`
	InternalRole string `json:"internal_role,omitempty"`
	PartnerLevel string `json:"partner_level,omitempty"`
	Status       string `json:"status" enum:"pending,active,suspended,blacklisted"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

// Layanan is a client's purchased capacity pool, metered in units.
// unit_used + unit_on_hold never exceeds unit_total.
type Layanan struct {
	ID          string   `json:"id"`
	OwnerClient string   `json:"owner_client"`
	Nama        string   `json:"nama"`
	Deskripsi   string   `json:"deskripsi,omitempty"`
	UnitTotal   int64    `json:"unit_total"`
	UnitUsed    int64    `json:"unit_used"`
	UnitOnHold  int64    `json:"unit_on_hold"`
	IsActive    bool     `json:"is_active"`
	SharedWith  []string `json:"shared_with,omitempty"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
	CreatedBy   string   `json:"created_by"`
	UpdatedAt   string   `json:"updated_at" format:"date-time"`
	UpdatedBy   string   `json:"updated_by,omitempty"`
}

// Task is a delegated work request drawn against a Layanan. The computed
// hour/unit fields are set once the task passes delegation and are
// superseded on re-delegation.
type Task struct {
	ID               string  `json:"id"`
	LayananID        string  `json:"layanan_id"`
	OwnerClient      string  `json:"owner_client"`
	Title            string  `json:"title"`
	Detail           string  `json:"detail,omitempty"`
	RequestType      string  `json:"request_type,omitempty"`
	Phase            string  `json:"phase" enum:"new-request,in-progress,quality-review,client-review,revision,done,partner-declined,client-cancelled"`
	AssignedPartner  *string `json:"assigned_partner,omitempty"`
	KodeKamus        *string `json:"kode_kamus,omitempty"`
	TipePartner      *string `json:"tipe_partner,omitempty"`
	BebanJam         *int64  `json:"beban_jam,omitempty"`
	JamKePartner     *int64  `json:"jam_ke_partner,omitempty"`
	JamPerusahaan    *int64  `json:"jam_perusahaan,omitempty"`
	UnitTerpakai     *int64  `json:"unit_terpakai,omitempty"`
	AcceptedAt       *string `json:"accepted_at,omitempty" format:"date-time"`
	LastRejectReason *string `json:"last_reject_reason,omitempty"`
	RejectedBy       *string `json:"rejected_by,omitempty"`
	RejectedAt       *string `json:"rejected_at,omitempty" format:"date-time"`
	CreatedAt        string  `json:"created_at" format:"date-time"`
	CreatedBy        string  `json:"created_by"`
	UpdatedAt        string  `json:"updated_at" format:"date-time"`
	CompletedAt      *string `json:"completed_at,omitempty" format:"date-time"`
}

// KamusPekerjaan is a job benchmark: standard hours plus the partner
// tiers eligible to perform the job type.
type KamusPekerjaan struct {
	Kode              string   `json:"kode"`
	KategoriPekerjaan string   `json:"kategori_pekerjaan"`
	JenisPekerjaan    string   `json:"jenis_pekerjaan"`
	JamStandar        int64    `json:"jam_standar"`
	TipePartnerBoleh  []string `json:"tipe_partner_boleh"`
	Aktif             bool     `json:"aktif"`
	UpdatedAt         string   `json:"updated_at" format:"date-time"`
	UpdatedBy         string   `json:"updated_by,omitempty"`
}

// AturanBeban maps a workload-hour band [jam_min, jam_max) for one
// partner tier to an extra-hours pattern.
type AturanBeban struct {
	Kode        string `json:"kode"`
	TipePartner string `json:"tipe_partner" enum:"junior,senior,expert"`
	JamMin      int64  `json:"jam_min"`
	JamMax      int64  `json:"jam_max"`
	PolaBeban   string `json:"pola_beban" enum:"TAMBAH_JAM_TETAP,TAMBAH_PER_JAM"`
	Nilai       int64  `json:"nilai"`
	Aktif       bool   `json:"aktif"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
	UpdatedBy   string `json:"updated_by,omitempty"`
}

// KonstantaUnitClient is the singleton hours-per-client-unit factor.
type KonstantaUnitClient struct {
	UnitKeJam int64  `json:"unit_ke_jam"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type SkillVerified struct {
	Kode      string `json:"kode"`
	Nama      string `json:"nama"`
	Kategori  string `json:"kategori,omitempty"`
	Aktif     bool   `json:"aktif"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

type TarifPartner struct {
	TipePartner string `json:"tipe_partner"`
	RatePerJam  int64  `json:"rate_per_jam"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type MasterData struct {
	Key       string `json:"key"`
	DataJSON  string `json:"data_json"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIKey authenticates machine callers as an existing actor. Only the
// digest of the secret is stored; expiry and last use are bookkeeping
// for rotation.
type APIKey struct {
	ID         string  `json:"id"`
	ActorID    string  `json:"actor_id"`
	Name       string  `json:"name,omitempty"`
	KeyHash    string  `json:"key_hash,omitempty"`
	CreatedAt  string  `json:"created_at" format:"date-time"`
	ExpiresAt  *string `json:"expires_at,omitempty" format:"date-time"`
	LastUsedAt *string `json:"last_used_at,omitempty" format:"date-time"`
}
