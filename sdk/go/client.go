package asistenkusdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Asistenku HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Task represents the API task model (partial).
type Task struct {
	ID              string  `json:"id"`
	LayananID       string  `json:"layanan_id"`
	OwnerClient     string  `json:"owner_client"`
	Title           string  `json:"title"`
	Phase           string  `json:"phase"`
	AssignedPartner *string `json:"assigned_partner,omitempty"`
	JamKePartner    *int64  `json:"jam_ke_partner,omitempty"`
	JamPerusahaan   *int64  `json:"jam_perusahaan,omitempty"`
	UnitTerpakai    *int64  `json:"unit_terpakai,omitempty"`
}

// Layanan represents a capacity pool.
type Layanan struct {
	ID          string `json:"id"`
	OwnerClient string `json:"owner_client"`
	Nama        string `json:"nama"`
	UnitTotal   int64  `json:"unit_total"`
	UnitUsed    int64  `json:"unit_used"`
	UnitOnHold  int64  `json:"unit_on_hold"`
	IsActive    bool   `json:"is_active"`
}

// Kalkulasi is the AM calculator breakdown.
type Kalkulasi struct {
	KodeKamus     string `json:"kode_kamus"`
	TipePartner   string `json:"tipe_partner"`
	BebanJam      int64  `json:"beban_jam"`
	JamStandar    int64  `json:"jam_standar"`
	JamTambahan   int64  `json:"jam_tambahan"`
	JamKePartner  int64  `json:"jam_ke_partner"`
	JamPerusahaan int64  `json:"jam_perusahaan"`
	UnitClient    int64  `json:"unit_client"`
	AturanKode    string `json:"aturan_kode,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateTask opens a work request against a layanan.
func (c *Client) CreateTask(ctx context.Context, layananID, title string) (Task, error) {
	body := map[string]any{
		"layanan_id": layananID,
		"title":      title,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks", body, &resp)
	return resp, err
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, taskID string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "v0/tasks/"+url.PathEscape(taskID), nil, &resp)
	return resp, err
}

// ListTasks returns the caller's tasks, optionally filtered by phase.
func (c *Client) ListTasks(ctx context.Context, phase string, limit int) ([]Task, error) {
	endpoint := "v0/tasks"
	params := url.Values{}
	if phase != "" {
		params.Set("phase", phase)
	}
	if limit > 0 {
		params.Set("limit", fmt.Sprint(limit))
	}
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	var resp []Task
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Delegate assigns a task to a partner.
func (c *Client) Delegate(ctx context.Context, taskID, partnerID, kodeKamus string, bebanJam int64) (Task, error) {
	body := map[string]any{
		"partner_id": partnerID,
		"kode_kamus": kodeKamus,
		"beban_jam":  bebanJam,
	}
	var resp Task
	err := c.do(ctx, http.MethodPost, "v0/tasks/"+url.PathEscape(taskID)+"/delegate", body, &resp)
	return resp, err
}

// MoveTask fires one of the bare phase actions: accept, qa,
// client-review, selesai, back-to-progress, cancel.
func (c *Client) MoveTask(ctx context.Context, taskID, action string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("v0/tasks/%s/%s", url.PathEscape(taskID), url.PathEscape(action))
	err := c.do(ctx, http.MethodPost, endpoint, nil, &resp)
	return resp, err
}

// RejectTask declines an assignment with a reason.
func (c *Client) RejectTask(ctx context.Context, taskID, reason string) (Task, error) {
	var resp Task
	endpoint := "v0/tasks/" + url.PathEscape(taskID) + "/reject"
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"reason": reason}, &resp)
	return resp, err
}

// RequestRevision asks for another pass on reviewed work.
func (c *Client) RequestRevision(ctx context.Context, taskID, reason string) (Task, error) {
	var resp Task
	endpoint := "v0/tasks/" + url.PathEscape(taskID) + "/revision"
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"reason": reason}, &resp)
	return resp, err
}

// GetLayanan fetches one capacity pool.
func (c *Client) GetLayanan(ctx context.Context, layananID string) (Layanan, error) {
	var resp Layanan
	err := c.do(ctx, http.MethodGet, "v0/layanan/"+url.PathEscape(layananID), nil, &resp)
	return resp, err
}

// Kalkulator previews the hour and unit breakdown for a job code.
func (c *Client) Kalkulator(ctx context.Context, kodeKamus, tipePartner string, bebanJam int64) (Kalkulasi, error) {
	body := map[string]any{
		"kode_kamus":   kodeKamus,
		"tipe_partner": tipePartner,
		"beban_jam":    bebanJam,
	}
	var resp Kalkulasi
	err := c.do(ctx, http.MethodPost, "v0/kalkulator/am", body, &resp)
	return resp, err
}

// Events returns recent events (internal credential required).
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "v0/events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp []Event
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
