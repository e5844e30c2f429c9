package engine

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"asistenku/internal/domain"
	"asistenku/internal/events"
	"asistenku/internal/repo"
)

// IssuedAPIKey carries the raw secret alongside the stored record. The
// secret is shown exactly once; afterwards only its digest exists.
type IssuedAPIKey struct {
	domain.APIKey
	RawKey string `json:"key"`
}

// APIKeyIssueOptions are parameters for minting an API key.
type APIKeyIssueOptions struct {
	OwnerID       string // actor the key authenticates as
	Name          string
	ExpiresInDays int // 0 means the key never expires
	ActorID       string
}

// IssueAPIKey mints a key for an existing actor. Issuance is audited
// like any other mutation.
func (e Engine) IssueAPIKey(ctx context.Context, opts APIKeyIssueOptions) (IssuedAPIKey, error) {
	if _, err := e.Auth.RequireInternal(ctx, opts.ActorID); err != nil {
		return IssuedAPIKey{}, err
	}
	if opts.OwnerID == "" {
		return IssuedAPIKey{}, ValidationError{Field: "actor_id", Reason: "required"}
	}
	if opts.ExpiresInDays < 0 {
		return IssuedAPIKey{}, ValidationError{Field: "expires_in_days", Reason: "must not be negative"}
	}
	if _, err := e.Repo.GetUser(ctx, opts.OwnerID); err == repo.ErrNotFound {
		return IssuedAPIKey{}, ValidationError{Field: "actor_id", Reason: "unknown actor " + opts.OwnerID}
	} else if err != nil {
		return IssuedAPIKey{}, err
	}
	raw := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	now := e.now().UTC()
	k := domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   opts.OwnerID,
		Name:      opts.Name,
		KeyHash:   repo.HashAPIKey(raw),
		CreatedAt: now.Format(time.RFC3339),
	}
	if opts.ExpiresInDays > 0 {
		exp := now.AddDate(0, 0, opts.ExpiresInDays).Format(time.RFC3339)
		k.ExpiresAt = &exp
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return IssuedAPIKey{}, err
	}
	defer tx.Rollback()

	if err := e.Repo.InsertAPIKey(ctx, tx, k); err != nil {
		return IssuedAPIKey{}, err
	}
	if err := e.Events.Append(ctx, tx, "apikey.issued", "apikey", k.ID, opts.ActorID, events.EventPayload{
		"actor_id":   k.ActorID,
		"name":       k.Name,
		"expires_at": k.ExpiresAt,
	}); err != nil {
		return IssuedAPIKey{}, err
	}
	if err := tx.Commit(); err != nil {
		return IssuedAPIKey{}, err
	}
	return IssuedAPIKey{APIKey: k, RawKey: raw}, nil
}

// RevokeAPIKey deletes a key; requests carrying it fail from the next
// lookup on.
func (e Engine) RevokeAPIKey(ctx context.Context, keyID, actorID string) error {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := e.Repo.DeleteAPIKey(ctx, tx, keyID); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "apikey.revoked", "apikey", keyID, actorID, nil); err != nil {
		return err
	}
	return tx.Commit()
}

// ListAPIKeys returns key records with the digests blanked out.
func (e Engine) ListAPIKeys(ctx context.Context, ownerID, actorID string) ([]domain.APIKey, error) {
	if _, err := e.Auth.RequireInternal(ctx, actorID); err != nil {
		return nil, err
	}
	keys, err := e.Repo.ListAPIKeys(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for i := range keys {
		keys[i].KeyHash = ""
	}
	return keys, nil
}
