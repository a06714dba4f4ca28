package state

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/goliatone/go-langopts/layering"
)

var (
	ErrETagMismatch = errors.New("state: etag mismatch")
	// ErrRejected reports a mutation that left blocking option errors; nothing
	// is saved.
	ErrRejected = errors.New("state: options rejected")
)

// Scope names understood by Ref.Identifier.
const (
	ScopeDefaults = "defaults"
	ScopeNetwork  = "network"
	ScopeSite     = "site"
)

// Ref identifies one persisted snapshot for one options domain.
type Ref struct {
	Domain string
	Scope  layering.Scope
}

// Meta is storage-owned metadata used for trace/audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one snapshot for a single scope reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Identifier returns the canonical storage key for r:
// defaults/{domain}, network/{network_id}/{domain} or site/{site_id}/{domain}.
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("state: domain is required")
	}
	switch r.Scope.Name {
	case ScopeDefaults:
		return fmt.Sprintf("%s/%s", ScopeDefaults, r.Domain), nil
	case ScopeNetwork, ScopeSite:
		metadataKey := r.Scope.Name + "_id"
		idString := identifierString(r.Scope.Metadata[metadataKey])
		if idString == "" {
			return "", fmt.Errorf("missing metadata key %q for scope %q", metadataKey, r.Scope.Name)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope.Name, idString, r.Domain), nil
	default:
		return "", fmt.Errorf("unsupported scope name %q", r.Scope.Name)
	}
}

func identifierString(id any) string {
	switch typed := id.(type) {
	case string:
		return typed
	case int:
		if typed > 0 {
			return fmt.Sprint(typed)
		}
	}
	return ""
}

func cloneMeta(meta Meta) Meta {
	meta.Extra = maps.Clone(meta.Extra)
	return meta
}
