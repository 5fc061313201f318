package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrETagMismatch indicates a save raced another writer for the same ref.
var ErrETagMismatch = errors.New("sessionstore: etag mismatch")

// ErrRefIncomplete indicates a ref without enough fields to derive a key.
var ErrRefIncomplete = errors.New("sessionstore: ref requires a draft id or both handles")

// Ref identifies one persisted session record. Sessions that have committed
// at least once key by their backend handles; unsaved sessions key by a
// caller-chosen draft id.
type Ref struct {
	ProjectHandle string
	DesignHandle  string
	DraftID       string
}

// Identifier returns the canonical storage key for the ref.
func (r Ref) Identifier() (string, error) {
	if r.DraftID != "" {
		return fmt.Sprintf("draft/%s", r.DraftID), nil
	}
	if r.ProjectHandle != "" && r.DesignHandle != "" {
		return fmt.Sprintf("project/%s/design/%s", r.ProjectHandle, r.DesignHandle), nil
	}
	return "", ErrRefIncomplete
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one record for a single ref.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (record T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, record T, meta Meta) (Meta, error)
}
