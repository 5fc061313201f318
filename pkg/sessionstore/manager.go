package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-rasdesign"
)

// Manager wraps a session state store with ETag-checked saves and snapshot
// id assignment.
type Manager struct {
	Store Store[rasdesign.SessionState]
	// Clock overrides the UpdatedAt time source; nil uses time.Now.
	Clock func() time.Time
}

func (m Manager) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

// Load fetches one session record.
func (m Manager) Load(ctx context.Context, ref Ref) (rasdesign.SessionState, Meta, bool, error) {
	if m.Store == nil {
		return rasdesign.SessionState{}, Meta{}, false, fmt.Errorf("sessionstore: store is required")
	}
	return m.Store.Load(ctx, ref)
}

// Save persists a session export. A non-empty meta.ETag must match the
// stored record's ETag or the save fails with ErrETagMismatch. The saved
// record receives a fresh snapshot id and ETag.
func (m Manager) Save(ctx context.Context, ref Ref, state rasdesign.SessionState, meta Meta) (Meta, error) {
	if m.Store == nil {
		return Meta{}, fmt.Errorf("sessionstore: store is required")
	}

	_, current, ok, err := m.Store.Load(ctx, ref)
	if err != nil {
		return Meta{}, fmt.Errorf("sessionstore: load before save: %w", err)
	}
	if ok && meta.ETag != "" && current.ETag != "" && meta.ETag != current.ETag {
		return current, fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, meta.ETag, current.ETag)
	}

	saved := Meta{
		SnapshotID: uuid.NewString(),
		ETag:       uuid.NewString(),
		UpdatedAt:  m.now(),
		Extra:      meta.Extra,
	}
	return m.Store.Save(ctx, ref, state, saved)
}

// Resume loads a session record and rehydrates a live session around the
// supplied engine. Extra options are applied after the restored state.
func (m Manager) Resume(ctx context.Context, ref Ref, engine rasdesign.CalcEngine, opts ...rasdesign.SessionOption) (*rasdesign.Session, Meta, error) {
	state, meta, ok, err := m.Load(ctx, ref)
	if err != nil {
		return nil, Meta{}, err
	}
	if !ok {
		return nil, Meta{}, fmt.Errorf("sessionstore: no record for ref")
	}
	options := append([]rasdesign.SessionOption{rasdesign.WithState(state)}, opts...)
	session, err := rasdesign.NewSession(engine, options...)
	if err != nil {
		return nil, meta, err
	}
	return session, meta, nil
}
