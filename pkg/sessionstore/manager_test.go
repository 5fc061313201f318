package sessionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-rasdesign"
)

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		name string
		ref  Ref
		want string
		err  error
	}{
		{
			name: "draft id wins",
			ref:  Ref{DraftID: "abc", ProjectHandle: "p", DesignHandle: "d"},
			want: "draft/abc",
		},
		{
			name: "handles",
			ref:  Ref{ProjectHandle: "prj-1", DesignHandle: "dsg-1"},
			want: "project/prj-1/design/dsg-1",
		},
		{
			name: "design handle alone is not enough",
			ref:  Ref{DesignHandle: "dsg-1"},
			err:  ErrRefIncomplete,
		},
		{
			name: "empty ref",
			ref:  Ref{},
			err:  ErrRefIncomplete,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.ref.Identifier()
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("identifier: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore[rasdesign.SessionState]()
	ctx := context.Background()
	ref := Ref{DraftID: "draft-1"}

	_, _, ok, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if ok {
		t.Fatalf("expected no record before save")
	}

	state := rasdesign.SessionState{Current: "basics"}
	meta := Meta{ETag: "v1", Extra: map[string]string{"actor": "demo"}}
	if _, err = store.Save(ctx, ref, state, meta); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, loadedMeta, ok, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ok {
		t.Fatalf("expected record after save")
	}
	if loaded.Current != "basics" {
		t.Fatalf("expected restored current stage, got %s", loaded.Current)
	}
	if loadedMeta.ETag != "v1" {
		t.Fatalf("expected etag v1, got %q", loadedMeta.ETag)
	}

	// Stored metadata must not alias the caller's map.
	loadedMeta.Extra["actor"] = "mutated"
	_, freshMeta, _, err := store.Load(ctx, ref)
	if err != nil {
		t.Fatalf("reload meta: %v", err)
	}
	if freshMeta.Extra["actor"] != "demo" {
		t.Fatalf("expected stored extra isolated from caller mutation, got %q", freshMeta.Extra["actor"])
	}
}

func TestMemoryStoreRejectsIncompleteRef(t *testing.T) {
	store := NewMemoryStore[rasdesign.SessionState]()
	if _, err := store.Save(context.Background(), Ref{}, rasdesign.SessionState{}, Meta{}); !errors.Is(err, ErrRefIncomplete) {
		t.Fatalf("expected ErrRefIncomplete, got %v", err)
	}
}

func TestManagerSaveAssignsFreshMeta(t *testing.T) {
	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	manager := Manager{
		Store: NewMemoryStore[rasdesign.SessionState](),
		Clock: func() time.Time { return fixed },
	}
	ctx := context.Background()
	ref := Ref{DraftID: "draft-1"}

	first, err := manager.Save(ctx, ref, rasdesign.SessionState{Current: "basics"}, Meta{})
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if first.SnapshotID == "" || first.ETag == "" {
		t.Fatalf("expected snapshot id and etag, got %+v", first)
	}
	if !first.UpdatedAt.Equal(fixed) {
		t.Fatalf("expected clock time, got %s", first.UpdatedAt)
	}

	second, err := manager.Save(ctx, ref, rasdesign.SessionState{Current: "production"}, Meta{ETag: first.ETag})
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.ETag == first.ETag || second.SnapshotID == first.SnapshotID {
		t.Fatalf("expected fresh etag and snapshot id on save")
	}
}

func TestManagerSaveDetectsRace(t *testing.T) {
	manager := Manager{Store: NewMemoryStore[rasdesign.SessionState]()}
	ctx := context.Background()
	ref := Ref{ProjectHandle: "prj-1", DesignHandle: "dsg-1"}

	saved, err := manager.Save(ctx, ref, rasdesign.SessionState{Current: "basics"}, Meta{})
	if err != nil {
		t.Fatalf("seed save: %v", err)
	}

	// Another writer moves the record forward.
	if _, err = manager.Save(ctx, ref, rasdesign.SessionState{Current: "production"}, Meta{ETag: saved.ETag}); err != nil {
		t.Fatalf("competing save: %v", err)
	}

	_, err = manager.Save(ctx, ref, rasdesign.SessionState{Current: "basics"}, Meta{ETag: saved.ETag})
	if !errors.Is(err, ErrETagMismatch) {
		t.Fatalf("expected ErrETagMismatch, got %v", err)
	}

	// Saves without an expected ETag overwrite unconditionally.
	if _, err = manager.Save(ctx, ref, rasdesign.SessionState{Current: "report"}, Meta{}); err != nil {
		t.Fatalf("forced save: %v", err)
	}
}

func TestManagerResume(t *testing.T) {
	manager := Manager{Store: NewMemoryStore[rasdesign.SessionState]()}
	ctx := context.Background()
	ref := Ref{ProjectHandle: "prj-1", DesignHandle: "dsg-1"}

	state := rasdesign.SessionState{
		Identity: rasdesign.Identity{DesignHandle: "dsg-1", ProjectHandle: "prj-1"},
		Current:  "production",
		Visited:  []rasdesign.StageID{"basics"},
		Forms: map[rasdesign.StageID][]rasdesign.FieldState{
			"basics": {
				{Name: "designName", Kind: rasdesign.KindText, Text: "Pilot Farm"},
				{Name: "species", Kind: rasdesign.KindText, Text: "salmon"},
			},
		},
	}
	meta, err := manager.Save(ctx, ref, state, Meta{})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	engine := rasdesign.EngineFuncs{
		Preview: func(context.Context, rasdesign.StageID, map[string]any) (rasdesign.PreviewResult, error) {
			return rasdesign.PreviewResult{}, nil
		},
		Commit: func(context.Context, rasdesign.StageID, rasdesign.CommitMode, rasdesign.Identity, map[string]any) (rasdesign.CommitResult, error) {
			return rasdesign.CommitResult{DesignHandle: "dsg-1", ProjectHandle: "prj-1"}, nil
		},
	}
	session, resumedMeta, err := manager.Resume(ctx, ref, engine)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumedMeta.ETag != meta.ETag {
		t.Fatalf("expected stored meta returned, got %+v", resumedMeta)
	}
	if session.CurrentStage() != "production" {
		t.Fatalf("expected resumed stage production, got %s", session.CurrentStage())
	}
	if got := session.Identity(); got.DesignHandle != "dsg-1" {
		t.Fatalf("expected resumed identity, got %+v", got)
	}

	_, _, err = manager.Resume(ctx, Ref{DraftID: "missing"}, engine)
	if err == nil {
		t.Fatalf("expected error resuming unknown ref")
	}
}
