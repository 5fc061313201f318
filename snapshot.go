package rasdesign

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is an immutable, detached copy of an upstream stage's form taken
// when a dependent stage is entered. Snapshots are replaced wholesale, never
// patched field by field.
type Snapshot struct {
	ID       string
	Stage    StageID
	TakenAt  time.Time
	revision uint64
	values   *FormState
}

// Values returns a detached copy of the snapshotted form.
func (s *Snapshot) Values() *FormState {
	if s == nil {
		return NewFormState()
	}
	return s.values.Clone()
}

// snapshotCache owns at most one snapshot per producing stage.
type snapshotCache struct {
	snaps map[StageID]*Snapshot
	clock func() time.Time
}

func newSnapshotCache(clock func() time.Time) *snapshotCache {
	if clock == nil {
		clock = time.Now
	}
	return &snapshotCache{snaps: map[StageID]*Snapshot{}, clock: clock}
}

// capture deep-copies form into a new snapshot for stage, superseding any
// prior one.
func (c *snapshotCache) capture(stage StageID, form *FormState) *Snapshot {
	snap := &Snapshot{
		ID:       uuid.NewString(),
		Stage:    stage,
		TakenAt:  c.clock(),
		revision: form.Revision(),
		values:   form.Clone(),
	}
	c.snaps[stage] = snap
	return snap
}

// refresh re-captures when the producing form changed since the last capture,
// so a user who backtracks, edits, and returns sees previews built from the
// edit. Unchanged forms keep their existing snapshot.
func (c *snapshotCache) refresh(stage StageID, form *FormState) *Snapshot {
	snap, ok := c.snaps[stage]
	if !ok || snap.revision != form.Revision() {
		return c.capture(stage, form)
	}
	return snap
}

func (c *snapshotCache) get(stage StageID) (*Snapshot, bool) {
	snap, ok := c.snaps[stage]
	return snap, ok
}

func (c *snapshotCache) reset() {
	c.snaps = map[StageID]*Snapshot{}
}
