package rasdesign

import (
	"testing"
	"time"
)

func fixedClock() func() time.Time {
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestReadinessLoadingThenPopulated(t *testing.T) {
	store := newReadinessStore(fixedClock())

	store.markLoading(StageProduction, 1, []string{"oxygen", "flow"})
	view := store.view()
	if view["oxygen"].Status.Status != ReadinessLoading {
		t.Fatalf("expected oxygen loading, got %+v", view["oxygen"].Status)
	}

	ok := store.merge(StageProduction, 1, map[string]map[string]any{
		"oxygen": {"demandKgDay": 14.2},
	})
	if !ok {
		t.Fatalf("expected current-token merge to apply")
	}
	entry, found := store.field("oxygen", "demandKgDay")
	if !found || entry.Status != ReadinessPopulated || entry.Value != 14.2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if store.view()["flow"].Status.Status != ReadinessLoading {
		t.Fatalf("expected untouched section to remain loading")
	}
}

func TestReadinessStaleResultDiscarded(t *testing.T) {
	store := newReadinessStore(fixedClock())

	store.markLoading(StageProduction, 1, []string{"oxygen"})
	store.markLoading(StageProduction, 2, []string{"oxygen"})

	if store.merge(StageProduction, 1, map[string]map[string]any{"oxygen": {"demandKgDay": 1.0}}) {
		t.Fatalf("expected stale merge to be rejected")
	}
	if entry, found := store.field("oxygen", "demandKgDay"); found {
		t.Fatalf("expected no value from stale result, got %+v", entry)
	}

	if !store.merge(StageProduction, 2, map[string]map[string]any{"oxygen": {"demandKgDay": 2.0}}) {
		t.Fatalf("expected current merge to apply")
	}
	entry, _ := store.field("oxygen", "demandKgDay")
	if entry.Value != 2.0 {
		t.Fatalf("expected latest value 2.0, got %+v", entry)
	}
}

func TestReadinessMarkErrorDowngradesTouchedFields(t *testing.T) {
	store := newReadinessStore(fixedClock())

	store.markLoading(StageProduction, 1, []string{"oxygen", "flow"})
	store.merge(StageProduction, 1, map[string]map[string]any{
		"oxygen": {"demandKgDay": 14.2},
	})

	store.markLoading(StageProduction, 2, []string{"oxygen", "flow"})
	if !store.markError(StageProduction, 2, []string{"oxygen", "flow"}) {
		t.Fatalf("expected error mark to apply")
	}

	entry, _ := store.field("oxygen", "demandKgDay")
	if entry.Status != ReadinessError {
		t.Fatalf("expected errored field, got %+v", entry)
	}
	// Last known value survives the downgrade for display purposes.
	if entry.Value != 14.2 {
		t.Fatalf("expected stale value retained, got %+v", entry)
	}
	if store.view()["flow"].Status.Status != ReadinessError {
		t.Fatalf("expected untouched section downgraded too")
	}
}

func TestReadinessMarkErrorStaleTokenIgnored(t *testing.T) {
	store := newReadinessStore(fixedClock())

	store.markLoading(StageProduction, 1, []string{"oxygen"})
	store.markLoading(StageProduction, 2, []string{"oxygen"})
	store.merge(StageProduction, 2, map[string]map[string]any{"oxygen": {"demandKgDay": 5.0}})

	if store.markError(StageProduction, 1, []string{"oxygen"}) {
		t.Fatalf("expected stale error to be rejected")
	}
	entry, _ := store.field("oxygen", "demandKgDay")
	if entry.Status != ReadinessPopulated {
		t.Fatalf("expected populated state preserved, got %+v", entry)
	}
}

func TestReadinessViewIsDetached(t *testing.T) {
	store := newReadinessStore(fixedClock())
	store.markLoading(StageProduction, 1, []string{"oxygen"})
	store.merge(StageProduction, 1, map[string]map[string]any{"oxygen": {"demandKgDay": 1.0}})

	view := store.view()
	view["oxygen"].Fields["demandKgDay"] = ReadinessEntry{Status: ReadinessError}

	entry, _ := store.field("oxygen", "demandKgDay")
	if entry.Status != ReadinessPopulated {
		t.Fatalf("expected store unaffected by view mutation, got %+v", entry)
	}
}

func TestReadinessReset(t *testing.T) {
	store := newReadinessStore(fixedClock())
	store.markLoading(StageProduction, 3, []string{"oxygen"})
	store.merge(StageProduction, 3, map[string]map[string]any{"oxygen": {"demandKgDay": 1.0}})

	store.reset()
	if len(store.view()) != 0 {
		t.Fatalf("expected empty store after reset")
	}
	if store.merge(StageProduction, 3, map[string]map[string]any{"oxygen": {"demandKgDay": 1.0}}) {
		t.Fatalf("expected pre-reset token to be invalid")
	}
}
