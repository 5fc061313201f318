package rasdesign

import (
	"errors"
	"testing"
)

func TestIdentityResolverModes(t *testing.T) {
	cases := []struct {
		name     string
		resolver identityResolver
		mode     CommitMode
		err      error
	}{
		{
			name:     "empty identity creates",
			resolver: identityResolver{},
			mode:     CommitCreate,
		},
		{
			name:     "complete identity updates",
			resolver: identityResolver{identity: Identity{DesignHandle: "d", ProjectHandle: "p"}},
			mode:     CommitUpdate,
		},
		{
			name:     "partial identity refuses",
			resolver: identityResolver{identity: Identity{DesignHandle: "d"}},
			err:      ErrIncompleteIdentity,
		},
		{
			name:     "update flow with complete identity",
			resolver: identityResolver{updateFlow: true, identity: Identity{DesignHandle: "d", ProjectHandle: "p"}},
			mode:     CommitUpdate,
		},
		{
			name:     "update flow with missing handles refuses",
			resolver: identityResolver{updateFlow: true},
			err:      ErrIncompleteIdentity,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mode, err := tc.resolver.mode()
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("expected %v, got %v", tc.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("mode: %v", err)
			}
			if mode != tc.mode {
				t.Fatalf("expected %s, got %s", tc.mode, mode)
			}
		})
	}
}

func TestIdentityResolverAbsorb(t *testing.T) {
	resolver := identityResolver{}
	resolver.absorb(CommitResult{DesignHandle: "dsg-1", ProjectHandle: "prj-1"})
	if !resolver.identity.Complete() {
		t.Fatalf("expected complete identity, got %+v", resolver.identity)
	}

	// A terse update response must not blank the known handles.
	resolver.absorb(CommitResult{Status: "ok"})
	if resolver.identity.DesignHandle != "dsg-1" || resolver.identity.ProjectHandle != "prj-1" {
		t.Fatalf("expected handles retained, got %+v", resolver.identity)
	}
}

func TestIdentityPredicates(t *testing.T) {
	if !(Identity{}).Empty() {
		t.Fatalf("expected zero identity to be empty")
	}
	if (Identity{DesignHandle: "d"}).Empty() {
		t.Fatalf("expected partial identity to not be empty")
	}
	if (Identity{DesignHandle: "d"}).Complete() {
		t.Fatalf("expected partial identity to be incomplete")
	}
	if !(Identity{DesignHandle: "d", ProjectHandle: "p"}).Complete() {
		t.Fatalf("expected full identity to be complete")
	}
}
