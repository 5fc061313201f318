package rasdesign

import (
	"context"
	"fmt"
)

// identityResolver decides whether a stage commit creates a new backend
// design or updates an existing one, and absorbs the handles the engine
// returns. updateFlow is set at construction and never changes; create flows
// become updates only after the first commit yields a complete identity.
type identityResolver struct {
	identity   Identity
	updateFlow bool
	created    bool
}

func (r *identityResolver) mode() (CommitMode, error) {
	if r.updateFlow {
		if !r.identity.Complete() {
			return CommitUpdate, fmt.Errorf("%w: update flow requires design and project handles", ErrIncompleteIdentity)
		}
		return CommitUpdate, nil
	}
	if r.identity.Complete() {
		return CommitUpdate, nil
	}
	if r.identity.Empty() {
		return CommitCreate, nil
	}
	return CommitCreate, fmt.Errorf("%w: have design=%q project=%q", ErrIncompleteIdentity, r.identity.DesignHandle, r.identity.ProjectHandle)
}

// absorb retains any handles the engine returned; missing fields keep their
// prior values so a terse update response cannot blank the identity.
func (r *identityResolver) absorb(res CommitResult) {
	if res.DesignHandle != "" {
		r.identity.DesignHandle = res.DesignHandle
	}
	if res.ProjectHandle != "" {
		r.identity.ProjectHandle = res.ProjectHandle
	}
	if r.identity.Complete() {
		r.created = true
	}
}

// commitLocked persists the stage being left. The first stage in a create
// flow is the only point a create is issued; every later commit must carry a
// usable identity.
func (s *Session) commitLocked(ctx context.Context, desc StageDescriptor, final bool) error {
	if desc.ID != s.stages[0].ID && !s.resolver.updateFlow && s.resolver.identity.Empty() {
		err := fmt.Errorf("%w: stage %s committed before a design was created", ErrMissingIdentity, desc.ID)
		s.lastCommitErr = err
		return err
	}
	mode, err := s.resolver.mode()
	if err != nil {
		s.lastCommitErr = err
		return err
	}
	payload, err := s.payloadForLocked(desc.ID)
	if err != nil {
		s.lastCommitErr = err
		return err
	}

	res, err := s.engine.CommitStage(ctx, desc.ID, mode, s.resolver.identity, payload)
	if err != nil {
		rejected := &CommitRejectedError{Stage: desc.ID, Mode: mode, Message: err.Error(), Err: err}
		s.lastCommitErr = rejected
		return rejected
	}
	s.resolver.absorb(res)
	if !s.resolver.identity.Complete() {
		err := fmt.Errorf("%w: engine returned no usable handles for stage %s", ErrMissingIdentity, desc.ID)
		s.lastCommitErr = err
		return err
	}
	s.lastCommitErr = nil
	s.emitCommit(mode, desc, final)
	return nil
}
