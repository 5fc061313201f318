package activity

import (
	"context"
	"sync"
)

// CaptureHook records normalized events so tests can assert on the lifecycle
// stream a session produced. Set Err to simulate a failing sink.
type CaptureHook struct {
	Events []Event
	Err    error
	mu     sync.Mutex
}

// Notify appends the normalized event and returns any configured error.
func (h *CaptureHook) Notify(_ context.Context, event Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Events = append(h.Events, NormalizeEvent(event))
	return h.Err
}

// Verbs returns the captured verbs in arrival order.
func (h *CaptureHook) Verbs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	verbs := make([]string, len(h.Events))
	for i, event := range h.Events {
		verbs[i] = event.Verb
	}
	return verbs
}
