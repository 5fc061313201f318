package activity

import (
	"context"
	"strings"
)

// DefaultChannel is the feed channel stamped on events that do not name one.
const DefaultChannel = "rasdesign"

// Config controls activity emission. Sessions construct an Emitter from it
// at build time; a disabled config turns every Emit into a no-op.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter fans out design lifecycle events to hooks, applying the channel
// default. A nil Emitter is safe to call.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
}

// NewEmitter constructs an emitter from hooks and configuration.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	active := compactHooks(hooks)
	return &Emitter{
		hooks:   active,
		enabled: cfg.Enabled && len(active) > 0,
		channel: channel,
	}
}

// Enabled reports whether emissions should be attempted. Callers use this to
// skip event construction entirely when nothing listens.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled && len(e.hooks) > 0
}

// Emit forwards the event to all hooks, stamping the default channel when
// the producer left it blank.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	return e.hooks.Notify(ctx, event)
}

// compactHooks drops nil entries so fan-out never has to re-check them.
func compactHooks(hooks Hooks) Hooks {
	if len(hooks) == 0 {
		return nil
	}
	active := make(Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			active = append(active, hook)
		}
	}
	return active
}
