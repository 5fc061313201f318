package rasdesign

import "time"

// DispatchLogEvent describes one preview dispatch or completion.
type DispatchLogEvent struct {
	Stage    StageID
	Token    uint64
	Fields   int
	Duration time.Duration
	Stale    bool
	Err      error
}

// DispatchLogger records preview dispatch lifecycle events.
type DispatchLogger interface {
	LogDispatch(DispatchLogEvent)
}

// DispatchLoggerFunc adapts a function to DispatchLogger.
type DispatchLoggerFunc func(DispatchLogEvent)

// LogDispatch implements DispatchLogger.
func (f DispatchLoggerFunc) LogDispatch(event DispatchLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopDispatchLogger struct{}

func (noopDispatchLogger) LogDispatch(DispatchLogEvent) {}

// WithDispatchLogger attaches a preview dispatch logger to the session.
func WithDispatchLogger(logger DispatchLogger) SessionOption {
	return func(cfg *sessionConfig) {
		if logger == nil {
			cfg.dispatchLogger = noopDispatchLogger{}
			return
		}
		cfg.dispatchLogger = logger
	}
}
