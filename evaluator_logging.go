package rasdesign

import "time"

// EvaluatorLogEvent describes a rule evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Stage    string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records rule evaluation events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger attaches a rule evaluation logger to the session.
func WithEvaluatorLogger(logger EvaluatorLogger) SessionOption {
	return func(cfg *sessionConfig) {
		if logger == nil {
			cfg.ruleLogger = noopEvaluatorLogger{}
			return
		}
		cfg.ruleLogger = logger
	}
}
