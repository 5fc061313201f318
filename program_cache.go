package rasdesign

// ProgramCache stores compiled rule programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// WithProgramCache registers a compiled-rule cache on the session.
func WithProgramCache(cache ProgramCache) SessionOption {
	return func(cfg *sessionConfig) {
		cfg.programCache = cache
	}
}
