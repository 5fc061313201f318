package rasdesign

import "time"

// ReadinessStatus describes whether an output field has been computed, is
// pending, or failed.
type ReadinessStatus string

const (
	ReadinessEmpty     ReadinessStatus = "empty"
	ReadinessLoading   ReadinessStatus = "loading"
	ReadinessPopulated ReadinessStatus = "populated"
	ReadinessError     ReadinessStatus = "error"
)

// ReadinessEntry is one output field's status alongside its last known value.
type ReadinessEntry struct {
	Status    ReadinessStatus
	Value     any
	UpdatedAt time.Time
}

// SectionReadiness groups output fields under a named section (for example
// "oxygen" or "stage1-flow").
type SectionReadiness struct {
	Status ReadinessEntry
	Fields map[string]ReadinessEntry
}

type fieldKey struct {
	section string
	field   string
}

// readinessStore tracks per-section, per-field output status. Writes are
// token gated: a result or error belonging to a superseded preview request
// never overwrites fresher state.
type readinessStore struct {
	sections map[string]SectionReadiness
	latest   map[StageID]uint64
	touched  map[StageID][]fieldKey
	clock    func() time.Time
}

func newReadinessStore(clock func() time.Time) *readinessStore {
	if clock == nil {
		clock = time.Now
	}
	return &readinessStore{
		sections: map[string]SectionReadiness{},
		latest:   map[StageID]uint64{},
		touched:  map[StageID][]fieldKey{},
		clock:    clock,
	}
}

// markLoading records token as the current request for stage and flips the
// stage's sections (and any fields they already hold) to loading. It runs at
// dispatch time, never at schedule time, so values do not flicker during the
// debounce window.
func (r *readinessStore) markLoading(stage StageID, token uint64, sections []string) {
	r.latest[stage] = token
	now := r.clock()
	for _, name := range sections {
		section, ok := r.sections[name]
		if !ok {
			section = SectionReadiness{Fields: map[string]ReadinessEntry{}}
		}
		section.Status = ReadinessEntry{Status: ReadinessLoading, UpdatedAt: now}
		for field, entry := range section.Fields {
			entry.Status = ReadinessLoading
			entry.UpdatedAt = now
			section.Fields[field] = entry
		}
		r.sections[name] = section
	}
}

// merge applies a sectioned partial result, but only when token is still the
// current request for stage; stale results are discarded wholesale.
func (r *readinessStore) merge(stage StageID, token uint64, result map[string]map[string]any) bool {
	if r.latest[stage] != token {
		return false
	}
	now := r.clock()
	var touched []fieldKey
	for name, fields := range result {
		section, ok := r.sections[name]
		if !ok {
			section = SectionReadiness{Fields: map[string]ReadinessEntry{}}
		}
		section.Status = ReadinessEntry{Status: ReadinessPopulated, UpdatedAt: now}
		for field, value := range fields {
			section.Fields[field] = ReadinessEntry{
				Status:    ReadinessPopulated,
				Value:     value,
				UpdatedAt: now,
			}
			touched = append(touched, fieldKey{section: name, field: field})
		}
		r.sections[name] = section
	}
	r.touched[stage] = touched
	return true
}

// markError downgrades the sections last populated for stage to the error
// status. A stale token is a no-op so late failures never clobber fresher
// loading or populated state.
func (r *readinessStore) markError(stage StageID, token uint64, sections []string) bool {
	if r.latest[stage] != token {
		return false
	}
	now := r.clock()
	seen := map[string]struct{}{}
	for _, key := range r.touched[stage] {
		section, ok := r.sections[key.section]
		if !ok {
			continue
		}
		entry := section.Fields[key.field]
		entry.Status = ReadinessError
		entry.UpdatedAt = now
		section.Fields[key.field] = entry
		section.Status = ReadinessEntry{Status: ReadinessError, UpdatedAt: now}
		r.sections[key.section] = section
		seen[key.section] = struct{}{}
	}
	for _, name := range sections {
		if _, done := seen[name]; done {
			continue
		}
		section, ok := r.sections[name]
		if !ok {
			section = SectionReadiness{Fields: map[string]ReadinessEntry{}}
		}
		section.Status = ReadinessEntry{Status: ReadinessError, UpdatedAt: now}
		r.sections[name] = section
	}
	return true
}

func (r *readinessStore) reset() {
	r.sections = map[string]SectionReadiness{}
	r.latest = map[StageID]uint64{}
	r.touched = map[StageID][]fieldKey{}
}

// view returns a detached copy safe to hand to the presentation layer.
func (r *readinessStore) view() map[string]SectionReadiness {
	out := make(map[string]SectionReadiness, len(r.sections))
	for name, section := range r.sections {
		fields := make(map[string]ReadinessEntry, len(section.Fields))
		for field, entry := range section.Fields {
			fields[field] = entry
		}
		out[name] = SectionReadiness{Status: section.Status, Fields: fields}
	}
	return out
}

func (r *readinessStore) field(section, field string) (ReadinessEntry, bool) {
	s, ok := r.sections[section]
	if !ok {
		return ReadinessEntry{}, false
	}
	entry, ok := s.Fields[field]
	return entry, ok
}
