package rasdesign

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Source names one contributor of payload fields. Higher priority values
// represent stronger sources; a stage's own form outranks upstream snapshots.
type Source struct {
	Name     string
	Label    string
	Priority int
}

// PayloadLayer pairs a source with the form values it contributes. Values are
// detached on construction so later edits cannot leak into an assembled
// payload.
type PayloadLayer struct {
	Source     Source
	Values     *FormState
	SnapshotID string
}

// NewPayloadLayer constructs a layer with an immutable copy of values.
func NewPayloadLayer(source Source, values *FormState) PayloadLayer {
	return PayloadLayer{Source: source, Values: values.Clone()}
}

var (
	// ErrSourceNameRequired indicates a payload layer without a source name.
	ErrSourceNameRequired = errors.New("payload: source name must be provided")
	// ErrDuplicateSourceName indicates two layers sharing a source name.
	ErrDuplicateSourceName = errors.New("payload: source names must be unique")
	// ErrPriorityOrder indicates duplicate source priorities; precedence must
	// be unambiguous.
	ErrPriorityOrder = errors.New("payload: priorities must be strictly ordered")
)

// PayloadStack is an immutable, precedence-ordered set of payload layers,
// strongest first.
type PayloadStack struct {
	layers []PayloadLayer
}

// NewPayloadStack validates and sorts the supplied layers so the strongest
// source (highest priority) is first. Layer values are copied to guarantee
// read-only safety after construction.
func NewPayloadStack(layers ...PayloadLayer) (*PayloadStack, error) {
	if len(layers) == 0 {
		return &PayloadStack{}, nil
	}

	seen := make(map[string]struct{}, len(layers))
	copied := make([]PayloadLayer, len(layers))
	for i, layer := range layers {
		if layer.Source.Name == "" {
			return nil, ErrSourceNameRequired
		}
		if _, ok := seen[layer.Source.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSourceName, layer.Source.Name)
		}
		seen[layer.Source.Name] = struct{}{}
		copied[i] = PayloadLayer{
			Source:     layer.Source,
			Values:     layer.Values.Clone(),
			SnapshotID: layer.SnapshotID,
		}
	}

	sort.Slice(copied, func(i, j int) bool {
		if copied[i].Source.Priority == copied[j].Source.Priority {
			return copied[i].Source.Name < copied[j].Source.Name
		}
		return copied[i].Source.Priority > copied[j].Source.Priority
	})

	for i := 1; i < len(copied); i++ {
		if copied[i-1].Source.Priority <= copied[i].Source.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Source.Priority)
		}
	}

	return &PayloadStack{layers: copied}, nil
}

// Len returns the number of layers in the stack.
func (s *PayloadStack) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge assembles the wire payload. For each field name the strongest source
// that sets it wins. Values that are empty text, NaN, or exactly zero are
// omitted rather than sent, so the engine's own defaults are not overridden
// by incidental blanks. Boolean fields are always included; their absence is
// not equivalent to unset.
func (s *PayloadStack) Merge() map[string]any {
	payload, _ := s.mergeTraced(false)
	return payload
}

// MergeWithTrace assembles the payload and reports, per included field, the
// source that supplied it.
func (s *PayloadStack) MergeWithTrace() (map[string]any, PayloadTrace) {
	return s.mergeTraced(true)
}

func (s *PayloadStack) mergeTraced(traced bool) (map[string]any, PayloadTrace) {
	payload := map[string]any{}
	trace := PayloadTrace{}
	if s == nil {
		return payload, trace
	}
	claimed := map[string]struct{}{}
	for _, layer := range s.layers {
		if layer.Values == nil {
			continue
		}
		for _, name := range layer.Values.Fields() {
			if _, taken := claimed[name]; taken {
				continue
			}
			value, _ := layer.Values.Get(name)
			if value.Kind() == KindUnknown {
				continue
			}
			// A stronger layer claims the field even when its value ends up
			// omitted; weaker layers must not resurrect it.
			claimed[name] = struct{}{}
			if value.Kind() != KindBool && value.IsEmpty() {
				continue
			}
			payload[name] = value.Value()
			if traced {
				trace.Fields = append(trace.Fields, FieldProvenance{
					Field:      name,
					Source:     layer.Source,
					SnapshotID: layer.SnapshotID,
					Value:      value.Value(),
				})
			}
		}
	}
	if traced {
		sort.Slice(trace.Fields, func(i, j int) bool {
			return trace.Fields[i].Field < trace.Fields[j].Field
		})
	}
	return payload, trace
}

// FieldProvenance details which source supplied one payload field.
type FieldProvenance struct {
	Field      string `json:"field"`
	Source     Source `json:"source"`
	SnapshotID string `json:"snapshot_id,omitempty"`
	Value      any    `json:"value,omitempty"`
}

// PayloadTrace captures provenance for every field included in an assembled
// payload.
type PayloadTrace struct {
	Stage  StageID           `json:"stage,omitempty"`
	Fields []FieldProvenance `json:"fields"`
}

// ToJSON serialises the trace for logging or transport helpers.
func (t PayloadTrace) ToJSON() ([]byte, error) {
	type alias PayloadTrace
	return json.Marshal(alias(t))
}

// PayloadTraceFromJSON deserialises a payload previously produced by ToJSON.
func PayloadTraceFromJSON(payload []byte) (PayloadTrace, error) {
	type alias PayloadTrace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return PayloadTrace{}, err
	}
	return PayloadTrace(trace), nil
}
