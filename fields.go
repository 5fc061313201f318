package rasdesign

import (
	"encoding/json"
	"math"
)

// Kind identifies the scalar type carried by a FieldValue.
type Kind int

const (
	// KindUnknown guards against misconfiguration so call sites can detect
	// values that were never set.
	KindUnknown Kind = iota
	// KindNumber represents a numeric input (volumes, rates, counts).
	KindNumber
	// KindText represents a free-form or categorical text input.
	KindText
	// KindBool represents an explicit on/off toggle.
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ParseKind converts a string representation into the corresponding Kind.
// Returns KindUnknown for unrecognised values.
func ParseKind(value string) Kind {
	switch value {
	case "number", "NUMBER":
		return KindNumber
	case "text", "TEXT":
		return KindText
	case "bool", "BOOL":
		return KindBool
	default:
		return KindUnknown
	}
}

// MarshalJSON encodes the kind as its string name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string name.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*k = ParseKind(name)
	return nil
}

// FieldValue is a typed scalar held by a form. The zero value has KindUnknown
// and is treated as never set.
type FieldValue struct {
	kind Kind
	num  float64
	text string
	flag bool
}

// Number wraps a numeric input.
func Number(value float64) FieldValue {
	return FieldValue{kind: KindNumber, num: value}
}

// Text wraps a textual input.
func Text(value string) FieldValue {
	return FieldValue{kind: KindText, text: value}
}

// Bool wraps a boolean toggle.
func Bool(value bool) FieldValue {
	return FieldValue{kind: KindBool, flag: value}
}

// Kind reports the scalar type of the value.
func (v FieldValue) Kind() Kind { return v.kind }

// Float64 returns the numeric content; zero for non-numeric kinds.
func (v FieldValue) Float64() float64 {
	if v.kind != KindNumber {
		return 0
	}
	return v.num
}

// Text returns the textual content; empty for non-text kinds.
func (v FieldValue) Text() string {
	if v.kind != KindText {
		return ""
	}
	return v.text
}

// Bool returns the boolean content; false for non-bool kinds.
func (v FieldValue) Bool() bool {
	if v.kind != KindBool {
		return false
	}
	return v.flag
}

// IsEmpty reports whether the value carries no meaningful input: never-set
// values, empty strings, and numbers that are zero or NaN. Booleans are never
// empty; an explicit false is still an answer.
func (v FieldValue) IsEmpty() bool {
	switch v.kind {
	case KindNumber:
		return v.num == 0 || math.IsNaN(v.num)
	case KindText:
		return v.text == ""
	case KindBool:
		return false
	default:
		return true
	}
}

// Value returns the underlying scalar as an untyped value for payloads and
// rule environments. Unknown values map to nil.
func (v FieldValue) Value() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindText:
		return v.text
	case KindBool:
		return v.flag
	default:
		return nil
	}
}

// FormState is an insertion-ordered mapping from field name to scalar value.
// One FormState exists per stage; it is mutated by field edits and reset only
// on an explicit start-over.
type FormState struct {
	order  []string
	values map[string]FieldValue
	rev    uint64
}

// NewFormState constructs an empty form.
func NewFormState() *FormState {
	return &FormState{values: map[string]FieldValue{}}
}

// Set stores value under name, preserving first-set ordering, and bumps the
// revision counter used for snapshot freshness checks.
func (f *FormState) Set(name string, value FieldValue) {
	if name == "" {
		return
	}
	if _, exists := f.values[name]; !exists {
		f.order = append(f.order, name)
	}
	f.values[name] = value
	f.rev++
}

// Get returns the value stored under name.
func (f *FormState) Get(name string) (FieldValue, bool) {
	value, ok := f.values[name]
	return value, ok
}

// Fields returns field names in first-set order.
func (f *FormState) Fields() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// Len returns the number of fields set on the form.
func (f *FormState) Len() int {
	return len(f.values)
}

// Revision returns a counter incremented on every Set. Snapshots record the
// revision they were taken at so refreshes can detect upstream edits.
func (f *FormState) Revision() uint64 {
	if f == nil {
		return 0
	}
	return f.rev
}

// Clone returns a detached copy of the form, including ordering and revision.
func (f *FormState) Clone() *FormState {
	if f == nil {
		return NewFormState()
	}
	clone := &FormState{
		order:  make([]string, len(f.order)),
		values: make(map[string]FieldValue, len(f.values)),
		rev:    f.rev,
	}
	copy(clone.order, f.order)
	for name, value := range f.values {
		clone.values[name] = value
	}
	return clone
}

// binding exposes the form as a plain map for rule evaluation environments.
func (f *FormState) binding() map[string]any {
	if f == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(f.values))
	for name, value := range f.values {
		out[name] = value.Value()
	}
	return out
}
