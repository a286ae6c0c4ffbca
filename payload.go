package reflux

import (
	"math"
	"sort"
)

// Well-known payload field names.
const (
	FieldData        = "data"
	FieldError       = "error"
	FieldID          = "id"
	FieldClear       = "clear"
	FieldFirstOffset = "firstOffset"
	FieldMessage     = "message"
	FieldStatus      = "status"
)

// Record is a plain keyed object carried by payloads and list items.
type Record map[string]any

// Clone returns a shallow copy of the record. A nil record clones to nil.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of the record with the given keys removed.
func (r Record) Without(keys ...string) Record {
	out := r.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Keys returns the record keys in sorted order.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PayloadKind tags the shape of a Payload.
type PayloadKind int

const (
	// PayloadNone is an absent payload.
	PayloadNone PayloadKind = iota

	// PayloadRecord is a keyed object whose fields may be merged into state.
	PayloadRecord

	// PayloadSequence is an ordered list of values.
	PayloadSequence

	// PayloadScalar is any other value, stored as-is.
	PayloadScalar
)

// String returns the string representation of the kind.
func (k PayloadKind) String() string {
	switch k {
	case PayloadNone:
		return "none"
	case PayloadRecord:
		return "record"
	case PayloadSequence:
		return "sequence"
	case PayloadScalar:
		return "scalar"
	default:
		return "unknown"
	}
}

// Payload is the tagged value carried by an Action. Its shape is fixed when
// it is constructed, so reducers never have to sniff the underlying value.
// The zero Payload is PayloadNone.
type Payload struct {
	kind     PayloadKind
	record   Record
	sequence []any
	scalar   any
}

// RecordOf builds a record payload.
func RecordOf(r Record) Payload {
	if r == nil {
		r = Record{}
	}
	return Payload{kind: PayloadRecord, record: r}
}

// SequenceOf builds a sequence payload.
func SequenceOf(items []any) Payload {
	if items == nil {
		items = []any{}
	}
	return Payload{kind: PayloadSequence, sequence: items}
}

// ScalarOf builds a scalar payload. A nil value yields PayloadNone.
func ScalarOf(v any) Payload {
	if v == nil {
		return Payload{}
	}
	return Payload{kind: PayloadScalar, scalar: v}
}

// PayloadOf classifies an untyped value once, at construction time.
// Maps with string keys become records, slices of values or records become
// sequences, everything else is a scalar.
func PayloadOf(v any) Payload {
	switch val := v.(type) {
	case nil:
		return Payload{}
	case Payload:
		return val
	case Record:
		return RecordOf(val)
	case map[string]any:
		return RecordOf(Record(val))
	case []any:
		return SequenceOf(val)
	case []Record:
		items := make([]any, len(val))
		for i, r := range val {
			items[i] = r
		}
		return SequenceOf(items)
	case []map[string]any:
		items := make([]any, len(val))
		for i, r := range val {
			items[i] = Record(r)
		}
		return SequenceOf(items)
	default:
		return ScalarOf(val)
	}
}

// Kind returns the payload shape.
func (p Payload) Kind() PayloadKind {
	return p.kind
}

// IsZero reports whether the payload is absent.
func (p Payload) IsZero() bool {
	return p.kind == PayloadNone
}

// Record returns the record and true for record payloads.
func (p Payload) Record() (Record, bool) {
	if p.kind != PayloadRecord {
		return nil, false
	}
	return p.record, true
}

// Sequence returns the items and true for sequence payloads.
func (p Payload) Sequence() ([]any, bool) {
	if p.kind != PayloadSequence {
		return nil, false
	}
	return p.sequence, true
}

// Scalar returns the value and true for scalar payloads.
func (p Payload) Scalar() (any, bool) {
	if p.kind != PayloadScalar {
		return nil, false
	}
	return p.scalar, true
}

// Value returns the underlying value regardless of shape.
func (p Payload) Value() any {
	switch p.kind {
	case PayloadRecord:
		return p.record
	case PayloadSequence:
		return p.sequence
	case PayloadScalar:
		return p.scalar
	default:
		return nil
	}
}

// Field looks up a field of a record payload.
func (p Payload) Field(name string) (any, bool) {
	if p.kind != PayloadRecord {
		return nil, false
	}
	v, ok := p.record[name]
	return v, ok
}

// Flag reports whether a record payload carries a truthy field.
func (p Payload) Flag(name string) bool {
	v, _ := p.Field(name)
	return truthy(v)
}

// Merge overlays the fields of other onto a record payload and returns a
// new record payload. Non-record operands contribute no fields.
func (p Payload) Merge(other Payload) Payload {
	out := Record{}
	if r, ok := p.Record(); ok {
		for k, v := range r {
			out[k] = v
		}
	}
	if r, ok := other.Record(); ok {
		for k, v := range r {
			out[k] = v
		}
	}
	return RecordOf(out)
}

// truthy mirrors the loose truthiness used by flags in payloads.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	// NaN is the one number toFloat rejects.
	if f, ok := v.(float64); ok && math.IsNaN(f) {
		return false
	}
	return true
}
