package record

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the shapes a record can hold.
// Only Null, String, Int, Float, Bool, List and Record implement it.
type Value interface {
	recordValue() // Sealed
}

// Null represents an explicit JSON null.
type Null struct{}

func (Null) recordValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string scalar.
type String string

func (String) recordValue() {}

// Int is an integer scalar. Always int64.
type Int int64

func (Int) recordValue() {}

// Float is a non-integral number.
type Float float64

func (Float) recordValue() {}

// Bool is a boolean scalar.
type Bool bool

func (Bool) recordValue() {}

// List is an ordered sequence of values.
type List []Value

func (List) recordValue() {}

// Record is a keyed structure. Use SortedKeys for deterministic iteration.
type Record map[string]Value

func (Record) recordValue() {}

// IDField is the key ReduceComplex and the store use as a record's identity.
const IDField = "id"

// Shape classifies a value for dispatch.
type Shape int

const (
	// ShapeNull is an explicit null or a nil Value.
	ShapeNull Shape = iota
	// ShapeScalar is a String, Int, Float or Bool.
	ShapeScalar
	// ShapeRecord is a single Record.
	ShapeRecord
	// ShapeRecordArray is a List whose elements are all Records (an empty List counts).
	ShapeRecordArray
	// ShapeList is a List holding at least one non-Record element.
	ShapeList
)

// String returns the shape name used in error messages.
func (s Shape) String() string {
	switch s {
	case ShapeNull:
		return "null"
	case ShapeScalar:
		return "scalar"
	case ShapeRecord:
		return "record"
	case ShapeRecordArray:
		return "record array"
	case ShapeList:
		return "list"
	default:
		return "unknown"
	}
}

// ShapeOf resolves the shape of v.
func ShapeOf(v Value) Shape {
	switch val := v.(type) {
	case nil, Null:
		return ShapeNull
	case Record:
		if val == nil {
			return ShapeNull
		}
		return ShapeRecord
	case List:
		for _, elem := range val {
			if _, ok := elem.(Record); !ok {
				return ShapeList
			}
		}
		return ShapeRecordArray
	default:
		return ShapeScalar
	}
}

// IsNull reports whether v is an explicit null (or a nil Value).
func IsNull(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	}
	return false
}

// Clone returns a copy of the record's own key set. Nested values are shared.
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

// ID returns the record's id field.
func (r Record) ID() (Value, bool) {
	id, ok := r[IDField]
	return id, ok
}

// SortedKeys returns keys in UTF-16 code unit order (RFC 8785).
// Go's sort.Strings compares UTF-8 bytes, which orders some keys differently.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysUTF16)
	return keys
}

// Clone returns a copy of the list. Elements are shared.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
