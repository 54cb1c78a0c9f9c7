package visibility

import (
	"slices"
)

// UserClass identifies an audience. Any non-empty string is a valid class.
type UserClass string

// Canonical user classes.
const (
	UserClassAdmin UserClass = "admin"
	UserClassUser  UserClass = "user"
)

// DefaultUserClass is used when a query or Options leaves the class empty.
const DefaultUserClass = UserClassUser

// Attribute is a visibility tag.
type Attribute string

// Attribute tags.
const (
	// Concealed fields keep their key but the value is replaced with a placeholder.
	Concealed Attribute = "concealed"
	// Hidden fields are removed for the user class.
	Hidden Attribute = "hidden"
	// ReadOnly fields may not be written by the user class.
	ReadOnly Attribute = "readOnly"
)

// AllAttributes lists every known tag.
var AllAttributes = []Attribute{Concealed, Hidden, ReadOnly}

// IsValid reports whether a is one of the known tags.
func (a Attribute) IsValid() bool {
	return slices.Contains(AllAttributes, a)
}

// ParseAttribute converts a tag name into an Attribute.
func ParseAttribute(s string) (Attribute, bool) {
	a := Attribute(s)
	return a, a.IsValid()
}

// AttributeSet is a deduplicated set of attributes.
type AttributeSet map[Attribute]struct{}

// NewAttributeSet builds a set from attrs.
func NewAttributeSet(attrs ...Attribute) AttributeSet {
	s := make(AttributeSet, len(attrs))
	s.Add(attrs...)
	return s
}

// Add unions attrs into the set.
func (s AttributeSet) Add(attrs ...Attribute) {
	for _, a := range attrs {
		s[a] = struct{}{}
	}
}

// Has reports whether a is in the set. Safe on a nil set.
func (s AttributeSet) Has(a Attribute) bool {
	_, ok := s[a]
	return ok
}

// Len returns the number of attributes.
func (s AttributeSet) Len() int {
	return len(s)
}

// Clone returns an independent copy.
func (s AttributeSet) Clone() AttributeSet {
	out := make(AttributeSet, len(s))
	for a := range s {
		out[a] = struct{}{}
	}
	return out
}

// Slice returns the attributes sorted by name.
func (s AttributeSet) Slice() []Attribute {
	out := make([]Attribute, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
