package visibility

import (
	"slices"
	"strings"
)

// RootProperty is the pseudo-property that carries whole-record attributes.
const RootProperty = "__ROOT__"

// ElementSegment addresses the element descriptor of an array property in a Path.
const ElementSegment = "[]"

// PropertyKind distinguishes the descriptor shapes a Description can hold.
type PropertyKind int

const (
	// KindUndefined is a declared property without a descriptor.
	KindUndefined PropertyKind = iota
	// KindField is a descriptor object for a single value.
	KindField
	// KindShorthand is a bare type marker that was never given a descriptor.
	// Decorating it is an authoring mistake.
	KindShorthand
	// KindNested is a structurally nested description.
	KindNested
	// KindArray is an array-of-sub-records placeholder; Elem describes one element.
	KindArray
)

// String returns the kind name.
func (k PropertyKind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindField:
		return "field"
	case KindShorthand:
		return "shorthand"
	case KindNested:
		return "nested"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Property describes one entry of a Description.
type Property struct {
	Kind PropertyKind

	// Type is the scalar type name for fields and shorthands ("string", "int", ...).
	Type string

	// Nested is set for KindNested.
	Nested *Description

	// Elem is set for KindArray.
	Elem *Property
}

// Clone copies p and every description or element below it.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	c := *p
	c.Nested = p.Nested.cloneStructure()
	c.Elem = p.Elem.Clone()
	return &c
}

// Field returns a descriptor for a single value of the given type.
func Field(typ string) *Property {
	return &Property{Kind: KindField, Type: typ}
}

// Shorthand returns a bare type marker.
func Shorthand(typ string) *Property {
	return &Property{Kind: KindShorthand, Type: typ}
}

// Nested returns a property holding a nested description.
func Nested(d *Description) *Property {
	return &Property{Kind: KindNested, Nested: d}
}

// ArrayOf returns an array placeholder whose elements are described by elem.
func ArrayOf(elem *Property) *Property {
	return &Property{Kind: KindArray, Elem: elem}
}

// Undefined returns a declared property without a descriptor.
func Undefined() *Property {
	return &Property{Kind: KindUndefined}
}

// Description is the shape of a record type plus its attribute side-table.
//
// Attributes for nested properties are stored in the table of the top-level
// Description under their full path; nested Descriptions only carry structure.
type Description struct {
	props      map[string]*Property
	composites []string
	attrs      *AttributeTable
}

// NewDescription creates an empty description.
func NewDescription() *Description {
	return &Description{
		props: make(map[string]*Property),
		attrs: NewAttributeTable(),
	}
}

// Set adds or replaces a property and returns d for chaining.
func (d *Description) Set(name string, p *Property) *Description {
	d.props[name] = p
	return d
}

// Property returns the named property.
func (d *Description) Property(name string) (*Property, bool) {
	p, ok := d.props[name]
	return p, ok
}

// Names returns property names in sorted order.
func (d *Description) Names() []string {
	names := make([]string, 0, len(d.props))
	for name := range d.props {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of first-level properties.
func (d *Description) Len() int {
	return len(d.props)
}

// cloneStructure copies the properties and composites of d. Nested
// descriptions carry no attributes, so the copy gets an empty table.
func (d *Description) cloneStructure() *Description {
	if d == nil {
		return nil
	}
	c := NewDescription()
	for name, p := range d.props {
		c.props[name] = p.Clone()
	}
	c.composites = slices.Clone(d.composites)
	return c
}

// Composites returns the properties added through DecorateComposite.
func (d *Description) Composites() []string {
	return slices.Clone(d.composites)
}

// IsComposite reports whether name was added through DecorateComposite.
func (d *Description) IsComposite(name string) bool {
	return slices.Contains(d.composites, name)
}

// Attributes returns the attribute side-table.
func (d *Description) Attributes() *AttributeTable {
	return d.attrs
}

// Inherit copies every property of base that d does not declare itself,
// deeply, so later decoration of d never changes base's structure,
// together with base's attributes for those properties and base's composites.
// Whole-record attributes are inherited only when d has none of its own.
func (d *Description) Inherit(base *Description) {
	inherited := make(map[string]bool)
	for name, p := range base.props {
		if _, exists := d.props[name]; exists {
			continue
		}
		d.props[name] = p.Clone()
		inherited[name] = true
		if base.IsComposite(name) && !d.IsComposite(name) {
			d.composites = append(d.composites, name)
		}
	}
	if !d.attrs.Has(Path{RootProperty}) {
		inherited[RootProperty] = true
	}

	for _, e := range base.attrs.Entries() {
		if len(e.Path) == 0 || !inherited[e.Path[0]] {
			continue
		}
		d.attrs.Add(e.Path, e.UserClass, e.Attributes...)
	}
}

// Path addresses a property inside a Description. Array elements use ElementSegment.
type Path []string

// String joins the segments with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

func (p Path) key() string {
	return strings.Join(p, "\x00")
}

// AttributeEntry is one row of an AttributeTable.
type AttributeEntry struct {
	Path       Path        `json:"path"`
	UserClass  UserClass   `json:"user_class"`
	Attributes []Attribute `json:"attributes"`
}

// AttributeTable maps (property path, user class) to an attribute set.
type AttributeTable struct {
	paths   map[string]Path
	entries map[string]map[UserClass]AttributeSet
}

// NewAttributeTable creates an empty table.
func NewAttributeTable() *AttributeTable {
	return &AttributeTable{
		paths:   make(map[string]Path),
		entries: make(map[string]map[UserClass]AttributeSet),
	}
}

// Add unions attrs into the set stored for (path, class).
func (t *AttributeTable) Add(path Path, class UserClass, attrs ...Attribute) {
	k := path.key()
	byClass, ok := t.entries[k]
	if !ok {
		byClass = make(map[UserClass]AttributeSet)
		t.entries[k] = byClass
		t.paths[k] = slices.Clone(path)
	}
	set, ok := byClass[class]
	if !ok {
		set = make(AttributeSet)
		byClass[class] = set
	}
	set.Add(attrs...)
}

// Get returns a copy of the set for (path, class). Undecorated pairs yield an empty set.
func (t *AttributeTable) Get(path Path, class UserClass) AttributeSet {
	return t.entries[path.key()][class].Clone()
}

// Has reports whether any class has attributes stored for path.
func (t *AttributeTable) Has(path Path) bool {
	_, ok := t.entries[path.key()]
	return ok
}

// Classes returns a copy of every class's set stored for path.
func (t *AttributeTable) Classes(path Path) map[UserClass]AttributeSet {
	byClass, ok := t.entries[path.key()]
	if !ok {
		return nil
	}
	out := make(map[UserClass]AttributeSet, len(byClass))
	for class, set := range byClass {
		out[class] = set.Clone()
	}
	return out
}

// Entries returns every row sorted by path then user class.
func (t *AttributeTable) Entries() []AttributeEntry {
	out := make([]AttributeEntry, 0, len(t.entries))
	for k, byClass := range t.entries {
		for class, set := range byClass {
			out = append(out, AttributeEntry{
				Path:       slices.Clone(t.paths[k]),
				UserClass:  class,
				Attributes: set.Slice(),
			})
		}
	}
	slices.SortFunc(out, func(a, b AttributeEntry) int {
		if c := strings.Compare(a.Path.String(), b.Path.String()); c != 0 {
			return c
		}
		return strings.Compare(string(a.UserClass), string(b.UserClass))
	})
	return out
}
