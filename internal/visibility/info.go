package visibility

import (
	"fmt"
	"maps"
	"slices"
)

// TypeInfo answers visibility and complex-reference queries for one type.
//
// The visibility index covers first-level properties and RootProperty and is
// built when the TypeInfo is created. Attributes on an array element are
// reported for the array property. TypeInfo never registers itself; see Registry.
type TypeInfo struct {
	name         string
	desc         *Description
	defaultClass UserClass
	index        map[string]map[UserClass]AttributeSet
	complex      map[string]string
}

// InfoOption configures a TypeInfo.
type InfoOption func(*TypeInfo)

// WithDefaultUserClass sets the class used when a query leaves it empty.
func WithDefaultUserClass(class UserClass) InfoOption {
	return func(ti *TypeInfo) {
		if class != "" {
			ti.defaultClass = class
		}
	}
}

// NewTypeInfo indexes desc under name.
func NewTypeInfo(name string, desc *Description, opts ...InfoOption) *TypeInfo {
	if desc == nil {
		desc = NewDescription()
	}
	ti := &TypeInfo{
		name:         name,
		desc:         desc,
		defaultClass: DefaultUserClass,
		index:        make(map[string]map[UserClass]AttributeSet),
		complex:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(ti)
	}

	ti.indexPath(RootProperty, Path{RootProperty})
	for _, name := range desc.Names() {
		ti.indexPath(name, Path{name})
		ti.indexPath(name, Path{name, ElementSegment})
	}
	return ti
}

func (ti *TypeInfo) indexPath(property string, path Path) {
	classes := ti.desc.attrs.Classes(path)
	if len(classes) == 0 {
		return
	}
	byClass, ok := ti.index[property]
	if !ok {
		byClass = make(map[UserClass]AttributeSet, len(classes))
		ti.index[property] = byClass
	}
	for class, set := range classes {
		if existing, ok := byClass[class]; ok {
			existing.Add(set.Slice()...)
			continue
		}
		byClass[class] = set
	}
}

// Name returns the type name.
func (ti *TypeInfo) Name() string {
	return ti.name
}

// Is reports whether name is exactly the type name.
func (ti *TypeInfo) Is(name string) bool {
	return ti.name == name
}

// Description returns the indexed description.
func (ti *TypeInfo) Description() *Description {
	return ti.desc
}

// DefaultUserClass returns the class used for empty class arguments.
func (ti *TypeInfo) DefaultUserClass() UserClass {
	return ti.defaultClass
}

// Has reports whether property carries visibility metadata for any class.
func (ti *TypeInfo) Has(property string) bool {
	_, ok := ti.index[property]
	return ok
}

// Properties returns the properties with visibility metadata, sorted.
func (ti *TypeInfo) Properties() []string {
	return slices.Sorted(maps.Keys(ti.index))
}

// Attributes returns a copy of the attribute set for property and class.
func (ti *TypeInfo) Attributes(property string, class UserClass) AttributeSet {
	return ti.lookup(property, class).Clone()
}

func (ti *TypeInfo) lookup(property string, class UserClass) AttributeSet {
	if class == "" {
		class = ti.defaultClass
	}
	return ti.index[property][class]
}

// IsHidden reports whether property is hidden for class.
func (ti *TypeInfo) IsHidden(property string, class UserClass) bool {
	return ti.lookup(property, class).Has(Hidden)
}

// IsReadOnly reports whether property is read-only for class. Concealed
// properties are always read-only.
func (ti *TypeInfo) IsReadOnly(property string, class UserClass) bool {
	set := ti.lookup(property, class)
	return set.Has(ReadOnly) || set.Has(Concealed)
}

// IsConcealed reports whether property is concealed for class.
func (ti *TypeInfo) IsConcealed(property string, class UserClass) bool {
	return ti.lookup(property, class).Has(Concealed)
}

// MarkComplex records that values of property are instances of typeName.
// The type does not need to be registered yet.
func (ti *TypeInfo) MarkComplex(property, typeName string) error {
	if typeName == "" {
		return &InfoError{
			Code:     ErrCodeMissingComplexType,
			Message:  fmt.Sprintf("property '%s' cannot be marked complex without a referenced type", property),
			Property: property,
			Type:     ti.name,
		}
	}
	ti.complex[property] = typeName
	return nil
}

// IsComplex reports whether property references another type.
func (ti *TypeInfo) IsComplex(property string) bool {
	_, ok := ti.complex[property]
	return ok
}

// Complex returns the type name referenced by property.
func (ti *TypeInfo) Complex(property string) (string, bool) {
	name, ok := ti.complex[property]
	return name, ok
}

// ComplexProperties returns the complex property names, sorted.
func (ti *TypeInfo) ComplexProperties() []string {
	return slices.Sorted(maps.Keys(ti.complex))
}
