package visibility

// Type bundles a type's schema, its TypeInfo and a Helper bound to that TypeInfo.
// It is the unit stored in a Registry.
type Type struct {
	Name string

	// Collection is the plural name used for lists of this type.
	Collection string

	// Schema is the source the description was built from. Opaque to this package.
	Schema any

	// Model is an external storage handle. Opaque to this package.
	Model any

	Description *Description
	Info        *TypeInfo
	Helper      *Helper
}

// TypeOptions carries the optional parts of a Type.
type TypeOptions struct {
	Collection  string
	Schema      any
	Model       any
	InfoOptions []InfoOption
}

// NewType builds the TypeInfo and Helper for desc. The Helper resolves
// complex references through registry. The Type is not registered.
func NewType(name string, desc *Description, registry *Registry, opts TypeOptions) *Type {
	info := NewTypeInfo(name, desc, opts.InfoOptions...)
	return &Type{
		Name:        name,
		Collection:  opts.Collection,
		Schema:      opts.Schema,
		Model:       opts.Model,
		Description: info.Description(),
		Info:        info,
		Helper:      NewHelper(info, registry),
	}
}

// CollectionName returns Collection, or Name when no collection was given.
func (t *Type) CollectionName() string {
	if t.Collection != "" {
		return t.Collection
	}
	return t.Name
}
