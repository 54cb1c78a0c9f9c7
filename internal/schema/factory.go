package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/sanitizr/internal/visibility"
)

// ErrUnknownBase is returned when Extend names a type that is not registered.
var ErrUnknownBase = errors.New("invalid base type")

// ModelFunc returns the storage handle for a collection. The result is stored
// as Type.Model and is opaque to the factory.
type ModelFunc func(collection string) any

// Factory creates Types and registers them.
type Factory struct {
	registry *visibility.Registry
	models   ModelFunc
	info     []visibility.InfoOption
	logger   *slog.Logger
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithModels attaches a storage handle to every collection the factory creates.
func WithModels(fn ModelFunc) FactoryOption {
	return func(f *Factory) {
		f.models = fn
	}
}

// WithInfoOptions applies opts to the TypeInfo of every type the factory creates.
func WithInfoOptions(opts ...visibility.InfoOption) FactoryOption {
	return func(f *Factory) {
		f.info = append(f.info, opts...)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// NewFactory creates a factory that registers into registry.
func NewFactory(registry *visibility.Registry, opts ...FactoryOption) *Factory {
	f := &Factory{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Registry returns the registry types are registered in.
func (f *Factory) Registry() *visibility.Registry {
	return f.registry
}

// Assemble creates and registers a type stored in its own collection.
func (f *Factory) Assemble(name, collection string, desc *visibility.Description) *visibility.Type {
	model := collection
	if model == "" {
		model = name
	}
	typ := f.registry.Define(name, desc, visibility.TypeOptions{
		Collection:  collection,
		Schema:      desc,
		Model:       f.model(model),
		InfoOptions: f.info,
	})
	f.logger.Debug("type assembled", "type", name, "collection", typ.CollectionName())
	return typ
}

// Extend creates and registers a type that inherits every property of base and
// shares its collection. Properties declared in desc take precedence over the
// base's.
func (f *Factory) Extend(name, base string, desc *visibility.Description) (*visibility.Type, error) {
	baseType, ok := f.registry.Lookup(base)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownBase, base)
	}
	desc.Inherit(baseType.Description)

	typ := f.registry.Define(name, desc, visibility.TypeOptions{
		Collection:  baseType.Collection,
		Schema:      desc,
		Model:       baseType.Model,
		InfoOptions: f.info,
	})
	inheritComplex(typ, baseType)
	f.logger.Debug("type extended", "type", name, "base", base, "collection", typ.CollectionName())
	return typ, nil
}

// ExtendWithCollection is Extend with a collection of its own.
func (f *Factory) ExtendWithCollection(name, base, collection string, desc *visibility.Description) (*visibility.Type, error) {
	baseType, ok := f.registry.Lookup(base)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownBase, base)
	}
	desc.Inherit(baseType.Description)

	typ := f.registry.Define(name, desc, visibility.TypeOptions{
		Collection:  collection,
		Schema:      desc,
		Model:       f.model(collection),
		InfoOptions: f.info,
	})
	inheritComplex(typ, baseType)
	f.logger.Debug("type extended", "type", name, "base", base, "collection", collection)
	return typ, nil
}

// Build registers a compiled definition. Its base must already be registered.
func (f *Factory) Build(def *TypeDef) (*visibility.Type, error) {
	var (
		typ *visibility.Type
		err error
	)
	switch {
	case def.Extends == "":
		typ = f.Assemble(def.Name, def.Collection, def.Description)
	case def.Collection == "":
		typ, err = f.Extend(def.Name, def.Extends, def.Description)
	default:
		typ, err = f.ExtendWithCollection(def.Name, def.Extends, def.Collection, def.Description)
	}
	if err != nil {
		return nil, err
	}
	typ.Schema = def.Source

	refs := make([]string, 0, len(def.Complex))
	for prop := range def.Complex {
		refs = append(refs, prop)
	}
	slices.Sort(refs)
	for _, prop := range refs {
		if err := typ.Info.MarkComplex(prop, def.Complex[prop]); err != nil {
			return nil, err
		}
	}
	return typ, nil
}

func (f *Factory) model(collection string) any {
	if f.models == nil || collection == "" {
		return nil
	}
	return f.models(collection)
}

// inheritComplex copies the base's complex marks for properties the derived
// type did not redeclare.
func inheritComplex(typ, base *visibility.Type) {
	for _, prop := range base.Info.ComplexProperties() {
		if typ.Info.IsComplex(prop) {
			continue
		}
		ref, _ := base.Info.Complex(prop)
		if p, ok := typ.Description.Property(prop); ok {
			if bp, ok := base.Description.Property(prop); ok && p != bp {
				continue
			}
		}
		_ = typ.Info.MarkComplex(prop, ref)
	}
}
