package schema

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sanitizr/internal/visibility"
)

const (
	visibilityAttr = "visibility"
	complexAttr    = "complex"
)

// TypeDef is a compiled type definition.
type TypeDef struct {
	Name       string
	Collection string
	Extends    string

	// Description is decorated with every @visibility attribute of the definition.
	Description *visibility.Description

	// Complex maps first-level properties to the type they reference.
	Complex map[string]string

	// Source is the CUE value the definition was compiled from.
	Source cue.Value
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// decoration is one @visibility argument waiting to be applied.
type decoration struct {
	path  []string
	class visibility.UserClass
	attr  visibility.Attribute
	pos   token.Pos
}

// CompileType parses a CUE value into a TypeDef.
//
// The value should be the type struct itself:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`type: person: { fields: { id: string } }`)
//	def, err := CompileType(v.LookupPath(cue.ParsePath("type.person")))
func CompileType(v cue.Value) (*TypeDef, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &TypeDef{
		Description: visibility.NewDescription(),
		Complex:     make(map[string]string),
		Source:      v,
	}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].Unquoted()
	}
	if def.Name == "" {
		return nil, &CompileError{Field: "type", Message: "type name is required", Pos: v.Pos()}
	}

	var err error
	if def.Collection, err = optionalString(v, "collection"); err != nil {
		return nil, err
	}
	if def.Extends, err = optionalString(v, "extends"); err != nil {
		return nil, err
	}
	if def.Extends == def.Name {
		return nil, &CompileError{Field: "extends", Message: "a type cannot extend itself", Pos: v.Pos()}
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "fields are required", Pos: v.Pos()}
	}
	if fieldsVal.IncompleteKind() != cue.StructKind {
		return nil, &CompileError{Field: "fields", Message: "fields must be a struct", Pos: fieldsVal.Pos()}
	}

	var decorations []decoration
	rootDecorations, err := parseVisibility(fieldsVal, []string{visibility.RootProperty})
	if err != nil {
		return nil, err
	}
	decorations = append(decorations, rootDecorations...)

	fieldDecorations, err := parseFields(fieldsVal, def.Description, nil, def.Complex)
	if err != nil {
		return nil, err
	}
	decorations = append(decorations, fieldDecorations...)

	decorator := visibility.NewDecorator(def.Description)
	for _, d := range decorations {
		switch {
		case len(d.path) == 1 && d.path[0] == visibility.RootProperty:
			decorator.DecorateRoot(d.class, d.attr)
		case len(d.path) == 1:
			decorator.Decorate(d.path[0], d.class, d.attr)
		default:
			decorator.DecorateDeep(d.path, d.class, d.attr)
		}
		if err := decorator.Err(); err != nil {
			return nil, &CompileError{Field: visibilityAttr, Message: err.Error(), Pos: d.pos}
		}
	}

	compositesVal := v.LookupPath(cue.ParsePath("composites"))
	if compositesVal.Exists() {
		if err := parseComposites(compositesVal, decorator); err != nil {
			return nil, err
		}
	}

	return def, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", &CompileError{Field: field, Message: "must be a concrete string", Pos: fv.Pos()}
	}
	return s, nil
}

// parseFields fills desc from a CUE struct and returns the decorations found
// on the way. prefix is the path of desc inside the top-level description.
func parseFields(v cue.Value, desc *visibility.Description, prefix []string, complexRefs map[string]string) ([]decoration, error) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decorations []decoration
	for iter.Next() {
		name := iter.Selector().Unquoted()
		fv := iter.Value()
		path := append(slices.Clone(prefix), name)

		ref, isComplex, err := parseComplex(fv)
		if err != nil {
			return nil, err
		}
		if isComplex {
			if len(prefix) > 0 {
				return nil, &CompileError{
					Field:   complexAttr,
					Message: fmt.Sprintf("complex property '%s' must be a first-level field", joinPath(path)),
					Pos:     fv.Pos(),
				}
			}
			complexRefs[name] = ref
			if fv.IncompleteKind() == cue.ListKind {
				desc.Set(name, visibility.ArrayOf(visibility.Field(ref)))
			} else {
				desc.Set(name, visibility.Field(ref))
			}
		} else {
			prop, nested, err := describe(fv, path, complexRefs)
			if err != nil {
				return nil, err
			}
			desc.Set(name, prop)
			decorations = append(decorations, nested...)
		}

		own, err := parseVisibility(fv, path)
		if err != nil {
			return nil, err
		}
		decorations = append(decorations, own...)
	}
	return decorations, nil
}

// describe converts a CUE field value to a Property.
func describe(v cue.Value, path []string, complexRefs map[string]string) (*visibility.Property, []decoration, error) {
	switch kind := v.IncompleteKind(); kind {
	case cue.StructKind:
		nested := visibility.NewDescription()
		decorations, err := parseFields(v, nested, path, complexRefs)
		if err != nil {
			return nil, nil, err
		}
		return visibility.Nested(nested), decorations, nil
	case cue.ListKind:
		elemVal := v.LookupPath(cue.MakePath(cue.AnyIndex))
		if !elemVal.Exists() {
			return visibility.ArrayOf(visibility.Field("any")), nil, nil
		}
		elem, decorations, err := describe(elemVal, path, complexRefs)
		if err != nil {
			return nil, nil, err
		}
		return visibility.ArrayOf(elem), decorations, nil
	default:
		return visibility.Field(typeName(kind)), nil, nil
	}
}

// typeName maps a CUE kind to the scalar type name stored on a field.
func typeName(kind cue.Kind) string {
	switch kind {
	case cue.StringKind:
		return "string"
	case cue.IntKind:
		return "int"
	case cue.FloatKind, cue.NumberKind:
		return "number"
	case cue.BoolKind:
		return "bool"
	case cue.NullKind:
		return "null"
	case cue.TopKind:
		return "any"
	default:
		return kind.String()
	}
}

func parseComplex(v cue.Value) (string, bool, error) {
	for _, attr := range v.Attributes(cue.FieldAttr) {
		if attr.Name() != complexAttr {
			continue
		}
		if err := attr.Err(); err != nil {
			return "", false, formatCUEError(err)
		}
		if attr.NumArgs() != 1 {
			return "", false, &CompileError{
				Field:   complexAttr,
				Message: "@complex takes exactly one type name",
				Pos:     v.Pos(),
			}
		}
		ref, value := attr.Arg(0)
		if value != "" || ref == "" {
			return "", false, &CompileError{
				Field:   complexAttr,
				Message: fmt.Sprintf("invalid @complex argument %q", attr.RawArg(0)),
				Pos:     v.Pos(),
			}
		}
		return ref, true, nil
	}
	return "", false, nil
}

// parseVisibility reads every @visibility(class=attr, ...) attribute on v.
// Repeated classes are allowed: @visibility(user=hidden, user=readOnly).
func parseVisibility(v cue.Value, path []string) ([]decoration, error) {
	var decorations []decoration
	for _, attr := range v.Attributes(cue.FieldAttr) {
		if attr.Name() != visibilityAttr {
			continue
		}
		if err := attr.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		for i := 0; i < attr.NumArgs(); i++ {
			class, name := attr.Arg(i)
			if name == "" {
				return nil, &CompileError{
					Field:   visibilityAttr,
					Message: fmt.Sprintf("expected class=attribute, got %q", attr.RawArg(i)),
					Pos:     v.Pos(),
				}
			}
			a, ok := visibility.ParseAttribute(name)
			if !ok {
				return nil, &CompileError{
					Field:   visibilityAttr,
					Message: fmt.Sprintf("unknown attribute %q on '%s'", name, joinPath(path)),
					Pos:     v.Pos(),
				}
			}
			decorations = append(decorations, decoration{
				path:  path,
				class: visibility.UserClass(class),
				attr:  a,
				pos:   v.Pos(),
			})
		}
	}
	return decorations, nil
}

func parseComposites(v cue.Value, decorator *visibility.Decorator) error {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		decorations, err := parseVisibility(iter.Value(), []string{name})
		if err != nil {
			return err
		}
		if len(decorations) == 0 {
			return &CompileError{
				Field:   "composites",
				Message: fmt.Sprintf("composite '%s' has no @visibility attribute", name),
				Pos:     iter.Value().Pos(),
			}
		}
		for _, d := range decorations {
			decorator.DecorateComposite(name, d.class, d.attr)
		}
		if err := decorator.Err(); err != nil {
			return &CompileError{Field: "composites", Message: err.Error(), Pos: iter.Value().Pos()}
		}
	}
	return nil
}

func joinPath(path []string) string {
	return visibility.Path(path).String()
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
