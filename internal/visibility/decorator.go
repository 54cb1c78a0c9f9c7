package visibility

import (
	"fmt"
	"slices"
)

// Decorator records visibility attributes on a Description.
//
// Every method returns the Decorator so calls can be chained. The first failure
// is kept; later calls are no-ops and Err reports it.
//
//	err := visibility.NewDecorator(desc).
//		Decorate("apiKey", visibility.UserClassUser, visibility.Concealed).
//		DecorateRoot("guest", visibility.Hidden).
//		Err()
type Decorator struct {
	desc *Description
	err  error
}

// NewDecorator returns a Decorator that mutates desc in place.
func NewDecorator(desc *Description) *Decorator {
	return &Decorator{desc: desc}
}

// Err returns the first error raised by a chained call.
func (d *Decorator) Err() error {
	return d.err
}

// Description returns the decorated description.
func (d *Decorator) Description() *Description {
	return d.desc
}

// Decorate adds attrs for class to property. An empty property decorates
// RootProperty (whole-record visibility).
func (d *Decorator) Decorate(property string, class UserClass, attrs ...Attribute) *Decorator {
	return d.DecorateClasses(property, []UserClass{class}, attrs...)
}

// DecorateRoot adds whole-record attributes for class.
func (d *Decorator) DecorateRoot(class UserClass, attrs ...Attribute) *Decorator {
	return d.DecorateClasses(RootProperty, []UserClass{class}, attrs...)
}

// DecorateClasses adds attrs to property for every class in classes.
func (d *Decorator) DecorateClasses(property string, classes []UserClass, attrs ...Attribute) *Decorator {
	if d.err != nil {
		return d
	}
	if property == "" {
		property = RootProperty
	}
	if err := checkArguments(property, classes, attrs); err != nil {
		d.err = err
		return d
	}

	path := Path{property}
	if property != RootProperty {
		p, ok := d.desc.Property(property)
		if !ok || p.Kind == KindUndefined {
			d.err = &DecoratorError{
				Code:     ErrCodeNoSuchProperty,
				Message:  fmt.Sprintf("unable to decorate non-existent property '%s'", property),
				Property: property,
			}
			return d
		}
		var err error
		path, err = targetPath(path, p)
		if err != nil {
			d.err = err
			return d
		}
	}

	d.apply(path, classes, attrs)
	return d
}

// DecorateComposite defines a property that is absent from the schema and
// decorates it. Repeating the call for the same name reuses the property.
func (d *Decorator) DecorateComposite(name string, class UserClass, attrs ...Attribute) *Decorator {
	return d.DecorateCompositeClasses(name, []UserClass{class}, attrs...)
}

// DecorateCompositeClasses is DecorateComposite for several classes.
func (d *Decorator) DecorateCompositeClasses(name string, classes []UserClass, attrs ...Attribute) *Decorator {
	if d.err != nil {
		return d
	}
	if name == "" || name == RootProperty {
		d.err = &DecoratorError{
			Code:     ErrCodeCompositeConflict,
			Message:  "composite property requires a regular property name",
			Property: name,
		}
		return d
	}
	if err := checkArguments(name, classes, attrs); err != nil {
		d.err = err
		return d
	}

	if _, exists := d.desc.Property(name); exists && !d.desc.IsComposite(name) {
		d.err = &DecoratorError{
			Code:     ErrCodeCompositeConflict,
			Message:  fmt.Sprintf("unable to decorate existing property '%s' as composite", name),
			Property: name,
		}
		return d
	}
	if !d.desc.IsComposite(name) {
		d.desc.Set(name, Field(""))
		d.desc.composites = append(d.desc.composites, name)
	}

	d.apply(Path{name}, classes, attrs)
	return d
}

// DecorateDeep adds attrs for class at an arbitrary path, creating intermediate
// nested descriptions as needed. Array properties along the path are entered
// through their element description.
func (d *Decorator) DecorateDeep(path []string, class UserClass, attrs ...Attribute) *Decorator {
	if class == "" {
		return d.DecorateDeepClasses(path, nil, attrs...)
	}
	return d.DecorateDeepClasses(path, []UserClass{class}, attrs...)
}

// DecorateDeepClasses is DecorateDeep for every class in classes.
func (d *Decorator) DecorateDeepClasses(path []string, classes []UserClass, attrs ...Attribute) *Decorator {
	if d.err != nil {
		return d
	}
	if len(path) == 0 || len(classes) == 0 || len(attrs) == 0 {
		d.err = &DecoratorError{
			Code:    ErrCodeTooFewArguments,
			Message: "too few arguments to DecorateDeep, expected property path, user class and attribute",
		}
		return d
	}
	if err := checkArguments(path[len(path)-1], classes, attrs); err != nil {
		d.err = err
		return d
	}

	full, err := d.walk(path)
	if err != nil {
		d.err = err
		return d
	}
	d.apply(full, classes, attrs)
	return d
}

// walk resolves path to the attribute path of its leaf, creating missing
// descriptions on the way.
func (d *Decorator) walk(path []string) (Path, error) {
	cur := d.desc
	full := make(Path, 0, len(path)+1)

	for i, seg := range path {
		full = append(full, seg)
		p, ok := cur.Property(seg)
		last := i == len(path)-1

		if last {
			if !ok || p.Kind == KindUndefined {
				p = Field("")
				cur.Set(seg, p)
			}
			return targetPath(full, p)
		}

		if !ok || p.Kind == KindUndefined {
			p = Nested(NewDescription())
			cur.Set(seg, p)
		}
		if p.Kind == KindArray {
			full = append(full, ElementSegment)
			if p.Elem == nil || p.Elem.Kind == KindUndefined {
				p.Elem = Nested(NewDescription())
			}
			p = p.Elem
		}
		if p.Kind != KindNested {
			return nil, &DecoratorError{
				Code:     ErrCodeNoSuchProperty,
				Message:  fmt.Sprintf("unable to descend into '%s', it is not a nested description", Path(full).String()),
				Property: seg,
			}
		}
		cur = p.Nested
	}
	return full, nil
}

func (d *Decorator) apply(path Path, classes []UserClass, attrs []Attribute) {
	for _, class := range classes {
		d.desc.attrs.Add(path, class, attrs...)
	}
}

// targetPath returns where attributes for p are stored. Arrays store them on
// their element.
func targetPath(path Path, p *Property) (Path, error) {
	switch p.Kind {
	case KindShorthand:
		name := path[len(path)-1]
		return nil, &DecoratorError{
			Code:     ErrCodeShorthandProperty,
			Message:  fmt.Sprintf("property '%s' is a bare type marker, give it a descriptor before decorating", name),
			Property: name,
		}
	case KindArray:
		return append(slices.Clone(path), ElementSegment), nil
	default:
		return path, nil
	}
}

func checkArguments(property string, classes []UserClass, attrs []Attribute) error {
	if len(classes) == 0 || len(attrs) == 0 {
		return &DecoratorError{
			Code:     ErrCodeTooFewArguments,
			Message:  "decoration requires at least one user class and one attribute",
			Property: property,
		}
	}
	for _, class := range classes {
		if class == "" {
			return &DecoratorError{
				Code:     ErrCodeEmptyUserClass,
				Message:  "user class must not be empty",
				Property: property,
			}
		}
	}
	for _, a := range attrs {
		if !a.IsValid() {
			return &DecoratorError{
				Code:     ErrCodeUnknownAttribute,
				Message:  fmt.Sprintf("unknown attribute '%s'", a),
				Property: property,
			}
		}
	}
	return nil
}
