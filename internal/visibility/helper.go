package visibility

import (
	"fmt"

	"github.com/roach88/sanitizr/internal/record"
)

type operation int

const (
	opOmitNull operation = iota
	opOmitHidden
	opOmitReadOnly
	opConceal
	opReduceComplex
)

func (op operation) String() string {
	switch op {
	case opOmitNull:
		return "omitNull"
	case opOmitHidden:
		return "omitHidden"
	case opOmitReadOnly:
		return "omitReadOnly"
	case opConceal:
		return "conceal"
	case opReduceComplex:
		return "reduceComplex"
	default:
		return "unknown"
	}
}

// Helper sanitizes instances of one type for an audience.
//
// Every operation accepts a Record or a list of Records. Lists are mapped
// element by element with the same Options. Complex properties are recursed
// with the referenced type's own Helper, looked up by name in the Registry
// at call time.
type Helper struct {
	info     *TypeInfo
	registry *Registry
}

// NewHelper binds a Helper to info. registry resolves complex references.
func NewHelper(info *TypeInfo, registry *Registry) *Helper {
	return &Helper{info: info, registry: registry}
}

// Info returns the TypeInfo the helper is bound to.
func (h *Helper) Info() *TypeInfo {
	return h.info
}

// OmitNull removes keys whose value is Null. false, 0 and "" are kept.
func (h *Helper) OmitNull(v record.Value, opts Options) (record.Value, error) {
	return h.run(opOmitNull, v, opts)
}

// OmitHidden removes keys hidden for opts.UserClass. A record that is hidden
// as a whole becomes Null.
func (h *Helper) OmitHidden(v record.Value, opts Options) (record.Value, error) {
	return h.run(opOmitHidden, v, opts)
}

// OmitReadOnly removes keys that opts.UserClass may not write, including
// concealed keys. A record that is read-only as a whole becomes an empty Record.
func (h *Helper) OmitReadOnly(v record.Value, opts Options) (record.Value, error) {
	return h.run(opOmitReadOnly, v, opts)
}

// Conceal replaces concealed values with opts.ConcealWith. A record that is
// concealed as a whole becomes an empty Record.
func (h *Helper) Conceal(v record.Value, opts Options) (record.Value, error) {
	return h.run(opConceal, v, opts)
}

// ReduceComplex replaces every complex value with its id. Lists are reduced
// element-wise. Only the instance's own complex properties are reduced.
func (h *Helper) ReduceComplex(v record.Value, opts Options) (record.Value, error) {
	return h.run(opReduceComplex, v, opts)
}

func (h *Helper) run(op operation, v record.Value, opts Options) (record.Value, error) {
	opts = opts.resolve(h.info)

	switch record.ShapeOf(v) {
	case record.ShapeNull:
		return nil, &HelperError{
			Code:    ErrCodeNullInstance,
			Message: fmt.Sprintf("%s called on a null instance", op),
			Type:    h.info.Name(),
		}
	case record.ShapeRecord:
		return h.processRecord(op, v.(record.Record), opts, 0)
	case record.ShapeRecordArray:
		list := v.(record.List)
		out := list
		if opts.Clone {
			out = make(record.List, len(list))
		}
		for i, elem := range list {
			res, err := h.processRecord(op, elem.(record.Record), opts, 0)
			if err != nil {
				return nil, err
			}
			out[i] = res
		}
		return out, nil
	default:
		return nil, &HelperError{
			Code:    ErrCodeInvalidInstance,
			Message: fmt.Sprintf("%s expects a record or a list of records, got %s", op, record.ShapeOf(v)),
			Type:    h.info.Name(),
		}
	}
}

// complexType looks up the type a complex property references. It runs only
// when a present key is about to be recursed, so forward references resolve
// as long as the type is registered by then.
func (h *Helper) complexType(property string) (*Type, bool, error) {
	name, ok := h.info.Complex(property)
	if !ok {
		return nil, false, nil
	}
	typ, ok := h.registry.Lookup(name)
	if !ok {
		return nil, false, &HelperError{
			Code:     ErrCodeUnknownComplexType,
			Message:  fmt.Sprintf("Property '%s' marked as complex, referencing '%s', but the type is unknown.", property, name),
			Property: property,
			Type:     h.info.Name(),
		}
	}
	return typ, true, nil
}

func (h *Helper) processRecord(op operation, r record.Record, opts Options, depth int) (record.Value, error) {
	if depth > opts.MaxDepth {
		return nil, &HelperError{
			Code:    ErrCodeMaxDepth,
			Message: fmt.Sprintf("complex references nested deeper than %d levels", opts.MaxDepth),
			Type:    h.info.Name(),
		}
	}

	switch op {
	case opOmitHidden:
		if h.info.IsHidden(RootProperty, opts.UserClass) {
			return record.Null{}, nil
		}
	case opOmitReadOnly:
		if h.info.IsReadOnly(RootProperty, opts.UserClass) {
			return record.Record{}, nil
		}
	case opConceal:
		if h.info.IsConcealed(RootProperty, opts.UserClass) {
			return record.Record{}, nil
		}
	}

	target := r
	if opts.Clone {
		target = r.Clone()
	}

	for _, key := range target.SortedKeys() {
		val := target[key]

		switch op {
		case opOmitNull:
			if record.IsNull(val) {
				delete(target, key)
				continue
			}
		case opOmitHidden:
			if h.info.IsHidden(key, opts.UserClass) {
				delete(target, key)
				continue
			}
		case opOmitReadOnly:
			if h.info.IsReadOnly(key, opts.UserClass) {
				delete(target, key)
				continue
			}
		case opConceal:
			if h.info.IsConcealed(key, opts.UserClass) {
				target[key] = opts.ConcealWith
				continue
			}
		case opReduceComplex:
			if h.info.IsComplex(key) {
				reduced, err := h.reduce(key, val)
				if err != nil {
					return nil, err
				}
				target[key] = reduced
			}
			continue
		}

		typ, ok, err := h.complexType(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		nested, err := typ.Helper.processNested(op, val, opts, depth+1)
		if err != nil {
			return nil, err
		}
		if record.IsNull(nested) && !record.IsNull(val) {
			delete(target, key)
			continue
		}
		target[key] = nested
	}
	return target, nil
}

// processNested handles the value of a complex key. Null and scalar values
// (for example ids left by ReduceComplex) pass through unchanged.
func (h *Helper) processNested(op operation, v record.Value, opts Options, depth int) (record.Value, error) {
	switch val := v.(type) {
	case record.Record:
		if val == nil {
			return v, nil
		}
		return h.processRecord(op, val, opts, depth)
	case record.List:
		out := make(record.List, 0, len(val))
		for _, elem := range val {
			r, ok := elem.(record.Record)
			if !ok || r == nil {
				out = append(out, elem)
				continue
			}
			res, err := h.processRecord(op, r, opts, depth)
			if err != nil {
				return nil, err
			}
			if record.IsNull(res) {
				continue
			}
			out = append(out, res)
		}
		return out, nil
	default:
		return v, nil
	}
}

func (h *Helper) reduce(property string, v record.Value) (record.Value, error) {
	switch val := v.(type) {
	case record.Record:
		if val == nil {
			return v, nil
		}
		id, ok := val.ID()
		if !ok {
			return nil, &HelperError{
				Code:     ErrCodeMissingID,
				Message:  "The property can't be reduced as it has no 'id' property itself.",
				Property: property,
				Type:     h.info.Name(),
			}
		}
		return id, nil
	case record.List:
		out := make(record.List, len(val))
		for i, elem := range val {
			res, err := h.reduce(property, elem)
			if err != nil {
				return nil, err
			}
			out[i] = res
		}
		return out, nil
	default:
		return v, nil
	}
}
