package visibility

import "github.com/roach88/sanitizr/internal/record"

// DefaultMaxDepth bounds complex-reference recursion when Options.MaxDepth is zero.
const DefaultMaxDepth = 64

// Options configures a Helper operation.
//
// The zero value sanitizes in place for the TypeInfo's default user class and
// conceals with boolean true.
type Options struct {
	// UserClass is the audience. Empty means the TypeInfo's default class.
	// Ignored by OmitNull and ReduceComplex.
	UserClass UserClass

	// Clone selects a shallow-per-level copy instead of mutating the instance.
	// Complex sub-records are recursed with the same flag.
	Clone bool

	// ConcealWith replaces concealed values. Nil means record.Bool(true).
	ConcealWith record.Value

	// MaxDepth bounds recursion through complex references. Zero means DefaultMaxDepth.
	MaxDepth int
}

func (o Options) resolve(info *TypeInfo) Options {
	if o.UserClass == "" {
		o.UserClass = info.DefaultUserClass()
	}
	if o.ConcealWith == nil {
		o.ConcealWith = record.Bool(true)
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}
