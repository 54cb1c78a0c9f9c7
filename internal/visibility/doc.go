// Package visibility attaches audience-dependent visibility rules to record
// types and applies them to record instances before they leave the server.
//
// The pieces, leaf first:
//
//   - Description: the shape of a record type (fields, nested descriptions,
//     arrays of sub-records) plus a side-table of attributes keyed by
//     (property path, user class). Attributes never live on the Property values.
//   - Decorator: the authoring API that fills the side-table. It uses a sticky
//     error: after the first failure every further call is a no-op and Err
//     reports what went wrong.
//   - TypeInfo: an index derived once from a decorated Description. It answers
//     "is this property hidden / read-only / concealed for this user class" and
//     records which properties hold instances of other registered types.
//   - Helper: the recursive sanitizer (OmitNull, OmitHidden, OmitReadOnly,
//     Conceal, ReduceComplex).
//   - Type and Registry: one Type per type name bundles Description, TypeInfo
//     and Helper. Helpers resolve complex references through the Registry by
//     name when they recurse, so forward references and cycles between type
//     names are fine.
//
// # Whole-record rules
//
// The pseudo-property RootProperty ("__ROOT__") carries attributes for the
// entire record. Helpers check it before looking at any field.
//
// # Errors
//
// DecoratorError, InfoError and HelperError are authoring or registration
// mistakes, not client input problems. Callers are expected to let them
// propagate (a service should answer 5xx). In-place operations that fail keep
// whatever mutations happened before the failing key.
//
// # Concurrency
//
// Every operation is synchronous. Registry is safe for concurrent use.
// Helper calls only read the registry. Records passed without Options.Clone are
// mutated, including nested complex sub-records.
package visibility
