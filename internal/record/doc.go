// Package record provides the value model sanitized by the visibility engine.
//
// Records arrive from storage, HTTP bodies or YAML fixtures as loosely typed
// data. This package pins them down to a small sealed set of shapes so the
// traversal code never has to guess what it is looking at:
//
//   - Null: an explicit JSON null (a key that is absent is simply not in the Record)
//   - String, Int, Float, Bool: scalars
//   - List: an ordered sequence of values
//   - Record: a keyed structure
//
// ShapeOf classifies a value once at the entry of an operation into
// ShapeNull, ShapeScalar, ShapeRecord, ShapeRecordArray or ShapeList.
//
// Key design constraints:
//   - Integers never round-trip through float64 (JSON is decoded with UseNumber)
//   - Record.Clone copies one level only; nested values are shared
//   - Canonical JSON (MarshalCanonical) sorts keys by UTF-16 code units and
//     NFC-normalizes strings so golden files and stored rows are byte-stable
//
// This package imports nothing internal.
package record
