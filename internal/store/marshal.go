package store

import (
	"fmt"

	"github.com/roach88/sanitizr/internal/record"
)

// marshalBody converts a record to canonical JSON TEXT for storage.
func marshalBody(r record.Record) (string, error) {
	data, err := record.MarshalCanonical(r)
	if err != nil {
		return "", fmt.Errorf("marshal body: %w", err)
	}
	return string(data), nil
}

// unmarshalBody parses a stored body. Large integers survive the round trip.
func unmarshalBody(data string) (record.Record, error) {
	r, err := record.DecodeRecord([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal body: %w", err)
	}
	return r, nil
}

// idKey renders an id value as the primary key column.
// String ids are stored as-is, other scalars as canonical JSON.
func idKey(id record.Value) (string, error) {
	switch v := id.(type) {
	case record.String:
		if v == "" {
			return "", fmt.Errorf("id must not be empty")
		}
		return string(v), nil
	case record.Int, record.Float, record.Bool:
		data, err := record.MarshalCanonical(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("id must be a scalar, got %s", record.ShapeOf(id))
	}
}
