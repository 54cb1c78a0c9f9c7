package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/roach88/sanitizr/internal/record"
)

// MustRecord decodes a JSON object literal or fails the test.
func MustRecord(t testing.TB, data string) record.Record {
	t.Helper()
	r, err := record.DecodeRecord([]byte(data))
	if err != nil {
		t.Fatalf("decode record %q: %v", data, err)
	}
	return r
}

// MustValue decodes any JSON literal or fails the test.
func MustValue(t testing.TB, data string) record.Value {
	t.Helper()
	v, err := record.Decode([]byte(data))
	if err != nil {
		t.Fatalf("decode value %q: %v", data, err)
	}
	return v
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
