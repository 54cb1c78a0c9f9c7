package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/testutil"
)

// createTestStore creates a new store in a temp directory with deterministic ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceIDGenerator("gen")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord builds a record with an id and a name.
func createTestRecord(id, name string) record.Record {
	return record.Record{
		"id":   record.String(id),
		"name": record.String(name),
	}
}

func idsOf(t *testing.T, records []record.Record) []string {
	t.Helper()
	ids := make([]string, 0, len(records))
	for _, r := range records {
		id, ok := r.ID()
		if !ok {
			t.Fatalf("record without id: %v", r)
		}
		s, ok := id.(record.String)
		if !ok {
			t.Fatalf("non-string id %v", id)
		}
		ids = append(ids, string(s))
	}
	return ids
}
