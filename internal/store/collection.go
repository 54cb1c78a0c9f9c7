package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/sanitizr/internal/record"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Collection is a named group of records. It is the Model handle the CLI
// attaches to visibility types.
type Collection struct {
	store *Store
	name  string
}

// Collection returns a handle for the named collection. No I/O happens until
// the handle is used.
func (s *Store) Collection(name string) *Collection {
	return &Collection{store: s, name: name}
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Put inserts or replaces r, written as typeName. A record without an id gets
// one from the store's IDGenerator. A replaced record keeps its position in
// List. The stored record is returned; r itself is not modified.
func (c *Collection) Put(ctx context.Context, typeName string, r record.Record) (record.Record, error) {
	stored, key, err := c.prepare(r)
	if err != nil {
		return nil, fmt.Errorf("put %s: %w", c.name, err)
	}
	if err := c.upsert(ctx, c.store.db, key, typeName, stored); err != nil {
		return nil, fmt.Errorf("put %s: %w", c.name, err)
	}
	return stored, nil
}

// Merge writes the keys of r over the stored record with the same id and
// returns the result. Keys absent from r keep their stored values. Without a
// stored record Merge behaves like Put.
func (c *Collection) Merge(ctx context.Context, typeName string, r record.Record) (record.Record, error) {
	patch, key, err := c.prepare(r)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", c.name, err)
	}

	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", c.name, err)
	}
	defer tx.Rollback()

	stored := patch
	var body string
	err = tx.QueryRowContext(ctx, `
		SELECT body FROM records WHERE collection = ? AND id = ?
	`, c.name, key).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("merge %s/%s: %w", c.name, key, err)
	default:
		stored, err = unmarshalBody(body)
		if err != nil {
			return nil, fmt.Errorf("merge %s/%s: %w", c.name, key, err)
		}
		for k, v := range patch {
			stored[k] = v
		}
	}

	if err := c.upsert(ctx, tx, key, typeName, stored); err != nil {
		return nil, fmt.Errorf("merge %s/%s: %w", c.name, key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("merge %s/%s: %w", c.name, key, err)
	}
	return stored, nil
}

// prepare copies r, assigns an id when it has none and returns the id key.
func (c *Collection) prepare(r record.Record) (record.Record, string, error) {
	stored := r.Clone()
	if stored == nil {
		stored = record.Record{}
	}
	id, ok := stored.ID()
	if !ok || record.IsNull(id) {
		id = record.String(c.store.ids.Generate())
		stored[record.IDField] = id
	}
	key, err := idKey(id)
	if err != nil {
		return nil, "", err
	}
	return stored, key, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsert writes a row. seq is assigned on insert only.
func (c *Collection) upsert(ctx context.Context, db execer, key, typeName string, r record.Record) error {
	body, err := marshalBody(r)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO records (collection, id, type_name, body, seq)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM records))
		ON CONFLICT(collection, id) DO UPDATE SET
			type_name = excluded.type_name,
			body = excluded.body
	`, c.name, key, typeName, body)
	return err
}

// Get returns the record with the given id, or ErrNotFound.
func (c *Collection) Get(ctx context.Context, id string) (record.Record, error) {
	var body string
	err := c.store.db.QueryRowContext(ctx, `
		SELECT body FROM records WHERE collection = ? AND id = ?
	`, c.name, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", c.name, id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c.name, id, err)
	}
	return unmarshalBody(body)
}

// List returns every record in the collection.
// Results are ordered by seq ASC, id ASC COLLATE BINARY.
func (c *Collection) List(ctx context.Context) ([]record.Record, error) {
	return c.query(ctx, `
		SELECT body FROM records
		WHERE collection = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, c.name)
}

// ListType returns the records of the collection written as typeName.
func (c *Collection) ListType(ctx context.Context, typeName string) ([]record.Record, error) {
	return c.query(ctx, `
		SELECT body FROM records
		WHERE collection = ? AND type_name = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, c.name, typeName)
}

// Delete removes the record with the given id, or returns ErrNotFound.
func (c *Collection) Delete(ctx context.Context, id string) error {
	res, err := c.store.db.ExecContext(ctx, `
		DELETE FROM records WHERE collection = ? AND id = ?
	`, c.name, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete %s/%s: %w", c.name, id, ErrNotFound)
	}
	return nil
}

// Count returns the number of records in the collection.
func (c *Collection) Count(ctx context.Context) (int, error) {
	var n int
	err := c.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM records WHERE collection = ?
	`, c.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", c.name, err)
	}
	return n, nil
}

func (c *Collection) query(ctx context.Context, query string, args ...any) ([]record.Record, error) {
	rows, err := c.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	defer rows.Close()

	records := []record.Record{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list %s: %w", c.name, err)
		}
		r, err := unmarshalBody(body)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", c.name, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", c.name, err)
	}
	return records, nil
}
