package transport

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/sanitizr/internal/schema"
	"github.com/roach88/sanitizr/internal/store"
	"github.com/roach88/sanitizr/internal/testutil"
	"github.com/roach88/sanitizr/internal/visibility"
)

const testSchema = `
type: person: {
	collection: "people"
	fields: {
		id:      string
		name:    string @visibility(user=readOnly)
		apiKey:  string @visibility(user=concealed)
		secret?: string @visibility(user=hidden)
		parent?: _ @complex(person)
	} @visibility(guest=hidden)
}

type: orphan: {
	fields: {
		id:     string
		ghost?: _ @complex(ghost)
	}
}
`

// loadTestRegistry compiles testSchema. When st is set every type gets its
// store collection as Model.
func loadTestRegistry(t *testing.T, st *store.Store) *visibility.Registry {
	t.Helper()
	opts := []schema.FactoryOption{schema.WithLogger(testutil.DiscardLogger())}
	if st != nil {
		opts = append(opts, schema.WithModels(func(collection string) any {
			return st.Collection(collection)
		}))
	}
	factory := schema.NewFactory(visibility.NewRegistry(), opts...)
	_, errs := schema.LoadSource(testSchema, factory, schema.LoadModeCollectAll)
	require.Empty(t, errs)
	return factory.Registry()
}

func lookupType(t *testing.T, reg *visibility.Registry, name string) *visibility.Type {
	t.Helper()
	typ, ok := reg.Lookup(name)
	require.True(t, ok, "type %s not registered", name)
	return typ
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"),
		store.WithIDGenerator(testutil.NewSequenceIDGenerator("rec")))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

type emitted struct {
	channel string
	payload string
}

// recordingBroadcaster keeps every emit and answers with err.
type recordingBroadcaster struct {
	mu    sync.Mutex
	emits []emitted
	err   error
}

func (b *recordingBroadcaster) Emit(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.emits = append(b.emits, emitted{channel: channel, payload: string(payload)})
	return nil
}

func (b *recordingBroadcaster) all() []emitted {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]emitted(nil), b.emits...)
}
