package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/sanitizr/internal/config"
	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/schema"
	"github.com/roach88/sanitizr/internal/store"
	"github.com/roach88/sanitizr/internal/visibility"
)

// loadRegistry compiles the types in dir into a fresh registry. Types get the
// configured default user class and, when st is set, their store collection
// as Model. The first load error is returned as a command error.
func loadRegistry(dir string, cfg *config.Config, st *store.Store, logger *slog.Logger) (*visibility.Registry, error) {
	opts := []schema.FactoryOption{
		schema.WithLogger(logger),
		schema.WithInfoOptions(visibility.WithDefaultUserClass(visibility.UserClass(cfg.Sanitize.DefaultUserClass))),
	}
	if st != nil {
		opts = append(opts, schema.WithModels(func(collection string) any {
			return st.Collection(collection)
		}))
	}
	factory := schema.NewFactory(visibility.NewRegistry(), opts...)

	if _, errs := schema.LoadDir(dir, factory, schema.LoadModeFailFast); len(errs) > 0 {
		code, message := parseLoadError(errs[0])
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
	}
	logger.Debug("types loaded", "dir", dir, "count", factory.Registry().Len())
	return factory.Registry(), nil
}

// lookupType returns the named type or an ExitError listing what is registered.
func lookupType(registry *visibility.Registry, name string) (*visibility.Type, error) {
	t, ok := registry.Lookup(name)
	if !ok {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("%s: unknown type %q (registered: %v)", ErrCodeUnknownType, name, registry.Names()))
	}
	return t, nil
}

// readInput decodes the JSON value in the file at path, or in stdin when
// path is empty or "-".
func readInput(path string, stdin io.Reader) (record.Value, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: reading input: %v", ErrCodeInvalidInput, err))
	}

	v, err := record.Decode(data)
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %v", ErrCodeInvalidInput, err))
	}
	return v, nil
}
