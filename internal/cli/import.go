package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	SchemaDir string
	Database  string
	Type      string

	// IDGenerator overrides the store's id generator (for testing).
	IDGenerator store.IDGenerator
}

// ImportResult reports what the import command stored.
type ImportResult struct {
	Type       string   `json:"type"`
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import [records.json]",
		Short: "Store records in the database",
		Long: `Read a JSON record or an array of records from a file or stdin and
store them in the collection of the given type. Records without an id get
one. Records are stored as given; sanitizing happens when they are read.

Example:
  sanitizr import --type person --db ./sanitizr.db people.json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return runImport(opts, input, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE type definitions (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "type of the records (required)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runImport(opts *ImportOptions, inputPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := commandLogger(opts.RootOptions, cmd)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.SchemaDir != "" {
		cfg.Schema.Dir = opts.SchemaDir
	}
	if opts.Database != "" {
		cfg.Store.Path = opts.Database
	}

	input, err := readInput(inputPath, cmd.InOrStdin())
	if err != nil {
		return err
	}
	records, err := importRecords(input)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error(), nil)
	}

	var storeOpts []store.Option
	if opts.IDGenerator != nil {
		storeOpts = append(storeOpts, store.WithIDGenerator(opts.IDGenerator))
	}
	st, err := store.Open(cfg.Store.Path, storeOpts...)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	registry, err := loadRegistry(cfg.Schema.Dir, cfg, st, logger)
	if err != nil {
		return err
	}
	t, err := lookupType(registry, opts.Type)
	if err != nil {
		return err
	}
	collection, ok := t.Model.(*store.Collection)
	if !ok {
		collection = st.Collection(t.CollectionName())
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	result := ImportResult{Type: t.Name, Collection: collection.Name(), IDs: make([]string, 0, len(records))}
	for i, r := range records {
		stored, err := collection.Put(ctx, t.Name, r)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeStore, fmt.Sprintf("record %d: %v", i, err), nil)
		}
		id, _ := stored.ID()
		data, _ := record.MarshalCanonical(id)
		key := string(data)
		if s, ok := id.(record.String); ok {
			key = string(s)
		}
		logger.Debug("record stored", "collection", collection.Name(), "id", key)
		result.IDs = append(result.IDs, key)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Imported %d record(s) into %s\n", len(result.IDs), result.Collection)
	return nil
}

// importRecords accepts a record or a list of records.
func importRecords(v record.Value) ([]record.Record, error) {
	switch val := v.(type) {
	case record.Record:
		return []record.Record{val}, nil
	case record.List:
		records := make([]record.Record, len(val))
		for i, elem := range val {
			r, ok := elem.(record.Record)
			if !ok {
				return nil, fmt.Errorf("element %d is %s, expected a record", i, record.ShapeOf(elem))
			}
			records[i] = r
		}
		return records, nil
	default:
		return nil, fmt.Errorf("expected a record or an array of records, got %s", record.ShapeOf(v))
	}
}
