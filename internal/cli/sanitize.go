package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/transport"
	"github.com/roach88/sanitizr/internal/visibility"
)

// SanitizeOptions holds flags for the sanitize command.
type SanitizeOptions struct {
	*RootOptions
	SchemaDir   string
	Type        string
	UserClass   string
	Op          string
	Clone       bool
	ConcealWith string // JSON literal
}

// sanitizeOps are the operations --op accepts.
var sanitizeOps = []string{"preProcess", "omitNull", "omitHidden", "omitReadOnly", "conceal", "reduceComplex"}

// NewSanitizeCommand creates the sanitize command.
func NewSanitizeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SanitizeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sanitize [input.json]",
		Short: "Sanitize a record for a user class",
		Long: `Read a JSON record (or an array of records) from a file or stdin and
print it as the given user class would receive it.

The default operation, preProcess, removes null fields, hidden fields and
conceals concealed fields, the way records are sanitized before they are
pushed or returned by the server.

Examples:
  sanitizr sanitize --type person --class guest person.json
  echo '{"id":"1","apiKey":"k"}' | sanitizr sanitize --type person --op conceal`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return runSanitize(opts, input, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "directory of CUE type definitions (default from config)")
	cmd.Flags().StringVarP(&opts.Type, "type", "t", "", "type of the input record (required)")
	cmd.Flags().StringVarP(&opts.UserClass, "class", "c", "", "user class (default: the type's default class)")
	cmd.Flags().StringVar(&opts.Op, "op", "preProcess", "operation: "+strings.Join(sanitizeOps, "|"))
	cmd.Flags().BoolVar(&opts.Clone, "clone", false, "sanitize a copy of the input instead of the input itself")
	cmd.Flags().StringVar(&opts.ConcealWith, "conceal-with", "", "JSON value that replaces concealed fields (default true)")
	_ = cmd.MarkFlagRequired("type")

	return cmd
}

func runSanitize(opts *SanitizeOptions, inputPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := commandLogger(opts.RootOptions, cmd)

	if !slices.Contains(sanitizeOps, opts.Op) {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownOp,
			fmt.Sprintf("unknown operation %q: must be one of %v", opts.Op, sanitizeOps), nil)
	}

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	schemaDir := opts.SchemaDir
	if schemaDir == "" {
		schemaDir = cfg.Schema.Dir
	}

	registry, err := loadRegistry(schemaDir, cfg, nil, logger)
	if err != nil {
		return err
	}
	t, err := lookupType(registry, opts.Type)
	if err != nil {
		return err
	}

	input, err := readInput(inputPath, cmd.InOrStdin())
	if err != nil {
		return err
	}

	options := visibility.Options{
		UserClass: visibility.UserClass(opts.UserClass),
		Clone:     opts.Clone,
		MaxDepth:  cfg.Sanitize.MaxDepth,
	}
	if opts.ConcealWith != "" {
		with, err := record.Decode([]byte(opts.ConcealWith))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, fmt.Sprintf("--conceal-with: %v", err), nil)
		}
		options.ConcealWith = with
	}

	output, err := applyOp(opts.Op, t, input, options, logger)
	if err != nil {
		code := string(visibility.ErrorCodeOf(err))
		if code == "" {
			code = ErrCodeInvalidInput
		}
		return formatter.Fail(ExitFailure, code, err.Error(), nil)
	}

	data, err := record.MarshalCanonical(output)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalidInput, err.Error(), nil)
	}
	formatter.VerboseLog("%s %s for %q", opts.Op, t.Name, opts.UserClass)
	if opts.Clone {
		original, _ := record.MarshalCanonical(input)
		formatter.VerboseLog("input left as %s", original)
	}

	if formatter.Format == "json" {
		return formatter.Success(json.RawMessage(data))
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

func applyOp(op string, t *visibility.Type, v record.Value, opts visibility.Options, logger *slog.Logger) (record.Value, error) {
	switch op {
	case "omitNull":
		return t.Helper.OmitNull(v, opts)
	case "omitHidden":
		return t.Helper.OmitHidden(v, opts)
	case "omitReadOnly":
		return t.Helper.OmitReadOnly(v, opts)
	case "conceal":
		return t.Helper.Conceal(v, opts)
	case "reduceComplex":
		return t.Helper.ReduceComplex(v, opts)
	default:
		conductor := transport.NewConductor(nil, transport.WithLogger(logger), transport.WithMaxDepth(opts.MaxDepth))
		return conductor.PreProcess(v, t, opts.UserClass)
	}
}
