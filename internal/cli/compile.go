package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/sanitizr/internal/schema"
	"github.com/roach88/sanitizr/internal/visibility"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // manifest file path
}

// TypeManifest describes one registered type: its properties, complex
// references and every decorated (path, user class) pair.
type TypeManifest struct {
	Name       string                      `json:"name"`
	Collection string                      `json:"collection"`
	Extends    string                      `json:"extends,omitempty"`
	Properties []string                    `json:"properties"`
	Complex    map[string]string           `json:"complex,omitempty"`
	Attributes []visibility.AttributeEntry `json:"attributes"`
}

// CompilationResult is the compile command's payload.
type CompilationResult struct {
	Types    []TypeManifest        `json:"types"`
	Warnings []schema.CycleWarning `json:"warnings,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema-dir>",
		Short: "Compile CUE type definitions",
		Long: `Compile the CUE type definitions in a directory and report the
registered types, their visibility attributes and complex references.

Every definition is checked; all errors are reported at once. Cycles in
the complex-reference graph are reported as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the type manifest to this file")

	return cmd
}

func runCompile(opts *CompileOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	factory := schema.NewFactory(visibility.NewRegistry(), schema.WithLogger(commandLogger(opts.RootOptions, cmd)))
	loadResult, loadErrors := schema.LoadDir(schemaDir, factory, schema.LoadModeCollectAll)

	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, schemaDir)
	for _, def := range loadResult.Defs {
		formatter.VerboseLog("Compiling type: %s", def.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := buildCompilationResult(loadResult)

	if opts.Output != "" {
		if err := writeManifest(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

func buildCompilationResult(loadResult *schema.LoadResult) *CompilationResult {
	extends := make(map[string]string, len(loadResult.Defs))
	for _, def := range loadResult.Defs {
		extends[def.Name] = def.Extends
	}

	result := &CompilationResult{
		Types:    make([]TypeManifest, 0, len(loadResult.Types)),
		Warnings: loadResult.Warnings,
	}
	for _, typ := range loadResult.Types {
		manifest := TypeManifest{
			Name:       typ.Name,
			Collection: typ.CollectionName(),
			Extends:    extends[typ.Name],
			Properties: typ.Description.Names(),
			Attributes: typ.Description.Attributes().Entries(),
		}
		for _, prop := range typ.Info.ComplexProperties() {
			if manifest.Complex == nil {
				manifest.Complex = make(map[string]string)
			}
			manifest.Complex[prop], _ = typ.Info.Complex(prop)
		}
		result.Types = append(result.Types, manifest)
	}
	return result
}

func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d type(s)\n\n", len(result.Types))

	for _, typ := range result.Types {
		header := fmt.Sprintf("  %s (%s)", typ.Name, typ.Collection)
		if typ.Extends != "" {
			header += " extends " + typ.Extends
		}
		fmt.Fprintf(w, "%s: %d propert%s, %d decoration(s)\n",
			header, len(typ.Properties), plural(len(typ.Properties), "y", "ies"), len(typ.Attributes))
		for _, prop := range slices.Sorted(maps.Keys(typ.Complex)) {
			fmt.Fprintf(w, "    %s → %s\n", prop, typ.Complex[prop])
		}
	}
	fmt.Fprintln(w)

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "⚠ %s: %s\n", strings.Join(warning.Path, " → "), warning.Message)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
	}

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote type manifest to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs every load error and returns a command error.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors,
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *schema.LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}
	return exitErr
}

// parseLoadError extracts error code and message from a schema load error.
func parseLoadError(err error) (string, string) {
	var loadErr *schema.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *schema.CompileError
	if errors.As(err, &compileErr) {
		return schema.MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return schema.ErrCodeGeneric, err.Error()
}

func writeManifest(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
