package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/sanitizr/internal/visibility"
)

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading type definitions.
type LoadResult struct {
	Defs      []*TypeDef
	Types     []*visibility.Type
	Warnings  []CycleWarning
	CUEValue  cue.Value
	FileCount int
}

// LoadError represents an error that occurred during loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes shared with the CLI.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeTypeFields    = "E101" // Missing or malformed fields
	ErrCodeVisibility    = "E102" // Bad @visibility attribute
	ErrCodeComplex       = "E103" // Bad @complex attribute
	ErrCodeUnknownBase   = "E104" // extends names an unknown type
	ErrCodeExtendsCycle  = "E105" // extends chain loops
	ErrCodeComposites    = "E106" // Bad composites block
	ErrCodeTypeName      = "E107" // Missing type name or self-extension
	ErrCodeNoDefinitions = "E108" // Nothing under "type"
)

// MapFieldToErrorCode maps a CompileError field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "fields":
		return ErrCodeTypeFields
	case visibilityAttr:
		return ErrCodeVisibility
	case complexAttr:
		return ErrCodeComplex
	case "composites":
		return ErrCodeComposites
	case "type", "extends", "collection":
		return ErrCodeTypeName
	default:
		return ErrCodeGeneric
	}
}

// LoadDir loads every .cue file in dir and registers the types it defines.
func LoadDir(dir string, factory *Factory, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("schema directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing schema directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result, errs := LoadValue(value, factory, mode)
	if result != nil {
		result.FileCount = len(cueFiles)
	}
	return result, errs
}

// LoadSource compiles CUE source text and registers the types it defines.
func LoadSource(src string, factory *Factory, mode LoadMode) (*LoadResult, []error) {
	value := cuecontext.New().CompileString(src)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}
	return LoadValue(value, factory, mode)
}

// LoadValue compiles every definition under "type" in value, orders them so
// bases come first and builds them with factory. When factory is nil the
// definitions are compiled but not registered.
func LoadValue(value cue.Value, factory *Factory, mode LoadMode) (*LoadResult, []error) {
	var errs []error
	result := &LoadResult{CUEValue: value}

	typesVal := value.LookupPath(cue.ParsePath("type"))
	if !typesVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoDefinitions, Message: "no type definitions found"}}
	}
	iter, err := typesVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating types: %v", err)}}
	}

	var defs []*TypeDef
	for iter.Next() {
		def, compileErr := CompileType(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "type."+iter.Selector().String()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		defs = append(defs, def)
	}
	if len(defs) == 0 && len(errs) == 0 {
		return result, []error{&LoadError{Code: ErrCodeNoDefinitions, Message: "no type definitions found"}}
	}

	known := func(string) bool { return false }
	if factory != nil {
		known = func(name string) bool {
			_, ok := factory.Registry().Lookup(name)
			return ok
		}
	}
	ordered, orderErrs := orderByExtends(defs, known)
	errs = append(errs, orderErrs...)
	if len(orderErrs) > 0 && mode == LoadModeFailFast {
		return result, errs
	}
	result.Defs = ordered
	result.Warnings = AnalyzeCycles(ordered)

	if factory == nil {
		return result, errs
	}
	for _, def := range ordered {
		typ, buildErr := factory.Build(def)
		if buildErr != nil {
			code := ErrCodeGeneric
			if errors.Is(buildErr, ErrUnknownBase) {
				code = ErrCodeUnknownBase
			}
			errs = append(errs, &LoadError{Code: code, Message: buildErr.Error(), Pos: def.Source.Pos()})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Types = append(result.Types, typ)
	}
	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compile error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}
