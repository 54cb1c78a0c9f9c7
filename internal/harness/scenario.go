package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a sanitizer conformance test: a schema, records to store, a
// sequence of helper operations with expected outputs and TypeInfo checks.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is inline CUE source holding the type definitions.
	Schema string `yaml:"schema,omitempty"`

	// SchemaDir is a directory of CUE files, relative to the scenario file.
	SchemaDir string `yaml:"schema_dir,omitempty"`

	// Setup records are stored before the steps run. Only the list op reads them.
	Setup []SetupRecord `yaml:"setup,omitempty"`

	// Steps run in order against a fresh registry.
	Steps []Step `yaml:"steps"`

	// Checks query TypeInfo predicates after the steps.
	Checks []Check `yaml:"checks,omitempty"`
}

// SetupRecord is a record stored in its type's collection before the steps run.
type SetupRecord struct {
	Type   string         `yaml:"type"`
	Record map[string]any `yaml:"record"`
}

// Step applies one operation to an input value.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Type names the registered type whose helper runs the op.
	Type string `yaml:"type"`

	// UserClass is the audience. Empty means the type's default class.
	UserClass string `yaml:"user_class,omitempty"`

	// Clone runs the op on a copy; ExpectInput can then assert the input is unchanged.
	Clone bool `yaml:"clone,omitempty"`

	// ConcealWith replaces concealed values instead of true.
	ConcealWith any `yaml:"conceal_with,omitempty"`

	// MaxDepth bounds complex recursion. Zero means the default.
	MaxDepth int `yaml:"max_depth,omitempty"`

	// Input is the instance handed to the op. Ignored by list.
	Input any `yaml:"input,omitempty"`

	// Expect is the expected output. ExpectNull asserts a null output,
	// which YAML cannot tell apart from an absent expect.
	Expect     any  `yaml:"expect,omitempty"`
	ExpectNull bool `yaml:"expect_null,omitempty"`

	// ExpectError is the expected error code, e.g. "H003".
	ExpectError string `yaml:"expect_error,omitempty"`

	// ExpectInput is the expected state of Input after the op ran.
	ExpectInput any `yaml:"expect_input,omitempty"`
}

// Check asserts TypeInfo predicates for one property. Nil fields are not checked.
type Check struct {
	Type      string `yaml:"type"`
	Property  string `yaml:"property"`
	UserClass string `yaml:"user_class,omitempty"`

	Hidden    *bool `yaml:"hidden,omitempty"`
	ReadOnly  *bool `yaml:"read_only,omitempty"`
	Concealed *bool `yaml:"concealed,omitempty"`

	// Complex is the expected referenced type name. An empty string asserts
	// the property is not complex.
	Complex *string `yaml:"complex,omitempty"`
}

// Step operations.
const (
	OpOmitNull      = "omitNull"
	OpOmitHidden    = "omitHidden"
	OpOmitReadOnly  = "omitReadOnly"
	OpConceal       = "conceal"
	OpReduceComplex = "reduceComplex"
	OpPreProcess    = "preProcess"
	OpList          = "list"
)

var validOps = map[string]bool{
	OpOmitNull:      true,
	OpOmitHidden:    true,
	OpOmitReadOnly:  true,
	OpConceal:       true,
	OpReduceComplex: true,
	OpPreProcess:    true,
	OpList:          true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// SchemaDir is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.SchemaDir != "" && !filepath.IsAbs(scenario.SchemaDir) {
		scenario.SchemaDir = filepath.Join(filepath.Dir(path), scenario.SchemaDir)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. SchemaDir is left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	switch {
	case s.Schema == "" && s.SchemaDir == "":
		return errors.New("one of schema or schema_dir is required")
	case s.Schema != "" && s.SchemaDir != "":
		return errors.New("schema and schema_dir are mutually exclusive")
	}
	if len(s.Steps) == 0 && len(s.Checks) == 0 {
		return errors.New("at least one step or check is required")
	}

	for i, rec := range s.Setup {
		if rec.Type == "" {
			return fmt.Errorf("setup[%d]: type is required", i)
		}
		if rec.Record == nil {
			return fmt.Errorf("setup[%d]: record is required", i)
		}
	}

	for i, step := range s.Steps {
		if !validOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Type == "" {
			return fmt.Errorf("steps[%d]: type is required", i)
		}
		if step.ExpectError != "" && (step.Expect != nil || step.ExpectNull) {
			return fmt.Errorf("steps[%d]: expect_error cannot be combined with expect", i)
		}
		if step.Expect != nil && step.ExpectNull {
			return fmt.Errorf("steps[%d]: expect and expect_null are mutually exclusive", i)
		}
	}

	for i, check := range s.Checks {
		if check.Type == "" || check.Property == "" {
			return fmt.Errorf("checks[%d]: type and property are required", i)
		}
		if check.Hidden == nil && check.ReadOnly == nil && check.Concealed == nil && check.Complex == nil {
			return fmt.Errorf("checks[%d]: nothing to check", i)
		}
	}
	return nil
}
