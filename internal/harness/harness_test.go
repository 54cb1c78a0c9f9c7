package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sanitizr/internal/record"
)

const personSchema = `
type: person: {
	collection: "people"
	fields: {
		id:      string
		apiKey:  string @visibility(user=concealed)
		secret?: string @visibility(user=hidden)
	}
}
`

func TestScenarioGolden(t *testing.T) {
	for _, name := range []string{"conceal_and_hide", "reduce_complex"} {
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join("testdata", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestLoadScenarioResolvesSchemaDir(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "reduce_complex.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("testdata", "types"), scenario.SchemaDir)
}

func TestLoadScenarioRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"unknown_field.yaml", "field inputs not found"},
		{"no_schema.yaml", "one of schema or schema_dir is required"},
		{"bad_op.yaml", `unknown op "scrub"`},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			_, err := LoadScenario(filepath.Join("testdata", "invalid", tt.file))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenarioMissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenarioValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "description: d\nschema: x\nsteps: [{op: omitNull, type: person}]\n",
			want: "name is required",
		},
		{
			name: "both schemas",
			yaml: "name: n\ndescription: d\nschema: x\nschema_dir: y\nsteps: [{op: omitNull, type: person}]\n",
			want: "mutually exclusive",
		},
		{
			name: "no steps",
			yaml: "name: n\ndescription: d\nschema: x\n",
			want: "at least one step or check",
		},
		{
			name: "missing type",
			yaml: "name: n\ndescription: d\nschema: x\nsteps: [{op: conceal}]\n",
			want: "steps[0]: type is required",
		},
		{
			name: "error with expect",
			yaml: "name: n\ndescription: d\nschema: x\nsteps: [{op: conceal, type: person, expect: {}, expect_error: H001}]\n",
			want: "expect_error cannot be combined",
		},
		{
			name: "empty check",
			yaml: "name: n\ndescription: d\nschema: x\nchecks: [{type: person, property: id}]\n",
			want: "nothing to check",
		},
		{
			name: "setup without record",
			yaml: "name: n\ndescription: d\nschema: x\nsetup: [{type: person}]\nsteps: [{op: list, type: person}]\n",
			want: "setup[0]: record is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunReportsMismatches(t *testing.T) {
	scenario := &Scenario{
		Name:        "mismatch",
		Description: "expectations that do not hold",
		Schema:      personSchema,
		Steps: []Step{
			{Op: OpConceal, Type: "person", Input: map[string]any{"id": "p1", "apiKey": "k1"}, Expect: map[string]any{"id": "p1", "apiKey": "k1"}},
			{Op: OpOmitHidden, Type: "person", Input: map[string]any{"id": "p1"}, ExpectError: "H001"},
			{Op: OpOmitNull, Type: "ghost", Input: map[string]any{"id": "p1"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], `"apiKey":true`)
	assert.Contains(t, result.Errors[1], "expected error H001, got success")
	assert.Contains(t, result.Errors[2], `unknown type "ghost"`)
	assert.Equal(t, "unknown type", result.Trace[2].Error)
}

func TestRunCloneLeavesInput(t *testing.T) {
	scenario := &Scenario{
		Name:        "clone",
		Description: "clone keeps the input intact",
		Schema:      personSchema,
		Steps: []Step{
			{
				Op:          OpOmitHidden,
				Type:        "person",
				UserClass:   "user",
				Clone:       true,
				Input:       map[string]any{"id": "p1", "secret": "s"},
				Expect:      map[string]any{"id": "p1"},
				ExpectInput: map[string]any{"id": "p1", "secret": "s"},
			},
			{
				Op:          OpOmitHidden,
				Type:        "person",
				UserClass:   "user",
				Input:       map[string]any{"id": "p1", "secret": "s"},
				ExpectInput: map[string]any{"id": "p1", "secret": "s"},
			},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "steps[1]")
	assert.Contains(t, result.Errors[0], "input mismatch")
}

func TestRunChecks(t *testing.T) {
	yes, no := true, false
	scenario := &Scenario{
		Name:        "checks",
		Description: "TypeInfo predicates",
		Schema:      personSchema,
		Checks: []Check{
			{Type: "person", Property: "apiKey", Concealed: &yes, Hidden: &no},
			{Type: "person", Property: "secret", UserClass: "admin", Hidden: &yes},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "checks[1] person.secret: hidden for admin = false, expected true")
}

func TestRunSchemaError(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "schema does not compile",
		Schema:      "type: person: {",
		Steps:       []Step{{Op: OpOmitNull, Type: "person"}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load schema")
}

func TestSnapshot(t *testing.T) {
	result := NewResult()
	result.AddStep(StepTrace{Index: 0, Op: OpConceal, Type: "person", UserClass: "user", Output: record.Record{"id": record.String("p1")}})
	result.AddStep(StepTrace{Index: 1, Op: OpReduceComplex, Type: "person", Error: "H003"})

	data, err := Snapshot("snap", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"snap","trace":[{"index":0,"op":"conceal","output":{"id":"p1"},"type":"person","user_class":"user"},{"error":"H003","index":1,"op":"reduceComplex","type":"person"}]}`,
		string(data))
}
