package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sanitizr/internal/record"
)

// Snapshot renders the scenario name and step trace as canonical JSON.
// Output is omitted for failed steps and error is omitted for successful ones,
// so the same steps always produce the same bytes.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	trace := make(record.List, len(result.Trace))
	for i, step := range result.Trace {
		entry := record.Record{
			"index": record.Int(step.Index),
			"op":    record.String(step.Op),
			"type":  record.String(step.Type),
		}
		if step.UserClass != "" {
			entry["user_class"] = record.String(step.UserClass)
		}
		if step.Error != "" {
			entry["error"] = record.String(step.Error)
		} else if step.Output != nil {
			entry["output"] = step.Output
		}
		trace[i] = entry
	}

	return record.MarshalCanonical(record.Record{
		"scenario_name": record.String(scenarioName),
		"trace":         trace,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if the scenario cannot run. Mismatches fail t through goldie.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, snapshot)
	return nil
}
