package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/sanitizr/internal/record"
	"github.com/roach88/sanitizr/internal/schema"
	"github.com/roach88/sanitizr/internal/store"
	"github.com/roach88/sanitizr/internal/testutil"
	"github.com/roach88/sanitizr/internal/transport"
	"github.com/roach88/sanitizr/internal/visibility"
)

// Harness runs scenario steps against one registry and one in-memory store.
type Harness struct {
	registry *visibility.Registry
	store    *store.Store
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario gets a fresh registry and a fresh in-memory database, and
// generated ids come from a deterministic sequence. An error is returned only
// when the scenario cannot run at all; failed expectations land in
// Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequenceIDGenerator("rec")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := testutil.DiscardLogger()
	factory := schema.NewFactory(visibility.NewRegistry(),
		schema.WithLogger(logger),
		schema.WithModels(func(collection string) any { return st.Collection(collection) }),
	)

	var errs []error
	if scenario.Schema != "" {
		_, errs = schema.LoadSource(scenario.Schema, factory, schema.LoadModeCollectAll)
	} else {
		_, errs = schema.LoadDir(scenario.SchemaDir, factory, schema.LoadModeCollectAll)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to load schema: %w", errors.Join(errs...))
	}

	h := &Harness{
		registry: factory.Registry(),
		store:    st,
		logger:   logger,
	}

	ctx := context.Background()
	if err := h.executeSetup(ctx, scenario.Setup); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}
	for i, check := range scenario.Checks {
		h.evaluateCheck(i, check, result)
	}
	return result, nil
}

func (h *Harness) executeSetup(ctx context.Context, setup []SetupRecord) error {
	for i, rec := range setup {
		t, ok := h.registry.Lookup(rec.Type)
		if !ok {
			return fmt.Errorf("setup[%d]: unknown type %q", i, rec.Type)
		}
		v, err := record.FromGo(rec.Record)
		if err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if _, err := h.collection(t).Put(ctx, t.Name, v.(record.Record)); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	return nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	trace := StepTrace{
		Index:     index,
		Op:        step.Op,
		Type:      step.Type,
		UserClass: step.UserClass,
	}
	label := fmt.Sprintf("steps[%d] %s %s", index, step.Op, step.Type)

	t, ok := h.registry.Lookup(step.Type)
	if !ok {
		trace.Error = "unknown type"
		result.AddStep(trace)
		result.AddError(fmt.Sprintf("%s: unknown type %q", label, step.Type))
		return
	}

	input, err := record.FromGo(step.Input)
	if err != nil {
		result.AddStep(trace)
		result.AddError(fmt.Sprintf("%s: input: %v", label, err))
		return
	}

	output, err := h.apply(ctx, t, step, input)
	if err != nil {
		trace.Error = string(visibility.ErrorCodeOf(err))
		if trace.Error == "" {
			trace.Error = err.Error()
		}
	} else {
		trace.Output = output
	}
	result.AddStep(trace)

	switch {
	case step.ExpectError != "":
		if err == nil {
			result.AddError(fmt.Sprintf("%s: expected error %s, got success", label, step.ExpectError))
		} else if trace.Error != step.ExpectError {
			result.AddError(fmt.Sprintf("%s: expected error %s, got %v", label, step.ExpectError, err))
		}
	case err != nil:
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", label, err))
	case step.ExpectNull:
		if !record.IsNull(output) {
			result.AddError(fmt.Sprintf("%s: expected null output, got %s", label, canonical(output)))
		}
	case step.Expect != nil:
		if msg := compare(step.Expect, output); msg != "" {
			result.AddError(fmt.Sprintf("%s: output %s", label, msg))
		}
	}

	if step.ExpectInput != nil {
		if msg := compare(step.ExpectInput, input); msg != "" {
			result.AddError(fmt.Sprintf("%s: input %s", label, msg))
		}
	}
}

func (h *Harness) apply(ctx context.Context, t *visibility.Type, step Step, input record.Value) (record.Value, error) {
	opts := visibility.Options{
		UserClass: visibility.UserClass(step.UserClass),
		Clone:     step.Clone,
		MaxDepth:  step.MaxDepth,
	}
	if step.ConcealWith != nil {
		with, err := record.FromGo(step.ConcealWith)
		if err != nil {
			return nil, fmt.Errorf("conceal_with: %w", err)
		}
		opts.ConcealWith = with
	}

	switch step.Op {
	case OpOmitNull:
		return t.Helper.OmitNull(input, opts)
	case OpOmitHidden:
		return t.Helper.OmitHidden(input, opts)
	case OpOmitReadOnly:
		return t.Helper.OmitReadOnly(input, opts)
	case OpConceal:
		return t.Helper.Conceal(input, opts)
	case OpReduceComplex:
		return t.Helper.ReduceComplex(input, opts)
	case OpPreProcess:
		return h.conductor(step).PreProcess(input, t, opts.UserClass)
	case OpList:
		records, err := h.collection(t).ListType(ctx, t.Name)
		if err != nil {
			return nil, err
		}
		list := make(record.List, len(records))
		for i, r := range records {
			list[i] = r
		}
		return h.conductor(step).PreProcess(list, t, opts.UserClass)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) conductor(step Step) *transport.Conductor {
	return transport.NewConductor(nil,
		transport.WithLogger(h.logger),
		transport.WithMaxDepth(step.MaxDepth),
	)
}

func (h *Harness) collection(t *visibility.Type) *store.Collection {
	if c, ok := t.Model.(*store.Collection); ok {
		return c
	}
	return h.store.Collection(t.CollectionName())
}

func (h *Harness) evaluateCheck(index int, check Check, result *Result) {
	label := fmt.Sprintf("checks[%d] %s.%s", index, check.Type, check.Property)
	t, ok := h.registry.Lookup(check.Type)
	if !ok {
		result.AddError(fmt.Sprintf("%s: unknown type %q", label, check.Type))
		return
	}

	class := visibility.UserClass(check.UserClass)
	if class == "" {
		class = t.Info.DefaultUserClass()
	}
	predicate := func(name string, want *bool, got bool) {
		if want != nil && *want != got {
			result.AddError(fmt.Sprintf("%s: %s for %s = %v, expected %v", label, name, class, got, *want))
		}
	}
	predicate("hidden", check.Hidden, t.Info.IsHidden(check.Property, class))
	predicate("read_only", check.ReadOnly, t.Info.IsReadOnly(check.Property, class))
	predicate("concealed", check.Concealed, t.Info.IsConcealed(check.Property, class))

	if check.Complex != nil {
		ref, _ := t.Info.Complex(check.Property)
		if ref != *check.Complex {
			result.AddError(fmt.Sprintf("%s: complex = %q, expected %q", label, ref, *check.Complex))
		}
	}
}

// compare reports how got differs from the decoded expectation, or "" when
// both have the same canonical form.
func compare(expected any, got record.Value) string {
	want, err := record.FromGo(expected)
	if err != nil {
		return fmt.Sprintf("expectation is not a value: %v", err)
	}
	if w, g := canonical(want), canonical(got); w != g {
		return fmt.Sprintf("mismatch:\n  expected: %s\n  actual:   %s", w, g)
	}
	return ""
}

func canonical(v record.Value) string {
	data, err := record.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("<%v>", err)
	}
	return string(data)
}
