package harness

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/canonical"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Op, ev.Target, ev.Outcome)
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the harness state.
// Returns one message per failed assertion.
func EvaluateAssertions(ctx context.Context, h *Harness, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCount:
			err = h.assertCount(ctx, a)
		case AssertRows:
			err = h.assertRows(ctx, a)
		case AssertRefcount:
			err = h.assertRefcount(ctx, a)
		case AssertCached:
			err = h.assertCached(a)
		case AssertBound:
			err = h.assertBound(a)
		case AssertSame:
			err = h.assertSame(a)
		case AssertField:
			err = h.assertField(ctx, a)
		case AssertTraceOrder:
			err = assertTraceOrder(h.result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(h.result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func (h *Harness) assertCount(ctx context.Context, a Assertion) error {
	n, err := h.store.CountTag(ctx, a.Object)
	if err != nil {
		return err
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertCount,
			Expected: fmt.Sprintf("%d live %s objects", *a.Count, a.Object),
			Actual:   fmt.Sprintf("%d", n),
			Trace:    h.result.Trace,
		}
	}
	return nil
}

func (h *Harness) assertRows(ctx context.Context, a Assertion) error {
	entries, err := h.store.Entries(ctx, a.Object)
	if err != nil {
		return err
	}
	if n := int64(len(entries)); n != *a.Count {
		return &AssertionError{
			Type:     AssertRows,
			Expected: fmt.Sprintf("%d %s rows", *a.Count, a.Object),
			Actual:   fmt.Sprintf("%d", n),
			Trace:    h.result.Trace,
		}
	}
	return nil
}

func (h *Harness) assertRefcount(ctx context.Context, a Assertion) error {
	obj, ok := h.objects[a.Target]
	if !ok {
		return fmt.Errorf("unknown object %q", a.Target)
	}
	n, err := h.store.RefcountOf(ctx, obj.ObjectBase().ID())
	if err != nil {
		return err
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertRefcount,
			Expected: fmt.Sprintf("refcount %d for %s", *a.Count, a.Target),
			Actual:   fmt.Sprintf("%d", n),
			Trace:    h.result.Trace,
		}
	}
	return nil
}

func (h *Harness) assertCached(a Assertion) error {
	obj, ok := h.objects[a.Target]
	if !ok {
		return fmt.Errorf("unknown object %q", a.Target)
	}
	if got := h.store.IsCached(obj); got != *a.Want {
		return &AssertionError{
			Type:     AssertCached,
			Expected: fmt.Sprintf("cached(%s) = %t", a.Target, *a.Want),
			Actual:   fmt.Sprintf("%t", got),
		}
	}
	return nil
}

func (h *Harness) assertBound(a Assertion) error {
	obj, ok := h.objects[a.Target]
	if !ok {
		return fmt.Errorf("unknown object %q", a.Target)
	}
	if got := obj.ObjectBase().IsBound(); got != *a.Want {
		return &AssertionError{
			Type:     AssertBound,
			Expected: fmt.Sprintf("bound(%s) = %t", a.Target, *a.Want),
			Actual:   fmt.Sprintf("%t", got),
		}
	}
	return nil
}

func (h *Harness) assertSame(a Assertion) error {
	x, ok := h.objects[a.Target]
	if !ok {
		return fmt.Errorf("unknown object %q", a.Target)
	}
	y, ok := h.objects[a.Other]
	if !ok {
		return fmt.Errorf("unknown object %q", a.Other)
	}
	if got := x == y; got != *a.Want {
		return &AssertionError{
			Type:     AssertSame,
			Expected: fmt.Sprintf("same(%s, %s) = %t", a.Target, a.Other, *a.Want),
			Actual:   fmt.Sprintf("%t", got),
		}
	}
	return nil
}

// assertField compares one archived field of the target with the expected
// value. Both sides are compared in canonical JSON, so 103 matches 103.0.
func (h *Harness) assertField(ctx context.Context, a Assertion) error {
	obj, err := h.resolve(ctx, a.Target)
	if err != nil {
		return err
	}
	snap, err := archive.Snapshot(h.reg, obj)
	if err != nil {
		return err
	}
	got, err := lookupPath(snap["fields"], a.Field)
	if err != nil {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("%s.%s present", a.Target, a.Field),
			Actual:   err.Error(),
		}
	}

	gotJSON, err := canonical.Marshal(got)
	if err != nil {
		return fmt.Errorf("field %s: %w", a.Field, err)
	}
	wantJSON, err := canonical.Marshal(a.Value)
	if err != nil {
		return fmt.Errorf("expected value: %w", err)
	}
	if !bytes.Equal(gotJSON, wantJSON) {
		return &AssertionError{
			Type:     AssertField,
			Expected: fmt.Sprintf("%s.%s = %s", a.Target, a.Field, wantJSON),
			Actual:   string(gotJSON),
		}
	}
	return nil
}

// lookupPath walks a dotted path through maps and lists. Nested objects
// are envelopes; their fields are reached through the "fields" segment.
func lookupPath(v any, path string) (any, error) {
	for _, seg := range strings.Split(path, ".") {
		switch x := v.(type) {
		case map[string]any:
			next, ok := x[seg]
			if !ok {
				return nil, fmt.Errorf("no key %q", seg)
			}
			v = next
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(x) {
				return nil, fmt.Errorf("bad index %q for list of %d", seg, len(x))
			}
			v = x[i]
		default:
			return nil, fmt.Errorf("cannot descend into %T at %q", v, seg)
		}
	}
	return v, nil
}

// assertTraceOrder checks that the ops appear in the given order.
// Ops don't need to be consecutive.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Ops) && ev.Op == a.Ops[next] {
			next++
		}
	}
	if next < len(a.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("ops in order: %v", a.Ops),
			Actual:   fmt.Sprintf("missing %s after position %d", a.Ops[next], next),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks that an op appears exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	var n int64
	for _, ev := range trace {
		if ev.Op == a.Op {
			n++
		}
	}
	if n != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", *a.Count, a.Op),
			Actual:   fmt.Sprintf("%d occurrences", n),
			Trace:    trace,
		}
	}
	return nil
}
