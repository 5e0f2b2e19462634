package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/document"
	"github.com/roach88/zobject/internal/store"
	"github.com/roach88/zobject/internal/testutil"
)

// errRequestedRollback ends a transaction whose scenario outcome is error.
var errRequestedRollback = errors.New("scenario requested rollback")

// Harness executes scenario steps against one store file.
type Harness struct {
	path    string
	driver  string
	reg     *archive.Registry
	store   *store.Store
	seq     *testutil.Sequence
	logger  *slog.Logger
	objects map[string]archive.Object
	result  *Result
}

// Option configures Run.
type Option func(*Harness)

// WithLogger routes store and harness logs to logger. Default: discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh store file in a temporary directory
// that is removed afterwards. Ids are assigned from 1 and trace sequence
// numbers come from a fresh sequence, so identical scenarios produce
// identical traces.
//
// Step and assertion mismatches are reported in the result; the returned
// error is for scenarios that could not run at all.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "zobject-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario directory: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		path:    filepath.Join(dir, "scenario.db"),
		driver:  scenario.Driver,
		reg:     document.NewRegistry(),
		seq:     new(testutil.Sequence),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		objects: make(map[string]archive.Object),
		result:  NewResult(),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := h.open(); err != nil {
		return nil, err
	}
	defer func() { h.store.Close() }()

	ctx := context.Background()
	for i, step := range scenario.Setup {
		if _, err := h.execute(ctx, step); err != nil {
			return nil, fmt.Errorf("failed to execute setup step %d (%s): %w", i, step.Op, err)
		}
	}

	for i, step := range scenario.Flow {
		h.step(ctx, fmt.Sprintf("flow[%d]", i), step)
	}

	for _, msg := range EvaluateAssertions(ctx, h, scenario.Assertions) {
		h.result.AddError(msg)
	}

	tags, err := h.store.Tags(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	for _, tc := range tags {
		h.result.State[tc.Tag] = tc.Live
	}
	return h.result, nil
}

func (h *Harness) open() error {
	st, err := store.Open(h.path,
		store.WithRegistry(h.reg),
		store.WithLogger(h.logger),
		store.WithDriver(h.driver),
	)
	if err != nil {
		return fmt.Errorf("failed to open scenario store: %w", err)
	}
	h.store = st
	return nil
}

// step executes one traced step and checks its expected outcome.
func (h *Harness) step(ctx context.Context, where string, step Step) {
	ev, err := h.execute(ctx, step)
	if err != nil {
		ev.Outcome = "error:" + errorCode(err)
	}

	switch {
	case step.Expect != nil && err == nil:
		h.result.AddError(fmt.Sprintf("%s %s: expected error %s, got success", where, step.Op, step.Expect.Error))
	case step.Expect != nil && !matchesCode(step.Expect.Error, err):
		h.result.AddError(fmt.Sprintf("%s %s: expected error %s, got %v", where, step.Op, step.Expect.Error, err))
	case step.Expect == nil && err != nil:
		h.result.AddError(fmt.Sprintf("%s %s: %v", where, step.Op, err))
	}

	ev.Seq = h.seq.Next()
	ev.Op = step.Op
	h.result.AddTrace(ev)
	h.logger.Debug("scenario step", "where", where, "op", step.Op, "outcome", ev.Outcome)
}

// execute runs step and describes it as a trace event without sequence
// number. Transactions trace their body steps as they run.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Target: step.Target, Type: step.Type, Outcome: OutcomeOK}

	switch step.Op {
	case OpCreate:
		obj, err := h.create(ctx, step)
		if err != nil {
			return ev, err
		}
		h.objects[step.Name] = obj
		ev.Target = step.Name
		ev.ID = int64(obj.ObjectBase().ID())

	case OpSave:
		obj, err := h.resolve(ctx, step.Target)
		if err != nil {
			return ev, err
		}
		if err := h.store.Save(ctx, obj); err != nil {
			return ev, err
		}
		ev.ID = int64(obj.ObjectBase().ID())

	case OpMove:
		obj, err := h.resolve(ctx, step.Target)
		if err != nil {
			return ev, err
		}
		shape, ok := obj.(document.Shape)
		if !ok {
			return ev, fmt.Errorf("%s is not a shape", step.Target)
		}
		dx, err := number(step.Args, "dx")
		if err != nil {
			return ev, err
		}
		dy, err := number(step.Args, "dy")
		if err != nil {
			return ev, err
		}
		shape.Offset(dx, dy)

	case OpKeep, OpWaste:
		names := step.Targets
		if step.Target != "" {
			names = append([]string{step.Target}, names...)
		}
		objs := make([]archive.Object, 0, len(names))
		for _, name := range names {
			obj, err := h.resolve(ctx, name)
			if err != nil {
				return ev, err
			}
			objs = append(objs, obj)
		}
		var err error
		if step.Op == OpKeep {
			err = h.store.Keep(ctx, objs...)
		} else {
			err = h.store.Waste(ctx, objs...)
		}
		if err != nil {
			return ev, err
		}
		if len(objs) == 1 {
			id := objs[0].ObjectBase().ID()
			n, err := h.store.RefcountOf(ctx, id)
			if err != nil {
				return ev, err
			}
			ev.ID = int64(id)
			ev.Value = n
		}

	case OpDelete:
		obj, err := h.resolve(ctx, step.Target)
		if err != nil {
			return ev, err
		}
		ev.ID = int64(obj.ObjectBase().ID())
		if err := h.store.Delete(ctx, obj); err != nil {
			return ev, err
		}

	case OpForget:
		obj, ok := h.objects[step.Target]
		if !ok {
			return ev, fmt.Errorf("unknown object %q", step.Target)
		}
		h.store.Forget(obj)
		ev.ID = int64(obj.ObjectBase().ID())

	case OpLoad:
		obj, err := h.load(ctx, step.Target)
		if err != nil {
			return ev, err
		}
		h.objects[step.Name] = obj
		ev.ID = int64(obj.ObjectBase().ID())

	case OpInstantiate:
		objs, err := h.store.InstantiateTag(ctx, step.Type)
		if err != nil {
			return ev, err
		}
		ev.Value = int64(len(objs))

	case OpReopen:
		if err := h.store.Close(); err != nil {
			return ev, err
		}
		if err := h.open(); err != nil {
			return ev, err
		}

	case OpTransaction:
		return h.transaction(ctx, step)

	default:
		return ev, fmt.Errorf("unknown op %q", step.Op)
	}
	return ev, nil
}

func (h *Harness) transaction(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Outcome: OutcomeCommitted}
	err := h.store.WithTransaction(ctx, func(ctx context.Context) error {
		for i, inner := range step.Steps {
			h.step(ctx, fmt.Sprintf("transaction.steps[%d]", i), inner)
		}
		switch step.Outcome {
		case TxError:
			return errRequestedRollback
		case TxCancel:
			return store.ErrRollback
		}
		return nil
	})
	switch {
	case errors.Is(err, errRequestedRollback):
		ev.Outcome = OutcomeRolledBack
		return ev, nil
	case err != nil:
		return ev, err
	case step.Outcome == TxCancel:
		ev.Outcome = OutcomeCancelled
	}
	return ev, nil
}

func (h *Harness) create(ctx context.Context, step Step) (archive.Object, error) {
	switch step.Type {
	case document.TagRectangle, document.TagOval:
		r, err := rectArg(step.Args)
		if err != nil {
			return nil, err
		}
		if step.Type == document.TagOval {
			return document.NewOval(ctx, h.store, r)
		}
		return document.NewRectangle(ctx, h.store, r.Origin, r.Size)

	case document.TagCircle:
		x, err := number(step.Args, "x")
		if err != nil {
			return nil, err
		}
		y, err := number(step.Args, "y")
		if err != nil {
			return nil, err
		}
		radius, err := number(step.Args, "radius")
		if err != nil {
			return nil, err
		}
		return document.NewCircle(ctx, h.store, document.Point{X: x, Y: y}, radius)

	case document.TagLayer:
		var shapes []document.Shape
		for _, name := range names(step.Args, "shapes") {
			obj, err := h.resolve(ctx, name)
			if err != nil {
				return nil, err
			}
			shape, ok := obj.(document.Shape)
			if !ok {
				return nil, fmt.Errorf("%s is not a shape", name)
			}
			shapes = append(shapes, shape)
		}
		l := &document.Layer{Shapes: shapes}
		l.Hidden, _ = step.Args["hidden"].(bool)
		if err := h.store.Insert(ctx, l); err != nil {
			return nil, err
		}
		return l, nil

	case document.TagContents:
		var layers []*document.Layer
		for _, name := range names(step.Args, "layers") {
			obj, err := h.resolve(ctx, name)
			if err != nil {
				return nil, err
			}
			l, ok := obj.(*document.Layer)
			if !ok {
				return nil, fmt.Errorf("%s is not a layer", name)
			}
			layers = append(layers, l)
		}
		return document.NewContents(ctx, h.store, layers...)

	case archive.DictionaryTag:
		d := archive.NewDictionary()
		if entries, ok := step.Args["entries"].(map[string]any); ok {
			for k, v := range entries {
				d.Set(k, v)
			}
		}
		if err := h.store.Insert(ctx, d); err != nil {
			return nil, err
		}
		return d, nil
	}
	return nil, fmt.Errorf("cannot create type %q", step.Type)
}

// resolve returns the object bound to name as seen by the current store.
// An object left behind by a reopen is replaced by the live instance of
// its id when there is one.
func (h *Harness) resolve(ctx context.Context, name string) (archive.Object, error) {
	obj, ok := h.objects[name]
	if !ok {
		return nil, fmt.Errorf("unknown object %q", name)
	}
	b := obj.ObjectBase()
	if !b.ID().Valid() || b.Store() == archive.Store(h.store) {
		return obj, nil
	}
	loaded, err := h.load(ctx, name)
	if store.IsNotFound(err) {
		return obj, nil
	}
	if err != nil {
		return nil, err
	}
	h.objects[name] = loaded
	return loaded, nil
}

// load instantiates the live object stored under the id of name.
func (h *Harness) load(ctx context.Context, name string) (archive.Object, error) {
	obj, ok := h.objects[name]
	if !ok {
		return nil, fmt.Errorf("unknown object %q", name)
	}
	id := obj.ObjectBase().ID()
	if !id.Valid() {
		return nil, &store.Error{Code: store.CodeStoreNotBound, Op: "load"}
	}
	tag, err := h.reg.TagOf(obj)
	if err != nil {
		return nil, err
	}
	objs, err := h.store.InstantiateTag(ctx, tag, id)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, &store.Error{Code: store.CodeObjectNotFound, Op: "load", ID: id}
	}
	return objs[0], nil
}

func errorCode(err error) string {
	switch {
	case store.IsNotFound(err):
		return ErrCodeNotFound
	case store.IsStoreNotBound(err):
		return ErrCodeNotBound
	case errors.Is(err, store.ErrNestedTransaction):
		return ErrCodeNestedTransaction
	case store.IsDecodeFailed(err):
		return ErrCodeDecodeFailed
	}
	return "failed"
}

func matchesCode(want string, err error) bool {
	return err != nil && (want == ErrCodeAny || want == errorCode(err))
}

func rectArg(args map[string]any) (document.Rect, error) {
	var v [4]float64
	for i, key := range []string{"x", "y", "width", "height"} {
		n, err := number(args, key)
		if err != nil {
			return document.Rect{}, err
		}
		v[i] = n
	}
	return document.RectOf(v[0], v[1], v[2], v[3]), nil
}

// number reads a numeric argument. Missing keys read as zero.
func number(args map[string]any, key string) (float64, error) {
	switch v := args[key].(type) {
	case nil:
		return 0, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	default:
		return 0, fmt.Errorf("argument %q: want a number, got %T", key, v)
	}
}

func names(args map[string]any, key string) []string {
	list, _ := args[key].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
