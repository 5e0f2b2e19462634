package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/juju/mgo/v3/bson"
)

// Envelope keys. Every archived object, root or nested, is a document
// {type: <tag>, id: <int64>, fields: {...}}. A nested envelope without
// fields is a back reference to an object already being encoded.
const (
	keyType   = "type"
	keyID     = "id"
	keyFields = "fields"
)

var (
	// ErrCycle is returned when an object graph refers back to an ancestor
	// that has no id to refer to.
	ErrCycle = errors.New("cyclic reference to an unsaved object")

	// ErrEmptyKey is returned when a field is written or read with an empty key.
	ErrEmptyKey = errors.New("empty field key")
)

// Encoder collects the fields of one object.
//
// Errors are sticky: once a Put fails, later calls are ignored and Err
// reports the first failure.
type Encoder struct {
	ctx      context.Context
	store    Store
	reg      *Registry
	fields   bson.D
	visiting map[Object]bool
	err      error
}

func newEncoder(ctx context.Context, store Store, reg *Registry, visiting map[Object]bool) *Encoder {
	return &Encoder{ctx: ctx, store: store, reg: reg, fields: bson.D{}, visiting: visiting}
}

// Context returns the context of the operation that started the encode.
func (e *Encoder) Context() context.Context { return e.ctx }

// Store returns the store the object is being archived for. It may be nil.
func (e *Encoder) Store() Store { return e.store }

// Err returns the first error recorded by the encoder.
func (e *Encoder) Err() error { return e.err }

func (e *Encoder) fail(err error) {
	if e.err == nil {
		e.err = err
	}
}

func (e *Encoder) put(key string, v any) {
	if e.err != nil {
		return
	}
	if key == "" {
		e.fail(ErrEmptyKey)
		return
	}
	e.fields = append(e.fields, bson.DocElem{Name: key, Value: v})
}

// Put writes a plain value: integers, floats, strings, bools, byte slices,
// and structs or slices of them. Objects are routed to PutObject.
func (e *Encoder) Put(key string, v any) {
	switch x := v.(type) {
	case Object:
		e.PutObject(key, x)
		return
	case int:
		v = int64(x)
	case int32:
		v = int64(x)
	case float32:
		v = float64(x)
	case ID:
		v = int64(x)
	}
	e.put(key, v)
}

// PutObject writes obj inline as a nested envelope. A nil obj is stored as null.
func (e *Encoder) PutObject(key string, obj Object) {
	if e.err != nil {
		return
	}
	if isNil(obj) {
		e.put(key, nil)
		return
	}
	env, err := e.envelope(obj)
	if err != nil {
		e.fail(fmt.Errorf("field %q: %w", key, err))
		return
	}
	e.put(key, env)
}

// PutIDs writes a list of ids.
func (e *Encoder) PutIDs(key string, ids []ID) {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	e.put(key, out)
}

// PutList writes items as an array of nested envelopes.
func PutList[T Object](e *Encoder, key string, items []T) {
	if e.err != nil {
		return
	}
	out := make([]any, len(items))
	for i, item := range items {
		if isNil(item) {
			continue
		}
		env, err := e.envelope(item)
		if err != nil {
			e.fail(fmt.Errorf("field %q[%d]: %w", key, i, err))
			return
		}
		out[i] = env
	}
	e.put(key, out)
}

// PutReferences writes the ids of refs.
func PutReferences[T Object](e *Encoder, key string, refs References[T]) {
	e.PutIDs(key, refs.IDs())
}

func (e *Encoder) envelope(obj Object) (bson.D, error) {
	tag, err := e.reg.TagOf(obj)
	if err != nil {
		return nil, err
	}
	id := obj.ObjectBase().ID()
	env := bson.D{
		{Name: keyType, Value: tag},
		{Name: keyID, Value: int64(id)},
	}
	if e.visiting[obj] {
		if !id.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrCycle, tag)
		}
		return env, nil
	}

	e.visiting[obj] = true
	defer delete(e.visiting, obj)

	sub := newEncoder(e.ctx, e.store, e.reg, e.visiting)
	if err := obj.EncodeArchive(sub); err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, err)
	}
	if sub.err != nil {
		return nil, fmt.Errorf("encode %s: %w", tag, sub.err)
	}
	return append(env, bson.DocElem{Name: keyFields, Value: sub.fields}), nil
}

// Marshal archives obj into a blob for store.
func Marshal(ctx context.Context, store Store, reg *Registry, obj Object) ([]byte, error) {
	if isNil(obj) {
		return nil, errors.New("archive: nil object")
	}
	enc := newEncoder(ctx, store, reg, make(map[Object]bool))
	env, err := enc.envelope(obj)
	if err != nil {
		return nil, err
	}
	data, err := bson.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return data, nil
}
