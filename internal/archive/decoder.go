package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/juju/mgo/v3/bson"
)

// BSON element kinds the decoder inspects directly.
const (
	kindDocument  byte = 0x03
	kindArray     byte = 0x04
	kindUndefined byte = 0x06
	kindNull      byte = 0x0A
)

var (
	// ErrMissingField is recorded by Require for an absent key.
	ErrMissingField = errors.New("missing field")

	// ErrDanglingReference is returned for a back reference whose target is
	// neither cached nor decoded earlier in the same session.
	ErrDanglingReference = errors.New("dangling object reference")

	// ErrWrongType is returned when a decoded object is not of the requested Go type.
	ErrWrongType = errors.New("object has wrong type")

	// ErrMalformed is returned for a blob that is not a valid envelope.
	ErrMalformed = errors.New("malformed archive")
)

// session is shared by every decoder of one top-level Unmarshal.
type session struct {
	ctx    context.Context
	store  Store
	reg    *Registry
	logger *slog.Logger
	staged map[ID]Object
	fresh  []Object
	after  []func(ctx context.Context) error
}

func newSession(ctx context.Context, store Store, reg *Registry) *session {
	logger := slog.Default()
	if l, ok := store.(interface{ Logger() *slog.Logger }); ok && l.Logger() != nil {
		logger = l.Logger()
	}
	return &session{
		ctx:    ctx,
		store:  store,
		reg:    reg,
		logger: logger,
		staged: make(map[ID]Object),
	}
}

// Decoder reads the fields of one object.
//
// Reading an absent key yields the zero value. Errors are sticky: after the
// first failure reads return zero values and Err reports the failure.
type Decoder struct {
	s      *session
	tag    string
	fields map[string]bson.Raw
	err    error
}

// Context returns the context of the operation that started the decode.
func (d *Decoder) Context() context.Context { return d.s.ctx }

// Store returns the store performing the decode. It may be nil.
func (d *Decoder) Store() Store { return d.s.store }

// Tag returns the type tag of the envelope being decoded.
func (d *Decoder) Tag() string { return d.tag }

// Err returns the first error recorded by the decoder.
func (d *Decoder) Err() error { return d.err }

// AfterDecode registers fn to run once the whole decode has succeeded and
// its objects are registered with the store. fn never runs for a failed
// decode. Use it for side effects such as inserting new objects.
func (d *Decoder) AfterDecode(fn func(ctx context.Context) error) {
	d.s.after = append(d.s.after, fn)
}

func (d *Decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *Decoder) raw(key string) (bson.Raw, bool) {
	if d.err != nil {
		return bson.Raw{}, false
	}
	if key == "" {
		d.fail(ErrEmptyKey)
		return bson.Raw{}, false
	}
	r, ok := d.fields[key]
	if !ok || r.Kind == kindNull || r.Kind == kindUndefined {
		return bson.Raw{}, false
	}
	return r, true
}

// Has reports whether key is present and not null.
func (d *Decoder) Has(key string) bool {
	_, ok := d.raw(key)
	return ok
}

// Keys returns the field keys of the envelope in no particular order.
func (d *Decoder) Keys() []string {
	keys := make([]string, 0, len(d.fields))
	for k := range d.fields {
		keys = append(keys, k)
	}
	return keys
}

// Require records ErrMissingField unless every key is present.
func (d *Decoder) Require(keys ...string) {
	for _, key := range keys {
		if !d.Has(key) {
			d.fail(fmt.Errorf("%s: %w %q", d.tag, ErrMissingField, key))
			return
		}
	}
}

// Value decodes key into out, which must be a pointer.
// out is left unchanged when key is absent.
func (d *Decoder) Value(key string, out any) {
	r, ok := d.raw(key)
	if !ok {
		return
	}
	if err := r.Unmarshal(out); err != nil {
		d.fail(fmt.Errorf("%s field %q: %w", d.tag, key, err))
	}
}

// Int reads an integer field.
func (d *Decoder) Int(key string) int64 {
	var v int64
	d.Value(key, &v)
	return v
}

// Float reads a floating point field.
func (d *Decoder) Float(key string) float64 {
	var v float64
	d.Value(key, &v)
	return v
}

// String reads a string field.
func (d *Decoder) String(key string) string {
	var v string
	d.Value(key, &v)
	return v
}

// Bool reads a boolean field.
func (d *Decoder) Bool(key string) bool {
	var v bool
	d.Value(key, &v)
	return v
}

// Bytes reads a binary field.
func (d *Decoder) Bytes(key string) []byte {
	var v []byte
	d.Value(key, &v)
	return v
}

// IDs reads a list of ids.
func (d *Decoder) IDs(key string) []ID {
	var raw []int64
	d.Value(key, &raw)
	if raw == nil {
		return nil
	}
	ids := make([]ID, len(raw))
	for i, v := range raw {
		ids[i] = ID(v)
	}
	return ids
}

// Object reads a nested object, resolving its identity through the store.
// Returns nil for an absent or null field.
func (d *Decoder) Object(key string) Object {
	r, ok := d.raw(key)
	if !ok {
		return nil
	}
	obj, err := d.s.decodeObject(r)
	if err != nil {
		d.fail(fmt.Errorf("%s field %q: %w", d.tag, key, err))
		return nil
	}
	return obj
}

// DecodeList reads an array of nested objects of type T.
// Null elements are skipped.
func DecodeList[T Object](d *Decoder, key string) []T {
	r, ok := d.raw(key)
	if !ok {
		return nil
	}
	if r.Kind != kindArray {
		d.fail(fmt.Errorf("%s field %q: %w: want array, got kind 0x%02x", d.tag, key, ErrMalformed, r.Kind))
		return nil
	}
	var elems []bson.Raw
	if err := r.Unmarshal(&elems); err != nil {
		d.fail(fmt.Errorf("%s field %q: %w", d.tag, key, err))
		return nil
	}
	out := make([]T, 0, len(elems))
	for i, elem := range elems {
		obj, err := d.s.decodeObject(elem)
		if err != nil {
			d.fail(fmt.Errorf("%s field %q[%d]: %w", d.tag, key, i, err))
			return nil
		}
		if obj == nil {
			continue
		}
		typed, ok := obj.(T)
		if !ok {
			d.fail(fmt.Errorf("%s field %q[%d]: %w: %T", d.tag, key, i, ErrWrongType, obj))
			return nil
		}
		out = append(out, typed)
	}
	return out
}

// DecodeReferences reads a reference set written by PutReferences.
func DecodeReferences[T Object](d *Decoder, key string) References[T] {
	return References[T]{ids: d.IDs(key)}
}

type envelope struct {
	tag       string
	id        ID
	fields    map[string]bson.Raw
	hasFields bool
}

func parseEnvelope(r bson.Raw) (envelope, error) {
	var env envelope
	if r.Kind != kindDocument {
		return env, fmt.Errorf("%w: want document, got kind 0x%02x", ErrMalformed, r.Kind)
	}
	var doc bson.RawD
	if err := r.Unmarshal(&doc); err != nil {
		return env, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	for _, el := range doc {
		switch el.Name {
		case keyType:
			if err := el.Value.Unmarshal(&env.tag); err != nil {
				return env, fmt.Errorf("%w: type: %v", ErrMalformed, err)
			}
		case keyID:
			var id int64
			if err := el.Value.Unmarshal(&id); err != nil {
				return env, fmt.Errorf("%w: id: %v", ErrMalformed, err)
			}
			env.id = ID(id)
		case keyFields:
			var fields bson.RawD
			if err := el.Value.Unmarshal(&fields); err != nil {
				return env, fmt.Errorf("%w: fields: %v", ErrMalformed, err)
			}
			env.fields = make(map[string]bson.Raw, len(fields))
			for _, f := range fields {
				env.fields[f.Name] = f.Value
			}
			env.hasFields = true
		}
	}
	if env.tag == "" {
		return env, fmt.Errorf("%w: missing type tag", ErrMalformed)
	}
	return env, nil
}

// decodeObject resolves a nested envelope. Lookup order: the store's
// identity cache, then objects staged earlier in this session, then a new
// instance built from the registry and decoded from the object's own row,
// or from the inline copy when the store cannot read rows.
func (s *session) decodeObject(r bson.Raw) (Object, error) {
	if r.Kind == kindNull || r.Kind == kindUndefined {
		return nil, nil
	}
	env, err := parseEnvelope(r)
	if err != nil {
		return nil, err
	}
	if env.id.Valid() {
		if s.store != nil {
			if obj, ok := s.store.Lookup(env.id); ok {
				s.checkTag(obj, env.tag, env.id)
				return obj, nil
			}
		}
		if obj, ok := s.staged[env.id]; ok {
			s.checkTag(obj, env.tag, env.id)
			return obj, nil
		}
		if rows, ok := s.store.(ArchiveReader); ok {
			return s.decodeStored(rows, env)
		}
	}
	if !env.hasFields {
		return nil, fmt.Errorf("%w: %s %d", ErrDanglingReference, env.tag, env.id)
	}
	obj, err := s.reg.New(env.tag)
	if err != nil {
		return nil, err
	}
	if err := s.fill(obj, env.id, env); err != nil {
		return nil, err
	}
	return obj, nil
}

// decodeStored decodes the object stored under env.id from its own row.
// The inline copy in env is ignored: each row is authoritative for its id.
// A copy whose row is gone decodes detached, unbound and never cached.
func (s *session) decodeStored(rows ArchiveReader, env envelope) (Object, error) {
	data, found, err := rows.ReadArchive(s.ctx, env.id)
	if err != nil {
		return nil, fmt.Errorf("read %s %d: %w", env.tag, env.id, err)
	}
	if !found {
		if !env.hasFields {
			return nil, fmt.Errorf("%w: %s %d", ErrDanglingReference, env.tag, env.id)
		}
		s.logger.Warn("nested object has no row", "id", int64(env.id), "type", env.tag)
		obj, err := s.reg.New(env.tag)
		if err != nil {
			return nil, err
		}
		s.staged[env.id] = obj
		if err := s.decodeFields(obj, env); err != nil {
			return nil, err
		}
		return obj, nil
	}

	stored, err := parseEnvelope(bson.Raw{Kind: kindDocument, Data: data})
	if err != nil {
		return nil, fmt.Errorf("row %d: %w", env.id, err)
	}
	if !stored.hasFields {
		return nil, fmt.Errorf("%w: row %d has no fields", ErrMalformed, env.id)
	}
	if stored.tag != env.tag {
		s.logger.Warn("archive type tag mismatch",
			"id", int64(env.id),
			"envelope", env.tag,
			"instance", stored.tag,
		)
	}
	obj, err := s.reg.New(stored.tag)
	if err != nil {
		return nil, err
	}
	if err := s.fill(obj, env.id, stored); err != nil {
		return nil, err
	}
	return obj, nil
}

// fill binds obj under id and decodes env's fields into it.
// Objects with an id are staged before their fields are decoded so that
// back references inside them resolve to obj.
func (s *session) fill(obj Object, id ID, env envelope) error {
	if id.Valid() {
		obj.ObjectBase().Bind(id, s.store)
		s.staged[id] = obj
		s.fresh = append(s.fresh, obj)
	}
	return s.decodeFields(obj, env)
}

func (s *session) decodeFields(obj Object, env envelope) error {
	dec := &Decoder{s: s, tag: env.tag, fields: env.fields}
	if err := obj.DecodeArchive(dec); err != nil {
		return fmt.Errorf("decode %s: %w", env.tag, err)
	}
	if dec.err != nil {
		return fmt.Errorf("decode %s: %w", env.tag, dec.err)
	}
	return nil
}

func (s *session) checkTag(obj Object, tag string, id ID) {
	actual, err := s.reg.TagOf(obj)
	if err != nil || actual != tag {
		s.logger.Warn("archive type tag mismatch",
			"id", int64(id),
			"envelope", tag,
			"instance", actual,
		)
	}
}

// Unmarshal decodes a blob stored under id.
//
// id is authoritative for the root; the id inside the blob is a hint.
// Unmarshal returns the root together with every instance it newly created
// and bound, root included, so the caller can register them once the whole
// decode has succeeded. Nested objects already cached by store are reused.
func Unmarshal(ctx context.Context, store Store, reg *Registry, data []byte, id ID) (Object, []Object, error) {
	s := newSession(ctx, store, reg)
	if len(data) < 5 {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(data))
	}
	env, err := parseEnvelope(bson.Raw{Kind: kindDocument, Data: data})
	if err != nil {
		return nil, nil, err
	}
	if !env.hasFields {
		return nil, nil, fmt.Errorf("%w: root envelope has no fields", ErrMalformed)
	}
	if id.Valid() && env.id.Valid() && env.id != id {
		s.logger.Debug("archive root id differs from row id", "row", int64(id), "envelope", int64(env.id))
	}
	root, err := reg.New(env.tag)
	if err != nil {
		return nil, nil, err
	}
	if err := s.fill(root, id, env); err != nil {
		for _, obj := range s.fresh {
			obj.ObjectBase().Unbind()
		}
		return nil, nil, err
	}
	if len(s.after) > 0 {
		if d, ok := store.(Deferrer); ok {
			for _, fn := range s.after {
				d.AfterDecode(fn)
			}
		} else {
			for _, fn := range s.after {
				if err := fn(ctx); err != nil {
					return nil, nil, err
				}
			}
		}
	}
	return root, s.fresh, nil
}

// Snapshot returns the archive of obj as a plain tree of maps, slices and
// scalars, for diagnostics.
func Snapshot(reg *Registry, obj Object) (map[string]any, error) {
	data, err := Marshal(context.Background(), nil, reg, obj)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	return plainMap(doc), nil
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch x := v.(type) {
	case bson.M:
		return plainMap(x)
	case map[string]any:
		return plainMap(x)
	case bson.D:
		return plainMap(x.Map())
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plain(e)
		}
		return out
	case int:
		return int64(x)
	case int32:
		return int64(x)
	default:
		return v
	}
}

func isNil(obj Object) bool {
	if obj == nil {
		return true
	}
	v := reflect.ValueOf(obj)
	return v.Kind() == reflect.Pointer && v.IsNil()
}
