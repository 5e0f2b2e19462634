package archive

import (
	"context"
	"errors"
)

// ID is the row identity of a stored object. Values <= 0 mean unassigned.
type ID int64

// Valid reports whether the id has been assigned by a store.
func (id ID) Valid() bool { return id > 0 }

// ErrStoreNotBound is returned by Base conveniences on an object that is not
// bound to a store.
var ErrStoreNotBound = errors.New("object is not bound to a store")

// Object is implemented by every persistable type.
//
// Implementations embed Base and expose it through ObjectBase. EncodeArchive
// writes the object's own fields; DecodeArchive reads them back. Identity is
// handled by the envelope and must not be written as a field.
type Object interface {
	ObjectBase() *Base
	EncodeArchive(enc *Encoder) error
	DecodeArchive(dec *Decoder) error
}

// Store is the part of an object store that objects bind to.
type Store interface {
	Insert(ctx context.Context, obj Object) error
	Save(ctx context.Context, obj Object) error
	RefcountOf(ctx context.Context, id ID) (int64, error)
	KeepIDs(ctx context.Context, ids ...ID) error
	WasteIDs(ctx context.Context, ids ...ID) error

	// Lookup returns the live cached instance for id, if any.
	Lookup(id ID) (Object, bool)
}

// ArchiveReader is implemented by stores that can read the archive stored
// in one row. Decoding through such a store takes a nested object that is
// not cached from its own row rather than from the copy inside its parent.
type ArchiveReader interface {
	// ReadArchive returns the blob stored under id, whatever its refcount.
	// found is false when no row has that id.
	ReadArchive(ctx context.Context, id ID) (data []byte, found bool, err error)
}

// Deferrer is implemented by stores that register decoded objects after
// Unmarshal returns. Work registered with Decoder.AfterDecode is handed to
// the store, which runs it once the decoded objects are registered. Without
// a Deferrer, Unmarshal runs that work itself before returning.
type Deferrer interface {
	AfterDecode(fn func(ctx context.Context) error)
}

// Base carries the identity and store binding of an object.
// The zero value is an unbound object.
type Base struct {
	id    ID
	store Store
}

// ObjectBase returns b. Types embedding Base satisfy that part of Object.
func (b *Base) ObjectBase() *Base { return b }

// ID returns the row id, or 0 when the object has never been stored.
func (b *Base) ID() ID { return b.id }

// Store returns the store the object is bound to, or nil.
func (b *Base) Store() Store { return b.store }

// Bind attaches the object to store under id.
func (b *Base) Bind(id ID, store Store) {
	b.id = id
	b.store = store
}

// Unbind detaches the object and resets its id.
func (b *Base) Unbind() {
	b.id = 0
	b.store = nil
}

// IsBound reports whether the object has an id and a store.
func (b *Base) IsBound() bool { return b.store != nil && b.id.Valid() }

// Save persists self through its bound store.
// self must be the object embedding b.
func (b *Base) Save(ctx context.Context, self Object) error {
	if b.store == nil {
		return ErrStoreNotBound
	}
	return b.store.Save(ctx, self)
}

// Refcount reads the stored refcount.
func (b *Base) Refcount(ctx context.Context) (int64, error) {
	if !b.IsBound() {
		return 0, ErrStoreNotBound
	}
	return b.store.RefcountOf(ctx, b.id)
}

// Keep increments the stored refcount.
func (b *Base) Keep(ctx context.Context) error {
	if !b.IsBound() {
		return ErrStoreNotBound
	}
	return b.store.KeepIDs(ctx, b.id)
}

// Waste decrements the stored refcount. The row is never deleted.
func (b *Base) Waste(ctx context.Context) error {
	if !b.IsBound() {
		return ErrStoreNotBound
	}
	return b.store.WasteIDs(ctx, b.id)
}
