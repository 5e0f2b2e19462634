package archive

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
)

// ErrUnknownType is returned when a tag or Go type has not been registered.
var ErrUnknownType = errors.New("unknown object type")

// Registry maps type tags to constructors and Go types back to tags.
//
// The set of variants is closed: a store can only decode tags registered
// here. A Registry is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Object
	tags      map[reflect.Type]string
}

// NewRegistry returns a registry holding the built-in Dictionary type.
func NewRegistry() *Registry {
	r := &Registry{
		factories: make(map[string]func() Object),
		tags:      make(map[reflect.Type]string),
	}
	Register(r, DictionaryTag, NewDictionary)
	return r
}

// Register adds the variant T under tag.
// Panics if tag or T is already registered.
func Register[T Object](r *Registry, tag string, factory func() T) {
	typ := reflect.TypeFor[T]()

	r.mu.Lock()
	defer r.mu.Unlock()

	if tag == "" {
		panic("archive: empty type tag")
	}
	if _, dup := r.factories[tag]; dup {
		panic(fmt.Sprintf("archive: duplicate type tag %q", tag))
	}
	if prev, dup := r.tags[typ]; dup {
		panic(fmt.Sprintf("archive: type %s already registered as %q", typ, prev))
	}
	r.factories[tag] = func() Object { return factory() }
	r.tags[typ] = tag
}

// New constructs a fresh, unbound instance of the variant registered under tag.
func (r *Registry) New(tag string) (Object, error) {
	r.mu.RLock()
	factory, ok := r.factories[tag]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: tag %q", ErrUnknownType, tag)
	}
	return factory(), nil
}

// TagOf returns the tag registered for obj's concrete type.
func (r *Registry) TagOf(obj Object) (string, error) {
	typ := reflect.TypeOf(obj)
	r.mu.RLock()
	tag, ok := r.tags[typ]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	return tag, nil
}

// TagFor returns the tag registered for T.
func TagFor[T Object](r *Registry) (string, error) {
	typ := reflect.TypeFor[T]()
	r.mu.RLock()
	tag, ok := r.tags[typ]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, typ)
	}
	return tag, nil
}

// Tags returns all registered tags, sorted.
func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tags := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
