package archive

import "slices"

// References is an ordered list of ids of objects of type T.
// It holds no instances; a store resolves it on demand.
type References[T Object] struct {
	ids []ID
}

// NewReferences returns a reference set of the ids of objs.
// Objects without an id are skipped.
func NewReferences[T Object](objs ...T) References[T] {
	r := References[T]{}
	for _, obj := range objs {
		if isNil(obj) {
			continue
		}
		if id := obj.ObjectBase().ID(); id.Valid() {
			r.ids = append(r.ids, id)
		}
	}
	return r
}

// ReferencesFromIDs returns a reference set holding ids, in order.
func ReferencesFromIDs[T Object](ids ...ID) References[T] {
	return References[T]{ids: slices.Clone(ids)}
}

// IDs returns a copy of the ids in order.
func (r References[T]) IDs() []ID { return slices.Clone(r.ids) }

// Len returns the number of ids.
func (r References[T]) Len() int { return len(r.ids) }

// Append returns a reference set with the ids of objs added at the end.
func (r References[T]) Append(objs ...T) References[T] {
	out := References[T]{ids: slices.Clone(r.ids)}
	out.ids = append(out.ids, NewReferences(objs...).ids...)
	return out
}

// Contains reports whether the set refers to id.
func (r References[T]) Contains(id ID) bool { return slices.Contains(r.ids, id) }
