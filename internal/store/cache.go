package store

import "github.com/roach88/zobject/internal/archive"

// Lookup returns the live instance cached for id.
func (s *Store) Lookup(id archive.ID) (archive.Object, bool) {
	if obj, ok := s.cache[id]; ok {
		return obj, true
	}
	if obj, ok := s.pending[id]; ok {
		return obj, true
	}
	return nil, false
}

// Forget evicts objs from the identity cache. The objects stay bound and
// may still be saved; the next Instantiate of their ids decodes new
// instances from the stored rows, so unsaved changes are not seen there.
func (s *Store) Forget(objs ...archive.Object) {
	for _, obj := range objs {
		id := obj.ObjectBase().ID()
		if s.cache[id] == obj {
			delete(s.cache, id)
		}
	}
}

// IsCached reports whether obj is the cached instance for its id.
func (s *Store) IsCached(obj archive.Object) bool {
	id := obj.ObjectBase().ID()
	if !id.Valid() {
		return false
	}
	cached, ok := s.cache[id]
	return ok && cached == obj
}

// CacheLen returns the number of cached instances.
func (s *Store) CacheLen() int { return len(s.cache) }
