package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/sqlite"
)

// Insert archives obj into a new row with refcount 1, binds obj to s under
// the assigned id and caches it.
func (s *Store) Insert(ctx context.Context, obj archive.Object) error {
	db, err := s.database()
	if err != nil {
		return err
	}
	tag, err := s.reg.TagOf(obj)
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	data, err := archive.Marshal(ctx, s, s.reg, obj)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", tag, err)
	}

	res, err := db.Exec(ctx,
		"INSERT INTO object (type, data, refcount) VALUES (?, ?, 1)",
		sqlite.Text(tag), sqlite.Blob(data))
	if err != nil {
		return queryFailed("insert", 0, err)
	}

	if s.owns(obj) && s.cache[obj.ObjectBase().ID()] == obj {
		delete(s.cache, obj.ObjectBase().ID())
	}
	id := archive.ID(res.LastInsertID)
	obj.ObjectBase().Bind(id, s)
	s.cache[id] = obj
	if db.InTransaction() {
		s.inserted = append(s.inserted, obj)
	}
	s.logger.Debug("object inserted", "id", int64(id), "type", tag, "bytes", len(data))
	return nil
}

// Save updates obj when it is bound to s and inserts it otherwise.
func (s *Store) Save(ctx context.Context, obj archive.Object) error {
	if s.owns(obj) {
		return s.Update(ctx, obj)
	}
	return s.Insert(ctx, obj)
}

// Update re-archives obj and overwrites its row. It does nothing for an
// object without an id.
func (s *Store) Update(ctx context.Context, obj archive.Object) error {
	id := obj.ObjectBase().ID()
	if !id.Valid() {
		return nil
	}
	db, err := s.database()
	if err != nil {
		return err
	}
	tag, err := s.reg.TagOf(obj)
	if err != nil {
		return fmt.Errorf("store: update: %w", err)
	}
	data, err := archive.Marshal(ctx, s, s.reg, obj)
	if err != nil {
		return fmt.Errorf("store: update %s %d: %w", tag, id, err)
	}

	res, err := db.Exec(ctx,
		"UPDATE object SET type = ?, data = ? WHERE id = ?",
		sqlite.Text(tag), sqlite.Blob(data), sqlite.Int(int64(id)))
	if err != nil {
		return queryFailed("update", id, err)
	}
	if res.RowsAffected == 0 {
		return notFound("update", id)
	}
	s.logger.Debug("object updated", "id", int64(id), "type", tag, "bytes", len(data))
	return nil
}

// Delete removes obj's row regardless of its refcount, evicts it from the
// cache and unbinds it. It does nothing for an object without an id.
func (s *Store) Delete(ctx context.Context, obj archive.Object) error {
	b := obj.ObjectBase()
	id := b.ID()
	if !id.Valid() {
		return nil
	}
	if !s.owns(obj) {
		return notBound("delete", id)
	}
	db, err := s.database()
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, "DELETE FROM object WHERE id = ?", sqlite.Int(int64(id))); err != nil {
		return queryFailed("delete", id, err)
	}
	s.evict(obj, db.InTransaction())
	s.logger.Debug("object deleted", "id", int64(id))
	return nil
}

// evict removes a deleted object from the cache and unbinds it. Inside a
// transaction the deletion is recorded so a rollback can restore it.
func (s *Store) evict(obj archive.Object, inTx bool) {
	b := obj.ObjectBase()
	id := b.ID()
	cached := s.cache[id] == obj
	if cached {
		delete(s.cache, id)
	}
	if inTx {
		s.deleted = append(s.deleted, deletion{obj: obj, id: id, cached: cached})
	}
	b.Unbind()
}

// DeleteIDs removes the rows ids regardless of their refcount. Cached
// instances are evicted and unbound. Several ids are deleted atomically.
func (s *Store) DeleteIDs(ctx context.Context, ids ...archive.ID) error {
	db, err := s.database()
	if err != nil {
		return err
	}
	apply := func(ctx context.Context) error {
		for _, id := range ids {
			res, err := db.Exec(ctx, "DELETE FROM object WHERE id = ?", sqlite.Int(int64(id)))
			if err != nil {
				return queryFailed("delete", id, err)
			}
			if res.RowsAffected == 0 {
				return notFound("delete", id)
			}
		}
		return nil
	}
	if len(ids) > 1 && !db.InTransaction() {
		err = s.WithTransaction(ctx, apply)
	} else {
		err = apply(ctx)
	}
	if err != nil {
		return err
	}
	for _, id := range ids {
		if obj, ok := s.cache[id]; ok {
			s.evict(obj, db.InTransaction())
		}
	}
	s.logger.Debug("objects deleted", "count", len(ids))
	return nil
}

// Instantiate returns the live objects of type T with refcount > 0, in id
// order. With ids, only those rows are considered.
//
// Cached instances are returned as is; other rows are decoded. If any row
// fails to decode the call fails with ErrDecodeFailed and nothing it decoded
// is cached.
func Instantiate[T archive.Object](ctx context.Context, s *Store, ids ...archive.ID) ([]T, error) {
	tag, err := archive.TagFor[T](s.reg)
	if err != nil {
		return nil, fmt.Errorf("store: instantiate: %w", err)
	}
	objs, err := s.instantiate(ctx, tag, ids)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(objs))
	for _, obj := range objs {
		typed, ok := obj.(T)
		if !ok {
			s.logger.Warn("instantiated object has unexpected type",
				"id", int64(obj.ObjectBase().ID()),
				"type", tag,
				"go_type", fmt.Sprintf("%T", obj),
			)
			continue
		}
		out = append(out, typed)
	}
	return out, nil
}

// InstantiateOne returns the live object of type T stored under id.
func InstantiateOne[T archive.Object](ctx context.Context, s *Store, id archive.ID) (T, error) {
	var zero T
	if !id.Valid() {
		return zero, notFound("instantiate", id)
	}
	objs, err := Instantiate[T](ctx, s, id)
	if err != nil {
		return zero, err
	}
	if len(objs) == 0 {
		return zero, notFound("instantiate", id)
	}
	return objs[0], nil
}

// InstantiateTag is Instantiate for a type known only by its tag.
func (s *Store) InstantiateTag(ctx context.Context, tag string, ids ...archive.ID) ([]archive.Object, error) {
	return s.instantiate(ctx, tag, ids)
}

func (s *Store) instantiate(ctx context.Context, tag string, ids []archive.ID) ([]archive.Object, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}

	query := "SELECT id, type, data FROM object WHERE type = ? AND refcount > 0"
	args := []sqlite.Value{sqlite.Text(tag)}
	if len(ids) > 0 {
		query += " AND id IN (" + placeholders(len(ids)) + ")"
		for _, id := range ids {
			args = append(args, sqlite.Int(int64(id)))
		}
	}
	query += " ORDER BY id"

	rows, err := db.QueryAll(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("instantiate", 0, err)
	}

	// Decoded instances stay pending until every row has decoded, so a
	// failure leaves the cache as it was while later rows still share
	// instances decoded by earlier ones.
	s.pending = make(map[archive.ID]archive.Object)
	s.afterDecode = nil
	defer func() {
		s.pending = nil
		s.afterDecode = nil
	}()

	out := make([]archive.Object, 0, len(rows))
	for _, row := range rows {
		obj, err := s.decodeRow(ctx, row)
		if err != nil {
			for _, p := range s.pending {
				p.ObjectBase().Unbind()
			}
			return nil, err
		}
		out = append(out, obj)
	}
	for id, obj := range s.pending {
		s.cache[id] = obj
	}
	if len(s.pending) > 0 {
		s.logger.Debug("objects decoded", "type", tag, "rows", len(rows), "decoded", len(s.pending))
	}
	s.pending = nil

	after := s.afterDecode
	s.afterDecode = nil
	for _, fn := range after {
		if err := fn(ctx); err != nil {
			return nil, fmt.Errorf("store: instantiate %s: %w", tag, err)
		}
	}
	return out, nil
}

// AfterDecode queues fn until the running Instantiate has registered every
// object it decoded. Outside Instantiate fn runs at once.
func (s *Store) AfterDecode(fn func(ctx context.Context) error) {
	if s.pending == nil {
		if err := fn(context.Background()); err != nil {
			s.logger.Warn("deferred decode work failed", "error", err)
		}
		return
	}
	s.afterDecode = append(s.afterDecode, fn)
}

// ReadArchive returns the blob stored in row id, whatever its refcount.
func (s *Store) ReadArchive(ctx context.Context, id archive.ID) ([]byte, bool, error) {
	db, err := s.database()
	if err != nil {
		return nil, false, err
	}
	rows, err := db.QueryAll(ctx, "SELECT data FROM object WHERE id = ?", sqlite.Int(int64(id)))
	if err != nil {
		return nil, false, queryFailed("read", id, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}
	if rows[0].IsNull(0) {
		return nil, true, nil
	}
	data, err := rows[0].Blob(0)
	if err != nil {
		return nil, true, queryFailed("read", id, err)
	}
	return data, true, nil
}

func (s *Store) decodeRow(ctx context.Context, row *sqlite.Row) (archive.Object, error) {
	n, err := row.IntNamed("id")
	if err != nil {
		return nil, queryFailed("instantiate", 0, err)
	}
	id := archive.ID(n)
	if obj, ok := s.Lookup(id); ok {
		return obj, nil
	}
	rowType, err := row.TextNamed("type")
	if err != nil {
		return nil, queryFailed("instantiate", id, err)
	}
	var data []byte
	if !row.IsNull(2) {
		if data, err = row.BlobNamed("data"); err != nil {
			return nil, &Error{Code: CodeDecodeFailed, Op: "instantiate", ID: id, Err: err}
		}
	}

	root, fresh, err := archive.Unmarshal(ctx, s, s.reg, data, id)
	if err != nil {
		return nil, &Error{Code: CodeDecodeFailed, Op: "instantiate", ID: id, Err: err}
	}
	if tag, err := s.reg.TagOf(root); err != nil || tag != rowType {
		s.logger.Warn("stored type differs from decoded type",
			"id", int64(id),
			"row_type", rowType,
			"decoded_type", tag,
		)
	}
	for _, obj := range fresh {
		s.pending[obj.ObjectBase().ID()] = obj
	}
	return root, nil
}

// Count returns the number of live rows of type T.
func Count[T archive.Object](ctx context.Context, s *Store) (int64, error) {
	tag, err := archive.TagFor[T](s.reg)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return s.CountTag(ctx, tag)
}

// CountTag returns the number of rows of type tag with refcount > 0.
func (s *Store) CountTag(ctx context.Context, tag string) (int64, error) {
	db, err := s.database()
	if err != nil {
		return 0, err
	}
	rows, err := db.QueryAll(ctx,
		"SELECT COUNT(*) FROM object WHERE type = ? AND refcount > 0",
		sqlite.Text(tag))
	if err != nil {
		return 0, queryFailed("count", 0, err)
	}
	n, err := rows[0].Int(0)
	if err != nil {
		return 0, queryFailed("count", 0, err)
	}
	return n, nil
}

// ReferencesOf returns a reference set of every live row of type T, in id
// order, without decoding any of them.
func ReferencesOf[T archive.Object](ctx context.Context, s *Store) (archive.References[T], error) {
	tag, err := archive.TagFor[T](s.reg)
	if err != nil {
		return archive.References[T]{}, fmt.Errorf("store: references: %w", err)
	}
	db, err := s.database()
	if err != nil {
		return archive.References[T]{}, err
	}
	rows, err := db.QueryAll(ctx,
		"SELECT id FROM object WHERE type = ? AND refcount > 0 ORDER BY id",
		sqlite.Text(tag))
	if err != nil {
		return archive.References[T]{}, queryFailed("references", 0, err)
	}
	ids := make([]archive.ID, 0, len(rows))
	for _, row := range rows {
		n, err := row.Int(0)
		if err != nil {
			return archive.References[T]{}, queryFailed("references", 0, err)
		}
		ids = append(ids, archive.ID(n))
	}
	return archive.ReferencesFromIDs[T](ids...), nil
}

// Resolve instantiates the objects of refs in reference order. Ids whose
// rows are gone or no longer live are skipped.
func Resolve[T archive.Object](ctx context.Context, s *Store, refs archive.References[T]) ([]T, error) {
	ids := refs.IDs()
	if len(ids) == 0 {
		return nil, nil
	}
	objs, err := Instantiate[T](ctx, s, ids...)
	if err != nil {
		return nil, err
	}
	byID := make(map[archive.ID]T, len(objs))
	for _, obj := range objs {
		byID[obj.ObjectBase().ID()] = obj
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if obj, ok := byID[id]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

// owns reports whether obj is bound to s.
func (s *Store) owns(obj archive.Object) bool {
	b := obj.ObjectBase()
	return b.ID().Valid() && b.Store() == archive.Store(s)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
