package store

import (
	"context"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/sqlite"
)

// Refcount returns the stored refcount of obj.
func (s *Store) Refcount(ctx context.Context, obj archive.Object) (int64, error) {
	if !s.owns(obj) {
		return 0, notBound("refcount", obj.ObjectBase().ID())
	}
	return s.RefcountOf(ctx, obj.ObjectBase().ID())
}

// RefcountOf returns the stored refcount of the row id.
func (s *Store) RefcountOf(ctx context.Context, id archive.ID) (int64, error) {
	db, err := s.database()
	if err != nil {
		return 0, err
	}
	rows, err := db.QueryAll(ctx, "SELECT refcount FROM object WHERE id = ?", sqlite.Int(int64(id)))
	if err != nil {
		return 0, queryFailed("refcount", id, err)
	}
	if len(rows) == 0 {
		return 0, notFound("refcount", id)
	}
	n, err := rows[0].Int(0)
	if err != nil {
		return 0, queryFailed("refcount", id, err)
	}
	return n, nil
}

// Keep increments the refcount of each object by one.
func (s *Store) Keep(ctx context.Context, objs ...archive.Object) error {
	ids, err := s.idsOf("keep", objs)
	if err != nil {
		return err
	}
	return s.KeepIDs(ctx, ids...)
}

// KeepIDs increments the refcount of each row by one. Several ids are
// updated atomically.
func (s *Store) KeepIDs(ctx context.Context, ids ...archive.ID) error {
	return s.adjust(ctx, "keep", "UPDATE object SET refcount = refcount + 1 WHERE id = ?", ids)
}

// Waste decrements the refcount of each object by one.
func (s *Store) Waste(ctx context.Context, objs ...archive.Object) error {
	ids, err := s.idsOf("waste", objs)
	if err != nil {
		return err
	}
	return s.WasteIDs(ctx, ids...)
}

// WasteIDs decrements the refcount of each row by one, never below zero.
// Rows are not deleted; a row at zero is hidden from Instantiate and Count.
func (s *Store) WasteIDs(ctx context.Context, ids ...archive.ID) error {
	return s.adjust(ctx, "waste", "UPDATE object SET refcount = MAX(refcount - 1, 0) WHERE id = ?", ids)
}

func (s *Store) adjust(ctx context.Context, op, query string, ids []archive.ID) error {
	db, err := s.database()
	if err != nil {
		return err
	}
	apply := func(ctx context.Context) error {
		for _, id := range ids {
			res, err := db.Exec(ctx, query, sqlite.Int(int64(id)))
			if err != nil {
				return queryFailed(op, id, err)
			}
			if res.RowsAffected == 0 {
				return notFound(op, id)
			}
		}
		return nil
	}
	if len(ids) > 1 && !db.InTransaction() {
		return s.WithTransaction(ctx, apply)
	}
	return apply(ctx)
}

func (s *Store) idsOf(op string, objs []archive.Object) ([]archive.ID, error) {
	ids := make([]archive.ID, 0, len(objs))
	for _, obj := range objs {
		if !s.owns(obj) {
			return nil, notBound(op, obj.ObjectBase().ID())
		}
		ids = append(ids, obj.ObjectBase().ID())
	}
	return ids, nil
}
