package store

import (
	"context"
	"errors"
	"fmt"
)

// WithTransaction runs fn inside a transaction.
//
// If fn returns nil the transaction commits. If fn returns an error or
// panics, the transaction rolls back: every object inserted inside it is
// evicted from the cache and unbound, and every object deleted inside it is
// bound and cached again. Returning ErrRollback cancels cleanly
// and WithTransaction returns nil; any other error is returned wrapped.
// Panics are re-raised after the rollback.
//
// Objects updated inside a rolled-back transaction keep their in-memory
// state; their rows revert.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db, err := s.database()
	if err != nil {
		return err
	}
	if db.InTransaction() {
		return ErrNestedTransaction
	}
	if err := db.Begin(ctx); err != nil {
		return queryFailed("begin", 0, err)
	}
	s.inserted = nil
	s.deleted = nil

	defer func() {
		if p := recover(); p != nil {
			if rbErr := s.rollback(); rbErr != nil {
				s.logger.Error("rollback after panic failed", "error", rbErr)
			}
			panic(p)
		}
	}()

	if err := fn(ctx); err != nil {
		if rbErr := s.rollback(); rbErr != nil {
			return errors.Join(err, queryFailed("rollback", 0, rbErr))
		}
		if errors.Is(err, ErrRollback) {
			s.logger.Debug("transaction cancelled")
			return nil
		}
		s.logger.Warn("transaction rolled back", "error", err)
		return fmt.Errorf("transaction rolled back: %w", err)
	}

	if err := db.Commit(); err != nil {
		s.undo()
		return queryFailed("commit", 0, err)
	}
	s.inserted = nil
	s.deleted = nil
	return nil
}

// InTransaction reports whether a WithTransaction block is running.
func (s *Store) InTransaction() bool {
	return s.db != nil && s.db.InTransaction()
}

func (s *Store) rollback() error {
	defer s.undo()
	if s.db == nil {
		return errClosed
	}
	return s.db.Rollback()
}

// undo reverts the cache and bindings changed by the transaction that just
// ended without committing. Deleted objects are restored first so that an
// object both inserted and deleted in the block ends up unbound.
func (s *Store) undo() {
	for _, d := range s.deleted {
		d.obj.ObjectBase().Bind(d.id, s)
		if _, taken := s.cache[d.id]; d.cached && !taken {
			s.cache[d.id] = d.obj
		}
	}
	s.deleted = nil

	for _, obj := range s.inserted {
		b := obj.ObjectBase()
		if s.cache[b.ID()] == obj {
			delete(s.cache, b.ID())
		}
		b.Unbind()
	}
	s.inserted = nil
}
