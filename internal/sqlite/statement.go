package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Result describes the effect of a write statement.
type Result struct {
	LastInsertID int64
	RowsAffected int64
}

// StepResult is the outcome of one Statement.Step.
// Err is set whenever Status is neither StatusRow nor StatusDone.
type StepResult struct {
	Status Status
	Err    error
}

// Statement is a prepared query with its bound values.
// Call Step repeatedly to walk the result rows, or Exec for writes.
type Statement struct {
	ctx   context.Context
	query string
	stmt  *sql.Stmt
	args  []any
	rows  *sql.Rows
	row   *Row
	done  bool
}

// Query returns the SQL text of the statement.
func (s *Statement) Query() string { return s.query }

// Step advances the statement by one row.
func (s *Statement) Step() StepResult {
	if s.done {
		return StepResult{Status: StatusDone}
	}
	if s.rows == nil {
		rows, err := s.stmt.QueryContext(s.ctx, s.args...)
		if err != nil {
			return s.fail(err)
		}
		s.rows = rows
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return s.fail(err)
		}
		s.finish()
		return StepResult{Status: StatusDone}
	}

	names, err := s.rows.Columns()
	if err != nil {
		return s.fail(err)
	}
	raw := make([]any, len(names))
	dest := make([]any, len(names))
	for i := range raw {
		dest[i] = &raw[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		return s.fail(err)
	}
	values := make([]Value, len(raw))
	for i, src := range raw {
		v, err := valueOf(src)
		if err != nil {
			return s.fail(err)
		}
		values[i] = v
	}
	s.row = &Row{names: names, values: values}
	return StepResult{Status: StatusRow}
}

// Row returns the row produced by the last Step, or nil if that step was not StatusRow.
func (s *Statement) Row() *Row { return s.row }

// Exec runs a statement that returns no rows.
func (s *Statement) Exec() (Result, error) {
	res, err := s.stmt.ExecContext(s.ctx, s.args...)
	if err != nil {
		return Result{}, &EngineError{Status: StatusOf(err), Message: fmt.Sprintf("exec %q: %v", s.query, err), Err: err}
	}
	s.done = true
	var out Result
	// neither driver fails these for SQLite
	out.LastInsertID, _ = res.LastInsertId()
	out.RowsAffected, _ = res.RowsAffected()
	return out, nil
}

// Close releases the statement and any open cursor.
func (s *Statement) Close() error {
	s.finish()
	return s.stmt.Close()
}

func (s *Statement) finish() {
	s.done = true
	s.row = nil
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
}

func (s *Statement) fail(err error) StepResult {
	s.finish()
	status := StatusOf(err)
	return StepResult{
		Status: status,
		Err:    &EngineError{Status: status, Message: fmt.Sprintf("step %q: %v", s.query, err), Err: err},
	}
}
