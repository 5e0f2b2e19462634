package store

import (
	"errors"
	"fmt"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/sqlite"
)

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// CodeOpenFailed indicates the database file could not be opened or bootstrapped.
	CodeOpenFailed ErrorCode = "OPEN_FAILED"

	// CodeQueryFailed indicates a statement did not reach its expected terminal status.
	CodeQueryFailed ErrorCode = "QUERY_FAILED"

	// CodeObjectNotFound indicates no row exists for the requested id.
	CodeObjectNotFound ErrorCode = "OBJECT_NOT_FOUND"

	// CodeStoreNotBound indicates the object has no id or is bound to another store.
	CodeStoreNotBound ErrorCode = "STORE_NOT_BOUND"

	// CodeDecodeFailed indicates a stored blob could not be turned back into an object.
	CodeDecodeFailed ErrorCode = "DECODE_FAILED"
)

// Sentinels matched by errors.Is against any *Error of the same code.
var (
	ErrOpenFailed     = errors.New("open failed")
	ErrQueryFailed    = errors.New("query failed")
	ErrObjectNotFound = errors.New("object not found")
	ErrStoreNotBound  = archive.ErrStoreNotBound
	ErrDecodeFailed   = errors.New("decode failed")

	// ErrRollback cancels a transaction. WithTransaction rolls back and returns nil.
	ErrRollback = errors.New("transaction rollback requested")

	// ErrNestedTransaction is returned by WithTransaction inside a transaction.
	ErrNestedTransaction = sqlite.ErrNestedTransaction
)

var errClosed = errors.New("store is closed")

// Error is returned by store operations.
// Err holds the underlying cause; sqlite.StatusOf reaches engine statuses through it.
type Error struct {
	Code ErrorCode
	Op   string
	ID   archive.ID
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("store: %s", e.Op)
	if e.ID.Valid() {
		msg += fmt.Sprintf(" id=%d", e.ID)
	}
	msg += fmt.Sprintf(": %s", e.Code)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of e's code.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeOpenFailed:
		return target == ErrOpenFailed
	case CodeQueryFailed:
		return target == ErrQueryFailed
	case CodeObjectNotFound:
		return target == ErrObjectNotFound
	case CodeStoreNotBound:
		return target == ErrStoreNotBound
	case CodeDecodeFailed:
		return target == ErrDecodeFailed
	}
	return false
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	for errors.As(err, &se) {
		if se.Code == code {
			return true
		}
		err = se.Err
	}
	return false
}

// IsOpenFailed reports whether err is an OPEN_FAILED store error.
func IsOpenFailed(err error) bool { return hasCode(err, CodeOpenFailed) }

// IsQueryFailed reports whether err is a QUERY_FAILED store error.
func IsQueryFailed(err error) bool { return hasCode(err, CodeQueryFailed) }

// IsNotFound reports whether err is an OBJECT_NOT_FOUND store error.
func IsNotFound(err error) bool { return hasCode(err, CodeObjectNotFound) }

// IsStoreNotBound reports whether err is a STORE_NOT_BOUND error, from the
// store or from an unbound object's conveniences.
func IsStoreNotBound(err error) bool {
	return hasCode(err, CodeStoreNotBound) || errors.Is(err, archive.ErrStoreNotBound)
}

// IsDecodeFailed reports whether err is a DECODE_FAILED store error.
func IsDecodeFailed(err error) bool { return hasCode(err, CodeDecodeFailed) }

func queryFailed(op string, id archive.ID, err error) error {
	return &Error{Code: CodeQueryFailed, Op: op, ID: id, Err: err}
}

func notFound(op string, id archive.ID) error {
	return &Error{Code: CodeObjectNotFound, Op: op, ID: id}
}

func notBound(op string, id archive.ID) error {
	return &Error{Code: CodeStoreNotBound, Op: op, ID: id}
}
