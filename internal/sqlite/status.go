package sqlite

import (
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	modernc "modernc.org/sqlite"
)

// Status is a primary SQLite result code.
type Status int

// Primary result codes, see https://sqlite.org/rescode.html.
const (
	StatusOK         Status = 0
	StatusError      Status = 1
	StatusInternal   Status = 2
	StatusPerm       Status = 3
	StatusAbort      Status = 4
	StatusBusy       Status = 5
	StatusLocked     Status = 6
	StatusNoMem      Status = 7
	StatusReadOnly   Status = 8
	StatusInterrupt  Status = 9
	StatusIOErr      Status = 10
	StatusCorrupt    Status = 11
	StatusNotFound   Status = 12
	StatusFull       Status = 13
	StatusCantOpen   Status = 14
	StatusProtocol   Status = 15
	StatusEmpty      Status = 16
	StatusSchema     Status = 17
	StatusTooBig     Status = 18
	StatusConstraint Status = 19
	StatusMismatch   Status = 20
	StatusMisuse     Status = 21
	StatusNoLFS      Status = 22
	StatusAuth       Status = 23
	StatusFormat     Status = 24
	StatusRange      Status = 25
	StatusNotADB     Status = 26
	StatusNotice     Status = 27
	StatusWarning    Status = 28
	StatusRow        Status = 100
	StatusDone       Status = 101
)

var statusText = map[Status]string{
	StatusOK:         "SQLITE_OK: Successful result",
	StatusError:      "SQLITE_ERROR: Generic error",
	StatusInternal:   "SQLITE_INTERNAL: Internal logic error in SQLite",
	StatusPerm:       "SQLITE_PERM: Access permission denied",
	StatusAbort:      "SQLITE_ABORT: Callback routine requested an abort",
	StatusBusy:       "SQLITE_BUSY: The database file is locked",
	StatusLocked:     "SQLITE_LOCKED: A table in the database is locked",
	StatusNoMem:      "SQLITE_NOMEM: A malloc() failed",
	StatusReadOnly:   "SQLITE_READONLY: Attempt to write a readonly database",
	StatusInterrupt:  "SQLITE_INTERRUPT: Operation terminated by sqlite3_interrupt()",
	StatusIOErr:      "SQLITE_IOERR: Some kind of disk I/O error occurred",
	StatusCorrupt:    "SQLITE_CORRUPT: The database disk image is malformed",
	StatusNotFound:   "SQLITE_NOTFOUND: Unknown opcode in sqlite3_file_control()",
	StatusFull:       "SQLITE_FULL: Insertion failed because database is full",
	StatusCantOpen:   "SQLITE_CANTOPEN: Unable to open the database file",
	StatusProtocol:   "SQLITE_PROTOCOL: Database lock protocol error",
	StatusEmpty:      "SQLITE_EMPTY: Internal use only",
	StatusSchema:     "SQLITE_SCHEMA: The database schema changed",
	StatusTooBig:     "SQLITE_TOOBIG: String or BLOB exceeds size limit",
	StatusConstraint: "SQLITE_CONSTRAINT: Abort due to constraint violation",
	StatusMismatch:   "SQLITE_MISMATCH: Data type mismatch",
	StatusMisuse:     "SQLITE_MISUSE: Library used incorrectly",
	StatusNoLFS:      "SQLITE_NOLFS: Uses OS features not supported on host",
	StatusAuth:       "SQLITE_AUTH: Authorization denied",
	StatusFormat:     "SQLITE_FORMAT: Not used",
	StatusRange:      "SQLITE_RANGE: 2nd parameter to sqlite3_bind out of range",
	StatusNotADB:     "SQLITE_NOTADB: File opened that is not a database file",
	StatusNotice:     "SQLITE_NOTICE: Notifications from sqlite3_log()",
	StatusWarning:    "SQLITE_WARNING: Warnings from sqlite3_log()",
	StatusRow:        "SQLITE_ROW: sqlite3_step() has another row ready",
	StatusDone:       "SQLITE_DONE: sqlite3_step() has finished executing",
}

// String returns the SQLite name and description of the status.
func (s Status) String() string {
	if text, ok := statusText[s]; ok {
		return text
	}
	return fmt.Sprintf("unknown SQLite status %d", int(s))
}

// IsError reports whether s is neither OK nor one of the step statuses.
func (s Status) IsError() bool {
	return s != StatusOK && s != StatusRow && s != StatusDone
}

// EngineError carries an engine status that did not match what the caller expected.
type EngineError struct {
	Status  Status
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%s)", e.Status, e.Message)
	}
	return e.Status.String()
}

func (e *EngineError) Unwrap() error { return e.Err }

// StatusOf extracts the primary result code carried by err.
//
// Errors from either driver and *EngineError are recognised. Any other non-nil
// error reports StatusError, nil reports StatusOK.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *EngineError
	if errors.As(err, &se) {
		return se.Status
	}
	var me sqlite3.Error
	if errors.As(err, &me) {
		return Status(me.Code)
	}
	var ce *modernc.Error
	if errors.As(err, &ce) {
		// extended codes keep the primary code in the low byte
		return Status(ce.Code() & 0xff)
	}
	return StatusError
}
