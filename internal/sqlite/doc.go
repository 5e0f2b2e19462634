// Package sqlite is a thin typed layer over an embedded SQLite file.
//
// It exposes the prepare/bind/step/column cycle of the SQLite C API on top of
// database/sql:
//   - Open pins a single connection for the lifetime of the Database
//   - Values are bound positionally (1-based) from a closed set of types:
//     Int, Float, Text, Blob and Null
//   - Statement.Step yields StatusRow, StatusDone or an engine error status
//   - Row decodes columns by their runtime storage class and reports
//     ErrTypeMismatch when a caller asks for the wrong type
//
// Status codes are surfaced, never interpreted. Callers translate them into
// their own error taxonomy.
//
// Two drivers are supported: github.com/mattn/go-sqlite3 ("sqlite3", the
// default) and the pure-Go modernc.org/sqlite ("sqlite").
package sqlite
