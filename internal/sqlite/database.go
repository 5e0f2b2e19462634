package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

var (
	// ErrOpenFailed is returned when the engine cannot open or create the file.
	ErrOpenFailed = errors.New("sqlite: open failed")

	// ErrBindMismatch is returned when the number of bound values does not
	// match the parameter markers of the query.
	ErrBindMismatch = errors.New("sqlite: parameter count mismatch")

	// ErrNestedTransaction is returned by Begin while a transaction is open.
	ErrNestedTransaction = errors.New("sqlite: transaction already in progress")

	// ErrNoTransaction is returned by Commit or Rollback outside a transaction.
	ErrNoTransaction = errors.New("sqlite: no transaction in progress")
)

// Pragma is a PRAGMA name/value pair applied when the database is opened.
type Pragma struct {
	Name  string
	Value string
}

// Option configures Open.
type Option func(*options)

type options struct {
	driver  string
	pragmas []Pragma
}

// WithDriver selects the database/sql driver. Default: DriverCGO.
func WithDriver(name string) Option {
	return func(o *options) {
		if name != "" {
			o.driver = name
		}
	}
}

// WithPragmas appends pragmas applied after the connection is established.
func WithPragmas(pragmas ...Pragma) Option {
	return func(o *options) {
		o.pragmas = append(o.pragmas, pragmas...)
	}
}

// Database is an open SQLite file with one pinned connection.
//
// A Database is not safe for concurrent use. Statements prepared while a
// transaction is open run inside that transaction.
type Database struct {
	path   string
	driver string
	db     *sql.DB
	conn   *sql.Conn
	tx     *sql.Tx
}

// preparer is satisfied by both *sql.Conn and *sql.Tx.
type preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Open opens the database file at path, creating it if it does not exist.
func Open(ctx context.Context, path string, opts ...Option) (*Database, error) {
	o := options{driver: DriverCGO}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open(o.driver, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}

	// SQLite allows a single writer; every statement goes through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	conn, err := db.Conn(ctx)
	if err == nil {
		err = conn.PingContext(ctx)
	}
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		db.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpenFailed, path, err)
	}

	d := &Database{path: path, driver: o.driver, db: db, conn: conn}
	for _, p := range o.pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", p.Name, p.Value)
		if _, err := conn.ExecContext(ctx, query); err != nil {
			d.Close()
			return nil, fmt.Errorf("%w: %s: %q: %w", ErrOpenFailed, path, query, err)
		}
	}
	return d, nil
}

// Path returns the file path the database was opened with.
func (d *Database) Path() string { return d.path }

// Driver returns the database/sql driver name in use.
func (d *Database) Driver() string { return d.driver }

// Close rolls back any open transaction and closes the connection.
func (d *Database) Close() error {
	if d.db == nil {
		return nil
	}
	if d.tx != nil {
		_ = d.tx.Rollback()
		d.tx = nil
	}
	var errs []error
	if d.conn != nil {
		errs = append(errs, d.conn.Close())
		d.conn = nil
	}
	errs = append(errs, d.db.Close())
	d.db = nil
	return errors.Join(errs...)
}

func (d *Database) target() (preparer, error) {
	if d.tx != nil {
		return d.tx, nil
	}
	if d.conn == nil {
		return nil, &EngineError{Status: StatusMisuse, Message: "database is closed"}
	}
	return d.conn, nil
}

// Prepare compiles query and binds args to its parameters, in order, starting at 1.
func (d *Database) Prepare(ctx context.Context, query string, args ...Value) (*Statement, error) {
	if n := countParams(query); n >= 0 && n != len(args) {
		return nil, fmt.Errorf("%w: query has %d parameters, %d values bound", ErrBindMismatch, n, len(args))
	}
	p, err := d.target()
	if err != nil {
		return nil, err
	}
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	return &Statement{ctx: ctx, query: query, stmt: stmt, args: driverArgs(args)}, nil
}

// Exec prepares, executes and closes a statement that returns no rows.
func (d *Database) Exec(ctx context.Context, query string, args ...Value) (Result, error) {
	stmt, err := d.Prepare(ctx, query, args...)
	if err != nil {
		return Result{}, err
	}
	defer stmt.Close()
	return stmt.Exec()
}

// QueryAll prepares a statement, steps it to completion and returns every row.
func (d *Database) QueryAll(ctx context.Context, query string, args ...Value) ([]*Row, error) {
	stmt, err := d.Prepare(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	rows := []*Row{}
	for {
		res := stmt.Step()
		switch res.Status {
		case StatusRow:
			rows = append(rows, stmt.Row())
		case StatusDone:
			return rows, nil
		default:
			return nil, res.Err
		}
	}
}

// Begin starts a transaction. Nested transactions are not supported.
func (d *Database) Begin(ctx context.Context) error {
	if d.tx != nil {
		return ErrNestedTransaction
	}
	if d.conn == nil {
		return &EngineError{Status: StatusMisuse, Message: "database is closed"}
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	d.tx = tx
	return nil
}

// Commit commits the open transaction and returns to autocommit mode.
func (d *Database) Commit() error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	tx := d.tx
	d.tx = nil
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback discards the open transaction and returns to autocommit mode.
func (d *Database) Rollback() error {
	if d.tx == nil {
		return ErrNoTransaction
	}
	tx := d.tx
	d.tx = nil
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// InTransaction reports whether a transaction is open.
func (d *Database) InTransaction() bool { return d.tx != nil }

// Autocommit reports whether the database is in autocommit mode.
func (d *Database) Autocommit() bool { return d.tx == nil }

// countParams returns the number of values a query expects, or -1 when the
// query uses named parameters and the count is left to the engine.
func countParams(query string) int {
	n, next := 0, 0
	var quote byte
	for i := 0; i < len(query); i++ {
		c := query[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case ':', '@', '$':
			if i+1 < len(query) && isIdentByte(query[i+1]) {
				return -1
			}
		case '?':
			j := i + 1
			idx := 0
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				idx = idx*10 + int(query[j]-'0')
				j++
			}
			if j == i+1 {
				next++
				idx = next
			} else if idx > next {
				next = idx
			}
			if idx > n {
				n = idx
			}
			i = j - 1
		}
	}
	return n
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
