package store

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/roach88/zobject/internal/archive"
	"github.com/roach88/zobject/internal/config"
	"github.com/roach88/zobject/internal/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store persists archived objects in the single object table of a SQLite
// file and keeps at most one live instance per id.
//
// A Store is not safe for concurrent use; callers serialise access.
type Store struct {
	db     *sqlite.Database
	reg    *archive.Registry
	logger *slog.Logger

	cache map[archive.ID]archive.Object

	// pending holds instances decoded by an Instantiate call that has not
	// finished yet. Lookup consults it after cache.
	pending map[archive.ID]archive.Object

	// inserted lists objects inserted inside the open transaction.
	inserted []archive.Object

	// deleted lists objects unbound by deletes inside the open transaction.
	deleted []deletion

	// afterDecode holds work deferred by decoders of the running Instantiate.
	afterDecode []func(ctx context.Context) error
}

// deletion records an object unbound by a delete, so a rollback can bind
// it again.
type deletion struct {
	obj    archive.Object
	id     archive.ID
	cached bool
}

// Option configures Open.
type Option func(*options)

type options struct {
	reg     *archive.Registry
	logger  *slog.Logger
	driver  string
	pragmas []sqlite.Pragma
}

// WithRegistry sets the registry of decodable types. Default: archive.NewRegistry().
func WithRegistry(reg *archive.Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.reg = reg
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithDriver selects the SQL driver, sqlite.DriverCGO or sqlite.DriverPureGo.
func WithDriver(name string) Option {
	return func(o *options) {
		if name != "" {
			o.driver = name
		}
	}
}

// WithPragmas appends pragmas applied after the defaults.
func WithPragmas(pragmas ...sqlite.Pragma) Option {
	return func(o *options) {
		o.pragmas = append(o.pragmas, pragmas...)
	}
}

// FromConfig applies the database section of a configuration file.
// Empty values keep the defaults.
func FromConfig(cfg config.Database) Option {
	return func(o *options) {
		if cfg.Driver != "" {
			o.driver = cfg.Driver
		}
		if cfg.JournalMode != "" {
			o.pragmas = append(o.pragmas, sqlite.Pragma{Name: "journal_mode", Value: cfg.JournalMode})
		}
		if cfg.Synchronous != "" {
			o.pragmas = append(o.pragmas, sqlite.Pragma{Name: "synchronous", Value: cfg.Synchronous})
		}
		if cfg.BusyTimeoutMS > 0 {
			o.pragmas = append(o.pragmas, sqlite.Pragma{Name: "busy_timeout", Value: strconv.Itoa(cfg.BusyTimeoutMS)})
		}
	}
}

// defaultPragmas are applied to every database before configured ones.
var defaultPragmas = []sqlite.Pragma{
	{Name: "journal_mode", Value: "WAL"},
	{Name: "synchronous", Value: "NORMAL"},
	{Name: "busy_timeout", Value: "5000"},
}

// Open creates or opens the store file at path and ensures the object
// table exists. Opening the same file repeatedly is safe.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{driver: sqlite.DriverCGO}
	for _, opt := range opts {
		opt(&o)
	}
	if o.reg == nil {
		o.reg = archive.NewRegistry()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	ctx := context.Background()
	pragmas := append(append([]sqlite.Pragma{}, defaultPragmas...), o.pragmas...)
	db, err := sqlite.Open(ctx, path, sqlite.WithDriver(o.driver), sqlite.WithPragmas(pragmas...))
	if err != nil {
		return nil, &Error{Code: CodeOpenFailed, Op: "open", Err: err}
	}

	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		db.Close()
		return nil, &Error{Code: CodeOpenFailed, Op: "open", Err: fmt.Errorf("apply schema: %w", err)}
	}

	o.logger.Debug("store opened", "path", path, "driver", o.driver)
	return &Store{
		db:     db,
		reg:    o.reg,
		logger: o.logger,
		cache:  make(map[archive.ID]archive.Object),
	}, nil
}

// Close closes the database and empties the identity cache.
// Cached objects stay bound to the closed store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.cache = make(map[archive.ID]archive.Object)
	s.inserted = nil
	s.deleted = nil
	if err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

// Path returns the file path the store was opened with.
func (s *Store) Path() string {
	if s.db == nil {
		return ""
	}
	return s.db.Path()
}

// Registry returns the registry used to decode objects.
func (s *Store) Registry() *archive.Registry { return s.reg }

// Logger returns the store's logger. Decoders log through it.
func (s *Store) Logger() *slog.Logger { return s.logger }

// Database returns the underlying database for diagnostic queries.
// Statements run inside the store's open transaction, if any.
func (s *Store) Database() *sqlite.Database { return s.db }

func (s *Store) database() (*sqlite.Database, error) {
	if s.db == nil {
		return nil, &Error{Code: CodeQueryFailed, Op: "query", Err: errClosed}
	}
	return s.db, nil
}
