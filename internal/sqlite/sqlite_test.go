package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var drivers = []string{DriverCGO, DriverPureGo}

func openTestDatabase(t *testing.T, driver string) *Database {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(context.Background(), path, WithDriver(driver))
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpen_CreatesFile(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "new.db")
			d, err := Open(context.Background(), path, WithDriver(driver))
			require.NoError(t, err)
			defer d.Close()

			_, err = d.Exec(context.Background(), "CREATE TABLE t (x INTEGER)")
			require.NoError(t, err)

			_, err = os.Stat(path)
			assert.NoError(t, err, "database file should exist")
			assert.Equal(t, path, d.Path())
			assert.Equal(t, driver, d.Driver())
		})
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(context.Background(), "/nonexistent/dir/test.db")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOpenFailed))
}

func TestOpen_AppliesPragmas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pragma.db")
	d, err := Open(context.Background(), path, WithPragmas(Pragma{Name: "user_version", Value: "7"}))
	require.NoError(t, err)
	defer d.Close()

	rows, err := d.QueryAll(context.Background(), "PRAGMA user_version")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, err := rows[0].Int(0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestOpen_BadPragma(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pragma.db")
	_, err := Open(context.Background(), path, WithPragmas(Pragma{Name: "journal_mode", Value: "'; nope"}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOpenFailed))
}

func TestClose_MultipleCalls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(context.Background(), path)
	require.NoError(t, err)

	require.NoError(t, d.Close())
	assert.NoError(t, d.Close())

	_, err = d.Prepare(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.Equal(t, StatusMisuse, StatusOf(err))
}

func TestBindAndStep_TypedColumns(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			d := openTestDatabase(t, driver)

			_, err := d.Exec(ctx, "CREATE TABLE t (i INTEGER, f REAL, s TEXT, b BLOB, n TEXT)")
			require.NoError(t, err)

			res, err := d.Exec(ctx, "INSERT INTO t (i, f, s, b, n) VALUES (?1, ?2, ?3, ?4, ?5)",
				Int(42), Float(2.5), Text("héllo"), Blob{0x00, 0x01, 0xff}, Null())
			require.NoError(t, err)
			assert.Equal(t, int64(1), res.LastInsertID)
			assert.Equal(t, int64(1), res.RowsAffected)

			stmt, err := d.Prepare(ctx, "SELECT i, f, s, b, n FROM t")
			require.NoError(t, err)
			defer stmt.Close()

			step := stmt.Step()
			require.Equal(t, StatusRow, step.Status)
			require.NoError(t, step.Err)
			row := stmt.Row()
			require.NotNil(t, row)

			assert.Equal(t, 5, row.Len())
			assert.Equal(t, []string{"i", "f", "s", "b", "n"}, row.Names())

			i, err := row.Int(0)
			require.NoError(t, err)
			assert.Equal(t, int64(42), i)

			f, err := row.Float(1)
			require.NoError(t, err)
			assert.Equal(t, 2.5, f)

			s, err := row.TextNamed("s")
			require.NoError(t, err)
			assert.Equal(t, "héllo", s)

			b, err := row.BlobNamed("b")
			require.NoError(t, err)
			assert.Equal(t, []byte{0x00, 0x01, 0xff}, b)

			assert.True(t, row.IsNull(4))
			typ, err := row.Type(4)
			require.NoError(t, err)
			assert.Equal(t, TypeNull, typ)

			assert.Equal(t, StatusDone, stmt.Step().Status)
			assert.Nil(t, stmt.Row())
			assert.Equal(t, StatusDone, stmt.Step().Status, "stepping past done stays done")
		})
	}
}

func TestRow_TypeMismatch(t *testing.T) {
	ctx := context.Background()
	d := openTestDatabase(t, DriverCGO)

	rows, err := d.QueryAll(ctx, "SELECT 1 AS one, 'x' AS ex")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]

	_, err = row.Text(0)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = row.Int(1)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = row.FloatNamed("one")
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = row.Blob(1)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = row.IntNamed("missing")
	assert.True(t, errors.Is(err, ErrColumnNotFound))

	_, err = row.Value(5)
	assert.True(t, errors.Is(err, ErrColumnNotFound))

	v, err := row.ValueNamed("one")
	require.NoError(t, err)
	assert.Equal(t, Int(1), v)
}

func TestPrepare_BindMismatch(t *testing.T) {
	ctx := context.Background()
	d := openTestDatabase(t, DriverCGO)

	_, err := d.Prepare(ctx, "SELECT ?, ?", Int(1))
	assert.True(t, errors.Is(err, ErrBindMismatch))

	_, err = d.Prepare(ctx, "SELECT ?1", Int(1), Int(2))
	assert.True(t, errors.Is(err, ErrBindMismatch))

	stmt, err := d.Prepare(ctx, "SELECT '?', ?", Int(1))
	require.NoError(t, err)
	stmt.Close()
}

func TestCountParams(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"SELECT 1", 0},
		{"SELECT ?", 1},
		{"SELECT ?, ?", 2},
		{"SELECT ?1, ?2, ?1", 2},
		{"UPDATE t SET a = ?1 WHERE id = ?3", 3},
		{"SELECT ?2, ?", 3},
		{"SELECT '?' , \"?\"", 0},
		{"SELECT :name", -1},
		{"SELECT @p, ?", -1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, countParams(tt.query))
		})
	}
}

func TestStep_ErrorStatus(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			d := openTestDatabase(t, driver)

			_, err := d.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
			require.NoError(t, err)
			_, err = d.Exec(ctx, "INSERT INTO t (id) VALUES (?)", Int(1))
			require.NoError(t, err)

			stmt, err := d.Prepare(ctx, "INSERT INTO t (id) VALUES (?)", Int(1))
			require.NoError(t, err)
			defer stmt.Close()

			step := stmt.Step()
			require.Error(t, step.Err)
			assert.Equal(t, StatusConstraint, step.Status)
			assert.Equal(t, StatusConstraint, StatusOf(step.Err))

			_, err = d.Exec(ctx, "INSERT INTO t (id) VALUES (?)", Int(1))
			require.Error(t, err)
			assert.Equal(t, StatusConstraint, StatusOf(err))
		})
	}
}

func TestStep_WriteStatementRunsOnFirstStep(t *testing.T) {
	ctx := context.Background()
	d := openTestDatabase(t, DriverCGO)

	_, err := d.Exec(ctx, "CREATE TABLE t (x INTEGER)")
	require.NoError(t, err)

	stmt, err := d.Prepare(ctx, "INSERT INTO t (x) VALUES (?)", Int(9))
	require.NoError(t, err)
	assert.Equal(t, StatusDone, stmt.Step().Status)
	require.NoError(t, stmt.Close())

	rows, err := d.QueryAll(ctx, "SELECT COUNT(*) FROM t")
	require.NoError(t, err)
	n, err := rows[0].Int(0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTransaction_CommitAndRollback(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			d := openTestDatabase(t, driver)

			_, err := d.Exec(ctx, "CREATE TABLE t (x INTEGER)")
			require.NoError(t, err)
			assert.True(t, d.Autocommit())

			require.NoError(t, d.Begin(ctx))
			assert.True(t, d.InTransaction())
			assert.False(t, d.Autocommit())
			assert.ErrorIs(t, d.Begin(ctx), ErrNestedTransaction)

			_, err = d.Exec(ctx, "INSERT INTO t (x) VALUES (?)", Int(1))
			require.NoError(t, err)
			require.NoError(t, d.Commit())
			assert.True(t, d.Autocommit())

			require.NoError(t, d.Begin(ctx))
			_, err = d.Exec(ctx, "INSERT INTO t (x) VALUES (?)", Int(2))
			require.NoError(t, err)
			require.NoError(t, d.Rollback())
			assert.False(t, d.InTransaction())

			rows, err := d.QueryAll(ctx, "SELECT x FROM t ORDER BY x")
			require.NoError(t, err)
			require.Len(t, rows, 1)
			x, err := rows[0].Int(0)
			require.NoError(t, err)
			assert.Equal(t, int64(1), x)

			assert.ErrorIs(t, d.Commit(), ErrNoTransaction)
			assert.ErrorIs(t, d.Rollback(), ErrNoTransaction)
		})
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "SQLITE_BUSY: The database file is locked", StatusBusy.String())
	assert.Equal(t, "SQLITE_DONE: sqlite3_step() has finished executing", StatusDone.String())
	assert.Equal(t, "unknown SQLite status 999", Status(999).String())

	assert.True(t, StatusConstraint.IsError())
	assert.False(t, StatusRow.IsError())
	assert.False(t, StatusDone.IsError())
	assert.False(t, StatusOK.IsError())
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, StatusOK, StatusOf(nil))
	assert.Equal(t, StatusError, StatusOf(errors.New("plain")))
	assert.Equal(t, StatusBusy, StatusOf(&EngineError{Status: StatusBusy}))
}

func TestColumnType_String(t *testing.T) {
	assert.Equal(t, "INTEGER", TypeInteger.String())
	assert.Equal(t, "BLOB", TypeBlob.String())
	assert.Equal(t, "ColumnType(42)", ColumnType(42).String())
}
