package store

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/zobject/internal/document"
	"github.com/roach88/zobject/internal/sqlite"
)

// createTestStore creates a store in a temporary file with the document
// types registered.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"), opts...)
}

// openTestStore opens path and closes the store when the test ends.
func openTestStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithRegistry(document.NewRegistry())}, opts...)
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// captureLogs returns a logger writing text records into the returned buffer.
func captureLogs() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func newRect(t *testing.T, s *Store, x, y, w, h float64) *document.Rectangle {
	t.Helper()
	r, err := document.NewRectangle(context.Background(), s, document.Point{X: x, Y: y}, document.Size{Width: w, Height: h})
	require.NoError(t, err)
	return r
}

// rawCount counts rows of tag regardless of refcount.
func rawCount(t *testing.T, s *Store, tag string) int64 {
	t.Helper()
	rows, err := s.Database().QueryAll(context.Background(),
		"SELECT COUNT(*) FROM object WHERE type = ?", sqlite.Text(tag))
	require.NoError(t, err)
	n, err := rows[0].Int(0)
	require.NoError(t, err)
	return n
}
