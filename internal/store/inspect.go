package store

import (
	"context"

	"github.com/roach88/zobject/internal/sqlite"
)

// Entry describes one raw row of the object table.
type Entry struct {
	ID       int64  `json:"id"`
	Type     string `json:"type"`
	Refcount int64  `json:"refcount"`
	Size     int64  `json:"size"`
}

// TagCount summarizes the rows stored under one type tag.
type TagCount struct {
	Tag  string `json:"type"`
	Rows int64  `json:"rows"`
	Live int64  `json:"live"`
}

// Entries lists rows in id order, including rows with refcount <= 0.
// An empty tag lists every row.
func (s *Store) Entries(ctx context.Context, tag string) ([]Entry, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	query := "SELECT id, type, refcount, length(data) AS size FROM object"
	var args []sqlite.Value
	if tag != "" {
		query += " WHERE type = ?"
		args = append(args, sqlite.Text(tag))
	}
	query += " ORDER BY id"

	rows, err := db.QueryAll(ctx, query, args...)
	if err != nil {
		return nil, queryFailed("entries", 0, err)
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var e Entry
		if e.ID, err = row.IntNamed("id"); err != nil {
			return nil, queryFailed("entries", 0, err)
		}
		if e.Type, err = row.TextNamed("type"); err != nil {
			return nil, queryFailed("entries", 0, err)
		}
		if e.Refcount, err = row.IntNamed("refcount"); err != nil {
			return nil, queryFailed("entries", 0, err)
		}
		if !row.IsNull(3) {
			if e.Size, err = row.IntNamed("size"); err != nil {
				return nil, queryFailed("entries", 0, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Tags returns one summary per stored type, sorted by tag.
func (s *Store) Tags(ctx context.Context) ([]TagCount, error) {
	db, err := s.database()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryAll(ctx, `
		SELECT type,
		       COUNT(*) AS total,
		       SUM(CASE WHEN refcount > 0 THEN 1 ELSE 0 END) AS live
		FROM object
		GROUP BY type
		ORDER BY type`)
	if err != nil {
		return nil, queryFailed("tags", 0, err)
	}
	out := make([]TagCount, 0, len(rows))
	for _, row := range rows {
		var tc TagCount
		if tc.Tag, err = row.Text(0); err != nil {
			return nil, queryFailed("tags", 0, err)
		}
		if tc.Rows, err = row.Int(1); err != nil {
			return nil, queryFailed("tags", 0, err)
		}
		if tc.Live, err = row.Int(2); err != nil {
			return nil, queryFailed("tags", 0, err)
		}
		out = append(out, tc)
	}
	return out, nil
}
