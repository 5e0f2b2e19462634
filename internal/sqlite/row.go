package sqlite

import "fmt"

// Row is one result row produced by Statement.Step.
// Rows are detached copies and stay valid after the statement moves on.
type Row struct {
	names  []string
	values []Value
}

// Len returns the number of columns.
func (r *Row) Len() int { return len(r.values) }

// Names returns the column names in result order.
func (r *Row) Names() []string { return r.names }

// Index returns the position of the named column.
func (r *Row) Index(name string) (int, error) {
	for i, n := range r.names {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Value returns the column at position i decoded by its runtime type.
func (r *Row) Value(i int) (Value, error) {
	if i < 0 || i >= len(r.values) {
		return nil, fmt.Errorf("%w: index %d of %d", ErrColumnNotFound, i, len(r.values))
	}
	return r.values[i], nil
}

// Type returns the runtime storage class of column i.
func (r *Row) Type(i int) (ColumnType, error) {
	v, err := r.Value(i)
	if err != nil {
		return TypeNull, err
	}
	return v.Type(), nil
}

// IsNull reports whether column i holds NULL.
func (r *Row) IsNull(i int) bool {
	t, err := r.Type(i)
	return err == nil && t == TypeNull
}

// Int reads column i as an INTEGER.
func (r *Row) Int(i int) (int64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	n, ok := v.(Int)
	if !ok {
		return 0, mismatch(r, i, TypeInteger, v)
	}
	return int64(n), nil
}

// Float reads column i as a REAL.
func (r *Row) Float(i int) (float64, error) {
	v, err := r.Value(i)
	if err != nil {
		return 0, err
	}
	f, ok := v.(Float)
	if !ok {
		return 0, mismatch(r, i, TypeFloat, v)
	}
	return float64(f), nil
}

// Text reads column i as TEXT.
func (r *Row) Text(i int) (string, error) {
	v, err := r.Value(i)
	if err != nil {
		return "", err
	}
	s, ok := v.(Text)
	if !ok {
		return "", mismatch(r, i, TypeText, v)
	}
	return string(s), nil
}

// Blob reads column i as a BLOB.
func (r *Row) Blob(i int) ([]byte, error) {
	v, err := r.Value(i)
	if err != nil {
		return nil, err
	}
	b, ok := v.(Blob)
	if !ok {
		return nil, mismatch(r, i, TypeBlob, v)
	}
	return []byte(b), nil
}

// ValueNamed is Value by column name.
func (r *Row) ValueNamed(name string) (Value, error) {
	i, err := r.Index(name)
	if err != nil {
		return nil, err
	}
	return r.Value(i)
}

// IntNamed is Int by column name.
func (r *Row) IntNamed(name string) (int64, error) {
	i, err := r.Index(name)
	if err != nil {
		return 0, err
	}
	return r.Int(i)
}

// FloatNamed is Float by column name.
func (r *Row) FloatNamed(name string) (float64, error) {
	i, err := r.Index(name)
	if err != nil {
		return 0, err
	}
	return r.Float(i)
}

// TextNamed is Text by column name.
func (r *Row) TextNamed(name string) (string, error) {
	i, err := r.Index(name)
	if err != nil {
		return "", err
	}
	return r.Text(i)
}

// BlobNamed is Blob by column name.
func (r *Row) BlobNamed(name string) ([]byte, error) {
	i, err := r.Index(name)
	if err != nil {
		return nil, err
	}
	return r.Blob(i)
}

func mismatch(r *Row, i int, want ColumnType, got Value) error {
	return fmt.Errorf("%w: column %q is %s, want %s", ErrTypeMismatch, r.names[i], got.Type(), want)
}
