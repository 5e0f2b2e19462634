package sqlite

import (
	"errors"
	"fmt"
)

// ColumnType is the runtime storage class of a column value.
type ColumnType int

const (
	TypeNull ColumnType = iota
	TypeInteger
	TypeFloat
	TypeText
	TypeBlob
)

func (t ColumnType) String() string {
	switch t {
	case TypeNull:
		return "NULL"
	case TypeInteger:
		return "INTEGER"
	case TypeFloat:
		return "FLOAT"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	default:
		return fmt.Sprintf("ColumnType(%d)", int(t))
	}
}

var (
	// ErrTypeMismatch is returned when a column is read as a type other than
	// its runtime storage class.
	ErrTypeMismatch = errors.New("sqlite: column type mismatch")

	// ErrColumnNotFound is returned for a column index or name that the row does not have.
	ErrColumnNotFound = errors.New("sqlite: column not found")
)

// Value is a typed SQL value, either bound as a parameter or read from a column.
// The set of implementations is closed: Int, Float, Text, Blob and Null.
type Value interface {
	Type() ColumnType
	driverValue() any
}

// Int is an INTEGER value.
type Int int64

// Float is a REAL value.
type Float float64

// Text is a TEXT value.
type Text string

// Blob is a BLOB value.
type Blob []byte

// NullValue is the SQL NULL.
type NullValue struct{}

// Null returns the SQL NULL value.
func Null() Value { return NullValue{} }

func (Int) Type() ColumnType       { return TypeInteger }
func (Float) Type() ColumnType     { return TypeFloat }
func (Text) Type() ColumnType      { return TypeText }
func (Blob) Type() ColumnType      { return TypeBlob }
func (NullValue) Type() ColumnType { return TypeNull }

func (v Int) driverValue() any     { return int64(v) }
func (v Float) driverValue() any   { return float64(v) }
func (v Text) driverValue() any    { return string(v) }
func (NullValue) driverValue() any { return nil }

func (v Blob) driverValue() any {
	if v == nil {
		// a nil []byte would bind as NULL
		return []byte{}
	}
	return []byte(v)
}

// valueOf converts a value scanned by database/sql into a Value.
func valueOf(src any) (Value, error) {
	switch v := src.(type) {
	case nil:
		return NullValue{}, nil
	case int64:
		return Int(v), nil
	case float64:
		return Float(v), nil
	case string:
		return Text(v), nil
	case []byte:
		return Blob(v), nil
	case bool:
		if v {
			return Int(1), nil
		}
		return Int(0), nil
	default:
		return nil, fmt.Errorf("%w: unsupported driver value %T", ErrTypeMismatch, src)
	}
}

func driverArgs(values []Value) []any {
	args := make([]any, len(values))
	for i, v := range values {
		if v == nil {
			args[i] = nil
			continue
		}
		args[i] = v.driverValue()
	}
	return args
}
