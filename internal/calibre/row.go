package calibre

import (
	"fmt"
	"strconv"
)

func (r Row) value(name string) (any, error) {
	i, ok := r.cols[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return r.values[i], nil
}

func (r Row) required(name string) (any, error) {
	v, err := r.value(name)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%w: %s", ErrNullValue, name)
	}
	return v, nil
}

// Has reports whether the statement returned a column with this name.
func (r Row) Has(name string) bool {
	_, ok := r.cols[name]
	return ok
}

// String returns a non-null text column.
func (r Row) String(name string) (string, error) {
	v, err := r.required(name)
	if err != nil {
		return "", err
	}
	return asString(name, v)
}

// NullString returns a text column, nil when the value is NULL.
func (r Row) NullString(name string) (*string, error) {
	v, err := r.value(name)
	if err != nil || v == nil {
		return nil, err
	}
	s, err := asString(name, v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Int64 returns a non-null integer column.
func (r Row) Int64(name string) (int64, error) {
	v, err := r.required(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int64:
		return x, nil
	case float64:
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		return parseInt(name, x)
	case []byte:
		return parseInt(name, string(x))
	}
	return 0, fmt.Errorf("%w: %s is %T", ErrUnexpectedType, name, v)
}

// Float64 returns a non-null numeric column.
func (r Row) Float64(name string) (float64, error) {
	v, err := r.required(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case string:
		return parseFloat(name, x)
	case []byte:
		return parseFloat(name, string(x))
	}
	return 0, fmt.Errorf("%w: %s is %T", ErrUnexpectedType, name, v)
}

// Bool returns a non-null integer column as a flag (non-zero is true).
func (r Row) Bool(name string) (bool, error) {
	n, err := r.Int64(name)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

func asString(name string, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	}
	return "", fmt.Errorf("%w: %s is %T", ErrUnexpectedType, name, v)
}

func parseInt(name, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnexpectedType, name, err)
	}
	return n, nil
}

func parseFloat(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrUnexpectedType, name, err)
	}
	return f, nil
}
