package frontmatter

import (
	"errors"
	"fmt"
	"math"
)

// Recognized front matter keys.
const (
	KeyTitle           = "title"
	KeyWeight          = "weight"
	KeyCollapseSection = "bookCollapseSection"
	KeyHidden          = "bookHidden"
	KeyDraft           = "draft"
)

// ErrInvalidField indicates a recognized key carried a value of the wrong type.
var ErrInvalidField = errors.New("invalid front matter field")

// Fields is the permissive key/value container parsed from a front matter block.
// Unrecognized keys are carried along untouched.
type Fields map[string]any

// Meta is the typed view over the recognized keys.
type Meta struct {
	Title           string
	HasTitle        bool
	Weight          int
	CollapseSection bool
	Hidden          bool
	Draft           bool
}

// Meta extracts the recognized keys. Missing keys keep their zero value;
// present keys of the wrong type yield ErrInvalidField.
func (f Fields) Meta() (Meta, error) {
	var m Meta
	var err error

	if v, ok := f[KeyTitle]; ok && v != nil {
		switch t := v.(type) {
		case string:
			m.Title = t
		case int, int64, uint64, float64:
			m.Title = fmt.Sprint(t)
		default:
			return Meta{}, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidField, KeyTitle, v)
		}
		m.HasTitle = m.Title != ""
	}
	if m.Weight, err = f.intField(KeyWeight); err != nil {
		return Meta{}, err
	}
	if m.CollapseSection, err = f.boolField(KeyCollapseSection); err != nil {
		return Meta{}, err
	}
	if m.Hidden, err = f.boolField(KeyHidden); err != nil {
		return Meta{}, err
	}
	if m.Draft, err = f.boolField(KeyDraft); err != nil {
		return Meta{}, err
	}
	return m, nil
}

func (f Fields) intField(key string) (int, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s out of range: %d", ErrInvalidField, key, n)
		}
		return int(n), nil
	case uint64:
		if n > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s out of range: %d", ErrInvalidField, key, n)
		}
		return int(n), nil
	case float64:
		if n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
			return 0, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidField, key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidField, key, v)
	}
}

func (f Fields) boolField(key string) (bool, error) {
	v, ok := f[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidField, key, v)
	}
	return b, nil
}
