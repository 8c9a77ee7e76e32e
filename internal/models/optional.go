package models

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Optional is a patch field that distinguishes three states: absent from the
// payload, explicitly null, and carrying a value.
type Optional[T any] struct {
	Value T
	Set   bool
	Null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Null returns an Optional that was explicitly cleared.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// Get returns the value and whether one was supplied (present and not null).
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set && !o.Null
}

// ApplyTo writes the patch state onto dst: a value replaces it, null resets it
// to the zero value, absence leaves it untouched.
func (o Optional[T]) ApplyTo(dst *T) {
	if !o.Set {
		return
	}
	if o.Null {
		var zero T
		*dst = zero
		return
	}
	*dst = o.Value
}

// UnmarshalJSON marks the field as present and records explicit nulls.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		o.Null = true
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes absent and null fields as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Set || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}
