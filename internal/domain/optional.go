package domain

import (
	"bytes"
	"encoding/json"
)

// Optional is a tri-state field for partial updates: absent (Set is false),
// explicitly null (Set and Null), or a value.
//
// encoding/json only calls UnmarshalJSON for keys present in the document,
// so a zero Optional reliably means "absent".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

// Some returns a present, non-null Optional.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

// Null returns a present Optional holding an explicit null.
func Null[T any]() Optional[T] {
	return Optional[T]{Set: true, Null: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		var zero T
		o.Value = zero
		return nil
	}
	o.Null = false
	return json.Unmarshal(data, &o.Value)
}

// HasValue reports whether the field was supplied with a non-null value.
func (o Optional[T]) HasValue() bool {
	return o.Set && !o.Null
}

// Ptr returns a pointer to the value, or nil when absent or null.
func (o Optional[T]) Ptr() *T {
	if !o.HasValue() {
		return nil
	}
	v := o.Value
	return &v
}
