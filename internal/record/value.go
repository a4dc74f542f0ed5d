// Package record defines the constrained value model and canonical JSON
// serialization used for trace identity.
//
// Trace events are content-addressed: their IDs are domain-separated
// SHA-256 hashes over RFC 8785 canonical JSON. To keep those hashes
// deterministic, the value model is sealed and forbids floats and nulls;
// chain amounts travel as decimal strings, never as float64.
package record

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the constrained value types.
// Only String, Int, Bool, Array, and Object implement it.
type Value interface {
	recordValue()
}

// String is a string value.
type String string

func (String) recordValue() {}

// Int is an integer value. Always int64, never float64.
type Int int64

func (Int) recordValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) recordValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) recordValue() {}

// Object is a map of string keys to values.
// Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) recordValue() {}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// Go's sort.Strings compares UTF-8 bytes, which produces a different order
// for strings containing supplementary-plane characters.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 compares strings by UTF-16 code units as RFC 8785 requires.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := len(a16)
	if len(b16) < n {
		n = len(b16)
	}
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}
