package orderable

import (
	"cmp"
	"errors"
)

const (
	Uint32MIN uint32 = 0
	Uint32MID uint32 = 2147483647
	Uint32MAX uint32 = 4294967295
)

// ErrInvalidUint32 is returned when a value falls outside [0, 2^32-1].
var ErrInvalidUint32 = errors.New("invalid-uint32")

// Compare orders two values as Less, Equal or Greater.
func Compare[T cmp.Ordered](a, b T) Order {
	switch {
	case a < b:
		return Less
	case a == b:
		return Equal
	default:
		return Greater
	}
}

// Validate reports whether n fits the uint32 domain.
func Validate(n int64) bool {
	return n >= int64(Uint32MIN) && n <= int64(Uint32MAX)
}

// Validated narrows n to uint32, failing outside the domain.
func Validated(n int64) (uint32, error) {
	if !Validate(n) {
		return 0, ErrInvalidUint32
	}
	return uint32(n), nil
}
