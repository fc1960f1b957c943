package dhbloom

import "errors"

var (
	// ErrInvalidParameter is returned when a filter is constructed with a zero
	// capacity or a false positive rate outside (0, 1).
	ErrInvalidParameter = errors.New("dhbloom: invalid parameter")

	// ErrSerialization is returned when a key has no deterministic byte encoding.
	ErrSerialization = errors.New("dhbloom: key cannot be serialized")
)
