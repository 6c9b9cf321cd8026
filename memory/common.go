package memory

import (
	"errors"
	"log"
)

var (
	// DefaultExitFn is invoked by functions and methods ending in
	// the "OrExit" suffix when an error occurs.
	DefaultExitFn = func(err error) {
		log.Fatalln(err)
	}
)

var (
	// ErrUnsupportedPointerSize is returned when a pointer size
	// other than 4 or 8 bytes is requested.
	ErrUnsupportedPointerSize = errors.New("unsupported pointer size")

	// ErrInvalidValueType is returned when a write value is not
	// an integer, a []byte, or text.
	ErrInvalidValueType = errors.New("invalid write value type")

	// ErrValueOutOfRange is returned when a write value or address
	// cannot be represented at the configured pointer size.
	ErrValueOutOfRange = errors.New("write value out of range")

	// ErrInvalidConfig is returned when a configuration field
	// has an invalid value.
	ErrInvalidConfig = errors.New("invalid configuration")
)
