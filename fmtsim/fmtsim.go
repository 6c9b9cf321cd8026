// Package fmtsim simulates the subset of a C format function needed
// to check format strings that write memory.
//
// The simulator treats the format string as the first bytes of a buffer
// on the stack. Direct parameter access (DPA) parameter numbers are
// resolved into that buffer, which makes it possible to check where
// "%<N>$hhn" specifiers write to without running the target program.
package fmtsim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"strconv"

	"fortio.org/safecast"
)

var (
	// ErrUnsupportedSpecifier is returned when the format string
	// contains a specifier the simulator does not understand.
	ErrUnsupportedSpecifier = errors.New("unsupported format specifier")

	// ErrParamOutOfRange is returned when a parameter number does
	// not refer to a pointer inside of the format string.
	ErrParamOutOfRange = errors.New("parameter is outside of the format string")
)

// Config describes the target environment.
type Config struct {
	// PointerSizeBytes is the size of a pointer on the target
	// system. It must be 4 or 8.
	PointerSizeBytes int

	// ParamOffset is the parameter number that refers to the
	// first pointer-sized chunk of the stack buffer.
	ParamOffset int

	// BytesAlreadyWritten is the number of characters that were
	// printed before the format string. The same number of bytes
	// are assumed to precede the format string in the stack buffer.
	BytesAlreadyWritten int

	// OptLogger logs each write if specified.
	OptLogger *log.Logger
}

func (o Config) validate() error {
	if o.PointerSizeBytes != 4 && o.PointerSizeBytes != 8 {
		return fmt.Errorf("unsupported pointer size: %d", o.PointerSizeBytes)
	}

	if o.ParamOffset <= 0 {
		return fmt.Errorf("parameter offset must be greater than zero")
	}

	if o.BytesAlreadyWritten < 0 {
		return fmt.Errorf("bytes already written cannot be negative")
	}

	return nil
}

// Write is a single memory write performed by the format string.
type Write struct {
	Param   int
	Address uint64
	Value   byte
}

// Result is the outcome of a simulation.
type Result struct {
	// Writes lists the writes in the order they happened.
	Writes []Write

	// Memory maps addresses to the last value written to them.
	Memory map[uint64]byte

	// PaddingWidths lists the width of each "%<n>c" specifier.
	PaddingWidths []int

	// Printed is the number of characters printed, including
	// BytesAlreadyWritten.
	Printed int
}

// Run interprets formatStr up to its first null byte. Plain characters
// are printed as-is, "%<n>c" prints n characters, "%%" prints a single
// '%', and "%<N>$hhn" stores the lowest byte of the number of characters
// printed at the address found in parameter N. Other specifiers result
// in ErrUnsupportedSpecifier.
func Run(formatStr []byte, config Config) (*Result, error) {
	err := config.validate()
	if err != nil {
		return nil, err
	}

	sim := &simulator{
		config: config,
		buf:    formatStr,
		result: &Result{
			Memory:  make(map[uint64]byte),
			Printed: config.BytesAlreadyWritten,
		},
	}

	err = sim.run()
	if err != nil {
		return nil, err
	}

	return sim.result, nil
}

type simulator struct {
	config Config
	buf    []byte
	pos    int
	result *Result
}

func (o *simulator) run() error {
	for o.pos < len(o.buf) && o.buf[o.pos] != 0x00 {
		c := o.buf[o.pos]
		o.pos++

		if c != '%' {
			o.result.Printed++
			continue
		}

		err := o.specifier()
		if err != nil {
			return fmt.Errorf("failed to process specifier at index %d - %w", o.pos-1, err)
		}
	}

	return nil
}

func (o *simulator) specifier() error {
	start := o.pos - 1

	num, hasNum, err := o.number()
	if err != nil {
		return err
	}

	if o.pos >= len(o.buf) {
		return fmt.Errorf("%w: %q is truncated", ErrUnsupportedSpecifier, o.buf[start:])
	}

	c := o.buf[o.pos]
	o.pos++

	switch c {
	case '%':
		o.result.Printed++
		return nil
	case 'c':
		width := 1
		if hasNum && num > 1 {
			width = num
		}
		o.result.PaddingWidths = append(o.result.PaddingWidths, width)
		o.result.Printed += width
		return nil
	case '$':
		if !hasNum {
			return fmt.Errorf("%w: missing parameter number", ErrUnsupportedSpecifier)
		}
		if !o.consume("hhn") {
			return fmt.Errorf("%w: only '%%<N>$hhn' is supported for parameters (%q)",
				ErrUnsupportedSpecifier, o.buf[start:o.pos])
		}
		return o.writeByte(num)
	default:
		return fmt.Errorf("%w: '%c'", ErrUnsupportedSpecifier, c)
	}
}

func (o *simulator) number() (int, bool, error) {
	start := o.pos
	for o.pos < len(o.buf) && o.buf[o.pos] >= '0' && o.buf[o.pos] <= '9' {
		o.pos++
	}

	if o.pos == start {
		return 0, false, nil
	}

	u, err := strconv.ParseUint(string(o.buf[start:o.pos]), 10, 32)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse number - %w", err)
	}

	i, err := safecast.Conv[int](u)
	if err != nil {
		return 0, false, err
	}

	return i, true, nil
}

func (o *simulator) consume(str string) bool {
	end := o.pos + len(str)
	if end > len(o.buf) || string(o.buf[o.pos:end]) != str {
		return false
	}

	o.pos = end
	return true
}

func (o *simulator) writeByte(param int) error {
	address, err := o.pointerAt(param)
	if err != nil {
		return err
	}

	value := uint8(o.result.Printed)

	o.result.Writes = append(o.result.Writes, Write{
		Param:   param,
		Address: address,
		Value:   value,
	})
	o.result.Memory[address] = value

	if o.config.OptLogger != nil {
		o.config.OptLogger.Printf("fmtsim: parameter %d: wrote 0x%02x to 0x%x",
			param, value, address)
	}

	return nil
}

// pointerAt returns the pointer stored in the specified parameter.
func (o *simulator) pointerAt(param int) (uint64, error) {
	ptrSize := o.config.PointerSizeBytes

	index := (param-o.config.ParamOffset)*ptrSize - o.config.BytesAlreadyWritten
	if param < o.config.ParamOffset || index < 0 || index+ptrSize > len(o.buf) {
		return 0, fmt.Errorf("%w: parameter %d (index %d, format string is %d bytes)",
			ErrParamOutOfRange, param, index, len(o.buf))
	}

	raw := o.buf[index : index+ptrSize]
	if ptrSize == 4 {
		return uint64(binary.LittleEndian.Uint32(raw)), nil
	}

	return binary.LittleEndian.Uint64(raw), nil
}
