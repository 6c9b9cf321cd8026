package memory

import (
	"bytes"
	"fmt"
	"log"

	"gitlab.com/stephen-fox/fmtkit/iokit"
)

// DefaultSignature is the signature placed at the start of a
// FormatStringWriter payload's marker when none is configured.
const DefaultSignature = "DEADBEEF"

// FormatStringWriterConfig configures a FormatStringWriter.
type FormatStringWriterConfig struct {
	// PointerSizeBytes is the size of a pointer on the target
	// system. It must be 4 or 8.
	PointerSizeBytes int

	// BytesAlreadyWritten is the number of characters the format
	// function has already printed (or the number of bytes that
	// precede the payload in the format string) by the time it
	// reaches the payload.
	BytesAlreadyWritten int

	// OptParamOffset is the parameter number at which the format
	// string itself can be found on the stack. I.e., the "N" in
	// "%N$p" that leaks the first bytes of the format string.
	//
	// If zero, DefaultParamOffset is used.
	OptParamOffset int

	// OptSignature is written at the start of the payload's marker.
	// It cannot contain '%' or null bytes. DefaultSignature is
	// used if it is empty.
	OptSignature []byte

	// OptLogger logs the payload layout and a hex dump of
	// the payload if specified.
	OptLogger *log.Logger
}

func (o FormatStringWriterConfig) validate() error {
	if o.BytesAlreadyWritten < 0 {
		return fmt.Errorf("%w: bytes already written cannot be negative (%d)",
			ErrInvalidConfig, o.BytesAlreadyWritten)
	}

	if o.OptParamOffset < 0 {
		return fmt.Errorf("%w: parameter offset cannot be negative (%d)",
			ErrInvalidConfig, o.OptParamOffset)
	}

	if bytes.IndexByte(o.OptSignature, '%') > -1 || bytes.IndexByte(o.OptSignature, 0x00) > -1 {
		return fmt.Errorf("%w: signature cannot contain '%%' or null bytes (%q)",
			ErrInvalidConfig, o.OptSignature)
	}

	return nil
}

// DefaultParamOffset returns the usual parameter number of the format
// string for the specified pointer size. On 32-bit x86 the format string
// pointer is typically the first argument on the stack. On 64-bit x86 the
// first 5 parameters are passed in registers, making it the 6th.
//
// These are conventions, not guarantees. Use OptParamOffset when
// the target behaves differently.
func DefaultParamOffset(pointerSizeBytes int) (int, error) {
	switch pointerSizeBytes {
	case 4:
		return 1, nil
	case 8:
		return 6, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedPointerSize, pointerSizeBytes)
	}
}

// NewFormatStringWriterOrExit calls NewFormatStringWriter. It calls
// DefaultExitFn if an error occurs.
func NewFormatStringWriterOrExit(config FormatStringWriterConfig) *FormatStringWriter {
	w, err := NewFormatStringWriter(config)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to create new format string writer - %w", err))
	}
	return w
}

// NewFormatStringWriter creates a new *FormatStringWriter. Refer to
// FormatStringWriter's documentation for more information.
func NewFormatStringWriter(config FormatStringWriterConfig) (*FormatStringWriter, error) {
	table, err := NewWriteTable(config.PointerSizeBytes)
	if err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	paramOffset := config.OptParamOffset
	if paramOffset == 0 {
		paramOffset, err = DefaultParamOffset(config.PointerSizeBytes)
		if err != nil {
			return nil, err
		}
	}

	signature := []byte(DefaultSignature)
	if len(config.OptSignature) > 0 {
		signature = append([]byte{}, config.OptSignature...)
	}

	return &FormatStringWriter{
		config:      config,
		pm:          table.pm,
		table:       table,
		padding:     alignmentPadding(config.BytesAlreadyWritten, config.PointerSizeBytes),
		paramOffset: paramOffset,
		signature:   signature,
	}, nil
}

// FormatStringWriter builds format strings that write arbitrary bytes
// to arbitrary addresses. Writes are recorded using the Set family of
// methods, and then turned into a single payload by Build.
//
// A payload is structured like so:
//	<alignment><byte-writes><signature><fill><null><pointers>
//
// The alignment bytes make the number of characters printed before
// the byte writes a multiple of the pointer size. Each byte write
// prints just enough characters to move the lowest byte of the printed
// characters counter to the desired value, and then stores it at an
// address using "%<N>$hhn". The addresses are appended after the null
// byte so that null bytes in the addresses do not terminate the format
// string early.
//
// A FormatStringWriter is not safe for concurrent use.
type FormatStringWriter struct {
	config      FormatStringWriterConfig
	pm          PointerMaker
	table       *WriteTable
	padding     int
	paramOffset int
	signature   []byte
}

// PointerSizeBytes returns the configured pointer size.
func (o *FormatStringWriter) PointerSizeBytes() int {
	return o.pm.PointerSizeBytes()
}

// ParamOffset returns the parameter number of the format string.
func (o *FormatStringWriter) ParamOffset() int {
	return o.paramOffset
}

// BytesAlreadyWritten returns the configured number of characters
// printed before the payload.
func (o *FormatStringWriter) BytesAlreadyWritten() int {
	return o.config.BytesAlreadyWritten
}

// Padding returns the number of alignment bytes that prefix payloads.
func (o *FormatStringWriter) Padding() int {
	return o.padding
}

// Table returns the writer's WriteTable. Changes to the table are
// reflected in the next payload.
func (o *FormatStringWriter) Table() *WriteTable {
	return o.table
}

// Set records a write of value to address. Refer to WriteTable.Set
// for more information.
func (o *FormatStringWriter) Set(address uint64, value WriteValue) error {
	return o.table.Set(address, value)
}

// SetUint records a pointer-sized little endian write of i to address.
func (o *FormatStringWriter) SetUint(address uint64, i uint64) error {
	return o.table.Set(address, IntValue(i))
}

// SetBytes records a write of b to address.
func (o *FormatStringWriter) SetBytes(address uint64, b []byte) error {
	return o.table.Set(address, BytesValue(b))
}

// SetString records a write of str to address.
func (o *FormatStringWriter) SetString(address uint64, str string) error {
	return o.table.Set(address, TextValue(str))
}

// SetAnyOrExit calls SetAny. It calls DefaultExitFn if an error occurs.
func (o *FormatStringWriter) SetAnyOrExit(address uint64, v interface{}) {
	err := o.SetAny(address, v)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to set %T value at 0x%x - %w", v, address, err))
	}
}

// SetAny records a write of v to address. Refer to ValueOf for
// the types that are supported.
func (o *FormatStringWriter) SetAny(address uint64, v interface{}) error {
	return o.table.SetAny(address, v)
}

// Reset discards all recorded writes.
func (o *FormatStringWriter) Reset() {
	o.table.Clear()
}

// FormatStringPayload is a format string built by a FormatStringWriter.
type FormatStringPayload struct {
	// Payload is the format string.
	Payload []byte

	// Signature is the configured signature.
	Signature []byte

	// Marker is the signature and the fill characters that follow
	// it. It is the last thing the format function prints, which
	// makes it useful for finding the end of the format function's
	// output.
	Marker []byte
}

// BuildOrExit calls Build. It calls DefaultExitFn if an error occurs.
func (o *FormatStringWriter) BuildOrExit() *FormatStringPayload {
	p, err := o.Build()
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to build format string payload - %w", err))
	}
	return p
}

// Build creates a format string that performs all of the recorded writes.
// The recorded writes are discarded once the payload is built.
func (o *FormatStringWriter) Build() (*FormatStringPayload, error) {
	writes := o.table.Entries()
	ptrSize := o.pm.PointerSizeBytes()
	printed := o.config.BytesAlreadyWritten + o.padding

	// Each byte write needs a parameter number that points at its
	// address in the pointer block. The block starts right after the
	// reserved length, so the parameter numbers depend on the reserved
	// length. The reservation covers typical writes, but is grown
	// if the parameter numbers need more digits than it accounts for.
	reserved := reservedLen(len(writes), ptrSize)
	var firstParam int
	var bwb *byteWriteBuilder
	for {
		firstParam = o.paramOffset + (reserved+printed)/ptrSize

		bwb = newByteWriteBuilder(printed, firstParam)
		for _, write := range writes {
			bwb.appendByteWrite(write.Value)
		}

		if len(bwb.Bytes())+len(o.signature)+1 <= reserved {
			break
		}

		reserved += ptrSize
	}

	directives := bwb.Bytes()
	markerBytes := marker(o.signature, reserved-len(directives))

	if o.config.OptLogger != nil {
		o.config.OptLogger.Printf("format string writer: %d byte writes, %d alignment bytes, "+
			"%d reserved bytes, first parameter: %d, characters printed: %d",
			len(writes), o.padding, reserved, firstParam, bwb.printed)
	}

	pb := iokit.NewPayloadBuilder().
		SetLogger(o.config.OptLogger).
		RepeatString(string(fillChar), o.padding).
		Bytes(directives).
		Bytes(markerBytes)

	for _, write := range writes {
		pb.Pointer(o.pm.FromUint(write.Address))
	}

	payload, err := pb.Result()
	if err != nil {
		return nil, fmt.Errorf("failed to assemble payload - %w", err)
	}

	o.table.Clear()

	return &FormatStringPayload{
		Payload:   payload,
		Signature: append([]byte{}, o.signature...),
		Marker:    markerBytes[:len(markerBytes)-1],
	}, nil
}
