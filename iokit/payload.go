package iokit

import (
	"encoding/binary"
	"fmt"
	"log"
)

// NewPayloadBuilder instantiates a new PayloadBuilder.
func NewPayloadBuilder() *PayloadBuilder {
	return &PayloadBuilder{
		buf: Buffer{},
	}
}

// PayloadBuilder helps build payloads and other binary sequences
// by implementing the "builder pattern". The first error encountered
// is saved, and all later calls become no-ops.
//
// Integers are little endian unless a binary.ByteOrder is passed
// to the method that writes them.
type PayloadBuilder struct {
	buf Buffer
	err error
}

// SetLogger sets an optional logger that receives a hex dump
// of each write to the payload.
func (o *PayloadBuilder) SetLogger(logger *log.Logger) *PayloadBuilder {
	o.buf.OptLoggerW = logger

	return o
}

func byteOrder(optOrder ...binary.ByteOrder) binary.ByteOrder {
	switch len(optOrder) {
	case 0:
		return binary.LittleEndian
	case 1:
		return optOrder[0]
	default:
		panic("only one binary.ByteOrder may be specified")
	}
}

// Uint32 writes an unsigned 32-bit integer to the payload.
func (o *PayloadBuilder) Uint32(u uint32, optOrder ...binary.ByteOrder) *PayloadBuilder {
	b := make([]byte, 4)

	byteOrder(optOrder...).PutUint32(b, u)

	return o.Bytes(b)
}

// Uint64 writes an unsigned 64-bit integer to the payload.
func (o *PayloadBuilder) Uint64(u uint64, optOrder ...binary.ByteOrder) *PayloadBuilder {
	b := make([]byte, 8)

	byteOrder(optOrder...).PutUint64(b, u)

	return o.Bytes(b)
}

// Byter abstracts types that can be represented as a []byte.
type Byter interface {
	// Bytes returns the object as a []byte.
	Bytes() []byte
}

// Pointer writes a raw pointer as a []byte to the payload.
func (o *PayloadBuilder) Pointer(pointer Byter) *PayloadBuilder {
	return o.Bytes(pointer.Bytes())
}

// Bytes writes the specified []byte to the payload.
func (o *PayloadBuilder) Bytes(b []byte) *PayloadBuilder {
	if o.err != nil {
		return o
	}

	_, err := o.buf.Write(b)
	if err != nil {
		o.err = err
	}

	return o
}

// String writes the specified string to the payload.
func (o *PayloadBuilder) String(str string) *PayloadBuilder {
	if o.err != nil {
		return o
	}

	_, err := o.buf.WriteString(str)
	if err != nil {
		o.err = err
	}

	return o
}

// RepeatString repeatedly writes the specified string to the payload.
func (o *PayloadBuilder) RepeatString(str string, count int) *PayloadBuilder {
	if o.err != nil {
		return o
	}

	_, err := o.buf.RepeatString(str, count)
	if err != nil {
		o.err = err
	}

	return o
}

// Len returns the current length of the payload.
func (o *PayloadBuilder) Len() int {
	return o.buf.Len()
}

// Result returns the payload as a []byte, or the first error
// that occurred while building it.
func (o *PayloadBuilder) Result() ([]byte, error) {
	if o.err != nil {
		return nil, o.err
	}

	return o.buf.Bytes(), nil
}

// Build returns the payload as a []byte. It calls DefaultExitFn
// if an error occurred while building the payload.
func (o *PayloadBuilder) Build() []byte {
	b, err := o.Result()
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to build payload - %w", err))
	}

	return b
}
