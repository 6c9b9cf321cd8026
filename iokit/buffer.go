package iokit

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
)

// Buffer is a bytes.Buffer that can log a hex dump of the data
// moving in and out of it. The zero value is ready to use.
type Buffer struct {
	// Buf holds the data. It is created on first use if nil.
	Buf *bytes.Buffer

	// OptLoggerR, if non-nil, logs the data consumed by ReadFrom.
	OptLoggerR *log.Logger

	// OptLoggerW, if non-nil, logs the data passed to the Write
	// methods and the data drained by WriteTo.
	OptLoggerW *log.Logger
}

func (o *Buffer) buf() *bytes.Buffer {
	if o.Buf == nil {
		o.Buf = bytes.NewBuffer(nil)
	}

	return o.Buf
}

// Bytes returns the unread data. The slice aliases the buffer.
func (o *Buffer) Bytes() []byte {
	if o.Buf == nil {
		return nil
	}

	return o.Buf.Bytes()
}

// Len returns the number of unread bytes.
func (o *Buffer) Len() int {
	if o.Buf == nil {
		return 0
	}

	return o.Buf.Len()
}

// ReadFrom appends the contents of r to the buffer until EOF.
// Only the newly read data is logged.
func (o *Buffer) ReadFrom(r io.Reader) (int64, error) {
	buf := o.buf()
	start := buf.Len()

	n, err := buf.ReadFrom(r)

	logHexDump(o.OptLoggerR, "read", buf.Bytes()[start:])

	return n, err
}

// Write appends b to the buffer.
func (o *Buffer) Write(b []byte) (int, error) {
	logHexDump(o.OptLoggerW, "write", b)

	return o.buf().Write(b)
}

// WriteString appends str to the buffer.
func (o *Buffer) WriteString(str string) (int, error) {
	logHexDump(o.OptLoggerW, "write", []byte(str))

	return o.buf().WriteString(str)
}

// RepeatString appends str to the buffer count times.
func (o *Buffer) RepeatString(str string, count int) (int, error) {
	if count < 0 {
		return 0, fmt.Errorf("repeat count cannot be negative (%d)", count)
	}

	return o.Write(bytes.Repeat([]byte(str), count))
}

// WriteTo drains the buffer into w.
func (o *Buffer) WriteTo(w io.Writer) (int64, error) {
	buf := o.buf()

	logHexDump(o.OptLoggerW, "write out", buf.Bytes())

	return buf.WriteTo(w)
}

func logHexDump(logger *log.Logger, op string, b []byte) {
	if logger == nil {
		return
	}

	if len(b) == 0 {
		logger.Printf("iokit: %s 0 bytes", op)
		return
	}

	// hex.Dump ends with a new line, which the logger adds anyway.
	logger.Printf("iokit: %s %d bytes:\n%s", op, len(b), strings.TrimSuffix(hex.Dump(b), "\n"))
}
