package conv

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// HexArrayToBytesOrExit calls HexArrayToBytes. It calls DefaultExitFn
// if an error occurs.
func HexArrayToBytesOrExit(source io.Reader) []byte {
	b, err := HexArrayToBytes(source)
	if err != nil {
		DefaultExitFn(fmt.Errorf("failed to convert hex array to bytes - %w", err))
	}
	return b
}

// HexArrayToBytes converts an array of hexadecimal characters into
// a []byte. It ignores C comments, which allows the function to parse
// blobs of data mixed with comments.
//
// While this was intended for converting a C array's contents to bytes,
// it also accepts plain hex strings such as "deadbeef" and escaped
// strings such as "\xde\xad\xbe\xef".
func HexArrayToBytes(source io.Reader) ([]byte, error) {
	buf := bytes.NewBuffer(nil)

	_, err := io.Copy(buf, NewHexArrayReader(source))
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// HexStringToBytes calls HexArrayToBytes for a string.
func HexStringToBytes(str string) ([]byte, error) {
	return HexArrayToBytes(strings.NewReader(str))
}

// NewHexArrayReader returns an io.Reader implementation that converts
// a C array containing hex-encoded data into chunks of []byte which
// represent the hex-decoded array data.
func NewHexArrayReader(r io.Reader) io.Reader {
	return &hexArrayReader{
		src: bufio.NewReader(r),
	}
}

type hexArrayReader struct {
	src     *bufio.Reader
	pending []byte
}

func (o *hexArrayReader) Read(p []byte) (int, error) {
	n := 0

	for n < len(p) {
		b, err := o.src.ReadByte()
		if errors.Is(err, io.EOF) {
			if len(o.pending) > 0 {
				return n, fmt.Errorf("odd number of hex characters (trailing '%s')", o.pending)
			}
			if n > 0 {
				return n, nil
			}
			return 0, io.EOF
		} else if err != nil {
			return n, fmt.Errorf("failed to read next byte from reader - %w", err)
		}

		switch {
		case b == '/':
			err = skipComment(o.src)
			if err != nil {
				return n, err
			}
			continue
		case b == '\\':
			// Skip the 'x' in "\x41".
			next, err := o.src.ReadByte()
			if err == nil && next != 'x' && next != 'X' {
				err = o.src.UnreadByte()
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return n, err
			}
			continue
		case b == '0':
			// Skip the 'x' in "0x41".
			next, err := o.src.ReadByte()
			switch {
			case err == nil && (next == 'x' || next == 'X') && len(o.pending) == 0:
				continue
			case err == nil:
				err = o.src.UnreadByte()
				if err != nil {
					return n, err
				}
			case !errors.Is(err, io.EOF):
				return n, err
			}
		case !isHexChar(b):
			continue
		}

		o.pending = append(o.pending, b)
		if len(o.pending) < 2 {
			continue
		}

		_, err = hex.Decode(p[n:n+1], o.pending)
		if err != nil {
			return n, fmt.Errorf("failed to hex-decode byte - %w", err)
		}

		o.pending = o.pending[:0]
		n++
	}

	return n, nil
}

// skipComment discards the remainder of a C comment. It assumes that
// the first comment character was already read.
func skipComment(src *bufio.Reader) error {
	second, err := src.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read second start of comment char - %w", err)
	}

	switch second {
	case '/':
		_, err := src.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to find newline char for line comment - %w", err)
		}

		return nil
	case '*':
		for {
			_, err := src.ReadBytes('*')
			if err != nil {
				return fmt.Errorf("failed to find corresponding '*/' end of comment - %w", err)
			}

			next, err := src.Peek(1)
			if err != nil {
				return fmt.Errorf("failed to find corresponding '*/' end of comment - %w", err)
			}

			if next[0] == '/' {
				_, err = src.Discard(1)
				return err
			}
		}
	default:
		return fmt.Errorf("unknown second start of comment char '%c'", second)
	}
}

func isHexChar(b byte) bool {
	return unicode.Is(unicode.ASCII_Hex_Digit, rune(b))
}
