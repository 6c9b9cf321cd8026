package conv

import (
	"bufio"
	"fmt"
	"io"
)

// maxLineLen is the line length at which formatted output wraps.
const maxLineLen = 62

// BytesToGoSliceFormat writes b as a Go []byte declaration to w.
// The declaration is wrapped across lines unless noFormatting
// is true.
func BytesToGoSliceFormat(b []byte, noFormatting bool, w io.Writer) error {
	out := bufio.NewWriter(w)

	out.WriteString("[]byte{")
	if !noFormatting && len(b) > 0 {
		out.WriteString("\n\t")
	}

	lineLen := 0
	for i, c := range b {
		isLast := i == len(b)-1

		n, _ := fmt.Fprintf(out, "0x%02x", c)
		lineLen += n

		switch {
		case noFormatting:
			if !isLast {
				out.WriteString(", ")
			}
		case isLast:
			out.WriteString(",\n")
		case lineLen >= maxLineLen:
			out.WriteString(",\n\t")
			lineLen = 0
		default:
			out.WriteString(", ")
			lineLen += 2
		}
	}

	out.WriteString("}\n")

	return out.Flush()
}

// BytesToCStringFormat writes b as a C string literal made up
// of "\x" escapes to w. The literal is split into several
// adjacent literals unless noFormatting is true.
func BytesToCStringFormat(b []byte, noFormatting bool, w io.Writer) error {
	out := bufio.NewWriter(w)

	out.WriteByte('"')

	lineLen := 1
	for i, c := range b {
		n, _ := fmt.Fprintf(out, "\\x%02x", c)
		lineLen += n

		if !noFormatting && lineLen >= maxLineLen && i != len(b)-1 {
			out.WriteString("\"\n\"")
			lineLen = 1
		}
	}

	out.WriteString("\"\n")

	return out.Flush()
}
