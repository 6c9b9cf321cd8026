package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/fatih/color"
	"gitlab.com/stephen-fox/fmtkit/conv"
	"gitlab.com/stephen-fox/fmtkit/iokit"
	"golang.org/x/term"
)

const (
	rawFormat  = "raw"
	hexFormat  = "hex"
	goFormat   = "go"
	cFormat    = "c"
	dumpFormat = "dump"
)

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow, color.Bold)
	label   = color.New(color.Bold)
)

func supportedFormatsStr() string {
	return strings.Join([]string{rawFormat, hexFormat, goFormat, cFormat, dumpFormat}, ", ")
}

// isTerminal returns true if w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd()))
}

// outputFormat returns the requested format. Raw bytes are not written
// to a terminal unless they were explicitly requested.
func outputFormat(format string, wasSet bool, stdout io.Writer) string {
	if !wasSet && format == rawFormat && isTerminal(stdout) {
		return dumpFormat
	}

	return format
}

// writeFormatted writes b to w in the specified format. If optLogger
// is non-nil, raw output is also logged as a hex dump.
func writeFormatted(w io.Writer, b []byte, format string, optLogger *log.Logger) error {
	switch format {
	case rawFormat:
		buf := iokit.Buffer{
			Buf:        bytes.NewBuffer(b),
			OptLoggerW: optLogger,
		}
		_, err := buf.WriteTo(w)
		return err
	case hexFormat:
		_, err := fmt.Fprintf(w, "%x\n", b)
		return err
	case goFormat:
		return conv.BytesToGoSliceFormat(b, false, w)
	case cFormat:
		return conv.BytesToCStringFormat(b, false, w)
	case dumpFormat:
		_, err := io.WriteString(w, hex.Dump(b))
		return err
	default:
		return fmt.Errorf("unknown output format: '%s' (supported formats: %s)",
			format, supportedFormatsStr())
	}
}
