package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gitlab.com/stephen-fox/fmtkit/conv"
	"gitlab.com/stephen-fox/fmtkit/fmtsim"
	"gitlab.com/stephen-fox/fmtkit/memory"
)

const (
	pointerSizeArg = "pointer-size"
	offsetArg      = "offset"
	writtenArg     = "written"
	signatureArg   = "signature"
	planArg        = "plan"
	setArg         = "set"
	setHexArg      = "set-hex"
	setTextArg     = "set-text"
	verifyArg      = "verify"
	verboseArg     = "verbose"
)

var errVerifyFailed = errors.New("payload does not perform the requested writes")

// payloadOptions are the flags shared by the commands that build
// a payload.
type payloadOptions struct {
	pointerSize int
	offset      int
	written     int
	signature   string
	planPath    string
	setInts     []string
	setHex      []string
	setText     []string
	verify      bool
	verbose     bool
}

func (o *payloadOptions) addFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.IntVarP(&o.pointerSize, pointerSizeArg, "w", 8,
		"The target's pointer size in bytes (4 or 8)")
	flags.IntVarP(&o.offset, offsetArg, "o", 0,
		"The parameter number of the format string (default 1 for 4 byte pointers, 6 for 8)")
	flags.IntVarP(&o.written, writtenArg, "n", 0,
		"The number of characters printed before the format string")
	flags.StringVar(&o.signature, signatureArg, "",
		fmt.Sprintf("The text at the start of the payload's marker (default %q)", memory.DefaultSignature))
	flags.StringVar(&o.planPath, planArg, "",
		"A TOML or YAML file describing the target and the writes to perform")
	flags.StringArrayVar(&o.setInts, setArg, nil,
		"Write a pointer-sized integer ('ADDRESS=INTEGER', may be repeated)")
	flags.StringArrayVar(&o.setHex, setHexArg, nil,
		"Write hex-encoded bytes ('ADDRESS=HEX', may be repeated)")
	flags.StringArrayVar(&o.setText, setTextArg, nil,
		"Write text ('ADDRESS=TEXT', may be repeated)")
	flags.BoolVar(&o.verify, verifyArg, false,
		"Simulate the payload and fail if it does not perform the requested writes")
	flags.BoolVarP(&o.verbose, verboseArg, "v", false,
		"Log the payload layout and hex dumps of the payload to stderr")
}

func (o *payloadOptions) logger(stderr io.Writer) *log.Logger {
	if !o.verbose {
		return nil
	}

	return log.New(stderr, "", 0)
}

// writer creates a *memory.FormatStringWriter and records the writes
// from the plan file and the command line. Command line flags that
// were explicitly set take precedence over the plan file.
func (o *payloadOptions) writer(cmd *cobra.Command) (*memory.FormatStringWriter, error) {
	flags := cmd.Flags()

	config := memory.FormatStringWriterConfig{
		PointerSizeBytes:    o.pointerSize,
		BytesAlreadyWritten: o.written,
		OptParamOffset:      o.offset,
		OptLogger:           o.logger(cmd.ErrOrStderr()),
	}

	var p *plan
	if o.planPath != "" {
		var err error
		p, err = loadPlan(o.planPath)
		if err != nil {
			return nil, err
		}

		if p.PointerSize != 0 && !flags.Changed(pointerSizeArg) {
			config.PointerSizeBytes = p.PointerSize
		}

		if !flags.Changed(offsetArg) {
			config.OptParamOffset = p.Offset
		}

		if !flags.Changed(writtenArg) {
			config.BytesAlreadyWritten = p.Written
		}

		config.OptSignature = []byte(p.Signature)
	}

	if flags.Changed(signatureArg) {
		config.OptSignature = []byte(o.signature)
	}

	w, err := memory.NewFormatStringWriter(config)
	if err != nil {
		return nil, err
	}

	if p != nil {
		err = p.apply(w)
		if err != nil {
			return nil, err
		}
	}

	for _, str := range o.setInts {
		err := setFromArg(w, setArg, str, func(value string) (memory.WriteValue, error) {
			i, err := strconv.ParseUint(value, 0, 64)
			if err != nil {
				return nil, err
			}
			return memory.IntValue(i), nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, str := range o.setHex {
		err := setFromArg(w, setHexArg, str, func(value string) (memory.WriteValue, error) {
			b, err := conv.HexStringToBytes(value)
			if err != nil {
				return nil, err
			}
			return memory.BytesValue(b), nil
		})
		if err != nil {
			return nil, err
		}
	}

	for _, str := range o.setText {
		err := setFromArg(w, setTextArg, str, func(value string) (memory.WriteValue, error) {
			return memory.TextValue(value), nil
		})
		if err != nil {
			return nil, err
		}
	}

	return w, nil
}

// setFromArg parses an "ADDRESS=VALUE" string and records the write.
func setFromArg(w *memory.FormatStringWriter, argName string, str string, parseValue func(string) (memory.WriteValue, error)) error {
	addrStr, valueStr, hasSep := strings.Cut(str, "=")
	if !hasSep {
		return fmt.Errorf("--%s: '%s' is not in the format 'ADDRESS=VALUE'", argName, str)
	}

	address, err := strconv.ParseUint(strings.TrimSpace(addrStr), 0, 64)
	if err != nil {
		return fmt.Errorf("--%s: failed to parse address '%s' - %w", argName, addrStr, err)
	}

	value, err := parseValue(valueStr)
	if err != nil {
		return fmt.Errorf("--%s: failed to parse value '%s' - %w", argName, valueStr, err)
	}

	err = w.Set(address, value)
	if err != nil {
		return fmt.Errorf("--%s: failed to set value at 0x%x - %w", argName, address, err)
	}

	return nil
}

// build builds the payload, and then simulates it if verification
// was requested.
func (o *payloadOptions) build(cmd *cobra.Command) (*memory.FormatStringWriter, *memory.FormatStringPayload, error) {
	w, err := o.writer(cmd)
	if err != nil {
		return nil, nil, err
	}

	exp := w.Table().Entries()

	payload, err := w.Build()
	if err != nil {
		return nil, nil, err
	}

	if o.verify {
		err = verifyPayload(w, payload, exp)
		if err != nil {
			return nil, nil, err
		}

		success.Fprintf(cmd.ErrOrStderr(), "verified %d byte writes\n", len(exp))
	}

	if len(exp) == 0 {
		warning.Fprintln(cmd.ErrOrStderr(), "warning: no writes were specified")
	}

	return w, payload, nil
}

// verifyPayload simulates payload and checks that it performs
// exactly the writes in exp.
func verifyPayload(w *memory.FormatStringWriter, payload *memory.FormatStringPayload, exp []memory.ByteWrite) error {
	result, err := fmtsim.Run(payload.Payload, fmtsim.Config{
		PointerSizeBytes:    w.PointerSizeBytes(),
		ParamOffset:         w.ParamOffset(),
		BytesAlreadyWritten: w.BytesAlreadyWritten(),
	})
	if err != nil {
		return fmt.Errorf("%w: simulation failed - %w", errVerifyFailed, err)
	}

	if len(result.Writes) != len(exp) {
		return fmt.Errorf("%w: expected %d writes - got %d",
			errVerifyFailed, len(exp), len(result.Writes))
	}

	for _, write := range exp {
		got, hasIt := result.Memory[write.Address]
		if !hasIt {
			return fmt.Errorf("%w: 0x%x was not written to", errVerifyFailed, write.Address)
		}

		if got != write.Value {
			return fmt.Errorf("%w: expected 0x%02x at 0x%x - got 0x%02x",
				errVerifyFailed, write.Value, write.Address, got)
		}
	}

	return nil
}

func readFileOrStdin(cmd *cobra.Command, filePath string) (io.Reader, func(), error) {
	if filePath == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}

	return f, func() { _ = f.Close() }, nil
}
