package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gitlab.com/stephen-fox/fmtkit/memory"
)

const formatArg = "format"

func newBuildCmd() *cobra.Command {
	opts := &payloadOptions{}
	var format string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a format string that writes memory",
		Long: `Builds a format string that writes the specified values to the specified
addresses. Writes can be specified using a plan file, command line flags,
or both. The payload is written to stdout, and a summary of the payload
is written to stderr.`,
		Example: `  fmtstr build -w 8 -o 7 -n 32 --set 0x601018=0x400626
  fmtstr build -w 4 --set-text 0x804a010=/bin/sh --format c
  fmtstr build --plan got-overwrite.toml --verify > payload.bin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = outputFormat(format, cmd.Flags().Changed(formatArg), cmd.OutOrStdout())

			w, payload, err := opts.build(cmd)
			if err != nil {
				return err
			}

			err = writeFormatted(cmd.OutOrStdout(), payload.Payload, format,
				opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return fmt.Errorf("failed to write payload - %w", err)
			}

			writeSummary(cmd.ErrOrStderr(), w, payload)

			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&format, formatArg, "f", rawFormat,
		fmt.Sprintf("The payload's output format (%s)", supportedFormatsStr()))

	return cmd
}

func writeSummary(stderr io.Writer, w *memory.FormatStringWriter, payload *memory.FormatStringPayload) {
	label.Fprint(stderr, "length: ")
	fmt.Fprintf(stderr, "%d bytes\n", len(payload.Payload))
	label.Fprint(stderr, "parameter offset: ")
	fmt.Fprintf(stderr, "%d\n", w.ParamOffset())
	label.Fprint(stderr, "alignment bytes: ")
	fmt.Fprintf(stderr, "%d\n", w.Padding())
	label.Fprint(stderr, "signature: ")
	fmt.Fprintf(stderr, "%s\n", payload.Signature)
	label.Fprint(stderr, "marker: ")
	fmt.Fprintf(stderr, "%s\n", payload.Marker)

	if i := bytes.IndexByte(payload.Payload, '\n'); i > -1 {
		warning.Fprintf(stderr, "warning: payload contains a new line at index %d, "+
			"programs that read lines will not receive all of it\n", i)
	}
}
