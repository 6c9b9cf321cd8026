package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"gitlab.com/stephen-fox/fmtkit/fmtsim"
	"gitlab.com/stephen-fox/fmtkit/iokit"
	"gitlab.com/stephen-fox/fmtkit/memory"
)

func newSimulateCmd() *cobra.Command {
	config := fmtsim.Config{}
	var verbose bool

	cmd := &cobra.Command{
		Use:   "simulate FILE",
		Short: "Simulate the writes performed by a format string",
		Long: `Reads a format string from FILE (or stdin if FILE is '-') and prints the
memory writes it would perform. Only "%<n>c", "%%", and "%<N>$hhn" are
supported. Pointers are read from the format string itself.`,
		Example: `  fmtstr build -o 7 -n 32 --set 0x601018=0x400626 | fmtstr simulate -o 7 -n 32 -`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := readFileOrStdin(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			if verbose {
				config.OptLogger = log.New(cmd.ErrOrStderr(), "", 0)
			}

			buf := iokit.Buffer{OptLoggerR: config.OptLogger}
			_, err = buf.ReadFrom(r)
			if err != nil {
				return fmt.Errorf("failed to read format string - %w", err)
			}

			if config.ParamOffset == 0 {
				config.ParamOffset, err = memory.DefaultParamOffset(config.PointerSizeBytes)
				if err != nil {
					return err
				}
			}

			result, err := fmtsim.Run(buf.Bytes(), config)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			for _, write := range result.Writes {
				fmt.Fprintf(stdout, "%%%d$hhn: 0x%02x -> 0x%x\n", write.Param, write.Value, write.Address)
			}

			label.Fprint(cmd.ErrOrStderr(), "characters printed: ")
			fmt.Fprintf(cmd.ErrOrStderr(), "%d\n", result.Printed)

			return nil
		},
	}

	cmd.Flags().IntVarP(&config.PointerSizeBytes, pointerSizeArg, "w", 8,
		"The target's pointer size in bytes (4 or 8)")
	cmd.Flags().IntVarP(&config.ParamOffset, offsetArg, "o", 0,
		"The parameter number of the format string (default 1 for 4 byte pointers, 6 for 8)")
	cmd.Flags().IntVarP(&config.BytesAlreadyWritten, writtenArg, "n", 0,
		"The number of characters printed before the format string")
	cmd.Flags().BoolVarP(&verbose, verboseArg, "v", false,
		"Log the format string and each write to stderr")

	return cmd
}
