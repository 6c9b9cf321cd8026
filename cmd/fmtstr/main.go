// fmtstr builds format strings that write arbitrary bytes to arbitrary
// addresses, and simulates the writes performed by format strings.
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const appName = "fmtstr"

func newRootCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Format string exploitation payload builder",
		Long: appName + ` builds format strings that write arbitrary bytes to arbitrary
addresses using direct parameter access and the "%hhn" specifier.

Please refer to "Exploiting Format String Vulnerabilities" by Team Teso
for an introduction to the subject:
https://crypto.stanford.edu/cs155old/cs155-spring08/papers/formatstring-1.2.pdf`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.CompletionOptions.HiddenDefaultCmd = true

	cmd.AddCommand(
		newBuildCmd(),
		newSimulateCmd(),
		newSendCmd(),
	)

	return cmd
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		// cobra has already printed the error.
		os.Exit(1)
	}
}
