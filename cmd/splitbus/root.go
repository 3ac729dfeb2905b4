package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "splitbus",
	Short: "Splitbus simulates a shared bus with split transactions.",
	Long: `Splitbus simulates a shared bus that connects two initiators ` +
		`with three responders, one of which completes accesses as split ` +
		`transactions. The run command drives the bus with random traffic ` +
		`and verifies every read against the value written before.`,
}

// Execute runs the root command. Exit handlers registered by the recorder
// and the analyzers run on both the success and the failure path.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}
}
