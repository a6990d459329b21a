package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <run-id>",
	Short: "Verify unverified candidate emails for a discovery run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Worker.Run(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("run %s: queued=%d written=%d updated=%d\n",
			stats.SourceRunID, stats.EmailsQueued, stats.VerificationRowsWritten, stats.CandidatesUpdated)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
