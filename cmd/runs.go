package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	runsWorkspace string
	runsLimit     int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List discovery runs for a workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Discovery.ListRuns(cmd.Context(), runsWorkspace, runsLimit)
		if err != nil {
			return err
		}

		for _, r := range runs {
			finished := "-"
			if r.FinishedAt != nil {
				finished = r.FinishedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%s  %-9s  campaign=%s  finished=%s  %s\n",
				r.ID, r.Status, r.CampaignID, finished, string(r.Stats))
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().StringVar(&runsWorkspace, "workspace", "", "workspace id")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 50, "max runs to list")
	_ = runsCmd.MarkFlagRequired("workspace")
	rootCmd.AddCommand(runsCmd)
}
