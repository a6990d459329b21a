package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadflow/internal/approval"
)

var (
	approveWorkspace       string
	approveCampaign        string
	approveIDs             string
	approveAllowUnverified bool
	approveConfirm         bool
	approveStrict          bool
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve candidates and promote them to leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		var policy approval.Policy = approval.DefaultPolicy{
			AllowUnverified:        approveAllowUnverified,
			ConfirmAllowUnverified: approveConfirm,
		}
		if approveStrict {
			policy = approval.StrictPolicy{}
		}

		result, err := env.Engine.Approve(cmd.Context(), approveWorkspace, approveCampaign,
			splitIDs(approveIDs), policy)
		if err != nil {
			return err
		}

		fmt.Printf("approved %d candidate(s)\n", result.ApprovedCount)
		for _, r := range result.Rejected {
			fmt.Printf("rejected %s: %s\n", r.CandidateID, r.Reason)
		}
		return nil
	},
}

var (
	rejectWorkspace string
	rejectCampaign  string
	rejectIDs       string
)

var rejectCmd = &cobra.Command{
	Use:   "reject",
	Short: "Reject candidates",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		count, err := env.Engine.Reject(cmd.Context(), rejectWorkspace, rejectCampaign, splitIDs(rejectIDs))
		if err != nil {
			return err
		}
		fmt.Printf("rejected %d candidate(s)\n", count)
		return nil
	},
}

func init() {
	approveCmd.Flags().StringVar(&approveWorkspace, "workspace", "", "workspace id")
	approveCmd.Flags().StringVar(&approveCampaign, "campaign", "", "campaign id")
	approveCmd.Flags().StringVar(&approveIDs, "ids", "", "comma-separated candidate ids")
	approveCmd.Flags().BoolVar(&approveAllowUnverified, "allow-unverified", false, "approve RISKY/UNKNOWN emails")
	approveCmd.Flags().BoolVar(&approveConfirm, "confirm-allow-unverified", false, "confirm the unverified override")
	approveCmd.Flags().BoolVar(&approveStrict, "strict", false, "use the strict review policy (no override)")
	for _, f := range []string{"workspace", "campaign", "ids"} {
		_ = approveCmd.MarkFlagRequired(f)
	}

	rejectCmd.Flags().StringVar(&rejectWorkspace, "workspace", "", "workspace id")
	rejectCmd.Flags().StringVar(&rejectCampaign, "campaign", "", "campaign id")
	rejectCmd.Flags().StringVar(&rejectIDs, "ids", "", "comma-separated candidate ids")
	for _, f := range []string{"workspace", "campaign", "ids"} {
		_ = rejectCmd.MarkFlagRequired(f)
	}

	rootCmd.AddCommand(approveCmd, rejectCmd)
}
