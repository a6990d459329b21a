package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadflow/internal/discovery"
	"github.com/sells-group/leadflow/pkg/pdl"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Create and execute discovery runs",
}

var (
	discoverWorkspace   string
	discoverCampaign    string
	discoverConnector   string
	discoverLabel       string
	discoverLimit       int
	discoverTitles      []string
	discoverLocations   []string
	discoverIndustries  []string
	discoverConcurrency int
	discoverQueued      bool
)

var discoverCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Queue a new discovery run",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		query := discovery.Query{
			Filters: pdl.SearchFilters{
				JobTitles:  discoverTitles,
				Locations:  discoverLocations,
				Industries: discoverIndustries,
			},
			Limit: discoverLimit,
		}
		run, err := env.Orch.CreateRun(cmd.Context(), discoverWorkspace, discoverCampaign,
			discoverConnector, discoverLabel, query, cfg.Discovery.MaxLimit)
		if err != nil {
			return err
		}
		fmt.Printf("queued run %s\n", run.ID)
		return nil
	},
}

var discoverRunCmd = &cobra.Command{
	Use:   "run [run-id...]",
	Short: "Execute queued discovery runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		runIDs := args
		if discoverQueued {
			ids, err := env.Discovery.ListQueuedRunIDs(cmd.Context(), discoverWorkspace)
			if err != nil {
				return err
			}
			runIDs = append(runIDs, ids...)
		}
		if len(runIDs) == 0 {
			return fmt.Errorf("no run ids given (pass ids or --queued with --workspace)")
		}

		// Runs share no mutable state beyond the database, so they can
		// execute concurrently.
		g, ctx := errgroup.WithContext(cmd.Context())
		g.SetLimit(discoverConcurrency)
		for _, runID := range runIDs {
			g.Go(func() error {
				stats, err := env.Orch.Execute(ctx, runID)
				if err != nil {
					return fmt.Errorf("run %s: %w", runID, err)
				}
				fmt.Printf("run %s: fetched=%d created=%d approvable=%d suppressed=%d/%d skipped=%d\n",
					runID, stats.Fetched, stats.CandidatesCreated, stats.ApprovableCandidates,
					stats.SuppressedByBlocklist, stats.SuppressedByDuplicate, stats.SkippedMissingEmail)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			zap.L().Error("discovery batch finished with failures", zap.Error(err))
			return err
		}
		return nil
	},
}

func init() {
	discoverCreateCmd.Flags().StringVar(&discoverWorkspace, "workspace", "", "workspace id")
	discoverCreateCmd.Flags().StringVar(&discoverCampaign, "campaign", "", "campaign id")
	discoverCreateCmd.Flags().StringVar(&discoverConnector, "connector", "", "source connector id")
	discoverCreateCmd.Flags().StringVar(&discoverLabel, "label", "", "run label")
	discoverCreateCmd.Flags().IntVar(&discoverLimit, "limit", 100, "max records to fetch (1-1000)")
	discoverCreateCmd.Flags().StringSliceVar(&discoverTitles, "titles", nil, "job title filters")
	discoverCreateCmd.Flags().StringSliceVar(&discoverLocations, "locations", nil, "location filters")
	discoverCreateCmd.Flags().StringSliceVar(&discoverIndustries, "industries", nil, "industry filters")
	for _, f := range []string{"workspace", "campaign", "connector"} {
		_ = discoverCreateCmd.MarkFlagRequired(f)
	}

	discoverRunCmd.Flags().StringVar(&discoverWorkspace, "workspace", "", "workspace id (with --queued)")
	discoverRunCmd.Flags().BoolVar(&discoverQueued, "queued", false, "execute all queued runs in the workspace")
	discoverRunCmd.Flags().IntVar(&discoverConcurrency, "concurrency", 3, "max runs executing at once")

	discoverCmd.AddCommand(discoverCreateCmd, discoverRunCmd)
	rootCmd.AddCommand(discoverCmd)
}

// splitIDs parses a comma-separated id list flag.
func splitIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
