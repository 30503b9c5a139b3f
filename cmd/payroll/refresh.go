package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/payroll-basis/api"
	"github.com/warp/payroll-basis/generic"
	"github.com/warp/payroll-basis/payroll"
)

type refreshOptions struct {
	orgID   string
	start   string
	end     string
	persons []string
}

func newRefreshCmd(a *app) *cobra.Command {
	var opts refreshOptions

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute the payroll basis for one org and period",
		Long: `Recompute and store the payroll basis for every person with work in the
period, or only for the persons given with --person. Locked entries are
skipped. The run summary is printed as JSON.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			period, err := generic.ParsePeriod(opts.start, opts.end)
			if err != nil {
				return fmt.Errorf("invalid --start/--end: %w", err)
			}

			store, err := a.openStore()
			if err != nil {
				return err
			}
			locker, closeLocker, err := a.newLocker(cmd.Context())
			if err != nil {
				store.Close()
				return err
			}
			defer closeAll(a.logger, closeLocker, store.Close)

			input := payroll.RefreshInput{OrgID: payroll.OrgID(opts.orgID), Period: period}
			for _, p := range opts.persons {
				input.PersonIDs = append(input.PersonIDs, payroll.PersonID(p))
			}

			result, err := a.newRefresher(store, locker).Refresh(cmd.Context(), input)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(api.NewRefreshResponse(result)); err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d persons failed", result.Failed, len(result.Outcomes))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.orgID, "org", "", "Organization ID (required)")
	cmd.Flags().StringVar(&opts.start, "start", "", "Period start, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.end, "end", "", "Period end, YYYY-MM-DD inclusive (required)")
	cmd.Flags().StringSliceVar(&opts.persons, "person", nil, "Person IDs to refresh (default: all with work in the period)")
	_ = cmd.MarkFlagRequired("org")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}
