package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/payroll-basis/api"
)

func newSeedCmd(a *app) *cobra.Command {
	var scenario string

	ids := make([]string, 0)
	for _, s := range api.Scenarios() {
		ids = append(ids, s.ID)
	}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Reset the database and load a demo scenario",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			loaded, err := api.SeedScenario(cmd.Context(), store, scenario)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s into org %q; refresh %s..%s to compute the basis\n",
				loaded.ID, loaded.OrgID, loaded.PeriodStart, loaded.PeriodEnd)
			return nil
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "standard-month", "Scenario: "+strings.Join(ids, ", "))
	return cmd
}
