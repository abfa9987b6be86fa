package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtflow/pkg/cli"
	"github.com/newtron-network/newtflow/pkg/health"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the store and report devices with missing flows",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		report := health.NewChecker().Run(ctx, &health.Target{
			TopologyID:    cfg.TopologyID,
			Operational:   store.Operational,
			Configuration: store.Configuration,
		})

		if jsonOutput {
			if err := writeJSON(os.Stdout, report); err != nil {
				return err
			}
		} else {
			t := cli.NewTable("CHECK", "STATUS", "MESSAGE")
			for _, r := range report.Results {
				t.Row(r.Check, colorStatus(r.Status), r.Message)
			}
			t.Flush()
			fmt.Printf("\nOverall: %s\n", colorStatus(report.Overall))
		}

		if report.Overall != health.StatusOK {
			return fmt.Errorf("health check %s", report.Overall)
		}
		return nil
	},
}

func colorStatus(s health.Status) string {
	switch s {
	case health.StatusOK:
		return cli.Green(string(s))
	case health.StatusWarning:
		return cli.Yellow(string(s))
	case health.StatusCritical:
		return cli.Red(string(s))
	}
	return cli.Dim(string(s))
}
