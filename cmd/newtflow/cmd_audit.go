package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtflow/pkg/audit"
	"github.com/newtron-network/newtflow/pkg/cli"
)

var (
	auditDevice   string
	auditFailures bool
	auditLimit    int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recorded flow installations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Audit.Path == "" {
			return fmt.Errorf("audit logging is disabled (audit.path is empty)")
		}
		events, err := audit.ReadLog(cfg.Audit.Path, audit.Filter{
			Device:      auditDevice,
			FailureOnly: auditFailures,
			Limit:       auditLimit,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return writeJSON(os.Stdout, events)
		}
		if len(events) == 0 {
			fmt.Println(cli.Dim("No audit events"))
			return nil
		}

		t := cli.NewTable("TIME", "DEVICE", "FLOW", "OUTPUTS", "RESULT")
		for _, e := range events {
			result := cli.Green("ok")
			if !e.Success {
				result = cli.Red("FAILED: " + e.Error)
			}
			t.Row(e.Timestamp.Format("2006-01-02 15:04:05"), e.Device, e.Flow, strconv.Itoa(e.Outputs), result)
		}
		t.Flush()
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditDevice, "device", "", "Only events for this device")
	auditCmd.Flags().BoolVar(&auditFailures, "failures", false, "Only failed installations")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Show the most recent N events (0 for all)")
}
