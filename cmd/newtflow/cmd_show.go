package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtflow/pkg/cli"
	"github.com/newtron-network/newtflow/pkg/flow"
	"github.com/newtron-network/newtflow/pkg/flowmanager"
	"github.com/newtron-network/newtflow/pkg/topology"
	"github.com/newtron-network/newtflow/pkg/util"
)

var previewCmd = &cobra.Command{
	Use:   "preview <device-id>",
	Short: "Print the flows a device would receive, without writing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		path := topology.NodesPath(cfg.TopologyID).Child(args[0])
		fields, err := store.Operational.Get(ctx, path)
		if err != nil {
			return err
		}
		if fields == nil {
			return fmt.Errorf("node %s: %w", path, util.ErrNotFound)
		}
		dev, err := topology.DecodeDevice(path, fields)
		if err != nil {
			return err
		}

		flows, err := flowmanager.Preview(dev)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(os.Stdout, flows)
		}
		if !topology.IsOpenFlow(dev.ID) {
			fmt.Println(cli.Dim(dev.ID + " is not an OpenFlow device; no flows would be installed"))
			return nil
		}
		fmt.Printf("Device %s: %d ports %s\n", cli.Bold(dev.ID), len(dev.TerminationPoints), cli.Yellow("(preview, nothing written)"))
		printFlows(os.Stdout, flows)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show installed state",
}

var showFlowsCmd = &cobra.Command{
	Use:   "flows <device-id>",
	Short: "List flows installed on a device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		paths, err := store.Configuration.Descendants(ctx, topology.DevicePath(args[0]))
		if err != nil {
			return err
		}
		var flows []*flow.Flow
		for _, p := range paths {
			fields, err := store.Configuration.Get(ctx, p)
			if err != nil {
				return err
			}
			if fields == nil {
				continue
			}
			f, err := flow.ParseFields(fields)
			if err != nil {
				util.WithField("key", p.Key()).Warnf("Skipping unreadable flow: %v", err)
				continue
			}
			flows = append(flows, f)
		}

		if jsonOutput {
			return writeJSON(os.Stdout, flows)
		}
		if len(flows) == 0 {
			fmt.Println(cli.Dim("No flows installed on " + args[0]))
			return nil
		}
		printFlows(os.Stdout, flows)
		return nil
	},
}

// printFlows renders one row per flow.
func printFlows(w io.Writer, flows []*flow.Flow) {
	t := cli.NewTableTo(w, "FLOW", "IN PORT", "OUTPUTS", "TABLE", "PRIORITY", "IDLE", "HARD", "COOKIE")
	for _, f := range flows {
		t.Row(
			f.ID,
			f.Match.InPort,
			cli.JoinOrDash(f.OutputPorts(), ","),
			strconv.Itoa(int(f.TableID)),
			strconv.Itoa(int(f.Priority)),
			strconv.Itoa(int(f.IdleTimeout)),
			strconv.Itoa(int(f.HardTimeout)),
			fmt.Sprintf("%d/%d", f.Cookie, f.CookieMask),
		)
	}
	t.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
