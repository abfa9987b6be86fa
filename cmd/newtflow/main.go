// newtflow - OpenFlow full-mesh flow reconciler
//
// newtflow watches the node list of an OpenFlow topology in the controller's
// Redis store. When a node appears it writes, for every port of the node, a
// flow forwarding that port's traffic to all other ports.
//
// Usage:
//
//	newtflow [-c config] [-v] run                    Run the reconciler
//	newtflow [-c config] preview <device-id>         Print flows a device would get
//	newtflow [-c config] show flows <device-id>      List flows installed on a device
//	newtflow [-c config] health                      Check the store and installed flows
//	newtflow [-c config] audit [--device id]         List recorded flow installations
//	newtflow version                                 Print version information
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtflow/pkg/cli"
	"github.com/newtron-network/newtflow/pkg/config"
	"github.com/newtron-network/newtflow/pkg/datastore"
	"github.com/newtron-network/newtflow/pkg/util"
	"github.com/newtron-network/newtflow/pkg/version"
)

var (
	configPath string
	verbose    bool
	jsonOutput bool

	// Overrides for config file values
	redisAddr  string
	topologyID string
	logFormat  string

	cfg *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "newtflow",
	Short:             "OpenFlow full-mesh flow reconciler",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `newtflow installs broadcast flows on OpenFlow devices as they appear
in the controller's topology.

  newtflow run                       # watch and reconcile until interrupted
  newtflow preview openflow:1        # show flows a device would receive`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}

		var err error
		cfg, err = config.LoadFrom(configPath)
		if err != nil {
			return err
		}
		applyOverrides(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("%s: %w", configPath, err)
		}

		util.SetLogLevel(cfg.Log.Level)
		if verbose {
			util.SetLogLevel("debug")
		}
		util.SetLogFormat(cfg.Log.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&redisAddr, "redis", "", "Redis address (overrides redis.addr)")
	rootCmd.PersistentFlags().StringVar(&topologyID, "topology", "", "Topology id (overrides topology_id)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text, json, auto (overrides log.format)")

	for _, cmd := range []*cobra.Command{previewCmd, showFlowsCmd, healthCmd, auditCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "JSON output")
	}

	showCmd.AddCommand(showFlowsCmd)
	rootCmd.AddCommand(runCmd, previewCmd, showCmd, healthCmd, auditCmd, versionCmd)
}

// applyOverrides copies explicitly set flags over file values.
func applyOverrides(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("redis") {
		c.Redis.Addr = redisAddr
	}
	if flags.Changed("topology") {
		c.TopologyID = topologyID
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("newtflow dev build")
		} else {
			fmt.Printf("newtflow %s\n", version.Info())
		}
	},
}

// openStore connects to the configured Redis databases.
func openStore(ctx context.Context) (*datastore.Store, error) {
	return datastore.Open(ctx, cfg.StoreOptions())
}
