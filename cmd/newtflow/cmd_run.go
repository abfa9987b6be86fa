package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtflow/pkg/audit"
	"github.com/newtron-network/newtflow/pkg/datastore"
	"github.com/newtron-network/newtflow/pkg/flowmanager"
	"github.com/newtron-network/newtflow/pkg/topology"
	"github.com/newtron-network/newtflow/pkg/util"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the topology and install flows until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runReconciler(ctx)
	},
}

func runReconciler(ctx context.Context) error {
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Redis.EnableKeyspaceEvents {
		if err := store.Operational.EnableKeyspaceEvents(ctx); err != nil {
			return err
		}
	}

	if cfg.Audit.Path != "" {
		auditLogger, err := audit.NewFileLogger(cfg.Audit.Path, cfg.AuditRotation())
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
			defer auditLogger.Close()
		}
	}

	sub := datastore.NewSubscriber[topology.Device](store.Operational, topology.DecodeDevice, cfg.WatchOptions()...)
	provider, err := flowmanager.NewProvider(ctx, sub, store.Configuration, cfg.TopologyID)
	if err != nil {
		return err
	}
	defer provider.Close()

	if err := provider.Run(ctx); err != nil {
		return fmt.Errorf("flow manager stopped: %w", err)
	}
	util.Info("Shutting down")
	return nil
}
