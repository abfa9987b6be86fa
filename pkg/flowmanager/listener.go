// Package flowmanager installs full-mesh forwarding rules on OpenFlow devices
// as they appear in the operational topology.
package flowmanager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/newtron-network/newtflow/pkg/audit"
	"github.com/newtron-network/newtflow/pkg/datatree"
	"github.com/newtron-network/newtflow/pkg/flow"
	"github.com/newtron-network/newtflow/pkg/topology"
	"github.com/newtron-network/newtflow/pkg/util"
)

// Writer persists entries computed by the listener.
//
// Merge overlays fields on an existing entry; Put replaces the entry.
type Writer interface {
	Merge(ctx context.Context, path topology.Path, fields map[string]string) error
	Put(ctx context.Context, path topology.Path, fields map[string]string) error
}

// NodeListener reacts to topology nodes. When an OpenFlow node appears it
// writes one broadcast flow per termination point.
//
// Removal and modification of a node are not handled: flows installed for a
// node stay in place when the node disappears or its ports change.
type NodeListener struct {
	writer Writer
}

var _ datatree.Listener[topology.Device] = (*NodeListener)(nil)

// NewNodeListener creates a listener writing flows with w.
func NewNodeListener(w Writer) *NodeListener {
	return &NodeListener{writer: w}
}

// Add installs a broadcast flow for every port of an OpenFlow node. Nodes of
// other fabrics are ignored. A failure on one port does not stop the others;
// all failures are returned joined.
func (l *NodeListener) Add(ctx context.Context, path topology.Path, node topology.Device) error {
	if !topology.IsOpenFlow(node.ID) {
		return nil
	}
	util.WithDevice(node.ID).Infof("Configuring %d ports", len(node.TerminationPoints))

	var errs []error
	for _, tp := range node.TerminationPoints {
		if err := l.addFlow(ctx, node, tp.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Remove is a no-op.
func (l *NodeListener) Remove(ctx context.Context, path topology.Path, node topology.Device) error {
	return nil
}

// Update is a no-op.
func (l *NodeListener) Update(ctx context.Context, path topology.Path, before, after topology.Device) error {
	return nil
}

// addFlow builds and writes the flow for one port and records the outcome
// in the audit log.
func (l *NodeListener) addFlow(ctx context.Context, node topology.Device, port string) error {
	start := time.Now()
	outputs := 0
	f, err := flow.BuildBroadcastFlow(node, port)
	if err == nil {
		outputs = len(f.Actions())
		err = l.writeFlow(ctx, node.ID, f)
	}

	event := audit.NewEvent(node.ID, audit.OpInstallFlow).
		WithFlow(port, flow.FlowID(port), outputs).
		WithResult(err).
		WithDuration(time.Since(start))
	if aerr := audit.Log(event); aerr != nil {
		util.WithDevice(node.ID).Warnf("Audit log: %v", aerr)
	}
	return err
}

func (l *NodeListener) writeFlow(ctx context.Context, deviceID string, f *flow.Flow) error {
	log := util.WithFlow(deviceID, f.ID)

	fields, err := f.Fields()
	if err != nil {
		return err
	}

	devicePath := topology.DevicePath(deviceID)
	if err := l.writer.Merge(ctx, devicePath, map[string]string{"id": deviceID}); err != nil {
		log.Warnf("Writing node failed: %v", err)
		return fmt.Errorf("merge %s: %w", devicePath, err)
	}

	flowPath := topology.FlowPath(deviceID, f.TableID, f.ID)
	if err := l.writer.Put(ctx, flowPath, fields); err != nil {
		log.Warnf("Writing flow failed: %v", err)
		return fmt.Errorf("put %s: %w", flowPath, err)
	}

	log.Debugf("Wrote flow to %d ports", len(f.Actions()))
	return nil
}

// Preview returns the flows Add would install for node, without writing.
// Non-OpenFlow nodes yield no flows.
func Preview(node topology.Device) ([]*flow.Flow, error) {
	if !topology.IsOpenFlow(node.ID) {
		return nil, nil
	}
	flows := make([]*flow.Flow, 0, len(node.TerminationPoints))
	for _, tp := range node.TerminationPoints {
		f, err := flow.BuildBroadcastFlow(node, tp.ID)
		if err != nil {
			return nil, err
		}
		flows = append(flows, f)
	}
	return flows, nil
}
