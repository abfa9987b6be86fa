package flowmanager

import (
	"context"
	"errors"
	"fmt"

	"github.com/newtron-network/newtflow/pkg/datatree"
	"github.com/newtron-network/newtflow/pkg/topology"
	"github.com/newtron-network/newtflow/pkg/util"
)

// Provider owns the node listener's subscription for the lifetime of the
// daemon.
type Provider struct {
	topologyID string
	dispatcher *datatree.Dispatcher[topology.Device]
}

// NewProvider subscribes a NodeListener writing through w to the node list
// of topologyID.
func NewProvider(ctx context.Context, sub datatree.Subscriber[topology.Device], w Writer, topologyID string) (*Provider, error) {
	path := topology.NodesPath(topologyID)
	d, err := datatree.NewDispatcher[topology.Device](ctx, sub, path, NewNodeListener(w))
	if err != nil {
		return nil, fmt.Errorf("registering node listener: %w", err)
	}
	util.WithField("path", path.Key()).Info("Node listener registered")
	return &Provider{topologyID: topologyID, dispatcher: d}, nil
}

// Run delivers topology changes to the listener until ctx is done or the
// subscription ends.
func (p *Provider) Run(ctx context.Context) error {
	util.WithField("topology", p.topologyID).Info("Flow manager session initiated")
	err := p.dispatcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the subscription.
func (p *Provider) Close() error {
	err := p.dispatcher.Close()
	util.WithField("topology", p.topologyID).Info("Flow manager closed")
	return err
}
