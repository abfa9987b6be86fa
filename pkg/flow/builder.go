package flow

import (
	"fmt"

	"github.com/newtron-network/newtflow/pkg/topology"
)

// BuildBroadcastFlow returns the rule that forwards everything received on
// ingressPort to every other port of dev, in the device's port order.
//
// A device with a single port yields a flow with an empty action list. The
// only error is a malformed port id (util.ErrInvalidIdentifier).
func BuildBroadcastFlow(dev topology.Device, ingressPort string) (*Flow, error) {
	if _, err := topology.ExtractPortNumber(ingressPort); err != nil {
		return nil, fmt.Errorf("ingress port on %s: %w", dev.ID, err)
	}

	actions := []Action{}
	order := 0
	for _, tp := range dev.TerminationPoints {
		if tp.ID == ingressPort {
			continue
		}
		port, err := topology.ExtractPortNumber(tp.ID)
		if err != nil {
			return nil, fmt.Errorf("termination point on %s: %w", dev.ID, err)
		}
		actions = append(actions, Action{
			Order: order,
			Key:   order,
			Output: OutputAction{
				NodeConnector: port,
				MaxLength:     MaxLength,
			},
		})
		order++
	}

	id := FlowID(ingressPort)
	return &Flow{
		ID:          id,
		Name:        id,
		TableID:     TableID,
		Priority:    Priority,
		Strict:      false,
		Barrier:     true,
		HardTimeout: HardTimeout,
		IdleTimeout: IdleTimeout,
		Cookie:      Cookie,
		CookieMask:  CookieMask,
		Match:       Match{InPort: ingressPort},
		Instructions: []Instruction{
			{Order: 0, ApplyActions: actions},
		},
	}, nil
}
