package topology

import (
	"strings"

	"github.com/newtron-network/newtflow/pkg/util"
)

// TerminationPoint is a port on a topology node.
// ID format: "<fabric>:<device>:<port>" (e.g., "openflow:1:3").
type TerminationPoint struct {
	ID string `json:"tp_id"`
}

// Device is a snapshot of a node under the watched topology. Handlers
// receive it by value and never modify it.
type Device struct {
	ID                string             `json:"node_id"`
	TerminationPoints []TerminationPoint `json:"termination_points,omitempty"`
}

// NewDevice creates a device snapshot with the given port ids, in order.
func NewDevice(id string, portIDs ...string) Device {
	d := Device{ID: id}
	for _, p := range portIDs {
		d.TerminationPoints = append(d.TerminationPoints, TerminationPoint{ID: p})
	}
	return d
}

// PortIDs returns the termination point ids in listing order.
func (d Device) PortIDs() []string {
	ids := make([]string, len(d.TerminationPoints))
	for i, tp := range d.TerminationPoints {
		ids[i] = tp.ID
	}
	return ids
}

// Store field names for a topology node hash.
const (
	FieldTerminationPoints = "termination_points"
)

// DecodeDevice builds a Device from a topology node hash. The node id is the
// last segment of the key; termination points are the comma-separated
// termination_points field, order preserved, blanks dropped.
func DecodeDevice(path Path, fields map[string]string) (Device, error) {
	return NewDevice(path.Leaf(), util.SplitCommaSeparated(fields[FieldTerminationPoints])...), nil
}

// EncodeDevice is the inverse of DecodeDevice.
func EncodeDevice(d Device) map[string]string {
	return map[string]string{
		FieldTerminationPoints: strings.Join(d.PortIDs(), ","),
	}
}
