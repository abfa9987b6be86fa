// Package topology holds the device and termination-point model observed in
// the operational topology, plus the identifier and path helpers used to
// address it in the store.
package topology

import (
	"strings"

	"github.com/newtron-network/newtflow/pkg/util"
)

// OpenFlowPrefix is the fabric prefix of devices managed by newtflow.
const OpenFlowPrefix = "openflow"

const (
	nodeConnectorSegments = 3
	prefixIndex           = 0
	nodeIndex             = 1
	portIndex             = 2
)

// IsOpenFlow reports whether deviceID belongs to the OpenFlow fabric,
// i.e. its first ':' segment is "openflow". Malformed input is reported as
// not managed.
func IsOpenFlow(deviceID string) bool {
	prefix, _, _ := strings.Cut(deviceID, ":")
	return prefix == OpenFlowPrefix
}

// ExtractDeviceID returns "<fabric>:<device>" for a "<fabric>:<device>:<port>"
// termination point id.
func ExtractDeviceID(portID string) (string, error) {
	parts, err := splitNodeConnector(portID)
	if err != nil {
		return "", err
	}
	return parts[prefixIndex] + ":" + parts[nodeIndex], nil
}

// ExtractPortNumber returns the port segment of a termination point id.
func ExtractPortNumber(portID string) (string, error) {
	parts, err := splitNodeConnector(portID)
	if err != nil {
		return "", err
	}
	return parts[portIndex], nil
}

func splitNodeConnector(portID string) ([]string, error) {
	parts := strings.Split(portID, ":")
	if len(parts) != nodeConnectorSegments {
		return nil, util.NewIdentifierError(portID, len(parts), nodeConnectorSegments)
	}
	return parts, nil
}
