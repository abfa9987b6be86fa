package topology

import (
	"strconv"
	"strings"
)

// KeySeparator joins path segments into a store key (SONiC convention).
const KeySeparator = "|"

// DefaultTopologyID is the OpenFlow topology maintained by the controller.
const DefaultTopologyID = "flow:1"

// Table names used for store paths.
const (
	TopologyTable = "TOPOLOGY"
	NodeTable     = "NODE"
)

// Path addresses an entry in the hierarchical store. Each element is one
// level; Key() renders it as a Redis key.
type Path []string

// ParsePath splits a store key into a Path.
func ParsePath(key string) Path {
	if key == "" {
		return nil
	}
	return Path(strings.Split(key, KeySeparator))
}

// Key renders the path as a store key.
func (p Path) Key() string {
	return strings.Join(p, KeySeparator)
}

func (p Path) String() string {
	return p.Key()
}

// Child returns a new path with the given elements appended.
func (p Path) Child(elems ...string) Path {
	out := make(Path, 0, len(p)+len(elems))
	out = append(out, p...)
	return append(out, elems...)
}

// Leaf returns the last element, or "" for an empty path.
func (p Path) Leaf() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Pattern returns the glob matching every direct child key of p.
func (p Path) Pattern() string {
	return p.Key() + KeySeparator + "*"
}

// Contains reports whether other is p or lies beneath it.
func (p Path) Contains(other Path) bool {
	if len(other) < len(p) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// NodesPath returns the node list of a topology: TOPOLOGY|<id>|NODE.
func NodesPath(topologyID string) Path {
	return Path{TopologyTable, topologyID, NodeTable}
}

// DevicePath returns the inventory path of a device: NODE|<device>.
func DevicePath(deviceID string) Path {
	return Path{NodeTable, deviceID}
}

// FlowPath returns the path of a flow entry: NODE|<device>|<table>|<flow>.
func FlowPath(deviceID string, tableID uint8, flowID string) Path {
	return DevicePath(deviceID).Child(strconv.Itoa(int(tableID)), flowID)
}
