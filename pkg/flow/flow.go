// Package flow builds the forwarding rules newtflow installs on OpenFlow
// devices.
package flow

// Fixed policy for rules installed by newtflow. The cookie tags every rule so
// they can be matched in bulk (cookie & CookieMask) without touching rules
// installed by other applications sharing the device.
const (
	IDPrefix    = "L2_Rule_"
	TableID     = uint8(0)
	Priority    = uint16(0)
	HardTimeout = uint16(1200)
	IdleTimeout = uint16(3400)
	Cookie      = uint64(106)
	CookieMask  = uint64(255)

	// MaxLength bounds the bytes sent to the controller when an output
	// action targets the controller port.
	MaxLength = uint16(60)
)

// OutputAction forwards the packet to a port of the same device.
type OutputAction struct {
	NodeConnector string `json:"output_node_connector"`
	MaxLength     uint16 `json:"max_length"`
}

// Action is one entry of an apply-actions list. Key mirrors Order.
type Action struct {
	Order  int          `json:"order"`
	Key    int          `json:"key"`
	Output OutputAction `json:"output_action"`
}

// Instruction applies its actions immediately.
type Instruction struct {
	Order        int      `json:"order"`
	ApplyActions []Action `json:"apply_actions"`
}

// Match restricts a flow to packets received on one port.
type Match struct {
	InPort string `json:"in_port"`
}

// Flow is a complete rule ready to be written to the device's flow table.
type Flow struct {
	ID           string        `json:"id"`
	Name         string        `json:"flow_name"`
	TableID      uint8         `json:"table_id"`
	Priority     uint16        `json:"priority"`
	Strict       bool          `json:"strict"`
	Barrier      bool          `json:"barrier"`
	HardTimeout  uint16        `json:"hard_timeout"`
	IdleTimeout  uint16        `json:"idle_timeout"`
	Cookie       uint64        `json:"cookie"`
	CookieMask   uint64        `json:"cookie_mask"`
	Match        Match         `json:"match"`
	Instructions []Instruction `json:"instructions"`
}

// FlowID returns the id of the rule matching traffic from ingressPort.
func FlowID(ingressPort string) string {
	return IDPrefix + ingressPort
}

// Actions returns the actions of all instructions, in order.
func (f *Flow) Actions() []Action {
	var out []Action
	for _, in := range f.Instructions {
		out = append(out, in.ApplyActions...)
	}
	return out
}

// OutputPorts returns the port numbers the flow forwards to.
func (f *Flow) OutputPorts() []string {
	actions := f.Actions()
	ports := make([]string, len(actions))
	for i, a := range actions {
		ports[i] = a.Output.NodeConnector
	}
	return ports
}
