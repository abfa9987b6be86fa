// Package health verifies that the store is usable by the reconciler and that
// every OpenFlow node carries the flows it should.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/newtron-network/newtflow/pkg/datastore"
	"github.com/newtron-network/newtflow/pkg/flowmanager"
	"github.com/newtron-network/newtflow/pkg/topology"
)

// Status is the outcome of a check.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
	StatusUnknown  Status = "unknown"
)

var severity = map[Status]int{
	StatusOK:       0,
	StatusUnknown:  1,
	StatusWarning:  2,
	StatusCritical: 3,
}

// Worse returns the more severe of two statuses.
func Worse(a, b Status) Status {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Result is the outcome of one check.
type Result struct {
	Check     string        `json:"check"`
	Status    Status        `json:"status"`
	Message   string        `json:"message"`
	Details   interface{}   `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
}

// Report collects the results of every check.
type Report struct {
	Topology  string        `json:"topology"`
	Timestamp time.Time     `json:"timestamp"`
	Overall   Status        `json:"overall"`
	Results   []Result      `json:"results"`
	Duration  time.Duration `json:"duration"`
}

// Source is the store access checks need. *datastore.Client implements it.
type Source interface {
	Ping(ctx context.Context) error
	KeyspaceEvents(ctx context.Context) (string, error)
	Get(ctx context.Context, path topology.Path) (map[string]string, error)
	Children(ctx context.Context, path topology.Path) ([]topology.Path, error)
	Descendants(ctx context.Context, path topology.Path) ([]topology.Path, error)
}

var _ Source = (*datastore.Client)(nil)

// Target is what the checks run against.
type Target struct {
	TopologyID    string
	Operational   Source
	Configuration Source
}

// Check is a single health check.
type Check interface {
	Name() string
	Run(ctx context.Context, t *Target) Result
}

// Checker runs a list of checks.
type Checker struct {
	checks []Check
}

// NewChecker creates a checker with the default checks.
func NewChecker() *Checker {
	return &Checker{
		checks: []Check{
			&ConnectivityCheck{},
			&KeyspaceCheck{},
			&TopologyCheck{},
			&FlowCheck{},
		},
	}
}

// AddCheck appends a check.
func (c *Checker) AddCheck(check Check) {
	c.checks = append(c.checks, check)
}

// ListChecks returns the check names in run order.
func (c *Checker) ListChecks() []string {
	names := make([]string, len(c.checks))
	for i, check := range c.checks {
		names[i] = check.Name()
	}
	return names
}

// Run executes every check. Once a check is critical the remaining checks
// are reported unknown, since they depend on a reachable store.
func (c *Checker) Run(ctx context.Context, t *Target) *Report {
	start := time.Now()
	report := &Report{
		Topology:  t.TopologyID,
		Timestamp: start,
		Overall:   StatusOK,
	}

	for _, check := range c.checks {
		var r Result
		if report.Overall == StatusCritical {
			r = Result{Check: check.Name(), Status: StatusUnknown, Message: "skipped after critical failure"}
		} else {
			checkStart := time.Now()
			r = check.Run(ctx, t)
			r.Check = check.Name()
			r.Duration = time.Since(checkStart)
		}
		r.Timestamp = time.Now()
		report.Results = append(report.Results, r)
		report.Overall = Worse(report.Overall, r.Status)
	}

	report.Duration = time.Since(start)
	return report
}

// ConnectivityCheck pings both databases.
type ConnectivityCheck struct{}

func (c *ConnectivityCheck) Name() string { return "connectivity" }

func (c *ConnectivityCheck) Run(ctx context.Context, t *Target) Result {
	if err := t.Operational.Ping(ctx); err != nil {
		return Result{Status: StatusCritical, Message: fmt.Sprintf("operational db unreachable: %v", err)}
	}
	if err := t.Configuration.Ping(ctx); err != nil {
		return Result{Status: StatusCritical, Message: fmt.Sprintf("configuration db unreachable: %v", err)}
	}
	return Result{Status: StatusOK, Message: "both databases reachable"}
}

// KeyspaceCheck verifies the operational server publishes the notifications
// the watch depends on.
type KeyspaceCheck struct{}

func (c *KeyspaceCheck) Name() string { return "keyspace-events" }

func (c *KeyspaceCheck) Run(ctx context.Context, t *Target) Result {
	current, err := t.Operational.KeyspaceEvents(ctx)
	if err != nil {
		return Result{Status: StatusUnknown, Message: err.Error()}
	}
	if missing := datastore.MissingKeyspaceFlags(current); missing != "" {
		return Result{
			Status:  StatusCritical,
			Message: fmt.Sprintf("notify-keyspace-events %q lacks %q; set redis.enable_keyspace_events", current, missing),
			Details: map[string]string{"current": current, "missing": missing},
		}
	}
	return Result{Status: StatusOK, Message: fmt.Sprintf("notify-keyspace-events %q", current)}
}

// TopologyCheck counts the nodes of the watched topology.
type TopologyCheck struct{}

func (c *TopologyCheck) Name() string { return "topology" }

func (c *TopologyCheck) Run(ctx context.Context, t *Target) Result {
	nodes, err := t.Operational.Children(ctx, topology.NodesPath(t.TopologyID))
	if err != nil {
		return Result{Status: StatusUnknown, Message: err.Error()}
	}
	openflow := 0
	for _, p := range nodes {
		if topology.IsOpenFlow(p.Leaf()) {
			openflow++
		}
	}
	details := map[string]int{"nodes": len(nodes), "openflow": openflow}
	if len(nodes) == 0 {
		return Result{Status: StatusWarning, Message: fmt.Sprintf("topology %s has no nodes", t.TopologyID), Details: details}
	}
	return Result{
		Status:  StatusOK,
		Message: fmt.Sprintf("%d nodes, %d OpenFlow", len(nodes), openflow),
		Details: details,
	}
}

// FlowCheck compares the flows installed on each OpenFlow node with the
// flows the reconciler would install.
type FlowCheck struct{}

func (c *FlowCheck) Name() string { return "flows" }

func (c *FlowCheck) Run(ctx context.Context, t *Target) Result {
	nodesPath := topology.NodesPath(t.TopologyID)
	nodes, err := t.Operational.Children(ctx, nodesPath)
	if err != nil {
		return Result{Status: StatusUnknown, Message: err.Error()}
	}

	missing := make(map[string][]string)
	total := 0
	for _, p := range nodes {
		if !topology.IsOpenFlow(p.Leaf()) {
			continue
		}
		fields, err := t.Operational.Get(ctx, p)
		if err != nil {
			return Result{Status: StatusUnknown, Message: err.Error()}
		}
		if fields == nil {
			continue
		}
		dev, err := topology.DecodeDevice(p, fields)
		if err != nil {
			return Result{Status: StatusUnknown, Message: err.Error()}
		}
		want, err := flowmanager.Preview(dev)
		if err != nil {
			missing[dev.ID] = append(missing[dev.ID], err.Error())
			continue
		}

		installed, err := t.Configuration.Descendants(ctx, topology.DevicePath(dev.ID))
		if err != nil {
			return Result{Status: StatusUnknown, Message: err.Error()}
		}
		have := make(map[string]bool, len(installed))
		for _, ip := range installed {
			have[ip.Key()] = true
		}
		for _, f := range want {
			total++
			if !have[topology.FlowPath(dev.ID, f.TableID, f.ID).Key()] {
				missing[dev.ID] = append(missing[dev.ID], f.ID)
			}
		}
	}

	if len(missing) > 0 {
		return Result{
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d devices have missing flows", len(missing)),
			Details: missing,
		}
	}
	return Result{Status: StatusOK, Message: fmt.Sprintf("all %d expected flows installed", total)}
}
