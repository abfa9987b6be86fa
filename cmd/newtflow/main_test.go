package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/newtron-network/newtflow/pkg/config"
	"github.com/newtron-network/newtflow/pkg/flowmanager"
	"github.com/newtron-network/newtflow/pkg/topology"
)

func TestPrintFlows(t *testing.T) {
	flows, err := flowmanager.Preview(topology.NewDevice("openflow:1", "openflow:1:1", "openflow:1:2"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	printFlows(&buf, flows)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want header, divider and 2 rows:\n%s", len(lines), buf.String())
	}
	for i, want := range [][]string{
		{"L2_Rule_openflow:1:1", "openflow:1:1", "2", "0", "0", "3400", "1200", "106/255"},
		{"L2_Rule_openflow:1:2", "openflow:1:2", "1", "0", "0", "3400", "1200", "106/255"},
	} {
		if got := strings.Fields(lines[i+2]); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("row %d = %v, want %v", i, got, want)
		}
	}
}

func TestPrintFlows_SinglePort(t *testing.T) {
	flows, err := flowmanager.Preview(topology.NewDevice("openflow:4", "openflow:4:1"))
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	printFlows(&buf, flows)
	if !strings.Contains(buf.String(), "openflow:4:1  -") {
		t.Errorf("single-port flow should show no outputs:\n%s", buf.String())
	}
}

func TestApplyOverrides(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&redisAddr, "redis", "", "")
	cmd.Flags().StringVar(&topologyID, "topology", "", "")
	cmd.Flags().StringVar(&logFormat, "log-format", "", "")
	if err := cmd.Flags().Parse([]string{"--redis", "10.1.1.1:6379"}); err != nil {
		t.Fatal(err)
	}

	c := config.Default()
	applyOverrides(cmd, c)
	if c.Redis.Addr != "10.1.1.1:6379" {
		t.Errorf("Redis.Addr = %q", c.Redis.Addr)
	}
	if c.TopologyID != topology.DefaultTopologyID {
		t.Errorf("TopologyID changed without flag: %q", c.TopologyID)
	}
}
