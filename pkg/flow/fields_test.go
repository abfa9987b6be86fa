package flow

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/newtron-network/newtflow/pkg/topology"
)

func TestFields(t *testing.T) {
	f, err := BuildBroadcastFlow(topology.NewDevice("openflow:1", "openflow:1:1", "openflow:1:2"), "openflow:1:2")
	if err != nil {
		t.Fatal(err)
	}

	fields, err := f.Fields()
	if err != nil {
		t.Fatalf("Fields error: %v", err)
	}

	want := map[string]string{
		"id":           "L2_Rule_openflow:1:2",
		"flow_name":    "L2_Rule_openflow:1:2",
		"table_id":     "0",
		"priority":     "0",
		"strict":       "false",
		"barrier":      "true",
		"hard_timeout": "1200",
		"idle_timeout": "3400",
		"cookie":       "106",
		"cookie_mask":  "255",
		"in_port":      "openflow:1:2",
		"instructions": `[{"order":0,"apply_actions":[{"order":0,"key":0,"output_action":{"output_node_connector":"1","max_length":60}}]}]`,
	}
	if diff := cmp.Diff(want, fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}

	back, err := ParseFields(fields)
	if err != nil {
		t.Fatalf("ParseFields error: %v", err)
	}
	if diff := cmp.Diff(f, back); diff != "" {
		t.Errorf("ParseFields(Fields(f)) mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFields_Errors(t *testing.T) {
	valid := func() map[string]string {
		f, _ := BuildBroadcastFlow(topology.NewDevice("openflow:1", "openflow:1:1"), "openflow:1:1")
		fields, _ := f.Fields()
		return fields
	}

	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{"table out of range", func(m map[string]string) { m["table_id"] = "256" }, "table_id"},
		{"bad priority", func(m map[string]string) { m["priority"] = "high" }, "priority"},
		{"bad barrier", func(m map[string]string) { m["barrier"] = "maybe" }, "barrier"},
		{"missing cookie", func(m map[string]string) { delete(m, "cookie") }, "cookie"},
		{"bad instructions", func(m map[string]string) { m["instructions"] = "{" }, "instructions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := valid()
			tt.mutate(fields)
			_, err := ParseFields(fields)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}
