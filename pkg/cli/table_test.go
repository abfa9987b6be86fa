package cli

import (
	"bytes"
	"testing"
)

func TestTable_EmptyWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "FLOW", "OUTPUTS")
	if !tbl.Empty() {
		t.Error("new table should be empty")
	}
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table wrote %q", buf.String())
	}
}

func TestTable_Rows(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "FLOW", "OUTPUTS")
	tbl.Row("L2_Rule_openflow:1:1", "2,3")
	tbl.Row("L2_Rule_openflow:1:2", "1,3")
	tbl.Flush()

	want := "FLOW                  OUTPUTS\n" +
		"----                  -------\n" +
		"L2_Rule_openflow:1:1  2,3\n" +
		"L2_Rule_openflow:1:2  1,3\n"
	if got := buf.String(); got != want {
		t.Errorf("table output:\n%s\nwant:\n%s", got, want)
	}
}

func TestTable_Prefix(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "A", "B").WithPrefix("  ")
	tbl.Row("x", "y")
	tbl.Flush()

	want := "  A  B\n  -  -\n  x  y\n"
	if got := buf.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
