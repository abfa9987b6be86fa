package util

import (
	"reflect"
	"testing"
)

func TestSplitCommaSeparated(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"openflow:1:1", []string{"openflow:1:1"}},
		{"openflow:1:1,openflow:1:2", []string{"openflow:1:1", "openflow:1:2"}},
		{"openflow:1:3, openflow:1:1 ,openflow:1:2", []string{"openflow:1:3", "openflow:1:1", "openflow:1:2"}},
		{",openflow:1:1,,", []string{"openflow:1:1"}},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		got := SplitCommaSeparated(tt.input)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitCommaSeparated(%q) = %#v, want %#v", tt.input, got, tt.want)
		}
	}
}
