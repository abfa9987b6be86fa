package util

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// saveLoggerState saves the current logger state for restoration
func saveLoggerState() (io.Writer, logrus.Level, logrus.Formatter) {
	return Logger.Out, Logger.Level, Logger.Formatter
}

// restoreLoggerState restores the logger to its previous state
func restoreLoggerState(out io.Writer, level logrus.Level, formatter logrus.Formatter) {
	Logger.SetOutput(out)
	Logger.SetLevel(level)
	Logger.SetFormatter(formatter)
}

func TestSetLogLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"warning", false},
		{"error", false},
		{"invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := SetLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetLogLevel(%q) error = %v, wantErr %v", tt.level, err, tt.wantErr)
			}
		})
	}
}

func TestSetLogFormat(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	tests := []struct {
		format   string
		wantJSON bool
		wantErr  bool
	}{
		{"text", false, false},
		{"", false, false},
		{"json", true, false},
		// A bytes.Buffer is never a terminal.
		{"auto", true, false},
		{"xml", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			SetLogOutput(&buf)
			setTextFormat()

			err := SetLogFormat(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SetLogFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}

			Info("format check")
			got := strings.HasPrefix(buf.String(), "{")
			if got != tt.wantJSON {
				t.Errorf("SetLogFormat(%q): JSON output = %v, want %v (%s)", tt.format, got, tt.wantJSON, buf.String())
			}
		})
	}
}

func TestWithFlow(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)
	SetJSONFormat()

	WithFlow("openflow:1", "L2_Rule_openflow:1:1").Info("installed")

	output := buf.String()
	if !strings.Contains(output, `"device":"openflow:1"`) {
		t.Errorf("Expected device field, got: %s", output)
	}
	if !strings.Contains(output, `"flow":"L2_Rule_openflow:1:1"`) {
		t.Errorf("Expected flow field, got: %s", output)
	}
}

func TestWithDevice(t *testing.T) {
	entry := WithDevice("openflow:7")
	if entry == nil {
		t.Fatal("WithDevice should return non-nil entry")
	}
	if entry.Data["device"] != "openflow:7" {
		t.Errorf("device field = %v, want openflow:7", entry.Data["device"])
	}
}

func TestDebugfRespectsLevel(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	SetLogLevel("info")
	Debugf("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("Expected no debug output at info level, got: %s", buf.String())
	}

	SetLogLevel("debug")
	Debugf("shown %d", 2)
	if buf.Len() == 0 {
		t.Error("Expected debug output at debug level")
	}
}

func TestLevelHelpers(t *testing.T) {
	out, level, formatter := saveLoggerState()
	defer restoreLoggerState(out, level, formatter)

	var buf bytes.Buffer
	SetLogOutput(&buf)

	Infof("info %s", "message")
	Warnf("warn %s", "message")
	Errorf("error %s", "message")

	output := buf.String()
	for _, want := range []string{"info message", "warn message", "error message"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in output: %s", want, output)
		}
	}
}
