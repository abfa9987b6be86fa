// Package audit records flow installations to a JSON-lines log.
package audit

import (
	"fmt"
	"time"
)

// Operations recorded by the reconciler.
const (
	OpInstallFlow = "flow.install"
)

// Event is one auditable write to the configuration store.
type Event struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Device    string        `json:"device"`
	Operation string        `json:"operation"`
	Port      string        `json:"port,omitempty"`
	Flow      string        `json:"flow,omitempty"`
	Outputs   int           `json:"outputs"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Filter selects events for ReadLog. Zero fields match everything.
type Filter struct {
	Device      string
	Flow        string
	Operation   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int // keep the most recent matches; 0 for all
}

// Matches reports whether event satisfies every criterion set in f.
func (f Filter) Matches(event *Event) bool {
	switch {
	case f.Device != "" && event.Device != f.Device:
		return false
	case f.Flow != "" && event.Flow != f.Flow:
		return false
	case f.Operation != "" && event.Operation != f.Operation:
		return false
	case !f.StartTime.IsZero() && event.Timestamp.Before(f.StartTime):
		return false
	case !f.EndTime.IsZero() && event.Timestamp.After(f.EndTime):
		return false
	case f.SuccessOnly && !event.Success:
		return false
	case f.FailureOnly && event.Success:
		return false
	}
	return true
}

// NewEvent creates a new audit event
func NewEvent(device, operation string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Device:    device,
		Operation: operation,
	}
}

// WithFlow sets the ingress port, flow id and output count.
func (e *Event) WithFlow(port, flowID string, outputs int) *Event {
	e.Port = port
	e.Flow = flowID
	e.Outputs = outputs
	return e
}

// WithSuccess marks the event as successful
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the event as failed
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithResult marks the event successful when err is nil, failed otherwise.
func (e *Event) WithResult(err error) *Event {
	if err != nil {
		return e.WithError(err)
	}
	return e.WithSuccess()
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
