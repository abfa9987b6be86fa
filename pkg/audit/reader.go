package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/newtron-network/newtflow/pkg/util"
)

// ReadLog returns the events matching filter from the log at path and its
// rotated backups, oldest first. With filter.Limit set, only the most recent
// matches are kept. A missing log yields no events.
func ReadLog(path string, filter Filter) ([]*Event, error) {
	indices, err := backupIndices(path)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(indices)))

	events := []*Event{}
	for _, n := range indices {
		if events, err = readEvents(backupName(path, n), filter, events); err != nil {
			return nil, err
		}
	}
	if events, err = readEvents(path, filter, events); err != nil {
		return nil, err
	}

	if filter.Limit > 0 && len(events) > filter.Limit {
		events = events[len(events)-filter.Limit:]
	}
	return events, nil
}

// readEvents appends the matching events of one file to events.
func readEvents(name string, filter Filter, events []*Event) ([]*Event, error) {
	f, err := os.Open(name)
	if errors.Is(err, os.ErrNotExist) {
		return events, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for line := 1; scanner.Scan(); line++ {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			util.WithField("file", name).Warnf("Skipping malformed audit entry at line %d: %v", line, err)
			continue
		}
		if filter.Matches(&e) {
			events = append(events, &e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return events, nil
}
