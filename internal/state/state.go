// Package state holds the immutable simulator snapshots produced by the
// status poller.
package state

import (
	"sort"
	"time"

	"subsim-ctl/internal/catalog"
)

// ActiveEvents maps target -> event type -> presence. The map is sparse:
// a present key means the condition is active.
type ActiveEvents map[string]map[string]bool

// SimulationState is the authoritative server-reported state.
type SimulationState struct {
	Running      bool         `json:"simulation_running"`
	ActiveEvents ActiveEvents `json:"active_events"`
}

// Stopped is the state assumed whenever the server cannot be read.
func Stopped() SimulationState {
	return SimulationState{Running: false, ActiveEvents: ActiveEvents{}}
}

// Count returns the total number of active events across all targets.
func (s SimulationState) Count() int {
	n := 0
	for _, events := range s.ActiveEvents {
		n += len(events)
	}
	return n
}

// IsActive reports whether k is present in the active set.
func (s SimulationState) IsActive(k catalog.Key) bool {
	events, ok := s.ActiveEvents[k.Target]
	if !ok {
		return false
	}
	_, ok = events[k.Event]
	return ok
}

// Pairs returns the active keys sorted by target then event.
func (s SimulationState) Pairs() []catalog.Key {
	keys := make([]catalog.Key, 0, s.Count())
	for target, events := range s.ActiveEvents {
		for event := range events {
			keys = append(keys, catalog.Key{Target: target, Event: event})
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Target != keys[j].Target {
			return keys[i].Target < keys[j].Target
		}
		return keys[i].Event < keys[j].Event
	})
	return keys
}

// Clone returns a deep copy so a decoded response can be handed out
// without sharing maps.
func (s SimulationState) Clone() SimulationState {
	out := SimulationState{Running: s.Running, ActiveEvents: make(ActiveEvents, len(s.ActiveEvents))}
	for target, events := range s.ActiveEvents {
		cp := make(map[string]bool, len(events))
		for e, v := range events {
			cp[e] = v
		}
		out.ActiveEvents[target] = cp
	}
	return out
}

// Link describes whether the last poll reached the server.
type Link string

const (
	LinkUnknown      Link = ""
	LinkConnected    Link = "connected"
	LinkDisconnected Link = "disconnected"
)

// Snapshot is one applied poll result. Seq is taken when the poll is
// initiated and is strictly increasing across polls.
type Snapshot struct {
	Seq        uint64          `json:"seq"`
	State      SimulationState `json:"state"`
	Link       Link            `json:"link"`
	Err        string          `json:"error,omitempty"`
	ReceivedAt time.Time       `json:"ts"`
}

// Disconnected reports whether the snapshot stems from a failed poll.
func (s Snapshot) Disconnected() bool {
	return s.Link == LinkDisconnected
}
