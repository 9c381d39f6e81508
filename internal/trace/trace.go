// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package trace defines the append-only structured event sink that the
// research loop streams progress to. The sink is injected at construction;
// the core imposes no contract on it beyond "accepts events".
package trace

import (
	"sort"
	"sync"
	"time"
)

// Event is one structured trace record: a named occurrence within a run,
// with the cycle it happened in and free-form attributes.
type Event struct {
	Time  time.Time
	RunID string
	Cycle int
	Name  string
	Attrs map[string]any
}

// Sink accepts append-only structured events. Implementations must be safe
// for use from the single goroutine driving one run; they are not required
// to be safe across runs sharing a sink unless documented.
type Sink interface {
	Emit(ev Event)
}

// Nop is a Sink that discards all events.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(Event) {}

// Memory is a Sink that records events in order, for tests and for
// attaching a run's trace to its archived result.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

// Emit appends the event.
func (m *Memory) Emit(ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
}

// Events returns a copy of the recorded events.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

// Named returns the recorded events with the given name, in order.
func (m *Memory) Named(name string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, ev := range m.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

// sortedKeys returns the attribute keys in stable order so console output
// is deterministic.
func sortedKeys(attrs map[string]any) []string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
