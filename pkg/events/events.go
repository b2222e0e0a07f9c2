// Package events defines the chip analytics taxonomy and the sinks that receive it.
package events

import (
	"log/slog"
	"sort"
	"sync"
)

// Event names.
const (
	GateBlocked     = "chip_gate_blocked"
	GatesPassed     = "chip_gates_passed"
	CooldownActive  = "chip_cooldown_active"
	CooldownSet     = "chip_cooldown_set"
	DismissedByUser = "chip_dismissed_by_user"
	UnhiddenByUser  = "chip_unhidden_by_user"
	AssistShown     = "chip_assist_shown"
	AssistConfirmed = "chip_assist_confirmed"
	AssistDismissed = "chip_assist_dismissed"
)

// requiredFields lists the fields each event must carry.
var requiredFields = map[string][]string{
	GateBlocked:     {"gate", "chipType", "reason"},
	GatesPassed:     {"chipType", "subject"},
	CooldownActive:  {"chipType", "cooldownType", "remainingMs"},
	CooldownSet:     {"chipType", "url", "duration"},
	DismissedByUser: {"chipType", "origin", "duration"},
	UnhiddenByUser:  {"chipType", "origin"},
	AssistShown:     {"chipType", "subject", "reason"},
	AssistConfirmed: {"chipType", "originalSubject", "confirmedSubject", "edited"},
	AssistDismissed: {"chipType", "subject"},
}

// Event is one analytics record.
type Event struct {
	Name   string         `json:"name" yaml:"name"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// New builds an event from alternating key/value pairs.
func New(name string, kv ...any) Event {
	fields := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if key, ok := kv[i].(string); ok {
			fields[key] = kv[i+1]
		}
	}
	return Event{Name: name, Fields: fields}
}

// Missing returns the required fields absent from e, sorted.
func (e Event) Missing() []string {
	var missing []string
	for _, field := range requiredFields[e.Name] {
		if _, ok := e.Fields[field]; !ok {
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing
}

// Sink receives analytics events. Emit must not block on slow transports.
type Sink interface {
	Emit(e Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Emit(Event) {}

// Multi fans an event out to several sinks.
type Multi []Sink

func (m Multi) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// LogSink writes events as structured log lines.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Emit(e Event) {
	if l.Logger == nil {
		return
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]any, 0, len(keys)*2+2)
	attrs = append(attrs, "event", e.Name)
	for _, k := range keys {
		attrs = append(attrs, k, e.Fields[k])
	}
	if missing := e.Missing(); len(missing) > 0 {
		attrs = append(attrs, "missing_fields", missing)
	}
	l.Logger.Info("Analytics event", attrs...)
}

// Recorder keeps events in memory for inspection.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// Reset clears the recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
