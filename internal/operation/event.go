// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package operation

import (
	"sync"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/text"
)

// Kind distinguishes informational events from ones that suspend the pass.
type Kind string

const (
	KindStatusChanged  Kind = "status_changed"
	KindActionRequired Kind = "action_required"
)

// Event is what an operation reports. The pipeline stamps everything below
// Args; operations only choose kind, topic and args.
type Event struct {
	Kind  Kind              `json:"kind"`
	Topic text.Key          `json:"topic"`
	Args  map[string]string `json:"args,omitempty"`

	Seq       uint64    `json:"seq"`
	Operation string    `json:"operation"`
	Index     int       `json:"index"`
	Mode      Mode      `json:"mode"`
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
}

// Emitter is handed to an operation for the duration of one method call.
type Emitter interface {
	StatusChanged(topic text.Key)
	ActionRequired(topic text.Key, args map[string]string)
}

// Listener observes events in the order they were emitted. OnEvent runs on
// the pipeline's goroutine and must not block for long.
type Listener interface {
	OnEvent(Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Listeners fans an event out to every member in order.
type Listeners []Listener

func (ls Listeners) OnEvent(e Event) {
	for _, l := range ls {
		l.OnEvent(e)
	}
}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) StatusChanged(text.Key) {}
func (discard) ActionRequired(text.Key, map[string]string) {}

// Recorder is an Emitter and Listener that keeps every event it sees.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) StatusChanged(topic text.Key) {
	r.OnEvent(Event{Kind: KindStatusChanged, Topic: topic})
}

func (r *Recorder) ActionRequired(topic text.Key, args map[string]string) {
	r.OnEvent(Event{Kind: KindActionRequired, Topic: topic, Args: args})
}

func (r *Recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Topics returns the recorded topics of the given kind, in order.
func (r *Recorder) Topics(kind Kind) []text.Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []text.Key
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e.Topic)
		}
	}
	return out
}
