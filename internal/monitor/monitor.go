// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package monitor turns pipeline events into output for supervisors: log
// lines, in-process bus messages and Redis publications.
package monitor

import (
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
)

// TopicEvents is the bus topic carrying every session event in emission
// order. TopicStatus and TopicAction name the event kinds on the wire.
const (
	TopicEvents = "session.events"
	TopicStatus = "session.status"
	TopicAction = "session.action"
)

// Envelope is the serialized form of an event with its display text.
type Envelope struct {
	operation.Event
	Text string `json:"text"`
}

// Wrap attaches the resolved text of ev's topic.
func Wrap(ev operation.Event, r *text.Resolver) Envelope {
	env := Envelope{Event: ev}
	if r != nil {
		env.Text = r.Resolve(ev.Topic)
	}
	return env
}

// TopicFor maps an event kind to its wire name.
func TopicFor(kind operation.Kind) string {
	if kind == operation.KindActionRequired {
		return TopicAction
	}
	return TopicStatus
}
