// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"sync/atomic"

	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
)

// emitter is handed to exactly one operation call. Once the call returns it
// is sealed and drops anything emitted late.
type emitter struct {
	p      *Pipeline
	op     string
	index  int
	mode   operation.Mode
	sealed atomic.Bool

	lastAction *operation.Event
}

func (p *Pipeline) newEmitter(op string, index int, mode operation.Mode) *emitter {
	return &emitter{p: p, op: op, index: index, mode: mode}
}

func (e *emitter) StatusChanged(topic text.Key) {
	e.emit(operation.Event{Kind: operation.KindStatusChanged, Topic: topic})
}

func (e *emitter) ActionRequired(topic text.Key, args map[string]string) {
	cp := make(map[string]string, len(args))
	for k, v := range args {
		cp[k] = v
	}
	e.emit(operation.Event{Kind: operation.KindActionRequired, Topic: topic, Args: cp})
}

func (e *emitter) emit(ev operation.Event) {
	if e.sealed.Load() {
		e.p.logger.Warn().
			Str(log.FieldEvent, "pipeline.late_event").
			Str(log.FieldOperation, e.op).
			Str(log.FieldTopic, string(ev.Topic)).
			Msg("dropping event emitted after operation returned")
		return
	}
	ev.Operation = e.op
	ev.Index = e.index
	ev.Mode = e.mode
	ev = e.p.dispatch(ev)
	if ev.Kind == operation.KindActionRequired {
		e.lastAction = &ev
	}
}

func (e *emitter) seal() { e.sealed.Store(true) }

// dispatch stamps pipeline metadata and delivers ev synchronously.
func (p *Pipeline) dispatch(ev operation.Event) operation.Event {
	ev.Seq = p.eventSeq.Add(1)
	ev.SessionID = p.sc.SessionID.String()
	ev.Time = p.now()

	p.lmu.RLock()
	ls := p.listeners
	p.lmu.RUnlock()

	for _, l := range ls {
		if l.l != nil {
			l.l.OnEvent(ev)
		}
	}
	return ev
}
