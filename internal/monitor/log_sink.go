// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package monitor

import (
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
)

// LogSink writes every event as a structured log line.
type LogSink struct {
	logger   zerolog.Logger
	resolver *text.Resolver
}

func NewLogSink(logger zerolog.Logger, resolver *text.Resolver) *LogSink {
	return &LogSink{logger: logger, resolver: resolver}
}

func (s *LogSink) OnEvent(ev operation.Event) {
	e := s.logger.Info()
	if ev.Kind == operation.KindActionRequired {
		e = s.logger.Warn()
	}
	e = e.
		Str(log.FieldEvent, "session."+string(ev.Kind)).
		Str(log.FieldSessionID, ev.SessionID).
		Str(log.FieldOperation, ev.Operation).
		Int(log.FieldOpIndex, ev.Index).
		Str(log.FieldMode, string(ev.Mode)).
		Str(log.FieldTopic, string(ev.Topic)).
		Uint64("seq", ev.Seq)
	if len(ev.Args) > 0 {
		e = e.Interface("args", ev.Args)
	}
	e.Msg(s.resolver.Resolve(ev.Topic))
}
