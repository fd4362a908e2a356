// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package monitor

import (
	"github.com/khangzxrr/SafeExamBrowser/internal/bus"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/rs/zerolog"
)

// Publisher is the non-blocking side of the bus.
type Publisher interface {
	TryPublish(topic string, msg bus.Message) error
}

// BusSink publishes envelopes on TopicEvents. It never blocks the pipeline;
// slow subscribers miss events.
type BusSink struct {
	pub      Publisher
	resolver *text.Resolver
	logger   zerolog.Logger
}

func NewBusSink(pub Publisher, resolver *text.Resolver) *BusSink {
	return &BusSink{pub: pub, resolver: resolver, logger: log.WithComponent("monitor")}
}

func (s *BusSink) OnEvent(ev operation.Event) {
	if err := s.pub.TryPublish(TopicEvents, Wrap(ev, s.resolver)); err != nil {
		s.logger.Debug().Err(err).Str(log.FieldTopic, TopicFor(ev.Kind)).Msg("bus sink dropped event")
	}
}
