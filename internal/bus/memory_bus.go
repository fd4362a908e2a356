// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

const dropLogEvery = 100

var dropCount atomic.Uint64

// ErrFull is returned by TryPublish when a subscriber cannot take the message.
var ErrFull = errors.New("subscriber buffer full")

// MemoryBus is an in-memory pub/sub. It is not durable; delivery is
// in-process and ordered per subscriber.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	buffer int
}

func NewMemoryBus() *MemoryBus {
	return NewMemoryBusWithBuffer(DefaultBuffer)
}

// NewMemoryBusWithBuffer sets the per-subscriber channel capacity.
func NewMemoryBusWithBuffer(buffer int) *MemoryBus {
	if buffer < 0 {
		buffer = 0
	}
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: buffer}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

func (b *MemoryBus) snapshot(topic string) []*memSub {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*memSub(nil), b.subs[topic]...)
}

// Publish blocks until every subscriber took msg or ctx is done.
func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	for _, s := range b.snapshot(topic) {
		if err := s.deliver(ctx, msg); err != nil {
			reason := publishDropReason(err)
			b.dropped(topic, reason)
			return fmt.Errorf("publish topic %q: %w", topic, err)
		}
	}
	metrics.IncBusPublished(topic)
	return nil
}

// TryPublish never blocks: subscribers with a full buffer miss msg. The
// first drop is reported as ErrFull after all subscribers were tried.
func (b *MemoryBus) TryPublish(topic string, msg Message) error {
	var dropped bool
	for _, s := range b.snapshot(topic) {
		if !s.offer(msg) {
			dropped = true
			b.dropped(topic, "full")
		}
	}
	metrics.IncBusPublished(topic)
	if dropped {
		return fmt.Errorf("publish topic %q: %w", topic, ErrFull)
	}
	return nil
}

func (b *MemoryBus) dropped(topic, reason string) {
	metrics.IncBusDropReason(topic, reason)
	count := dropCount.Add(1)
	if count%dropLogEvery == 1 {
		log.L().Warn().
			Str(log.FieldTopic, topic).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("memory bus dropped a message")
	}
}

// Subscribe registers a subscriber. It is closed when ctx is done or Close
// is called, whichever comes first.
func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	if ctx == nil {
		return nil, fmt.Errorf("subscribe context is nil")
	}
	s := &memSub{
		b:     b,
		topic: topic,
		ch:    make(chan Message, b.buffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], s)
	b.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				_ = s.Close()
			case <-s.done:
			}
		}()
	}
	return s, nil
}

// Subscribers returns the number of live subscribers on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message

	// mu orders sends against close(ch); done unblocks pending senders.
	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

func (s *memSub) C() <-chan Message {
	return s.ch
}

func (s *memSub) deliver(ctx context.Context, msg Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- msg:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memSub) offer(msg Message) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- msg:
		return true
	default:
		return false
	}
}

func (s *memSub) Close() error {
	s.once.Do(func() {
		close(s.done)

		s.b.mu.Lock()
		lst := s.b.subs[s.topic]
		out := make([]*memSub, 0, len(lst))
		for _, c := range lst {
			if c != s {
				out = append(out, c)
			}
		}
		if len(out) == 0 {
			delete(s.b.subs, s.topic)
		} else {
			s.b.subs[s.topic] = out
		}
		s.b.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
	return nil
}

var _ Bus = (*MemoryBus)(nil)
