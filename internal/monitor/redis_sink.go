// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/config"
	"github.com/khangzxrr/SafeExamBrowser/internal/log"
	"github.com/khangzxrr/SafeExamBrowser/internal/metrics"
	"github.com/khangzxrr/SafeExamBrowser/internal/operation"
	"github.com/khangzxrr/SafeExamBrowser/internal/resilience"
	"github.com/khangzxrr/SafeExamBrowser/internal/text"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisQueueSize = 256

// NewRedisClient connects to the monitor Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg config.MonitorSettings) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

// RedisSink forwards events to a Redis channel for a remote supervisor. The
// latest envelope of each session is also kept under "<channel>:last:<id>".
// OnEvent only enqueues; Run does the network work.
type RedisSink struct {
	client   *redis.Client
	channel  string
	resolver *text.Resolver
	queue    chan Envelope
	logger   zerolog.Logger
	ttl      time.Duration
	breaker  *resilience.CircuitBreaker
}

func NewRedisSink(client *redis.Client, channel string, resolver *text.Resolver) *RedisSink {
	return &RedisSink{
		client:   client,
		channel:  channel,
		resolver: resolver,
		queue:    make(chan Envelope, redisQueueSize),
		logger:   log.WithComponent("monitor"),
		ttl:      24 * time.Hour,
		breaker:  resilience.NewCircuitBreaker("redis_sink", 3, 30*time.Second),
	}
}

// LastKey is where the latest envelope of a session is stored.
func (s *RedisSink) LastKey(sessionID string) string {
	return s.channel + ":last:" + sessionID
}

func (s *RedisSink) OnEvent(ev operation.Event) {
	select {
	case s.queue <- Wrap(ev, s.resolver):
	default:
		metrics.IncBusDropReason(s.channel, "redis_queue_full")
	}
}

// Run publishes queued events until ctx is done, then drains what is left
// with a short deadline.
func (s *RedisSink) Run(ctx context.Context) error {
	for {
		select {
		case env := <-s.queue:
			s.publish(ctx, env)
		case <-ctx.Done():
			s.drain()
			return nil
		}
	}
}

func (s *RedisSink) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		select {
		case env := <-s.queue:
			s.publish(ctx, env)
		default:
			return
		}
	}
}

func (s *RedisSink) publish(ctx context.Context, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode event")
		return
	}

	err = s.breaker.Execute(func() error {
		opCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()

		pipe := s.client.TxPipeline()
		pipe.Publish(opCtx, s.channel, payload)
		pipe.Set(opCtx, s.LastKey(env.SessionID), payload, s.ttl)
		_, err := pipe.Exec(opCtx)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		metrics.IncBusDropReason(s.channel, "redis_circuit_open")
		return
	}
	if err != nil {
		metrics.IncBusDropReason(s.channel, "redis_error")
		s.logger.Warn().
			Err(err).
			Str(log.FieldEvent, "monitor.redis_publish_failed").
			Str(log.FieldTopic, string(env.Topic)).
			Msg("redis publish failed")
	}
}
