// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus is the in-process pub/sub used to fan session events out to
// local consumers.
package bus

import "context"

// Message is any payload carried on a topic.
type Message any

// Bus publishes messages to topic subscribers.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Subscriber receives messages of one topic until closed.
type Subscriber interface {
	C() <-chan Message
	Close() error
}
