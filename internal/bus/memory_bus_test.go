// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/khangzxrr/SafeExamBrowser/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func getCounterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	require.NoError(t, counter.Write(metric))
	return metric.GetCounter().GetValue()
}

func TestMemoryBusDeliversInOrder(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBus()
	sub, err := b.Subscribe(context.Background(), "session.status")
	require.NoError(t, err)
	defer func() { _ = sub.Close() }()

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Publish(context.Background(), "session.status", i))
	}
	assert.Equal(t, 0, <-sub.C())
	assert.Equal(t, 1, <-sub.C())
	assert.Equal(t, 2, <-sub.C())
}

func TestMemoryBusPublishContextTimeoutIncrementsDropMetrics(t *testing.T) {
	b := NewMemoryBusWithBuffer(2)
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	for i := 0; i < cap(sub.C()); i++ {
		require.NoError(t, b.Publish(context.Background(), "topic", "msg"))
	}

	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = b.Publish(ctx, "topic", "blocked")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Greater(t, getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("topic", "timeout")), initial)
}

func TestMemoryBusTryPublishDropsWhenFull(t *testing.T) {
	b := NewMemoryBusWithBuffer(1)
	sub, err := b.Subscribe(context.Background(), "session.action")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sub.Close() })

	initial := getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("session.action", "full"))

	require.NoError(t, b.TryPublish("session.action", "first"))
	require.ErrorIs(t, b.TryPublish("session.action", "second"), ErrFull)

	assert.Equal(t, initial+1, getCounterValue(t, metrics.BusDroppedTotal.WithLabelValues("session.action", "full")))
	assert.Equal(t, "first", <-sub.C())
}

func TestMemoryBusPublishRejectsNilContext(t *testing.T) {
	b := NewMemoryBus()
	//nolint:staticcheck // nil context is the case under test
	err := b.Publish(nil, "topic", "msg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "context is nil")
}

func TestMemoryBusSubscriptionClosesWithContext(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBus()
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := b.Subscribe(ctx, "topic")
	require.NoError(t, err)
	require.Equal(t, 1, b.Subscribers("topic"))

	cancel()
	_, open := <-sub.C()
	assert.False(t, open)
	assert.Eventually(t, func() bool { return b.Subscribers("topic") == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, sub.Close())
}

func TestMemoryBusCloseWhilePublishing(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	b := NewMemoryBusWithBuffer(0)
	sub, err := b.Subscribe(context.Background(), "topic")
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Publish(context.Background(), "topic", "never read")
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, sub.Close())
	wg.Wait()
}
