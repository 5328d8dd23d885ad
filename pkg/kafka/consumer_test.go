package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyHandler struct {
	failures int
	calls    int
	got      []byte
}

func (h *flakyHandler) Topic() string { return "bars.partition_written" }

func (h *flakyHandler) Handle(_ context.Context, b []byte) error {
	h.calls++
	h.got = b
	if h.calls <= h.failures {
		return errors.New("warehouse unavailable")
	}
	return nil
}

func newTestConsumer(t *testing.T, retries int) *Consumer {
	t.Helper()
	c, err := NewConsumer(
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(retries, time.Millisecond, 2*time.Millisecond),
	)
	require.NoError(t, err)
	return c
}

func TestNewConsumerRequiresBrokers(t *testing.T) {
	_, err := NewConsumer()
	assert.Error(t, err)
}

func TestProcessRetriesUntilSuccess(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &flakyHandler{failures: 2}
	c.RegisterHandler(h)

	var errs int
	c.WithConsumerHook(HookFuncs{Err: func(context.Context, string, kafka.Message, []byte, error) { errs++ }})

	attempts, err := c.process(context.Background(), &message{topic: h.Topic(), data: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, errs)
	assert.Equal(t, []byte(`{}`), h.got)
}

func TestProcessGivesUpAfterRetryMax(t *testing.T) {
	c := newTestConsumer(t, 1)
	h := &flakyHandler{failures: 10}
	c.RegisterHandler(h)

	attempts, err := c.process(context.Background(), &message{topic: h.Topic()})
	require.Error(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, h.calls)
}

func TestProcessBeforeHookErrorSkipsHandler(t *testing.T) {
	c := newTestConsumer(t, 3)
	h := &flakyHandler{}
	c.RegisterHandler(h)
	decodeErr := &HookError{Code: "ERR_DECODE", Err: errors.New("bad payload")}
	c.WithConsumerHook(NewHookChain(HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
			return ctx, km, d, decodeErr
		},
	}))

	_, err := c.process(context.Background(), &message{topic: h.Topic()})
	assert.ErrorIs(t, err, decodeErr)
	assert.Zero(t, h.calls)
}

func TestHookChainRecoversPanics(t *testing.T) {
	chain := NewHookChain(nil, HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
			panic("boom")
		},
		After: func(context.Context, string, kafka.Message, []byte, error) { panic("boom") },
	})

	_, _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	var he *HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "ERR_PANIC", he.Code)
	assert.NotPanics(t, func() { chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil, nil) })
}

func TestTraceHookReadsHeader(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("run-42")}}}
	ctx, _, _, err := TraceHook().BeforeHandle(context.Background(), "t", km, nil)
	require.NoError(t, err)
	assert.Equal(t, "run-42", TraceIDFrom(ctx))
	_, ok := ctx.Value(CtxStartTime).(time.Time)
	assert.True(t, ok)
}

func TestPartitionLockIsStable(t *testing.T) {
	c := newTestConsumer(t, 0)
	a := c.partitionLock("t", 1)
	assert.Same(t, a, c.partitionLock("t", 1))
	assert.NotSame(t, a, c.partitionLock("t", 2))
}

func TestConsumerMetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := newConsumerMetrics(reg)
	second := newConsumerMetrics(reg)

	first.deadLettered("bars")
	second.deadLettered("bars")
	assert.Equal(t, 2.0, testutil.ToFloat64(first.dlq.WithLabelValues("bars")))
}
