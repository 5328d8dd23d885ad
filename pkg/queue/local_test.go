package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockPilot/pkg/logger"
)

type runRequest struct {
	Symbols []string `json:"symbols"`
}

type recordingJob struct {
	failures int32
	calls    int32
	got      chan *runRequest
}

func (j *recordingJob) Name() string { return "record" }
func (j *recordingJob) Type() string { return "ingest" }

func (j *recordingJob) Handle(_ context.Context, payload []byte) error {
	n := atomic.AddInt32(&j.calls, 1)
	if n <= atomic.LoadInt32(&j.failures) {
		return errors.New("transient")
	}
	req, err := ParsePayload[runRequest](payload)
	if err != nil {
		return err
	}
	j.got <- req
	return nil
}

func TestLocalQueueDeliversAndRetries(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), &QueueConfig{Workers: 1, RetryLimit: 2, RetryDelay: time.Millisecond})
	job := &recordingJob{failures: 2, got: make(chan *runRequest, 1)}
	q.RegisterJobs(job)
	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })

	id, err := q.Enqueue(context.Background(), "ingest", runRequest{Symbols: []string{"AAPL"}})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	select {
	case req := <-job.got:
		assert.Equal(t, []string{"AAPL"}, req.Symbols)
	case <-time.After(2 * time.Second):
		t.Fatal("job not delivered")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&job.calls))
}

func TestLocalQueueRejects(t *testing.T) {
	q := NewLocalQueue(logger.Nop(), nil)
	_, err := q.Enqueue(context.Background(), "ingest", nil)
	assert.ErrorIs(t, err, ErrNotRunning)

	require.NoError(t, q.Start())
	t.Cleanup(func() { _ = q.Stop(context.Background()) })
	_, err = q.Enqueue(context.Background(), "unknown", nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRetryDelayDoublesAndCaps(t *testing.T) {
	c := (&QueueConfig{RetryDelay: time.Second}).withDefaults()
	assert.Equal(t, time.Second, c.retryDelay(0))
	assert.Equal(t, time.Second, c.retryDelay(1))
	assert.Equal(t, 2*time.Second, c.retryDelay(2))
	assert.Equal(t, 8*time.Second, c.retryDelay(4))
	assert.Equal(t, 8*time.Second, c.retryDelay(9))
}

type deadlineJob struct{ deadline chan bool }

func (j *deadlineJob) Name() string { return "deadline" }
func (j *deadlineJob) Type() string { return "deadline" }
func (j *deadlineJob) Handle(ctx context.Context, _ []byte) error {
	_, ok := ctx.Deadline()
	j.deadline <- ok
	return nil
}

func TestHandleAppliesJobTimeout(t *testing.T) {
	job := &deadlineJob{deadline: make(chan bool, 2)}

	withTimeout := (&QueueConfig{JobTimeout: time.Minute}).withDefaults()
	require.NoError(t, withTimeout.handle(context.Background(), job, Message{}))
	assert.True(t, <-job.deadline)

	without := (&QueueConfig{}).withDefaults()
	require.NoError(t, without.handle(context.Background(), job, Message{}))
	assert.False(t, <-job.deadline)
}
