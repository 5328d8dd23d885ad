package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotRunning   = errors.New("queue not running")
	ErrUnknownType  = errors.New("no job registered for type")
	ErrQueueFull    = errors.New("queue full")
	ErrAlreadyStart = errors.New("queue already running")
)

// Publisher enqueues messages and returns the assigned message id.
type Publisher interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error)
}

// Queue is a publisher that also runs registered jobs.
type Queue interface {
	Publisher
	RegisterJobs(jobs ...Job)
	Start() error
	Stop(ctx context.Context) error
}

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers    int           // number of workers
	QueueSize  int           // buffer size of the in-process queue
	RetryLimit int           // retries after the first attempt
	RetryDelay time.Duration // delay before the first retry, doubled per attempt
	JobTimeout time.Duration // per-attempt deadline, 0 for none
}

func (c *QueueConfig) withDefaults() *QueueConfig {
	out := QueueConfig{}
	if c != nil {
		out = *c
	}
	if out.Workers <= 0 {
		out.Workers = 1
	}
	if out.QueueSize <= 0 {
		out.QueueSize = 64
	}
	if out.RetryDelay <= 0 {
		out.RetryDelay = 10 * time.Second
	}
	return &out
}

// retryDelay doubles RetryDelay per attempt, capped at eight times the base.
func (c *QueueConfig) retryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 4 {
		attempt = 4
	}
	return c.RetryDelay << uint(attempt-1)
}

// handle runs one attempt of msg under the configured deadline.
func (c *QueueConfig) handle(parent context.Context, job Job, msg Message) error {
	ctx := parent
	if c.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, c.JobTimeout)
		defer cancel()
	}
	return job.Handle(ctx, msg.Payload)
}

// Message represents a message in the queue
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

func newMessage(id, msgType string, payload interface{}) (Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("marshal payload: %w", err)
	}
	return Message{ID: id, Type: msgType, Payload: data, Timestamp: time.Now().UTC()}, nil
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}
