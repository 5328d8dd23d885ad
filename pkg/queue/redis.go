package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"StockPilot/pkg/logger"
)

// promoteDue moves retries whose time has come back onto the work list. A
// member is pushed only by the caller whose ZREM removed it, so replicas
// sharing the keys never duplicate a retry.
var promoteDue = redis.NewScript(`
local due = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, tonumber(ARGV[2]))
local moved = 0
for _, m in ipairs(due) do
	if redis.call("ZREM", KEYS[1], m) == 1 then
		redis.call("LPUSH", KEYS[2], m)
		moved = moved + 1
	end
end
return moved
`)

// RedisQueue is a list-backed job queue shared by every replica, with a
// scored retry set and a dead-letter list. Keys:
//
//	{prefix}:messages  pending work (LPUSH / BRPOP)
//	{prefix}:retry     retries scored by due unix time
//	{prefix}:dlq       messages that exhausted RetryLimit
type RedisQueue struct {
	logger    *logger.Logger
	config    *QueueConfig
	client    *redis.Client
	keyPrefix string

	mu        sync.RWMutex
	jobs      map[string]Job
	isRunning bool
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

type RedisQueueOption func(*RedisQueue)

func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keyPrefix = prefix
		}
	}
}

func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if lgr == nil {
		lgr = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    config.withDefaults(),
		client:    client,
		keyPrefix: "stockpilot:queue",
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

func (r *RedisQueue) RegisterJobs(jobs ...Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, job := range jobs {
		if _, exists := r.jobs[job.Type()]; exists {
			r.logger.Warn("job already registered", logger.String("job", job.Name()))
			continue
		}
		r.jobs[job.Type()] = job
		r.logger.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
	}
}

// Start checks Redis and launches the workers and the retry promoter.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.isRunning {
		return ErrAlreadyStart
	}

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	r.isRunning = true
	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryPromoter()

	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("prefix", r.keyPrefix))
	return nil
}

// Stop cancels in-flight handlers and waits for workers until ctx ends.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return nil
	}
	r.isRunning = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

// Enqueue pushes a message for msgType and returns its id.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	r.mu.RLock()
	running := r.isRunning
	_, known := r.jobs[msgType]
	r.mu.RUnlock()
	if !running {
		return "", ErrNotRunning
	}
	if !known {
		return "", fmt.Errorf("%w: %s", ErrUnknownType, msgType)
	}

	msg, err := newMessage(uuid.NewString(), msgType, payload)
	if err != nil {
		return "", err
	}
	if err := r.push(ctx, r.queueKey(), msg); err != nil {
		return "", err
	}
	return msg.ID, nil
}

func (r *RedisQueue) push(ctx context.Context, key string, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	log := r.logger.With(logger.Int("worker_id", id))
	for r.ctx.Err() == nil {
		msg, ok := r.next(log)
		if ok {
			r.process(log, msg)
		}
	}
}

// next blocks up to a second for a message.
func (r *RedisQueue) next(log *logger.Logger) (Message, bool) {
	res, err := r.client.BRPop(r.ctx, time.Second, r.queueKey()).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && r.ctx.Err() == nil {
			log.Error("brpop", logger.Error(err))
			select {
			case <-r.ctx.Done():
			case <-time.After(time.Second):
			}
		}
		return Message{}, false
	}
	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		log.Error("drop undecodable message", logger.Error(err))
		return Message{}, false
	}
	return msg, true
}

func (r *RedisQueue) process(log *logger.Logger, msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	log = log.With(logger.String("id", msg.ID), logger.String("type", msg.Type))
	if !ok {
		log.Error("no job registered, moving to dead letters")
		r.deadLetter(log, msg)
		return
	}

	start := time.Now()
	err := r.config.handle(r.ctx, job, msg)
	switch {
	case err == nil:
		log.Info("message processed", logger.Duration("elapsed_ms", time.Since(start)))
	case r.ctx.Err() != nil:
		// shutting down: hand the message back for another replica
		if perr := r.push(context.Background(), r.queueKey(), msg); perr != nil {
			log.Error("requeue on shutdown", logger.Error(perr))
		}
	default:
		r.failed(log, msg, err)
	}
}

func (r *RedisQueue) failed(log *logger.Logger, msg Message, err error) {
	log.Error("message processing error", logger.Int("attempt", msg.Attempts+1), logger.Error(err))
	if msg.Attempts >= r.config.RetryLimit {
		r.deadLetter(log, msg)
		return
	}
	msg.Attempts++
	at := time.Now().Add(r.config.retryDelay(msg.Attempts))
	data, merr := json.Marshal(msg)
	if merr != nil {
		log.Error("marshal retry", logger.Error(merr))
		return
	}
	if zerr := r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{Score: float64(at.Unix()), Member: data}).Err(); zerr != nil {
		log.Error("schedule retry", logger.Error(zerr))
		return
	}
	log.Info("retry scheduled", logger.Int("attempt", msg.Attempts), logger.Time("retry_at", at))
}

func (r *RedisQueue) deadLetter(log *logger.Logger, msg Message) {
	if err := r.push(context.Background(), r.deadLetterKey(), msg); err != nil {
		log.Error("dead letter", logger.Error(err))
		return
	}
	log.Warn("message dead-lettered", logger.Int("attempts", msg.Attempts+1))
}

func (r *RedisQueue) retryPromoter() {
	defer r.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			now := strconv.FormatInt(time.Now().Unix(), 10)
			err := promoteDue.Run(r.ctx, r.client, []string{r.retryKey(), r.queueKey()}, now, 100).Err()
			if err != nil && r.ctx.Err() == nil {
				r.logger.Error("promote retries", logger.Error(err))
			}
		}
	}
}

func (r *RedisQueue) queueKey() string      { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.keyPrefix + ":dlq" }

var _ Queue = (*RedisQueue)(nil)
