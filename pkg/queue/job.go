package queue

import "context"

// Job handles every message of one type. Handle may run again for the same
// message after a failure, so it should be safe to repeat.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload []byte) error
}
