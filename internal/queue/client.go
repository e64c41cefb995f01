package queue

import "context"

// Client enqueues scheduled-execution requests for the worker. The
// scheduler is the only producer; cmd/worker is the only consumer.
type Client interface {
	Send(ctx context.Context, msg Message) error
}
