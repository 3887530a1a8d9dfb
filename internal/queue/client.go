package queue

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Client enqueues background tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr, redisPassword string, redisDB int) *Client {
	return &Client{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Password: redisPassword,
			DB:       redisDB,
		}),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueSurveySend queues a delivery batch. A positive delay defers the
// first processing attempt; scheduling beyond the queue's deferral window
// is handled by the worker re-enqueueing itself.
func (c *Client) EnqueueSurveySend(payload SurveySendPayload, delay time.Duration) error {
	task, err := NewSurveySendTask(payload)
	if err != nil {
		return err
	}
	opts := []asynq.Option{
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Timeout(5 * time.Minute),
	}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}
	if _, err := c.client.Enqueue(task, opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeSurveySend, err)
	}
	return nil
}
