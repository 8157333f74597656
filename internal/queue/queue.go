package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-notify-api/internal/domain"
	"github.com/hibiken/asynq"
)

const (
	// TaskDigestFlush delivers every closed digest batch of one frequency.
	TaskDigestFlush = "digest:flush"

	// QueueDigests is the asynq queue digest flush tasks run on.
	QueueDigests = "digests"
)

// DigestFlushPayload names the frequency whose closed batches should flush.
type DigestFlushPayload struct {
	Frequency string `json:"frequency"`
}

// Client enqueues background tasks onto Redis.
type Client struct {
	client *asynq.Client
}

func NewClient(redisAddr string) *Client {
	return &Client{client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})}
}

// EnqueueDigestFlush schedules an immediate flush of the given frequency.
// Flushing is idempotent at the batch level, so generous retries are safe.
func (c *Client) EnqueueDigestFlush(freq domain.DigestFrequency) (string, error) {
	payload, err := json.Marshal(DigestFlushPayload{Frequency: string(freq)})
	if err != nil {
		return "", fmt.Errorf("marshal digest flush payload: %w", err)
	}
	info, err := c.client.Enqueue(asynq.NewTask(TaskDigestFlush, payload),
		asynq.Queue(QueueDigests),
		asynq.MaxRetry(5),
		asynq.Timeout(5*time.Minute),
	)
	if err != nil {
		return "", fmt.Errorf("enqueue digest flush: %w", err)
	}
	return info.ID, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// NewScheduler returns an asynq scheduler with the periodic digest flush
// entries registered: daily batches flush shortly after each UTC midnight,
// weekly batches shortly after each ISO week rollover.
func NewScheduler(redisAddr string) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{Addr: redisAddr},
		&asynq.SchedulerOpts{Location: time.UTC},
	)

	daily, err := json.Marshal(DigestFlushPayload{Frequency: string(domain.DigestDaily)})
	if err != nil {
		return nil, err
	}
	weekly, err := json.Marshal(DigestFlushPayload{Frequency: string(domain.DigestWeekly)})
	if err != nil {
		return nil, err
	}

	if _, err := scheduler.Register("5 0 * * *",
		asynq.NewTask(TaskDigestFlush, daily), asynq.Queue(QueueDigests)); err != nil {
		return nil, fmt.Errorf("register daily digest entry: %w", err)
	}
	if _, err := scheduler.Register("5 0 * * 1",
		asynq.NewTask(TaskDigestFlush, weekly), asynq.Queue(QueueDigests)); err != nil {
		return nil, fmt.Errorf("register weekly digest entry: %w", err)
	}
	return scheduler, nil
}
