package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-notify-api/internal/application/digest"
	"github.com/go-notify-api/internal/domain"
	"github.com/go-notify-api/internal/queue"
	"github.com/hibiken/asynq"
)

// Worker consumes digest flush tasks from Redis.
type Worker struct {
	server  *asynq.Server
	digests digest.Service
}

func New(redisAddr string, digests digest.Service) *Worker {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				queue.QueueDigests: 1,
			},
		},
	)
	return &Worker{server: server, digests: digests}
}

// Start runs the worker until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskDigestFlush, w.handleDigestFlush)

	slog.Info("starting digest worker", "queue", queue.QueueDigests)
	if err := w.server.Start(mux); err != nil {
		return err
	}

	<-ctx.Done()
	w.server.Stop()
	w.server.Shutdown()
	slog.Info("digest worker stopped")
	return nil
}

func (w *Worker) handleDigestFlush(ctx context.Context, t *asynq.Task) error {
	var payload queue.DigestFlushPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal digest flush payload: %v: %w", err, asynq.SkipRetry)
	}
	freq := domain.DigestFrequency(payload.Frequency)
	if !freq.Valid() {
		return fmt.Errorf("unknown digest frequency %q: %w", payload.Frequency, asynq.SkipRetry)
	}

	flushed, err := w.digests.Flush(ctx, freq, time.Now().UTC())
	if err != nil {
		slog.Error("digest flush failed", "frequency", freq, "err", err)
		return err
	}
	slog.Info("digest flush complete", "frequency", freq, "batches", flushed)
	return nil
}
