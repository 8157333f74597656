package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-notify-api/internal/domain"
	"github.com/go-notify-api/internal/queue"
)

// DigestHandler exposes the operational digest flush trigger. The scheduler
// covers the periodic flushes; this endpoint lets operators and producers
// force one without waiting for the next cron tick.
type DigestHandler struct {
	queue *queue.Client
}

func NewDigestHandler(q *queue.Client) *DigestHandler {
	return &DigestHandler{queue: q}
}

type flushRequest struct {
	Frequency string `json:"frequency"`
}

// FlushData wraps the enqueue response.
type FlushData struct {
	TaskID string `json:"task_id"`
}

// Flush enqueues a digest flush for one frequency. The flush itself runs on
// the worker; batch-level claims make a duplicate trigger harmless.
func (h *DigestHandler) Flush(w http.ResponseWriter, r *http.Request) {
	var req flushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	freq := domain.DigestFrequency(req.Frequency)
	if !freq.Valid() {
		writeError(w, http.StatusBadRequest, "frequency must be daily or weekly")
		return
	}

	taskID, err := h.queue.EnqueueDigestFlush(freq)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeData(w, http.StatusAccepted, FlushData{TaskID: taskID})
}
