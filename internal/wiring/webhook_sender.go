package wiring

import (
	"context"
	"time"

	"github.com/grandcanyonsmith/lead-magnet-ai-platform-sub001/internal/ports"
)

// WebhookSender times a ports.HttpClient call to satisfy the
// handler/finalize Send(...durationMs...) shape.
type WebhookSender struct {
	Client ports.HttpClient
}

func (w *WebhookSender) Send(ctx context.Context, method, url string, headers map[string]string, body []byte) (int, []byte, int64, error) {
	start := time.Now()
	status, respBody, err := w.Client.Do(ctx, method, url, headers, body)
	return status, respBody, time.Since(start).Milliseconds(), err
}
