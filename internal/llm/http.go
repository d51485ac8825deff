package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const maxErrorBody = 300

// HTTPError is a non-2xx answer from a provider.
type HTTPError struct {
	Status     int
	Body       string
	RetryAfter time.Duration // from the Retry-After header, 0 when absent
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "…"
	}
	return fmt.Sprintf("provider returned %d: %s", e.Status, body)
}

// Temporary reports whether the same request may succeed later.
func (e *HTTPError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// PostRequest is one JSON call to a provider endpoint.
type PostRequest struct {
	URL     string
	Body    any
	Headers map[string]string
	// Retries is how many extra attempts a 429 or 5xx answer gets.
	Retries int
	Backoff time.Duration // first wait between attempts, doubled each time; default 500ms
}

// PostJSON sends req and returns the raw 2xx response body. Temporary provider
// errors are retried; the last HTTPError is returned when retries run out.
func PostJSON(ctx context.Context, client *http.Client, req PostRequest, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	backoff := req.Backoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	reqID := uuid.New().String()
	for attempt := 0; ; attempt++ {
		raw, err := postOnce(ctx, client, req, payload, reqID, attempt, logger)
		if err == nil {
			return raw, nil
		}
		var he *HTTPError
		if !errors.As(err, &he) || !he.Temporary() || attempt >= req.Retries {
			return raw, err
		}

		wait := backoff << attempt
		if he.RetryAfter > 0 {
			wait = he.RetryAfter
		}
		logger.Warn("llm.http.retry", "req_id", reqID, "status", he.Status, "attempt", attempt+1, "wait_ms", wait.Milliseconds())
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return raw, ctx.Err()
		case <-t.C:
		}
	}
}

func postOnce(ctx context.Context, client *http.Client, req PostRequest, payload []byte, reqID string, attempt int, logger *slog.Logger) ([]byte, error) {
	start := time.Now()
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}

	resp, err := client.Do(hr)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "attempt", attempt, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	logger.Info("llm.http.response",
		"req_id", reqID,
		"attempt", attempt,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, &HTTPError{
			Status:     resp.StatusCode,
			Body:       string(raw),
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return raw, nil
}

// retryAfter reads the delay-seconds form of Retry-After. HTTP dates are ignored.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
