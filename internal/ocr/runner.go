package ocr

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"golang.org/x/sync/semaphore"
)

// Runner executes an external tool. Tests swap in a fake through WithRunner.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// execRunner shells out with at most slots tools running at once, so a busy
// worker queue cannot start one tesseract per job.
type execRunner struct {
	slots  *semaphore.Weighted
	logger *slog.Logger
}

func newExecRunner(maxProcs int, logger *slog.Logger) *execRunner {
	return &execRunner{slots: semaphore.NewWeighted(int64(maxProcs)), logger: logger}
}

func (r *execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	waitStart := time.Now()
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("waiting for %s slot: %w", name, err)
	}
	defer r.slots.Release(1)
	queued := time.Since(waitStart)

	var out, errb bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout, cmd.Stderr = &out, &errb

	start := time.Now()
	err := cmd.Run()
	attrs := []any{
		"cmd", name,
		"queued_ms", queued.Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		r.logger.Warn("ocr.exec.failed", append(attrs, "error", err, "stderr", truncate(errb.String(), 2<<10))...)
		return out.Bytes(), errb.Bytes(), fmt.Errorf("%s: %w", name, err)
	}
	r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", out.Len())...)
	return out.Bytes(), errb.Bytes(), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
