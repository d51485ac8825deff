package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
)

// Extract runs p through c and decodes the answer into T. Every failure comes back
// as Result.Failure; nothing panics and no error escapes.
func Extract[T any](ctx context.Context, c Completer, p Prompt, norm Normalizers, logger *slog.Logger) Result[T] {
	if logger == nil {
		logger = slog.Default()
	}
	rid := uuid.New().String()
	start := time.Now()
	logger.Info("llm.extract.start", "req_id", rid, "prompt", p.Name, "text_len", len(p.User))

	if c == nil {
		return Fail[T](FailureTransport, errors.New("no completer configured"))
	}
	content, err := c.Complete(ctx, p)
	if err != nil {
		kind := FailureTransport
		if isTimeout(ctx, err) {
			kind = FailureTimeout
		}
		logger.Warn("llm.extract.call_failed",
			"req_id", rid, "kind", kind, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return Fail[T](kind, err)
	}

	res := Decode[T](content, p.Schema, norm, logger)
	if !res.OK() {
		logger.Warn("llm.extract.decode_failed",
			"req_id", rid, "kind", res.Failure.Kind, "error", res.Failure.Err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return res
	}
	logger.Info("llm.extract.ok", "req_id", rid, "prompt", p.Name, "elapsed_ms", time.Since(start).Milliseconds())
	return res
}

// Decode turns raw model output into T: JSON span extraction, strict schema
// validation with one sanitized retry, then a typed decode.
func Decode[T any](content []byte, schema map[string]any, norm Normalizers, logger *slog.Logger) Result[T] {
	if logger == nil {
		logger = slog.Default()
	}
	obj, err := ExtractJSONObject(content)
	if err != nil {
		return Fail[T](FailureNoJSON, err)
	}
	if err := ValidateJSONAgainstSchema(schema, obj); err != nil {
		cleaned, dropped, sErr := Sanitize(schema, obj, norm)
		if sErr != nil {
			return Fail[T](FailureSchema, fmt.Errorf("%w (sanitize: %v)", err, sErr))
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return Fail[T](FailureSchema, vErr)
		}
		logger.Warn("llm.decode.lenient_sanitize_applied", "dropped", dropped)
		obj = cleaned
	}
	var out T
	if err := json.Unmarshal(obj, &out); err != nil {
		return Fail[T](FailureDecode, err)
	}
	return Result[T]{Value: out}
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
