package openai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/household-extractor/internal/llm"
)

// Complete implements llm.Completer over chat/completions in JSON mode. The schema
// travels as a second system message; the caller validates the answer.
func (c *Client) Complete(ctx context.Context, p llm.Prompt) ([]byte, error) {
	key := c.cacheKey(p)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			c.logger.Debug("llm.openai.cache_hit", "prompt", p.Name)
			return v.([]byte), nil
		}
	}

	if c.cfg.APIKey == "" {
		return nil, errors.New("openai api key not configured")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	messages := []map[string]any{
		{"role": "system", "content": p.System},
		{"role": "user", "content": p.User + "\n\nReturn ONLY JSON that matches the provided schema."},
	}
	if p.Schema != nil {
		messages = append(messages, map[string]any{"role": "system", "content": "JSON Schema:\n" + mustJSON(p.Schema)})
	}
	body := map[string]any{
		"model":           c.cfg.Model,
		"temperature":     c.cfg.Temperature,
		"response_format": map[string]any{"type": "json_object"},
		"messages":        messages,
	}

	start := time.Now()
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := llm.PostJSON(ctx, c.http, llm.PostRequest{
		URL:     endpoint,
		Body:    body,
		Headers: map[string]string{"Authorization": "Bearer " + c.cfg.APIKey},
		Retries: c.cfg.Retries,
		Backoff: c.cfg.RetryBackoff,
	}, c.logger)
	if err != nil {
		return nil, err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return nil, errors.New("no choices in openai response")
	}
	content := []byte(strings.TrimSpace(cc.Choices[0].Message.Content))

	c.logger.Info("llm.openai.complete",
		"prompt", p.Name,
		"model", c.cfg.Model,
		"content_len", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if c.cache != nil {
		c.cache.SetDefault(key, content)
	}
	return content, nil
}

func (c *Client) cacheKey(p llm.Prompt) string {
	h := sha256.New()
	for _, part := range []string{c.cfg.Model, p.Name, p.System, p.User} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
