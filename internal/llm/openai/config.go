package openai

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 45 * time.Second
)

type Config struct {
	APIKey       string // falls back to OPENAI_API_KEY
	BaseURL      string
	Model        string
	Temperature  float32
	Timeout      time.Duration
	RateLimitRPS float64       // <= 0 disables the limiter
	CacheTTL     time.Duration // <= 0 disables the response cache
	Retries      int           // extra attempts on 429 and 5xx answers
	RetryBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	return c
}

// Client completes quote and email prompts against an OpenAI-compatible
// chat/completions endpoint. Identical prompts are served from cache for CacheTTL.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()

	c := &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
	if cfg.RateLimitRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}
	if cfg.CacheTTL > 0 {
		c.cache = cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}
	return c
}

// Model is the model name requests are sent with.
func (c *Client) Model() string { return c.cfg.Model }
