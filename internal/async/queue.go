package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/household-extractor/constants"
)

// Kind says which parser a file goes to. KindAuto lets the handler decide from the extension.
type Kind string

const (
	KindAuto      Kind = ""
	KindStatement Kind = "statement"
	KindSurvey    Kind = "survey"
	KindReceipt   Kind = "receipt"
	KindQuote     Kind = "quote"
	KindEmail     Kind = "email"
)

// ParseKind accepts the Kind names plus "" and "auto".
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindStatement, KindSurvey, KindReceipt, KindQuote, KindEmail, KindAuto:
		return k, true
	case "auto":
		return KindAuto, true
	}
	return KindAuto, false
}

// Job is one file waiting to be parsed.
type Job struct {
	ID          uuid.UUID
	Path        string
	Kind        Kind
	Mode        constants.Mode
	SubmittedAt time.Time
}

// Handler processes one job. Errors are logged by the queue and do not stop it.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }

var ErrClosed = errors.New("queue is shutting down")

// Queue is a fixed pool of workers fed through a bounded channel.
type Queue struct {
	handler Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*Queue)

func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewQueue starts the workers immediately.
func NewQueue(h Handler, logger *slog.Logger, opts ...Option) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		handler: h,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.work(i + 1)
		}
	})
}

func (q *Queue) work(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("queue.worker.start", "worker_id", workerID)
	for job := range q.ch {
		start := time.Now()
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		err := q.run(ctx, job)
		cancel()
		if err != nil {
			q.logger.Error("queue.job.failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", err)
			continue
		}
		q.logger.Info("queue.job.ok", "worker_id", workerID, "job_id", job.ID, "path", job.Path,
			"elapsed_ms", time.Since(start).Milliseconds())
	}
	q.logger.Debug("queue.worker.stop", "worker_id", workerID)
}

// run shields the pool from a panicking handler.
func (q *Queue) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue.job.panic", "job_id", job.ID, "panic", r)
			err = errors.New("handler panicked")
		}
	}()
	return q.handler.Handle(ctx, job)
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.rejected", "path", job.Path)
		return ErrClosed
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queue.enqueue.ok", "job_id", job.ID, "path", job.Path, "kind", job.Kind)
		return nil
	default:
	}
	q.logger.Warn("queue.full", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs to finish or ctx to expire.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
		return ctx.Err()
	case <-done:
		q.logger.Info("queue.shutdown.drained")
		return nil
	}
}
