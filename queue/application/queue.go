package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AzielCF/az-inbox/core/reporting"
	"github.com/AzielCF/az-inbox/pkg/monitor"
	"github.com/AzielCF/az-inbox/pkg/retry"
	"github.com/AzielCF/az-inbox/queue/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Handler executes one job. A returned error counts as a failed attempt.
type Handler func(ctx context.Context, payload json.RawMessage) error

// Locker serialises batches across processes. Release must be safe to call
// with a context that is already done.
type Locker interface {
	TryLock(ctx context.Context) (release func(context.Context), acquired bool, err error)
}

type Config struct {
	BatchSize          int
	DefaultMaxAttempts int
	// Backoff computes next_eligible_at after a failed attempt.
	Backoff retry.Policy
	// StaleAfter bounds how long a processing job may go without a
	// heartbeat before a later poll treats its run as lost. Zero disables
	// the sweep.
	StaleAfter time.Duration
	// Heartbeat is how often a running job refreshes its lease. Zero means
	// a third of StaleAfter.
	Heartbeat time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:          10,
		DefaultMaxAttempts: 3,
		Backoff: retry.Policy{
			InitialInterval: 30 * time.Second,
			MaxInterval:     30 * time.Minute,
			Multiplier:      2,
		},
		StaleAfter: 15 * time.Minute,
	}
}

type Option func(*Queue)

func WithLocker(l Locker) Option {
	return func(q *Queue) { q.locker = l }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// Queue is a persisted, polled job queue. It never schedules itself:
// ProcessQueue runs one batch per call and something outside has to call it.
type Queue struct {
	repo   domain.Repository
	cfg    Config
	locker Locker
	now    func() time.Time

	mu       sync.RWMutex
	handlers map[domain.JobType]Handler
}

func New(repo domain.Repository, cfg Config, opts ...Option) *Queue {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = def.DefaultMaxAttempts
	}
	if cfg.Backoff.InitialInterval <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.Heartbeat <= 0 && cfg.StaleAfter > 0 {
		cfg.Heartbeat = cfg.StaleAfter / 3
	}
	q := &Queue{
		repo:     repo,
		cfg:      cfg,
		now:      time.Now,
		handlers: make(map[domain.JobType]Handler),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Register binds a handler to a job type. Jobs can only be added for
// registered types.
func (q *Queue) Register(t domain.JobType, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[t] = h
}

func (q *Queue) handler(t domain.JobType) (Handler, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[t]
	return h, ok
}

type JobOption func(*domain.Job)

func WithMaxAttempts(n int) JobOption {
	return func(j *domain.Job) { j.MaxAttempts = n }
}

// NotBefore keeps the job out of batches until t.
func NotBefore(t time.Time) JobOption {
	return func(j *domain.Job) { j.NextEligibleAt = t.UTC() }
}

// AddJob persists a pending job. payload is JSON-encoded unless it already
// is raw JSON.
func (q *Queue) AddJob(ctx context.Context, t domain.JobType, payload any, opts ...JobOption) (*domain.Job, error) {
	if _, ok := q.handler(t); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownJobType, t)
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", t, err)
	}

	now := q.now().UTC()
	job := &domain.Job{
		Type:           t,
		Payload:        raw,
		Status:         domain.JobPending,
		MaxAttempts:    q.cfg.DefaultMaxAttempts,
		NextEligibleAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(job)
	}
	if job.MaxAttempts < 1 {
		return nil, domain.ErrInvalidAttempts
	}

	if err := q.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"job_id":   job.ID,
		"type":     t,
		"eligible": job.NextEligibleAt.Format(time.RFC3339),
	}).Debug("[QUEUE] Job added")
	return job, nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	default:
		return json.Marshal(p)
	}
}

// ProcessQueue runs one batch: up to BatchSize eligible jobs, oldest first,
// strictly one after another. When a Locker is configured and another node
// holds it, the batch is skipped.
func (q *Queue) ProcessQueue(ctx context.Context) (domain.BatchResult, error) {
	var result domain.BatchResult

	if q.locker != nil {
		release, ok, err := q.locker.TryLock(ctx)
		if err != nil {
			return result, fmt.Errorf("acquire queue lock: %w", err)
		}
		if !ok {
			logrus.Debug("[QUEUE] Another poller holds the lock, skipping batch")
			result.Skipped = true
			return result, nil
		}
		defer release(context.WithoutCancel(ctx))
	}

	now := q.now().UTC()
	if q.cfg.StaleAfter > 0 {
		stale, err := q.repo.ReleaseStale(ctx, now.Add(-q.cfg.StaleAfter), now)
		if err != nil {
			return result, fmt.Errorf("release stale jobs: %w", err)
		}
		if stale.Requeued > 0 || stale.Failed > 0 {
			logrus.Warnf("[QUEUE] Recovered stale jobs: requeued=%d failed=%d", stale.Requeued, stale.Failed)
		}
	}

	jobs, err := q.repo.ListEligible(ctx, now, q.cfg.BatchSize)
	if err != nil {
		return result, fmt.Errorf("list eligible jobs: %w", err)
	}

	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome, err := q.run(ctx, &jobs[i])
		if err != nil {
			return result, err
		}
		switch outcome {
		case outcomeDone:
			result.Picked++
			result.Done++
		case outcomeRetried:
			result.Picked++
			result.Retried++
		case outcomeFailed:
			result.Picked++
			result.Failed++
		}
	}

	if result.Picked > 0 {
		logrus.Infof("[QUEUE] Batch finished: picked=%d done=%d retried=%d failed=%d",
			result.Picked, result.Done, result.Retried, result.Failed)
	}
	return result, nil
}

type outcome int

const (
	outcomeLost outcome = iota
	outcomeDone
	outcomeRetried
	outcomeFailed
)

// run claims and executes a single job. Only store errors are returned;
// handler failures are recorded on the job.
func (q *Queue) run(ctx context.Context, job *domain.Job) (outcome, error) {
	lease := uuid.NewString()
	claimed, err := q.repo.Claim(ctx, job.ID, lease, q.now().UTC())
	if err != nil {
		return outcomeLost, fmt.Errorf("claim job %s: %w", job.ID, err)
	}
	if !claimed {
		return outcomeLost, nil
	}

	log := logrus.WithFields(logrus.Fields{"job_id": job.ID, "type": job.Type, "attempt": job.Attempts + 1})

	h, ok := q.handler(job.Type)
	if !ok {
		msg := fmt.Sprintf("no handler registered for %s", job.Type)
		if err := q.repo.MarkFailed(ctx, job.ID, lease, job.Attempts, msg, q.now().UTC()); err != nil {
			return q.settleError(log, job, err)
		}
		reporting.CaptureError(errors.New(msg), "queue_job_failed", map[string]any{"job_id": job.ID, "type": string(job.Type)})
		return outcomeFailed, nil
	}

	startedAt := q.now()
	stop := q.heartbeat(ctx, job.ID, lease, log)
	herr := q.invoke(ctx, h, job)
	stop()
	finishedAt := q.now().UTC()

	ev := monitor.Event{
		Stage:      monitor.StageJob,
		Kind:       string(job.Type),
		Status:     monitor.StatusOK,
		Metadata:   map[string]string{"job_id": job.ID},
		DurationMs: finishedAt.Sub(startedAt).Milliseconds(),
	}
	if herr != nil {
		ev.Status, ev.Error = monitor.StatusError, herr.Error()
	}
	monitor.Record(ev)
	if herr == nil {
		if err := q.repo.MarkDone(ctx, job.ID, lease, finishedAt); err != nil {
			return q.settleError(log, job, err)
		}
		log.Debug("[QUEUE] Job done")
		return outcomeDone, nil
	}

	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		if err := q.repo.MarkFailed(ctx, job.ID, lease, attempts, herr.Error(), finishedAt); err != nil {
			return q.settleError(log, job, err)
		}
		reporting.CaptureError(herr, "queue_job_failed", map[string]any{
			"job_id":   job.ID,
			"type":     string(job.Type),
			"attempts": attempts,
		})
		return outcomeFailed, nil
	}

	next := finishedAt.Add(q.cfg.Backoff.Delay(attempts))
	if err := q.repo.MarkRetry(ctx, job.ID, lease, attempts, herr.Error(), next, finishedAt); err != nil {
		return q.settleError(log, job, err)
	}
	log.WithError(herr).Warnf("[QUEUE] Job failed, retrying after %s", next.Format(time.RFC3339))
	return outcomeRetried, nil
}

// settleError drops the result of a run whose lease was taken over; the
// batch goes on. Any other error is a store failure.
func (q *Queue) settleError(log *logrus.Entry, job *domain.Job, err error) (outcome, error) {
	if errors.Is(err, domain.ErrLeaseLost) {
		log.Warn("[QUEUE] Lease lost while running, result discarded")
		return outcomeLost, nil
	}
	return outcomeLost, fmt.Errorf("settle job %s: %w", job.ID, err)
}

// heartbeat keeps the lease fresh until the returned stop is called. stop
// waits for the last beat so no write lands after the job is settled.
func (q *Queue) heartbeat(ctx context.Context, id, lease string, log *logrus.Entry) (stop func()) {
	if q.cfg.Heartbeat <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(q.cfg.Heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				held, err := q.repo.Heartbeat(ctx, id, lease, q.now().UTC())
				if err != nil {
					log.WithError(err).Warn("[QUEUE] Heartbeat failed")
					continue
				}
				if !held {
					log.Warn("[QUEUE] Lease no longer held, stopping heartbeat")
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

// invoke turns a handler panic into an ordinary failed attempt.
func (q *Queue) invoke(ctx context.Context, h Handler, job *domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job.Payload)
}

func (q *Queue) Stats(ctx context.Context) (domain.Stats, error) {
	return q.repo.CountByStatus(ctx)
}

func (q *Queue) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return q.repo.Get(ctx, id)
}
