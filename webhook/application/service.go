package application

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AzielCF/az-inbox/core/reporting"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/monitor"
	queueApp "github.com/AzielCF/az-inbox/queue/application"
	queueDomain "github.com/AzielCF/az-inbox/queue/domain"
	"github.com/AzielCF/az-inbox/webhook/domain"
	"github.com/sirupsen/logrus"
)

type JobEnqueuer interface {
	AddJob(ctx context.Context, t queueDomain.JobType, payload any, opts ...queueApp.JobOption) (*queueDomain.Job, error)
}

type Config struct {
	VerifySecret string
	// Async hands validated payloads to the queue instead of processing them
	// on the request.
	Async bool
}

type Result struct {
	Outcome Outcome `json:"outcome,omitempty"`
	JobID   string  `json:"job_id,omitempty"`
}

type Service struct {
	processor *Processor
	logs      domain.LogRepository
	jobs      JobEnqueuer
	cfg       Config
}

func NewService(processor *Processor, logs domain.LogRepository, jobs JobEnqueuer, cfg Config) *Service {
	return &Service{processor: processor, logs: logs, jobs: jobs, cfg: cfg}
}

// Ingest handles one webhook delivery. Validation failures come back as
// pkgError.ValidationError and are logged as rejected; anything else that
// fails is logged as failed.
func (s *Service) Ingest(ctx context.Context, raw []byte) (Result, error) {
	ev, payload, err := Parse(ctx, raw)
	if err != nil {
		s.record(ctx, domain.LogRejected, raw, payload, err)
		return Result{}, err
	}

	if s.cfg.Async && s.jobs != nil {
		if _, unknown := ev.(domain.UnknownEvent); !unknown {
			job, err := s.jobs.AddJob(ctx, queueDomain.JobProcessWebhook, json.RawMessage(raw))
			if err != nil {
				s.record(ctx, domain.LogFailed, raw, payload, err)
				return Result{}, fmt.Errorf("enqueue webhook: %w", err)
			}
			return Result{JobID: job.ID}, nil
		}
	}

	outcome, err := s.processor.Process(ctx, ev)
	observe(payload, outcome, err)
	if err != nil {
		s.fail(ctx, raw, payload, err)
		return Result{}, err
	}
	return Result{Outcome: outcome}, nil
}

func observe(payload *domain.Payload, outcome Outcome, err error) {
	ev := monitor.Event{
		InstanceID: payload.InstanceID,
		Stage:      monitor.StageInbound,
		Kind:       payload.Event,
		Status:     monitor.StatusOK,
		Metadata:   map[string]string{"outcome": string(outcome)},
	}
	switch {
	case err != nil:
		ev.Status, ev.Error = monitor.StatusError, err.Error()
	case outcome != OutcomeProcessed:
		ev.Status = monitor.StatusSkipped
	}
	monitor.Record(ev)
}

// HandleProcessWebhook is the process_webhook job handler.
func (s *Service) HandleProcessWebhook(ctx context.Context, raw json.RawMessage) error {
	ev, payload, err := Parse(ctx, raw)
	if err != nil {
		s.record(ctx, domain.LogRejected, raw, payload, err)
		return err
	}
	if _, err := s.processor.Process(ctx, ev); err != nil {
		s.fail(ctx, raw, payload, err)
		return err
	}
	return nil
}

// Verify implements the GET handshake. An unset secret never verifies.
func (s *Service) Verify(token string) bool {
	if s.cfg.VerifySecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.VerifySecret)) == 1
}

func (s *Service) RecentLogs(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	return s.logs.Recent(ctx, limit)
}

func (s *Service) fail(ctx context.Context, raw []byte, payload *domain.Payload, err error) {
	kind := domain.LogFailed
	if generic, ok := pkgError.As(err); ok && generic.StatusCode() < 500 {
		kind = domain.LogRejected
	}
	s.record(ctx, kind, raw, payload, err)
	if kind == domain.LogFailed {
		fields := map[string]any{}
		if payload != nil {
			fields["event"] = payload.Event
			fields["instance_id"] = payload.InstanceID
		}
		reporting.CaptureError(err, "webhook_failed", fields)
	}
}

func (s *Service) record(ctx context.Context, kind domain.LogKind, raw []byte, payload *domain.Payload, cause error) {
	entry := &domain.LogEntry{
		Kind:      kind,
		Payload:   string(raw),
		Reason:    cause.Error(),
		CreatedAt: time.Now().UTC(),
	}
	if payload != nil {
		entry.Event = payload.Event
		entry.InstanceID = payload.InstanceID
	}
	// The log write must not depend on the request still being alive.
	if err := s.logs.Append(context.WithoutCancel(ctx), entry); err != nil {
		logrus.WithError(err).Error("[WEBHOOK] Failed to append webhook log")
		return
	}
	logrus.WithField("kind", kind).Warnf("[WEBHOOK] Payload %s: %v", kind, cause)
}
