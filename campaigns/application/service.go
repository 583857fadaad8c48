package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AzielCF/az-inbox/campaigns/domain"
	contactsDomain "github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/tenant"
	messagesDomain "github.com/AzielCF/az-inbox/messages/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	queueApp "github.com/AzielCF/az-inbox/queue/application"
	queueDomain "github.com/AzielCF/az-inbox/queue/domain"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

type Audience interface {
	Get(ctx context.Context, id string) (*contactsDomain.Contact, error)
	ListMembers(ctx context.Context, listID string) ([]*contactsDomain.Contact, error)
}

type MessageSender interface {
	Send(ctx context.Context, req messagesDomain.SendRequest) (*messagesDomain.Message, error)
}

type JobEnqueuer interface {
	AddJob(ctx context.Context, t queueDomain.JobType, payload any, opts ...queueApp.JobOption) (*queueDomain.Job, error)
}

// ProgressPublisher receives a snapshot after every resolved contact.
type ProgressPublisher interface {
	PublishProgress(tenantID string, ev domain.ProgressEvent)
}

type Config struct {
	// SendDelay is waited between two consecutive contacts.
	SendDelay time.Duration
	// ErrorRatioThreshold is the failed/total ratio above which a finished
	// campaign is completed_with_errors instead of sent.
	ErrorRatioThreshold float64
}

type Service struct {
	acc       *database.Accessor
	repo      domain.Repository
	audience  Audience
	sender    MessageSender
	jobs      JobEnqueuer
	publisher ProgressPublisher
	cfg       Config
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewService(acc *database.Accessor, repo domain.Repository, audience Audience, sender MessageSender, jobs JobEnqueuer, publisher ProgressPublisher, cfg Config) *Service {
	if cfg.ErrorRatioThreshold <= 0 {
		cfg.ErrorRatioThreshold = 0.5
	}
	return &Service{
		acc:       acc,
		repo:      repo,
		audience:  audience,
		sender:    sender,
		jobs:      jobs,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Campaign, error) {
	if err := validations.ValidateCreateCampaign(ctx, req); err != nil {
		return nil, err
	}
	c := &domain.Campaign{
		Name:         req.Name,
		Template:     req.Message,
		ListID:       req.ListID,
		InstanceID:   req.InstanceID,
		MediaURL:     req.MediaURL,
		MediaType:    req.MediaType,
		ScheduledFor: req.ScheduledFor,
		Status:       domain.StatusDraft,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*domain.Campaign, error) {
	return s.repo.List(ctx)
}

// Launch freezes the audience of a draft campaign and enqueues its
// send_campaign job. A future scheduled_for keeps the job out of batches
// until then and leaves the campaign scheduled.
func (s *Service) Launch(ctx context.Context, id string) (*domain.Campaign, error) {
	tenantID, err := s.acc.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var launched *domain.Campaign
	err = s.acc.Transaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if c.Status != domain.StatusDraft {
			return domain.ErrNotLaunchable
		}

		members, err := s.audience.ListMembers(ctx, c.ListID)
		if err != nil {
			return fmt.Errorf("load audience: %w", err)
		}
		if len(members) == 0 {
			return domain.ErrEmptyAudience
		}
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.ID)
		}

		status := domain.StatusSending
		var opts []queueApp.JobOption
		if c.ScheduledFor != nil && c.ScheduledFor.After(s.now()) {
			status = domain.StatusScheduled
			opts = append(opts, queueApp.NotBefore(*c.ScheduledFor))
		}

		ok, err := s.repo.MarkLaunched(ctx, c.ID, status, len(ids))
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotLaunchable
		}

		payload := domain.SendPayload{TenantID: tenantID, CampaignID: c.ID, ContactIDs: ids}
		if _, err := s.jobs.AddJob(ctx, queueDomain.JobSendCampaign, payload, opts...); err != nil {
			return fmt.Errorf("enqueue campaign: %w", err)
		}

		c.Status, c.Total = status, len(ids)
		launched = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id": launched.ID,
		"status":      launched.Status,
		"recipients":  launched.Total,
	}).Info("[CAMPAIGN] Launched")
	return launched, nil
}

// HandleSendCampaign is the send_campaign job handler. It resumes after the
// contacts an earlier attempt already resolved, so a retried job never sends
// twice to the same contact.
func (s *Service) HandleSendCampaign(ctx context.Context, raw json.RawMessage) error {
	var p domain.SendPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("decode send_campaign payload: %w", err)
	}
	if p.TenantID == "" || p.CampaignID == "" {
		return pkgError.ValidationError("send_campaign payload requires tenant_id and campaign_id")
	}
	ctx = tenant.WithTenant(ctx, p.TenantID)

	c, err := s.repo.Get(ctx, p.CampaignID)
	if err != nil {
		return err
	}
	if c.Status.Terminal() {
		logrus.Infof("[CAMPAIGN] %s already %s, nothing to do", c.ID, c.Status)
		return nil
	}

	started := s.now().UTC()
	if err := s.repo.MarkStarted(ctx, c.ID, started); err != nil {
		return err
	}
	c.Status = domain.StatusSending

	total := len(p.ContactIDs)
	sent, failed := c.Sent, c.Failed
	for i := c.Processed(); i < total; i++ {
		if err := s.sendOne(ctx, c, p.ContactIDs[i]); err != nil {
			failed++
			logrus.WithError(err).WithField("campaign_id", c.ID).Warnf("[CAMPAIGN] Send to contact %s failed", p.ContactIDs[i])
		} else {
			sent++
		}

		progress := domain.Percent(sent+failed, total)
		if err := s.repo.UpdateProgress(ctx, c.ID, sent, failed, progress); err != nil {
			return fmt.Errorf("record campaign progress: %w", err)
		}
		s.publish(p.TenantID, domain.ProgressEvent{
			CampaignID: c.ID, Status: domain.StatusSending,
			Total: total, Sent: sent, Failed: failed, Progress: progress,
		})

		if i < total-1 {
			if err := s.sleep(ctx, s.cfg.SendDelay); err != nil {
				return err
			}
		}
	}

	final := domain.FinalStatus(total, failed, s.cfg.ErrorRatioThreshold)
	finished := s.now().UTC()
	if err := s.repo.Complete(ctx, c.ID, final, finished); err != nil {
		return fmt.Errorf("complete campaign: %w", err)
	}
	s.publish(p.TenantID, domain.ProgressEvent{
		CampaignID: c.ID, Status: final,
		Total: total, Sent: sent, Failed: failed, Progress: 100,
	})

	logrus.Infof("[CAMPAIGN] %s finished as %s: %s sent, %s failed of %s in %s",
		c.ID, final, humanize.Comma(int64(sent)), humanize.Comma(int64(failed)),
		humanize.Comma(int64(total)), finished.Sub(started).Round(time.Second))
	return nil
}

func (s *Service) sendOne(ctx context.Context, c *domain.Campaign, contactID string) error {
	contact, err := s.audience.Get(ctx, contactID)
	if err != nil {
		return err
	}
	_, err = s.sender.Send(ctx, messagesDomain.SendRequest{
		ContactID:  contact.ID,
		InstanceID: c.InstanceID,
		Body:       domain.Personalize(c.Template, contact),
		MediaURL:   c.MediaURL,
		MediaType:  c.MediaType,
		CampaignID: c.ID,
	})
	return err
}

func (s *Service) publish(tenantID string, ev domain.ProgressEvent) {
	if s.publisher != nil {
		s.publisher.PublishProgress(tenantID, ev)
	}
}

// RecordDelivery bumps the delivered or read counter after a status event
// for one of the campaign's messages. Other statuses are ignored.
func (s *Service) RecordDelivery(ctx context.Context, campaignID string, status messagesDomain.Status) error {
	switch status {
	case messagesDomain.StatusDelivered:
		return s.repo.IncrementDelivered(ctx, campaignID)
	case messagesDomain.StatusRead:
		return s.repo.IncrementRead(ctx, campaignID)
	}
	return nil
}
