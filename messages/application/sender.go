package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	contactsDomain "github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/core/tenant"
	instancesApp "github.com/AzielCF/az-inbox/instances/application"
	instancesDomain "github.com/AzielCF/az-inbox/instances/domain"
	"github.com/AzielCF/az-inbox/messages/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/gateway"
	"github.com/AzielCF/az-inbox/pkg/monitor"
	"github.com/AzielCF/az-inbox/pkg/retry"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/sirupsen/logrus"
)

type ContactStore interface {
	Get(ctx context.Context, id string) (*contactsDomain.Contact, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

type InstanceResolver interface {
	Resolve(ctx context.Context, id string) (*instancesDomain.Instance, error)
	Gateway(inst *instancesDomain.Instance) instancesApp.Gateway
}

// ConversationToucher bumps the contact's open conversation, returning its id.
type ConversationToucher interface {
	TouchConversation(ctx context.Context, contactID string, at time.Time) (string, bool, error)
}

// Sender is the outbound pipeline shared by the API, the queue and the
// campaign fan-out.
type Sender struct {
	repo          domain.Repository
	contacts      ContactStore
	instances     InstanceResolver
	conversations ConversationToucher
	policy        retry.Policy
	now           func() time.Time
}

func NewSender(repo domain.Repository, contacts ContactStore, instances InstanceResolver, conversations ConversationToucher, policy retry.Policy) *Sender {
	return &Sender{
		repo:          repo,
		contacts:      contacts,
		instances:     instances,
		conversations: conversations,
		policy:        policy,
		now:           time.Now,
	}
}

// Send performs exactly one gateway call and records the result. Gateway
// errors are returned unchanged so callers can decide about retries.
func (s *Sender) Send(ctx context.Context, req domain.SendRequest) (*domain.Message, error) {
	if err := validations.ValidateSendMessage(ctx, req); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Body) == "" && strings.TrimSpace(req.MediaURL) == "" {
		return nil, domain.ErrEmptyMessage
	}

	contact, err := s.contacts.Get(ctx, req.ContactID)
	if err != nil {
		return nil, fmt.Errorf("resolve contact: %w", err)
	}
	inst, err := s.instances.Resolve(ctx, req.InstanceID)
	if err != nil {
		return nil, fmt.Errorf("resolve instance: %w", err)
	}

	out := gateway.SendRequest{Phone: contact.Phone, Message: req.Body}
	if req.MediaURL != "" {
		out.Media = &gateway.Media{URL: req.MediaURL, Type: req.MediaType, Caption: req.MediaCaption}
	}
	started := s.now()
	gatewayID, err := s.instances.Gateway(inst).Send(ctx, out)
	ev := monitor.Event{
		TenantID:   inst.TenantID,
		InstanceID: inst.ID,
		Stage:      monitor.StageOutbound,
		Kind:       "text",
		Status:     monitor.StatusOK,
		DurationMs: s.now().Sub(started).Milliseconds(),
	}
	if req.MediaURL != "" {
		ev.Kind = req.MediaType
	}
	if err != nil {
		ev.Status, ev.Error = monitor.StatusError, err.Error()
	}
	monitor.Record(ev)
	if err != nil {
		return nil, fmt.Errorf("send to contact %s: %w", contact.ID, err)
	}

	now := s.now().UTC()
	msg := &domain.Message{
		ContactID:        contact.ID,
		CampaignID:       req.CampaignID,
		InstanceID:       inst.ID,
		Direction:        domain.DirectionOutbound,
		GatewayMessageID: gatewayID,
		Body:             req.Body,
		Type:             "text",
		MediaURL:         req.MediaURL,
		MediaType:        req.MediaType,
		Caption:          req.MediaCaption,
		IsMedia:          req.MediaURL != "",
		Status:           domain.StatusSent,
		SentAt:           &now,
	}
	if msg.IsMedia {
		msg.Type = "media"
	}

	if s.conversations != nil {
		convID, ok, err := s.conversations.TouchConversation(ctx, contact.ID, now)
		if err != nil {
			logrus.WithError(err).WithField("contact_id", contact.ID).Warn("[MESSAGES] failed to touch conversation")
		} else if ok {
			msg.ConversationID = convID
		}
	}

	if err := s.repo.Create(ctx, msg); err != nil {
		logrus.WithError(err).WithField("gateway_message_id", gatewayID).Error("[MESSAGES] message sent but not recorded")
		return nil, fmt.Errorf("record outbound message: %w", err)
	}
	if err := s.contacts.Touch(ctx, contact.ID, now); err != nil {
		logrus.WithError(err).WithField("contact_id", contact.ID).Warn("[MESSAGES] failed to touch contact")
	}
	return msg, nil
}

// SendNow is the synchronous API path: transient gateway failures are
// retried, and whatever remains is reported as an upstream error.
func (s *Sender) SendNow(ctx context.Context, req domain.SendRequest) (*domain.Message, error) {
	var msg *domain.Message
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		var err error
		msg, err = s.Send(ctx, req)
		if err != nil && !gateway.IsTemporary(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return nil, pkgError.GatewayError(err.Error())
		}
		return nil, err
	}
	return msg, nil
}

// HandleSendJob is the send_message queue handler.
func (s *Sender) HandleSendJob(ctx context.Context, payload json.RawMessage) error {
	var job domain.SendJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("decode send_message payload: %w", err)
	}
	if job.TenantID == "" {
		return tenant.ErrTenantRequired
	}
	_, err := s.Send(tenant.WithTenant(ctx, job.TenantID), job.Request)
	return err
}

// MarkStatus applies a delivery report. changed is false for duplicates and
// for reports that would move the message backwards.
func (s *Sender) MarkStatus(ctx context.Context, gatewayID string, status domain.Status, at time.Time) (*domain.Message, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		msg, err := s.repo.GetByGatewayID(ctx, gatewayID)
		if err != nil {
			return nil, false, err
		}
		if !msg.Status.Advances(status) {
			return msg, false, nil
		}
		ok, err := s.repo.UpdateStatus(ctx, msg.ID, msg.Status, status, at)
		if err != nil {
			return nil, false, err
		}
		if ok {
			msg.Status = status
			return msg, true, nil
		}
	}
	return nil, false, pkgError.ConflictError("message status changed concurrently")
}
