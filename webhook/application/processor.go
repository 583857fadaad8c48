package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	autoreplyApp "github.com/AzielCF/az-inbox/autoreply/application"
	contactsDomain "github.com/AzielCF/az-inbox/contacts/domain"
	conversationsDomain "github.com/AzielCF/az-inbox/conversations/domain"
	"github.com/AzielCF/az-inbox/core/tenant"
	instancesDomain "github.com/AzielCF/az-inbox/instances/domain"
	messagesDomain "github.com/AzielCF/az-inbox/messages/domain"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/AzielCF/az-inbox/webhook/domain"
	"github.com/sirupsen/logrus"
)

// Transactor runs fn in one store transaction; the context passed to fn
// carries it.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type InstanceLookup interface {
	ResolveByGatewayID(ctx context.Context, gatewayID string) (*instancesDomain.Instance, error)
}

type ContactUpserter interface {
	FindOrCreateByPhone(ctx context.Context, rawPhone, name string) (*contactsDomain.Contact, bool, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

type InboundStore interface {
	CreateInbound(ctx context.Context, msg *messagesDomain.Message) (*messagesDomain.Message, bool, error)
	SetConversation(ctx context.Context, id, conversationID string) error
}

type StatusMarker interface {
	MarkStatus(ctx context.Context, gatewayID string, status messagesDomain.Status, at time.Time) (*messagesDomain.Message, bool, error)
}

type Responder interface {
	Respond(ctx context.Context, in autoreplyApp.Inbound) bool
}

type Router interface {
	TouchConversation(ctx context.Context, contactID string, at time.Time) (string, bool, error)
	CreateInboxItem(ctx context.Context, contactID, messageID string, priority int) (*conversationsDomain.InboxItem, bool, error)
}

type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, campaignID string, status messagesDomain.Status) error
}

// PriorityPolicy picks the priority of inbox items created by ingestion.
type PriorityPolicy interface {
	DefaultInboxPriority(ctx context.Context) int
}

// StaticPriority is a PriorityPolicy with one fixed value.
type StaticPriority int

func (p StaticPriority) DefaultInboxPriority(context.Context) int { return int(p) }

// Outcome tells the caller what processing did with an event.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

type Processor struct {
	tx        Transactor
	instances InstanceLookup
	contacts  ContactUpserter
	messages  InboundStore
	statuses  StatusMarker
	responder Responder
	router    Router
	campaigns DeliveryRecorder
	priority  PriorityPolicy
	now       func() time.Time
}

func NewProcessor(
	tx Transactor,
	instances InstanceLookup,
	contacts ContactUpserter,
	messages InboundStore,
	statuses StatusMarker,
	responder Responder,
	router Router,
	campaigns DeliveryRecorder,
	priority PriorityPolicy,
) *Processor {
	return &Processor{
		tx:        tx,
		instances: instances,
		contacts:  contacts,
		messages:  messages,
		statuses:  statuses,
		responder: responder,
		router:    router,
		campaigns: campaigns,
		priority:  priority,
		now:       time.Now,
	}
}

// Process applies one parsed event. The event's instance decides the tenant
// every subsequent read and write is scoped to.
func (p *Processor) Process(ctx context.Context, ev domain.Event) (Outcome, error) {
	if u, ok := ev.(domain.UnknownEvent); ok {
		logrus.Debugf("[WEBHOOK] Ignoring event %q from instance %s", u.Name, u.InstanceID)
		return OutcomeIgnored, nil
	}

	inst, err := p.instances.ResolveByGatewayID(ctx, ev.Instance())
	if err != nil {
		return "", fmt.Errorf("resolve instance %s: %w", ev.Instance(), err)
	}
	ctx = tenant.WithTenant(ctx, inst.TenantID)

	switch e := ev.(type) {
	case domain.MessageReceived:
		return p.messageReceived(ctx, inst, e)
	case domain.StatusUpdate:
		return p.statusUpdate(ctx, e)
	}
	return "", fmt.Errorf("unhandled webhook event %T", ev)
}

func (p *Processor) messageReceived(ctx context.Context, inst *instancesDomain.Instance, e domain.MessageReceived) (Outcome, error) {
	if utils.IsGroupJID(e.From) || utils.IsBroadcastJID(e.From) {
		logrus.Debugf("[WEBHOOK] Skipping non-direct chat %s", e.From)
		return OutcomeIgnored, nil
	}
	phone := utils.CanonicalPhone(e.From)
	if phone == "" {
		return "", pkgError.ValidationError("sender has no phone number")
	}

	contact, created, err := p.contacts.FindOrCreateByPhone(ctx, phone, e.SenderName)
	if err != nil {
		return "", fmt.Errorf("upsert contact: %w", err)
	}

	at := e.Timestamp
	if at.IsZero() {
		at = p.now().UTC()
	}
	msg := &messagesDomain.Message{
		ContactID:        contact.ID,
		InstanceID:       inst.ID,
		Direction:        messagesDomain.DirectionInbound,
		GatewayMessageID: e.GatewayMessageID,
		Body:             e.Body,
		Type:             e.Type,
		MediaURL:         e.MediaURL,
		MediaType:        e.MediaType,
		Caption:          e.Caption,
		IsMedia:          messagesDomain.IsMediaType(e.Type),
		Status:           messagesDomain.StatusReceived,
		CreatedAt:        at,
	}
	// The message and its routing commit together: a failed routing step
	// rolls the message back, so a redelivery is processed again instead of
	// being dropped as a duplicate.
	var inserted, open bool
	err = p.tx.Transaction(ctx, func(ctx context.Context) error {
		var err error
		inserted, open, err = p.storeAndRoute(ctx, contact.ID, msg, at)
		return err
	})
	if err != nil {
		return "", err
	}
	if !inserted {
		logrus.Debugf("[WEBHOOK] Duplicate delivery of %s ignored", e.GatewayMessageID)
		return OutcomeDuplicate, nil
	}

	if e.Body != "" {
		p.responder.Respond(ctx, autoreplyApp.Inbound{ContactID: contact.ID, InstanceID: inst.ID, Body: e.Body})
	}

	logrus.WithFields(logrus.Fields{
		"contact_id":  contact.ID,
		"new_contact": created,
		"routed":      open,
	}).Debug("[WEBHOOK] Inbound message stored")
	return OutcomeProcessed, nil
}

// storeAndRoute persists msg, then bumps the contact and either links the
// open conversation or queues the contact in the inbox.
func (p *Processor) storeAndRoute(ctx context.Context, contactID string, msg *messagesDomain.Message, at time.Time) (inserted, open bool, err error) {
	stored, inserted, err := p.messages.CreateInbound(ctx, msg)
	if err != nil {
		return false, false, fmt.Errorf("store inbound message: %w", err)
	}
	if !inserted {
		return false, false, nil
	}

	if err := p.contacts.Touch(ctx, contactID, at); err != nil {
		return true, false, fmt.Errorf("touch contact: %w", err)
	}

	conversationID, open, err := p.router.TouchConversation(ctx, contactID, at)
	if err != nil {
		return true, false, fmt.Errorf("touch conversation: %w", err)
	}
	if open {
		if err := p.messages.SetConversation(ctx, stored.ID, conversationID); err != nil {
			return true, true, fmt.Errorf("link message to conversation: %w", err)
		}
		return true, true, nil
	}
	if _, _, err := p.router.CreateInboxItem(ctx, contactID, stored.ID, p.priority.DefaultInboxPriority(ctx)); err != nil {
		return true, false, fmt.Errorf("create inbox item: %w", err)
	}
	return true, false, nil
}

func (p *Processor) statusUpdate(ctx context.Context, e domain.StatusUpdate) (Outcome, error) {
	msg, changed, err := p.statuses.MarkStatus(ctx, e.GatewayMessageID, e.Status, e.Timestamp)
	if errors.Is(err, messagesDomain.ErrMessageNotFound) {
		logrus.Debugf("[WEBHOOK] Status %s for unknown message %s dropped", e.Status, e.GatewayMessageID)
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("apply status: %w", err)
	}
	if !changed {
		return OutcomeDuplicate, nil
	}
	if msg.CampaignID != "" && p.campaigns != nil {
		if err := p.campaigns.RecordDelivery(ctx, msg.CampaignID, e.Status); err != nil {
			return "", fmt.Errorf("record campaign delivery: %w", err)
		}
	}
	return OutcomeProcessed, nil
}
