package application

import (
	"context"
	"strings"

	"github.com/AzielCF/az-inbox/autoreply/domain"
	messagesDomain "github.com/AzielCF/az-inbox/messages/domain"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/sirupsen/logrus"
)

type MessageSender interface {
	Send(ctx context.Context, req messagesDomain.SendRequest) (*messagesDomain.Message, error)
}

// Inbound is the slice of an inbound message the responder looks at.
type Inbound struct {
	ContactID  string
	InstanceID string
	Body       string
}

type Service struct {
	repo   domain.Repository
	sender MessageSender
}

func NewService(repo domain.Repository, sender MessageSender) *Service {
	return &Service{repo: repo, sender: sender}
}

func (s *Service) CreateRule(ctx context.Context, req domain.CreateRuleRequest) (*domain.Rule, error) {
	if err := validations.ValidateCreateRule(ctx, req); err != nil {
		return nil, err
	}
	rule := &domain.Rule{
		Trigger: strings.TrimSpace(req.Trigger),
		Reply:   req.Reply,
		Active:  req.Active == nil || *req.Active,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context) ([]*domain.Rule, error) {
	return s.repo.List(ctx)
}

func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}

// Respond sends the reply of the first matching rule. Every failure is
// logged and swallowed: inbound processing must not fail because an
// automated reply could not go out. It reports whether a reply was sent.
func (s *Service) Respond(ctx context.Context, in Inbound) bool {
	log := logrus.WithFields(logrus.Fields{"contact_id": in.ContactID, "instance_id": in.InstanceID})

	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		log.WithError(err).Warn("[AUTOREPLY] failed to load rules")
		return false
	}
	rule := domain.Match(rules, in.Body)
	if rule == nil {
		return false
	}

	if _, err := s.sender.Send(ctx, messagesDomain.SendRequest{
		ContactID:  in.ContactID,
		InstanceID: in.InstanceID,
		Body:       rule.Reply,
	}); err != nil {
		log.WithError(err).WithField("rule_id", rule.ID).Warn("[AUTOREPLY] reply failed")
		return false
	}

	if err := s.repo.IncrementUsage(ctx, rule.ID); err != nil {
		log.WithError(err).WithField("rule_id", rule.ID).Warn("[AUTOREPLY] failed to record rule usage")
	}
	log.WithField("rule_id", rule.ID).Debug("[AUTOREPLY] reply sent")
	return true
}
