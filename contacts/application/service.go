package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/pkg/utils"
	"github.com/AzielCF/az-inbox/validations"
	"github.com/sirupsen/logrus"
)

type Service struct {
	contacts domain.ContactRepository
	lists    domain.ListRepository
}

func NewService(contacts domain.ContactRepository, lists domain.ListRepository) *Service {
	return &Service{contacts: contacts, lists: lists}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContactRequest) (*domain.Contact, error) {
	if err := validations.ValidateCreateContact(ctx, req); err != nil {
		return nil, err
	}
	phone := utils.CanonicalPhone(req.Phone)
	if phone == "" {
		return nil, domain.ErrInvalidPhone
	}
	contact := &domain.Contact{
		Name:    strings.TrimSpace(req.Name),
		Phone:   phone,
		Email:   strings.TrimSpace(req.Email),
		Company: strings.TrimSpace(req.Company),
		Notes:   req.Notes,
		Tags:    req.Tags,
		Active:  true,
	}
	if contact.Name == "" {
		contact.Name = phone
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// FindOrCreateByPhone returns the tenant's contact for phone, creating it on
// first sight. A concurrent insert of the same phone is resolved by the
// unique index and a re-read, so both callers end up with the same row.
func (s *Service) FindOrCreateByPhone(ctx context.Context, rawPhone, name string) (*domain.Contact, bool, error) {
	phone := utils.CanonicalPhone(rawPhone)
	if phone == "" {
		return nil, false, domain.ErrInvalidPhone
	}

	existing, err := s.contacts.GetByPhone(ctx, phone)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domain.ErrContactNotFound) {
		return nil, false, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = phone
	}
	contact := &domain.Contact{Name: name, Phone: phone, Active: true}
	if err := s.contacts.Create(ctx, contact); err != nil {
		if errors.Is(err, domain.ErrDuplicateContact) {
			existing, err := s.contacts.GetByPhone(ctx, phone)
			return existing, false, err
		}
		return nil, false, err
	}

	logrus.WithFields(logrus.Fields{"contact_id": contact.ID, "tenant_id": contact.TenantID}).Debug("[CONTACTS] contact created from inbound message")
	return contact, true, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Contact, error) {
	return s.contacts.GetByID(ctx, id)
}

func (s *Service) GetMany(ctx context.Context, ids []string) ([]*domain.Contact, error) {
	return s.contacts.GetMany(ctx, ids)
}

func (s *Service) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Contact, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.contacts.List(ctx, filter)
}

func (s *Service) Touch(ctx context.Context, id string, at time.Time) error {
	return s.contacts.Touch(ctx, id, at)
}

func (s *Service) CreateList(ctx context.Context, req domain.CreateListRequest) (*domain.ContactList, error) {
	if err := validations.ValidateCreateContactList(ctx, req); err != nil {
		return nil, err
	}
	list := &domain.ContactList{Name: strings.TrimSpace(req.Name), Description: req.Description}
	if err := s.lists.Create(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// AddMembers adds contacts that belong to the caller's tenant. Ids that do
// not resolve fail the whole call.
func (s *Service) AddMembers(ctx context.Context, listID string, req domain.AddMembersRequest) (int, error) {
	if err := validations.ValidateAddMembers(ctx, req); err != nil {
		return 0, err
	}
	if _, err := s.lists.GetByID(ctx, listID); err != nil {
		return 0, err
	}
	ids := dedupe(req.ContactIDs)
	found, err := s.contacts.GetMany(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(found) != len(ids) {
		return 0, domain.ErrContactNotFound
	}
	return s.lists.AddMembers(ctx, listID, ids)
}

// ListMembers resolves a list into its contacts.
func (s *Service) ListMembers(ctx context.Context, listID string) ([]*domain.Contact, error) {
	if _, err := s.lists.GetByID(ctx, listID); err != nil {
		return nil, err
	}
	ids, err := s.lists.MemberIDs(ctx, listID)
	if err != nil {
		return nil, err
	}
	return s.contacts.GetMany(ctx, ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
