package application

import (
	"context"
	"errors"
	"strings"
	"time"

	contactsDomain "github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/conversations/domain"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/tenant"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/sirupsen/logrus"
)

type ContactLookup interface {
	Get(ctx context.Context, id string) (*contactsDomain.Contact, error)
}

// Service owns conversation lifecycle: creation, participants, ownership
// transfer and inbox assignment. Every multi-row change runs in a single
// transaction and guards its precondition with a conditional update, so a
// concurrent loser gets a definite error instead of corrupting state.
type Service struct {
	acc      *database.Accessor
	repo     domain.Repository
	contacts ContactLookup
	now      func() time.Time
}

func NewService(acc *database.Accessor, repo domain.Repository, contacts ContactLookup) *Service {
	return &Service{acc: acc, repo: repo, contacts: contacts, now: time.Now}
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// CreateConversation opens a conversation for contactID owned by ownerID.
// It fails with ErrOpenConversationExists when the contact already has one.
func (s *Service) CreateConversation(ctx context.Context, contactID, ownerID, notes string) (*domain.Conversation, error) {
	contactID, ownerID = strings.TrimSpace(contactID), strings.TrimSpace(ownerID)
	if contactID == "" || ownerID == "" {
		return nil, pkgError.ValidationError("contact_id and owner_id are required")
	}

	var conv *domain.Conversation
	err := s.acc.Transaction(ctx, func(ctx context.Context) error {
		if _, err := s.contacts.Get(ctx, contactID); err != nil {
			return err
		}
		if _, err := s.repo.FindOpenByContact(ctx, contactID); err == nil {
			return domain.ErrOpenConversationExists
		} else if !errors.Is(err, domain.ErrConversationNotFound) {
			return err
		}

		now := s.clock()
		conv = &domain.Conversation{
			ContactID: contactID,
			OwnerID:   ownerID,
			Status:    domain.StatusActive,
			Notes:     notes,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.repo.CreateConversation(ctx, conv); err != nil {
			return err
		}
		return s.repo.InsertParticipant(ctx, &domain.Participant{
			ConversationID: conv.ID,
			UserID:         ownerID,
			Type:           domain.ParticipantOwner,
			IsActive:       true,
			AddedBy:        ownerID,
			AddedAt:        now,
		})
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"contact_id":      contactID,
		"owner_id":        ownerID,
	}).Info("[ROUTING] conversation created")
	return conv, nil
}

func (s *Service) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return s.repo.GetConversation(ctx, id)
}

// TransferConversation hands ownership from fromUserID to toUserID. The
// owner swap is conditional on fromUserID still owning the conversation;
// otherwise ErrOwnershipConflict is returned and nothing changes.
func (s *Service) TransferConversation(ctx context.Context, conversationID, fromUserID, toUserID, reason string) (*domain.Transfer, error) {
	fromUserID, toUserID = strings.TrimSpace(fromUserID), strings.TrimSpace(toUserID)
	if fromUserID == "" || toUserID == "" {
		return nil, pkgError.ValidationError("from_user_id and to_user_id are required")
	}
	if fromUserID == toUserID {
		return nil, domain.ErrSameOwner
	}

	var transfer *domain.Transfer
	err := s.acc.Transaction(ctx, func(ctx context.Context) error {
		conv, err := s.repo.GetConversation(ctx, conversationID)
		if err != nil {
			return err
		}
		if conv.Status == domain.StatusArchived {
			return domain.ErrConversationArchived
		}

		rows, err := s.repo.ReassignOwner(ctx, conv.ID, fromUserID, toUserID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrOwnershipConflict
		}

		now := s.clock()
		if _, err := s.repo.DeactivateParticipants(ctx, conv.ID, fromUserID, now); err != nil {
			return err
		}
		// The new owner may already be a participant or observer.
		if _, err := s.repo.DeactivateParticipants(ctx, conv.ID, toUserID, now); err != nil {
			return err
		}
		if err := s.repo.InsertParticipant(ctx, &domain.Participant{
			ConversationID: conv.ID,
			UserID:         toUserID,
			Type:           domain.ParticipantOwner,
			IsActive:       true,
			AddedBy:        fromUserID,
			AddedAt:        now,
		}); err != nil {
			return err
		}

		transfer = &domain.Transfer{
			ConversationID: conv.ID,
			FromUserID:     fromUserID,
			ToUserID:       toUserID,
			Reason:         strings.TrimSpace(reason),
			CreatedAt:      now,
		}
		return s.repo.InsertTransfer(ctx, transfer)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"conversation_id": conversationID,
		"from":            fromUserID,
		"to":              toUserID,
	}).Info("[ROUTING] conversation transferred")
	return transfer, nil
}

// AddParticipant adds userID as participant or observer. Owners only change
// through TransferConversation.
func (s *Service) AddParticipant(ctx context.Context, conversationID, userID string, kind domain.ParticipantType, addedBy string) (*domain.Participant, error) {
	if kind != domain.ParticipantMember && kind != domain.ParticipantObserver {
		return nil, domain.ErrInvalidParticipantType
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgError.ValidationError("user_id is required")
	}

	var p *domain.Participant
	err := s.acc.Transaction(ctx, func(ctx context.Context) error {
		conv, err := s.repo.GetConversation(ctx, conversationID)
		if err != nil {
			return err
		}
		if conv.Status == domain.StatusArchived {
			return domain.ErrConversationArchived
		}
		active, err := s.repo.ActiveParticipants(ctx, conv.ID, userID)
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return domain.ErrAlreadyParticipant
		}
		p = &domain.Participant{
			ConversationID: conv.ID,
			UserID:         userID,
			Type:           kind,
			IsActive:       true,
			AddedBy:        addedBy,
			AddedAt:        s.clock(),
		}
		return s.repo.InsertParticipant(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// RemoveParticipant soft-removes userID. Removing someone who is not an
// active member is a no-op; removing the owner is refused.
func (s *Service) RemoveParticipant(ctx context.Context, conversationID, userID string) error {
	return s.acc.Transaction(ctx, func(ctx context.Context) error {
		conv, err := s.repo.GetConversation(ctx, conversationID)
		if err != nil {
			return err
		}
		if conv.OwnerID == userID {
			return domain.ErrCannotRemoveOwner
		}
		rows, err := s.repo.DeactivateParticipants(ctx, conv.ID, userID, s.clock())
		if err != nil {
			return err
		}
		if rows > 0 {
			logrus.WithFields(logrus.Fields{"conversation_id": conv.ID, "user_id": userID}).Debug("[ROUTING] participant removed")
		}
		return nil
	})
}

// ArchiveConversation closes the conversation for good. Archiving twice is
// a no-op.
func (s *Service) ArchiveConversation(ctx context.Context, conversationID string) (*domain.Conversation, error) {
	rows, err := s.repo.Archive(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	conv, err := s.repo.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if rows > 0 {
		logrus.WithField("conversation_id", conversationID).Info("[ROUTING] conversation archived")
	}
	return conv, nil
}

func (s *Service) GetUserConversations(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, pkgError.ValidationError("user id is required")
	}
	return s.repo.ListForUser(ctx, userID)
}

func (s *Service) ListParticipants(ctx context.Context, conversationID string, includeInactive bool) ([]*domain.Participant, error) {
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListParticipants(ctx, conversationID, includeInactive)
}

func (s *Service) ListTransfers(ctx context.Context, conversationID string) ([]*domain.Transfer, error) {
	if _, err := s.repo.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return s.repo.ListTransfers(ctx, conversationID)
}

// TouchConversation records activity on the contact's open conversation.
func (s *Service) TouchConversation(ctx context.Context, contactID string, at time.Time) (string, bool, error) {
	return s.repo.TouchOpen(ctx, contactID, at)
}

// --- Inbox ---

// GetInboxItems lists pending items, highest priority first and oldest
// first among equal priorities.
func (s *Service) GetInboxItems(ctx context.Context) ([]*domain.InboxItem, error) {
	return s.repo.ListPendingInbox(ctx)
}

// CreateInboxItem queues contactID for assignment. When the contact already
// waits in the inbox the existing item is returned with created=false.
func (s *Service) CreateInboxItem(ctx context.Context, contactID, messageID string, priority int) (*domain.InboxItem, bool, error) {
	if existing, err := s.repo.FindPendingInboxItem(ctx, contactID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, domain.ErrInboxItemNotFound) {
		return nil, false, err
	}

	item := &domain.InboxItem{
		ContactID: contactID,
		MessageID: messageID,
		Status:    domain.InboxPending,
		Priority:  priority,
		CreatedAt: s.clock(),
	}
	if err := s.repo.CreateInboxItem(ctx, item); err != nil {
		if errors.Is(err, domain.ErrPendingInboxExists) {
			existing, err := s.repo.FindPendingInboxItem(ctx, contactID)
			return existing, false, err
		}
		return nil, false, err
	}

	logrus.WithFields(logrus.Fields{
		"inbox_item_id": item.ID,
		"contact_id":    contactID,
		"priority":      priority,
	}).Info("[ROUTING] inbox item created")
	return item, true, nil
}

// AssignInboxItem claims a pending item for userID and opens the contact's
// conversation with userID as owner. The claim is a compare-and-set on the
// pending status: of two concurrent callers exactly one succeeds and the
// other gets ErrInboxItemClaimed.
func (s *Service) AssignInboxItem(ctx context.Context, itemID, userID string) (*domain.Conversation, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, pkgError.ValidationError("user id is required")
	}

	var conv *domain.Conversation
	err := s.acc.Transaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetInboxItem(ctx, itemID)
		if err != nil {
			return err
		}
		rows, err := s.repo.TransitionInboxItem(ctx, item.ID, domain.InboxAssigned, userID, s.clock())
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrInboxItemClaimed
		}
		// Administrative callers act on behalf of the item's tenant.
		conv, err = s.CreateConversation(tenant.WithTenant(ctx, item.TenantID), item.ContactID, userID, "")
		return err
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"inbox_item_id": itemID, "user_id": userID}).Info("[ROUTING] inbox item assigned")
	return conv, nil
}

// IgnoreInboxItem dismisses a pending item.
func (s *Service) IgnoreInboxItem(ctx context.Context, itemID string) error {
	item, err := s.repo.GetInboxItem(ctx, itemID)
	if err != nil {
		return err
	}
	rows, err := s.repo.TransitionInboxItem(ctx, item.ID, domain.InboxIgnored, "", s.clock())
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrInboxItemClaimed
	}
	return nil
}
