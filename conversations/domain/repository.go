package domain

import (
	"context"
	"time"
)

// Repository persists the routing state. Multi-row sequences are composed by
// the service inside a database transaction carried on ctx.
type Repository interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	FindOpenByContact(ctx context.Context, contactID string) (*Conversation, error)
	// ReassignOwner flips owner from -> to and returns the affected row count;
	// zero means the caller lost a race or never owned the conversation.
	ReassignOwner(ctx context.Context, id, fromUserID, toUserID string) (int64, error)
	Archive(ctx context.Context, id string) (int64, error)
	TouchOpen(ctx context.Context, contactID string, at time.Time) (string, bool, error)
	ListForUser(ctx context.Context, userID string) ([]*Conversation, error)

	InsertParticipant(ctx context.Context, p *Participant) error
	ActiveParticipants(ctx context.Context, conversationID, userID string) ([]*Participant, error)
	DeactivateParticipants(ctx context.Context, conversationID, userID string, at time.Time) (int64, error)
	ListParticipants(ctx context.Context, conversationID string, includeInactive bool) ([]*Participant, error)

	InsertTransfer(ctx context.Context, t *Transfer) error
	ListTransfers(ctx context.Context, conversationID string) ([]*Transfer, error)

	CreateInboxItem(ctx context.Context, item *InboxItem) error
	GetInboxItem(ctx context.Context, id string) (*InboxItem, error)
	FindPendingInboxItem(ctx context.Context, contactID string) (*InboxItem, error)
	ListPendingInbox(ctx context.Context) ([]*InboxItem, error)
	// TransitionInboxItem moves a pending item to status; zero rows means it
	// was no longer pending.
	TransitionInboxItem(ctx context.Context, id string, status InboxStatus, assignee string, at time.Time) (int64, error)
}
