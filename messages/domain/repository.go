package domain

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, msg *Message) error
	// CreateInbound inserts msg unless one with the same gateway id already
	// exists, in which case the stored row is returned with created=false.
	CreateInbound(ctx context.Context, msg *Message) (stored *Message, created bool, err error)
	GetByGatewayID(ctx context.Context, gatewayID string) (*Message, error)
	UpdateStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
	SetConversation(ctx context.Context, id, conversationID string) error
	ListByContact(ctx context.Context, contactID string, limit int) ([]*Message, error)
}
