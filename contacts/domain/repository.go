package domain

import (
	"context"
	"time"
)

type ContactRepository interface {
	Create(ctx context.Context, contact *Contact) error
	GetByID(ctx context.Context, id string) (*Contact, error)
	GetByPhone(ctx context.Context, phone string) (*Contact, error)
	GetMany(ctx context.Context, ids []string) ([]*Contact, error)
	List(ctx context.Context, filter ListFilter) ([]*Contact, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

type ListRepository interface {
	Create(ctx context.Context, list *ContactList) error
	GetByID(ctx context.Context, id string) (*ContactList, error)
	AddMembers(ctx context.Context, listID string, contactIDs []string) (int, error)
	MemberIDs(ctx context.Context, listID string) ([]string, error)
}
