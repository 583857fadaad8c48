package domain

import "time"

type Status string

const (
	StatusActive      Status = "active"
	StatusTransferred Status = "transferred"
	StatusArchived    Status = "archived"
)

// Open reports whether the conversation still routes messages. A transferred
// conversation keeps routing to its new owner.
func (s Status) Open() bool {
	return s == StatusActive || s == StatusTransferred
}

type ParticipantType string

const (
	ParticipantOwner    ParticipantType = "owner"
	ParticipantMember   ParticipantType = "participant"
	ParticipantObserver ParticipantType = "observer"
)

type Conversation struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	ContactID     string     `json:"contact_id"`
	OwnerID       string     `json:"owner_id"`
	Status        Status     `json:"status"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Participant rows are never deleted; removal clears IsActive and stamps
// RemovedAt.
type Participant struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	UserID         string          `json:"user_id"`
	Type           ParticipantType `json:"type"`
	IsActive       bool            `json:"is_active"`
	AddedBy        string          `json:"added_by,omitempty"`
	AddedAt        time.Time       `json:"added_at"`
	RemovedAt      *time.Time      `json:"removed_at,omitempty"`
}

// Transfer is an immutable audit record of an ownership change.
type Transfer struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	FromUserID     string    `json:"from_user_id"`
	ToUserID       string    `json:"to_user_id"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type InboxStatus string

const (
	InboxPending  InboxStatus = "pending"
	InboxAssigned InboxStatus = "assigned"
	InboxIgnored  InboxStatus = "ignored"
)

// InboxItem is an inbound touchpoint waiting for an agent.
type InboxItem struct {
	ID         string      `json:"id"`
	TenantID   string      `json:"tenant_id"`
	ContactID  string      `json:"contact_id"`
	MessageID  string      `json:"message_id,omitempty"`
	Status     InboxStatus `json:"status"`
	AssignedTo string      `json:"assigned_to,omitempty"`
	AssignedAt *time.Time  `json:"assigned_at,omitempty"`
	Priority   int         `json:"priority"`
	CreatedAt  time.Time   `json:"created_at"`
}

type CreateRequest struct {
	ContactID string `json:"contact_id"`
	OwnerID   string `json:"owner_id"`
	Notes     string `json:"notes"`
}

type TransferRequest struct {
	FromUserID string `json:"from_user_id"`
	ToUserID   string `json:"to_user_id"`
	Reason     string `json:"reason"`
}

type AddParticipantRequest struct {
	UserID string          `json:"user_id"`
	Type   ParticipantType `json:"type"`
}
