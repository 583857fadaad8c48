package repository

import (
	"time"

	"github.com/AzielCF/az-inbox/conversations/domain"
)

// --- Persistence Models ---

type conversationModel struct {
	ID            string     `gorm:"primaryKey"`
	TenantID      string     `gorm:"index:idx_conversations_tenant;not null"`
	ContactID     string     `gorm:"index:idx_conversations_contact;not null"`
	OwnerID       string     `gorm:"index:idx_conversations_owner;not null"`
	Status        string     `gorm:"not null"`
	LastMessageAt *time.Time `gorm:"column:last_message_at"`
	Notes         string     `gorm:"type:text"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

func (conversationModel) TableName() string {
	return "conversations"
}

type participantModel struct {
	ID             string `gorm:"primaryKey"`
	TenantID       string `gorm:"index:idx_participants_tenant;not null"`
	ConversationID string `gorm:"index:idx_participants_conversation;not null"`
	UserID         string `gorm:"index:idx_participants_user;not null"`
	Type           string `gorm:"not null"`
	IsActive       bool   `gorm:"not null"`
	AddedBy        string
	AddedAt        time.Time `gorm:"not null"`
	RemovedAt      *time.Time
}

func (participantModel) TableName() string {
	return "conversation_participants"
}

type transferModel struct {
	ID             string    `gorm:"primaryKey"`
	TenantID       string    `gorm:"index:idx_transfers_tenant;not null"`
	ConversationID string    `gorm:"index:idx_transfers_conversation;not null"`
	FromUserID     string    `gorm:"not null"`
	ToUserID       string    `gorm:"not null"`
	Reason         string    `gorm:"type:text"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (transferModel) TableName() string {
	return "conversation_transfers"
}

type inboxItemModel struct {
	ID         string `gorm:"primaryKey"`
	TenantID   string `gorm:"index:idx_inbox_items_tenant;not null"`
	ContactID  string `gorm:"index:idx_inbox_items_contact;not null"`
	MessageID  *string
	Status     string `gorm:"index:idx_inbox_items_status;not null"`
	AssignedTo string
	AssignedAt *time.Time
	Priority   int       `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (inboxItemModel) TableName() string {
	return "inbox_items"
}

// partialIndexes back the routing invariants under concurrency. Both sqlite
// and postgres accept this syntax.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversations_one_open ON conversations (contact_id) WHERE status <> 'archived'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_one_active ON conversation_participants (conversation_id, user_id) WHERE is_active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_one_owner ON conversation_participants (conversation_id) WHERE is_active AND type = 'owner'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_inbox_items_one_pending ON inbox_items (contact_id) WHERE status = 'pending'`,
}

// --- Mappers ---

func toConversationModel(c *domain.Conversation) conversationModel {
	return conversationModel{
		ID:            c.ID,
		TenantID:      c.TenantID,
		ContactID:     c.ContactID,
		OwnerID:       c.OwnerID,
		Status:        string(c.Status),
		LastMessageAt: c.LastMessageAt,
		Notes:         c.Notes,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromConversationModel(m conversationModel) *domain.Conversation {
	return &domain.Conversation{
		ID:            m.ID,
		TenantID:      m.TenantID,
		ContactID:     m.ContactID,
		OwnerID:       m.OwnerID,
		Status:        domain.Status(m.Status),
		LastMessageAt: m.LastMessageAt,
		Notes:         m.Notes,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func fromParticipantModel(m participantModel) *domain.Participant {
	return &domain.Participant{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		UserID:         m.UserID,
		Type:           domain.ParticipantType(m.Type),
		IsActive:       m.IsActive,
		AddedBy:        m.AddedBy,
		AddedAt:        m.AddedAt,
		RemovedAt:      m.RemovedAt,
	}
}

func fromTransferModel(m transferModel) *domain.Transfer {
	return &domain.Transfer{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		FromUserID:     m.FromUserID,
		ToUserID:       m.ToUserID,
		Reason:         m.Reason,
		CreatedAt:      m.CreatedAt,
	}
}

func fromInboxItemModel(m inboxItemModel) *domain.InboxItem {
	item := &domain.InboxItem{
		ID:         m.ID,
		TenantID:   m.TenantID,
		ContactID:  m.ContactID,
		Status:     domain.InboxStatus(m.Status),
		AssignedTo: m.AssignedTo,
		AssignedAt: m.AssignedAt,
		Priority:   m.Priority,
		CreatedAt:  m.CreatedAt,
	}
	if m.MessageID != nil {
		item.MessageID = *m.MessageID
	}
	return item
}
