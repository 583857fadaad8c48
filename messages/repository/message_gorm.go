package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/messages/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type messageModel struct {
	ID               string  `gorm:"primaryKey"`
	TenantID         string  `gorm:"uniqueIndex:idx_messages_gateway_id,priority:1;not null"`
	ContactID        string  `gorm:"index:idx_messages_contact;not null"`
	ConversationID   *string `gorm:"index:idx_messages_conversation"`
	CampaignID       *string `gorm:"index:idx_messages_campaign"`
	InstanceID       string
	Direction        string  `gorm:"not null"`
	GatewayMessageID *string `gorm:"uniqueIndex:idx_messages_gateway_id,priority:2"`
	Body             string  `gorm:"type:text"`
	Type             string
	MediaURL         string
	MediaType        string
	Caption          string
	IsMedia          bool
	Status           string `gorm:"index:idx_messages_status;not null"`
	SentAt           *time.Time
	DeliveredAt      *time.Time
	ReadAt           *time.Time
	FailedAt         *time.Time
	CreatedAt        time.Time `gorm:"not null"`
}

func (messageModel) TableName() string {
	return "messages"
}

type MessageGormRepository struct {
	acc *database.Accessor
}

func NewMessageGormRepository(acc *database.Accessor) *MessageGormRepository {
	return &MessageGormRepository{acc: acc}
}

func (r *MessageGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&messageModel{})
}

func (r *MessageGormRepository) Create(ctx context.Context, msg *domain.Message) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.TenantID = tenantID
	m := toMessageModel(msg)
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		return err
	}
	msg.CreatedAt = m.CreatedAt
	return nil
}

func (r *MessageGormRepository) CreateInbound(ctx context.Context, msg *domain.Message) (*domain.Message, bool, error) {
	err := r.Create(ctx, msg)
	if err == nil {
		return msg, true, nil
	}
	if !database.IsUniqueViolation(err) || msg.GatewayMessageID == "" {
		return nil, false, err
	}
	stored, err := r.GetByGatewayID(ctx, msg.GatewayMessageID)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *MessageGormRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*domain.Message, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m messageModel
	if err := db.First(&m, "gateway_message_id = ?", gatewayID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return fromMessageModel(m), nil
}

// UpdateStatus moves a message from one status to another and stamps the
// matching timestamp. It reports false when the row was no longer in from.
func (r *MessageGormRepository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (bool, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return false, err
	}
	updates := map[string]any{"status": string(to)}
	switch to {
	case domain.StatusSent:
		updates["sent_at"] = at
	case domain.StatusDelivered:
		updates["delivered_at"] = at
	case domain.StatusRead:
		updates["read_at"] = at
	case domain.StatusFailed:
		updates["failed_at"] = at
	}
	res := db.Model(&messageModel{}).Where("id = ? AND status = ?", id, string(from)).Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *MessageGormRepository) SetConversation(ctx context.Context, id, conversationID string) error {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return err
	}
	return db.Model(&messageModel{}).Where("id = ?", id).Update("conversation_id", conversationID).Error
}

func (r *MessageGormRepository) ListByContact(ctx context.Context, contactID string, limit int) ([]*domain.Message, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	var models []messageModel
	if err := db.Where("contact_id = ?", contactID).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Message, 0, len(models))
	for _, m := range models {
		out = append(out, fromMessageModel(m))
	}
	return out, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toMessageModel(msg *domain.Message) messageModel {
	return messageModel{
		ID:               msg.ID,
		TenantID:         msg.TenantID,
		ContactID:        msg.ContactID,
		ConversationID:   optional(msg.ConversationID),
		CampaignID:       optional(msg.CampaignID),
		InstanceID:       msg.InstanceID,
		Direction:        string(msg.Direction),
		GatewayMessageID: optional(msg.GatewayMessageID),
		Body:             msg.Body,
		Type:             msg.Type,
		MediaURL:         msg.MediaURL,
		MediaType:        msg.MediaType,
		Caption:          msg.Caption,
		IsMedia:          msg.IsMedia,
		Status:           string(msg.Status),
		SentAt:           msg.SentAt,
		DeliveredAt:      msg.DeliveredAt,
		ReadAt:           msg.ReadAt,
		FailedAt:         msg.FailedAt,
		CreatedAt:        msg.CreatedAt,
	}
}

func fromMessageModel(m messageModel) *domain.Message {
	return &domain.Message{
		ID:               m.ID,
		TenantID:         m.TenantID,
		ContactID:        m.ContactID,
		ConversationID:   deref(m.ConversationID),
		CampaignID:       deref(m.CampaignID),
		InstanceID:       m.InstanceID,
		Direction:        domain.Direction(m.Direction),
		GatewayMessageID: deref(m.GatewayMessageID),
		Body:             m.Body,
		Type:             m.Type,
		MediaURL:         m.MediaURL,
		MediaType:        m.MediaType,
		Caption:          m.Caption,
		IsMedia:          m.IsMedia,
		Status:           domain.Status(m.Status),
		SentAt:           m.SentAt,
		DeliveredAt:      m.DeliveredAt,
		ReadAt:           m.ReadAt,
		FailedAt:         m.FailedAt,
		CreatedAt:        m.CreatedAt,
	}
}
