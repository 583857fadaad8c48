package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-inbox/conversations/domain"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConversationGormRepository struct {
	acc *database.Accessor
}

func NewConversationGormRepository(acc *database.Accessor) *ConversationGormRepository {
	return &ConversationGormRepository{acc: acc}
}

func (r *ConversationGormRepository) InitSchema(ctx context.Context) error {
	db := r.acc.Admin(ctx)
	if err := db.AutoMigrate(&conversationModel{}, &participantModel{}, &transferModel{}, &inboxItemModel{}); err != nil {
		return err
	}
	for _, stmt := range partialIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// --- Conversations ---

func (r *ConversationGormRepository) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if conv.ID == "" {
		conv.ID = uuid.NewString()
	}
	conv.TenantID = tenantID
	m := toConversationModel(conv)
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrOpenConversationExists
		}
		return err
	}
	conv.CreatedAt, conv.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *ConversationGormRepository) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	return r.firstConversation(ctx, "id = ?", id)
}

func (r *ConversationGormRepository) FindOpenByContact(ctx context.Context, contactID string) (*domain.Conversation, error) {
	return r.firstConversation(ctx, "contact_id = ? AND status <> ?", contactID, string(domain.StatusArchived))
}

func (r *ConversationGormRepository) firstConversation(ctx context.Context, query string, args ...any) (*domain.Conversation, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m conversationModel
	if err := db.Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return fromConversationModel(m), nil
}

func (r *ConversationGormRepository) ReassignOwner(ctx context.Context, id, fromUserID, toUserID string) (int64, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return 0, err
	}
	res := db.Model(&conversationModel{}).
		Where("id = ? AND owner_id = ? AND status <> ?", id, fromUserID, string(domain.StatusArchived)).
		Updates(map[string]any{"owner_id": toUserID, "status": string(domain.StatusTransferred)})
	return res.RowsAffected, res.Error
}

func (r *ConversationGormRepository) Archive(ctx context.Context, id string) (int64, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return 0, err
	}
	res := db.Model(&conversationModel{}).
		Where("id = ? AND status <> ?", id, string(domain.StatusArchived)).
		Update("status", string(domain.StatusArchived))
	return res.RowsAffected, res.Error
}

// TouchOpen bumps last_message_at of the contact's open conversation and
// returns its id. ok is false when the contact has no open conversation.
func (r *ConversationGormRepository) TouchOpen(ctx context.Context, contactID string, at time.Time) (string, bool, error) {
	conv, err := r.FindOpenByContact(ctx, contactID)
	if errors.Is(err, domain.ErrConversationNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return "", false, err
	}
	err = db.Model(&conversationModel{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", conv.ID, at).
		Update("last_message_at", at).Error
	if err != nil {
		return "", false, err
	}
	return conv.ID, true, nil
}

// ListForUser returns open conversations the user owns or actively
// participates in, most recent activity first and silent ones last.
func (r *ConversationGormRepository) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	memberOf := r.acc.Admin(ctx).Model(&participantModel{}).
		Select("conversation_id").
		Where("user_id = ? AND is_active = ?", userID, true)

	var models []conversationModel
	err = db.Where("status IN ?", []string{string(domain.StatusActive), string(domain.StatusTransferred)}).
		Where(db.Session(&gorm.Session{NewDB: true}).Where("owner_id = ?", userID).Or("id IN (?)", memberOf)).
		Order("CASE WHEN last_message_at IS NULL THEN 1 ELSE 0 END").
		Order("last_message_at DESC").
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Conversation, 0, len(models))
	for _, m := range models {
		out = append(out, fromConversationModel(m))
	}
	return out, nil
}

// --- Participants ---

func (r *ConversationGormRepository) InsertParticipant(ctx context.Context, p *domain.Participant) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m := participantModel{
		ID:             p.ID,
		TenantID:       tenantID,
		ConversationID: p.ConversationID,
		UserID:         p.UserID,
		Type:           string(p.Type),
		IsActive:       p.IsActive,
		AddedBy:        p.AddedBy,
		AddedAt:        p.AddedAt,
		RemovedAt:      p.RemovedAt,
	}
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrAlreadyParticipant
		}
		return err
	}
	return nil
}

func (r *ConversationGormRepository) ActiveParticipants(ctx context.Context, conversationID, userID string) ([]*domain.Participant, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var models []participantModel
	err = db.Where("conversation_id = ? AND user_id = ? AND is_active = ?", conversationID, userID, true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return mapParticipants(models), nil
}

// DeactivateParticipants soft-removes the user's active rows. Rows already
// inactive keep their original removed_at.
func (r *ConversationGormRepository) DeactivateParticipants(ctx context.Context, conversationID, userID string, at time.Time) (int64, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return 0, err
	}
	res := db.Model(&participantModel{}).
		Where("conversation_id = ? AND user_id = ? AND is_active = ?", conversationID, userID, true).
		Updates(map[string]any{"is_active": false, "removed_at": at})
	return res.RowsAffected, res.Error
}

func (r *ConversationGormRepository) ListParticipants(ctx context.Context, conversationID string, includeInactive bool) ([]*domain.Participant, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	db = db.Where("conversation_id = ?", conversationID)
	if !includeInactive {
		db = db.Where("is_active = ?", true)
	}
	var models []participantModel
	if err := db.Order("added_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return mapParticipants(models), nil
}

func mapParticipants(models []participantModel) []*domain.Participant {
	out := make([]*domain.Participant, 0, len(models))
	for _, m := range models {
		out = append(out, fromParticipantModel(m))
	}
	return out
}

// --- Transfers ---

func (r *ConversationGormRepository) InsertTransfer(ctx context.Context, t *domain.Transfer) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	m := transferModel{
		ID:             t.ID,
		TenantID:       tenantID,
		ConversationID: t.ConversationID,
		FromUserID:     t.FromUserID,
		ToUserID:       t.ToUserID,
		Reason:         t.Reason,
		CreatedAt:      t.CreatedAt,
	}
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		return err
	}
	t.CreatedAt = m.CreatedAt
	return nil
}

func (r *ConversationGormRepository) ListTransfers(ctx context.Context, conversationID string) ([]*domain.Transfer, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var models []transferModel
	if err := db.Where("conversation_id = ?", conversationID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Transfer, 0, len(models))
	for _, m := range models {
		out = append(out, fromTransferModel(m))
	}
	return out, nil
}
