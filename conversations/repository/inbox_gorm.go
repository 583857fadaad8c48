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

func (r *ConversationGormRepository) CreateInboxItem(ctx context.Context, item *domain.InboxItem) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item.TenantID = tenantID
	m := inboxItemModel{
		ID:        item.ID,
		TenantID:  item.TenantID,
		ContactID: item.ContactID,
		Status:    string(item.Status),
		Priority:  item.Priority,
		CreatedAt: item.CreatedAt,
	}
	if item.MessageID != "" {
		m.MessageID = &item.MessageID
	}
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrPendingInboxExists
		}
		return err
	}
	item.CreatedAt = m.CreatedAt
	return nil
}

func (r *ConversationGormRepository) GetInboxItem(ctx context.Context, id string) (*domain.InboxItem, error) {
	return r.firstInboxItem(ctx, "id = ?", id)
}

func (r *ConversationGormRepository) FindPendingInboxItem(ctx context.Context, contactID string) (*domain.InboxItem, error) {
	return r.firstInboxItem(ctx, "contact_id = ? AND status = ?", contactID, string(domain.InboxPending))
}

func (r *ConversationGormRepository) firstInboxItem(ctx context.Context, query string, args ...any) (*domain.InboxItem, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m inboxItemModel
	if err := db.Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInboxItemNotFound
		}
		return nil, err
	}
	return fromInboxItemModel(m), nil
}

// ListPendingInbox orders by priority, highest first; equal priorities are
// served oldest first. id breaks exact timestamp ties.
func (r *ConversationGormRepository) ListPendingInbox(ctx context.Context) ([]*domain.InboxItem, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var models []inboxItemModel
	err = db.Where("status = ?", string(domain.InboxPending)).
		Order("priority DESC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.InboxItem, 0, len(models))
	for _, m := range models {
		out = append(out, fromInboxItemModel(m))
	}
	return out, nil
}

func (r *ConversationGormRepository) TransitionInboxItem(ctx context.Context, id string, status domain.InboxStatus, assignee string, at time.Time) (int64, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return 0, err
	}
	updates := map[string]any{"status": string(status)}
	if assignee != "" {
		updates["assigned_to"] = assignee
		updates["assigned_at"] = at
	}
	res := db.Model(&inboxItemModel{}).
		Where("id = ? AND status = ?", id, string(domain.InboxPending)).
		Updates(updates)
	return res.RowsAffected, res.Error
}
