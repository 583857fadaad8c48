package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-inbox/campaigns/domain"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type campaignModel struct {
	ID           string `gorm:"primaryKey"`
	TenantID     string `gorm:"index:idx_campaigns_tenant;not null"`
	Name         string `gorm:"not null"`
	Template     string `gorm:"type:text;not null"`
	ListID       string `gorm:"not null"`
	InstanceID   string
	MediaURL     string
	MediaType    string
	ScheduledFor *time.Time
	Status       string `gorm:"not null"`
	Total        int    `gorm:"not null;default:0"`
	Sent         int    `gorm:"not null;default:0"`
	Delivered    int    `gorm:"not null;default:0"`
	Read         int    `gorm:"column:read_count;not null;default:0"`
	Failed       int    `gorm:"not null;default:0"`
	Progress     int    `gorm:"not null;default:0"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (campaignModel) TableName() string {
	return "campaigns"
}

type CampaignGormRepository struct {
	acc *database.Accessor
}

func NewCampaignGormRepository(acc *database.Accessor) *CampaignGormRepository {
	return &CampaignGormRepository{acc: acc}
}

func (r *CampaignGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&campaignModel{})
}

func (r *CampaignGormRepository) Create(ctx context.Context, c *domain.Campaign) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.TenantID = tenantID
	m := toCampaignModel(c)
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		return err
	}
	c.CreatedAt, c.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *CampaignGormRepository) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m campaignModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, err
	}
	return fromCampaignModel(m), nil
}

func (r *CampaignGormRepository) List(ctx context.Context) ([]*domain.Campaign, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var rows []campaignModel
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Campaign, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromCampaignModel(m))
	}
	return out, nil
}

func (r *CampaignGormRepository) MarkLaunched(ctx context.Context, id string, status domain.Status, total int) (bool, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return false, err
	}
	res := db.Model(&campaignModel{}).
		Where("id = ? AND status = ?", id, string(domain.StatusDraft)).
		Updates(map[string]any{"status": string(status), "total": total})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *CampaignGormRepository) MarkStarted(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":     string(domain.StatusSending),
		"started_at": gorm.Expr("COALESCE(started_at, ?)", at),
	})
}

func (r *CampaignGormRepository) UpdateProgress(ctx context.Context, id string, sent, failed, progress int) error {
	return r.update(ctx, id, map[string]any{
		"sent":     sent,
		"failed":   failed,
		"progress": progress,
	})
}

func (r *CampaignGormRepository) Complete(ctx context.Context, id string, status domain.Status, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"status":       string(status),
		"progress":     100,
		"completed_at": at,
	})
}

func (r *CampaignGormRepository) IncrementDelivered(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"delivered": gorm.Expr("delivered + 1")})
}

func (r *CampaignGormRepository) IncrementRead(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]any{"read_count": gorm.Expr("read_count + 1")})
}

func (r *CampaignGormRepository) update(ctx context.Context, id string, updates map[string]any) error {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&campaignModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

func toCampaignModel(c *domain.Campaign) campaignModel {
	return campaignModel{
		ID:           c.ID,
		TenantID:     c.TenantID,
		Name:         c.Name,
		Template:     c.Template,
		ListID:       c.ListID,
		InstanceID:   c.InstanceID,
		MediaURL:     c.MediaURL,
		MediaType:    c.MediaType,
		ScheduledFor: c.ScheduledFor,
		Status:       string(c.Status),
		Total:        c.Total,
		Sent:         c.Sent,
		Delivered:    c.Delivered,
		Read:         c.Read,
		Failed:       c.Failed,
		Progress:     c.Progress,
		StartedAt:    c.StartedAt,
		CompletedAt:  c.CompletedAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromCampaignModel(m campaignModel) *domain.Campaign {
	return &domain.Campaign{
		ID:           m.ID,
		TenantID:     m.TenantID,
		Name:         m.Name,
		Template:     m.Template,
		ListID:       m.ListID,
		InstanceID:   m.InstanceID,
		MediaURL:     m.MediaURL,
		MediaType:    m.MediaType,
		ScheduledFor: m.ScheduledFor,
		Status:       domain.Status(m.Status),
		Total:        m.Total,
		Sent:         m.Sent,
		Delivered:    m.Delivered,
		Read:         m.Read,
		Failed:       m.Failed,
		Progress:     m.Progress,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
