package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/webhook/domain"
	"github.com/google/uuid"
)

type logModel struct {
	ID         string `gorm:"primaryKey"`
	TenantID   *string
	Kind       string `gorm:"index:idx_webhook_logs_kind;not null"`
	Event      string
	InstanceID string
	Payload    string    `gorm:"type:text;not null"`
	Reason     string    `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"index:idx_webhook_logs_created;not null"`
}

func (logModel) TableName() string {
	return "webhook_logs"
}

// LogGormRepository only ever inserts; rows are never updated or pruned.
type LogGormRepository struct {
	acc *database.Accessor
}

func NewLogGormRepository(acc *database.Accessor) *LogGormRepository {
	return &LogGormRepository{acc: acc}
}

func (r *LogGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&logModel{})
}

func (r *LogGormRepository) Append(ctx context.Context, entry *domain.LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	m := logModel{
		ID:         entry.ID,
		Kind:       string(entry.Kind),
		Event:      entry.Event,
		InstanceID: entry.InstanceID,
		Payload:    entry.Payload,
		Reason:     entry.Reason,
		CreatedAt:  entry.CreatedAt,
	}
	if entry.TenantID != "" {
		m.TenantID = &entry.TenantID
	}
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		return err
	}
	entry.CreatedAt = m.CreatedAt
	return nil
}

func (r *LogGormRepository) Recent(ctx context.Context, limit int) ([]*domain.LogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []logModel
	err := r.acc.Admin(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*domain.LogEntry, 0, len(rows))
	for _, m := range rows {
		e := &domain.LogEntry{
			ID:         m.ID,
			Kind:       domain.LogKind(m.Kind),
			Event:      m.Event,
			InstanceID: m.InstanceID,
			Payload:    m.Payload,
			Reason:     m.Reason,
			CreatedAt:  m.CreatedAt,
		}
		if m.TenantID != nil {
			e.TenantID = *m.TenantID
		}
		out = append(out, e)
	}
	return out, nil
}
