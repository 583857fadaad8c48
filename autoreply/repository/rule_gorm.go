package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-inbox/autoreply/domain"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ruleModel struct {
	ID         string    `gorm:"primaryKey"`
	TenantID   string    `gorm:"index:idx_auto_reply_rules_tenant;not null"`
	Trigger    string    `gorm:"column:trigger_text;not null"`
	Reply      string    `gorm:"type:text;not null"`
	Active     bool      `gorm:"default:true"`
	UsageCount int64     `gorm:"default:0"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (ruleModel) TableName() string {
	return "auto_reply_rules"
}

type RuleGormRepository struct {
	acc *database.Accessor
}

func NewRuleGormRepository(acc *database.Accessor) *RuleGormRepository {
	return &RuleGormRepository{acc: acc}
}

func (r *RuleGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&ruleModel{})
}

func (r *RuleGormRepository) Create(ctx context.Context, rule *domain.Rule) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.TenantID = tenantID
	m := ruleModel{
		ID:        rule.ID,
		TenantID:  rule.TenantID,
		Trigger:   rule.Trigger,
		Reply:     rule.Reply,
		Active:    rule.Active,
		CreatedAt: rule.CreatedAt,
	}
	// Select forces Active=false through instead of the column default.
	if err := r.acc.Admin(ctx).Select("*").Create(&m).Error; err != nil {
		return err
	}
	rule.CreatedAt, rule.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *RuleGormRepository) ListActive(ctx context.Context) ([]*domain.Rule, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("active = ?", true) })
}

func (r *RuleGormRepository) List(ctx context.Context) ([]*domain.Rule, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *RuleGormRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]*domain.Rule, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var models []ruleModel
	if err := db.Scopes(scope).Order("created_at ASC").Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Rule, 0, len(models))
	for _, m := range models {
		out = append(out, &domain.Rule{
			ID:         m.ID,
			TenantID:   m.TenantID,
			Trigger:    m.Trigger,
			Reply:      m.Reply,
			Active:     m.Active,
			UsageCount: m.UsageCount,
			CreatedAt:  m.CreatedAt,
			UpdatedAt:  m.UpdatedAt,
		})
	}
	return out, nil
}

func (r *RuleGormRepository) SetActive(ctx context.Context, id string, active bool) error {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&ruleModel{}).Where("id = ?", id).Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// IncrementUsage bumps the counter in SQL so concurrent matches never lose
// an increment.
func (r *RuleGormRepository) IncrementUsage(ctx context.Context, id string) error {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return err
	}
	res := db.Model(&ruleModel{}).Where("id = ?", id).UpdateColumn("usage_count", gorm.Expr("usage_count + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}
