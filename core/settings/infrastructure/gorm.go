package infrastructure

import (
	"context"
	"errors"
	"strings"

	"github.com/AzielCF/az-inbox/core/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TenantSettingModel struct {
	TenantID string `gorm:"primaryKey;column:tenant_id"`
	Key      string `gorm:"primaryKey;column:key"`
	Value    string `gorm:"column:value"`
}

func (TenantSettingModel) TableName() string {
	return "tenant_settings"
}

type TenantSettingsGormRepository struct {
	acc *database.Accessor
}

func NewTenantSettingsGormRepository(acc *database.Accessor) *TenantSettingsGormRepository {
	return &TenantSettingsGormRepository{acc: acc}
}

func (r *TenantSettingsGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&TenantSettingModel{})
}

// Get returns "" when the tenant has no override for key.
func (r *TenantSettingsGormRepository) Get(ctx context.Context, key string) (string, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return "", err
	}
	var m TenantSettingModel
	if err := db.First(&m, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(m.Value), nil
}

func (r *TenantSettingsGormRepository) Set(ctx context.Context, key string, value string) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	return r.acc.Admin(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"value": value}),
	}).Create(&TenantSettingModel{
		TenantID: tenantID,
		Key:      key,
		Value:    value,
	}).Error
}

func (r *TenantSettingsGormRepository) Delete(ctx context.Context, key string) error {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return err
	}
	return db.Delete(&TenantSettingModel{}, "key = ?", key).Error
}
