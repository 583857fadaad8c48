package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/instances/domain"
	"github.com/AzielCF/az-inbox/pkg/crypto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type instanceModel struct {
	ID          string `gorm:"primaryKey"`
	TenantID    string `gorm:"index:idx_instances_tenant;not null"`
	Name        string
	APIURL      string `gorm:"column:api_url;not null"`
	APIKey      string `gorm:"column:api_key"`
	InstanceID  string `gorm:"column:instance_id;uniqueIndex:idx_instances_gateway_id;not null"`
	Connected   bool   `gorm:"default:false"`
	PhoneNumber string
	IsDefault   bool      `gorm:"default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (instanceModel) TableName() string {
	return "whatsapp_instances"
}

type InstanceGormRepository struct {
	acc *database.Accessor
}

func NewInstanceGormRepository(acc *database.Accessor) *InstanceGormRepository {
	return &InstanceGormRepository{acc: acc}
}

func (r *InstanceGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&instanceModel{})
}

func (r *InstanceGormRepository) Create(ctx context.Context, inst *domain.Instance) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if inst.ID == "" {
		inst.ID = uuid.NewString()
	}
	inst.TenantID = tenantID

	return r.acc.Transaction(ctx, func(ctx context.Context) error {
		if inst.IsDefault {
			db, err := r.acc.Scoped(ctx)
			if err != nil {
				return err
			}
			if err := db.Model(&instanceModel{}).Where("is_default = ?", true).Update("is_default", false).Error; err != nil {
				return err
			}
		}
		m, err := toInstanceModel(inst)
		if err != nil {
			return err
		}
		if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return domain.ErrDuplicateInstance
			}
			return err
		}
		inst.CreatedAt, inst.UpdatedAt = m.CreatedAt, m.UpdatedAt
		return nil
	})
}

func (r *InstanceGormRepository) GetByID(ctx context.Context, id string) (*domain.Instance, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m instanceModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return fromInstanceModel(m)
}

func (r *InstanceGormRepository) GetByGatewayID(ctx context.Context, gatewayID string) (*domain.Instance, error) {
	var m instanceModel
	if err := r.acc.Admin(ctx).First(&m, "instance_id = ?", gatewayID).Error; err != nil {
		return nil, notFound(err)
	}
	return fromInstanceModel(m)
}

// GetDefault prefers the flagged default and falls back to the oldest instance.
func (r *InstanceGormRepository) GetDefault(ctx context.Context) (*domain.Instance, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m instanceModel
	if err := db.Order("is_default DESC").Order("created_at ASC").First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoDefaultInstance
		}
		return nil, err
	}
	return fromInstanceModel(m)
}

func (r *InstanceGormRepository) List(ctx context.Context) ([]*domain.Instance, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var models []instanceModel
	if err := db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Instance, 0, len(models))
	for _, m := range models {
		inst, err := fromInstanceModel(m)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, nil
}

func (r *InstanceGormRepository) UpdateConnection(ctx context.Context, id string, connected bool, phone string) error {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return err
	}
	updates := map[string]any{"connected": connected}
	if phone != "" {
		updates["phone_number"] = phone
	}
	res := db.Model(&instanceModel{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrInstanceNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrInstanceNotFound
	}
	return err
}

// The gateway API key is sealed at rest when APP_ENCRYPTION_KEY is set.
func toInstanceModel(inst *domain.Instance) (instanceModel, error) {
	apiKey, err := crypto.Encrypt(inst.APIKey)
	if err != nil {
		return instanceModel{}, fmt.Errorf("encrypt api key: %w", err)
	}
	return instanceModel{
		ID:          inst.ID,
		TenantID:    inst.TenantID,
		Name:        inst.Name,
		APIURL:      inst.APIURL,
		APIKey:      apiKey,
		InstanceID:  inst.InstanceID,
		Connected:   inst.Connected,
		PhoneNumber: inst.PhoneNumber,
		IsDefault:   inst.IsDefault,
		CreatedAt:   inst.CreatedAt,
		UpdatedAt:   inst.UpdatedAt,
	}, nil
}

func fromInstanceModel(m instanceModel) (*domain.Instance, error) {
	apiKey, err := crypto.Decrypt(m.APIKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt api key of instance %s: %w", m.ID, err)
	}
	return &domain.Instance{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Name:        m.Name,
		APIURL:      m.APIURL,
		APIKey:      apiKey,
		InstanceID:  m.InstanceID,
		Connected:   m.Connected,
		PhoneNumber: m.PhoneNumber,
		IsDefault:   m.IsDefault,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}, nil
}
