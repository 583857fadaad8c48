package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type contactModel struct {
	ID            string `gorm:"primaryKey"`
	TenantID      string `gorm:"uniqueIndex:idx_contacts_tenant_phone,priority:1;not null"`
	Name          string `gorm:"index:idx_contacts_name"`
	Phone         string `gorm:"uniqueIndex:idx_contacts_tenant_phone,priority:2;not null"`
	Email         string
	Company       string
	Notes         string
	Active        bool       `gorm:"default:true"`
	Tags          string     `gorm:"type:text;default:'[]'"` // JSON
	LastMessageAt *time.Time `gorm:"column:last_message_at"`
	CreatedAt     time.Time  `gorm:"not null"`
	UpdatedAt     time.Time  `gorm:"not null"`
}

func (contactModel) TableName() string {
	return "contacts"
}

// --- Repository Implementation ---

type ContactGormRepository struct {
	acc *database.Accessor
}

func NewContactGormRepository(acc *database.Accessor) *ContactGormRepository {
	return &ContactGormRepository{acc: acc}
}

func (r *ContactGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&contactModel{})
}

func (r *ContactGormRepository) Create(ctx context.Context, contact *domain.Contact) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	contact.TenantID = tenantID

	m := toContactModel(contact)
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateContact
		}
		return err
	}
	contact.CreatedAt, contact.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *ContactGormRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *ContactGormRepository) GetByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	return r.first(ctx, "phone = ?", phone)
}

func (r *ContactGormRepository) first(ctx context.Context, query string, args ...any) (*domain.Contact, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m contactModel
	if err := db.Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrContactNotFound
		}
		return nil, err
	}
	return fromContactModel(m), nil
}

// GetMany returns the contacts found among ids, in ids order. Unknown or
// foreign ids are skipped.
func (r *ContactGormRepository) GetMany(ctx context.Context, ids []string) ([]*domain.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var models []contactModel
	if err := db.Where("id IN ?", ids).Find(&models).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]contactModel, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	out := make([]*domain.Contact, 0, len(models))
	for _, id := range ids {
		if m, ok := byID[id]; ok {
			out = append(out, fromContactModel(m))
		}
	}
	return out, nil
}

func (r *ContactGormRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Contact, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		db = db.Where("name LIKE ? OR phone LIKE ? OR company LIKE ?", like, like, like)
	}
	if filter.Limit > 0 {
		db = db.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		db = db.Offset(filter.Offset)
	}
	var models []contactModel
	if err := db.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.Contact, 0, len(models))
	for _, m := range models {
		out = append(out, fromContactModel(m))
	}
	return out, nil
}

// Touch moves last_message_at forward; older timestamps are ignored.
func (r *ContactGormRepository) Touch(ctx context.Context, id string, at time.Time) error {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return err
	}
	return db.Model(&contactModel{}).
		Where("id = ? AND (last_message_at IS NULL OR last_message_at < ?)", id, at).
		Update("last_message_at", at).Error
}

// --- Mappers ---

func toContactModel(c *domain.Contact) contactModel {
	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, _ := json.Marshal(tags)
	return contactModel{
		ID:            c.ID,
		TenantID:      c.TenantID,
		Name:          c.Name,
		Phone:         c.Phone,
		Email:         c.Email,
		Company:       c.Company,
		Notes:         c.Notes,
		Active:        c.Active,
		Tags:          string(tagsJSON),
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromContactModel(m contactModel) *domain.Contact {
	c := &domain.Contact{
		ID:            m.ID,
		TenantID:      m.TenantID,
		Name:          m.Name,
		Phone:         m.Phone,
		Email:         m.Email,
		Company:       m.Company,
		Notes:         m.Notes,
		Active:        m.Active,
		LastMessageAt: m.LastMessageAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(m.Tags), &c.Tags); err != nil || c.Tags == nil {
		c.Tags = []string{}
	}
	return c
}
