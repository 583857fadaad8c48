package repository

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type contactListModel struct {
	ID          string `gorm:"primaryKey"`
	TenantID    string `gorm:"index:idx_contact_lists_tenant;not null"`
	Name        string `gorm:"not null"`
	Description string
	CreatedAt   time.Time `gorm:"not null"`
}

func (contactListModel) TableName() string {
	return "contact_lists"
}

type listMemberModel struct {
	ListID    string    `gorm:"primaryKey"`
	ContactID string    `gorm:"primaryKey"`
	TenantID  string    `gorm:"index:idx_contact_list_members_tenant;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (listMemberModel) TableName() string {
	return "contact_list_members"
}

type ListGormRepository struct {
	acc *database.Accessor
}

func NewListGormRepository(acc *database.Accessor) *ListGormRepository {
	return &ListGormRepository{acc: acc}
}

func (r *ListGormRepository) InitSchema(ctx context.Context) error {
	return r.acc.Admin(ctx).AutoMigrate(&contactListModel{}, &listMemberModel{})
}

func (r *ListGormRepository) Create(ctx context.Context, list *domain.ContactList) error {
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return err
	}
	if list.ID == "" {
		list.ID = uuid.NewString()
	}
	list.TenantID = tenantID
	m := contactListModel{
		ID:          list.ID,
		TenantID:    list.TenantID,
		Name:        list.Name,
		Description: list.Description,
	}
	if err := r.acc.Admin(ctx).Create(&m).Error; err != nil {
		return err
	}
	list.CreatedAt = m.CreatedAt
	return nil
}

func (r *ListGormRepository) GetByID(ctx context.Context, id string) (*domain.ContactList, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var m contactListModel
	if err := db.First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrListNotFound
		}
		return nil, err
	}
	return &domain.ContactList{
		ID:          m.ID,
		TenantID:    m.TenantID,
		Name:        m.Name,
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}, nil
}

// AddMembers links contacts to a list, skipping existing memberships, and
// returns how many rows were new.
func (r *ListGormRepository) AddMembers(ctx context.Context, listID string, contactIDs []string) (int, error) {
	if len(contactIDs) == 0 {
		return 0, nil
	}
	tenantID, err := r.acc.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([]listMemberModel, 0, len(contactIDs))
	for _, id := range contactIDs {
		rows = append(rows, listMemberModel{ListID: listID, ContactID: id, TenantID: tenantID})
	}
	res := r.acc.Admin(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// MemberIDs returns member contact ids in the order they were added.
func (r *ListGormRepository) MemberIDs(ctx context.Context, listID string) ([]string, error) {
	db, err := r.acc.Scoped(ctx)
	if err != nil {
		return nil, err
	}
	var ids []string
	err = db.Model(&listMemberModel{}).
		Where("list_id = ?", listID).
		Order("created_at ASC").Order("contact_id ASC").
		Pluck("contact_id", &ids).Error
	return ids, err
}
