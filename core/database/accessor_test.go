package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/database/dbtest"
	"github.com/AzielCF/az-inbox/core/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteModel struct {
	ID       string `gorm:"primaryKey"`
	TenantID string `gorm:"index"`
	Body     string
}

func setup(t *testing.T) *database.Accessor {
	db := dbtest.New(t)
	require.NoError(t, db.AutoMigrate(&noteModel{}))
	require.NoError(t, db.Create(&[]noteModel{
		{ID: "1", TenantID: "t1", Body: "a"},
		{ID: "2", TenantID: "t2", Body: "b"},
	}).Error)
	return database.NewAccessor(db)
}

func TestScoped_FiltersByTenant(t *testing.T) {
	acc := setup(t)
	ctx := tenant.WithTenant(context.Background(), "t1")

	db, err := acc.Scoped(ctx)
	require.NoError(t, err)

	var notes []noteModel
	require.NoError(t, db.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, "1", notes[0].ID)
}

func TestScoped_RequiresTenant(t *testing.T) {
	acc := setup(t)

	_, err := acc.Scoped(context.Background())
	assert.ErrorIs(t, err, tenant.ErrTenantRequired)
}

func TestScoped_AdminSeesEverything(t *testing.T) {
	acc := setup(t)
	ctx := tenant.WithAdmin(context.Background())

	db, err := acc.Scoped(ctx)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&noteModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	acc := setup(t)
	ctx := tenant.WithTenant(context.Background(), "t1")
	boom := errors.New("boom")

	err := acc.Transaction(ctx, func(ctx context.Context) error {
		if err := acc.Admin(ctx).Create(&noteModel{ID: "3", TenantID: "t1"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, acc.Admin(context.Background()).Model(&noteModel{}).Where("id = ?", "3").Count(&count).Error)
	assert.Zero(t, count)
}

func TestIsUniqueViolation(t *testing.T) {
	acc := setup(t)
	err := acc.Admin(context.Background()).Create(&noteModel{ID: "1", TenantID: "t1"}).Error
	require.Error(t, err)
	assert.True(t, database.IsUniqueViolation(err))
	assert.False(t, database.IsUniqueViolation(nil))
}
