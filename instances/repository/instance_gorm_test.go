package repository

import (
	"context"
	"testing"

	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/database/dbtest"
	"github.com/AzielCF/az-inbox/core/tenant"
	"github.com/AzielCF/az-inbox/instances/domain"
	"github.com/AzielCF/az-inbox/pkg/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIKeySealedAtRest(t *testing.T) {
	crypto.SetEncryptionKey("at-rest")
	t.Cleanup(func() { crypto.SetEncryptionKey("") })

	db := dbtest.New(t)
	repo := NewInstanceGormRepository(database.NewAccessor(db))
	require.NoError(t, repo.InitSchema(context.Background()))

	ctx := tenant.WithTenant(context.Background(), "tenant-a")
	inst := &domain.Instance{Name: "main", APIURL: "https://gw.test", APIKey: "secret-key", InstanceID: "gw-1"}
	require.NoError(t, repo.Create(ctx, inst))

	var stored string
	require.NoError(t, db.Table("whatsapp_instances").Select("api_key").Where("id = ?", inst.ID).Scan(&stored).Error)
	assert.NotEqual(t, "secret-key", stored)

	got, err := repo.GetByGatewayID(context.Background(), "gw-1")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", got.APIKey)
	assert.Equal(t, "tenant-a", got.TenantID)
}

func TestGetByID_TenantScoped(t *testing.T) {
	repo := NewInstanceGormRepository(database.NewAccessor(dbtest.New(t)))
	require.NoError(t, repo.InitSchema(context.Background()))

	a := tenant.WithTenant(context.Background(), "tenant-a")
	inst := &domain.Instance{Name: "main", APIURL: "https://gw.test", APIKey: "k", InstanceID: "gw-1"}
	require.NoError(t, repo.Create(a, inst))

	_, err := repo.GetByID(tenant.WithTenant(context.Background(), "tenant-b"), inst.ID)
	assert.ErrorIs(t, err, domain.ErrInstanceNotFound)

	err = repo.Create(tenant.WithTenant(context.Background(), "tenant-b"), &domain.Instance{Name: "dup", APIURL: "https://gw.test", InstanceID: "gw-1"})
	assert.ErrorIs(t, err, domain.ErrDuplicateInstance)
}
