package application

import (
	"context"
	"testing"

	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/database/dbtest"
	"github.com/AzielCF/az-inbox/core/settings/infrastructure"
	"github.com/AzielCF/az-inbox/core/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxPriorityOverridesArePerTenant(t *testing.T) {
	repo := infrastructure.NewTenantSettingsGormRepository(database.NewAccessor(dbtest.New(t)))
	require.NoError(t, repo.InitSchema(context.Background()))
	svc := NewSettingsService(repo, 2)

	a := tenant.WithTenant(context.Background(), "tenant-a")
	b := tenant.WithTenant(context.Background(), "tenant-b")

	assert.Equal(t, 2, svc.DefaultInboxPriority(a))

	require.NoError(t, svc.SetInboxDefaultPriority(a, 7))
	require.NoError(t, svc.SetInboxDefaultPriority(a, 9))
	assert.Equal(t, 9, svc.DefaultInboxPriority(a))
	assert.Equal(t, 2, svc.DefaultInboxPriority(b))

	ds, err := svc.GetDynamicSettings(a)
	require.NoError(t, err)
	assert.True(t, ds.InboxPriorityCustom)

	require.NoError(t, svc.ResetInboxDefaultPriority(a))
	assert.Equal(t, 2, svc.DefaultInboxPriority(a))

	assert.Error(t, svc.SetInboxDefaultPriority(a, -1))
}
