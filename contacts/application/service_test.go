package application

import (
	"context"
	"testing"

	"github.com/AzielCF/az-inbox/contacts/domain"
	"github.com/AzielCF/az-inbox/contacts/repository"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/database/dbtest"
	"github.com/AzielCF/az-inbox/core/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) *Service {
	t.Helper()
	acc := database.NewAccessor(dbtest.New(t))
	contacts := repository.NewContactGormRepository(acc)
	lists := repository.NewListGormRepository(acc)
	require.NoError(t, contacts.InitSchema(context.Background()))
	require.NoError(t, lists.InitSchema(context.Background()))
	return NewService(contacts, lists)
}

func TestFindOrCreateByPhone_IsIdempotent(t *testing.T) {
	svc := newService(t)
	ctx := tenant.WithTenant(context.Background(), "tenant-a")

	first, created, err := svc.FindOrCreateByPhone(ctx, "5511999990000@s.whatsapp.net", "Ana")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "5511999990000", first.Phone)
	assert.Equal(t, "Ana", first.Name)

	second, created, err := svc.FindOrCreateByPhone(ctx, "+55 11 99999-0000", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestFindOrCreateByPhone_SeparatesTenants(t *testing.T) {
	svc := newService(t)

	a, _, err := svc.FindOrCreateByPhone(tenant.WithTenant(context.Background(), "tenant-a"), "5511999990000", "")
	require.NoError(t, err)
	b, created, err := svc.FindOrCreateByPhone(tenant.WithTenant(context.Background(), "tenant-b"), "5511999990000", "")
	require.NoError(t, err)

	assert.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "tenant-b", b.TenantID)
}

func TestFindOrCreateByPhone_RejectsEmptyPhone(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.FindOrCreateByPhone(tenant.WithTenant(context.Background(), "t"), "abc", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPhone)
}

func TestCreate_DuplicatePhoneConflicts(t *testing.T) {
	svc := newService(t)
	ctx := tenant.WithTenant(context.Background(), "tenant-a")

	_, err := svc.Create(ctx, domain.CreateContactRequest{Name: "Ana", Phone: "5511999990000"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateContactRequest{Name: "Ana 2", Phone: "55 11 99999 0000"})
	assert.ErrorIs(t, err, domain.ErrDuplicateContact)
}

func TestAddMembers_RejectsForeignContacts(t *testing.T) {
	svc := newService(t)
	ctxA := tenant.WithTenant(context.Background(), "tenant-a")
	ctxB := tenant.WithTenant(context.Background(), "tenant-b")

	mine, _, err := svc.FindOrCreateByPhone(ctxA, "5511000000001", "")
	require.NoError(t, err)
	theirs, _, err := svc.FindOrCreateByPhone(ctxB, "5511000000002", "")
	require.NoError(t, err)

	list, err := svc.CreateList(ctxA, domain.CreateListRequest{Name: "VIP"})
	require.NoError(t, err)

	_, err = svc.AddMembers(ctxA, list.ID, domain.AddMembersRequest{ContactIDs: []string{mine.ID, theirs.ID}})
	assert.ErrorIs(t, err, domain.ErrContactNotFound)

	added, err := svc.AddMembers(ctxA, list.ID, domain.AddMembersRequest{ContactIDs: []string{mine.ID, mine.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	added, err = svc.AddMembers(ctxA, list.ID, domain.AddMembersRequest{ContactIDs: []string{mine.ID}})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	members, err := svc.ListMembers(ctxA, list.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, mine.ID, members[0].ID)

	_, err = svc.ListMembers(ctxB, list.ID)
	assert.ErrorIs(t, err, domain.ErrListNotFound)
}
