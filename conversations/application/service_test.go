package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	contactsApp "github.com/AzielCF/az-inbox/contacts/application"
	contactsRepo "github.com/AzielCF/az-inbox/contacts/repository"
	"github.com/AzielCF/az-inbox/conversations/domain"
	"github.com/AzielCF/az-inbox/conversations/repository"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/database/dbtest"
	"github.com/AzielCF/az-inbox/core/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	svc      *Service
	repo     *repository.ConversationGormRepository
	contacts *contactsApp.Service
	ctx      context.Context
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	bg := context.Background()
	acc := database.NewAccessor(dbtest.New(t))

	cRepo := contactsRepo.NewContactGormRepository(acc)
	lRepo := contactsRepo.NewListGormRepository(acc)
	repo := repository.NewConversationGormRepository(acc)
	require.NoError(t, cRepo.InitSchema(bg))
	require.NoError(t, lRepo.InitSchema(bg))
	require.NoError(t, repo.InitSchema(bg))

	contacts := contactsApp.NewService(cRepo, lRepo)
	h := &harness{
		repo:     repo,
		contacts: contacts,
		ctx:      tenant.WithTenant(bg, "tenant-a"),
		clock:    time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	h.svc = NewService(acc, repo, contacts)
	h.svc.now = func() time.Time {
		h.clock = h.clock.Add(time.Second)
		return h.clock
	}
	return h
}

func (h *harness) contact(t *testing.T, phone string) string {
	t.Helper()
	c, _, err := h.contacts.FindOrCreateByPhone(h.ctx, phone, "")
	require.NoError(t, err)
	return c.ID
}

// assertOwnerInvariant checks that exactly one active owner row exists and
// that it matches the conversation's owner field.
func (h *harness) assertOwnerInvariant(t *testing.T, conversationID string) {
	t.Helper()
	conv, err := h.svc.GetConversation(h.ctx, conversationID)
	require.NoError(t, err)
	active, err := h.repo.ListParticipants(h.ctx, conversationID, false)
	require.NoError(t, err)

	owners := 0
	for _, p := range active {
		if p.Type == domain.ParticipantOwner {
			owners++
			assert.Equal(t, conv.OwnerID, p.UserID)
		}
	}
	assert.Equal(t, 1, owners, "active owner rows")
}

func TestCreateConversation_InsertsOwnerParticipant(t *testing.T) {
	h := newHarness(t)
	contactID := h.contact(t, "5511000000001")

	conv, err := h.svc.CreateConversation(h.ctx, contactID, "agent-a", "vip")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, conv.Status)
	assert.Equal(t, "tenant-a", conv.TenantID)
	h.assertOwnerInvariant(t, conv.ID)
}

func TestCreateConversation_OneOpenPerContact(t *testing.T) {
	h := newHarness(t)
	contactID := h.contact(t, "5511000000001")

	first, err := h.svc.CreateConversation(h.ctx, contactID, "agent-a", "")
	require.NoError(t, err)

	_, err = h.svc.CreateConversation(h.ctx, contactID, "agent-b", "")
	assert.ErrorIs(t, err, domain.ErrOpenConversationExists)

	_, err = h.svc.ArchiveConversation(h.ctx, first.ID)
	require.NoError(t, err)

	second, err := h.svc.CreateConversation(h.ctx, contactID, "agent-b", "")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreateConversation_UnknownContact(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateConversation(h.ctx, "nope", "agent-a", "")
	assert.Error(t, err)
}

func TestCreateConversation_ConcurrentCallersGetOneWinner(t *testing.T) {
	h := newHarness(t)
	contactID := h.contact(t, "5511000000001")

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.svc.CreateConversation(h.ctx, contactID, "agent", "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrOpenConversationExists)
	}
	assert.Equal(t, 1, wins)
}

func TestTransferConversation_WritesAuditAndSwapsOwner(t *testing.T) {
	h := newHarness(t)
	conv, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)

	transfer, err := h.svc.TransferConversation(h.ctx, conv.ID, "A", "B", "reason")
	require.NoError(t, err)
	assert.Equal(t, "A", transfer.FromUserID)
	assert.Equal(t, "B", transfer.ToUserID)
	assert.Equal(t, "reason", transfer.Reason)

	transfers, err := h.svc.ListTransfers(h.ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, transfer.ID, transfers[0].ID)

	updated, err := h.svc.GetConversation(h.ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", updated.OwnerID)
	assert.Equal(t, domain.StatusTransferred, updated.Status)

	all, err := h.svc.ListParticipants(h.ctx, conv.ID, true)
	require.NoError(t, err)
	for _, p := range all {
		switch p.UserID {
		case "A":
			assert.False(t, p.IsActive)
			assert.NotNil(t, p.RemovedAt)
		case "B":
			assert.True(t, p.IsActive)
			assert.Equal(t, domain.ParticipantOwner, p.Type)
		}
	}
	h.assertOwnerInvariant(t, conv.ID)
}

func TestTransferConversation_StaleOwnerConflicts(t *testing.T) {
	h := newHarness(t)
	conv, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)
	_, err = h.svc.TransferConversation(h.ctx, conv.ID, "A", "B", "")
	require.NoError(t, err)

	_, err = h.svc.TransferConversation(h.ctx, conv.ID, "A", "C", "")
	assert.ErrorIs(t, err, domain.ErrOwnershipConflict)

	transfers, err := h.svc.ListTransfers(h.ctx, conv.ID)
	require.NoError(t, err)
	assert.Len(t, transfers, 1)
	h.assertOwnerInvariant(t, conv.ID)
}

func TestTransferConversation_Validation(t *testing.T) {
	h := newHarness(t)
	conv, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)

	_, err = h.svc.TransferConversation(h.ctx, conv.ID, "A", "A", "")
	assert.ErrorIs(t, err, domain.ErrSameOwner)

	_, err = h.svc.ArchiveConversation(h.ctx, conv.ID)
	require.NoError(t, err)
	_, err = h.svc.TransferConversation(h.ctx, conv.ID, "A", "B", "")
	assert.ErrorIs(t, err, domain.ErrConversationArchived)
}

func TestTransferConversation_ToExistingParticipant(t *testing.T) {
	h := newHarness(t)
	conv, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)
	_, err = h.svc.AddParticipant(h.ctx, conv.ID, "B", domain.ParticipantObserver, "A")
	require.NoError(t, err)

	_, err = h.svc.TransferConversation(h.ctx, conv.ID, "A", "B", "")
	require.NoError(t, err)

	active, err := h.repo.ActiveParticipants(h.ctx, conv.ID, "B")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.ParticipantOwner, active[0].Type)
	h.assertOwnerInvariant(t, conv.ID)
}

func TestAddParticipant(t *testing.T) {
	h := newHarness(t)
	conv, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)

	p, err := h.svc.AddParticipant(h.ctx, conv.ID, "B", domain.ParticipantMember, "A")
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, "A", p.AddedBy)

	_, err = h.svc.AddParticipant(h.ctx, conv.ID, "B", domain.ParticipantObserver, "A")
	assert.ErrorIs(t, err, domain.ErrAlreadyParticipant)

	_, err = h.svc.AddParticipant(h.ctx, conv.ID, "C", domain.ParticipantOwner, "A")
	assert.ErrorIs(t, err, domain.ErrInvalidParticipantType)

	_, err = h.svc.AddParticipant(h.ctx, conv.ID, "A", domain.ParticipantMember, "A")
	assert.ErrorIs(t, err, domain.ErrAlreadyParticipant)
}

func TestRemoveParticipant_IsIdempotent(t *testing.T) {
	h := newHarness(t)
	conv, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)
	_, err = h.svc.AddParticipant(h.ctx, conv.ID, "B", domain.ParticipantMember, "A")
	require.NoError(t, err)

	require.NoError(t, h.svc.RemoveParticipant(h.ctx, conv.ID, "B"))
	first, err := h.svc.ListParticipants(h.ctx, conv.ID, true)
	require.NoError(t, err)

	require.NoError(t, h.svc.RemoveParticipant(h.ctx, conv.ID, "B"))
	second, err := h.svc.ListParticipants(h.ctx, conv.ID, true)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].IsActive, second[i].IsActive)
		if first[i].RemovedAt != nil {
			require.NotNil(t, second[i].RemovedAt)
			assert.True(t, first[i].RemovedAt.Equal(*second[i].RemovedAt))
		}
	}

	require.NoError(t, h.svc.RemoveParticipant(h.ctx, conv.ID, "never-joined"))
}

func TestRemoveParticipant_RefusesOwner(t *testing.T) {
	h := newHarness(t)
	conv, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)

	assert.ErrorIs(t, h.svc.RemoveParticipant(h.ctx, conv.ID, "A"), domain.ErrCannotRemoveOwner)
	h.assertOwnerInvariant(t, conv.ID)
}

func TestGetUserConversations(t *testing.T) {
	h := newHarness(t)
	quiet, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000001"), "A", "")
	require.NoError(t, err)
	older, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000002"), "B", "")
	require.NoError(t, err)
	newer, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000003"), "A", "")
	require.NoError(t, err)
	archived, err := h.svc.CreateConversation(h.ctx, h.contact(t, "5511000000004"), "A", "")
	require.NoError(t, err)

	_, err = h.svc.AddParticipant(h.ctx, older.ID, "A", domain.ParticipantMember, "B")
	require.NoError(t, err)
	_, err = h.svc.ArchiveConversation(h.ctx, archived.ID)
	require.NoError(t, err)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, _, err = h.svc.TouchConversation(h.ctx, older.ContactID, base)
	require.NoError(t, err)
	_, _, err = h.svc.TouchConversation(h.ctx, newer.ContactID, base.Add(time.Hour))
	require.NoError(t, err)

	list, err := h.svc.GetUserConversations(h.ctx, "A")
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{newer.ID, older.ID, quiet.ID}, ids)

	require.NoError(t, h.svc.RemoveParticipant(h.ctx, older.ID, "A"))
	list, err = h.svc.GetUserConversations(h.ctx, "A")
	require.NoError(t, err)
	for _, c := range list {
		assert.NotEqual(t, older.ID, c.ID)
	}
}

func TestGetInboxItems_PriorityThenOldestFirst(t *testing.T) {
	h := newHarness(t)
	priorities := []int{5, 1, 5, 3}
	ids := make([]string, len(priorities))
	for i, p := range priorities {
		item, created, err := h.svc.CreateInboxItem(h.ctx, h.contact(t, "551100000001"+string(rune('0'+i))), "", p)
		require.NoError(t, err)
		require.True(t, created)
		ids[i] = item.ID
	}

	items, err := h.svc.GetInboxItems(h.ctx)
	require.NoError(t, err)

	got := make([]string, 0, len(items))
	for _, it := range items {
		got = append(got, it.ID)
	}
	assert.Equal(t, []string{ids[0], ids[2], ids[3], ids[1]}, got)
}

func TestCreateInboxItem_DeduplicatesPendingPerContact(t *testing.T) {
	h := newHarness(t)
	contactID := h.contact(t, "5511000000001")

	first, created, err := h.svc.CreateInboxItem(h.ctx, contactID, "m1", 0)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := h.svc.CreateInboxItem(h.ctx, contactID, "m2", 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestAssignInboxItem_CreatesConversation(t *testing.T) {
	h := newHarness(t)
	contactID := h.contact(t, "5511000000001")
	item, _, err := h.svc.CreateInboxItem(h.ctx, contactID, "", 0)
	require.NoError(t, err)

	conv, err := h.svc.AssignInboxItem(h.ctx, item.ID, "agent-a")
	require.NoError(t, err)
	assert.Equal(t, contactID, conv.ContactID)
	assert.Equal(t, "agent-a", conv.OwnerID)
	h.assertOwnerInvariant(t, conv.ID)

	stored, err := h.repo.GetInboxItem(h.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboxAssigned, stored.Status)
	assert.Equal(t, "agent-a", stored.AssignedTo)

	pending, err := h.svc.GetInboxItems(h.ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestAssignInboxItem_ConcurrentClaimHasOneWinner(t *testing.T) {
	h := newHarness(t)
	contactID := h.contact(t, "5511000000001")
	item, _, err := h.svc.CreateInboxItem(h.ctx, contactID, "", 0)
	require.NoError(t, err)

	agents := []string{"agent-a", "agent-b"}
	errs := make([]error, len(agents))
	var wg sync.WaitGroup
	for i, agent := range agents {
		wg.Add(1)
		go func(i int, agent string) {
			defer wg.Done()
			_, errs[i] = h.svc.AssignInboxItem(h.ctx, item.ID, agent)
		}(i, agent)
	}
	wg.Wait()

	wins, claimed := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, domain.ErrInboxItemClaimed):
			claimed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, claimed)

	open, err := h.repo.FindOpenByContact(h.ctx, contactID)
	require.NoError(t, err)
	h.assertOwnerInvariant(t, open.ID)
}

func TestAssignInboxItem_RollsBackWhenConversationExists(t *testing.T) {
	h := newHarness(t)
	contactID := h.contact(t, "5511000000001")
	item, _, err := h.svc.CreateInboxItem(h.ctx, contactID, "", 0)
	require.NoError(t, err)
	_, err = h.svc.CreateConversation(h.ctx, contactID, "agent-a", "")
	require.NoError(t, err)

	_, err = h.svc.AssignInboxItem(h.ctx, item.ID, "agent-b")
	assert.ErrorIs(t, err, domain.ErrOpenConversationExists)

	stored, err := h.repo.GetInboxItem(h.ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InboxPending, stored.Status)
}

func TestInbox_TenantIsolation(t *testing.T) {
	h := newHarness(t)
	item, _, err := h.svc.CreateInboxItem(h.ctx, h.contact(t, "5511000000001"), "", 0)
	require.NoError(t, err)

	other := tenant.WithTenant(context.Background(), "tenant-b")
	items, err := h.svc.GetInboxItems(other)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, err = h.svc.AssignInboxItem(other, item.ID, "intruder")
	assert.ErrorIs(t, err, domain.ErrInboxItemNotFound)
}

func TestIgnoreInboxItem(t *testing.T) {
	h := newHarness(t)
	item, _, err := h.svc.CreateInboxItem(h.ctx, h.contact(t, "5511000000001"), "", 0)
	require.NoError(t, err)

	require.NoError(t, h.svc.IgnoreInboxItem(h.ctx, item.ID))
	assert.ErrorIs(t, h.svc.IgnoreInboxItem(h.ctx, item.ID), domain.ErrInboxItemClaimed)
	_, err = h.svc.AssignInboxItem(h.ctx, item.ID, "agent")
	assert.ErrorIs(t, err, domain.ErrInboxItemClaimed)
}
