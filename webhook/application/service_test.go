package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	autoreplyApp "github.com/AzielCF/az-inbox/autoreply/application"
	autoreplyDomain "github.com/AzielCF/az-inbox/autoreply/domain"
	autoreplyRepo "github.com/AzielCF/az-inbox/autoreply/repository"
	contactsApp "github.com/AzielCF/az-inbox/contacts/application"
	contactsRepo "github.com/AzielCF/az-inbox/contacts/repository"
	conversationsApp "github.com/AzielCF/az-inbox/conversations/application"
	conversationsDomain "github.com/AzielCF/az-inbox/conversations/domain"
	conversationsRepo "github.com/AzielCF/az-inbox/conversations/repository"
	"github.com/AzielCF/az-inbox/core/database"
	"github.com/AzielCF/az-inbox/core/database/dbtest"
	"github.com/AzielCF/az-inbox/core/tenant"
	instancesApp "github.com/AzielCF/az-inbox/instances/application"
	instancesDomain "github.com/AzielCF/az-inbox/instances/domain"
	instancesRepo "github.com/AzielCF/az-inbox/instances/repository"
	messagesApp "github.com/AzielCF/az-inbox/messages/application"
	messagesDomain "github.com/AzielCF/az-inbox/messages/domain"
	messagesRepo "github.com/AzielCF/az-inbox/messages/repository"
	pkgError "github.com/AzielCF/az-inbox/pkg/error"
	"github.com/AzielCF/az-inbox/pkg/gateway"
	"github.com/AzielCF/az-inbox/pkg/retry"
	queueApp "github.com/AzielCF/az-inbox/queue/application"
	queueDomain "github.com/AzielCF/az-inbox/queue/domain"
	queueRepo "github.com/AzielCF/az-inbox/queue/repository"
	"github.com/AzielCF/az-inbox/webhook/domain"
	"github.com/AzielCF/az-inbox/webhook/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultPriority = 4

type stubGateway struct {
	mu   sync.Mutex
	sent []gateway.SendRequest
}

func (g *stubGateway) Ping(context.Context) error             { return nil }
func (g *stubGateway) QRCode(context.Context) (string, error) { return "", nil }
func (g *stubGateway) Status(context.Context) (gateway.StatusResponse, error) {
	return gateway.StatusResponse{Connected: true}, nil
}
func (g *stubGateway) Logout(context.Context) error  { return nil }
func (g *stubGateway) Restart(context.Context) error { return nil }

func (g *stubGateway) Send(_ context.Context, req gateway.SendRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, req)
	return fmt.Sprintf("out-%d", len(g.sent)), nil
}

type stack struct {
	ctx           context.Context
	svc           *Service
	gw            *stubGateway
	queue         *queueApp.Queue
	logs          *repository.LogGormRepository
	contacts      *contactsApp.Service
	conversations *conversationsApp.Service
	messages      *messagesRepo.MessageGormRepository
	sender        *messagesApp.Sender
	rules         *autoreplyApp.Service
}

func newStack(t *testing.T, cfg Config, wrap ...func(Router) Router) *stack {
	t.Helper()
	bg := context.Background()
	acc := database.NewAccessor(dbtest.New(t))

	cRepo := contactsRepo.NewContactGormRepository(acc)
	lRepo := contactsRepo.NewListGormRepository(acc)
	iRepo := instancesRepo.NewInstanceGormRepository(acc)
	mRepo := messagesRepo.NewMessageGormRepository(acc)
	rRepo := autoreplyRepo.NewRuleGormRepository(acc)
	convRepo := conversationsRepo.NewConversationGormRepository(acc)
	jobs := queueRepo.NewJobGormRepository(acc)
	logs := repository.NewLogGormRepository(acc)
	for _, m := range []interface{ InitSchema(context.Context) error }{cRepo, lRepo, iRepo, mRepo, rRepo, convRepo, jobs, logs} {
		require.NoError(t, m.InitSchema(bg))
	}

	gw := &stubGateway{}
	instances := instancesApp.NewService(iRepo, func(gateway.Credentials) instancesApp.Gateway { return gw })
	contacts := contactsApp.NewService(cRepo, lRepo)
	conversations := conversationsApp.NewService(acc, convRepo, contacts)
	sender := messagesApp.NewSender(mRepo, contacts, instances, conversations, retry.Policy{MaxAttempts: 1})
	rules := autoreplyApp.NewService(rRepo, sender)
	queue := queueApp.New(jobs, queueApp.DefaultConfig())

	var router Router = conversations
	for _, w := range wrap {
		router = w(router)
	}
	processor := NewProcessor(acc, instances, contacts, mRepo, sender, rules, router, nil, StaticPriority(defaultPriority))
	svc := NewService(processor, logs, queue, cfg)
	queue.Register(queueDomain.JobProcessWebhook, svc.HandleProcessWebhook)

	ctx := tenant.WithTenant(bg, "tenant-a")
	_, err := instances.Register(ctx, instancesDomain.RegisterRequest{
		Name: "main", APIURL: "https://gw.test", APIKey: "k", InstanceID: "gw-inst-1", IsDefault: true,
	})
	require.NoError(t, err)

	return &stack{
		ctx: ctx, svc: svc, gw: gw, queue: queue, logs: logs,
		contacts: contacts, conversations: conversations, messages: mRepo,
		sender: sender, rules: rules,
	}
}

func messagePayload(id, from, body string) []byte {
	return []byte(fmt.Sprintf(`{
		"event": "message.received",
		"instanceId": "gw-inst-1",
		"data": {
			"id": %q, "from": %q, "to": "5511000000000@c.us",
			"body": %q, "type": "chat", "timestamp": 1714550400,
			"sender": {"pushname": "Maria"}
		}
	}`, id, from, body))
}

func TestIngest_NewPhoneCreatesContactAndInboxItem(t *testing.T) {
	s := newStack(t, Config{})

	res, err := s.svc.Ingest(context.Background(), messagePayload("wamid-1", "5511988887777@c.us", "oi"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)

	contact, created, err := s.contacts.FindOrCreateByPhone(s.ctx, "5511988887777", "")
	require.NoError(t, err)
	assert.False(t, created, "webhook should have created the contact")
	assert.Equal(t, "Maria", contact.Name)
	require.NotNil(t, contact.LastMessageAt)

	items, err := s.conversations.GetInboxItems(s.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, contact.ID, items[0].ContactID)
	assert.Equal(t, conversationsDomain.InboxPending, items[0].Status)
	assert.Equal(t, defaultPriority, items[0].Priority)

	msgs, err := s.messages.ListByContact(s.ctx, contact.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, messagesDomain.DirectionInbound, msgs[0].Direction)
	assert.Equal(t, messagesDomain.StatusReceived, msgs[0].Status)
	assert.False(t, msgs[0].IsMedia)
}

func TestIngest_DuplicateDeliveryIsIdempotent(t *testing.T) {
	s := newStack(t, Config{})
	payload := messagePayload("wamid-1", "5511988887777@c.us", "oi")

	_, err := s.svc.Ingest(context.Background(), payload)
	require.NoError(t, err)
	res, err := s.svc.Ingest(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)

	contact, _, err := s.contacts.FindOrCreateByPhone(s.ctx, "5511988887777", "")
	require.NoError(t, err)
	msgs, err := s.messages.ListByContact(s.ctx, contact.ID, 10)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	items, err := s.conversations.GetInboxItems(s.ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestIngest_OpenConversationSkipsInbox(t *testing.T) {
	s := newStack(t, Config{})
	contact, _, err := s.contacts.FindOrCreateByPhone(s.ctx, "5511988887777", "Maria")
	require.NoError(t, err)
	conv, err := s.conversations.CreateConversation(s.ctx, contact.ID, "agent-a", "")
	require.NoError(t, err)

	_, err = s.svc.Ingest(context.Background(), messagePayload("wamid-1", "5511988887777@s.whatsapp.net", "oi"))
	require.NoError(t, err)

	items, err := s.conversations.GetInboxItems(s.ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	updated, err := s.conversations.GetConversation(s.ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastMessageAt)

	msgs, err := s.messages.ListByContact(s.ctx, contact.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, conv.ID, msgs[0].ConversationID)
}

func TestIngest_AutoReply(t *testing.T) {
	s := newStack(t, Config{})
	_, err := s.rules.CreateRule(s.ctx, autoreplyDomain.CreateRuleRequest{Trigger: "preço", Reply: "Tabela em anexo"})
	require.NoError(t, err)

	_, err = s.svc.Ingest(context.Background(), messagePayload("wamid-1", "5511988887777@c.us", "Qual o PREÇO?"))
	require.NoError(t, err)

	require.Len(t, s.gw.sent, 1)
	assert.Equal(t, "5511988887777", s.gw.sent[0].Phone)
	assert.Equal(t, "Tabela em anexo", s.gw.sent[0].Message)
}

func TestIngest_GroupMessagesAreIgnored(t *testing.T) {
	s := newStack(t, Config{})
	res, err := s.svc.Ingest(context.Background(), messagePayload("wamid-1", "120363000000000000@g.us", "oi"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)

	items, err := s.conversations.GetInboxItems(s.ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestIngest_RejectsMalformedPayloadAndLogsIt(t *testing.T) {
	s := newStack(t, Config{})

	_, err := s.svc.Ingest(context.Background(), []byte(`{"event":"message","instanceId":"gw-inst-1","data":{"id":"x"}}`))
	var vErr pkgError.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "from")

	_, err = s.svc.Ingest(context.Background(), []byte(`not json`))
	require.ErrorAs(t, err, &vErr)

	entries, err := s.logs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, domain.LogRejected, e.Kind)
		assert.NotEmpty(t, e.Reason)
	}
}

func TestIngest_UnknownInstanceIsLogged(t *testing.T) {
	s := newStack(t, Config{})
	raw := []byte(`{"event":"message","instanceId":"ghost","data":{"id":"1","from":"5511988887777@c.us","type":"chat","timestamp":1714550400}}`)

	_, err := s.svc.Ingest(context.Background(), raw)
	require.ErrorIs(t, err, instancesDomain.ErrInstanceNotFound)

	entries, err := s.logs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ghost", entries[0].InstanceID)
	assert.JSONEq(t, string(raw), entries[0].Payload)
}

func TestIngest_UnknownEventIsAcknowledged(t *testing.T) {
	s := newStack(t, Config{Async: true})
	res, err := s.svc.Ingest(context.Background(), []byte(`{"event":"presence.update","instanceId":"gw-inst-1","data":{}}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Empty(t, res.JobID)
}

func TestIngest_StatusUpdatesAdvanceMessage(t *testing.T) {
	s := newStack(t, Config{})
	contact, _, err := s.contacts.FindOrCreateByPhone(s.ctx, "5511988887777", "Maria")
	require.NoError(t, err)
	out, err := s.sender.Send(s.ctx, messagesDomain.SendRequest{ContactID: contact.ID, Body: "hello"})
	require.NoError(t, err)

	status := func(body string) {
		t.Helper()
		_, err := s.svc.Ingest(context.Background(), []byte(body))
		require.NoError(t, err)
	}
	status(fmt.Sprintf(`{"event":"message.ack","instanceId":"gw-inst-1","data":{"id":%q,"ack":3}}`, out.GatewayMessageID))
	status(fmt.Sprintf(`{"event":"message.status","instanceId":"gw-inst-1","data":{"id":%q,"status":"delivered"}}`, out.GatewayMessageID))

	stored, err := s.messages.GetByGatewayID(s.ctx, out.GatewayMessageID)
	require.NoError(t, err)
	assert.Equal(t, messagesDomain.StatusRead, stored.Status)
	assert.NotNil(t, stored.ReadAt)

	res, err := s.svc.Ingest(context.Background(), []byte(`{"event":"message.status","instanceId":"gw-inst-1","data":{"id":"never-sent","status":"read"}}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
}

func TestIngest_AsyncEnqueuesAndQueueProcesses(t *testing.T) {
	s := newStack(t, Config{Async: true})

	res, err := s.svc.Ingest(context.Background(), messagePayload("wamid-1", "5511988887777@c.us", "oi"))
	require.NoError(t, err)
	require.NotEmpty(t, res.JobID)

	items, err := s.conversations.GetInboxItems(s.ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	batch, err := s.queue.ProcessQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, batch.Done)

	items, err = s.conversations.GetInboxItems(s.ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestVerify(t *testing.T) {
	assert.False(t, NewService(nil, nil, nil, Config{}).Verify(""))
	svc := NewService(nil, nil, nil, Config{VerifySecret: "s3cret"})
	assert.True(t, svc.Verify("s3cret"))
	assert.False(t, svc.Verify("nope"))
}

func TestParse_Timestamps(t *testing.T) {
	ctx := context.Background()
	for _, ts := range []string{`1714550400`, `1714550400000`, `"1714550400"`, `"2024-05-01T08:00:00Z"`} {
		raw := fmt.Sprintf(`{"event":"message","instanceId":"i","data":{"id":"1","from":"1@c.us","type":"image","timestamp":%s}}`, ts)
		ev, _, err := Parse(ctx, []byte(raw))
		require.NoError(t, err, ts)
		msg, ok := ev.(domain.MessageReceived)
		require.True(t, ok)
		assert.True(t, msg.Timestamp.Equal(time.Unix(1714550400, 0)), ts)
	}
}

func TestParse_StatusRequiresKnownValue(t *testing.T) {
	_, _, err := Parse(context.Background(), []byte(`{"event":"message.status","instanceId":"i","data":{"id":"1","status":"exploded"}}`))
	assert.Error(t, err)

	ev, _, err := Parse(context.Background(), []byte(`{"event":"message.ack","instanceId":"i","data":{"id":"1","ack":2}}`))
	require.NoError(t, err)
	update, ok := ev.(domain.StatusUpdate)
	require.True(t, ok)
	assert.Equal(t, messagesDomain.StatusDelivered, update.Status)

	payload, err := json.Marshal(map[string]any{"event": "message.ack", "instanceId": "i", "data": map[string]any{"id": "1"}})
	require.NoError(t, err)
	_, _, err = Parse(context.Background(), payload)
	assert.Error(t, err)
}

type flakyRouter struct {
	Router
	failures int
}

func (r *flakyRouter) CreateInboxItem(ctx context.Context, contactID, messageID string, priority int) (*conversationsDomain.InboxItem, bool, error) {
	if r.failures > 0 {
		r.failures--
		return nil, false, errors.New("store unavailable")
	}
	return r.Router.CreateInboxItem(ctx, contactID, messageID, priority)
}

func TestIngest_RoutingFailureIsRetriedOnRedelivery(t *testing.T) {
	s := newStack(t, Config{}, func(r Router) Router { return &flakyRouter{Router: r, failures: 1} })
	payload := messagePayload("wamid-flaky", "5511944443333@c.us", "")

	_, err := s.svc.Ingest(context.Background(), payload)
	require.Error(t, err)

	_, err = s.messages.GetByGatewayID(s.ctx, "wamid-flaky")
	assert.ErrorIs(t, err, messagesDomain.ErrMessageNotFound)

	res, err := s.svc.Ingest(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, res.Outcome)

	items, err := s.conversations.GetInboxItems(s.ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, conversationsDomain.InboxPending, items[0].Status)

	res, err = s.svc.Ingest(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
}
