package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AzielCF/az-inbox/core/app"
	"github.com/AzielCF/az-inbox/core/config"
	"github.com/AzielCF/az-inbox/core/database/dbtest"
	"github.com/AzielCF/az-inbox/core/tenant"
	instancesApp "github.com/AzielCF/az-inbox/instances/application"
	instancesDomain "github.com/AzielCF/az-inbox/instances/domain"
	"github.com/AzielCF/az-inbox/pkg/gateway"
	"github.com/AzielCF/az-inbox/pkg/security"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	jwtSecret     = "jwt-secret"
	verifySecret  = "verify-me"
	triggerSecret = "trigger-me"
)

type stubGateway struct{}

func (stubGateway) Ping(context.Context) error             { return nil }
func (stubGateway) QRCode(context.Context) (string, error) { return "qr-data", nil }
func (stubGateway) Status(context.Context) (gateway.StatusResponse, error) {
	return gateway.StatusResponse{Connected: true}, nil
}
func (stubGateway) Send(context.Context, gateway.SendRequest) (string, error) { return "out-1", nil }
func (stubGateway) Logout(context.Context) error                              { return nil }
func (stubGateway) Restart(context.Context) error                             { return nil }

type testServer struct {
	app       *fiber.App
	container *app.Container
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.JWTSecret = jwtSecret
	cfg.App.CorsAllowedOrigins = []string{"*"}
	cfg.Webhook.VerifySecret = verifySecret
	cfg.Queue.TriggerSecret = triggerSecret
	cfg.Inbox.DefaultPriority = 1

	c := app.New(cfg, dbtest.New(t), nil, app.WithGatewayFactory(func(gateway.Credentials) instancesApp.Gateway {
		return stubGateway{}
	}))
	require.NoError(t, c.Migrate(context.Background()))

	ctx := tenant.WithTenant(context.Background(), "tenant-a")
	_, err := c.Instances.Register(ctx, instancesDomain.RegisterRequest{
		Name: "main", APIURL: "https://gw.test", APIKey: "k", InstanceID: "gw-1", IsDefault: true,
	})
	require.NoError(t, err)

	return &testServer{app: NewServer(c), container: c}
}

func token(t *testing.T, user, tenantID string, admin bool) string {
	t.Helper()
	tok, err := security.GenerateToken([]byte(jwtSecret), user, tenantID, admin, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, bearer, body string) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func inbound(id string) string {
	return `{
		"event": "message.received",
		"instanceId": "gw-1",
		"data": {"id": "` + id + `", "from": "5511977776666@c.us", "type": "chat", "body": "olá", "timestamp": 1714550400}
	}`
}

func TestWebhook_Responses(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/webhooks/whatsapp", "", inbound("wamid-1"))
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = s.do(t, http.MethodPost, "/webhooks/whatsapp", "", `{"event": "message"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "instanceId")

	status, _ = s.do(t, http.MethodPost, "/webhooks/whatsapp", "", strings.Replace(inbound("wamid-2"), "gw-1", "gw-unknown", 1))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodGet, "/webhooks/whatsapp?secret="+verifySecret, "", "")
	assert.Equal(t, http.StatusOK, status)
	status, _ = s.do(t, http.MethodGet, "/webhooks/whatsapp?secret=nope", "", "")
	assert.Equal(t, http.StatusForbidden, status)
}

func TestAPI_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/api/conversations", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "AUTHENTICATION_ERROR", body["code"])

	status, _ = s.do(t, http.MethodGet, "/api/conversations", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/api/conversations", token(t, "agent-1", "tenant-a", false), "")
	assert.Equal(t, http.StatusOK, status)
}

func TestInboxAssignFlow(t *testing.T) {
	s := newTestServer(t)
	agent1 := token(t, "agent-1", "tenant-a", false)
	agent2 := token(t, "agent-2", "tenant-a", false)

	status, _ := s.do(t, http.MethodPost, "/webhooks/whatsapp", "", inbound("wamid-1"))
	require.Equal(t, http.StatusOK, status)

	status, body := s.do(t, http.MethodGet, "/api/inbox", agent1, "")
	require.Equal(t, http.StatusOK, status)
	items := body["results"].([]any)
	require.Len(t, items, 1)
	itemID := items[0].(map[string]any)["id"].(string)

	status, body = s.do(t, http.MethodGet, "/api/inbox", token(t, "agent-9", "tenant-b", false), "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["results"])

	status, body = s.do(t, http.MethodPost, "/api/inbox/"+itemID+"/assign", agent1, "")
	require.Equal(t, http.StatusOK, status)
	conv := body["results"].(map[string]any)
	assert.Equal(t, "agent-1", conv["owner_id"])
	convID := conv["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/inbox/"+itemID+"/assign", agent2, "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["code"])

	status, body = s.do(t, http.MethodGet, "/api/conversations", agent1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["results"], 1)

	// agent-2 is not the owner, so naming itself as the source must fail.
	status, _ = s.do(t, http.MethodPost, "/api/conversations/"+convID+"/transfer", agent2, `{"to_user_id": "agent-3"}`)
	assert.Equal(t, http.StatusConflict, status)

	// Naming the real owner as the source does not let another agent take over.
	status, body = s.do(t, http.MethodPost, "/api/conversations/"+convID+"/transfer", agent2, `{"from_user_id": "agent-1", "to_user_id": "agent-2"}`)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", body["code"])

	status, body = s.do(t, http.MethodGet, "/api/conversations/"+convID+"/transfers", agent1, "")
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["results"])

	status, body = s.do(t, http.MethodPost, "/api/conversations/"+convID+"/transfer", agent1, `{"to_user_id": "agent-2", "reason": "shift change"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "agent-1", body["results"].(map[string]any)["from_user_id"])

	status, body = s.do(t, http.MethodGet, "/api/conversations/"+convID+"/transfers", agent2, "")
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["results"], 1)

	status, _ = s.do(t, http.MethodDelete, "/api/conversations/"+convID+"/participants/agent-2", agent2, "")
	assert.Equal(t, http.StatusConflict, status)
}

func TestCreateConversation_Validation(t *testing.T) {
	s := newTestServer(t)
	agent := token(t, "agent-1", "tenant-a", false)

	status, body := s.do(t, http.MethodPost, "/api/conversations", agent, `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])

	status, _ = s.do(t, http.MethodPost, "/api/conversations", agent, `{"contact_id": "missing"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.do(t, http.MethodPost, "/api/conversations", agent, `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestQueueTrigger(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/queue/process", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/queue/process", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, status)

	agent := token(t, "agent-1", "tenant-a", false)
	status, body := s.do(t, http.MethodPost, "/api/contacts", agent, `{"name": "Ana", "phone": "5511955554444"}`)
	require.Equal(t, http.StatusCreated, status)
	contactID := body["results"].(map[string]any)["id"].(string)

	status, _ = s.do(t, http.MethodPost, "/api/messages/send?async=true", agent, `{"contact_id": "`+contactID+`", "message": "hello"}`)
	require.Equal(t, http.StatusAccepted, status)

	status, body = s.do(t, http.MethodPost, "/queue/process", triggerSecret, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 1, body["result"].(map[string]any)["done"])
}

func TestQueueStats_AdminOnly(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/api/queue/stats", token(t, "agent-1", "tenant-a", false), "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodGet, "/api/queue/stats", token(t, "root", "", true), "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body["results"], "pending")
}

func TestSettings_InboxPriority(t *testing.T) {
	s := newTestServer(t)
	admin := token(t, "root", "tenant-a", true)

	status, _ := s.do(t, http.MethodPut, "/api/settings", token(t, "agent-1", "tenant-a", false), `{"inbox_default_priority": 9}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodPut, "/api/settings", admin, `{"inbox_default_priority": 9}`)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 9, body["results"].(map[string]any)["inbox_default_priority"])

	status, _ = s.do(t, http.MethodPost, "/webhooks/whatsapp", "", inbound("wamid-7"))
	require.Equal(t, http.StatusOK, status)

	_, body = s.do(t, http.MethodGet, "/api/inbox", admin, "")
	items := body["results"].([]any)
	require.Len(t, items, 1)
	assert.EqualValues(t, 9, items[0].(map[string]any)["priority"])
}

func TestMonitoring_CountsInbound(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodPost, "/webhooks/whatsapp", "", inbound("wamid-m1"))
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/api/monitoring/stats", token(t, "agent-1", "tenant-a", false), "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodGet, "/api/monitoring/stats", token(t, "root", "", true), "")
	require.Equal(t, http.StatusOK, status)
	results := body["results"].(map[string]any)
	assert.GreaterOrEqual(t, results["total_inbound"].(float64), float64(1))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "valkey")
}

func TestTransfer_AdminOnBehalfOfOwner(t *testing.T) {
	s := newTestServer(t)
	agent1 := token(t, "agent-1", "tenant-a", false)

	status, _ := s.do(t, http.MethodPost, "/webhooks/whatsapp", "", inbound("wamid-a1"))
	require.Equal(t, http.StatusOK, status)
	_, body := s.do(t, http.MethodGet, "/api/inbox", agent1, "")
	itemID := body["results"].([]any)[0].(map[string]any)["id"].(string)
	_, body = s.do(t, http.MethodPost, "/api/inbox/"+itemID+"/assign", agent1, "")
	convID := body["results"].(map[string]any)["id"].(string)

	status, body = s.do(t, http.MethodPost, "/api/conversations/"+convID+"/transfer",
		token(t, "supervisor", "tenant-a", true), `{"from_user_id": "agent-1", "to_user_id": "agent-2"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "agent-1", body["results"].(map[string]any)["from_user_id"])
	assert.Equal(t, "agent-2", body["results"].(map[string]any)["to_user_id"])
}
