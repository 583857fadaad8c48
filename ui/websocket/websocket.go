package websocket

import (
	"context"
	"encoding/json"

	campaignsDomain "github.com/AzielCF/az-inbox/campaigns/domain"
	"github.com/AzielCF/az-inbox/infrastructure/valkey"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// BroadcastMessage is the frame every subscriber receives.
type BroadcastMessage struct {
	Code     string                        `json:"code"`
	TenantID string                        `json:"-"`
	Result   campaignsDomain.ProgressEvent `json:"result"`
	SenderID string                        `json:"sender_id,omitempty"`
}

// envelope carries TenantID across nodes; BroadcastMessage hides it from
// browsers.
type envelope struct {
	TenantID string           `json:"tenant_id"`
	Message  BroadcastMessage `json:"message"`
}

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type subscription struct {
	conn       Conn
	tenantID   string
	campaignID string
}

type topic struct {
	tenantID   string
	campaignID string
}

// Hub fans campaign progress out to the websocket subscribers of that
// campaign. With Valkey configured, events published on one node reach
// subscribers connected to any node.
type Hub struct {
	register   chan subscription
	unregister chan Conn
	broadcast  chan BroadcastMessage

	subs map[topic]map[Conn]struct{}

	vk      *valkey.Client
	channel string
	localID string
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan subscription),
		unregister: make(chan Conn),
		broadcast:  make(chan BroadcastMessage, 256),
		subs:       make(map[topic]map[Conn]struct{}),
	}
}

// WithValkey enables cross-node delivery over Valkey pub/sub.
func (h *Hub) WithValkey(client *valkey.Client, serverID string) *Hub {
	h.vk = client
	h.localID = serverID
	h.channel = "ws:campaign_progress"
	return h
}

// PublishProgress queues ev for delivery. It never blocks the caller: when
// the hub is saturated the event is dropped, the next one supersedes it.
func (h *Hub) PublishProgress(tenantID string, ev campaignsDomain.ProgressEvent) {
	msg := BroadcastMessage{Code: "CAMPAIGN_PROGRESS", TenantID: tenantID, Result: ev}
	select {
	case h.broadcast <- msg:
	default:
		logrus.Warnf("[WS] Hub saturated, dropping progress for campaign %s", ev.CampaignID)
	}
}

// Run owns the subscriber map until ctx is done. All writes to connections
// happen on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	if h.vk != nil {
		h.startValkeySubscriber(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.subs {
				for conn := range conns {
					_ = conn.Close()
				}
			}
			return

		case sub := <-h.register:
			key := topic{sub.tenantID, sub.campaignID}
			if h.subs[key] == nil {
				h.subs[key] = make(map[Conn]struct{})
			}
			h.subs[key][sub.conn] = struct{}{}
			logrus.Debugf("[WS] Subscriber added for campaign %s", sub.campaignID)

		case conn := <-h.unregister:
			h.remove(conn)

		case msg := <-h.broadcast:
			h.broadcastToLocal(msg)
			if h.vk != nil && msg.SenderID == "" {
				h.publishToValkey(msg)
			}
		}
	}
}

func (h *Hub) remove(conn Conn) {
	for key, conns := range h.subs {
		if _, ok := conns[conn]; ok {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.subs, key)
			}
		}
	}
}

func (h *Hub) broadcastToLocal(msg BroadcastMessage) {
	conns := h.subs[topic{msg.TenantID, msg.Result.CampaignID}]
	if len(conns) == 0 {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logrus.Errorf("[WS] Marshal error: %v", err)
		return
	}
	for conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logrus.Debugf("[WS] Write error, dropping subscriber: %v", err)
			_ = conn.Close()
			h.remove(conn)
		}
	}
}

func (h *Hub) publishToValkey(msg BroadcastMessage) {
	msg.SenderID = h.localID
	data, err := json.Marshal(envelope{TenantID: msg.TenantID, Message: msg})
	if err != nil {
		return
	}
	if err := h.vk.Publish(context.Background(), h.channel, data); err != nil {
		logrus.Errorf("[WS] Failed to publish to Valkey: %v", err)
	}
}

func (h *Hub) startValkeySubscriber(ctx context.Context) {
	logrus.Info("[WS] Starting Valkey subscriber for campaign progress")
	go func() {
		err := h.vk.Subscribe(ctx, h.channel, func(payload []byte) {
			var env envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				return
			}
			if env.Message.SenderID == h.localID {
				return
			}
			env.Message.TenantID = env.TenantID
			select {
			case h.broadcast <- env.Message:
			case <-ctx.Done():
			}
		})
		if err != nil && ctx.Err() == nil {
			logrus.Errorf("[WS] Valkey subscriber failed: %v", err)
		}
	}()
}

// RegisterRoutes mounts GET /campaigns/:id/progress. The router must already
// have authenticated the upgrade request and stored the tenant in Locals
// under tenantKey.
func RegisterRoutes(router fiber.Router, hub *Hub, tenantKey string) {
	router.Use("/campaigns/:id/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})

	router.Get("/campaigns/:id/progress", websocket.New(func(conn *websocket.Conn) {
		tenantID, _ := conn.Locals(tenantKey).(string)
		sub := subscription{conn: conn, tenantID: tenantID, campaignID: conn.Params("id")}
		hub.register <- sub
		defer func() {
			hub.unregister <- conn
			_ = conn.Close()
		}()

		// Subscribers only listen; reading detects the close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logrus.Debugf("[WS] Read error: %v", err)
				}
				return
			}
		}
	}))
}
