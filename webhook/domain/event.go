package domain

import (
	"time"

	messagesDomain "github.com/AzielCF/az-inbox/messages/domain"
)

// Event is the closed set of webhook events the ingestion pipeline knows.
// Exactly MessageReceived, StatusUpdate and UnknownEvent implement it.
type Event interface {
	event()
	Instance() string
}

type MessageReceived struct {
	InstanceID       string
	GatewayMessageID string
	From             string
	SenderName       string
	Body             string
	Type             string
	MediaURL         string
	MediaType        string
	Caption          string
	Timestamp        time.Time
}

type StatusUpdate struct {
	InstanceID       string
	GatewayMessageID string
	Status           messagesDomain.Status
	Timestamp        time.Time
}

// UnknownEvent is acknowledged and dropped.
type UnknownEvent struct {
	InstanceID string
	Name       string
}

func (MessageReceived) event() {}
func (StatusUpdate) event()    {}
func (UnknownEvent) event()    {}

func (e MessageReceived) Instance() string { return e.InstanceID }
func (e StatusUpdate) Instance() string    { return e.InstanceID }
func (e UnknownEvent) Instance() string    { return e.InstanceID }

// StatusFromGateway maps a gateway delivery status string. ok is false for
// strings the gateway is not known to send.
func StatusFromGateway(s string) (messagesDomain.Status, bool) {
	switch s {
	case "pending":
		return messagesDomain.StatusPending, true
	case "sent", "server":
		return messagesDomain.StatusSent, true
	case "delivered", "delivery":
		return messagesDomain.StatusDelivered, true
	case "read", "played":
		return messagesDomain.StatusRead, true
	case "failed", "error":
		return messagesDomain.StatusFailed, true
	}
	return "", false
}

// StatusFromAck maps WhatsApp numeric acks: -1 error, 0 pending, 1 server,
// 2 device, 3 read, 4 played.
func StatusFromAck(ack int) (messagesDomain.Status, bool) {
	switch {
	case ack < 0:
		return messagesDomain.StatusFailed, true
	case ack == 0:
		return messagesDomain.StatusPending, true
	case ack == 1:
		return messagesDomain.StatusSent, true
	case ack == 2:
		return messagesDomain.StatusDelivered, true
	case ack <= 4:
		return messagesDomain.StatusRead, true
	}
	return "", false
}
