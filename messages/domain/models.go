package domain

import "time"

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusReceived  Status = "received"
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusFailed    Status = "failed"
)

// rank orders delivery progress; a status update never moves a message
// backwards. Failed is terminal and outranks everything.
func (s Status) rank() int {
	switch s {
	case StatusReceived, StatusPending:
		return 0
	case StatusSent:
		return 1
	case StatusDelivered:
		return 2
	case StatusRead:
		return 3
	case StatusFailed:
		return 4
	}
	return -1
}

// Advances reports whether moving from s to next is forward progress.
func (s Status) Advances(next Status) bool {
	return next.rank() > s.rank()
}

type Message struct {
	ID               string     `json:"id"`
	TenantID         string     `json:"tenant_id"`
	ContactID        string     `json:"contact_id"`
	ConversationID   string     `json:"conversation_id,omitempty"`
	CampaignID       string     `json:"campaign_id,omitempty"`
	InstanceID       string     `json:"instance_id"`
	Direction        Direction  `json:"direction"`
	GatewayMessageID string     `json:"gateway_message_id,omitempty"`
	Body             string     `json:"body"`
	Type             string     `json:"type"`
	MediaURL         string     `json:"media_url,omitempty"`
	MediaType        string     `json:"media_type,omitempty"`
	Caption          string     `json:"caption,omitempty"`
	IsMedia          bool       `json:"is_media"`
	Status           Status     `json:"status"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// IsMediaType classifies gateway message types; anything but plain text
// carries media.
func IsMediaType(t string) bool {
	switch t {
	case "", "chat", "text", "conversation", "extendedTextMessage":
		return false
	}
	return true
}

// SendRequest describes one outbound message. An empty InstanceID selects the
// tenant's default instance.
type SendRequest struct {
	ContactID    string `json:"contact_id"`
	InstanceID   string `json:"instance_id"`
	Body         string `json:"message"`
	MediaURL     string `json:"media_url"`
	MediaType    string `json:"media_type"`
	MediaCaption string `json:"caption"`
	CampaignID   string `json:"campaign_id,omitempty"`
}

// SendJob is the queue payload of a deferred send.
type SendJob struct {
	TenantID string      `json:"tenant_id"`
	Request  SendRequest `json:"request"`
}
