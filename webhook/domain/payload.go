package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Payload is the raw gateway webhook body. It is only trusted after
// validation; handlers work on the Event produced by parsing it.
type Payload struct {
	Event      string      `json:"event"`
	InstanceID string      `json:"instanceId"`
	Data       PayloadData `json:"data"`
}

type PayloadData struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Body      string    `json:"body"`
	Type      string    `json:"type"`
	Timestamp Timestamp `json:"timestamp"`
	Sender    *Sender   `json:"sender,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Status    string    `json:"status,omitempty"`
	Ack       *int      `json:"ack,omitempty"`
}

type Sender struct {
	Name     string `json:"name,omitempty"`
	PushName string `json:"pushname,omitempty"`
}

// DisplayName prefers the saved contact name over the push name.
func (s *Sender) DisplayName() string {
	if s == nil {
		return ""
	}
	if s.Name != "" {
		return s.Name
	}
	return s.PushName
}

type Kind int

const (
	KindUnknown Kind = iota
	KindMessage
	KindStatus
)

func (p Payload) Kind() Kind {
	switch p.Event {
	case "message", "message.received":
		return KindMessage
	case "message.status", "message.ack":
		return KindStatus
	}
	return KindUnknown
}

// Timestamp accepts unix seconds, unix milliseconds (as number or string)
// and RFC 3339 strings.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			t.Time = time.Time{}
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
		raw = s
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	t.Time = fromUnix(int64(n))
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.Unix(), 10)), nil
}

func fromUnix(n int64) time.Time {
	if n > 1e12 {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}
