package domain

import (
	"strings"
	"time"

	contactsDomain "github.com/AzielCF/az-inbox/contacts/domain"
)

type Status string

const (
	StatusDraft               Status = "draft"
	StatusScheduled           Status = "scheduled"
	StatusSending             Status = "sending"
	StatusSent                Status = "sent"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
)

// Terminal reports whether fan-out has finished for good.
func (s Status) Terminal() bool {
	switch s {
	case StatusSent, StatusCompletedWithErrors, StatusFailed:
		return true
	}
	return false
}

type Campaign struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Name         string     `json:"name"`
	Template     string     `json:"message"`
	ListID       string     `json:"list_id"`
	InstanceID   string     `json:"instance_id,omitempty"`
	MediaURL     string     `json:"media_url,omitempty"`
	MediaType    string     `json:"media_type,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	Status       Status     `json:"status"`
	Total        int        `json:"total"`
	Sent         int        `json:"sent"`
	Delivered    int        `json:"delivered"`
	Read         int        `json:"read"`
	Failed       int        `json:"failed"`
	Progress     int        `json:"progress"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Processed is the number of contacts fan-out has already resolved.
func (c *Campaign) Processed() int {
	return c.Sent + c.Failed
}

type CreateRequest struct {
	Name         string     `json:"name"`
	Message      string     `json:"message"`
	ListID       string     `json:"list_id"`
	InstanceID   string     `json:"instance_id"`
	MediaURL     string     `json:"media_url"`
	MediaType    string     `json:"media_type"`
	ScheduledFor *time.Time `json:"scheduled_for"`
}

// SendPayload is the send_campaign job body. ContactIDs is frozen at launch
// so a retried job walks the same recipients in the same order.
type SendPayload struct {
	TenantID   string   `json:"tenant_id"`
	CampaignID string   `json:"campaign_id"`
	ContactIDs []string `json:"contact_ids"`
}

// ProgressEvent is pushed to live subscribers after every contact.
type ProgressEvent struct {
	CampaignID string `json:"campaign_id"`
	Status     Status `json:"status"`
	Total      int    `json:"total"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Progress   int    `json:"progress"`
}

// Personalize fills {name}, {company} and {phone}. A contact without a name
// is addressed by phone.
func Personalize(template string, c *contactsDomain.Contact) string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = c.Phone
	}
	return strings.NewReplacer(
		"{name}", name,
		"{company}", c.Company,
		"{phone}", c.Phone,
	).Replace(template)
}

// Percent returns done/total as an integer percentage in [0, 100].
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}

// FinalStatus derives the terminal status from the failure ratio: every
// send failed is failed, a ratio above threshold is completed_with_errors,
// anything else is sent.
func FinalStatus(total, failed int, threshold float64) Status {
	if total > 0 && failed >= total {
		return StatusFailed
	}
	if total > 0 && float64(failed)/float64(total) > threshold {
		return StatusCompletedWithErrors
	}
	return StatusSent
}
