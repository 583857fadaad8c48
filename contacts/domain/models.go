package domain

import "time"

// Contact is a phone-addressable counterparty owned by one tenant. Phone is
// always stored digits-only.
type Contact struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Name          string     `json:"name"`
	Phone         string     `json:"phone"`
	Email         string     `json:"email,omitempty"`
	Company       string     `json:"company,omitempty"`
	Notes         string     `json:"notes,omitempty"`
	Active        bool       `json:"active"`
	Tags          []string   `json:"tags"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type ContactList struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateContactRequest struct {
	Name    string   `json:"name"`
	Phone   string   `json:"phone"`
	Email   string   `json:"email"`
	Company string   `json:"company"`
	Notes   string   `json:"notes"`
	Tags    []string `json:"tags"`
}

type CreateListRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AddMembersRequest struct {
	ContactIDs []string `json:"contact_ids"`
}

type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
