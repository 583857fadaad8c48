package domain

import "time"

// Instance is one WhatsApp number hosted on the external gateway.
type Instance struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	APIURL      string    `json:"api_url"`
	APIKey      string    `json:"-"`
	InstanceID  string    `json:"instance_id"`
	Connected   bool      `json:"connected"`
	PhoneNumber string    `json:"phone_number,omitempty"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Name       string `json:"name"`
	APIURL     string `json:"api_url"`
	APIKey     string `json:"api_key"`
	InstanceID string `json:"instance_id"`
	IsDefault  bool   `json:"is_default"`
}
