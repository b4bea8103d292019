package entities

import "time"

// Channel is a tenant's configured messaging surface. Webhook traffic is
// mapped to a tenant through the channel it arrives on.
type Channel struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenantId"`
	Type      ChannelType `json:"type"`
	Name      string      `json:"name"`
	Secret    string      `json:"-"`
	Config    Metadata    `json:"config,omitempty"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"createdAt"`
}

// Customer is the external party of a conversation, identified by the id the
// channel knows it by (phone number, IG handle, ...).
type Customer struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	ExternalID string    `json:"externalId"`
	Name       string    `json:"name,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
