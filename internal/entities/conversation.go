package entities

import (
	"strings"
	"time"
)

type ChannelType string

const (
	ChannelWhatsApp  ChannelType = "whatsapp"
	ChannelInstagram ChannelType = "instagram"
	ChannelFacebook  ChannelType = "facebook"
	ChannelTelegram  ChannelType = "telegram"
	ChannelWeb       ChannelType = "web"
	ChannelEmail     ChannelType = "email"
)

func ValidChannelType(c ChannelType) bool {
	switch c {
	case ChannelWhatsApp, ChannelInstagram, ChannelFacebook,
		ChannelTelegram, ChannelWeb, ChannelEmail:
		return true
	}
	return false
}

type ConversationStatus string

const (
	StatusOpen       ConversationStatus = "open"
	StatusInProgress ConversationStatus = "in_progress"
	StatusResolved   ConversationStatus = "resolved"
	StatusClosed     ConversationStatus = "closed"
)

func ValidConversationStatus(s ConversationStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusClosed:
		return true
	}
	return false
}

type Conversation struct {
	ID            string             `json:"id"`
	TenantID      string             `json:"tenantId"`
	Channel       ChannelType        `json:"channel"`
	CustomerID    string             `json:"customerId"`
	AgentID       *string            `json:"agentId,omitempty"`
	Status        ConversationStatus `json:"status"`
	LastMessage   string             `json:"lastMessage,omitempty"`
	LastMessageAt *time.Time         `json:"lastMessageAt,omitempty"`
	Metadata      Metadata           `json:"metadata,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`

	// Joined for list views and realtime summaries; not a column.
	CustomerName string `json:"customerName,omitempty"`
}

const previewMaxRunes = 120

// PreviewText truncates message content to the length stored as a
// conversation's last-message preview. Rune-safe so multi-byte content
// never gets cut mid-character.
func PreviewText(content string) string {
	content = strings.TrimSpace(content)
	runes := []rune(content)
	if len(runes) <= previewMaxRunes {
		return content
	}
	return string(runes[:previewMaxRunes]) + "…"
}
