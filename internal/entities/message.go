package entities

import "time"

type SenderType string

const (
	SenderCustomer SenderType = "customer"
	SenderAgent    SenderType = "agent"
	SenderSystem   SenderType = "system"
	SenderBot      SenderType = "bot"
)

// InitialRead returns the read flag a freshly appended message starts with.
// Only customer messages carry unread semantics; everything the business side
// writes is considered read from its own perspective.
func (s SenderType) InitialRead() bool {
	return s != SenderCustomer
}

func ValidSenderType(s SenderType) bool {
	switch s {
	case SenderCustomer, SenderAgent, SenderSystem, SenderBot:
		return true
	}
	return false
}

type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImage    ContentType = "image"
	ContentAudio    ContentType = "audio"
	ContentVideo    ContentType = "video"
	ContentDocument ContentType = "document"
	ContentLocation ContentType = "location"
	ContentSticker  ContentType = "sticker"
	ContentContact  ContentType = "contact"
)

func ValidContentType(c ContentType) bool {
	switch c {
	case ContentText, ContentImage, ContentAudio, ContentVideo,
		ContentDocument, ContentLocation, ContentSticker, ContentContact:
		return true
	}
	return false
}

type Message struct {
	ID             string      `json:"id"`
	TenantID       string      `json:"tenantId"`
	ConversationID string      `json:"conversationId"`
	SenderType     SenderType  `json:"senderType"`
	SenderID       *string     `json:"senderId,omitempty"`
	SenderName     string      `json:"senderName,omitempty"`
	SenderAvatar   string      `json:"senderAvatar,omitempty"`
	Content        string      `json:"content"`
	ContentType    ContentType `json:"type"`
	Metadata       Metadata    `json:"metadata,omitempty"`
	IsRead         bool        `json:"isRead"`
	ReadAt         *time.Time  `json:"readAt,omitempty"`
	ReplyToID      *string     `json:"replyToId,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}
