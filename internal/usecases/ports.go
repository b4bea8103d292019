package usecases

import (
	"context"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/infrastructure/realtime"
	"github.com/VitorRandrade/omnibot-hub-api/internal/repository"
)

// Ports consumed by the usecases. The pgx repositories satisfy them in
// production; tests plug in recorders.

type TenantResolver interface {
	ResolveTenant(ctx context.Context, userID string) (string, error)
}

type MessageStore interface {
	Append(ctx context.Context, msg *entities.Message) error
	MarkRead(ctx context.Context, tenantID, conversationID string, messageIDs []string) (int64, []string, error)
	UnreadCount(ctx context.Context, tenantID, conversationID string) (int, error)
	List(ctx context.Context, tenantID, conversationID string, p repository.ListParams) ([]entities.Message, int, error)
}

type ConversationDirectory interface {
	ResolveOrCreate(ctx context.Context, tenantID string, channel entities.ChannelType, customerID string) (*entities.Conversation, bool, error)
	Create(ctx context.Context, conv *entities.Conversation) error
	GetByID(ctx context.Context, tenantID, id string) (*entities.Conversation, error)
	List(ctx context.Context, tenantID string, status entities.ConversationStatus, page, perPage int) ([]entities.Conversation, int, error)
	TouchLastMessage(ctx context.Context, conversationID, preview string) error
	SetStatus(ctx context.Context, tenantID, id string, status entities.ConversationStatus) (*entities.Conversation, error)
	AssignAgent(ctx context.Context, tenantID, id, agentID string) (*entities.Conversation, error)
}

type CustomerDirectory interface {
	ResolveOrCreate(ctx context.Context, tenantID, externalID, name, phone string) (*entities.Customer, bool, error)
	GetByID(ctx context.Context, tenantID, id string) (*entities.Customer, error)
}

type ChannelDirectory interface {
	GetByTypeAndID(ctx context.Context, channelType entities.ChannelType, id string) (*entities.Channel, error)
	GetByTenantAndType(ctx context.Context, tenantID string, channelType entities.ChannelType) (*entities.Channel, error)
	GetDefaultByType(ctx context.Context, channelType entities.ChannelType) (*entities.Channel, error)
}

type UsageRecorder interface {
	IncrementSent(ctx context.Context, tenantID string) error
	IncrementReceived(ctx context.Context, tenantID string) error
}

// Broadcaster is the hub seen from the ingestion side.
type Broadcaster interface {
	Broadcast(room string, ev realtime.Event)
	BroadcastExcept(room string, ev realtime.Event, excludeUserID string)
}

// DeliveryJob carries an agent reply to the background queue for outbound
// channel delivery.
type DeliveryJob struct {
	TenantID       string               `json:"tenantId"`
	ConversationID string               `json:"conversationId"`
	MessageID      string               `json:"messageId"`
	Channel        entities.ChannelType `json:"channel"`
	To             string               `json:"to"`
	Content        string               `json:"content"`
}

type DeliveryQueue interface {
	EnqueueDelivery(ctx context.Context, job DeliveryJob) error
}
