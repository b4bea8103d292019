package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/infrastructure/realtime"
	"github.com/VitorRandrade/omnibot-hub-api/internal/repository"
)

// IngestUsecase is the single pipeline behind both message ingress paths:
// the authenticated REST call and the external webhook. Either way the
// sequence is persist, touch the conversation preview, then broadcast —
// a client receiving message:new must already be able to fetch the message.
type IngestUsecase struct {
	tenants       TenantResolver
	messages      MessageStore
	conversations ConversationDirectory
	customers     CustomerDirectory
	channels      ChannelDirectory
	usage         UsageRecorder
	hub           Broadcaster
	queue         DeliveryQueue
	log           zerolog.Logger
}

func NewIngestUsecase(
	tenants TenantResolver,
	messages MessageStore,
	conversations ConversationDirectory,
	customers CustomerDirectory,
	channels ChannelDirectory,
	usage UsageRecorder,
	hub Broadcaster,
	queue DeliveryQueue,
	log zerolog.Logger,
) *IngestUsecase {
	return &IngestUsecase{
		tenants:       tenants,
		messages:      messages,
		conversations: conversations,
		customers:     customers,
		channels:      channels,
		usage:         usage,
		hub:           hub,
		queue:         queue,
		log:           log.With().Str("component", "ingest").Logger(),
	}
}

type SendMessageInput struct {
	UserID         string
	ConversationID string
	SenderType     entities.SenderType
	SenderID       *string
	Content        string
	ContentType    entities.ContentType
	Metadata       entities.Metadata
	ReplyToID      *string
}

// SendMessage is the authenticated ingress path. The tenant comes from the
// principal via the tenant resolver, never from the request body.
func (uc *IngestUsecase) SendMessage(ctx context.Context, in SendMessageInput) (*entities.Message, error) {
	if in.Content == "" {
		return nil, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if in.SenderType == "" {
		in.SenderType = entities.SenderAgent
	}
	if !entities.ValidSenderType(in.SenderType) {
		return nil, fmt.Errorf("%w: invalid sender type %q", ErrValidation, in.SenderType)
	}
	if in.ContentType == "" {
		in.ContentType = entities.ContentText
	}
	if !entities.ValidContentType(in.ContentType) {
		return nil, fmt.Errorf("%w: invalid content type %q", ErrValidation, in.ContentType)
	}

	tenantID, err := uc.tenants.ResolveTenant(ctx, in.UserID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	conv, err := uc.conversations.GetByID(ctx, tenantID, in.ConversationID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	senderID := in.SenderID
	if senderID == nil && in.SenderType == entities.SenderAgent {
		id := in.UserID
		senderID = &id
	}

	msg := &entities.Message{
		TenantID:       tenantID,
		ConversationID: conv.ID,
		SenderType:     in.SenderType,
		SenderID:       senderID,
		Content:        in.Content,
		ContentType:    in.ContentType,
		Metadata:       in.Metadata,
		ReplyToID:      in.ReplyToID,
	}
	if err := uc.messages.Append(ctx, msg); err != nil {
		return nil, notFoundOr(err)
	}

	uc.afterAppend(ctx, conv, msg)
	return msg, nil
}

type WebhookMessageInput struct {
	FromExternalID string
	FromName       string
	FromPhone      string
	Content        string
	ContentType    entities.ContentType
	Metadata       entities.Metadata
}

type WebhookResult struct {
	Received       bool      `json:"received"`
	CustomerID     string    `json:"customerId"`
	ConversationID string    `json:"conversationId"`
	MessageID      string    `json:"messageId"`
	Timestamp      time.Time `json:"timestamp"`
}

// IngestWebhookMessage is the external ingress path. The tenant is already
// resolved from the channel the payload arrived on; the sender is always the
// customer. New customers and conversations are created on first contact.
func (uc *IngestUsecase) IngestWebhookMessage(ctx context.Context, channel *entities.Channel, in WebhookMessageInput) (*WebhookResult, error) {
	if in.FromExternalID == "" {
		return nil, fmt.Errorf("%w: from.id is required", ErrValidation)
	}
	if in.Content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrValidation)
	}
	if in.ContentType == "" {
		in.ContentType = entities.ContentText
	}
	if !entities.ValidContentType(in.ContentType) {
		return nil, fmt.Errorf("%w: invalid content type %q", ErrValidation, in.ContentType)
	}

	customer, _, err := uc.customers.ResolveOrCreate(ctx, channel.TenantID, in.FromExternalID, in.FromName, in.FromPhone)
	if err != nil {
		return nil, err
	}

	conv, created, err := uc.conversations.ResolveOrCreate(ctx, channel.TenantID, channel.Type, customer.ID)
	if err != nil {
		return nil, err
	}
	if created {
		uc.hub.Broadcast(realtime.TenantRoom(channel.TenantID), realtime.NewEvent(realtime.EventConversationNew, conv))
	}

	senderID := customer.ID
	msg := &entities.Message{
		TenantID:       channel.TenantID,
		ConversationID: conv.ID,
		SenderType:     entities.SenderCustomer,
		SenderID:       &senderID,
		Content:        in.Content,
		ContentType:    in.ContentType,
		Metadata:       in.Metadata,
	}
	if err := uc.messages.Append(ctx, msg); err != nil {
		return nil, notFoundOr(err)
	}

	uc.afterAppend(ctx, conv, msg)

	return &WebhookResult{
		Received:       true,
		CustomerID:     customer.ID,
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Timestamp:      msg.CreatedAt,
	}, nil
}

// ResolveChannel maps a webhook URL (type + channel id) to its channel
// config, and with it the owning tenant.
func (uc *IngestUsecase) ResolveChannel(ctx context.Context, channelType entities.ChannelType, channelID string) (*entities.Channel, error) {
	if !entities.ValidChannelType(channelType) {
		return nil, fmt.Errorf("%w: unknown channel type %q", ErrNotFound, channelType)
	}
	ch, err := uc.channels.GetByTypeAndID(ctx, channelType, channelID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ch, nil
}

// ResolveTenantChannel maps a tenant plus channel type to the tenant's
// channel row. Native channel clients use it to route inbound traffic.
func (uc *IngestUsecase) ResolveTenantChannel(ctx context.Context, tenantID string, channelType entities.ChannelType) (*entities.Channel, error) {
	ch, err := uc.channels.GetByTenantAndType(ctx, tenantID, channelType)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ch, nil
}

// ResolveDefaultChannel maps a bare channel type (the n8n ingress carries no
// channel id) to the deployment's default channel of that type.
func (uc *IngestUsecase) ResolveDefaultChannel(ctx context.Context, channelType entities.ChannelType) (*entities.Channel, error) {
	if !entities.ValidChannelType(channelType) {
		return nil, fmt.Errorf("%w: unknown channel type %q", ErrNotFound, channelType)
	}
	ch, err := uc.channels.GetDefaultByType(ctx, channelType)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return ch, nil
}

// MarkRead transitions unread messages and broadcasts message:read to the
// other viewers of the conversation. Failures are a non-critical UX signal:
// they are logged and reported as zero rows, never raised.
func (uc *IngestUsecase) MarkRead(ctx context.Context, userID, conversationID string, messageIDs []string) (int64, error) {
	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return 0, notFoundOr(err)
	}

	count, marked, err := uc.messages.MarkRead(ctx, tenantID, conversationID, messageIDs)
	if err != nil {
		uc.log.Warn().Err(err).Str("conversation", conversationID).Msg("mark-read failed")
		return 0, nil
	}
	if count > 0 {
		uc.hub.BroadcastExcept(realtime.ConversationRoom(conversationID),
			realtime.NewEvent(realtime.EventMessageRead, realtime.ReadPayload{
				ConversationID: conversationID,
				MessageIDs:     marked,
			}), userID)
	}
	return count, nil
}

// UnreadCount counts unread customer messages in the conversation.
func (uc *IngestUsecase) UnreadCount(ctx context.Context, userID, conversationID string) (int, error) {
	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return 0, notFoundOr(err)
	}
	return uc.messages.UnreadCount(ctx, tenantID, conversationID)
}

// ListMessages pages through a conversation chronologically.
func (uc *IngestUsecase) ListMessages(ctx context.Context, userID, conversationID string, p repository.ListParams) ([]entities.Message, int, error) {
	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return nil, 0, notFoundOr(err)
	}
	if _, err := uc.conversations.GetByID(ctx, tenantID, conversationID); err != nil {
		return nil, 0, notFoundOr(err)
	}
	return uc.messages.List(ctx, tenantID, conversationID, p)
}

// afterAppend runs the fixed post-persist sequence: preview touch, usage
// counters, realtime fan-out to both rooms, then outbound delivery for agent
// replies on external channels. Everything here is best-effort; the message
// is already durable.
func (uc *IngestUsecase) afterAppend(ctx context.Context, conv *entities.Conversation, msg *entities.Message) {
	if err := uc.conversations.TouchLastMessage(ctx, conv.ID, entities.PreviewText(msg.Content)); err != nil {
		uc.log.Warn().Err(err).Str("conversation", conv.ID).Msg("preview update failed")
	}

	if uc.usage != nil {
		var err error
		if msg.SenderType == entities.SenderCustomer {
			err = uc.usage.IncrementReceived(ctx, msg.TenantID)
		} else {
			err = uc.usage.IncrementSent(ctx, msg.TenantID)
		}
		if err != nil {
			uc.log.Warn().Err(err).Str("tenant", msg.TenantID).Msg("usage counter failed")
		}
	}

	ev := realtime.NewEvent(realtime.EventMessageNew, msg)
	uc.hub.Broadcast(realtime.ConversationRoom(conv.ID), ev)
	uc.hub.Broadcast(realtime.TenantRoom(msg.TenantID), ev)

	uc.enqueueOutbound(ctx, conv, msg)
}

func (uc *IngestUsecase) enqueueOutbound(ctx context.Context, conv *entities.Conversation, msg *entities.Message) {
	if uc.queue == nil || msg.SenderType != entities.SenderAgent {
		return
	}
	switch conv.Channel {
	case entities.ChannelWhatsApp, entities.ChannelTelegram:
	default:
		// Web and the remaining channels deliver through the hub only.
		return
	}

	customer, err := uc.customers.GetByID(ctx, conv.TenantID, conv.CustomerID)
	if err != nil {
		uc.log.Warn().Err(err).Str("conversation", conv.ID).Msg("outbound skipped: customer lookup failed")
		return
	}

	job := DeliveryJob{
		TenantID:       conv.TenantID,
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Channel:        conv.Channel,
		To:             customer.ExternalID,
		Content:        msg.Content,
	}
	if err := uc.queue.EnqueueDelivery(ctx, job); err != nil {
		uc.log.Warn().Err(err).Str("message", msg.ID).Msg("outbound enqueue failed")
	}
}

// notFoundOr converts the store's no-rows sentinel into the public taxonomy
// and passes everything else through untouched.
func notFoundOr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
