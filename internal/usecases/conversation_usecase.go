package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/infrastructure/realtime"
)

// ConversationUsecase covers the agent-facing conversation operations:
// listing the inbox, opening conversations manually, and lifecycle changes.
// Every mutation fans out conversation:updated to the tenant room so all
// dashboards converge.
type ConversationUsecase struct {
	tenants       TenantResolver
	conversations ConversationDirectory
	customers     CustomerDirectory
	hub           Broadcaster
	log           zerolog.Logger
}

func NewConversationUsecase(
	tenants TenantResolver,
	conversations ConversationDirectory,
	customers CustomerDirectory,
	hub Broadcaster,
	log zerolog.Logger,
) *ConversationUsecase {
	return &ConversationUsecase{
		tenants:       tenants,
		conversations: conversations,
		customers:     customers,
		hub:           hub,
		log:           log.With().Str("component", "conversations").Logger(),
	}
}

// List returns the tenant's conversations, most recently active first.
// An empty status means no filter.
func (uc *ConversationUsecase) List(ctx context.Context, userID string, status entities.ConversationStatus, page, perPage int) ([]entities.Conversation, int, error) {
	if status != "" && !entities.ValidConversationStatus(status) {
		return nil, 0, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return nil, 0, notFoundOr(err)
	}
	return uc.conversations.List(ctx, tenantID, status, page, perPage)
}

// Get fetches a single conversation within the caller's tenant.
func (uc *ConversationUsecase) Get(ctx context.Context, userID, conversationID string) (*entities.Conversation, error) {
	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	conv, err := uc.conversations.GetByID(ctx, tenantID, conversationID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return conv, nil
}

type CreateConversationInput struct {
	Channel            entities.ChannelType
	CustomerExternalID string
	CustomerName       string
	CustomerPhone      string
	Metadata           entities.Metadata
}

// Create opens a conversation from the agent side, resolving the customer
// by external id first. Reuses an existing conversation for the same
// customer and channel rather than duplicating it.
func (uc *ConversationUsecase) Create(ctx context.Context, userID string, in CreateConversationInput) (*entities.Conversation, error) {
	if !entities.ValidChannelType(in.Channel) {
		return nil, fmt.Errorf("%w: invalid channel %q", ErrValidation, in.Channel)
	}
	if in.CustomerExternalID == "" {
		return nil, fmt.Errorf("%w: customer external id is required", ErrValidation)
	}

	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	customer, _, err := uc.customers.ResolveOrCreate(ctx, tenantID, in.CustomerExternalID, in.CustomerName, in.CustomerPhone)
	if err != nil {
		return nil, err
	}

	conv, created, err := uc.conversations.ResolveOrCreate(ctx, tenantID, in.Channel, customer.ID)
	if err != nil {
		return nil, err
	}
	if created {
		uc.hub.Broadcast(realtime.TenantRoom(tenantID), realtime.NewEvent(realtime.EventConversationNew, conv))
	}
	return conv, nil
}

// SetStatus moves a conversation to any valid status. All transitions are
// allowed; reopening a closed conversation is a normal support flow.
func (uc *ConversationUsecase) SetStatus(ctx context.Context, userID, conversationID string, status entities.ConversationStatus) (*entities.Conversation, error) {
	if !entities.ValidConversationStatus(status) {
		return nil, fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}
	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	conv, err := uc.conversations.SetStatus(ctx, tenantID, conversationID, status)
	if err != nil {
		return nil, notFoundOr(err)
	}
	uc.hub.Broadcast(realtime.TenantRoom(tenantID), realtime.NewEvent(realtime.EventConversationUpdated, conv))
	return conv, nil
}

// Assign puts an agent on the conversation and moves it to in_progress.
func (uc *ConversationUsecase) Assign(ctx context.Context, userID, conversationID, agentID string) (*entities.Conversation, error) {
	if agentID == "" {
		agentID = userID
	}
	tenantID, err := uc.tenants.ResolveTenant(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	conv, err := uc.conversations.AssignAgent(ctx, tenantID, conversationID, agentID)
	if err != nil {
		return nil, notFoundOr(err)
	}
	uc.hub.Broadcast(realtime.TenantRoom(tenantID), realtime.NewEvent(realtime.EventConversationUpdated, conv))
	return conv, nil
}
