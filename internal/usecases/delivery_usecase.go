package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

// ChannelSender pushes a text message out through one external channel.
// The whatsapp and telegram infrastructure clients implement it.
type ChannelSender interface {
	SendText(ctx context.Context, tenantID, to, content string) error
}

// DeliveryUsecase dispatches queued agent replies to their channel sender.
// It runs inside the background worker, decoupled from the HTTP request
// that produced the message.
type DeliveryUsecase struct {
	senders map[entities.ChannelType]ChannelSender
	log     zerolog.Logger
}

func NewDeliveryUsecase(log zerolog.Logger) *DeliveryUsecase {
	return &DeliveryUsecase{
		senders: make(map[entities.ChannelType]ChannelSender),
		log:     log.With().Str("component", "delivery").Logger(),
	}
}

// RegisterSender binds a channel type to its outbound client.
func (uc *DeliveryUsecase) RegisterSender(channel entities.ChannelType, sender ChannelSender) {
	uc.senders[channel] = sender
}

// Deliver sends one job. A missing sender is a deployment without that
// channel configured, not a retryable failure.
func (uc *DeliveryUsecase) Deliver(ctx context.Context, job DeliveryJob) error {
	sender, ok := uc.senders[job.Channel]
	if !ok {
		uc.log.Warn().
			Str("channel", string(job.Channel)).
			Str("message", job.MessageID).
			Msg("no sender configured, dropping delivery")
		return nil
	}

	if err := sender.SendText(ctx, job.TenantID, job.To, job.Content); err != nil {
		return fmt.Errorf("deliver %s via %s: %w", job.MessageID, job.Channel, err)
	}

	uc.log.Info().
		Str("channel", string(job.Channel)).
		Str("message", job.MessageID).
		Str("tenant", job.TenantID).
		Msg("message delivered")
	return nil
}
