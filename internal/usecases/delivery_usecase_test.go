package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
)

type senderRecorder struct {
	calls []string
	err   error
}

func (s *senderRecorder) SendText(_ context.Context, tenantID, to, content string) error {
	s.calls = append(s.calls, tenantID+"|"+to+"|"+content)
	return s.err
}

func TestDeliverRoutesToChannelSender(t *testing.T) {
	wa := &senderRecorder{}
	tg := &senderRecorder{}
	uc := NewDeliveryUsecase(zerolog.Nop())
	uc.RegisterSender(entities.ChannelWhatsApp, wa)
	uc.RegisterSender(entities.ChannelTelegram, tg)

	err := uc.Deliver(context.Background(), DeliveryJob{
		TenantID: "tenant-1", Channel: entities.ChannelWhatsApp, To: "+5511999", Content: "hello",
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if len(wa.calls) != 1 || wa.calls[0] != "tenant-1|+5511999|hello" {
		t.Errorf("whatsapp calls = %v", wa.calls)
	}
	if len(tg.calls) != 0 {
		t.Errorf("telegram sender called for whatsapp job")
	}
}

func TestDeliverUnconfiguredChannelIsNotAnError(t *testing.T) {
	uc := NewDeliveryUsecase(zerolog.Nop())
	if err := uc.Deliver(context.Background(), DeliveryJob{Channel: entities.ChannelTelegram}); err != nil {
		t.Fatalf("unconfigured channel returned %v, want nil", err)
	}
}

func TestDeliverPropagatesSenderFailure(t *testing.T) {
	wa := &senderRecorder{err: errors.New("socket closed")}
	uc := NewDeliveryUsecase(zerolog.Nop())
	uc.RegisterSender(entities.ChannelWhatsApp, wa)

	err := uc.Deliver(context.Background(), DeliveryJob{Channel: entities.ChannelWhatsApp, MessageID: "m1"})
	if err == nil {
		t.Fatal("sender failure swallowed, want error for queue retry")
	}
}
