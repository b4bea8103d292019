package infrastructure

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// InboundTelegramMessage is what the manager hands the ingestion layer for
// every text message received on a tenant's bot.
type InboundTelegramMessage struct {
	TenantID string
	ChatID   string
	FromName string
	Content  string
}

// TelegramBotInstance is one tenant's polling bot.
type TelegramBotInstance struct {
	Bot       *tgbotapi.BotAPI
	TenantID  string
	StopChan  chan struct{}
	IsRunning bool
	mu        sync.Mutex
}

// TelegramBotManager runs one bot per tenant (tenants bring their own bot
// token) and implements the outbound ChannelSender for the telegram channel.
type TelegramBotManager struct {
	bots map[string]*TelegramBotInstance
	mu   sync.RWMutex
	log  zerolog.Logger

	// OnMessage receives every inbound text message. Set before connecting
	// any bot.
	OnMessage func(msg InboundTelegramMessage)
}

func NewTelegramBotManager(log zerolog.Logger) *TelegramBotManager {
	return &TelegramBotManager{
		bots: make(map[string]*TelegramBotInstance),
		log:  log.With().Str("component", "telegram-manager").Logger(),
	}
}

func (m *TelegramBotManager) GetBot(tenantID string) *TelegramBotInstance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bots[tenantID]
}

// ValidateToken checks a token by creating a throwaway bot.
func (m *TelegramBotManager) ValidateToken(token string) (string, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return bot.Self.UserName, nil
}

// ConnectBot starts polling for a tenant with its token. Idempotent while
// the bot is running.
func (m *TelegramBotManager) ConnectBot(tenantID, token string) (*TelegramBotInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.bots[tenantID]; ok && existing.IsRunning {
		return existing, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	instance := &TelegramBotInstance{
		Bot:      bot,
		TenantID: tenantID,
		StopChan: make(chan struct{}),
	}

	m.bots[tenantID] = instance
	go m.startPolling(instance)

	return instance, nil
}

func (m *TelegramBotManager) startPolling(instance *TelegramBotInstance) {
	instance.mu.Lock()
	instance.IsRunning = true
	instance.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := instance.Bot.GetUpdatesChan(u)

	m.log.Info().
		Str("tenant", instance.TenantID).
		Str("bot", instance.Bot.Self.UserName).
		Msg("started polling")

	for {
		select {
		case <-instance.StopChan:
			m.log.Info().Str("tenant", instance.TenantID).Msg("stopped polling")
			instance.mu.Lock()
			instance.IsRunning = false
			instance.mu.Unlock()
			return
		case update := <-updates:
			m.handleUpdate(instance, update)
		}
	}
}

func (m *TelegramBotManager) handleUpdate(instance *TelegramBotInstance, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	if m.OnMessage == nil {
		return
	}

	name := update.Message.From.FirstName
	if update.Message.From.LastName != "" {
		name += " " + update.Message.From.LastName
	}

	m.OnMessage(InboundTelegramMessage{
		TenantID: instance.TenantID,
		ChatID:   strconv.FormatInt(update.Message.Chat.ID, 10),
		FromName: name,
		Content:  update.Message.Text,
	})
}

// SendText implements the outbound sender. The destination is the telegram
// chat id stored as the customer's external id.
func (m *TelegramBotManager) SendText(_ context.Context, tenantID, to, content string) error {
	m.mu.RLock()
	instance, ok := m.bots[tenantID]
	m.mu.RUnlock()

	if !ok || !instance.IsRunning {
		return fmt.Errorf("bot not connected for tenant %s", tenantID)
	}

	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", to, err)
	}

	msg := tgbotapi.NewMessage(chatID, content)
	_, err = instance.Bot.Send(msg)
	return err
}

// GetStatus reports whether a tenant's bot is polling.
func (m *TelegramBotManager) GetStatus(tenantID string) (connected bool, botName string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if instance, ok := m.bots[tenantID]; ok && instance.IsRunning {
		return true, instance.Bot.Self.UserName
	}
	return false, ""
}

// DisconnectBot stops a tenant's bot.
func (m *TelegramBotManager) DisconnectBot(tenantID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if instance, ok := m.bots[tenantID]; ok {
		close(instance.StopChan)
		delete(m.bots, tenantID)
	}
}

// DisconnectAll stops all bots for graceful shutdown.
func (m *TelegramBotManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, instance := range m.bots {
		close(instance.StopChan)
	}
	m.bots = make(map[string]*TelegramBotInstance)
}
