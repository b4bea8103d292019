package infrastructure

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow/types/events"
)

// InboundWhatsAppMessage is what the manager hands the ingestion layer for
// every text message received on a tenant's session.
type InboundWhatsAppMessage struct {
	TenantID string
	FromID   string
	FromName string
	Content  string
}

// WhatsAppManager holds one whatsmeow session per tenant and implements the
// outbound ChannelSender for the whatsapp channel.
type WhatsAppManager struct {
	clients map[string]*WhatsAppClient
	mu      sync.RWMutex
	baseDir string
	log     zerolog.Logger

	// OnMessage receives every inbound text message. Set before connecting
	// any client.
	OnMessage func(msg InboundWhatsAppMessage)
}

func NewWhatsAppManager(baseDir string, log zerolog.Logger) *WhatsAppManager {
	logger := log.With().Str("component", "whatsapp-manager").Logger()
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", baseDir).Msg("could not create sessions directory")
	}

	return &WhatsAppManager{
		clients: make(map[string]*WhatsAppClient),
		baseDir: baseDir,
		log:     logger,
	}
}

func (m *WhatsAppManager) GetClient(tenantID string) *WhatsAppClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[tenantID]
}

func (m *WhatsAppManager) GetOrCreateClient(tenantID string) (*WhatsAppClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, exists := m.clients[tenantID]; exists {
		return client, nil
	}

	dbPath := fmt.Sprintf("%s/tenant_%s.db", m.baseDir, tenantID)
	client, err := NewWhatsAppClient(dbPath, tenantID, m.log)
	if err != nil {
		return nil, fmt.Errorf("create whatsapp client for tenant %s: %w", tenantID, err)
	}

	client.AddHandler(m.eventHandler(client))
	m.clients[tenantID] = client
	return client, nil
}

// ConnectClient brings up a tenant's session, creating it if needed.
func (m *WhatsAppManager) ConnectClient(tenantID string) (*WhatsAppClient, error) {
	client, err := m.GetOrCreateClient(tenantID)
	if err != nil {
		return nil, err
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect whatsapp for tenant %s: %w", tenantID, err)
	}
	return client, nil
}

func (m *WhatsAppManager) eventHandler(client *WhatsAppClient) func(interface{}) {
	return func(raw interface{}) {
		evt, ok := raw.(*events.Message)
		if !ok || evt.Info.IsFromMe || evt.Info.IsGroup {
			return
		}
		sender, name, content := client.ParseMessage(evt)
		if content == "" || m.OnMessage == nil {
			return
		}
		m.OnMessage(InboundWhatsAppMessage{
			TenantID: client.TenantID,
			FromID:   sender,
			FromName: name,
			Content:  content,
		})
	}
}

// SendText implements the outbound sender. The job's tenant selects the
// session.
func (m *WhatsAppManager) SendText(ctx context.Context, tenantID, to, content string) error {
	client := m.GetClient(tenantID)
	if client == nil || !client.IsConnected() {
		return fmt.Errorf("no connected whatsapp session for tenant %s", tenantID)
	}
	return client.SendText(ctx, to, content)
}

func (m *WhatsAppManager) LogoutClient(tenantID string) error {
	m.mu.RLock()
	client, exists := m.clients[tenantID]
	m.mu.RUnlock()

	if !exists || client == nil {
		return nil
	}

	if !client.IsLoggedIn() && !client.Client.IsConnected() {
		m.mu.Lock()
		delete(m.clients, tenantID)
		m.mu.Unlock()
		return nil
	}

	err := client.Logout()

	m.mu.Lock()
	delete(m.clients, tenantID)
	m.mu.Unlock()

	return err
}

// ConnectedTenants lists tenants with a paired session.
func (m *WhatsAppManager) ConnectedTenants() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var tenants []string
	for tenantID, client := range m.clients {
		if client.IsLoggedIn() {
			tenants = append(tenants, tenantID)
		}
	}
	return tenants
}

// DisconnectAll tears down every session for graceful shutdown.
func (m *WhatsAppManager) DisconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, client := range m.clients {
		client.Disconnect()
	}
	m.clients = make(map[string]*WhatsAppClient)
}
