package infrastructure

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// WhatsAppClient wraps one whatsmeow session. Session state lives in a
// per-tenant SQLite file, separate from the main postgres database.
type WhatsAppClient struct {
	Client   *whatsmeow.Client
	TenantID string

	log    zerolog.Logger
	qrCode string
	qrLock sync.RWMutex
}

func NewWhatsAppClient(dbPath, tenantID string, log zerolog.Logger) (*WhatsAppClient, error) {
	dbLog := waLog.Stdout("Database", "WARN", true)
	container, err := sqlstore.New(context.Background(), "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", dbLog)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	clientLog := waLog.Stdout("Client", "WARN", true)
	client := whatsmeow.NewClient(deviceStore, clientLog)

	return &WhatsAppClient{
		Client:   client,
		TenantID: tenantID,
		log:      log.With().Str("component", "whatsapp").Str("tenant", tenantID).Logger(),
	}, nil
}

// Connect establishes the session. A device without a stored ID needs QR
// pairing; the freshest code is kept for the pairing endpoint to render.
func (w *WhatsAppClient) Connect() error {
	if w.Client.Store.ID == nil {
		qrChan, _ := w.Client.GetQRChannel(context.Background())
		if err := w.Client.Connect(); err != nil {
			return err
		}

		go func() {
			for evt := range qrChan {
				if evt.Event == "code" {
					w.qrLock.Lock()
					w.qrCode = evt.Code
					w.qrLock.Unlock()
					w.log.Info().Msg("new pairing code available")
				} else {
					w.log.Info().Str("event", evt.Event).Msg("login event")
				}
			}
		}()
		return nil
	}

	if err := w.Client.Connect(); err != nil {
		return err
	}
	w.log.Info().Msg("connected with existing session")
	return nil
}

func (w *WhatsAppClient) GetQR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

func (w *WhatsAppClient) IsLoggedIn() bool {
	return w.Client.Store.ID != nil
}

func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

// PhoneNumber returns the paired number, empty before pairing.
func (w *WhatsAppClient) PhoneNumber() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.ID.User
}

func (w *WhatsAppClient) Logout() error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	if err := w.Client.Logout(context.Background()); err != nil {
		return err
	}
	w.Client.Disconnect()

	qrChan, _ := w.Client.GetQRChannel(context.Background())
	if err := w.Client.Connect(); err != nil {
		return fmt.Errorf("reconnect after logout: %w", err)
	}

	go func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				w.qrLock.Lock()
				w.qrCode = evt.Code
				w.qrLock.Unlock()
			}
		}
	}()

	return nil
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

func (w *WhatsAppClient) AddHandler(handler func(interface{})) {
	w.Client.AddEventHandler(handler)
}

// SendText delivers a plain text message to a phone number.
func (w *WhatsAppClient) SendText(ctx context.Context, to, content string) error {
	jid, err := types.ParseJID(to + "@s.whatsapp.net")
	if err != nil {
		return fmt.Errorf("invalid number format: %w", err)
	}

	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &content,
	})
	return err
}

// ParseMessage extracts the sender number and text content from an inbound
// event. Returns empty content for unsupported message kinds.
func (w *WhatsAppClient) ParseMessage(evt *events.Message) (sender, name, content string) {
	sender = evt.Info.Sender.User
	name = evt.Info.PushName

	if evt.Message.Conversation != nil {
		content = *evt.Message.Conversation
	} else if evt.Message.ExtendedTextMessage != nil {
		content = *evt.Message.ExtendedTextMessage.Text
	}
	return sender, name, content
}
