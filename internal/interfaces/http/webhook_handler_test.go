package http

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/infrastructure/realtime"
	"github.com/VitorRandrade/omnibot-hub-api/internal/repository"
	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

// In-memory stores standing in for the pgx repositories.

type memStore struct {
	tenantByUser  map[string]string
	usersByEmail  map[string]*entities.User
	channels      []*entities.Channel
	customers     map[string]*entities.Customer
	conversations map[string]*entities.Conversation
	messages      []*entities.Message
	sent          int
	received      int
}

func newMemStore() *memStore {
	return &memStore{
		tenantByUser:  map[string]string{},
		usersByEmail:  map[string]*entities.User{},
		customers:     map[string]*entities.Customer{},
		conversations: map[string]*entities.Conversation{},
	}
}

func (s *memStore) ResolveTenant(_ context.Context, userID string) (string, error) {
	t, ok := s.tenantByUser[userID]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return t, nil
}

func (s *memStore) Create(_ context.Context, user *entities.User) error {
	user.ID = uuid.NewString()
	s.usersByEmail[user.Email] = user
	s.tenantByUser[user.ID] = user.TenantID
	return nil
}

func (s *memStore) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	u, ok := s.usersByEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return u, nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*entities.User, error) {
	for _, u := range s.usersByEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memStore) Append(_ context.Context, msg *entities.Message) error {
	msg.ID = uuid.NewString()
	msg.IsRead = msg.SenderType.InitialRead()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, msg)
	return nil
}

func (s *memStore) MarkRead(_ context.Context, tenantID, conversationID string, messageIDs []string) (int64, []string, error) {
	explicit := map[string]bool{}
	for _, id := range messageIDs {
		explicit[id] = true
	}

	marked := []string{}
	for _, m := range s.messages {
		if m.TenantID != tenantID || m.ConversationID != conversationID || m.IsRead {
			continue
		}
		if len(messageIDs) > 0 {
			if !explicit[m.ID] {
				continue
			}
		} else if m.SenderType != entities.SenderCustomer {
			continue
		}
		m.IsRead = true
		marked = append(marked, m.ID)
	}
	return int64(len(marked)), marked, nil
}

func (s *memStore) UnreadCount(_ context.Context, _, conversationID string) (int, error) {
	n := 0
	for _, m := range s.messages {
		if m.ConversationID == conversationID && !m.IsRead && m.SenderType == entities.SenderCustomer {
			n++
		}
	}
	return n, nil
}

// List mirrors the pgx repository's semantics: exclusive time cursors,
// ascending order, total counted before the page window applies.
func (s *memStore) List(_ context.Context, tenantID, conversationID string, p repository.ListParams) ([]entities.Message, int, error) {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = 50
	}

	var all []entities.Message
	for _, m := range s.messages {
		if m.TenantID != tenantID || m.ConversationID != conversationID {
			continue
		}
		if p.Before != nil && !m.CreatedAt.Before(*p.Before) {
			continue
		}
		if p.After != nil && !m.CreatedAt.After(*p.After) {
			continue
		}
		all = append(all, *m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	total := len(all)
	offset := (p.Page - 1) * p.PerPage
	if offset >= total {
		return []entities.Message{}, total, nil
	}
	end := offset + p.PerPage
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

type memConversations struct{ s *memStore }

func (d memConversations) ResolveOrCreate(_ context.Context, tenantID string, channel entities.ChannelType, customerID string) (*entities.Conversation, bool, error) {
	for _, c := range d.s.conversations {
		if c.TenantID == tenantID && c.Channel == channel && c.CustomerID == customerID {
			return c, false, nil
		}
	}
	conv := &entities.Conversation{
		ID: uuid.NewString(), TenantID: tenantID, Channel: channel,
		CustomerID: customerID, Status: entities.StatusOpen,
	}
	d.s.conversations[conv.ID] = conv
	return conv, true, nil
}

func (d memConversations) Create(_ context.Context, conv *entities.Conversation) error {
	conv.ID = uuid.NewString()
	d.s.conversations[conv.ID] = conv
	return nil
}

func (d memConversations) GetByID(_ context.Context, tenantID, id string) (*entities.Conversation, error) {
	c, ok := d.s.conversations[id]
	if !ok || c.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (d memConversations) List(_ context.Context, tenantID string, _ entities.ConversationStatus, _, _ int) ([]entities.Conversation, int, error) {
	var out []entities.Conversation
	for _, c := range d.s.conversations {
		if c.TenantID == tenantID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (d memConversations) TouchLastMessage(_ context.Context, id, preview string) error {
	if c, ok := d.s.conversations[id]; ok {
		c.LastMessage = preview
	}
	return nil
}

func (d memConversations) SetStatus(_ context.Context, tenantID, id string, status entities.ConversationStatus) (*entities.Conversation, error) {
	c, err := d.GetByID(context.Background(), tenantID, id)
	if err != nil {
		return nil, err
	}
	c.Status = status
	return c, nil
}

func (d memConversations) AssignAgent(_ context.Context, tenantID, id, agentID string) (*entities.Conversation, error) {
	c, err := d.GetByID(context.Background(), tenantID, id)
	if err != nil {
		return nil, err
	}
	c.AgentID = &agentID
	c.Status = entities.StatusInProgress
	return c, nil
}

type memCustomers struct{ s *memStore }

func (d memCustomers) ResolveOrCreate(_ context.Context, tenantID, externalID, name, phone string) (*entities.Customer, bool, error) {
	for _, c := range d.s.customers {
		if c.TenantID == tenantID && c.ExternalID == externalID {
			return c, false, nil
		}
	}
	cust := &entities.Customer{
		ID: uuid.NewString(), TenantID: tenantID,
		ExternalID: externalID, Name: name, Phone: phone,
	}
	d.s.customers[cust.ID] = cust
	return cust, true, nil
}

func (d memCustomers) GetByID(_ context.Context, tenantID, id string) (*entities.Customer, error) {
	c, ok := d.s.customers[id]
	if !ok || c.TenantID != tenantID {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

type memChannels struct{ s *memStore }

func (d memChannels) GetByTypeAndID(_ context.Context, t entities.ChannelType, id string) (*entities.Channel, error) {
	for _, ch := range d.s.channels {
		if ch.Type == t && ch.ID == id && ch.Active {
			return ch, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (d memChannels) GetByTenantAndType(_ context.Context, tenantID string, t entities.ChannelType) (*entities.Channel, error) {
	for _, ch := range d.s.channels {
		if ch.Type == t && ch.TenantID == tenantID && ch.Active {
			return ch, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (d memChannels) GetDefaultByType(_ context.Context, t entities.ChannelType) (*entities.Channel, error) {
	for _, ch := range d.s.channels {
		if ch.Type == t && ch.Active {
			return ch, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *memStore) IncrementSent(context.Context, string) error {
	s.sent++
	return nil
}

func (s *memStore) IncrementReceived(context.Context, string) error {
	s.received++
	return nil
}

func (s *memStore) GetUsageHistory(_ context.Context, _ string, _ int) ([]repository.DailyUsage, error) {
	return []repository.DailyUsage{{
		Date:             time.Now(),
		MessagesSent:     s.sent,
		MessagesReceived: s.received,
	}}, nil
}

const testJWTSecret = "test-secret"

func newTestRouter(t *testing.T, store *memStore) (*gin.Engine, *usecases.AuthUsecase) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zerolog.Nop()
	hub := realtime.NewHub(nil, log)

	auth := usecases.NewAuthUsecase(store, testJWTSecret, log)
	ingest := usecases.NewIngestUsecase(
		store, store, memConversations{store}, memCustomers{store}, memChannels{store},
		store, hub, nil, log,
	)
	convs := usecases.NewConversationUsecase(store, memConversations{store}, memCustomers{store}, hub, log)

	h := NewHandler(auth, ingest, convs, store, hub, store, nil, nil)
	r := gin.New()
	SetupRoutes(r, h, NewMiddleware(auth))
	return r, auth
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func seedChannel(store *memStore, secret string) *entities.Channel {
	ch := &entities.Channel{
		ID: "ch-1", TenantID: "tenant-1", Type: entities.ChannelWhatsApp,
		Secret: secret, Active: true,
	}
	store.channels = append(store.channels, ch)
	return ch
}

func TestChannelWebhookAcceptsSignedPayload(t *testing.T) {
	store := newMemStore()
	seedChannel(store, "hook-secret")
	r, _ := newTestRouter(t, store)

	body := []byte(`{"from":{"id":"+5511999","name":"Ana"},"message":{"content":"preciso de ajuda"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/channels/whatsapp/ch-1", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signBody("hook-secret", body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool                   `json:"success"`
		Data    usecases.WebhookResult `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success || !resp.Data.Received || resp.Data.ConversationID == "" || resp.Data.MessageID == "" {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}

	if len(store.messages) != 1 {
		t.Fatalf("stored %d messages, want 1", len(store.messages))
	}
	msg := store.messages[0]
	if msg.TenantID != "tenant-1" || msg.SenderType != entities.SenderCustomer || msg.IsRead {
		t.Errorf("stored message = %+v", msg)
	}
	if store.received != 1 {
		t.Errorf("received counter = %d, want 1", store.received)
	}
}

func TestChannelWebhookRejectsBadSignature(t *testing.T) {
	store := newMemStore()
	seedChannel(store, "hook-secret")
	r, _ := newTestRouter(t, store)

	body := []byte(`{"from":{"id":"+5511999"},"message":{"content":"oi"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/channels/whatsapp/ch-1", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signBody("wrong-secret", body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if len(store.messages) != 0 {
		t.Error("message stored despite rejected signature")
	}
}

func TestChannelWebhookUnknownChannelIs404(t *testing.T) {
	store := newMemStore()
	r, _ := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/channels/whatsapp/nope", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDefaultChannelWebhookWithRawSecret(t *testing.T) {
	store := newMemStore()
	seedChannel(store, "hook-secret")
	r, _ := newTestRouter(t, store)

	body := []byte(`{"channel":"whatsapp","from":{"id":"+5511777"},"message":{"content":"olá"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/n8n/message", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func seedAgent(t *testing.T, store *memStore) *entities.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &entities.User{
		ID: uuid.NewString(), TenantID: "tenant-1",
		Email: "ana@example.com", PasswordHash: string(hash),
		Name: "Ana", Role: entities.RoleAgent,
	}
	store.usersByEmail[user.Email] = user
	store.tenantByUser[user.ID] = user.TenantID
	return user
}

func TestLoginAndAuthenticatedRequest(t *testing.T) {
	store := newMemStore()
	seedAgent(t, store)
	r, _ := newTestRouter(t, store)

	body := []byte(`{"email":"ana@example.com","password":"hunter22"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Data.Token == "" {
		t.Fatalf("no token in login response: %s", w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Data.Token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("authenticated list status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Total-Count"); got != "0" {
		t.Errorf("X-Total-Count = %q, want 0", got)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := newMemStore()
	seedAgent(t, store)
	r, _ := newTestRouter(t, store)

	body := []byte(`{"email":"ana@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	store := newMemStore()
	r, _ := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}
