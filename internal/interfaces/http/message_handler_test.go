package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/repository"
)

func loginToken(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(gin.H{"email": email, "password": password})
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
	return resp.Data.Token
}

func seedAdmin(t *testing.T, store *memStore) *entities.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	user := &entities.User{
		ID: uuid.NewString(), TenantID: "tenant-1",
		Email: "chefe@example.com", PasswordHash: string(hash),
		Name: "Chefe", Role: entities.RoleAdmin,
	}
	store.usersByEmail[user.Email] = user
	store.tenantByUser[user.ID] = user.TenantID
	return user
}

func seedStoredConversation(store *memStore, id string) *entities.Conversation {
	conv := &entities.Conversation{
		ID: id, TenantID: "tenant-1", Channel: entities.ChannelWeb,
		CustomerID: "cust-1", Status: entities.StatusOpen,
	}
	store.conversations[conv.ID] = conv
	return conv
}

func seedMessage(store *memStore, convID string, read bool, at time.Time, content string) *entities.Message {
	m := &entities.Message{
		ID: uuid.NewString(), TenantID: "tenant-1", ConversationID: convID,
		SenderType: entities.SenderCustomer, Content: content,
		ContentType: entities.ContentText, IsRead: read, CreatedAt: at,
	}
	store.messages = append(store.messages, m)
	return m
}

func TestMarkReadReportsOnlyTransitioned(t *testing.T) {
	store := newMemStore()
	seedAgent(t, store)
	conv := seedStoredConversation(store, "conv-1")
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	m1 := seedMessage(store, conv.ID, true, base, "already read")
	m2 := seedMessage(store, conv.ID, false, base.Add(time.Minute), "still unread")
	r, _ := newTestRouter(t, store)
	token := loginToken(t, r, "ana@example.com", "hunter22")

	body, _ := json.Marshal(gin.H{"messageIds": []string{m1.ID, m2.ID}})
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/conv-1/messages/read", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	count, ok := resp.Data["markedAsRead"]
	if !ok {
		t.Fatalf("response data keys = %v, want markedAsRead", resp.Data)
	}
	if count.(float64) != 1 {
		t.Errorf("markedAsRead = %v, want 1 (only the unread message transitions)", count)
	}
	if !m2.IsRead {
		t.Error("unread message not marked")
	}
}

func TestListMessagesChronologicalWithCursors(t *testing.T) {
	store := newMemStore()
	seedAgent(t, store)
	conv := seedStoredConversation(store, "conv-1")
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third", "fourth"} {
		seedMessage(store, conv.ID, false, base.Add(time.Duration(i)*time.Minute), content)
	}
	r, _ := newTestRouter(t, store)
	token := loginToken(t, r, "ana@example.com", "hunter22")

	// The after cursor is exclusive, so "first" drops out; perPage windows
	// the remaining three.
	url := "/api/conversations/conv-1/messages?after=" + base.Format(time.RFC3339) + "&perPage=2&page=1"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("X-Total-Count"); got != "3" {
		t.Errorf("X-Total-Count = %q, want 3", got)
	}
	if got := w.Header().Get("X-Per-Page"); got != "2" {
		t.Errorf("X-Per-Page = %q, want 2", got)
	}

	var resp struct {
		Data []entities.Message `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Content != "second" || resp.Data[1].Content != "third" {
		t.Fatalf("page 1 = %+v, want [second third]", resp.Data)
	}

	// Same window, next page: the offset stacks on the cursor filter.
	req = httptest.NewRequest(http.MethodGet, "/api/conversations/conv-1/messages?after="+base.Format(time.RFC3339)+"&perPage=2&page=2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 || resp.Data[0].Content != "fourth" {
		t.Fatalf("page 2 = %+v, want [fourth]", resp.Data)
	}
}

func TestListMessagesBeforeCursor(t *testing.T) {
	store := newMemStore()
	seedAgent(t, store)
	conv := seedStoredConversation(store, "conv-1")
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third"} {
		seedMessage(store, conv.ID, false, base.Add(time.Duration(i)*time.Minute), content)
	}
	r, _ := newTestRouter(t, store)
	token := loginToken(t, r, "ana@example.com", "hunter22")

	url := "/api/conversations/conv-1/messages?before=" + base.Add(2*time.Minute).Format(time.RFC3339)
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp struct {
		Data []entities.Message `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 2 || resp.Data[0].Content != "first" || resp.Data[1].Content != "second" {
		t.Fatalf("before window = %+v, want [first second]", resp.Data)
	}
}

func TestListMessagesRejectsBadCursor(t *testing.T) {
	store := newMemStore()
	seedAgent(t, store)
	seedStoredConversation(store, "conv-1")
	r, _ := newTestRouter(t, store)
	token := loginToken(t, r, "ana@example.com", "hunter22")

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/conv-1/messages?before=yesterday", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestUsageReflectsIngestedTraffic(t *testing.T) {
	store := newMemStore()
	seedAgent(t, store)
	seedChannel(store, "hook-secret")
	r, _ := newTestRouter(t, store)

	body := []byte(`{"from":{"id":"+5511999"},"message":{"content":"oi"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/channels/whatsapp/ch-1", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, body = %s", w.Code, w.Body.String())
	}

	token := loginToken(t, r, "ana@example.com", "hunter22")
	req = httptest.NewRequest(http.MethodGet, "/api/usage", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("usage status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data []repository.DailyUsage `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Data) != 1 || resp.Data[0].MessagesReceived != 1 || resp.Data[0].MessagesSent != 0 {
		t.Fatalf("usage = %+v, want one received message", resp.Data)
	}
}

func TestAdminCreatesUser(t *testing.T) {
	store := newMemStore()
	seedAdmin(t, store)
	r, _ := newTestRouter(t, store)
	token := loginToken(t, r, "chefe@example.com", "hunter22")

	body, _ := json.Marshal(gin.H{"email": "novo@example.com", "password": "longenough", "name": "Novo"})
	req := httptest.NewRequest(http.MethodPost, "/api/admin/users", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data entities.User `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.ID == "" {
		t.Error("created user has no id")
	}
	if resp.Data.TenantID != "tenant-1" {
		t.Errorf("tenant = %q, want caller's tenant-1", resp.Data.TenantID)
	}
	if resp.Data.Role != entities.RoleAgent {
		t.Errorf("role = %q, want default agent", resp.Data.Role)
	}
}
