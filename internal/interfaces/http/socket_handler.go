package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/VitorRandrade/omnibot-hub-api/internal/infrastructure/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are already filtered by the CORS layer; the handshake
	// itself is gated by the token check below.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSocket upgrades an authenticated request to a websocket connection.
// Tenant identity is resolved once here; everything after rides on the
// attached client.
func (h *Handler) HandleSocket(c *gin.Context) {
	token := BearerToken(c)
	if token == "" {
		respondError(c, http.StatusUnauthorized, "authorization required", "UNAUTHORIZED")
		return
	}
	claims, err := h.auth.ParseToken(token)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "invalid token", "UNAUTHORIZED")
		return
	}

	tenantID, err := h.tenants.ResolveTenant(c.Request.Context(), claims.UserID)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unknown principal", "UNAUTHORIZED")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	client := realtime.NewClient(h.hub, conn, claims.UserID, tenantID, claims.Name)
	h.hub.Attach(client)
	client.Start()

	go h.readLoop(client, conn)
}

func (h *Handler) readLoop(client *realtime.Client, conn *websocket.Conn) {
	defer h.hub.Detach(client)

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(realtime.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(realtime.PongWait))
	})

	for {
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			return
		}
		h.dispatchClientEvent(client, ev)
	}
}

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

func (h *Handler) dispatchClientEvent(client *realtime.Client, ev realtime.Event) {
	switch ev.Event {
	case realtime.EventConversationJoin:
		h.handleJoin(client, ev.Data)

	case realtime.EventConversationLeave:
		var ref conversationRef
		if err := json.Unmarshal(ev.Data, &ref); err != nil || ref.ConversationID == "" {
			return
		}
		h.hub.Leave(realtime.ConversationRoom(ref.ConversationID), client)

	case realtime.EventTypingStart, realtime.EventTypingStop:
		h.handleTyping(client, ev)

	case realtime.EventMessageRead:
		var payload realtime.ReadPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.ConversationID == "" {
			return
		}
		ctx, cancel := opCtx()
		defer cancel()
		// Best-effort by contract; the usecase already swallows failures.
		_, _ = h.ingest.MarkRead(ctx, client.UserID, payload.ConversationID, payload.MessageIDs)

	default:
		client.Send(realtime.NewEvent(realtime.EventError, realtime.ErrorPayload{
			Message: "unknown event " + ev.Event,
			Code:    "UNKNOWN_EVENT",
		}))
	}
}

// handleJoin authorizes room membership: the conversation must exist inside
// the client's tenant before the subscription is granted.
func (h *Handler) handleJoin(client *realtime.Client, data json.RawMessage) {
	var ref conversationRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ConversationID == "" {
		client.Send(realtime.NewEvent(realtime.EventError, realtime.ErrorPayload{
			Message: "conversationId is required",
			Code:    "VALIDATION",
		}))
		return
	}

	ctx, cancel := opCtx()
	defer cancel()
	if _, err := h.conversations.Get(ctx, client.UserID, ref.ConversationID); err != nil {
		client.Send(realtime.NewEvent(realtime.EventError, realtime.ErrorPayload{
			Message: "conversation not found",
			Code:    "NOT_FOUND",
		}))
		return
	}

	h.hub.Join(realtime.ConversationRoom(ref.ConversationID), client)
}

// handleTyping relays typing indicators to the other conversation viewers.
// Never persisted.
func (h *Handler) handleTyping(client *realtime.Client, ev realtime.Event) {
	var payload realtime.TypingPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.ConversationID == "" {
		return
	}

	room := realtime.ConversationRoom(payload.ConversationID)
	if !h.hub.InRoom(room, client) {
		return
	}

	payload.UserID = client.UserID
	payload.UserName = client.UserName
	h.hub.BroadcastExcept(room, realtime.NewEvent(ev.Event, payload), client.UserID)
}

// opCtx bounds socket-triggered operations; there is no request context to
// inherit after the upgrade.
func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}
