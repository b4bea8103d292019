package realtime

import "encoding/json"

// Server → client events.
const (
	EventMessageNew          = "message:new"
	EventConversationNew     = "conversation:new"
	EventConversationUpdated = "conversation:updated"
	EventMessageRead         = "message:read"
	EventTypingStart         = "typing:start"
	EventTypingStop          = "typing:stop"
	EventUserOnline          = "user:online"
	EventUserOffline         = "user:offline"
	EventError               = "error"
)

// Client → server events.
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
)

// Event is the wire envelope in both directions.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEvent marshals payload into an envelope. Payloads are our own structs,
// so a marshal failure is a programming error; it degrades to an empty body.
func NewEvent(name string, payload any) Event {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Event: name}
	}
	return Event{Event: name, Data: data}
}

type PresencePayload struct {
	UserID string `json:"userId"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	UserName       string `json:"userName,omitempty"`
}

type ReadPayload struct {
	ConversationID string   `json:"conversationId"`
	MessageIDs     []string `json:"messageIds"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// TenantRoom names the room every connection of a tenant auto-joins.
func TenantRoom(tenantID string) string {
	return "tenant:" + tenantID
}

// ConversationRoom names the per-conversation room joined on request.
func ConversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}
