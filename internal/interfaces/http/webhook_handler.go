package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

type webhookPayload struct {
	// Channel is only honored on the default-channel ingress, which has no
	// channel in its URL. Defaults to web.
	Channel string `json:"channel"`
	From    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"from"`
	Message struct {
		Content string `json:"content"`
		Type    string `json:"type"`
	} `json:"message"`
	Metadata entities.Metadata `json:"metadata"`
}

// HandleChannelWebhook is the per-channel ingress:
// POST /webhooks/channels/:type/:id. The channel row supplies both the
// owning tenant and the signing secret.
func (h *Handler) HandleChannelWebhook(c *gin.Context) {
	channel, err := h.ingest.ResolveChannel(c.Request.Context(),
		entities.ChannelType(c.Param("type")), c.Param("id"))
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unable to read request body", "VALIDATION")
		return
	}
	h.ingestWebhook(c, channel, body)
}

// HandleDefaultChannelWebhook is the ingress for automation flows that do not
// carry a channel id in the URL: POST /webhooks/n8n/message. The payload may
// name a channel type; it lands on the deployment's default channel of that
// type, web when omitted.
func (h *Handler) HandleDefaultChannelWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "unable to read request body", "VALIDATION")
		return
	}

	channelType := entities.ChannelWeb
	var peek struct {
		Channel string `json:"channel"`
	}
	if json.Unmarshal(body, &peek) == nil && peek.Channel != "" {
		channelType = entities.ChannelType(peek.Channel)
	}

	channel, err := h.ingest.ResolveDefaultChannel(c.Request.Context(), channelType)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	h.ingestWebhook(c, channel, body)
}

func (h *Handler) ingestWebhook(c *gin.Context, channel *entities.Channel, body []byte) {
	// Signature verification covers the exact bytes sent, never a re-encoding.
	if err := usecases.VerifyWebhookSignature(channel.Secret, body,
		c.GetHeader("X-Webhook-Signature"), c.GetHeader("X-Webhook-Secret")); err != nil {
		respondUsecaseError(c, err)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(c, http.StatusBadRequest, "invalid JSON payload", "VALIDATION")
		return
	}

	result, err := h.ingest.IngestWebhookMessage(c.Request.Context(), channel, usecases.WebhookMessageInput{
		FromExternalID: payload.From.ID,
		FromName:       SanitizeString(payload.From.Name),
		FromPhone:      payload.From.Phone,
		Content:        SanitizeString(payload.Message.Content),
		ContentType:    entities.ContentType(payload.Message.Type),
		Metadata:       payload.Metadata,
	})
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
