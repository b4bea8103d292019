package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

func (h *Handler) ListMessages(c *gin.Context) {
	params, err := parseListParams(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid before/after timestamp, want RFC3339", "VALIDATION")
		return
	}

	msgs, total, err := h.ingest.ListMessages(c.Request.Context(), c.GetString("user_id"), c.Param("id"), params)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}

	setPaginationHeaders(c, total, params.Page, params.PerPage)
	respondOK(c, http.StatusOK, msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req struct {
		Content    string            `json:"content"`
		Type       string            `json:"type"`
		SenderType string            `json:"senderType"`
		SenderID   *string           `json:"senderId"`
		Metadata   entities.Metadata `json:"metadata"`
		ReplyToID  *string           `json:"replyToId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", "VALIDATION")
		return
	}

	msg, err := h.ingest.SendMessage(c.Request.Context(), usecases.SendMessageInput{
		UserID:         c.GetString("user_id"),
		ConversationID: c.Param("id"),
		SenderType:     entities.SenderType(req.SenderType),
		SenderID:       req.SenderID,
		Content:        SanitizeString(req.Content),
		ContentType:    entities.ContentType(req.Type),
		Metadata:       req.Metadata,
		ReplyToID:      req.ReplyToID,
	})
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, msg)
}

func (h *Handler) MarkRead(c *gin.Context) {
	var req struct {
		MessageIDs []string `json:"messageIds"`
	}
	// Body optional; no ids means "everything unread from the customer".
	c.ShouldBindJSON(&req)

	count, err := h.ingest.MarkRead(c.Request.Context(), c.GetString("user_id"), c.Param("id"), req.MessageIDs)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"markedAsRead": count})
}

func (h *Handler) UnreadCount(c *gin.Context) {
	count, err := h.ingest.UnreadCount(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"unreadCount": count})
}
