package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VitorRandrade/omnibot-hub-api/internal/entities"
	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

func (h *Handler) ListConversations(c *gin.Context) {
	page, perPage := parsePage(c)
	status := entities.ConversationStatus(c.Query("status"))

	convs, total, err := h.conversations.List(c.Request.Context(), c.GetString("user_id"), status, page, perPage)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}

	setPaginationHeaders(c, total, page, perPage)
	respondOK(c, http.StatusOK, convs)
}

func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.conversations.Get(c.Request.Context(), c.GetString("user_id"), c.Param("id"))
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, conv)
}

func (h *Handler) CreateConversation(c *gin.Context) {
	var req struct {
		Channel  string `json:"channel"`
		Customer struct {
			ExternalID string `json:"externalId"`
			Name       string `json:"name"`
			Phone      string `json:"phone"`
		} `json:"customer"`
		Metadata entities.Metadata `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", "VALIDATION")
		return
	}

	conv, err := h.conversations.Create(c.Request.Context(), c.GetString("user_id"), usecases.CreateConversationInput{
		Channel:            entities.ChannelType(req.Channel),
		CustomerExternalID: req.Customer.ExternalID,
		CustomerName:       SanitizeString(req.Customer.Name),
		CustomerPhone:      req.Customer.Phone,
		Metadata:           req.Metadata,
	})
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, conv)
}

func (h *Handler) SetConversationStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", "VALIDATION")
		return
	}

	conv, err := h.conversations.SetStatus(c.Request.Context(), c.GetString("user_id"), c.Param("id"),
		entities.ConversationStatus(req.Status))
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, conv)
}

func (h *Handler) AssignConversation(c *gin.Context) {
	var req struct {
		AgentID string `json:"agentId"`
	}
	// Body optional; empty assigns the caller.
	c.ShouldBindJSON(&req)

	conv, err := h.conversations.Assign(c.Request.Context(), c.GetString("user_id"), c.Param("id"), req.AgentID)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, conv)
}

// CloseConversation is shorthand for PATCH status=closed.
func (h *Handler) CloseConversation(c *gin.Context) {
	conv, err := h.conversations.SetStatus(c.Request.Context(), c.GetString("user_id"), c.Param("id"), entities.StatusClosed)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, conv)
}
