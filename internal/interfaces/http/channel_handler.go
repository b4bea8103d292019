package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
)

// Channel management endpoints for admins: pairing the tenant's WhatsApp
// session and connecting the tenant's Telegram bot.

func (h *Handler) tenantOf(c *gin.Context) (string, bool) {
	tenantID, err := h.tenants.ResolveTenant(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "unknown principal", "UNAUTHORIZED")
		return "", false
	}
	return tenantID, true
}

func (h *Handler) ConnectWhatsApp(c *gin.Context) {
	if h.waManager == nil {
		respondError(c, http.StatusServiceUnavailable, "whatsapp channel not configured", "UNAVAILABLE")
		return
	}
	tenantID, ok := h.tenantOf(c)
	if !ok {
		return
	}

	client, err := h.waManager.ConnectClient(tenantID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to connect whatsapp", "INTERNAL")
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"loggedIn": client.IsLoggedIn(),
		"phone":    client.PhoneNumber(),
	})
}

// WhatsAppQR renders the current pairing code as a PNG. 404 until the
// session produces one.
func (h *Handler) WhatsAppQR(c *gin.Context) {
	if h.waManager == nil {
		respondError(c, http.StatusServiceUnavailable, "whatsapp channel not configured", "UNAVAILABLE")
		return
	}
	tenantID, ok := h.tenantOf(c)
	if !ok {
		return
	}

	client := h.waManager.GetClient(tenantID)
	if client == nil {
		respondError(c, http.StatusNotFound, "no whatsapp session, connect first", "NOT_FOUND")
		return
	}
	if client.IsLoggedIn() {
		respondOK(c, http.StatusOK, gin.H{"loggedIn": true, "phone": client.PhoneNumber()})
		return
	}

	code := client.GetQR()
	if code == "" {
		respondError(c, http.StatusNotFound, "pairing code not ready yet", "NOT_READY")
		return
	}

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to render qr code", "INTERNAL")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) LogoutWhatsApp(c *gin.Context) {
	if h.waManager == nil {
		respondError(c, http.StatusServiceUnavailable, "whatsapp channel not configured", "UNAVAILABLE")
		return
	}
	tenantID, ok := h.tenantOf(c)
	if !ok {
		return
	}

	if err := h.waManager.LogoutClient(tenantID); err != nil {
		respondError(c, http.StatusInternalServerError, "logout failed", "INTERNAL")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"loggedOut": true})
}

func (h *Handler) ConnectTelegram(c *gin.Context) {
	if h.tgManager == nil {
		respondError(c, http.StatusServiceUnavailable, "telegram channel not configured", "UNAVAILABLE")
		return
	}
	tenantID, ok := h.tenantOf(c)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Token == "" {
		respondError(c, http.StatusBadRequest, "bot token is required", "VALIDATION")
		return
	}

	instance, err := h.tgManager.ConnectBot(tenantID, req.Token)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid bot token", "VALIDATION")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"bot": instance.Bot.Self.UserName})
}

func (h *Handler) TelegramStatus(c *gin.Context) {
	if h.tgManager == nil {
		respondError(c, http.StatusServiceUnavailable, "telegram channel not configured", "UNAVAILABLE")
		return
	}
	tenantID, ok := h.tenantOf(c)
	if !ok {
		return
	}

	connected, botName := h.tgManager.GetStatus(tenantID)
	respondOK(c, http.StatusOK, gin.H{"connected": connected, "bot": botName})
}
