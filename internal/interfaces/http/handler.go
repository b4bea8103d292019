package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VitorRandrade/omnibot-hub-api/internal/infrastructure"
	"github.com/VitorRandrade/omnibot-hub-api/internal/infrastructure/realtime"
	"github.com/VitorRandrade/omnibot-hub-api/internal/repository"
	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

// UsageReader serves the per-tenant message counters for the dashboard.
type UsageReader interface {
	GetUsageHistory(ctx context.Context, tenantID string, days int) ([]repository.DailyUsage, error)
}

type Handler struct {
	auth          *usecases.AuthUsecase
	ingest        *usecases.IngestUsecase
	conversations *usecases.ConversationUsecase
	tenants       usecases.TenantResolver
	hub           *realtime.Hub
	usage         UsageReader
	waManager     *infrastructure.WhatsAppManager
	tgManager     *infrastructure.TelegramBotManager
}

func NewHandler(
	auth *usecases.AuthUsecase,
	ingest *usecases.IngestUsecase,
	conversations *usecases.ConversationUsecase,
	tenants usecases.TenantResolver,
	hub *realtime.Hub,
	usage UsageReader,
	waManager *infrastructure.WhatsAppManager,
	tgManager *infrastructure.TelegramBotManager,
) *Handler {
	return &Handler{
		auth:          auth,
		ingest:        ingest,
		conversations: conversations,
		tenants:       tenants,
		hub:           hub,
		usage:         usage,
		waManager:     waManager,
		tgManager:     tgManager,
	}
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware) {
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB max request size
	r.Use(middleware.CORSMiddleware())

	// External ingress. Authenticated by webhook signature, not JWT.
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/n8n/message", h.HandleDefaultChannelWebhook)
		webhooks.POST("/channels/:type/:id", h.HandleChannelWebhook)
	}

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", h.Login)
	}

	// Realtime handshake. Token checked inside the handler so browser
	// websocket clients can pass it via query string.
	r.GET("/ws", h.HandleSocket)

	api := r.Group("/api")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(5, 10))
	{
		api.GET("/auth/me", h.Me)

		api.GET("/conversations", h.ListConversations)
		api.POST("/conversations", h.CreateConversation)
		api.GET("/conversations/:id", h.GetConversation)
		api.PATCH("/conversations/:id/status", h.SetConversationStatus)
		api.PATCH("/conversations/:id/assign", h.AssignConversation)
		api.POST("/conversations/:id/close", h.CloseConversation)

		api.GET("/conversations/:id/messages", h.ListMessages)
		api.POST("/conversations/:id/messages", h.SendMessage)
		api.POST("/conversations/:id/messages/read", h.MarkRead)
		api.GET("/conversations/:id/messages/unread-count", h.UnreadCount)

		api.GET("/usage", h.Usage)
	}

	channels := api.Group("/channels")
	channels.Use(middleware.AdminRequired())
	{
		channels.GET("/whatsapp/qr", h.WhatsAppQR)
		channels.POST("/whatsapp/connect", h.ConnectWhatsApp)
		channels.POST("/whatsapp/logout", h.LogoutWhatsApp)
		channels.GET("/telegram/status", h.TelegramStatus)
		channels.POST("/telegram/connect", h.ConnectTelegram)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminRequired())
	{
		admin.POST("/users", h.RegisterUser)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", "VALIDATION")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.auth.Me(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req struct {
		TenantID string `json:"tenantId"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Role     string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body", "VALIDATION")
		return
	}

	// Admins create users inside their own tenant unless told otherwise.
	if req.TenantID == "" {
		tenantID, err := h.tenants.ResolveTenant(c.Request.Context(), c.GetString("user_id"))
		if err != nil {
			respondUsecaseError(c, usecases.ErrNotFound)
			return
		}
		req.TenantID = tenantID
	}

	user, err := h.auth.Register(c.Request.Context(), usecases.RegisterInput{
		TenantID: req.TenantID,
		Email:    req.Email,
		Password: req.Password,
		Name:     SanitizeString(req.Name),
		Role:     req.Role,
	})
	if err != nil {
		respondUsecaseError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

// Usage returns the tenant's daily sent/received counters.
func (h *Handler) Usage(c *gin.Context) {
	if h.usage == nil {
		respondError(c, http.StatusServiceUnavailable, "usage tracking not configured", "UNAVAILABLE")
		return
	}
	tenantID, ok := h.tenantOf(c)
	if !ok {
		return
	}

	days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
	if days < 1 || days > 365 {
		days = 30
	}

	history, err := h.usage.GetUsageHistory(c.Request.Context(), tenantID, days)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load usage", "INTERNAL")
		return
	}
	respondOK(c, http.StatusOK, history)
}
