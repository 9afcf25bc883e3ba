package handler

import (
	"errors"
	"net/http"

	"storefront-assistant/internal/chat"
	"storefront-assistant/internal/scrape"
	"storefront-assistant/internal/service"
	"storefront-assistant/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	visitorCookie = "visitor_id"
	workspaceKey  = "workspace"
)

type AssistantHandler struct {
	service      *service.AssistantService
	cookieMaxAge int
}

func NewAssistantHandler(svc *service.AssistantService, cookieMaxAge int) *AssistantHandler {
	return &AssistantHandler{
		service:      svc,
		cookieMaxAge: cookieMaxAge,
	}
}

// RegisterRoutes mounts the page and the /ui endpoints.
func (h *AssistantHandler) RegisterRoutes(r gin.IRouter) {
	r.Use(h.Visitor())

	r.GET("/", h.Page)

	ui := r.Group("/ui")
	{
		chatGroup := ui.Group("/chat")
		{
			chatGroup.POST("/send", h.SendMessage)
			chatGroup.POST("/stream", h.StreamMessage)
			chatGroup.POST("/preference", h.SetPreference)
			chatGroup.GET("/transcript", h.Transcript)
			chatGroup.POST("/reset", h.ResetChat)
		}

		cartGroup := ui.Group("/cart")
		{
			cartGroup.POST("/add", h.AddToCart)
			cartGroup.GET("", h.GetCart)
			cartGroup.POST("/clear", h.ClearCart)
		}

		ui.POST("/search", h.Search)
		ui.POST("/scrape/:kind", h.Scrape)
	}
}

// Visitor resolves the visitor's workspace from the cookie, issuing a new
// cookie when the visitor is unknown.
func (h *AssistantHandler) Visitor() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(visitorCookie)

		ws := h.service.Workspace(id)
		if ws.ID != id {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(visitorCookie, ws.ID, h.cookieMaxAge, "/", "", false, true)
		}

		c.Set(workspaceKey, ws)
		c.Next()
	}
}

func workspace(c *gin.Context) *service.Workspace {
	return c.MustGet(workspaceKey).(*service.Workspace)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrBlankMessage),
		errors.Is(err, chat.ErrUnknownProductType),
		errors.Is(err, scrape.ErrMissingURL),
		errors.Is(err, scrape.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrSendInProgress):
		return http.StatusConflict
	case errors.Is(err, chat.ErrUnknownCard):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
