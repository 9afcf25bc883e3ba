package handler

import (
	"context"
	"net/http"

	"storefront-assistant/internal/chat"
	"storefront-assistant/internal/render"
	"storefront-assistant/internal/utils"
	"storefront-assistant/pkg/logger"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
)

type messageRequest struct {
	Message string `json:"message" form:"message"`
}

type preferenceRequest struct {
	ProductType string `json:"product_type" form:"product_type"`
}

func (h *AssistantHandler) Page(c *gin.Context) {
	ws := workspace(c)

	c.Header("Content-Type", "text/html; charset=utf-8")
	err := h.service.Renderer().Page(c.Writer, render.PageData{
		CartCount:  h.service.Cart().Count(),
		Preference: ws.Chat.Preference(),
		Input:      ws.Chat.Input(),
		Transcript: ws.Chat.TranscriptHTML(),
	})
	if err != nil {
		logger.Errorf("Failed to render page: %v", err)
		c.Status(http.StatusInternalServerError)
	}
}

// exchangeContext keeps request values but not its cancellation, so a
// disconnecting browser does not abort an exchange already under way.
func exchangeContext(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func (h *AssistantHandler) SendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ex, err := workspace(c).Chat.Send(exchangeContext(c), req.Message, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":       ex.User.HTML,
		"reply":      ex.Reply.HTML,
		"cart_count": h.service.Cart().Count(),
	})
}

// StreamMessage runs the same cycle as SendMessage and streams each
// transcript change as an SSE event.
func (h *AssistantHandler) StreamMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var sse *utils.SSEWriter
	observe := func(e chat.Event) {
		if sse == nil {
			sse = utils.NewSSEWriter(c.Writer)
			c.Status(http.StatusOK)
		}
		if err := sse.WriteJSON(string(e.Type), e); err != nil {
			logger.Warnf("Failed to write SSE event %s: %v", e.Type, err)
		}
	}

	// Send reports its errors before the first event.
	if _, err := workspace(c).Chat.Send(exchangeContext(c), req.Message, observe); err != nil {
		respondError(c, err)
		return
	}
	if sse != nil {
		sse.Close()
	}
}

func (h *AssistantHandler) SetPreference(c *gin.Context) {
	var req preferenceRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws := workspace(c)
	if err := ws.Chat.SetPreference(req.ProductType); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_type": ws.Chat.Preference()})
}

func (h *AssistantHandler) Transcript(c *gin.Context) {
	ws := workspace(c)

	c.JSON(http.StatusOK, gin.H{
		"state":    ws.Chat.State().String(),
		"messages": ws.Chat.TranscriptHTML(),
	})
}

func (h *AssistantHandler) ResetChat(c *gin.Context) {
	if err := workspace(c).Chat.Reset(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Chat reset"})
}

func (h *AssistantHandler) renderFailed(c *gin.Context, err error, what string) {
	respondError(c, pkgerrors.Wrap(err, "render "+what))
}
