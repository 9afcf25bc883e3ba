package handler

import (
	"net/http"

	"storefront-assistant/internal/render"

	"github.com/gin-gonic/gin"
)

type cartAddRequest struct {
	Key    string `json:"key" form:"key"`
	Source string `json:"source" form:"source"`
}

func (h *AssistantHandler) AddToCart(c *gin.Context) {
	var req cartAddRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := workspace(c).Chat.AddToCart(exchangeContext(c), req.Key, req.Source)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  added.Count,
		"badge":  render.Badge(added.Count),
		"notice": added.Notice,
	})
}

func (h *AssistantHandler) GetCart(c *gin.Context) {
	summary := h.service.Cart().Summary()

	html, err := h.service.Renderer().Cart(summary)
	if err != nil {
		h.renderFailed(c, err, "cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"html":  html,
		"count": summary.Count,
		"total": summary.Total,
		"badge": render.Badge(summary.Count),
	})
}

func (h *AssistantHandler) ClearCart(c *gin.Context) {
	if err := h.service.Cart().Clear(exchangeContext(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": 0,
		"badge": render.Badge(0),
	})
}
