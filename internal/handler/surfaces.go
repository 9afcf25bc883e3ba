package handler

import (
	"net/http"

	"storefront-assistant/internal/scrape"

	"github.com/gin-gonic/gin"
)

type searchRequest struct {
	Query string `json:"query" form:"query"`
}

type scrapeRequest struct {
	URL string `json:"url" form:"url"`
}

func (h *AssistantHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view := workspace(c).Search.Search(exchangeContext(c), req.Query)

	html, err := h.service.Renderer().Search(view)
	if err != nil {
		h.renderFailed(c, err, "search results")
		return
	}

	c.JSON(http.StatusOK, gin.H{"html": html, "view": view})
}

func (h *AssistantHandler) Scrape(c *gin.Context) {
	kind, err := scrape.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}

	var req scrapeRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log, err := h.service.Scraper().Run(exchangeContext(c), kind, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	html, err := h.service.Renderer().ScrapeLog(log)
	if err != nil {
		h.renderFailed(c, err, "scrape log")
		return
	}

	c.JSON(http.StatusOK, gin.H{"log": log, "html": html})
}
