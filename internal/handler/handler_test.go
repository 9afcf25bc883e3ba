package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront-assistant/internal/card"
	"storefront-assistant/internal/chat"
	"storefront-assistant/internal/config"
	"storefront-assistant/internal/model"
	"storefront-assistant/internal/render"
	"storefront-assistant/internal/scrape"
	"storefront-assistant/internal/service"
	"storefront-assistant/internal/storage"

	"github.com/gin-gonic/gin"
	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// routeGateway answers each backend endpoint with a canned body.
type routeGateway map[string]string

func (g routeGateway) Call(_ context.Context, endpoint string, _ any) model.Outcome[json.RawMessage] {
	body, ok := g[endpoint]
	if !ok {
		return model.Err[json.RawMessage]("connection refused")
	}
	return model.Ok(json.RawMessage(body))
}

type client struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func newClient(t *testing.T, gw routeGateway) (*client, *service.AssistantService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Backend: config.BackendConfig{ScrapeKind: "millex"},
		Storage: config.StorageConfig{Type: "memory", CartKey: "cart"},
		UI:      config.UIConfig{CurrencySymbol: "₹", SnippetLength: 150},
	}
	r, err := render.New(cfg.UI.CurrencySymbol)
	require.NoError(t, err)

	svc := service.NewAssistantService(cfg, storage.NewMemoryStorage(), gw, r)
	t.Cleanup(func() { svc.Close() })

	router := gin.New()
	NewAssistantHandler(svc, 3600).RegisterRoutes(router)
	return &client{t: t, router: router}, svc
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == visitorCookie {
			c.cookie = ck
		}
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestPage_IssuesVisitorCookie(t *testing.T) {
	c, svc := newClient(t, routeGateway{})

	w := c.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cart (0)")
	require.NotNil(t, c.cookie)
	assert.Equal(t, 1, svc.WorkspaceCount())

	// same visitor, same workspace, no new cookie
	first := c.cookie
	w = c.do(http.MethodGet, "/", nil)
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, first.Value, c.cookie.Value)
	assert.Equal(t, 1, svc.WorkspaceCount())
}

func TestSendMessage(t *testing.T) {
	c, _ := newClient(t, routeGateway{"/chat": `{"response":"**Hi!**\nHow can I help?"}`})

	w := c.do(http.MethodPost, "/ui/chat/send", gin.H{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	out := decode(t, w)
	assert.Contains(t, out["reply"], "<strong>Hi!</strong><br>How can I help?")
	assert.Contains(t, out["user"], "hello")
	assert.EqualValues(t, 0, out["cart_count"])

	w = c.do(http.MethodGet, "/ui/chat/transcript", nil)
	out = decode(t, w)
	assert.Equal(t, "idle", out["state"])
	assert.Len(t, out["messages"], 2)
}

func TestSendMessage_Blank(t *testing.T) {
	c, _ := newClient(t, routeGateway{})

	w := c.do(http.MethodPost, "/ui/chat/send", gin.H{"message": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, chat.ErrBlankMessage.Error(), decode(t, w)["error"])
}

func TestSendMessage_NetworkError(t *testing.T) {
	c, _ := newClient(t, routeGateway{})

	w := c.do(http.MethodPost, "/ui/chat/send", gin.H{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["reply"], "Network Error: connection refused")
}

func TestStreamMessage(t *testing.T) {
	c, _ := newClient(t, routeGateway{"/chat": `{"response":"Here","products":[{"title":"Shirt","pricing":{"price":"20"}}]}`})

	w := c.do(http.MethodPost, "/ui/chat/stream", gin.H{"message": "shirts"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	typing := strings.Index(body, "event: typing\n")
	removed := strings.Index(body, "event: typing_removed\n")
	done := strings.Index(body, "data: [DONE]")

	assert.Equal(t, 2, strings.Count(body, "event: message\n"))
	assert.True(t, typing >= 0 && typing < removed && removed < done, body)
	assert.Contains(t, body, "chat-product-card")
}

func TestStreamMessage_BlankIsPlainJSON(t *testing.T) {
	c, _ := newClient(t, routeGateway{})

	w := c.do(http.MethodPost, "/ui/chat/stream", gin.H{"message": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotContains(t, w.Body.String(), "[DONE]")
}

func TestPreference(t *testing.T) {
	c, _ := newClient(t, routeGateway{})

	w := c.do(http.MethodPost, "/ui/chat/preference", gin.H{"product_type": "single"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "single", decode(t, w)["product_type"])

	w = c.do(http.MethodPost, "/ui/chat/preference", gin.H{"product_type": "bulk"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodGet, "/", nil)
	assert.Contains(t, w.Body.String(), `value="single" selected`)
}

func TestCartFlow(t *testing.T) {
	c, svc := newClient(t, routeGateway{"/chat": `{"response":"Here","products":[{"title":"Shirt","pricing":{"price":"20"}}]}`})

	w := c.do(http.MethodPost, "/ui/chat/send", gin.H{"message": "shirts"})
	require.Equal(t, http.StatusOK, w.Code)

	ws, err := svc.GetWorkspace(c.cookie.Value)
	require.NoError(t, err)
	transcript := ws.Chat.Transcript()
	require.Len(t, transcript, 2)
	key := transcript[1].Products[0].Key

	w = c.do(http.MethodPost, "/ui/cart/add", gin.H{"key": key})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.EqualValues(t, 1, out["count"])
	assert.Equal(t, "Cart (1)", out["badge"])
	assert.Equal(t, `Added "Shirt" to cart!`, out["notice"])

	source, err := card.EncodeSource(model.Product{"title": "Dal", "variants": []any{map[string]any{"price": "5.5"}}})
	require.NoError(t, err)
	w = c.do(http.MethodPost, "/ui/cart/add", gin.H{"source": source})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["count"])

	w = c.do(http.MethodGet, "/ui/cart", nil)
	out = decode(t, w)
	assert.Equal(t, "25.50", out["total"])
	assert.Contains(t, out["html"], "Total: ₹25.50")

	w = c.do(http.MethodPost, "/ui/cart/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, svc.Cart().Count())
}

func TestAddToCart_UnknownCard(t *testing.T) {
	c, _ := newClient(t, routeGateway{})

	w := c.do(http.MethodPost, "/ui/cart/add", gin.H{"key": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch(t *testing.T) {
	c, _ := newClient(t, routeGateway{"/search": `{"results":[{"metadata":{"title":"Basmati"},"score":0.5}]}`})

	w := c.do(http.MethodPost, "/ui/search", gin.H{"query": "rice"})
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Contains(t, out["html"], "Basmati")
	assert.Contains(t, out["html"], "Score: 0.5000")
}

func TestScrape(t *testing.T) {
	c, _ := newClient(t, routeGateway{"/millex/scrape/product": `{"ok":true}`})

	w := c.do(http.MethodPost, "/ui/scrape/product", gin.H{"url": "https://shop/p/1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Starting product scrape for https://shop/p/1...\n{\n  \"ok\": true\n}", decode(t, w)["log"])

	w = c.do(http.MethodPost, "/ui/scrape/product", gin.H{"url": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please enter a URL", decode(t, w)["error"])

	w = c.do(http.MethodPost, "/ui/scrape/catalog", gin.H{"url": "https://shop"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResetChat(t *testing.T) {
	c, _ := newClient(t, routeGateway{"/chat": `{"response":"ok"}`})

	c.do(http.MethodPost, "/ui/chat/send", gin.H{"message": "hi"})
	w := c.do(http.MethodPost, "/ui/chat/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = c.do(http.MethodGet, "/ui/chat/transcript", nil)
	assert.Empty(t, decode(t, w)["messages"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{chat.ErrBlankMessage, http.StatusBadRequest},
		{chat.ErrUnknownProductType, http.StatusBadRequest},
		{scrape.ErrMissingURL, http.StatusBadRequest},
		{chat.ErrSendInProgress, http.StatusConflict},
		{errors.Join(chat.ErrUnknownCard, card.ErrInvalidSource), http.StatusNotFound},
		{pkgerrors.Wrap(storage.ErrFileOperation, "write cart"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
