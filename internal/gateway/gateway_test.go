package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront-assistant/internal/config"
	"storefront-assistant/internal/model"
	"storefront-assistant/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCall_PostsJSONAndDecodes(t *testing.T) {
	var gotMethod, gotPath, gotType string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotType = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"response":"hi","products":[]}`))
	}))
	defer srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: srv.URL + "/api/v1/", Timeout: time.Second})
	out := c.Call(context.Background(), "/chat", model.ChatRequest{Message: "hello"})

	raw, ok := out.Value()
	require.True(t, ok, out.Error())
	assert.JSONEq(t, `{"response":"hi","products":[]}`, string(raw))

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/api/v1/chat", gotPath)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, map[string]any{"message": "hello", "product_type": nil}, gotBody)
}

func TestCall_DecodesErrorStatusBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"boom"}`))
	}))
	defer srv.Close()

	out := NewClient(config.BackendConfig{BaseURL: srv.URL}).Call(context.Background(), "/chat", nil)

	raw, ok := out.Value()
	require.True(t, ok)
	assert.JSONEq(t, `{"detail":"boom"}`, string(raw))
}

func TestCall_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	out := NewClient(config.BackendConfig{BaseURL: srv.URL}).Call(context.Background(), "/search", model.SearchRequest{Query: "x"})

	assert.False(t, out.IsOk())
	assert.Contains(t, out.Error(), "malformed response body (status 502)")
}

func TestCall_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	out := NewClient(config.BackendConfig{BaseURL: srv.URL}).Call(context.Background(), "/chat", nil)
	assert.False(t, out.IsOk())
}

func TestCall_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := NewClient(config.BackendConfig{BaseURL: url, Timeout: time.Second}).Call(context.Background(), "/chat", nil)

	assert.False(t, out.IsOk())
	assert.Contains(t, out.Error(), "request to /chat failed")
}

func TestCall_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	out := NewClient(config.BackendConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}).Call(context.Background(), "/chat", nil)

	assert.False(t, out.IsOk())
	assert.True(t, strings.HasPrefix(out.Error(), "timeout: "), out.Error())
}

func TestCall_UnencodablePayload(t *testing.T) {
	out := NewClient(config.BackendConfig{BaseURL: "http://127.0.0.1:1"}).Call(context.Background(), "/chat", map[string]any{"f": func() {}})

	assert.False(t, out.IsOk())
	assert.Contains(t, out.Error(), "could not encode request")
}

func TestCall_BodyTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"response":"` + strings.Repeat("a", 64) + `"}`))
	}))
	defer srv.Close()

	out := NewClientWithHTTP(srv.URL, srv.Client(), 16).Call(context.Background(), "/chat", nil)
	assert.False(t, out.IsOk())
	assert.Contains(t, out.Error(), "exceeds 16 bytes")
}

func TestDebugTransport_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, logger.InitWithOutput("debug", "json", &buf))
	defer logger.InitWithOutput("info", "text", io.Discard)

	var seenBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		seenBody = string(data)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(config.BackendConfig{BaseURL: srv.URL, DebugRequests: true})
	out := c.Call(context.Background(), "/scrape", map[string]string{"url": "https://x", "token": "s3cret"})
	require.True(t, out.IsOk(), out.Error())

	assert.Contains(t, seenBody, "s3cret", "the backend still receives the real body")
	assert.NotContains(t, buf.String(), "s3cret")
	assert.Contains(t, buf.String(), "[REDACTED]")
}
