package gateway

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strings"

	"storefront-assistant/pkg/logger"

	"github.com/sirupsen/logrus"
)

var (
	sensitiveHeaders = []string{"authorization", "x-api-key", "x-auth-token", "cookie"}
	sensitiveFields  = regexp.MustCompile(`(?i)("(?:api_key|apikey|password|secret|token)"\s*:\s*)"[^"]*"`)
)

// DebugTransport logs every POST going to the backend: method, URL, headers
// with credentials redacted, and the body with secret-looking fields masked.
type DebugTransport struct {
	base http.RoundTripper
	log  *logrus.Logger
}

func NewDebugTransport(base http.RoundTripper) *DebugTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &DebugTransport{
		base: base,
		log:  logger.L(),
	}
}

func (t *DebugTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		t.logRequest(req)
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.log.WithField("url", req.URL.String()).Errorf("[gateway debug] request failed: %v", err)
		return nil, err
	}

	t.log.WithFields(logrus.Fields{
		"url":    req.URL.String(),
		"status": resp.StatusCode,
	}).Info("[gateway debug] response")
	return resp, nil
}

func (t *DebugTransport) logRequest(req *http.Request) {
	headers := make(map[string]string, len(req.Header))
	for name, values := range req.Header {
		if isSensitiveHeader(name) {
			headers[name] = "[REDACTED]"
			continue
		}
		headers[name] = strings.Join(values, ", ")
	}

	body := "(empty)"
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			t.log.Errorf("[gateway debug] failed to read request body: %v", err)
			return
		}
		// hand the body back to the real transport
		req.Body = io.NopCloser(bytes.NewReader(data))
		if len(data) > 0 {
			body = redactBody(string(data))
		}
	}

	t.log.WithFields(logrus.Fields{
		"method":  req.Method,
		"url":     req.URL.String(),
		"headers": headers,
		"body":    body,
	}).Info("[gateway debug] request")
}

func redactBody(body string) string {
	return sensitiveFields.ReplaceAllString(body, `${1}"[REDACTED]"`)
}

func isSensitiveHeader(name string) bool {
	for _, sensitive := range sensitiveHeaders {
		if strings.EqualFold(name, sensitive) {
			return true
		}
	}
	return false
}
