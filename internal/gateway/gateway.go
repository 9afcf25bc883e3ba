package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"storefront-assistant/internal/config"
	"storefront-assistant/internal/model"
	"storefront-assistant/internal/utils"
	"storefront-assistant/pkg/logger"

	pkgerrors "github.com/pkg/errors"
)

const defaultMaxBodyBytes = 8 << 20

// Gateway issues one POST per call and always returns an Outcome; failures
// never escape as Go errors or panics.
type Gateway interface {
	Call(ctx context.Context, endpoint string, payload any) model.Outcome[json.RawMessage]
}

type Client struct {
	baseURL      string
	httpClient   *http.Client
	maxBodyBytes int64
}

func NewClient(cfg config.BackendConfig) *Client {
	var wrappers []utils.RoundTripperWrapper
	if cfg.DebugRequests {
		wrappers = append(wrappers, func(rt http.RoundTripper) http.RoundTripper {
			return NewDebugTransport(rt)
		})
	}

	return NewClientWithHTTP(cfg.BaseURL, utils.NewHTTPClient(cfg.Timeout, wrappers...), cfg.MaxBodyBytes)
}

func NewClientWithHTTP(baseURL string, httpClient *http.Client, maxBodyBytes int64) *Client {
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		maxBodyBytes: maxBodyBytes,
	}
}

// Call posts payload as JSON to endpoint and decodes the body as JSON
// whatever the status code. There is no retry.
func (c *Client) Call(ctx context.Context, endpoint string, payload any) model.Outcome[json.RawMessage] {
	start := time.Now()
	log := logger.WithFields(logger.Fields{"endpoint": endpoint})

	raw, status, err := c.do(ctx, endpoint, payload)
	if err != nil {
		log.WithField("duration", time.Since(start)).Warnf("backend call failed: %v", err)
		return model.Err[json.RawMessage](describe(err))
	}

	log.WithFields(logger.Fields{
		"status":   status,
		"duration": time.Since(start),
	}).Debug("backend call completed")

	return model.Ok(raw)
}

func (c *Client) do(ctx context.Context, endpoint string, payload any) (json.RawMessage, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "could not encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "could not build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, pkgerrors.Wrapf(err, "request to %s failed", endpoint)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, resp.StatusCode, pkgerrors.Wrap(err, "could not read response body")
	}
	if int64(len(data)) > c.maxBodyBytes {
		return nil, resp.StatusCode, fmt.Errorf("response body exceeds %d bytes", c.maxBodyBytes)
	}

	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, resp.StatusCode, pkgerrors.Wrapf(err, "malformed response body (status %d)", resp.StatusCode)
	}

	return raw, resp.StatusCode, nil
}

// describe turns a transport failure into the message shown to the user.
func describe(err error) string {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}
