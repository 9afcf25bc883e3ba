package utils

import (
	"net"
	"net/http"
	"time"
)

// RoundTripperWrapper decorates the pooled transport, e.g. with logging.
type RoundTripperWrapper func(http.RoundTripper) http.RoundTripper

// NewHTTPClient returns a client with a pooled transport. timeout bounds the
// whole exchange; zero leaves it to the transport defaults.
func NewHTTPClient(timeout time.Duration, wrappers ...RoundTripperWrapper) *http.Client {
	var transport http.RoundTripper = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	for _, wrap := range wrappers {
		transport = wrap(transport)
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
