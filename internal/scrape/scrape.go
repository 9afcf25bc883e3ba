package scrape

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storefront-assistant/internal/gateway"
	"storefront-assistant/internal/model"
	"storefront-assistant/pkg/logger"
)

type Kind string

const (
	KindProduct    Kind = "product"
	KindCollection Kind = "collection"
	KindHomepage   Kind = "homepage"
)

var (
	ErrMissingURL  = errors.New("Please enter a URL")
	ErrUnknownKind = errors.New("unknown scrape kind")
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindProduct, KindCollection, KindHomepage:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Runner triggers scrapes on the backend. The log it returns is an
// operational dump: the whole decoded response, indented.
type Runner struct {
	gateway gateway.Gateway
	source  string
}

// NewRunner creates a runner for scraper source, e.g. "millex".
func NewRunner(gw gateway.Gateway, source string) *Runner {
	return &Runner{gateway: gw, source: strings.Trim(source, "/")}
}

func (r *Runner) Endpoint(kind Kind) string {
	return "/" + r.source + "/scrape/" + string(kind)
}

// Run issues one scrape call. Only a blank url is an error; backend and
// transport failures are appended to the log.
func (r *Runner) Run(ctx context.Context, kind Kind, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", ErrMissingURL
	}

	var log strings.Builder
	fmt.Fprintf(&log, "Starting %s scrape for %s...\n", kind, url)

	logger.WithFields(logger.Fields{"kind": kind, "url": url}).Info("Scrape requested")

	outcome := r.gateway.Call(ctx, r.Endpoint(kind), model.ScrapeRequest{URL: url})
	raw, ok := outcome.Value()
	if !ok {
		log.WriteString("\nError: " + outcome.Error())
		return log.String(), nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		log.WriteString("\nError: " + err.Error())
		return log.String(), nil
	}
	log.Write(pretty.Bytes())
	return log.String(), nil
}
