package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storefront-assistant/internal/gateway"
	"storefront-assistant/internal/model"
	"storefront-assistant/pkg/logger"
)

const (
	searchEndpoint = "/search"

	DefaultSnippetLength = 150

	unknownTitle       = "Unknown Product"
	missingDescription = "No description"
)

type response struct {
	Results []map[string]any `json:"results"`
}

// Session runs search requests and keeps the last rendered view.
type Session struct {
	gateway       gateway.Gateway
	snippetLength int

	mu   sync.Mutex
	last model.SearchView
}

func NewSession(gw gateway.Gateway, snippetLength int) *Session {
	if snippetLength <= 0 {
		snippetLength = DefaultSnippetLength
	}
	return &Session{gateway: gw, snippetLength: snippetLength}
}

// Search issues one /search call and maps the outcome to a view. Failures
// are reported in the view's Error field, never returned.
func (s *Session) Search(ctx context.Context, query string) model.SearchView {
	view := model.SearchView{Query: query}

	outcome := s.gateway.Call(ctx, searchEndpoint, model.SearchRequest{Query: query})
	raw, ok := outcome.Value()
	if !ok {
		view.Error = outcome.Error()
		return s.remember(view)
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.Warnf("Unexpected search payload: %v", err)
		view.Error = err.Error()
		return s.remember(view)
	}

	if len(resp.Results) == 0 {
		view.Empty = true
		return s.remember(view)
	}

	view.Results = make([]model.SearchResult, 0, len(resp.Results))
	for _, item := range resp.Results {
		view.Results = append(view.Results, s.toResult(item))
	}
	return s.remember(view)
}

// Last returns the view of the most recent search.
func (s *Session) Last() model.SearchView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) remember(view model.SearchView) model.SearchView {
	s.mu.Lock()
	s.last = view
	s.mu.Unlock()
	return view
}

func (s *Session) toResult(item map[string]any) model.SearchResult {
	metadata, _ := item["metadata"].(map[string]any)

	title := firstNonEmpty(metadata["title"], item["title"], unknownTitle)
	desc := firstNonEmpty(metadata["description"], item["description"], missingDescription)

	result := model.SearchResult{
		Title:   title,
		Snippet: truncate(desc, s.snippetLength) + "...",
	}
	if score, ok := item["score"].(float64); ok && score != 0 {
		result.Score = fmt.Sprintf("Score: %.4f", score)
	}
	return result
}

func firstNonEmpty(primary, secondary any, fallback string) string {
	if v := model.Text(primary); v != "" {
		return v
	}
	if v := model.Text(secondary); v != "" {
		return v
	}
	return fallback
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
