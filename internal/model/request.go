package model

// ChatRequest is the /chat body. ProductType is nil when no preference is
// selected and is sent as JSON null.
type ChatRequest struct {
	Message     string  `json:"message"`
	ProductType *string `json:"product_type"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type ScrapeRequest struct {
	URL string `json:"url"`
}
