package model

import (
	"html/template"
	"time"
)

type Sender string

const (
	SenderUser Sender = "User"
	SenderAI   Sender = "AI"
)

// ProductCard is the renderable view of one Product.
type ProductCard struct {
	Key              string  `json:"key"`
	Title            string  `json:"title"`
	ImageURL         *string `json:"image_url"`
	Price            string  `json:"price"`
	DetailURL        *string `json:"detail_url"`
	SerializedSource string  `json:"serialized_source"`
}

// ChatMessage is one rendered transcript entry. It is never persisted.
type ChatMessage struct {
	ID        string        `json:"id"`
	Sender    Sender        `json:"sender"`
	RawText   string        `json:"raw_text"`
	IsUser    bool          `json:"is_user"`
	Products  []ProductCard `json:"products"`
	HTML      template.HTML `json:"html"`
	Timestamp time.Time     `json:"timestamp"`
}

type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Score   string `json:"score,omitempty"`
}

// SearchView is what the search surface renders: results, an empty notice
// or an error line.
type SearchView struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
	Empty   bool           `json:"empty"`
	Error   string         `json:"error,omitempty"`
}

type CartLine struct {
	Title string `json:"title"`
	Price string `json:"price"`
}

type CartSummary struct {
	Lines []CartLine `json:"lines"`
	Count int        `json:"count"`
	Total string     `json:"total"`
}
