package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"storefront-assistant/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns transcript entries, cards and surface views into markup.
// Every backend or user supplied string goes through html/template escaping;
// FormatText is the only place raw HTML is produced.
type Renderer struct {
	templates *template.Template
}

type messageView struct {
	ID       string
	IsUser   bool
	Text     template.HTML
	Products []model.ProductCard
}

// PageData feeds the page shell.
type PageData struct {
	CartCount  int
	Preference string
	Input      string
	Transcript []template.HTML
}

func New(currencySymbol string) (*Renderer, error) {
	funcs := template.FuncMap{
		"currency": func() string { return currencySymbol },
		"badge":    Badge,
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	t, err := template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{templates: t}, nil
}

// Badge is the cart counter text.
func Badge(count int) string {
	return fmt.Sprintf("Cart (%d)", count)
}

func (r *Renderer) execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) Message(msg model.ChatMessage) (template.HTML, error) {
	return r.execute("message", messageView{
		ID:       msg.ID,
		IsUser:   msg.IsUser,
		Text:     FormatText(msg.RawText),
		Products: msg.Products,
	})
}

func (r *Renderer) Typing(id string) (template.HTML, error) {
	return r.execute("typing", id)
}

func (r *Renderer) Search(view model.SearchView) (template.HTML, error) {
	return r.execute("search", view)
}

func (r *Renderer) ScrapeLog(log string) (template.HTML, error) {
	return r.execute("scrape", log)
}

func (r *Renderer) Cart(summary model.CartSummary) (template.HTML, error) {
	return r.execute("cart", summary)
}

func (r *Renderer) Page(w io.Writer, data PageData) error {
	return r.templates.ExecuteTemplate(w, "page", data)
}
