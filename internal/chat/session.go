package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"strings"
	"sync"
	"time"

	"storefront-assistant/internal/card"
	"storefront-assistant/internal/gateway"
	"storefront-assistant/internal/model"
	"storefront-assistant/internal/render"
	"storefront-assistant/pkg/logger"

	"github.com/google/uuid"
)

const chatEndpoint = "/chat"

type State int

const (
	StateIdle State = iota
	StateAwaitingReply
)

func (s State) String() string {
	if s == StateAwaitingReply {
		return "awaiting_reply"
	}
	return "idle"
}

// ProductTypes are the preference values the backend understands.
var ProductTypes = []string{"single", "combo"}

var (
	ErrBlankMessage       = errors.New("message is empty")
	ErrSendInProgress     = errors.New("a message is already being sent")
	ErrUnknownProductType = errors.New("unknown product type")
	ErrUnknownCard        = errors.New("unknown product card")
)

// Cart is the side the card action writes to.
type Cart interface {
	Add(ctx context.Context, item model.Product) (int, error)
}

type entry struct {
	message  *model.ChatMessage
	typingID string
}

// Session runs one chat surface: Idle -> AwaitingReply -> Idle. A second
// Send while a reply is pending is rejected with ErrSendInProgress.
type Session struct {
	gateway  gateway.Gateway
	cart     Cart
	renderer *render.Renderer

	mu         sync.Mutex
	state      State
	input      string
	preference string
	entries    []entry
	cards      map[string]model.Product
}

func NewSession(gw gateway.Gateway, c Cart, r *render.Renderer) *Session {
	return &Session{
		gateway:  gw,
		cart:     c,
		renderer: r,
		cards:    make(map[string]model.Product),
	}
}

// Exchange is what one successful cycle appended to the transcript.
type Exchange struct {
	User  model.ChatMessage `json:"user"`
	Reply model.ChatMessage `json:"reply"`
}

// Send runs one request/response cycle for text. The typing placeholder is
// always removed before the reply, whatever the gateway outcome; both
// transport and payload failures end up as an AI message.
func (s *Session) Send(ctx context.Context, text string, observe Observer) (*Exchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrBlankMessage
	}

	s.mu.Lock()
	if s.state == StateAwaitingReply {
		s.mu.Unlock()
		return nil, ErrSendInProgress
	}

	user := s.newMessage(model.SenderUser, text, nil)
	s.entries = append(s.entries, entry{message: &user})
	s.input = ""

	s.state = StateAwaitingReply
	typingID := uuid.NewString()
	s.entries = append(s.entries, entry{typingID: typingID})
	typingHTML := s.typingHTML(typingID)

	payload := model.ChatRequest{Message: text, ProductType: s.preferencePtr()}
	s.mu.Unlock()

	observe.emit(Event{Type: EventMessage, ID: user.ID, HTML: user.HTML})
	observe.emit(Event{Type: EventTyping, ID: typingID, HTML: typingHTML})

	outcome := s.gateway.Call(ctx, chatEndpoint, payload)

	s.mu.Lock()
	s.removeEntry(typingID)
	reply := s.replyFor(outcome)
	s.entries = append(s.entries, entry{message: &reply})
	s.state = StateIdle
	s.mu.Unlock()

	observe.emit(Event{Type: EventTypingRemoved, ID: typingID})
	observe.emit(Event{Type: EventMessage, ID: reply.ID, HTML: reply.HTML})

	return &Exchange{User: user, Reply: reply}, nil
}

// replyFor maps the gateway outcome to the AI message. Callers hold s.mu.
func (s *Session) replyFor(outcome model.Outcome[json.RawMessage]) model.ChatMessage {
	raw, ok := outcome.Value()
	if !ok {
		return s.newMessage(model.SenderAI, "Network Error: "+outcome.Error(), nil)
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return s.newMessage(model.SenderAI, "Error: "+compact(raw), nil)
	}

	text, _ := data["response"].(string)
	if text == "" {
		return s.newMessage(model.SenderAI, "Error: "+compact(raw), nil)
	}

	return s.newMessage(model.SenderAI, text, s.cardsFor(data["products"]))
}

func (s *Session) cardsFor(v any) []model.ProductCard {
	list, _ := v.([]any)
	cards := make([]model.ProductCard, 0, len(list))

	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			logger.Warnf("Skipping product %d: not an object", i)
			continue
		}

		p := model.Product(obj)
		c, err := card.ToCard(p)
		if err != nil {
			logger.Warnf("Product %d has no serialized source: %v", i, err)
		}
		s.cards[c.Key] = p
		cards = append(cards, c)
	}

	return cards
}

func (s *Session) newMessage(sender model.Sender, text string, products []model.ProductCard) model.ChatMessage {
	msg := model.ChatMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		RawText:   text,
		IsUser:    sender == model.SenderUser,
		Products:  products,
		Timestamp: time.Now(),
	}

	html, err := s.renderer.Message(msg)
	if err != nil {
		logger.Errorf("Failed to render message %s: %v", msg.ID, err)
		html = render.FormatText(text)
	}
	msg.HTML = html
	return msg
}

func (s *Session) typingHTML(id string) template.HTML {
	html, err := s.renderer.Typing(id)
	if err != nil {
		logger.Errorf("Failed to render typing placeholder: %v", err)
	}
	return html
}

func (s *Session) removeEntry(typingID string) {
	for i, e := range s.entries {
		if e.typingID == typingID {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

func (s *Session) preferencePtr() *string {
	if s.preference == "" {
		return nil
	}
	p := s.preference
	return &p
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// CartAddition is the result of a card action.
type CartAddition struct {
	Count  int    `json:"count"`
	Notice string `json:"notice"`
}

// AddToCart resolves a card by key, or by decoding source when the key is
// not known to this session, and adds the product to the cart.
func (s *Session) AddToCart(ctx context.Context, key, source string) (*CartAddition, error) {
	s.mu.Lock()
	p, ok := s.cards[key]
	s.mu.Unlock()

	if !ok {
		if source == "" {
			return nil, ErrUnknownCard
		}
		decoded, err := card.DecodeSource(source)
		if err != nil {
			return nil, errors.Join(ErrUnknownCard, err)
		}
		p = decoded
	}

	count, err := s.cart.Add(ctx, p)
	if err != nil {
		return nil, err
	}

	return &CartAddition{
		Count:  count,
		Notice: `Added "` + p.Title() + `" to cart!`,
	}, nil
}

// SetPreference sets the product_type sent with each message; "" clears it.
func (s *Session) SetPreference(productType string) error {
	productType = strings.TrimSpace(productType)
	if productType != "" && !validProductType(productType) {
		return ErrUnknownProductType
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.preference = productType
	return nil
}

func validProductType(v string) bool {
	for _, t := range ProductTypes {
		if t == v {
			return true
		}
	}
	return false
}

func (s *Session) Preference() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preference
}

// SetInput stores the draft the user is typing.
func (s *Session) SetInput(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = text
}

func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transcript returns the rendered messages in order, without the typing
// placeholder.
func (s *Session) Transcript() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.ChatMessage, 0, len(s.entries))
	for _, e := range s.entries {
		if e.message != nil {
			out = append(out, *e.message)
		}
	}
	return out
}

// TranscriptHTML returns the markup of every entry, placeholder included.
func (s *Session) TranscriptHTML() []template.HTML {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]template.HTML, 0, len(s.entries))
	for _, e := range s.entries {
		if e.message != nil {
			out = append(out, e.message.HTML)
			continue
		}
		out = append(out, s.typingHTML(e.typingID))
	}
	return out
}

// Reset drops the transcript and the card registry. It is refused while a
// reply is pending.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateAwaitingReply {
		return ErrSendInProgress
	}
	s.entries = nil
	s.cards = make(map[string]model.Product)
	s.input = ""
	return nil
}
