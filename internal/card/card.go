package card

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"storefront-assistant/internal/model"

	"github.com/google/uuid"
)

// NoPrice is shown when neither pricing.price nor a variant price exists.
const NoPrice = "N/A"

var ErrInvalidSource = errors.New("invalid serialized product")

// ToCard derives the renderable card for p. The only failure is a record
// that cannot be re-encoded as JSON; the card is still usable through Key.
func ToCard(p model.Product) (model.ProductCard, error) {
	c := model.ProductCard{
		Key:       uuid.NewString(),
		Title:     p.Title(),
		ImageURL:  ResolveImage(p),
		Price:     ResolvePrice(p),
		DetailURL: ResolveDetailURL(p),
	}

	source, err := EncodeSource(p)
	if err != nil {
		return c, err
	}
	c.SerializedSource = source
	return c, nil
}

// ResolvePrice walks pricing.price, then variants[0].price, then NoPrice.
// Empty and null values don't count as a match.
func ResolvePrice(p model.Product) string {
	if pricing := p.Object("pricing"); pricing != nil {
		if price := model.Text(pricing["price"]); price != "" {
			return price
		}
	}

	if variants := p.List("variants"); len(variants) > 0 {
		if first, ok := variants[0].(map[string]any); ok {
			if price := model.Text(first["price"]); price != "" {
				return price
			}
		}
	}

	return NoPrice
}

// ResolveImage returns images[0].url, or nil when there is nothing to show.
func ResolveImage(p model.Product) *string {
	images := p.List("images")
	if len(images) == 0 {
		return nil
	}

	first, ok := images[0].(map[string]any)
	if !ok {
		return nil
	}

	url, ok := first["url"].(string)
	if !ok || url == "" {
		return nil
	}
	return &url
}

func ResolveDetailURL(p model.Product) *string {
	url, ok := p["source_url"].(string)
	if !ok || url == "" {
		return nil
	}
	return &url
}

// EncodeSource serializes p as base64url JSON. The alphabet has no quotes,
// angle brackets or ampersands, so the value can sit inside any attribute
// or inline argument unescaped.
func EncodeSource(p model.Product) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode product: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func DecodeSource(source string) (model.Product, error) {
	data, err := base64.RawURLEncoding.DecodeString(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}

	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: not an object", ErrInvalidSource)
	}
	return p, nil
}
