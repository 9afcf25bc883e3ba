package model

import (
	"fmt"
	"strconv"
)

// Product is a backend product record kept verbatim. Its shape varies:
// some records carry pricing.price, others only variants[].price.
type Product map[string]any

func (p Product) Object(name string) map[string]any {
	if v, ok := p[name].(map[string]any); ok {
		return v
	}
	return nil
}

func (p Product) List(name string) []any {
	if v, ok := p[name].([]any); ok {
		return v
	}
	return nil
}

// String returns the named field rendered as text; absent and null fields
// yield "".
func (p Product) String(name string) string {
	return Text(p[name])
}

func (p Product) Title() string {
	return p.String("title")
}

// Text renders a decoded JSON scalar as display text.
func Text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case interface{ String() string }:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
