package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"storefront-assistant/internal/card"
	"storefront-assistant/internal/model"
	"storefront-assistant/internal/storage"
	"storefront-assistant/pkg/logger"

	"github.com/shopspring/decimal"
)

// Store owns the cart list and persists the whole list under one key on
// every mutation. Several processes sharing the key are not coordinated:
// the last write wins and an interleaved add can be lost.
type Store struct {
	storage storage.Storage
	key     string

	mu    sync.RWMutex
	items []model.Product
}

func NewStore(s storage.Storage, key string) *Store {
	return &Store{
		storage: s,
		key:     key,
		items:   []model.Product{},
	}
}

// Initialize loads the persisted list. Missing or unreadable data leaves an
// empty cart; it is a local cache, so nothing is reported to the caller.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = []model.Product{}

	raw, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, storage.ErrKeyNotFound) {
		return
	}
	if err != nil {
		logger.Warnf("Failed to read cart %q, starting empty: %v", s.key, err)
		return
	}

	var items []model.Product
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warnf("Corrupt cart %q, starting empty: %v", s.key, err)
		return
	}

	if items != nil {
		s.items = items
	}
}

// Add appends item and writes the full list before returning the new count.
// When the write fails the append is undone so Count matches storage.
func (s *Store) Add(ctx context.Context, item model.Product) (int, error) {
	if item == nil {
		return 0, errors.New("cart: nil product")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.Product, len(s.items), len(s.items)+1)
	copy(next, s.items)
	next = append(next, item)

	if err := s.persist(ctx, next); err != nil {
		return len(s.items), err
	}

	s.items = next
	return len(s.items), nil
}

// Clear replaces the persisted list with an empty one.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	empty := []model.Product{}
	if err := s.persist(ctx, empty); err != nil {
		return err
	}
	s.items = empty
	return nil
}

func (s *Store) persist(ctx context.Context, items []model.Product) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("cart: encode: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("cart: persist: %w", err)
	}
	return nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Items returns a copy of the list in insertion order.
func (s *Store) Items() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Product, len(s.items))
	copy(out, s.items)
	return out
}

// Serialize returns the JSON form that is written to storage.
func (s *Store) Serialize() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.Marshal(s.items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Summary lists every item with its resolved price and sums the prices that
// parse as numbers.
func (s *Store) Summary() model.CartSummary {
	items := s.Items()

	total := decimal.Zero
	lines := make([]model.CartLine, 0, len(items))
	for _, item := range items {
		price := card.ResolvePrice(item)
		lines = append(lines, model.CartLine{
			Title: item.Title(),
			Price: price,
		})

		if amount, err := decimal.NewFromString(price); err == nil {
			total = total.Add(amount)
		}
	}

	return model.CartSummary{
		Lines: lines,
		Count: len(items),
		Total: total.StringFixed(2),
	}
}
