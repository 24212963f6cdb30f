// internal/domain/cart/store.go
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/keyforge/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Publisher receives the "cart changed" signal after each successful write
type Publisher interface {
	Publish()
}

// WriteError reports that a cart snapshot could not be persisted. The
// in-memory result of the operation is discarded and no change is published.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cart write failed for %s: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store is one cart persisted under a single key. Every read goes back to
// the KeyValueStore; the Store itself holds no snapshot.
type Store struct {
	kv     KeyValueStore
	key    string
	pub    Publisher
	logger *logrus.Entry
	mu     sync.Locker
}

// NewStore creates a cart store. pub may be nil when nobody listens.
func NewStore(kv KeyValueStore, key string, pub Publisher, logger *logrus.Entry) *Store {
	return &Store{
		kv:     kv,
		key:    key,
		pub:    pub,
		logger: logger,
		mu:     &sync.Mutex{},
	}
}

// Key returns the persistence key of this cart
func (s *Store) Key() string {
	return s.key
}

// GetCart reads the persisted snapshot. Missing, unreadable or corrupt data
// yields an empty cart.
func (s *Store) GetCart(ctx context.Context) Snapshot {
	data, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("Failed to read cart, treating as empty")
		return Snapshot{}
	}
	if !ok || data == "" {
		return Snapshot{}
	}

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("Corrupt cart snapshot, treating as empty")
		return Snapshot{}
	}
	if snapshot == nil {
		return Snapshot{}
	}
	return snapshot
}

// AddToCart adds one unit of the product. A new line copies the product's
// name, price and image as they are right now.
func (s *Store) AddToCart(ctx context.Context, p product.Product) error {
	return s.mutate(ctx, func(snapshot Snapshot) Snapshot {
		if i := snapshot.indexOf(p.ID); i >= 0 {
			snapshot[i].Quantity++
			return snapshot
		}
		return append(snapshot, LineItem{
			ID:        p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Image:     p.ImageURL,
			Quantity:  1,
		})
	})
}

// RemoveFromCart drops the line with the given id if present
func (s *Store) RemoveFromCart(ctx context.Context, id string) error {
	return s.mutate(ctx, func(snapshot Snapshot) Snapshot {
		return removeLine(snapshot, id)
	})
}

// UpdateQuantity sets the quantity of an existing line. Zero or less removes it.
func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	return s.mutate(ctx, func(snapshot Snapshot) Snapshot {
		if quantity <= 0 {
			return removeLine(snapshot, id)
		}
		if i := snapshot.indexOf(id); i >= 0 {
			snapshot[i].Quantity = quantity
		}
		return snapshot
	})
}

// ClearCart empties the cart
func (s *Store) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, func(Snapshot) Snapshot {
		return Snapshot{}
	})
}

// RemoveLines takes the given quantities out of the cart, dropping lines
// that reach zero. Lines added after the given snapshot was read are kept.
func (s *Store) RemoveLines(ctx context.Context, lines Snapshot) error {
	return s.mutate(ctx, func(snapshot Snapshot) Snapshot {
		for _, line := range lines {
			i := snapshot.indexOf(line.ID)
			if i < 0 {
				continue
			}
			snapshot[i].Quantity -= line.Quantity
			if snapshot[i].Quantity <= 0 {
				snapshot = removeLine(snapshot, line.ID)
			}
		}
		return snapshot
	})
}

// GetCartTotal returns the sum of unit price times quantity
func (s *Store) GetCartTotal(ctx context.Context) decimal.Decimal {
	return s.GetCart(ctx).Total()
}

// GetCartCount returns the total number of units in the cart
func (s *Store) GetCartCount(ctx context.Context) int {
	return s.GetCart(ctx).Count()
}

// mutate runs read, modify, write, publish for one operation
func (s *Store) mutate(ctx context.Context, fn func(Snapshot) Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := fn(s.GetCart(ctx))
	if err := s.save(ctx, snapshot); err != nil {
		return err
	}

	if s.pub != nil {
		s.pub.Publish()
	}
	return nil
}

func (s *Store) save(ctx context.Context, snapshot Snapshot) error {
	if snapshot == nil {
		snapshot = Snapshot{}
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return &WriteError{Key: s.key, Err: fmt.Errorf("failed to marshal cart: %w", err)}
	}

	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("Failed to persist cart")
		return &WriteError{Key: s.key, Err: err}
	}
	return nil
}

func removeLine(snapshot Snapshot, id string) Snapshot {
	out := snapshot[:0]
	for _, item := range snapshot {
		if item.ID != id {
			out = append(out, item)
		}
	}
	return out
}
