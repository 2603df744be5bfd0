package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/elitcards/storefront/internal/catalog"
	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/models"
)

var ErrValidation = errors.New("validation")

// Service reads and mutates the persisted cart. Every mutation writes the
// full cart back immediately. A corrupted stored value silently resets to
// the empty cart and normalizes the stored JSON.
type Service struct {
	KV      *kvstore.Store
	Catalog *catalog.Service
}

func New(kv *kvstore.Store, cat *catalog.Service) *Service {
	return &Service{KV: kv, Catalog: cat}
}

// Items returns the cart lines. Missing or malformed storage yields an
// empty cart, never an error the caller has to handle.
func (s *Service) Items() ([]models.CartLine, error) {
	var lines []models.CartLine
	err := s.KV.Get(kvstore.KeyCart, &lines)
	switch {
	case err == nil:
		if lines == nil {
			lines = []models.CartLine{}
		}
		return lines, nil
	case errors.Is(err, kvstore.ErrNotFound):
		if err := s.KV.Set(kvstore.KeyCart, []models.CartLine{}); err != nil {
			return nil, err
		}
		return []models.CartLine{}, nil
	default:
		// Corrupted value: reset to empty rather than failing the caller.
		if err := s.KV.Set(kvstore.KeyCart, []models.CartLine{}); err != nil {
			return nil, err
		}
		return []models.CartLine{}, nil
	}
}

// Add increments the line for productID, or appends one with quantity 1.
func (s *Service) Add(productID string) error {
	if productID == "" {
		return fmt.Errorf("product id required: %w", ErrValidation)
	}
	lines, err := s.Items()
	if err != nil {
		return err
	}
	found := false
	for i := range lines {
		if lines[i].ProductID == productID {
			lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, models.CartLine{ProductID: productID, Quantity: 1})
	}
	return s.KV.Set(kvstore.KeyCart, lines)
}

// Remove deletes the line for productID. No-op when absent.
func (s *Service) Remove(productID string) error {
	lines, err := s.Items()
	if err != nil {
		return err
	}
	kept := lines[:0]
	for _, line := range lines {
		if line.ProductID != productID {
			kept = append(kept, line)
		}
	}
	return s.KV.Set(kvstore.KeyCart, kept)
}

// Clear overwrites the cart with the empty sequence.
func (s *Service) Clear() error {
	return s.KV.Set(kvstore.KeyCart, []models.CartLine{})
}

// ForceReset deletes and recreates the cart key. Recovery path for
// corrupted state.
func (s *Service) ForceReset() error {
	if err := s.KV.Delete(kvstore.KeyCart); err != nil {
		return err
	}
	return s.KV.Set(kvstore.KeyCart, []models.CartLine{})
}

// Count is the sum of quantities over all lines.
func (s *Service) Count() (int, error) {
	lines, err := s.Items()
	if err != nil {
		return 0, err
	}
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total, nil
}

// Subtotal sums resolved price x quantity over the cart. Lines whose product
// no longer exists in the catalog contribute zero; they are skipped, not
// purged.
func (s *Service) Subtotal(ctx context.Context) (float64, error) {
	lines, err := s.Items()
	if err != nil {
		return 0, err
	}
	products, _ := s.Catalog.Products(ctx)
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	total := 0.0
	for _, line := range lines {
		if p, ok := byID[line.ProductID]; ok {
			total += p.Price * float64(line.Quantity)
		}
	}
	return total, nil
}

// Snapshot denormalizes the cart against the catalog for a payment record.
// Unresolvable lines are kept with a placeholder title and zero price.
func (s *Service) Snapshot(ctx context.Context) ([]models.PaymentItem, error) {
	lines, err := s.Items()
	if err != nil {
		return nil, err
	}
	products, _ := s.Catalog.Products(ctx)
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.PaymentItem, 0, len(lines))
	for _, line := range lines {
		item := models.PaymentItem{
			ProductID: line.ProductID,
			Title:     "Unknown Product",
			Quantity:  line.Quantity,
		}
		if p, ok := byID[line.ProductID]; ok {
			item.Title = p.Title
			item.Price = p.Price
			item.Total = p.Price * float64(line.Quantity)
		}
		items = append(items, item)
	}
	return items, nil
}
