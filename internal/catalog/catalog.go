package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"
	"time"

	"github.com/elitcards/storefront/internal/logging"
	"github.com/elitcards/storefront/internal/models"
	"github.com/elitcards/storefront/internal/netpolicy"
	"github.com/elitcards/storefront/internal/pocketbase"
)

var ErrNotFound = errors.New("product not found")

const (
	cacheTTL     = 5 * time.Minute
	listPage     = 1
	listPageSize = 50
	defaultImage = "images/default-card.png"
)

// cardRecord is the Cards collection shape on PocketBase.
type cardRecord struct {
	ID          string  `json:"id"`
	Name        string  `json:"Name"`
	Description string  `json:"Description"`
	Price       float64 `json:"Price"`
	Image       string  `json:"Image"`
}

// Service resolves the purchasable card list: time-boxed in-memory cache,
// then the remote store, then the fixed fallback catalog. Remote errors are
// swallowed and logged; callers always get a usable catalog.
type Service struct {
	Client *pocketbase.Client
	Policy *netpolicy.Policy

	mu      sync.Mutex
	cached  []models.Product
	expires time.Time

	now func() time.Time
}

func New(client *pocketbase.Client, policy *netpolicy.Policy) *Service {
	return &Service{Client: client, Policy: policy, now: time.Now}
}

// Products returns the current catalog and where it came from.
func (s *Service) Products(ctx context.Context) ([]models.Product, models.Source) {
	l := logging.FromContext(ctx).With("svc", "catalog.products")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.now().Before(s.expires) {
		return s.cached, models.SourceCache
	}

	if !s.Policy.AllowRemote(netpolicy.OpListCards) {
		l.Warn("remote catalog skipped", "reason", "mixed content guard")
		return fallbackProducts(), models.SourceFallback
	}

	res, err := s.Client.List(ctx, pocketbase.CollectionCards, listPage, listPageSize, pocketbase.ListOptions{
		Sort: "-created",
	})
	if err != nil {
		l.Error("remote catalog fetch failed", "error", err)
		return fallbackProducts(), models.SourceFallback
	}

	products := make([]models.Product, 0, len(res.Items))
	for _, raw := range res.Items {
		var rec cardRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			l.Warn("skipping malformed card record", "error", err)
			continue
		}
		products = append(products, s.transform(rec))
	}

	s.cached = products
	s.expires = s.now().Add(cacheTTL)
	return products, models.SourceRemote
}

// ProductByID resolves one product: the catalog first (same fetch-or-fallback
// path), then a direct remote fetch when the guard allows it.
func (s *Service) ProductByID(ctx context.Context, id string) (*models.Product, error) {
	products, _ := s.Products(ctx)
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}

	if !s.Policy.AllowRemote(netpolicy.OpGetCard) {
		return nil, ErrNotFound
	}

	raw, err := s.Client.GetOne(ctx, pocketbase.CollectionCards, id)
	if err != nil {
		logging.FromContext(ctx).Warn("remote product fetch failed", "id", id, "error", err)
		return nil, ErrNotFound
	}
	var rec cardRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, ErrNotFound
	}
	p := s.transform(rec)
	return &p, nil
}

// Invalidate drops the cache so the next Products call refetches.
func (s *Service) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.expires = time.Time{}
}

func (s *Service) transform(rec cardRecord) models.Product {
	image := defaultImage
	if rec.Image != "" {
		image = s.Client.FileURL(pocketbase.CollectionCards, rec.ID, rec.Image)
	}
	return models.Product{
		ID:          rec.ID,
		Title:       rec.Name,
		Description: rec.Description,
		Number:      maskedNumber(),
		Limit:       extractLimit(rec.Description, rec.Price),
		Price:       rec.Price,
		Image:       image,
	}
}

// maskedNumber renders a non-functional display number.
func maskedNumber() string {
	return fmt.Sprintf("XXXX XXXX XXXX %d", rand.IntN(9000)+1000)
}

var limitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$[\d,]+`),
	regexp.MustCompile(`(?i)unlimited`),
	regexp.MustCompile(`(?i)no limit`),
}

// extractLimit pulls a spending-limit label out of the free-text description,
// with price-banded defaults when nothing matches.
func extractLimit(description string, price float64) string {
	for _, p := range limitPatterns {
		if m := p.FindString(description); m != "" {
			return m
		}
	}
	switch {
	case price >= 300:
		return "Unlimited"
	case price >= 250:
		return "$200,000"
	case price >= 200:
		return "$100,000"
	case price >= 150:
		return "$75,000"
	default:
		return "$50,000"
	}
}
