package currency

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/elitcards/storefront/internal/kvstore"
	"github.com/elitcards/storefront/internal/models"
)

// DefaultUSDToGHS applies until an operator updates the stored rate.
const DefaultUSDToGHS = 12.5

var ErrValidation = errors.New("validation")

// Service holds the single USD to GHS exchange rate in the local store.
type Service struct {
	KV *kvstore.Store
}

func New(kv *kvstore.Store) *Service {
	return &Service{KV: kv}
}

// Rate returns the stored rate, falling back to the default when the value
// is missing or malformed.
func (s *Service) Rate() float64 {
	var rate models.ExchangeRate
	if err := s.KV.Get(kvstore.KeyExchangeRate, &rate); err != nil || rate.USDToGHS <= 0 {
		return DefaultUSDToGHS
	}
	return rate.USDToGHS
}

// UpdateRate replaces the stored rate.
func (s *Service) UpdateRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("rate must be positive: %w", ErrValidation)
	}
	return s.KV.Set(kvstore.KeyExchangeRate, models.ExchangeRate{USDToGHS: rate})
}

// ToGHS converts a USD amount at the current rate, rounded to 2 decimals.
func (s *Service) ToGHS(usd float64) float64 {
	return math.Round(usd*s.Rate()*100) / 100
}

// FormatUSD renders an amount as "$12.34".
func FormatUSD(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// FormatTotal renders the combined display total, e.g. "$36 (GHS 450)".
func FormatTotal(usd, ghs float64) string {
	return fmt.Sprintf("$%s (GHS %s)",
		strconv.FormatFloat(usd, 'f', -1, 64),
		strconv.FormatFloat(ghs, 'f', -1, 64))
}
