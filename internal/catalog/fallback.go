package catalog

import (
	"fmt"
	"strconv"

	"github.com/elitcards/storefront/internal/models"
)

// The fallback catalog: 5 card designs across 4 price tiers, used whenever
// the remote store is unreachable or blocked by the mixed-content guard.
type fallbackSeed struct {
	title string
	price float64
	image string
}

var fallbackSeeds = []fallbackSeed{
	{"Titanium Discover", 35, "images/titanium_discover.svg"},
	{"Visa Infinite", 35, "images/visa_infinite.svg"},
	{"Visa Infinite Black", 35, "images/visa_infinite_black.svg"},
	{"Mastercard Platinum", 35, "images/mastercard_platinum.svg"},
	{"Visa Gold", 35, "images/visa_gold.svg"},

	{"Titanium Discover", 50, "images/titanium_discover.svg"},
	{"Visa Infinite", 50, "images/visa_infinite.svg"},
	{"Visa Infinite Black", 50, "images/visa_infinite_black.svg"},
	{"Mastercard Platinum", 50, "images/mastercard_platinum.svg"},
	{"Visa Gold", 50, "images/visa_gold.svg"},

	{"Titanium Discover", 70, "images/titanium_discover.svg"},
	{"Visa Infinite", 70, "images/visa_infinite.svg"},
	{"Visa Infinite Black", 70, "images/visa_infinite_black.svg"},
	{"Mastercard Platinum", 70, "images/mastercard_platinum.svg"},
	{"Visa Gold", 70, "images/visa_gold.svg"},

	{"Titanium Discover", 100, "images/titanium_discover.svg"},
	{"Visa Infinite", 100, "images/visa_infinite.svg"},
	{"Visa Infinite Black", 100, "images/visa_infinite_black.svg"},
	{"Mastercard Platinum", 200, "images/mastercard_platinum.svg"},
	{"Visa Gold", 200, "images/visa_gold.svg"},
}

var fallbackDescriptions = map[string]string{
	"Mastercard Platinum": "Premium Mastercard Platinum with exclusive benefits and worldwide acceptance",
	"Visa Gold":           "Elite Visa Gold card with premium rewards and luxury perks",
	"American Express":    "Prestigious American Express card with unmatched prestige and benefits",
	"Visa Infinite":       "Ultimate Visa Infinite card with unlimited possibilities and premium services",
	"Visa Infinite Black": "Exclusive Visa Infinite Black card with ultra-premium benefits and concierge services",
	"Titanium Discover":   "Exclusive Titanium Discover card with cashback rewards and premium features",
}

func fallbackProducts() []models.Product {
	products := make([]models.Product, 0, len(fallbackSeeds))
	for i, seed := range fallbackSeeds {
		products = append(products, models.Product{
			ID:          strconv.Itoa(i + 1),
			Title:       seed.title,
			Description: fallbackDescription(seed.title),
			Number:      maskedNumber(),
			Limit:       fallbackLimit(seed.price),
			Price:       seed.price,
			Image:       seed.image,
		})
	}
	return products
}

func fallbackDescription(title string) string {
	if d, ok := fallbackDescriptions[title]; ok {
		return d
	}
	return fmt.Sprintf("Premium %s card with exclusive benefits", title)
}

func fallbackLimit(price float64) string {
	switch {
	case price >= 200:
		return "Unlimited"
	case price >= 100:
		return "$500,000"
	case price >= 70:
		return "$200,000"
	case price >= 50:
		return "$100,000"
	case price >= 35:
		return "$50,000"
	default:
		return "$25,000"
	}
}
