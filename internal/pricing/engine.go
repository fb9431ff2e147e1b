package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/catalog"
)

// CentPlaces is the rounding granularity of every total.
const CentPlaces = 2

// Lookup resolves catalog references during pricing.
type Lookup interface {
	Product(sku string) (catalog.Product, bool)
	Tier(label string) (catalog.Tier, bool)
}

// Breakdown aggregates computed pricing components.
type Breakdown struct {
	Subtotal             decimal.Decimal `json:"subtotal"`
	TierDiscount         decimal.Decimal `json:"tierDiscount"`
	SubscriptionDiscount decimal.Decimal `json:"subscriptionDiscount"`
	Total                decimal.Decimal `json:"total"`
}

// Engine prices bundles against a catalog. It holds no other state so it can
// price bundles already sitting in a basket as well as ones being configured.
type Engine struct {
	Catalog Lookup
}

// Quote prices line items under a size label with an optional subscription.
//
// Unknown skus and non-positive quantities contribute nothing and an unknown
// tier grants no discount. Discounts compose multiplicatively and the total is
// rounded half away from zero to the cent.
func (e Engine) Quote(size string, items []bundle.LineItem, sub *bundle.Subscription) Breakdown {
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Quantity <= 0 || e.Catalog == nil {
			continue
		}
		p, ok := e.Catalog.Product(it.SKU)
		if !ok {
			continue
		}
		subtotal = subtotal.Add(p.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	tierDiscount := decimal.Zero
	if e.Catalog != nil {
		if tier, ok := e.Catalog.Tier(size); ok {
			tierDiscount = tier.Discount
		}
	}
	subDiscount := decimal.Zero
	if sub != nil {
		subDiscount = sub.Discount
	}

	one := decimal.NewFromInt(1)
	total := subtotal.
		Mul(one.Sub(tierDiscount)).
		Mul(one.Sub(subDiscount)).
		Round(CentPlaces)
	return Breakdown{
		Subtotal:             subtotal,
		TierDiscount:         tierDiscount,
		SubscriptionDiscount: subDiscount,
		Total:                total,
	}
}

// Price returns the rounded total of a bundle.
func (e Engine) Price(b bundle.Bundle) decimal.Decimal {
	return e.Quote(b.Size, b.Items, b.Subscription).Total
}
