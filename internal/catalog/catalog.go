package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidProduct is returned when a product definition breaks catalog invariants.
	ErrInvalidProduct = errors.New("invalid product")
	// ErrInvalidTier is returned when a tier definition breaks catalog invariants.
	ErrInvalidTier = errors.New("invalid tier")
)

// Product describes a sellable good that can be placed in a box.
type Product struct {
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Emoji         string          `json:"emoji,omitempty"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	Substitutable bool            `json:"substitutable"`
	Season        string          `json:"season,omitempty"`
}

// DisplayName renders the product the way basket lines show it.
func (p Product) DisplayName() string {
	if p.Emoji == "" {
		return p.Name
	}
	return p.Emoji + " " + p.Name
}

// Tier is a box size class bounding the total item count and granting a discount.
type Tier struct {
	Label    string          `json:"label"`
	MinItems int             `json:"minItems"`
	MaxItems int             `json:"maxItems"`
	Discount decimal.Decimal `json:"discount"`
}

// Catalog is the immutable product and tier table supplied at startup.
type Catalog struct {
	products map[string]Product
	tiers    map[string]Tier
}

// New validates the definitions and builds a catalog. Keys must be unique.
func New(products []Product, tiers []Tier) (*Catalog, error) {
	c := &Catalog{
		products: make(map[string]Product, len(products)),
		tiers:    make(map[string]Tier, len(tiers)),
	}
	for _, p := range products {
		p.SKU = strings.TrimSpace(p.SKU)
		if p.SKU == "" {
			return nil, fmt.Errorf("sku required: %w", ErrInvalidProduct)
		}
		if p.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%s: negative unit price: %w", p.SKU, ErrInvalidProduct)
		}
		if _, dup := c.products[p.SKU]; dup {
			return nil, fmt.Errorf("%s: duplicate sku: %w", p.SKU, ErrInvalidProduct)
		}
		c.products[p.SKU] = p
	}
	one := decimal.NewFromInt(1)
	for _, t := range tiers {
		t.Label = strings.TrimSpace(t.Label)
		switch {
		case t.Label == "":
			return nil, fmt.Errorf("label required: %w", ErrInvalidTier)
		case t.MinItems < 1:
			return nil, fmt.Errorf("%s: min items must be at least 1: %w", t.Label, ErrInvalidTier)
		case t.MaxItems < t.MinItems:
			return nil, fmt.Errorf("%s: max items below min items: %w", t.Label, ErrInvalidTier)
		case t.Discount.IsNegative() || t.Discount.GreaterThanOrEqual(one):
			return nil, fmt.Errorf("%s: discount must be in [0,1): %w", t.Label, ErrInvalidTier)
		}
		if _, dup := c.tiers[t.Label]; dup {
			return nil, fmt.Errorf("%s: duplicate label: %w", t.Label, ErrInvalidTier)
		}
		c.tiers[t.Label] = t
	}
	return c, nil
}

// Product resolves a sku.
func (c *Catalog) Product(sku string) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	p, ok := c.products[sku]
	return p, ok
}

// Tier resolves a size label.
func (c *Catalog) Tier(label string) (Tier, bool) {
	if c == nil {
		return Tier{}, false
	}
	t, ok := c.tiers[label]
	return t, ok
}

// Products returns every product ordered by sku.
func (c *Catalog) Products() []Product {
	if c == nil {
		return nil
	}
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out
}

// Tiers returns every tier ordered from the smallest box to the largest.
func (c *Catalog) Tiers() []Tier {
	if c == nil {
		return nil
	}
	out := make([]Tier, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MinItems != out[j].MinItems {
			return out[i].MinItems < out[j].MinItems
		}
		return out[i].Label < out[j].Label
	})
	return out
}
