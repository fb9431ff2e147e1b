package catalog

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type fileProduct struct {
	SKU           string          `yaml:"sku"`
	Name          string          `yaml:"name"`
	Emoji         string          `yaml:"emoji"`
	Price         decimal.Decimal `yaml:"price"`
	Substitutable bool            `yaml:"substitutable"`
	Season        string          `yaml:"season"`
}

type fileTier struct {
	Label    string          `yaml:"label"`
	Min      int             `yaml:"min"`
	Max      int             `yaml:"max"`
	Discount decimal.Decimal `yaml:"discount"`
}

type fileCatalog struct {
	Products []fileProduct `yaml:"products"`
	Tiers    []fileTier    `yaml:"tiers"`
}

// Default returns the built-in storefront catalog.
func Default() *Catalog {
	c, err := New(
		[]Product{
			{SKU: "apple", Name: "Apple", Emoji: "🍏", UnitPrice: decimal.RequireFromString("1.20"), Substitutable: true, Season: "autumn"},
			{SKU: "banana", Name: "Banana", Emoji: "🍌", UnitPrice: decimal.RequireFromString("0.80"), Substitutable: true, Season: "year-round"},
			{SKU: "lemon", Name: "Lemon", Emoji: "🍋", UnitPrice: decimal.RequireFromString("1.00"), Substitutable: true, Season: "summer"},
		},
		[]Tier{
			{Label: "S", MinItems: 3, MaxItems: 3, Discount: decimal.Zero},
			{Label: "M", MinItems: 4, MaxItems: 5, Discount: decimal.RequireFromString("0.05")},
			{Label: "L", MinItems: 6, MaxItems: 8, Discount: decimal.RequireFromString("0.10")},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Parse builds a catalog from a YAML document with `products` and `tiers` lists.
// Prices and discounts are read from their literal text.
func Parse(data []byte) (*Catalog, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	products := make([]Product, 0, len(doc.Products))
	for _, p := range doc.Products {
		products = append(products, Product{
			SKU:           p.SKU,
			Name:          p.Name,
			Emoji:         p.Emoji,
			UnitPrice:     p.Price,
			Substitutable: p.Substitutable,
			Season:        p.Season,
		})
	}
	tiers := make([]Tier, 0, len(doc.Tiers))
	for _, t := range doc.Tiers {
		tiers = append(tiers, Tier{
			Label:    t.Label,
			MinItems: t.Min,
			MaxItems: t.Max,
			Discount: t.Discount,
		})
	}
	return New(products, tiers)
}

// LoadFile reads a YAML catalog from disk. An empty path selects Default.
func LoadFile(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}
