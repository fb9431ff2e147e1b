package basket

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/catalog"
)

// ProductLookup resolves skus for display.
type ProductLookup interface {
	Product(sku string) (catalog.Product, bool)
}

// Pricer prices committed bundles.
type Pricer interface {
	Price(b bundle.Bundle) decimal.Decimal
}

// Component is one displayed line item inside a bundle.
type Component struct {
	Label    string `json:"label"`
	Quantity int    `json:"qty"`
}

// Line is the display form of one basket entry.
type Line struct {
	Index      int              `json:"index"`
	Kind       string           `json:"kind"`
	Label      string           `json:"label"`
	ItemCount  int              `json:"itemCount"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Subscribed bool             `json:"subscribed,omitempty"`
	BundleID   string           `json:"bundleId,omitempty"`
	Contents   []Component      `json:"contents,omitempty"`
}

// Summary is the derived display state of a basket.
type Summary struct {
	TotalItemCount int    `json:"totalItemCount"`
	Lines          []Line `json:"lines"`
}

// Badge returns the basket indicator text, empty when nothing is in the basket.
func (s Summary) Badge() string {
	if s.TotalItemCount <= 0 {
		return ""
	}
	return strconv.Itoa(s.TotalItemCount)
}

// Aggregator turns basket entries into display totals.
type Aggregator struct {
	Catalog ProductLookup
	Pricer  Pricer
}

// Aggregate is pure: it preserves entry order and never mutates its input.
// Unknown entries are skipped; Line.Index keeps the position in the basket.
func (a Aggregator) Aggregate(entries []Entry) Summary {
	summary := Summary{Lines: make([]Line, 0, len(entries))}
	for i, e := range entries {
		var line Line
		switch e.Kind() {
		case KindSKU:
			line = Line{Kind: KindSKU.String(), Label: a.label(e.SKU()), ItemCount: 1}
		case KindQuantity:
			line = Line{
				Kind:      KindQuantity.String(),
				Label:     a.label(e.SKU()) + " x " + strconv.Itoa(e.Quantity()),
				ItemCount: e.Quantity(),
			}
		case KindBundle:
			b, _ := e.Bundle()
			line = a.bundleLine(b)
		default:
			continue
		}
		line.Index = i
		summary.TotalItemCount += line.ItemCount
		summary.Lines = append(summary.Lines, line)
	}
	return summary
}

func (a Aggregator) bundleLine(b bundle.Bundle) Line {
	contents := make([]Component, 0, len(b.Items))
	for _, it := range b.Items {
		contents = append(contents, Component{Label: a.label(it.SKU), Quantity: it.Quantity})
	}
	line := Line{
		Kind:       KindBundle.String(),
		Label:      "Box (" + b.Size + ")",
		ItemCount:  b.ItemCount(),
		Subscribed: b.Subscribed(),
		BundleID:   b.ID,
		Contents:   contents,
	}
	if a.Pricer != nil {
		price := a.Pricer.Price(b)
		line.Price = &price
	}
	return line
}

func (a Aggregator) label(sku string) string {
	if a.Catalog != nil {
		if p, ok := a.Catalog.Product(sku); ok {
			return p.DisplayName()
		}
	}
	return sku
}
