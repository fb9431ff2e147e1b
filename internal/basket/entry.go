package basket

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/boxcart/internal/bundle"
)

// Kind discriminates basket entries.
type Kind int

const (
	// KindUnknown holds a persisted value that could not be decoded. It is kept
	// so positions and raw data survive rewrites, but it is never displayed.
	KindUnknown Kind = iota
	// KindSKU is a bare sku reference with an implied quantity of one.
	KindSKU
	// KindQuantity is a standalone multi-unit item.
	KindQuantity
	// KindBundle is a committed box.
	KindBundle
)

func (k Kind) String() string {
	switch k {
	case KindSKU:
		return "sku"
	case KindQuantity:
		return "quantity"
	case KindBundle:
		return "bundle"
	default:
		return "unknown"
	}
}

var errMalformedEntry = errors.New("malformed basket entry")

// Entry is one element of the basket sequence.
type Entry struct {
	kind   Kind
	sku    string
	qty    int
	bundle bundle.Bundle
	raw    json.RawMessage
}

// SKUEntry builds a bare sku entry.
func SKUEntry(sku string) Entry {
	return Entry{kind: KindSKU, sku: sku, qty: 1}
}

// QuantityEntry builds a standalone {sku, qty} entry.
func QuantityEntry(sku string, qty int) Entry {
	return Entry{kind: KindQuantity, sku: sku, qty: qty}
}

// BundleEntry wraps a committed bundle.
func BundleEntry(b bundle.Bundle) Entry {
	return Entry{kind: KindBundle, bundle: b}
}

// Kind reports the entry variant.
func (e Entry) Kind() Kind { return e.kind }

// SKU returns the referenced sku for sku and quantity entries.
func (e Entry) SKU() string { return e.sku }

// Quantity returns the unit count for sku and quantity entries.
func (e Entry) Quantity() int { return e.qty }

// Bundle returns the wrapped bundle and whether the entry is one.
func (e Entry) Bundle() (bundle.Bundle, bool) {
	return e.bundle, e.kind == KindBundle
}

// Raw returns the undecodable persisted value of an unknown entry.
func (e Entry) Raw() json.RawMessage { return e.raw }

type quantityWire struct {
	SKU string `json:"sku"`
	Qty int    `json:"qty"`
}

type bundleWire struct {
	Type string `json:"type"`
	bundle.Bundle
}

type shapeWire struct {
	Type  string          `json:"type"`
	Items json.RawMessage `json:"items"`
}

// MarshalJSON writes the shape each variant was persisted with.
func (e Entry) MarshalJSON() ([]byte, error) {
	switch e.kind {
	case KindSKU:
		return json.Marshal(e.sku)
	case KindQuantity:
		return json.Marshal(quantityWire{SKU: e.sku, Qty: e.qty})
	case KindBundle:
		return json.Marshal(bundleWire{Type: bundle.TypeBundle, Bundle: e.bundle})
	default:
		if len(e.raw) == 0 {
			return []byte("null"), nil
		}
		return e.raw, nil
	}
}

// UnmarshalJSON never fails on well-formed JSON: values that match no variant
// decode into a KindUnknown entry carrying the raw bytes.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return errMalformedEntry
	}
	decoded, err := decodeEntry(data)
	if err != nil {
		*e = Entry{kind: KindUnknown, raw: append(json.RawMessage(nil), data...)}
		return nil
	}
	*e = decoded
	return nil
}

// decodeEntry is the single place that maps persisted shapes to variants.
func decodeEntry(data []byte) (Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Entry{}, errMalformedEntry
	}
	switch trimmed[0] {
	case '"':
		var sku string
		if err := json.Unmarshal(trimmed, &sku); err != nil {
			return Entry{}, err
		}
		if strings.TrimSpace(sku) == "" {
			return Entry{}, errMalformedEntry
		}
		return SKUEntry(sku), nil
	case '{':
		var shape shapeWire
		if err := json.Unmarshal(trimmed, &shape); err != nil {
			return Entry{}, err
		}
		if shape.Type == bundle.TypeBundle {
			var w bundleWire
			if err := json.Unmarshal(trimmed, &w); err != nil {
				return Entry{}, err
			}
			if strings.TrimSpace(w.Size) == "" || len(shape.Items) == 0 || string(shape.Items) == "null" {
				return Entry{}, errMalformedEntry
			}
			if sub := w.Subscription; sub != nil && (sub.Discount.IsNegative() || sub.Discount.GreaterThanOrEqual(decimal.NewFromInt(1))) {
				return Entry{}, errMalformedEntry
			}
			return BundleEntry(w.Bundle), nil
		}
		var q quantityWire
		if err := json.Unmarshal(trimmed, &q); err != nil {
			return Entry{}, err
		}
		if strings.TrimSpace(q.SKU) == "" || q.Qty <= 0 {
			return Entry{}, errMalformedEntry
		}
		return QuantityEntry(q.SKU, q.Qty), nil
	default:
		return Entry{}, errMalformedEntry
	}
}
