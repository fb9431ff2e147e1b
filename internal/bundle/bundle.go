package bundle

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// IntervalWeekly is the only subscription interval currently offered.
const IntervalWeekly = "weekly"

// TypeBundle tags bundle entries in the persisted basket.
const TypeBundle = "bundle"

const dateLayout = "2006-01-02"

// LineItem is a (product, quantity) pair inside a bundle.
type LineItem struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"qty"`
}

// Date is a calendar date serialised as YYYY-MM-DD.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts YYYY-MM-DD and RFC 3339 timestamps.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		*d = Date{}
		return nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		*d = Date{Time: t}
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("parse date %q: %w", raw, err)
	}
	*d = DateOf(t)
	return nil
}

// Subscription is a recurring-delivery attachment granting an extra discount.
type Subscription struct {
	Interval     string          `json:"interval"`
	Discount     decimal.Decimal `json:"discount"`
	NextDelivery Date            `json:"nextDelivery"`
}

// Bundle is a committed box. It is never edited in place once stored.
type Bundle struct {
	ID                 string        `json:"id"`
	Size               string        `json:"size"`
	Items              []LineItem    `json:"items"`
	AllowSubstitutions bool          `json:"allowSubs"`
	Subscription       *Subscription `json:"subscription,omitempty"`
}

// Subscribed reports whether a subscription is attached.
func (b Bundle) Subscribed() bool {
	return b.Subscription != nil
}

// ItemCount is the sum of line item quantities, ignoring non-positive ones.
func (b Bundle) ItemCount() int {
	return TotalCount(b.Items)
}

// TotalCount sums positive quantities across line items.
func TotalCount(items []LineItem) int {
	total := 0
	for _, it := range items {
		if it.Quantity > 0 {
			total += it.Quantity
		}
	}
	return total
}
