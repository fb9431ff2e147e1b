package bundle

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidLineItem is returned for a line with an empty sku or a quantity below one.
var ErrInvalidLineItem = errors.New("invalid line item")

// IDGenerator produces bundle identifiers.
type IDGenerator interface {
	NewID(now time.Time) string
}

// TimeIDs derives ids from the commit instant in milliseconds.
type TimeIDs struct{}

// NewID implements IDGenerator.
func (TimeIDs) NewID(now time.Time) string {
	return "box_" + strconv.FormatInt(now.UnixMilli(), 10)
}

// UUIDIDs derives ids from random UUIDs, safe for rapid repeated commits.
type UUIDIDs struct{}

// NewID implements IDGenerator.
func (UUIDIDs) NewID(time.Time) string {
	return "box_" + uuid.NewString()
}

// IDGeneratorFor maps a configured strategy name to a generator.
func IDGeneratorFor(strategy string) IDGenerator {
	if strings.EqualFold(strings.TrimSpace(strategy), "uuid") {
		return UUIDIDs{}
	}
	return TimeIDs{}
}

// CommitRequest is what the storefront submits when a shopper adds a configured box.
type CommitRequest struct {
	Size      string
	Items     []LineItem
	AllowSubs bool
	Subscribe bool
}

// Committer validates a configured box and turns it into an immutable Bundle.
type Committer struct {
	Validator            Validator
	IDs                  IDGenerator
	Now                  func() time.Time
	SubscriptionDiscount decimal.Decimal
	DeliveryLead         time.Duration
}

func (c *Committer) now() time.Time {
	if c != nil && c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Committer) lead() time.Duration {
	if c == nil || c.DeliveryLead <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DeliveryLead
}

// Commit validates the request and builds the bundle to append to the basket.
func (c *Committer) Commit(req CommitRequest) (Bundle, error) {
	if c == nil {
		return Bundle{}, errors.New("bundle committer not configured")
	}
	items := make([]LineItem, 0, len(req.Items))
	for i, it := range req.Items {
		sku := strings.TrimSpace(it.SKU)
		if sku == "" {
			return Bundle{}, fmt.Errorf("line %d: sku required: %w", i, ErrInvalidLineItem)
		}
		if it.Quantity < 1 {
			return Bundle{}, fmt.Errorf("line %d: qty must be positive: %w", i, ErrInvalidLineItem)
		}
		items = append(items, LineItem{SKU: sku, Quantity: it.Quantity})
	}
	if err := c.Validator.Validate(req.Size, items); err != nil {
		return Bundle{}, err
	}

	now := c.now()
	ids := c.IDs
	if ids == nil {
		ids = TimeIDs{}
	}
	b := Bundle{
		ID:                 ids.NewID(now),
		Size:               req.Size,
		Items:              items,
		AllowSubstitutions: req.AllowSubs,
	}
	if req.Subscribe {
		b.Subscription = &Subscription{
			Interval:     IntervalWeekly,
			Discount:     c.SubscriptionDiscount,
			NextDelivery: DateOf(now.Add(c.lead())),
		}
	}
	return b, nil
}
