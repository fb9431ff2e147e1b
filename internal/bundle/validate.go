package bundle

import (
	"errors"
	"fmt"

	"github.com/noah-isme/boxcart/internal/catalog"
)

var (
	// ErrUnknownTier is returned when a size label is not in the catalog.
	ErrUnknownTier = errors.New("unknown box size")
	// ErrCountOutOfRange matches every CountOutOfRangeError via errors.Is.
	ErrCountOutOfRange = errors.New("item count out of range")
)

// CountOutOfRangeError reports a box whose item count violates its tier bounds.
type CountOutOfRangeError struct {
	Min    int
	Max    int
	Actual int
}

// Error implements the error interface.
func (e *CountOutOfRangeError) Error() string {
	return fmt.Sprintf("please select between %d and %d items for this box size (got %d)", e.Min, e.Max, e.Actual)
}

// Is lets errors.Is match ErrCountOutOfRange.
func (e *CountOutOfRangeError) Is(target error) bool {
	return target == ErrCountOutOfRange
}

// TierLookup resolves size labels.
type TierLookup interface {
	Tier(label string) (catalog.Tier, bool)
}

// Validator checks proposed line items against a tier's item-count bounds.
type Validator struct {
	Tiers TierLookup
}

// Validate resolves the tier and checks the summed quantity against its bounds.
func (v Validator) Validate(tierLabel string, items []LineItem) error {
	if v.Tiers == nil {
		return ErrUnknownTier
	}
	tier, ok := v.Tiers.Tier(tierLabel)
	if !ok {
		return fmt.Errorf("%q: %w", tierLabel, ErrUnknownTier)
	}
	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	if total < tier.MinItems || total > tier.MaxItems {
		return &CountOutOfRangeError{Min: tier.MinItems, Max: tier.MaxItems, Actual: total}
	}
	return nil
}
