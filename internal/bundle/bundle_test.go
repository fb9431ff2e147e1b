package bundle_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/catalog"
)

func items(qtys ...int) []bundle.LineItem {
	out := make([]bundle.LineItem, 0, len(qtys))
	for _, q := range qtys {
		out = append(out, bundle.LineItem{SKU: "apple", Quantity: q})
	}
	return out
}

func TestValidateBounds(t *testing.T) {
	v := bundle.Validator{Tiers: catalog.Default()}

	for n := 0; n <= 10; n++ {
		err := v.Validate("M", items(n))
		if n >= 4 && n <= 5 {
			require.NoError(t, err, "count %d", n)
			continue
		}
		var rangeErr *bundle.CountOutOfRangeError
		require.ErrorAs(t, err, &rangeErr, "count %d", n)
		require.Equal(t, bundle.CountOutOfRangeError{Min: 4, Max: 5, Actual: n}, *rangeErr)
		require.True(t, errors.Is(err, bundle.ErrCountOutOfRange))
	}
}

func TestValidateSmallBoxRejectsFive(t *testing.T) {
	v := bundle.Validator{Tiers: catalog.Default()}
	lines := []bundle.LineItem{{SKU: "apple", Quantity: 2}, {SKU: "banana", Quantity: 3}}

	err := v.Validate("S", lines)
	var rangeErr *bundle.CountOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	require.Equal(t, 3, rangeErr.Min)
	require.Equal(t, 3, rangeErr.Max)
	require.Equal(t, 5, rangeErr.Actual)
	require.Contains(t, err.Error(), "between 3 and 3")
}

func TestValidateUnknownTier(t *testing.T) {
	v := bundle.Validator{Tiers: catalog.Default()}
	err := v.Validate("XXL", items(3))
	require.ErrorIs(t, err, bundle.ErrUnknownTier)

	require.ErrorIs(t, bundle.Validator{}.Validate("S", items(3)), bundle.ErrUnknownTier)
}

func TestCommitBuildsBundle(t *testing.T) {
	now := time.Date(2026, 3, 30, 22, 15, 0, 0, time.UTC)
	c := &bundle.Committer{
		Validator:            bundle.Validator{Tiers: catalog.Default()},
		Now:                  func() time.Time { return now },
		SubscriptionDiscount: decimal.RequireFromString("0.10"),
	}

	b, err := c.Commit(bundle.CommitRequest{
		Size:      "M",
		Items:     []bundle.LineItem{{SKU: "apple", Quantity: 2}, {SKU: " banana ", Quantity: 3}},
		AllowSubs: true,
		Subscribe: true,
	})
	require.NoError(t, err)
	require.Equal(t, "box_1774908900000", b.ID)
	require.Equal(t, "M", b.Size)
	require.Equal(t, "banana", b.Items[1].SKU)
	require.True(t, b.AllowSubstitutions)
	require.Equal(t, 5, b.ItemCount())
	require.NotNil(t, b.Subscription)
	require.Equal(t, bundle.IntervalWeekly, b.Subscription.Interval)
	require.Equal(t, "0.1", b.Subscription.Discount.String())
	require.Equal(t, "2026-04-06", b.Subscription.NextDelivery.String())
}

func TestCommitWithoutSubscription(t *testing.T) {
	c := &bundle.Committer{Validator: bundle.Validator{Tiers: catalog.Default()}, IDs: bundle.UUIDIDs{}}
	b, err := c.Commit(bundle.CommitRequest{Size: "S", Items: items(1, 1, 1)})
	require.NoError(t, err)
	require.Nil(t, b.Subscription)
	require.False(t, b.Subscribed())
	require.True(t, strings.HasPrefix(b.ID, "box_"))
	require.Len(t, b.ID, len("box_")+36)
}

func TestCommitRejects(t *testing.T) {
	c := &bundle.Committer{Validator: bundle.Validator{Tiers: catalog.Default()}}

	_, err := c.Commit(bundle.CommitRequest{Size: "S", Items: []bundle.LineItem{{SKU: "", Quantity: 3}}})
	require.ErrorIs(t, err, bundle.ErrInvalidLineItem)

	_, err = c.Commit(bundle.CommitRequest{Size: "S", Items: []bundle.LineItem{{SKU: "apple", Quantity: 0}}})
	require.ErrorIs(t, err, bundle.ErrInvalidLineItem)

	_, err = c.Commit(bundle.CommitRequest{Size: "L", Items: items(1, 1, 1)})
	require.ErrorIs(t, err, bundle.ErrCountOutOfRange)

	_, err = c.Commit(bundle.CommitRequest{Size: "Z", Items: items(3)})
	require.ErrorIs(t, err, bundle.ErrUnknownTier)
}

func TestIDGeneratorFor(t *testing.T) {
	require.IsType(t, bundle.UUIDIDs{}, bundle.IDGeneratorFor("UUID"))
	require.IsType(t, bundle.TimeIDs{}, bundle.IDGeneratorFor("time"))
	require.IsType(t, bundle.TimeIDs{}, bundle.IDGeneratorFor(""))
}

func TestBundleJSONShape(t *testing.T) {
	b := bundle.Bundle{
		ID:    "box_1",
		Size:  "M",
		Items: []bundle.LineItem{{SKU: "apple", Quantity: 4}},
		Subscription: &bundle.Subscription{
			Interval:     bundle.IntervalWeekly,
			Discount:     decimal.RequireFromString("0.1"),
			NextDelivery: bundle.DateOf(time.Date(2026, 1, 9, 13, 0, 0, 0, time.UTC)),
		},
	}
	data, err := json.Marshal(b)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"box_1","size":"M","items":[{"sku":"apple","qty":4}],"allowSubs":false,
		"subscription":{"interval":"weekly","discount":"0.1","nextDelivery":"2026-01-09"}}`, string(data))

	var legacy bundle.Bundle
	require.NoError(t, json.Unmarshal([]byte(`{"id":"box_2","size":"L","items":[],"allowSubs":true,
		"subscription":{"interval":"weekly","discount":0.1,"nextDelivery":"2026-01-16T08:00:00Z"}}`), &legacy))
	require.Equal(t, "0.1", legacy.Subscription.Discount.String())
	require.Equal(t, "2026-01-16", legacy.Subscription.NextDelivery.String())
}
