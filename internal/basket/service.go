package basket

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/boxcart/internal/bundle"
	"github.com/noah-isme/boxcart/internal/obs"
)

// ErrInvalidInput is returned when a standalone item request is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Locker serialises read-modify-write cycles across processes.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service pairs every basket mutation with re-aggregation so derived display
// state is always computed from what was just written.
type Service struct {
	Store      *Store
	Aggregator Aggregator
	Committer  *bundle.Committer
	Locker     Locker
	LockTTL    time.Duration
	Logger     zerolog.Logger

	slots sync.Map // slot key -> *sync.Mutex
}

func (s *Service) lockTTL() time.Duration {
	if s.LockTTL <= 0 {
		return 2 * time.Second
	}
	return s.LockTTL
}

// Entries returns the stored sequence.
func (s *Service) Entries(ctx context.Context) []Entry {
	return s.Store.Read(ctx)
}

// View aggregates the stored basket.
func (s *Service) View(ctx context.Context) Summary {
	return s.Aggregator.Aggregate(s.Store.Read(ctx))
}

// AddItem appends a standalone item: a bare sku for one unit, a quantity entry otherwise.
func (s *Service) AddItem(ctx context.Context, sku string, qty int) (Summary, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return Summary{}, fmt.Errorf("sku required: %w", ErrInvalidInput)
	}
	if qty < 1 {
		return Summary{}, fmt.Errorf("qty must be positive: %w", ErrInvalidInput)
	}
	entry := SKUEntry(sku)
	if qty > 1 {
		entry = QuantityEntry(sku, qty)
	}
	return s.Append(ctx, entry)
}

// Append adds entry at the end of the basket.
func (s *Service) Append(ctx context.Context, entry Entry) (Summary, error) {
	return s.mutate(ctx, "append", func(entries []Entry) ([]Entry, bool) {
		return Append(entries, entry), true
	})
}

// CommitBundle validates a configured box and appends the resulting bundle.
func (s *Service) CommitBundle(ctx context.Context, req bundle.CommitRequest) (bundle.Bundle, Summary, error) {
	b, err := s.Committer.Commit(req)
	if err != nil {
		if obs.BundleCommits != nil {
			obs.BundleCommits.WithLabelValues(commitResult(err)).Inc()
		}
		return bundle.Bundle{}, Summary{}, err
	}
	summary, err := s.Append(ctx, BundleEntry(b))
	if err != nil {
		if obs.BundleCommits != nil {
			obs.BundleCommits.WithLabelValues("error").Inc()
		}
		return bundle.Bundle{}, Summary{}, err
	}
	if obs.BundleCommits != nil {
		obs.BundleCommits.WithLabelValues("committed").Inc()
	}
	s.Logger.Info().Str("bundle_id", b.ID).Str("size", b.Size).Int("items", b.ItemCount()).Bool("subscribed", b.Subscribed()).Msg("bundle committed")
	return b, summary, nil
}

// RemoveAt removes the entry at index. An out of range index is a no-op and
// reports false without touching the store.
func (s *Service) RemoveAt(ctx context.Context, index int) (Summary, bool, error) {
	removed := false
	summary, err := s.mutate(ctx, "remove", func(entries []Entry) ([]Entry, bool) {
		var out []Entry
		out, removed = RemoveAt(entries, index)
		return out, removed
	})
	return summary, removed, err
}

// Clear empties the basket.
func (s *Service) Clear(ctx context.Context) (Summary, error) {
	err := s.guard(ctx, "clear", func(ctx context.Context) error {
		return s.Store.Drop(ctx)
	})
	s.observe("clear", err)
	if err != nil {
		return Summary{}, err
	}
	return s.Aggregator.Aggregate(nil), nil
}

func (s *Service) mutate(ctx context.Context, op string, fn func([]Entry) ([]Entry, bool)) (Summary, error) {
	var next []Entry
	err := s.guard(ctx, op, func(ctx context.Context) error {
		current, err := s.Store.Load(ctx)
		if err != nil {
			return err
		}
		updated, changed := fn(current)
		next = updated
		if !changed {
			return nil
		}
		return s.Store.Write(ctx, updated)
	})
	s.observe(op, err)
	if err != nil {
		return Summary{}, err
	}
	return s.Aggregator.Aggregate(next), nil
}

func (s *Service) guard(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := obs.StartSpan(ctx, "basket."+op)
	defer span.End()
	key := s.Store.key(ctx)
	span.SetAttributes(attribute.String("basket.slot", key))

	mu := s.slotMutex(key)
	mu.Lock()
	defer mu.Unlock()
	var err error
	if s.Locker == nil {
		err = fn(ctx)
	} else {
		err = s.Locker.WithLock(ctx, "lock:"+key, s.lockTTL(), fn)
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) slotMutex(key string) *sync.Mutex {
	mu, _ := s.slots.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (s *Service) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
		s.Logger.Error().Err(err).Str("op", op).Msg("basket mutation failed")
	}
	if obs.BasketMutations != nil {
		obs.BasketMutations.WithLabelValues(op, result).Inc()
	}
}

func commitResult(err error) string {
	switch {
	case errors.Is(err, bundle.ErrUnknownTier):
		return "unknown_tier"
	case errors.Is(err, bundle.ErrCountOutOfRange):
		return "count_out_of_range"
	case errors.Is(err, bundle.ErrInvalidLineItem):
		return "invalid_line_item"
	default:
		return "error"
	}
}
