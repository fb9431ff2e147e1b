package basket

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/noah-isme/boxcart/internal/obs"
)

var errNoBackend = errors.New("basket: backend not configured")

// DefaultKey names the persisted basket slot.
const DefaultKey = "basket"

// Store reads and overwrites the basket sequence held in a KV slot.
type Store struct {
	KV     KV
	Key    string
	Logger zerolog.Logger
}

// NewStore constructs a store over kv using the base slot key.
func NewStore(kv KV, key string, logger zerolog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{KV: kv, Key: key, Logger: logger}
}

func (s *Store) key(ctx context.Context) string {
	base := s.Key
	if base == "" {
		base = DefaultKey
	}
	return SlotKey(ctx, base)
}

// Read returns the stored sequence. Missing slots, backend failures and
// malformed payloads all yield an empty basket and are only logged.
func (s *Store) Read(ctx context.Context) []Entry {
	entries, err := s.Load(ctx)
	if err != nil {
		reason := "backend_error"
		if errors.Is(err, errNoBackend) {
			reason = "no_backend"
		}
		s.recovered(s.key(ctx), reason, err)
		return []Entry{}
	}
	return entries
}

// Load is Read for read-modify-write cycles: backend failures are returned
// instead of masked, so a mutation never overwrites a slot it could not read.
// Malformed payloads still recover to an empty basket.
func (s *Store) Load(ctx context.Context) ([]Entry, error) {
	key := s.key(ctx)
	if s.KV == nil {
		return nil, errNoBackend
	}
	data, found, err := s.KV.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("basket: read: %w", err)
	}
	if !found || len(bytes.TrimSpace(data)) == 0 {
		return []Entry{}, nil
	}
	return s.decode(key, data), nil
}

func (s *Store) decode(key string, data []byte) []Entry {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		reason := "malformed_json"
		if json.Valid(data) {
			reason = "not_array"
		}
		s.recovered(key, reason, err)
		return []Entry{}
	}
	if raw == nil {
		s.recovered(key, "not_array", nil)
		return []Entry{}
	}
	entries := make([]Entry, 0, len(raw))
	for i, msg := range raw {
		var e Entry
		if err := json.Unmarshal(msg, &e); err != nil {
			e = Entry{kind: KindUnknown, raw: append(json.RawMessage(nil), msg...)}
		}
		if e.kind == KindUnknown {
			s.Logger.Warn().Str("key", key).Int("index", i).Msg("basket entry not recognised")
		}
		entries = append(entries, e)
	}
	return entries
}

func (s *Store) recovered(key, reason string, err error) {
	evt := s.Logger.Warn().Str("key", key).Str("reason", reason)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("basket read recovered to empty")
	if obs.BasketReadRecoveries != nil {
		obs.BasketReadRecoveries.WithLabelValues(reason).Inc()
	}
}

// Write fully overwrites the stored sequence.
func (s *Store) Write(ctx context.Context, entries []Entry) error {
	if s.KV == nil {
		return errNoBackend
	}
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("basket: encode: %w", err)
	}
	if err := s.KV.Set(ctx, s.key(ctx), data); err != nil {
		return fmt.Errorf("basket: write: %w", err)
	}
	return nil
}

// Drop removes the slot entirely.
func (s *Store) Drop(ctx context.Context) error {
	if s.KV == nil {
		return errNoBackend
	}
	if err := s.KV.Delete(ctx, s.key(ctx)); err != nil {
		return fmt.Errorf("basket: clear: %w", err)
	}
	return nil
}

// Append returns a new sequence with e added at the end.
func Append(entries []Entry, e Entry) []Entry {
	out := make([]Entry, 0, len(entries)+1)
	out = append(out, entries...)
	return append(out, e)
}

// RemoveAt returns a new sequence without the entry at index. An out of range
// index returns an unchanged copy and false.
func RemoveAt(entries []Entry, index int) ([]Entry, bool) {
	out := make([]Entry, 0, len(entries))
	if index < 0 || index >= len(entries) {
		return append(out, entries...), false
	}
	out = append(out, entries[:index]...)
	return append(out, entries[index+1:]...), true
}
