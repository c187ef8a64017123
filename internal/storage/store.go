package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/junkai/internal/config"
	"github.com/JonMunkholm/junkai/internal/core"
)

// Keys of the four state documents.
const (
	KeyShoppingLists = "eventShoppingLists"
	KeyMetadata      = "eventMetadata"
	KeyExecute       = "executeModeItems"
	KeyDayModes      = "dayModes"
)

// Store saves core.State into a KV. It implements core.Persister.
type Store struct {
	kv KV
}

var _ core.Persister = (*Store)(nil)

// NewStore wraps kv.
func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Open connects the configured backend and wraps it in a Store.
func Open(ctx context.Context, cfg config.StorageConfig) (*Store, error) {
	kv, err := OpenKV(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewStore(kv), nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

// Load reads the four documents. A missing document starts empty; so does
// one that no longer decodes, after a warning, so a damaged blob never
// keeps the application from starting.
func (s *Store) Load(ctx context.Context) (*core.State, error) {
	st := core.NewState()
	docs := []struct {
		key    string
		decode func(string) error
	}{
		{KeyShoppingLists, func(raw string) error { return decodeInto(raw, &st.Lists) }},
		{KeyMetadata, func(raw string) error { return decodeInto(raw, &st.Metadata) }},
		{KeyExecute, func(raw string) error { return decodeInto(raw, &st.Execute) }},
		{KeyDayModes, func(raw string) error { return decodeInto(raw, &st.DayModes) }},
	}

	for _, d := range docs {
		raw, ok, err := s.kv.Get(ctx, d.key)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", d.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		if err := d.decode(raw); err != nil {
			slog.Warn("discarding unreadable state document", "key", d.key, "error", err)
		}
	}

	st.Normalize()
	return st, nil
}

// Save writes all four documents in one batch.
func (s *Store) Save(ctx context.Context, st *core.State) error {
	docs := map[string]any{
		KeyShoppingLists: st.Lists,
		KeyMetadata:      st.Metadata,
		KeyExecute:       st.Execute,
		KeyDayModes:      st.DayModes,
	}

	entries := make(map[string]string, len(docs))
	for key, v := range docs {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		entries[key] = string(b)
	}

	if err := s.kv.SetMany(ctx, entries); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// decodeInto replaces *dst only when raw decodes cleanly.
func decodeInto[T any](raw string, dst *T) error {
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return err
	}
	*dst = v
	return nil
}
