// Package storage persists the planner state as four JSON documents in a
// key/value table.
//
// Backends:
//
//   - Memory: process-local map, for tests and throwaway servers
//   - SQLite: a local database file (modernc.org/sqlite, no cgo)
//   - Postgres: a shared database through a pgx connection pool
//
// All backends write a batch of keys atomically, so a saved state is never
// half old and half new.
package storage

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/JonMunkholm/junkai/internal/config"
)

// KV is a string key/value store.
type KV interface {
	// Get returns the value stored under key. ok is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// SetMany stores every entry in one transaction.
	SetMany(ctx context.Context, entries map[string]string) error
	Close() error
}

// MemoryKV keeps values in memory.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV returns an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryKV) SetMany(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	maps.Copy(m.values, entries)
	return nil
}

func (m *MemoryKV) Close() error { return nil }

// OpenKV connects the backend selected by cfg.Driver.
func OpenKV(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		return NewMemoryKV(), nil
	case config.DriverSQLite, "":
		return OpenSQLite(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		return OpenPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
