// Package storage provides the key-value capability shared by every context
// of the extension: the relay writes to it, the popup and MCP surfaces read.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/brizzai/recall/internal/config"
)

// Well-known keys.
const (
	KeyMemories     = "memories"
	KeyPendingOAuth = "pending_oauth"
	KeyAuthSession  = "auth_session"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Store is a key-value store. Values are opaque bytes; callers encode JSON.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New builds the backend selected by cfg.Driver.
func New(cfg config.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case config.StorageDriverMemory, "":
		return NewMemory(), nil
	case config.StorageDriverFile:
		return NewFile(cfg.Path)
	case config.StorageDriverRedis:
		return NewRedis(cfg.Redis, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

// GetJSON decodes the value at key into out. It returns ErrNotFound when the
// key is empty.
func GetJSON(ctx context.Context, s Store, key string, out any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it at key, replacing any previous value.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
