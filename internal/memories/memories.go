// Package memories stores the short text records shown across contexts.
package memories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/recall/internal/storage"
	"github.com/google/uuid"
)

const (
	DefaultCategory = "General"
	DefaultSource   = "manual"

	timestampLayout = "2006-01-02T15:04:05.000Z07:00"
)

// ErrEmptyContent is returned when a memory has no content.
var ErrEmptyContent = errors.New("memory content is required")

// Memory is one stored record.
type Memory struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
}

// SaveInput carries the caller-provided fields. Empty category and source
// take their defaults.
type SaveInput struct {
	Content  string
	Category string
	Source   string
}

// Service appends to and lists the memories key.
type Service struct {
	store storage.Store
	now   func() time.Time
	newID func() string

	// serializes read-modify-write of the list
	mu sync.Mutex
}

// NewService creates a Service over store.
func NewService(store storage.Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Save appends a record and returns it with its generated id and timestamp.
func (s *Service) Save(ctx context.Context, in SaveInput) (Memory, error) {
	if strings.TrimSpace(in.Content) == "" {
		return Memory{}, ErrEmptyContent
	}

	mem := Memory{
		ID:        s.newID(),
		Content:   in.Content,
		Category:  in.Category,
		Timestamp: s.now().UTC().Format(timestampLayout),
		Source:    in.Source,
	}
	if mem.Category == "" {
		mem.Category = DefaultCategory
	}
	if mem.Source == "" {
		mem.Source = DefaultSource
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load(ctx)
	if err != nil {
		return Memory{}, err
	}
	list = append(list, mem)
	if err := storage.SetJSON(ctx, s.store, storage.KeyMemories, list); err != nil {
		return Memory{}, fmt.Errorf("failed to save memory: %w", err)
	}
	return mem, nil
}

// List returns every stored record in insertion order. An empty store yields
// an empty, non-nil slice.
func (s *Service) List(ctx context.Context) ([]Memory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) ([]Memory, error) {
	var list []Memory
	err := storage.GetJSON(ctx, s.store, storage.KeyMemories, &list)
	if errors.Is(err, storage.ErrNotFound) {
		return []Memory{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load memories: %w", err)
	}
	if list == nil {
		list = []Memory{}
	}
	return list, nil
}
