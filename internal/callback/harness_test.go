package callback

import (
	"context"
	"testing"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/memories"
	"github.com/brizzai/recall/internal/relay"
	"github.com/brizzai/recall/internal/storage"
)

type nopSurface struct{}

func (nopSurface) CloseTab(context.Context, int) error    { return nil }
func (nopSurface) Present(context.Context) error          { return nil }
func (nopSurface) OpenPage(context.Context, string) error { return nil }

type relayHarness struct {
	relay *relay.Relay
	store *storage.MemoryStore
}

func newRelayHarness(t *testing.T) *relayHarness {
	t.Helper()
	store := storage.NewMemory()
	return &relayHarness{
		store: store,
		relay: relay.New(relay.Params{
			Config:   &config.Config{},
			Store:    store,
			Memories: memories.NewService(store),
			Hub:      events.NewHub(),
			Surface:  nopSurface{},
		}),
	}
}
