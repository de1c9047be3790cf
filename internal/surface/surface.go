// Package surface controls the browser chrome on behalf of the relay: closing
// the callback tab and bringing the application popup to the front.
package surface

import (
	"context"
	"errors"

	"github.com/brizzai/recall/internal/events"
)

// ErrNoListeners means no extension shell is attached to act on a command.
var ErrNoListeners = errors.New("surface: no shell attached")

// Surface is implemented by whatever can manipulate the browser UI.
type Surface interface {
	// CloseTab closes the tab with the given id.
	CloseTab(ctx context.Context, tabID int) error
	// Present shows the application popup.
	Present(ctx context.Context) error
	// OpenPage opens an extension page in a new tab.
	OpenPage(ctx context.Context, page string) error
}

// HubSurface forwards commands to extension shells attached to the event hub.
// A command with no shell to receive it fails with ErrNoListeners.
type HubSurface struct {
	hub *events.Hub
}

// NewHubSurface creates a Surface on top of hub.
func NewHubSurface(hub *events.Hub) *HubSurface {
	return &HubSurface{hub: hub}
}

func (s *HubSurface) CloseTab(_ context.Context, tabID int) error {
	return s.send(events.New(events.TypeCloseTab, map[string]any{"tab_id": tabID}))
}

func (s *HubSurface) Present(_ context.Context) error {
	return s.send(events.New(events.TypePresentPopup, nil))
}

func (s *HubSurface) OpenPage(_ context.Context, page string) error {
	return s.send(events.New(events.TypeOpenPage, map[string]any{"page": page}))
}

func (s *HubSurface) send(ev events.Event) error {
	if s.hub.Send(events.RoleShell, ev) == 0 {
		return ErrNoListeners
	}
	return nil
}
