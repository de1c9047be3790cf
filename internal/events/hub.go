// Package events fans out relay events to every listening context.
package events

import (
	"encoding/json"
	"sync"

	"github.com/brizzai/recall/internal/logger"
	"go.uber.org/zap"
)

// Event types pushed to listeners.
const (
	TypeOAuthErrorCallback = "OAUTH_ERROR_CALLBACK"
	TypeCloseTab           = "CLOSE_TAB"
	TypePresentPopup       = "PRESENT_POPUP"
	TypeOpenPage           = "OPEN_PAGE"
)

// Roles a subscriber can attach with.
const (
	// RoleListener receives broadcasts only (popup, options page).
	RoleListener = "listener"
	// RoleShell is the extension shell that can act on browser chrome.
	RoleShell = "shell"
)

const subscriberBuffer = 16

// Event is serialized flat: {"type": ..., <fields>...}.
type Event struct {
	Type   string
	Fields map[string]any
}

// New creates an event with the given type and fields.
func New(typ string, fields map[string]any) Event {
	return Event{Type: typ, Fields: fields}
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		out[k] = v
	}
	out["type"] = e.Type
	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	typ, _ := raw["type"].(string)
	delete(raw, "type")
	e.Type = typ
	e.Fields = raw
	return nil
}

// Subscription is one attached listener.
type Subscription struct {
	role string
	ch   chan Event
	hub  *Hub
	once sync.Once
}

// C delivers events until the subscription is closed.
func (s *Subscription) C() <-chan Event { return s.ch }

// Role returns the role the subscription attached with.
func (s *Subscription) Role() string { return s.role }

// Close detaches the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub is an in-process broadcaster. Slow subscribers drop events rather than
// block the publisher.
type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe attaches a new subscriber with the given role.
func (h *Hub) Subscribe(role string) *Subscription {
	if role == "" {
		role = RoleListener
	}
	s := &Subscription{role: role, ch: make(chan Event, subscriberBuffer), hub: h}

	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.ch)
	}
}

// Broadcast delivers ev to every subscriber and returns how many received it.
func (h *Hub) Broadcast(ev Event) int {
	return h.publish(ev, "")
}

// Send delivers ev only to subscribers with role and returns how many
// received it.
func (h *Hub) Send(role string, ev Event) int {
	return h.publish(ev, role)
}

// Count returns the number of subscribers with role, or all when role is "".
func (h *Hub) Count(role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for s := range h.subs {
		if role == "" || s.role == role {
			n++
		}
	}
	return n
}

func (h *Hub) publish(ev Event, role string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs {
		if role != "" && s.role != role {
			continue
		}
		select {
		case s.ch <- ev:
			delivered++
		default:
			logger.Warn("Dropping event for slow subscriber",
				zap.String("type", ev.Type),
				zap.String("role", s.role),
			)
		}
	}
	return delivered
}
