// Package relay is the privileged background context. It receives typed
// messages from page contexts and surfaces, persists pending sign-in state and
// memories, and drives the browser surface on their behalf.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/memories"
	"github.com/brizzai/recall/internal/metrics"
	"github.com/brizzai/recall/internal/models"
	"github.com/brizzai/recall/internal/storage"
	"github.com/brizzai/recall/internal/surface"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultPresentDelay = time.Second
	defaultDedupWindow  = 30 * time.Second
	defaultPopupPage    = "popup.html"

	// bounds each surface call made outside a request
	surfaceTimeout = 5 * time.Second
)

// Handler answers relay messages. Implemented by *Relay and by messaging
// clients that forward to a remote relay.
type Handler interface {
	Handle(ctx context.Context, msg Message) Response
}

// SignInCompleter exchanges the pending authorization for a session.
type SignInCompleter interface {
	Complete(ctx context.Context, expectedState string) (*models.AuthSession, error)
}

// Params are the relay's dependencies.
type Params struct {
	fx.In

	Config   *config.Config
	Store    storage.Store
	Memories *memories.Service
	Hub      *events.Hub
	Surface  surface.Surface
	Metrics  *metrics.Metrics `optional:"true"`
	SignIn   SignInCompleter  `optional:"true"`
}

// Relay handles one message at a time.
type Relay struct {
	store    storage.Store
	memories *memories.Service
	hub      *events.Hub
	surface  surface.Surface
	metrics  *metrics.Metrics
	signIn   SignInCompleter
	validate *validator.Validate
	log      *zap.Logger

	presentDelay time.Duration
	popupPage    string
	// (code, state) pairs whose presentation was already scheduled
	handled *cache.Cache

	now       func() time.Time
	afterFunc func(d time.Duration, f func())

	mu sync.Mutex
}

// New creates a Relay.
func New(p Params) *Relay {
	r := &Relay{
		store:        p.Store,
		memories:     p.Memories,
		hub:          p.Hub,
		surface:      p.Surface,
		metrics:      p.Metrics,
		signIn:       p.SignIn,
		validate:     validator.New(),
		log:          logger.Named("relay"),
		presentDelay: defaultPresentDelay,
		popupPage:    defaultPopupPage,
		now:          time.Now,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}

	dedup := defaultDedupWindow
	if p.Config != nil {
		rc := p.Config.Relay
		if rc.PresentDelay > 0 {
			r.presentDelay = rc.PresentDelay
		}
		if rc.DedupWindow > 0 {
			dedup = rc.DedupWindow
		}
		if rc.PopupPage != "" {
			r.popupPage = rc.PopupPage
		}
	}
	r.handled = cache.New(dedup, 2*dedup)
	return r
}

// Handle dispatches msg and always returns a response; failures are reported
// in the response body, never as a Go error.
func (r *Relay) Handle(ctx context.Context, msg Message) Response {
	start := time.Now()

	var resp Response
	if msg.Type == TypeCompleteOAuth {
		// provider round trips; only auth_session is written
		resp = r.completeSignIn(ctx, msg.State)
	} else {
		r.mu.Lock()
		resp = r.dispatch(ctx, msg)
		r.mu.Unlock()
	}

	outcome := "ok"
	if v, ok := resp["success"].(bool); ok && !v {
		outcome = "rejected"
	}
	r.metrics.ObserveMessage(metricKind(msg.Kind()), outcome, time.Since(start))
	return resp
}

// metricKind bounds the message label to the handled kinds.
func metricKind(kind string) string {
	switch kind {
	case TypeSaveMemory, TypeGetMemories, TypeOAuthSuccess, TypeOAuthError,
		TypeGetPendingOAuth, TypeGetAuthSession, TypeCompleteOAuth, ActionOpenPopup:
		return kind
	}
	return "unknown"
}

func (r *Relay) dispatch(ctx context.Context, msg Message) Response {
	if msg.Action == ActionOpenPopup && msg.Type == "" {
		r.RequestPopupOpen(ctx)
		return OK()
	}

	switch msg.Type {
	case TypeSaveMemory:
		mem, err := r.SaveMemory(ctx, msg)
		if err != nil {
			return Fail(err)
		}
		return Response{"success": true, "memory": mem}

	case TypeGetMemories:
		list, err := r.memories.List(ctx)
		if err != nil {
			r.log.Error("Failed to list memories", zap.Error(err))
			return Fail(err)
		}
		return Response{"memories": list}

	case TypeOAuthSuccess:
		if err := r.NotifyAuthSuccess(ctx, msg.Code, msg.State, msg.Provider, msg.Sender); err != nil {
			return Fail(err)
		}
		return OK()

	case TypeOAuthError:
		r.NotifyAuthError(ctx, msg.Error, msg.Sender)
		return OK()

	case TypeGetPendingOAuth:
		pending, err := r.PendingAuth(ctx)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return Fail(err)
		}
		return Response{"pending": pending}

	case TypeGetAuthSession:
		var session models.AuthSession
		err := storage.GetJSON(ctx, r.store, storage.KeyAuthSession, &session)
		if errors.Is(err, storage.ErrNotFound) {
			return Response{"session": nil}
		}
		if err != nil {
			return Fail(err)
		}
		return Response{"session": session}
	}

	r.log.Warn("Unknown message", zap.String("type", msg.Type), zap.String("action", msg.Action))
	return Fail(ErrUnknownMessage)
}

func (r *Relay) completeSignIn(ctx context.Context, state string) Response {
	if r.signIn == nil {
		return Fail(ErrSignInUnavailable)
	}
	session, err := r.signIn.Complete(ctx, state)
	if err != nil {
		r.log.Warn("Sign-in completion failed", zap.Error(err))
		return Fail(err)
	}
	r.metrics.StorageWrite(storage.KeyAuthSession)
	return Response{"success": true, "session": session}
}

// SaveMemory validates and appends a memory record.
func (r *Relay) SaveMemory(ctx context.Context, msg Message) (memories.Memory, error) {
	req := saveMemoryRequest{Content: strings.TrimSpace(msg.Content), Category: msg.Category, Source: msg.Source}
	if err := validateStruct(r.validate, req); err != nil {
		return memories.Memory{}, err
	}

	mem, err := r.memories.Save(ctx, memories.SaveInput{
		Content:  msg.Content,
		Category: msg.Category,
		Source:   msg.Source,
	})
	if err != nil {
		r.log.Error("Failed to save memory", zap.Error(err))
		return memories.Memory{}, err
	}
	r.metrics.StorageWrite(storage.KeyMemories)
	r.log.Debug("Memory saved", zap.String("id", mem.ID), zap.String("category", mem.Category))
	return mem, nil
}

// NotifyAuthSuccess persists the pending payload (last write wins), closes the
// sender tab when known, and schedules presentation of the popup. Empty code
// or state is rejected before anything is written. Repeated notifications for
// the same (code, state) rewrite the slot but schedule presentation once.
func (r *Relay) NotifyAuthSuccess(ctx context.Context, code, state, provider string, sender *Sender) error {
	req := authSuccessRequest{Code: code, State: state, Provider: provider}
	if err := validateStruct(r.validate, req); err != nil {
		r.log.Warn("Rejected auth success notification", zap.Error(err))
		return err
	}

	p := models.Provider(provider)
	if p == "" {
		p = models.ProviderGitHub
	}

	payload := models.PendingAuthPayload{
		Type:      models.PendingAuthTypeSuccess,
		Code:      code,
		State:     state,
		Provider:  p,
		Timestamp: r.now().UnixMilli(),
	}
	if err := storage.SetJSON(ctx, r.store, storage.KeyPendingOAuth, payload); err != nil {
		r.log.Error("Failed to persist pending auth", zap.Error(err))
		return fmt.Errorf("failed to persist pending auth: %w", err)
	}
	r.metrics.StorageWrite(storage.KeyPendingOAuth)
	r.log.Info("Pending auth stored", zap.String("provider", string(p)))

	r.closeSenderTab(ctx, sender)

	if err := r.handled.Add(code+"\x00"+state, struct{}{}, cache.DefaultExpiration); err != nil {
		r.log.Debug("Duplicate auth success, presentation already scheduled")
		return nil
	}
	r.afterFunc(r.presentDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), surfaceTimeout)
		defer cancel()
		r.RequestPopupOpen(ctx)
	})
	return nil
}

// NotifyAuthError broadcasts the error to listening contexts and closes the
// sender tab. It never touches the pending payload.
func (r *Relay) NotifyAuthError(ctx context.Context, message string, sender *Sender) {
	r.log.Warn("Auth error reported", zap.String("error", message))

	n := r.hub.Broadcast(events.New(events.TypeOAuthErrorCallback, map[string]any{"error": message}))
	r.log.Debug("Auth error broadcast", zap.Int("listeners", n))

	r.closeSenderTab(ctx, sender)
}

// RequestPopupOpen presents the popup, falling back to opening it as a page.
// Failures are logged only.
func (r *Relay) RequestPopupOpen(ctx context.Context) {
	err := r.surface.Present(ctx)
	r.metrics.SurfaceAction("present", err)
	if err == nil {
		return
	}
	r.log.Info("Could not present popup, opening as page", zap.Error(err))

	err = r.surface.OpenPage(ctx, r.popupPage)
	r.metrics.SurfaceAction("open_page", err)
	if err != nil {
		r.log.Warn("Could not open popup page", zap.String("page", r.popupPage), zap.Error(err))
	}
}

// PendingAuth returns the stored payload. Reading does not consume it.
func (r *Relay) PendingAuth(ctx context.Context) (*models.PendingAuthPayload, error) {
	var payload models.PendingAuthPayload
	if err := storage.GetJSON(ctx, r.store, storage.KeyPendingOAuth, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (r *Relay) closeSenderTab(ctx context.Context, sender *Sender) {
	if sender == nil || sender.TabID == 0 {
		return
	}
	err := r.surface.CloseTab(ctx, sender.TabID)
	r.metrics.SurfaceAction("close_tab", err)
	if err != nil {
		r.log.Info("Could not close callback tab", zap.Int("tab_id", sender.TabID), zap.Error(err))
	}
}
