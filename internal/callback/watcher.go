package callback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/messaging"
	"github.com/brizzai/recall/internal/relay"
	"github.com/brizzai/recall/internal/retry"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// PagePolicy re-checks a page immediately and then 100ms, 500ms, 1s and 2s
// after load, for pages whose own scripts fill in the URL late.
var PagePolicy = retry.Schedule("callback-page",
	0,
	100*time.Millisecond,
	500*time.Millisecond,
	time.Second,
	2*time.Second,
)

const sentTTL = 10 * time.Minute

// Page reports the current URL of the page being watched. Successive calls
// may return different URLs as the page settles.
type Page interface {
	URL(ctx context.Context) (string, error)
}

// StaticPage is a Page whose URL never changes.
type StaticPage string

func (p StaticPage) URL(context.Context) (string, error) { return string(p), nil }

// Watcher captures callback pages and notifies the relay. A notification the
// relay acknowledged is not sent again for the same (code, state).
type Watcher struct {
	client messaging.Client
	policy retry.Policy
	sent   *cache.Cache
	log    *zap.Logger
}

// NewWatcher creates a Watcher sending through client with PagePolicy.
func NewWatcher(client messaging.Client) *Watcher {
	return &Watcher{
		client: client,
		policy: PagePolicy,
		sent:   cache.New(sentTTL, 2*sentTTL),
		log:    logger.Named("watcher"),
	}
}

// WithPolicy returns a copy of w using p.
func (w *Watcher) WithPolicy(p retry.Policy) *Watcher {
	c := *w
	c.policy = p
	return &c
}

// Watch evaluates page on every attempt of the policy until the relay
// acknowledges a notification. The sender identifies the page's tab. It
// returns the delivered result, or an error once the policy is exhausted or
// ctx ends.
func (w *Watcher) Watch(ctx context.Context, page Page, sender *relay.Sender) (Result, error) {
	var delivered Result

	err := retry.Do(ctx, w.policy, func(ctx context.Context, attempt int) (bool, error) {
		raw, err := page.URL(ctx)
		if err != nil {
			return false, fmt.Errorf("read page url: %w", err)
		}

		res, err := Detect(raw)
		switch {
		case errors.Is(err, ErrNotCallback):
			return false, err
		case errors.Is(err, ErrMissingParams):
			w.log.Info("Callback page without code/state yet", zap.Int("attempt", attempt))
			return false, err
		case err != nil:
			return false, err
		}

		if _, dup := w.sent.Get(res.Key()); dup {
			w.log.Debug("Callback already delivered", zap.Int("attempt", attempt))
			delivered = res
			return true, nil
		}

		resp, err := w.client.Send(ctx, res.Message(sender))
		if err != nil {
			w.log.Warn("Relay did not answer", zap.Int("attempt", attempt), zap.Error(err))
			return false, err
		}
		if !resp.Succeeded() {
			w.log.Warn("Relay rejected callback", zap.Int("attempt", attempt), zap.String("error", resp.ErrorMessage()))
			return false, fmt.Errorf("relay rejected callback: %s", resp.ErrorMessage())
		}

		w.sent.SetDefault(res.Key(), struct{}{})
		delivered = res
		w.log.Info("Callback delivered",
			zap.Int("attempt", attempt),
			zap.String("provider", string(res.Provider)),
			zap.Bool("error", res.Failed()),
		)
		return true, nil
	})
	if err != nil {
		return Result{}, err
	}
	return delivered, nil
}
