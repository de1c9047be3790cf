package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/logger"
	"github.com/brizzai/recall/internal/relay"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	messagesPath = "/v1/messages"
	eventsPath   = "/v1/events"
)

// HTTPClient talks to a relay over its HTTP transport.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	timeout time.Duration
}

// NewHTTPClient creates a client for the relay at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// SetTimeout sets the per-send deadline
func (c *HTTPClient) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

func (c *HTTPClient) Send(ctx context.Context, msg relay.Message) (relay.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debug("Relay unreachable", zap.String("type", msg.Kind()), zap.Error(err))
		return nil, errors.Join(ErrNoResponse, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Error("Failed to close response body", zap.Error(err))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrNoResponse, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out relay.Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode relay response: %w", err)
	}
	return out, nil
}

// Listen attaches to the relay's event stream with role and delivers events
// until ctx ends or the connection drops; the channel is then closed.
func (c *HTTPClient) Listen(ctx context.Context, role string) (<-chan events.Event, error) {
	url := "ws" + strings.TrimPrefix(c.baseURL, "http") + eventsPath + "?role=" + role

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, errors.Join(ErrNoResponse, err)
	}

	out := make(chan events.Event)
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	go func() {
		defer close(out)
		for {
			var ev events.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
