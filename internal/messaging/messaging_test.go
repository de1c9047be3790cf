package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, msg relay.Message) relay.Response

func (f handlerFunc) Handle(ctx context.Context, msg relay.Message) relay.Response {
	return f(ctx, msg)
}

func TestLocalClient_Reply(t *testing.T) {
	c := NewLocalClient(handlerFunc(func(ctx context.Context, msg relay.Message) relay.Response {
		return relay.Response{"success": true, "echo": msg.Type}
	}), time.Second)

	resp, err := c.Send(context.Background(), relay.Message{Type: relay.TypeGetMemories})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
	assert.Equal(t, relay.TypeGetMemories, resp["echo"])
}

func TestLocalClient_NoResponse(t *testing.T) {
	block := make(chan struct{})
	defer close(block)

	c := NewLocalClient(handlerFunc(func(ctx context.Context, msg relay.Message) relay.Response {
		<-block
		return relay.OK()
	}), 20*time.Millisecond)

	_, err := c.Send(context.Background(), relay.Message{Type: relay.TypeGetMemories})
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendAsync_Callback(t *testing.T) {
	c := NewLocalClient(handlerFunc(func(ctx context.Context, msg relay.Message) relay.Response {
		return relay.OK()
	}), time.Second)

	got := make(chan relay.Response, 1)
	SendAsync(context.Background(), c, relay.Message{Action: relay.ActionOpenPopup}, func(resp relay.Response, err error) {
		assert.NoError(t, err)
		got <- resp
	})

	select {
	case resp := <-got:
		assert.True(t, resp.Succeeded())
	case <-time.After(time.Second):
		t.Fatal("callback not invoked")
	}
}

func TestSendAsync_NilCallback(t *testing.T) {
	called := make(chan struct{}, 1)
	c := NewLocalClient(handlerFunc(func(ctx context.Context, msg relay.Message) relay.Response {
		called <- struct{}{}
		return relay.OK()
	}), time.Second)

	SendAsync(context.Background(), c, relay.Message{Type: relay.TypeOAuthError}, nil)

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}
}

func TestHTTPClient_Send(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, messagesPath, r.URL.Path)

		var msg relay.Message
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		assert.Equal(t, "abc123", msg.Code)
		assert.Equal(t, 5, msg.Sender.TabID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/", time.Second)
	resp, err := c.Send(context.Background(), relay.Message{
		Type:   relay.TypeOAuthSuccess,
		Code:   "abc123",
		State:  "xyz",
		Sender: &relay.Sender{TabID: 5},
	})
	require.NoError(t, err)
	assert.True(t, resp.Succeeded())
}

func TestHTTPClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, time.Second).Send(context.Background(), relay.Message{Type: relay.TypeGetMemories})
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTPClient(srv.URL, 30*time.Millisecond).Send(context.Background(), relay.Message{Type: relay.TypeGetMemories})
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestHTTPClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second).Send(context.Background(), relay.Message{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoResponse)
	assert.Contains(t, err.Error(), "400")
}

func TestHTTPClient_Listen(t *testing.T) {
	hub := events.NewHub()
	mux := http.NewServeMux()
	mux.Handle(eventsPath, events.NewHandler(hub, nil))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := NewHTTPClient(srv.URL, time.Second).Listen(ctx, events.RoleListener)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Count(events.RoleListener) == 1 }, time.Second, 10*time.Millisecond)
	hub.Broadcast(events.New(events.TypeOAuthErrorCallback, map[string]any{"error": "denied"}))

	select {
	case ev := <-ch:
		assert.Equal(t, events.TypeOAuthErrorCallback, ev.Type)
		assert.Equal(t, "denied", ev.Fields["error"])
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
