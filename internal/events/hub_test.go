package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSON(t *testing.T) {
	ev := New(TypeOAuthErrorCallback, map[string]any{"error": "access_denied"})

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"OAUTH_ERROR_CALLBACK","error":"access_denied"}`, string(data))

	var back Event
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TypeOAuthErrorCallback, back.Type)
	assert.Equal(t, "access_denied", back.Fields["error"])
}

func TestHub_BroadcastAndSend(t *testing.T) {
	hub := NewHub()
	listener := hub.Subscribe("")
	shell := hub.Subscribe(RoleShell)
	defer listener.Close()
	defer shell.Close()

	assert.Equal(t, RoleListener, listener.Role())
	assert.Equal(t, 2, hub.Count(""))
	assert.Equal(t, 1, hub.Count(RoleShell))

	n := hub.Broadcast(New(TypeOAuthErrorCallback, nil))
	assert.Equal(t, 2, n)
	assert.Equal(t, TypeOAuthErrorCallback, (<-listener.C()).Type)
	assert.Equal(t, TypeOAuthErrorCallback, (<-shell.C()).Type)

	n = hub.Send(RoleShell, New(TypePresentPopup, nil))
	assert.Equal(t, 1, n)
	assert.Equal(t, TypePresentPopup, (<-shell.C()).Type)

	select {
	case ev := <-listener.C():
		t.Fatalf("listener should not receive shell command, got %s", ev.Type)
	default:
	}
}

func TestHub_NoSubscribers(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.Send(RoleShell, New(TypePresentPopup, nil)))
}

func TestHub_SlowSubscriberDrops(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(RoleListener)
	defer sub.Close()

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, hub.Broadcast(New("X", nil)))
	}
	assert.Equal(t, 0, hub.Broadcast(New("X", nil)))
}

func TestSubscription_CloseTwice(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe(RoleListener)
	sub.Close()
	sub.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Count(""))
}

func TestHandler_StreamsEvents(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?role=shell"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count(RoleShell) == 1 }, time.Second, 10*time.Millisecond)

	hub.Send(RoleShell, New(TypeCloseTab, map[string]any{"tab_id": 7}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, TypeCloseTab, ev.Type)
	assert.EqualValues(t, 7, ev.Fields["tab_id"])

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Count("") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsOrigin(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(NewHandler(hub, func(origin string) bool { return false }))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.Error(t, err)
	assert.Equal(t, 0, hub.Count(""))
}
