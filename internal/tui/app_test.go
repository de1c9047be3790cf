package tui

import (
	"context"
	"testing"
	"time"

	"github.com/brizzai/recall/internal/config"
	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/memories"
	"github.com/brizzai/recall/internal/messaging"
	"github.com/brizzai/recall/internal/models"
	"github.com/brizzai/recall/internal/relay"
	"github.com/brizzai/recall/internal/storage"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSurface struct{}

func (nopSurface) CloseTab(context.Context, int) error    { return nil }
func (nopSurface) Present(context.Context) error          { return nil }
func (nopSurface) OpenPage(context.Context, string) error { return nil }

type stubCompleter struct {
	state string
}

func (s *stubCompleter) Complete(_ context.Context, state string) (*models.AuthSession, error) {
	s.state = state
	return &models.AuthSession{Provider: models.ProviderGitHub, UserID: "42", Login: "octocat"}, nil
}

func newTestApp(t *testing.T, opts ...Option) (AppModel, *storage.MemoryStore, *stubCompleter) {
	t.Helper()
	store := storage.NewMemory()
	completer := &stubCompleter{}
	r := relay.New(relay.Params{
		Config:   &config.Config{Relay: config.RelayConfig{PresentDelay: time.Hour}},
		Store:    store,
		Memories: memories.NewService(store),
		Hub:      events.NewHub(),
		Surface:  nopSurface{},
		SignIn:   completer,
	})
	m := NewAppModel(messaging.NewLocalClient(r, time.Second), opts...)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(AppModel), store, completer
}

// step feeds msg to m and returns the new model and command.
func step(t *testing.T, m AppModel, msg tea.Msg) (AppModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	app, ok := next.(AppModel)
	require.True(t, ok)
	return app, cmd
}

func TestApp_LoadsMemories(t *testing.T) {
	m, store, _ := newTestApp(t)
	svc := memories.NewService(store)
	_, err := svc.Save(context.Background(), memories.SaveInput{Content: "first"})
	require.NoError(t, err)
	_, err = svc.Save(context.Background(), memories.SaveInput{Content: "second"})
	require.NoError(t, err)

	m, _ = step(t, m, loadMemories(m.client)())
	assert.Equal(t, 2, m.Memories())
	assert.Contains(t, m.View(), "Not signed in")
}

func TestApp_AddMemory(t *testing.T) {
	m, store, _ := newTestApp(t)

	m, _ = step(t, m, AddMemoryMsg{})
	assert.Equal(t, pageAdd, m.page)

	m, cmd := step(t, m, SaveMemoryMsg{Content: "buy milk", Category: "Errands"})
	require.NotNil(t, cmd)
	saved, ok := cmd().(memorySavedMsg)
	require.True(t, ok)
	require.NoError(t, saved.err)
	assert.Equal(t, "Errands", saved.memory.Category)
	assert.Equal(t, "popup", saved.memory.Source)

	m, _ = step(t, m, saved)
	assert.Equal(t, pageList, m.page)
	assert.Equal(t, 1, m.Memories())

	list, err := memories.NewService(store).List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "buy milk", list[0].Content)
}

func TestApp_CompletesPendingSignIn(t *testing.T) {
	m, store, completer := newTestApp(t, WithExpectedState("xyz"))

	m, cmd := step(t, m, CompleteSignInMsg{})
	assert.NotNil(t, cmd, "no pending sign-in should show a status message")

	require.NoError(t, storage.SetJSON(context.Background(), store, storage.KeyPendingOAuth, models.PendingAuthPayload{
		Type: models.PendingAuthTypeSuccess, Code: "abc", State: "xyz", Provider: models.ProviderGitHub,
	}))
	m, _ = step(t, m, loadSignInStatus(m.client)())
	require.NotNil(t, m.pending)
	assert.Contains(t, m.View(), "press s to finish")

	m, cmd = step(t, m, CompleteSignInMsg{})
	require.NotNil(t, cmd)
	done, ok := cmd().(signInCompletedMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, "xyz", completer.state)

	m, _ = step(t, m, done)
	require.NotNil(t, m.Session())
	assert.Contains(t, m.View(), "Signed in with github as octocat")
}

func TestApp_ShowsAuthErrorEvents(t *testing.T) {
	ch := make(chan events.Event, 1)
	m, _, _ := newTestApp(t, WithEvents(ch))

	ch <- events.New(events.TypeOAuthErrorCallback, map[string]any{"error": "access_denied"})
	msg := waitForEvent(m.events)()

	m, next := step(t, m, msg)
	assert.NotNil(t, next)
	assert.Contains(t, m.View(), "Sign-in error: access_denied")

	close(ch)
	m, next = step(t, m, waitForEvent(m.events)())
	assert.Nil(t, next)
	assert.Nil(t, m.events)
}

func TestApp_RelayError(t *testing.T) {
	m := NewAppModel(downClient{})
	m, _ = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})

	m, _ = step(t, m, loadMemories(m.client)())
	assert.Contains(t, m.View(), "Relay error")
}

type downClient struct{}

func (downClient) Send(context.Context, relay.Message) (relay.Response, error) {
	return nil, messaging.ErrNoResponse
}

func TestAddMemoryView_RequiresContent(t *testing.T) {
	v := NewAddMemoryView()

	v, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Contains(t, v.View(), "Please enter something to remember")

	v, _ = v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hello")})
	v, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SaveMemoryMsg{Content: "hello"}, cmd())
}
