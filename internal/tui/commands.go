package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/memories"
	"github.com/brizzai/recall/internal/messaging"
	"github.com/brizzai/recall/internal/models"
	"github.com/brizzai/recall/internal/relay"
	tea "github.com/charmbracelet/bubbletea"
)

const requestTimeout = 5 * time.Second

type memoriesLoadedMsg struct {
	memories []memories.Memory
	err      error
}

type memorySavedMsg struct {
	memory memories.Memory
	err    error
}

type signInStatusMsg struct {
	session *models.AuthSession
	pending *models.PendingAuthPayload
	err     error
}

type signInCompletedMsg struct {
	session *models.AuthSession
	err     error
}

// relayEventMsg wraps an event pushed by the relay.
type relayEventMsg struct {
	event events.Event
	ok    bool
}

func send(client messaging.Client, msg relay.Message) (relay.Response, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	resp, err := client.Send(ctx, msg)
	if err != nil {
		return nil, err
	}
	if e := resp.ErrorMessage(); e != "" {
		return nil, fmt.Errorf("%s", e)
	}
	return resp, nil
}

func loadMemories(client messaging.Client) tea.Cmd {
	return func() tea.Msg {
		resp, err := send(client, relay.Message{Type: relay.TypeGetMemories})
		if err != nil {
			return memoriesLoadedMsg{err: err}
		}
		var list []memories.Memory
		_, err = resp.Decode("memories", &list)
		return memoriesLoadedMsg{memories: list, err: err}
	}
}

func saveMemory(client messaging.Client, content, category string) tea.Cmd {
	return func() tea.Msg {
		resp, err := send(client, relay.Message{
			Type:     relay.TypeSaveMemory,
			Content:  content,
			Category: category,
			Source:   "popup",
		})
		if err != nil {
			return memorySavedMsg{err: err}
		}
		var mem memories.Memory
		_, err = resp.Decode("memory", &mem)
		return memorySavedMsg{memory: mem, err: err}
	}
}

func loadSignInStatus(client messaging.Client) tea.Cmd {
	return func() tea.Msg {
		var out signInStatusMsg

		resp, err := send(client, relay.Message{Type: relay.TypeGetAuthSession})
		if err != nil {
			return signInStatusMsg{err: err}
		}
		var session models.AuthSession
		if found, err := resp.Decode("session", &session); err != nil {
			return signInStatusMsg{err: err}
		} else if found {
			out.session = &session
		}

		resp, err = send(client, relay.Message{Type: relay.TypeGetPendingOAuth})
		if err != nil {
			return signInStatusMsg{err: err}
		}
		var pending models.PendingAuthPayload
		if found, err := resp.Decode("pending", &pending); err != nil {
			return signInStatusMsg{err: err}
		} else if found {
			out.pending = &pending
		}
		return out
	}
}

func completeSignIn(client messaging.Client, state string) tea.Cmd {
	return func() tea.Msg {
		resp, err := send(client, relay.Message{Type: relay.TypeCompleteOAuth, State: state})
		if err != nil {
			return signInCompletedMsg{err: err}
		}
		var session models.AuthSession
		if _, err := resp.Decode("session", &session); err != nil {
			return signInCompletedMsg{err: err}
		}
		return signInCompletedMsg{session: &session}
	}
}

// waitForEvent blocks on the next relay event. A closed channel ends the
// stream.
func waitForEvent(ch <-chan events.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		return relayEventMsg{event: ev, ok: ok}
	}
}
