// Package tui is the terminal popup: it lists memories, adds new ones and
// finishes a pending sign-in, talking to the relay like any other context.
package tui

import (
	"fmt"
	"strings"

	"github.com/brizzai/recall/internal/events"
	"github.com/brizzai/recall/internal/messaging"
	"github.com/brizzai/recall/internal/models"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	pageList = "list"
	pageAdd  = "add"
)

// AppModel is the main application model that manages page switching
type AppModel struct {
	client  messaging.Client
	events  <-chan events.Event
	state   string
	list    MemoriesModel
	addView AddMemoryView
	page    string

	session *models.AuthSession
	pending *models.PendingAuthPayload
	authErr string
	err     error
	width   int
}

// Option configures an AppModel.
type Option func(*AppModel)

// WithEvents feeds relay events (sign-in errors) into the popup.
func WithEvents(ch <-chan events.Event) Option {
	return func(m *AppModel) { m.events = ch }
}

// WithExpectedState checks the pending sign-in against the state the popup
// started it with.
func WithExpectedState(state string) Option {
	return func(m *AppModel) { m.state = state }
}

// NewAppModel creates the popup bound to client.
func NewAppModel(client messaging.Client, opts ...Option) AppModel {
	m := AppModel{
		client:  client,
		list:    NewMemoriesModel(),
		addView: NewAddMemoryView(),
		page:    pageList,
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init loads memories and sign-in status
func (m AppModel) Init() tea.Cmd {
	return tea.Batch(
		loadMemories(m.client),
		loadSignInStatus(m.client),
		waitForEvent(m.events),
	)
}

// Update handles app-level messages and delegates to the active page
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case memoriesLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		return m, m.list.SetMemories(msg.memories)

	case memorySavedMsg:
		if msg.err != nil {
			m.page = pageList
			return m, m.list.StatusMessage(statusMessageStyle(fmt.Sprintf("Could not save: %v", msg.err)))
		}
		m.page = pageList
		m.addView = NewAddMemoryView()
		return m, tea.Batch(
			m.list.Append(msg.memory),
			m.list.StatusMessage(completeMessageStyle("Saved")),
		)

	case signInStatusMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.session, m.pending = msg.session, msg.pending
		return m, nil

	case signInCompletedMsg:
		if msg.err != nil {
			m.authErr = msg.err.Error()
			return m, nil
		}
		m.authErr = ""
		m.session = msg.session
		return m, m.list.StatusMessage(completeMessageStyle("Signed in"))

	case relayEventMsg:
		if !msg.ok {
			m.events = nil
			return m, nil
		}
		if msg.event.Type == events.TypeOAuthErrorCallback {
			e, _ := msg.event.Fields["error"].(string)
			m.authErr = e
		}
		return m, waitForEvent(m.events)

	case AddMemoryMsg:
		m.page = pageAdd
		return m, m.addView.Init()

	case BackToListMsg:
		m.page = pageList
		return m, nil

	case SaveMemoryMsg:
		return m, saveMemory(m.client, msg.Content, msg.Category)

	case RefreshMsg:
		return m, tea.Batch(loadMemories(m.client), loadSignInStatus(m.client))

	case CompleteSignInMsg:
		if m.pending == nil {
			return m, m.list.StatusMessage(statusMessageStyle("No sign-in waiting"))
		}
		return m, completeSignIn(m.client, m.state)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.page {
	case pageAdd:
		m.addView, cmd = m.addView.Update(msg)
	default:
		m.list, cmd = m.list.Update(msg)
	}
	return m, cmd
}

// View renders the active page under the sign-in banner
func (m AppModel) View() string {
	var body string
	switch m.page {
	case pageAdd:
		body = m.addView.View()
	default:
		body = m.list.View()
	}
	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, m.banner(), "", body))
}

func (m AppModel) banner() string {
	var parts []string
	switch {
	case m.session != nil:
		who := m.session.Email
		if who == "" {
			who = m.session.Login
		}
		if who == "" {
			who = m.session.UserID
		}
		parts = append(parts, completeMessageStyle(fmt.Sprintf("Signed in with %s as %s", m.session.Provider, who)))
	case m.pending != nil:
		parts = append(parts, statusMessageStyle(fmt.Sprintf("%s sign-in received, press s to finish", m.pending.Provider)))
	default:
		parts = append(parts, helpStyle.Render("Not signed in"))
	}
	if m.authErr != "" {
		parts = append(parts, statusMessageStyle("Sign-in error: "+m.authErr))
	}
	if m.err != nil {
		parts = append(parts, statusMessageStyle("Relay error: "+m.err.Error()))
	}
	return strings.Join(parts, "\n")
}

// Session returns the signed-in profile, if any.
func (m AppModel) Session() *models.AuthSession {
	return m.session
}

// Memories is the number of memories listed.
func (m AppModel) Memories() int {
	return m.list.Len()
}
