package tui

import (
	"github.com/brizzai/recall/internal/memories"
	"github.com/brizzai/recall/internal/tui/models"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// listKeyMap holds key bindings for the list actions.
type listKeyMap struct {
	add     key.Binding
	refresh key.Binding
	signIn  key.Binding
	quit    key.Binding
}

// newListKeyMap creates a new listKeyMap with default bindings.
func newListKeyMap() *listKeyMap {
	return &listKeyMap{
		add: key.NewBinding(
			key.WithKeys("a", "A"),
			key.WithHelp("a", "Add memory"),
		),
		refresh: key.NewBinding(
			key.WithKeys("r", "R"),
			key.WithHelp("r", "Refresh"),
		),
		signIn: key.NewBinding(
			key.WithKeys("s", "S"),
			key.WithHelp("s", "Finish sign-in"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
	}
}

// AddMemoryMsg asks the app to open the add view.
type AddMemoryMsg struct{}

// RefreshMsg asks the app to reload memories and sign-in status.
type RefreshMsg struct{}

// CompleteSignInMsg asks the app to finish the pending sign-in.
type CompleteSignInMsg struct{}

// MemoriesModel lists saved memories
type MemoriesModel struct {
	list list.Model
	keys *listKeyMap
}

// NewMemoriesModel creates the list page.
func NewMemoriesModel() MemoriesModel {
	keys := newListKeyMap()

	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = titleStyle.Render("Memories")
	l.SetShowFilter(true)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.add, keys.refresh, keys.signIn}
	}
	return MemoriesModel{list: l, keys: keys}
}

// Init returns the initial command for the list model.
func (m MemoriesModel) Init() tea.Cmd {
	return nil
}

// SetMemories replaces the list contents, keeping append order.
func (m *MemoriesModel) SetMemories(list []memories.Memory) tea.Cmd {
	return m.list.SetItems(toItems(list))
}

// Append adds one memory at the end.
func (m *MemoriesModel) Append(mem memories.Memory) tea.Cmd {
	return m.list.InsertItem(len(m.list.Items()), models.MemoryItem{Memory: mem})
}

// Len is the number of memories shown, ignoring the filter.
func (m MemoriesModel) Len() int {
	return len(m.list.Items())
}

// StatusMessage shows a transient line under the title.
func (m *MemoriesModel) StatusMessage(s string) tea.Cmd {
	return m.list.NewStatusMessage(s)
}

func (m MemoriesModel) filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Update handles messages for the list page
func (m MemoriesModel) Update(msg tea.Msg) (MemoriesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.add):
			return m, func() tea.Msg { return AddMemoryMsg{} }
		case key.Matches(msg, m.keys.refresh):
			return m, func() tea.Msg { return RefreshMsg{} }
		case key.Matches(msg, m.keys.signIn):
			return m, func() tea.Msg { return CompleteSignInMsg{} }
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the list
func (m MemoriesModel) View() string {
	return m.list.View()
}

func toItems(list []memories.Memory) []list.Item {
	items := make([]list.Item, len(list))
	for i, mem := range list {
		items[i] = models.MemoryItem{Memory: mem}
	}
	return items
}
