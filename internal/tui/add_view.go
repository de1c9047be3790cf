package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// SaveMemoryMsg carries a memory typed into the add view.
type SaveMemoryMsg struct {
	Content  string
	Category string
}

// BackToListMsg closes the add view.
type BackToListMsg struct{}

// AddMemoryView prompts for a memory and an optional category
type AddMemoryView struct {
	content  textinput.Model
	category textinput.Model
	status   string
}

// NewAddMemoryView creates the add view with the content field focused.
func NewAddMemoryView() AddMemoryView {
	content := textinput.New()
	content.Placeholder = "What should I remember?"
	content.Focus()
	content.Width = 60

	category := textinput.New()
	category.Placeholder = "General"
	category.Width = 30

	return AddMemoryView{content: content, category: category}
}

// Init initializes the add view
func (m AddMemoryView) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages for the add view
func (m AddMemoryView) Update(msg tea.Msg) (AddMemoryView, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			return m, func() tea.Msg { return BackToListMsg{} }
		case "tab", "shift+tab":
			if m.content.Focused() {
				m.content.Blur()
				return m, m.category.Focus()
			}
			m.category.Blur()
			return m, m.content.Focus()
		case "enter":
			content := strings.TrimSpace(m.content.Value())
			if content == "" {
				m.status = "Please enter something to remember"
				return m, nil
			}
			save := SaveMemoryMsg{Content: content, Category: strings.TrimSpace(m.category.Value())}
			return m, func() tea.Msg { return save }
		}
	}

	var cmd tea.Cmd
	if m.content.Focused() {
		m.content, cmd = m.content.Update(msg)
	} else {
		m.category, cmd = m.category.Update(msg)
	}
	return m, cmd
}

// View renders the add view
func (m AddMemoryView) View() string {
	var b strings.Builder
	b.WriteString(editHeaderStyle.Render("New memory"))
	b.WriteString("\n\n")
	b.WriteString(m.content.View())
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Category: %s", m.category.View()))
	b.WriteString("\n\n")
	if m.status != "" {
		b.WriteString(statusMessageStyle(m.status))
		b.WriteString("\n\n")
	}
	b.WriteString(helpStyle.Render("enter to save · tab to switch field · esc to cancel"))
	return b.String()
}
