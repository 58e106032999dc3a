// Package list implements a simple bubbletea list component to pick one of a number of items,
// e.g. a request block or an environment.
package list

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"go.followtheprocess.codes/httprun/internal/tui/theme"
)

// Item is a single entry in the list.
type Item = list.DefaultItem

// Model is the list tea Model.
type Model struct {
	l        list.Model // The base list bubble
	selected int        // Index of the picked item, -1 if nothing was picked
}

// New returns a new [Model] showing items.
func New(title string, items []Item, styles theme.Styles) Model {
	listItems := make([]list.Item, 0, len(items))
	for _, item := range items {
		listItems = append(listItems, item)
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.NormalTitle = styles.NormalTitle
	delegate.Styles.NormalDesc = styles.NormalDesc
	delegate.Styles.SelectedTitle = styles.SelectedTitle
	delegate.Styles.SelectedDesc = styles.SelectedDesc

	l := list.New(listItems, delegate, 0, 0)
	l.Title = title
	l.Styles.Title = styles.Title

	return Model{
		l:        l,
		selected: -1,
	}
}

// Init helps implement [tea.Model] for [Model].
func (m Model) Init() tea.Cmd {
	return nil
}

// Update updates the UI in response to messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Let the list handle keys while the user is typing a filter
		if m.l.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.selected = -1
			return m, tea.Quit
		case "enter":
			if m.l.SelectedItem() != nil {
				m.selected = m.l.GlobalIndex()
			}

			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.l.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd

	m.l, cmd = m.l.Update(msg)

	return m, cmd
}

// View renders the UI to the user.
func (m Model) View() string {
	return m.l.View()
}

// Selected returns the index of the picked item and whether one was picked at all.
func (m Model) Selected() (int, bool) {
	return m.selected, m.selected >= 0
}
