// Package filepicker implements a bubbletea component for choosing a request file
// from the directory tree.
package filepicker

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.followtheprocess.codes/httprun/internal/tui/theme"
)

// Extensions are the file extensions that may be picked.
var Extensions = []string{".http", ".rest"}

// How long a "not a request file" message is shown for.
const errorTimeout = 2 * time.Second

// KeyMap is the picker's key bindings, the help bar at the bottom is built from it.
type KeyMap struct {
	filepicker.KeyMap

	Hidden key.Binding // Toggle hidden files
	Quit   key.Binding // Give up without picking
}

// DefaultKeyMap returns the default [KeyMap], vim style motions plus the arrow keys.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		KeyMap: filepicker.KeyMap{
			GoToTop:  key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "first")),
			GoToLast: key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "last")),
			Down:     key.NewBinding(key.WithKeys("j", "down", "ctrl+n"), key.WithHelp("↓/j", "down")),
			Up:       key.NewBinding(key.WithKeys("k", "up", "ctrl+p"), key.WithHelp("↑/k", "up")),
			PageUp:   key.NewBinding(key.WithKeys("K", "pgup"), key.WithHelp("pgup", "page up")),
			PageDown: key.NewBinding(key.WithKeys("J", "pgdown"), key.WithHelp("pgdown", "page down")),
			Back:     key.NewBinding(key.WithKeys("h", "backspace", "left"), key.WithHelp("h/←", "parent")),
			Open:     key.NewBinding(key.WithKeys("l", "right", "enter"), key.WithHelp("l/→", "open")),
			Select:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "pick")),
		},
		Hidden: key.NewBinding(key.WithKeys("."), key.WithHelp(".", "hidden files")),
		Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements [help.KeyMap].
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Back, k.Select, k.Quit}
}

// FullHelp implements [help.KeyMap].
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back, k.Open, k.Select},
		{k.GoToTop, k.GoToLast, k.PageUp, k.PageDown},
		{k.Hidden, k.Quit},
	}
}

// Model is the file picker tea Model.
type Model struct {
	err      error            // Shown instead of the title until it times out
	styles   theme.Styles     // Styles for the header
	keys     KeyMap           // Key bindings
	selected string           // Path of the picked file, empty until one is picked
	help     help.Model       // Help bar
	fp       filepicker.Model // The underlying bubbles picker
	done     bool             // Set once the picker is finished, picked or not
}

// New returns a new [Model] starting in dir.
func New(dir string, styles theme.Styles) Model {
	keys := DefaultKeyMap()

	fp := filepicker.New()
	fp.AllowedTypes = Extensions
	fp.CurrentDirectory = dir
	fp.KeyMap = keys.KeyMap
	fp.AutoHeight = false
	fp.Styles.Cursor = styles.Cursor
	fp.Styles.Directory = styles.Directory
	fp.Styles.File = styles.File
	fp.Styles.DisabledFile = styles.Disabled
	fp.Styles.Selected = styles.SelectedTitle

	return Model{
		fp:     fp,
		help:   help.New(),
		keys:   keys,
		styles: styles,
	}
}

// Selected returns the picked file and whether one was picked at all.
func (m Model) Selected() (string, bool) {
	return m.selected, m.selected != ""
}

// errorExpired clears the error once it has been shown for long enough.
type errorExpired struct{}

// Init implements [tea.Model], reading the starting directory.
func (m Model) Init() tea.Cmd {
	return m.fp.Init()
}

// Update implements [tea.Model].
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.selected = ""
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Hidden):
			// Re-reading the directory is the only way to refresh the listing
			m.fp.ShowHidden = !m.fp.ShowHidden
			return m, m.fp.Init()
		}
	case tea.WindowSizeMsg:
		// Leave room for the header and the help bar
		m.fp.SetHeight(max(msg.Height-4, 1))
		m.help.Width = msg.Width
	case errorExpired:
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.fp, cmd = m.fp.Update(msg)

	if ok, path := m.fp.DidSelectDisabledFile(msg); ok {
		m.err = fmt.Errorf("%s is not a request file, expected one of %v", path, Extensions)
		expire := tea.Tick(errorTimeout, func(time.Time) tea.Msg { return errorExpired{} })
		return m, tea.Batch(cmd, expire)
	}

	if ok, path := m.fp.DidSelectFile(msg); ok {
		m.selected = path
		m.done = true
		return m, tea.Quit
	}

	return m, cmd
}

// View implements [tea.Model].
func (m Model) View() string {
	if m.done {
		return ""
	}

	header := m.styles.Title.Render("Pick a request file") + " " + m.styles.Directory.Render(m.fp.CurrentDirectory)
	if m.err != nil {
		header = m.styles.Error.Render(m.err.Error())
	}

	return lipgloss.JoinVertical(lipgloss.Left, "", header, m.fp.View(), m.help.View(m.keys))
}
