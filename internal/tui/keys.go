package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type binding struct {
	key.Binding
}

func (b binding) Matches(msg tea.KeyMsg) bool {
	return key.Matches(msg, b.Binding)
}

type keyMap struct {
	Enroll binding
	Verify binding
	Reset  binding
	Finish binding
	Quit   binding
}

func newKeyMap() keyMap {
	return keyMap{
		Enroll: binding{key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "record"))},
		Verify: binding{key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verify"))},
		Reset:  binding{key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "reset"))},
		Finish: binding{key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "finish early"))},
		Quit:   binding{key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit"))},
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enroll.Binding, k.Verify.Binding, k.Reset.Binding, k.Finish.Binding, k.Quit.Binding}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
