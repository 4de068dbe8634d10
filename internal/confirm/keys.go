package confirm

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the prompt bindings.
type KeyMap struct {
	Yes  key.Binding
	No   key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the y/n/q bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
			key.WithHelp("y", "delete"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "enter"),
			key.WithHelp("n", "skip"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "esc", "ctrl+c"),
			key.WithHelp("q", "stop"),
		),
	}
}
