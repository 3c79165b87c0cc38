package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PrevDay key.Binding
	NextDay key.Binding
	Today   key.Binding
	Up      key.Binding
	Down    key.Binding
	Reload  key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		PrevDay: key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "previous day")),
		NextDay: key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "next day")),
		Today:   key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "today")),
		Up:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "previous item")),
		Down:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "next item")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PrevDay, k.NextDay, k.Today, k.Reload, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PrevDay, k.NextDay, k.Today},
		{k.Up, k.Down, k.Reload},
		{k.Help, k.Quit},
	}
}
