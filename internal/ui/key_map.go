package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the dashboard.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	views      key.Binding
	search     key.Binding
	prevLetter key.Binding
	nextLetter key.Binding
	author     key.Binding
	cover      key.Binding
	progress   key.Binding
	sort       key.Binding
	reload     key.Binding
	remove     key.Binding
	accept     key.Binding
	back       key.Binding
	yes        key.Binding
	no         key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		views:      key.NewBinding(key.WithKeys("1", "2", "3", "4"), key.WithHelp("1-4", "view")),
		search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		prevLetter: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev letter")),
		nextLetter: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next letter")),
		author:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "author")),
		cover:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "with cover")),
		progress:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "in progress")),
		sort:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		remove:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		accept:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		yes:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:         key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.views, k.search, k.sort, k.remove, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.views},
		{k.search, k.author, k.prevLetter, k.nextLetter},
		{k.cover, k.progress, k.sort},
		{k.reload, k.remove, k.quit},
	}
}
