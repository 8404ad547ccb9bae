package main

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Tab      key.Binding
	Path     key.Binding
	Select   key.Binding
	Toggle   key.Binding
	FindPath key.Binding
	Pan      key.Binding
	Layouts  key.Binding
	Save     key.Binding
	Clear    key.Binding
	Zoom     key.Binding
	Retry    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "graph/nodes"),
	),
	Path: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "find path"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "add to selection"),
	),
	FindPath: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "path between selected"),
	),
	Pan: key.NewBinding(
		key.WithKeys("up", "down", "left", "right"),
		key.WithHelp("←↑↓→", "pan"),
	),
	Layouts: key.NewBinding(
		key.WithKeys("f", "h", "c", "r", "g", "k"),
		key.WithHelp("f/h/c/r/g/k", "layout"),
	),
	Save: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "save layout"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc", "x"),
		key.WithHelp("esc/x", "clear"),
	),
	Zoom: key.NewBinding(
		key.WithKeys("+", "=", "-", "0"),
		key.WithHelp("+/-/0", "zoom"),
	),
	Retry: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "retry load"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Layouts, k.Path, k.Save, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.Select, k.Toggle, k.FindPath},
		{k.Pan, k.Zoom, k.Clear},
		{k.Layouts, k.Save, k.Path},
		{k.Retry, k.Quit},
	}
}

// controllerKey translates a bubbletea key name into the name the
// interaction controller expects
func controllerKey(s string) string {
	if s == "esc" {
		return "Escape"
	}
	return s
}
