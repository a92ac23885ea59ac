package cli

import "github.com/charmbracelet/bubbles/key"

type gymKeyMap struct {
	CheckIn  key.Binding
	CheckOut key.Binding
	Abandon  key.Binding
	Edit     key.Binding
	Select   key.Binding
	Delete   key.Binding
	Refresh  key.Binding
	Up       key.Binding
	Down     key.Binding
	Quit     key.Binding
}

func defaultGymKeyMap() gymKeyMap {
	return gymKeyMap{
		CheckIn:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "check in")),
		CheckOut: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "check out")),
		Abandon:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "abandon")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Select:   key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "select")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete selected")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Up:       key.NewBinding(key.WithKeys("up", "k")),
		Down:     key.NewBinding(key.WithKeys("down", "j")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// hints returns the bindings shown in the footer for the current mode.
func (k gymKeyMap) hints(editing, active bool) []key.Binding {
	if editing {
		return []key.Binding{k.Select, k.Delete, k.Edit, k.Quit}
	}
	if active {
		return []key.Binding{k.CheckOut, k.Abandon, k.Refresh, k.Edit, k.Quit}
	}
	return []key.Binding{k.CheckIn, k.Refresh, k.Edit, k.Quit}
}
