package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Search     key.Binding
	Ordering   key.Binding
	Reverse    key.Binding
	Completed  key.Binding
	Upcoming   key.Binding
	Limit      key.Binding
	PrevPage   key.Binding
	NextPage   key.Binding
	Add        key.Binding
	Edit       key.Binding
	Toggle     key.Binding
	Delete     key.Binding
	SwitchPane key.Binding
	NewFolder  key.Binding
	Rename     key.Binding
	DropFolder key.Binding
	CopyYAML   key.Binding
	CopyPrompt key.Binding
	Import     key.Binding
	Reload     key.Binding
	Logout     key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Ordering:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "order by")),
		Reverse:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reverse")),
		Completed:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "completed")),
		Upcoming:   key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upcoming")),
		Limit:      key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "page size")),
		PrevPage:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev page")),
		NextPage:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next page")),
		Add:        key.NewBinding(key.WithKeys("a", "n"), key.WithHelp("a/n", "add")),
		Edit:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Toggle:     key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "toggle")),
		Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		SwitchPane: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "folders/tasks")),
		NewFolder:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new folder")),
		Rename:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rename folder")),
		DropFolder: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete folder")),
		CopyYAML:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy yaml")),
		CopyPrompt: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "copy prompt")),
		Import:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import yaml")),
		Reload:     key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
		Logout:     key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) short() []key.Binding {
	return []key.Binding{k.Add, k.Edit, k.Toggle, k.Delete, k.Search, k.SwitchPane}
}

func (k keyMap) full() []key.Binding {
	return []key.Binding{
		k.Ordering, k.Reverse, k.Completed, k.Upcoming, k.Limit, k.PrevPage, k.NextPage,
		k.NewFolder, k.Rename, k.DropFolder, k.CopyYAML, k.CopyPrompt, k.Import, k.Reload, k.Logout, k.Quit,
	}
}
