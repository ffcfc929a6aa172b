package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/mqtt-tools/hivemq-tui/internal/browser"
)

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Back     key.Binding
	New      key.Binding
	Save     key.Binding
	Delete   key.Binding
	Confirm  key.Binding
	Cancel   key.Binding
	Filter   key.Binding
	Copy     key.Binding
	Reload   key.Binding
	Refresh  key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	ViewMode key.Binding
	Scroll   key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Confirm:  key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("y/enter", "confirm")),
		Cancel:   key.NewBinding(key.WithKeys("esc", "n"), key.WithHelp("esc", "cancel")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Copy:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Refresh:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "refresh item")),
		NextTab:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next resource")),
		PrevTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev resource")),
		ViewMode: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "json/yaml")),
		Scroll:   key.NewBinding(key.WithKeys("pgup", "pgdown"), key.WithHelp("↑↓/pgup/pgdn", "scroll")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// modeHelp is the help.KeyMap shown for one input mode.
type modeHelp []key.Binding

func (h modeHelp) ShortHelp() []key.Binding { return h }

func (h modeHelp) FullHelp() [][]key.Binding { return [][]key.Binding{h} }

func (k keyMap) help(mode browser.InputMode, popup browser.Popup) modeHelp {
	switch mode {
	case browser.ModeEditor:
		return modeHelp{k.Save, k.Back, k.Quit}
	case browser.ModeViewer:
		return modeHelp{k.Scroll, k.ViewMode, k.Copy, k.Refresh, k.Back, k.Quit}
	case browser.ModeFilterInput:
		return modeHelp{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "apply")),
			k.Back,
		}
	case browser.ModePopup:
		if _, ok := popup.(browser.DeleteConfirm); ok {
			return modeHelp{k.Confirm, k.Cancel}
		}
		return modeHelp{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "dismiss")),
			k.Back,
		}
	}
	return modeHelp{k.NextTab, k.Up, k.Down, k.Open, k.New, k.Delete, k.Filter, k.Copy, k.Reload, k.ViewMode, k.Quit}
}
