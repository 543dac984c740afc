package tui

import (
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Key binds one or more bubbletea key names to an action.
type Key struct {
	Keys []string
	Help string
}

func bind(help string, keys ...string) Key {
	return Key{Keys: keys, Help: help}
}

// Matches reports whether msg is one of the bound keys.
func (k Key) Matches(msg tea.KeyMsg) bool {
	return slices.Contains(k.Keys, msg.String())
}

// moduleKey opens a console module.
type moduleKey struct {
	Key
	module Module
}

// KeyMap holds every binding the console reacts to.
type KeyMap struct {
	Up       Key
	Down     Key
	PageUp   Key
	PageDown Key
	Home     Key
	Select   Key
	Back     Key
	Quit     Key
	Help     Key

	// Function keys, in status bar order.
	modules []moduleKey
	exit    Key
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       bind("arriba", "up", "k"),
		Down:     bind("abajo", "down", "j"),
		PageUp:   bind("página anterior", "pgup", "ctrl+u"),
		PageDown: bind("página siguiente", "pgdown", "ctrl+d"),
		Home:     bind("inicio", "home", "g"),
		Select:   bind("seleccionar", "enter"),
		Back:     bind("volver", "esc", "backspace"),
		Quit:     bind("salir", "q", "ctrl+c"),
		Help:     bind("ayuda", "?"),

		modules: []moduleKey{
			{bind("Ayuda", "f1"), ModuleHelp},
			{bind("Panel", "f2"), ModuleDashboard},
			{bind("Órdenes", "f3"), ModuleWorkOrders},
			{bind("Inventario", "f4"), ModuleInventory},
			{bind("Pañol", "f5"), ModuleToolCrib},
			{bind("Actividad", "f6"), ModuleActivity},
		},
		exit: bind("Salir", "f10"),
	}
}

// IsQuit reports whether msg closes the console.
func (km KeyMap) IsQuit(msg tea.KeyMsg) bool {
	return km.Quit.Matches(msg) || km.exit.Matches(msg)
}

// IsFunctionKey reports whether msg opens a module.
func (km KeyMap) IsFunctionKey(msg tea.KeyMsg) bool {
	return km.ModuleFor(msg) != ""
}

// ModuleFor returns the module msg opens, or "" for other keys. The help
// key opens the help module like F1.
func (km KeyMap) ModuleFor(msg tea.KeyMsg) Module {
	if km.Help.Matches(msg) {
		return ModuleHelp
	}
	for _, mk := range km.modules {
		if mk.Matches(msg) {
			return mk.module
		}
	}
	return ""
}

// StatusBarHelp lists the function keys, e.g. "[F1]Ayuda [F2]Panel".
func (km KeyMap) StatusBarHelp() string {
	parts := make([]string, 0, len(km.modules)+1)
	for _, mk := range km.modules {
		parts = append(parts, "["+strings.ToUpper(mk.Keys[0])+"]"+mk.Help)
	}
	parts = append(parts, "["+strings.ToUpper(km.exit.Keys[0])+"]"+km.exit.Help)
	return strings.Join(parts, " ")
}
