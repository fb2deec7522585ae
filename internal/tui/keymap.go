package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds user overrides for the drag bindings. Blank fields keep the defaults.
type KeyConfig struct {
	PickUp     string
	Drop       string
	Cancel     string
	NewElement string
	Rename     string
	Delete     string
	Copy       string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit       key.Binding
	reload     key.Binding
	toggleHelp key.Binding
	moveLeft   key.Binding
	moveRight  key.Binding
	moveUp     key.Binding
	moveDown   key.Binding
	pickUp     key.Binding
	drop       key.Binding
	cancel     key.Binding
	newElement key.Binding
	rename     key.Binding
	delete     key.Binding
	addRow     key.Binding
	addColumn  key.Binding
	copyName   key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:   key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "left")),
		moveRight:  key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "right")),
		moveUp:     key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:   key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		pickUp:     key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "pick up")),
		drop:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop")),
		cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel drag")),
		newElement: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new element")),
		rename:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "rename element")),
		delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete element")),
		addRow:     key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "add row")),
		addColumn:  key.NewBinding(key.WithKeys("C", "shift+c"), key.WithHelp("C", "add column")),
		copyName:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy name")),
	}
}

// applyConfig applies configured overrides on top of the defaults.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.pickUp, cfg.PickUp, "space", "pick up")
	configureBinding(&k.drop, cfg.Drop, "enter", "drop")
	configureBinding(&k.cancel, cfg.Cancel, "esc", "cancel drag")
	configureBinding(&k.newElement, cfg.NewElement, "n", "new element")
	configureBinding(&k.rename, cfg.Rename, "e", "rename element")
	configureBinding(&k.delete, cfg.Delete, "d", "delete element")
	configureBinding(&k.copyName, cfg.Copy, "y", "copy name")
}

// configureBinding rebinds b to raw, or to fallback when raw is blank.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys returns key matchers and the help label for one configured key.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + strings.ToLower(raw)}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.pickUp, k.drop, k.cancel, k.newElement, k.rename, k.delete, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown},
		{k.pickUp, k.drop, k.cancel},
		{k.newElement, k.rename, k.delete, k.addRow, k.addColumn, k.copyName},
		{k.toggleHelp, k.reload, k.quit},
	}
}
