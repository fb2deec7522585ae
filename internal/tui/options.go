package tui

import "github.com/atotto/clipboard"

// Logger receives drag lifecycle events. The command's runtime logger satisfies it.
type Logger interface {
	Debug(msg string, keyvals ...any)
	Warn(msg string, keyvals ...any)
	// With returns a logger that adds keyvals to every event.
	With(keyvals ...any) Logger
}

type Option func(*Model)

// WithLogger routes drag events to logger.
func WithLogger(logger Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

// WithDragThreshold sets how many cells the pointer travels before a press becomes a drag.
func WithDragThreshold(cells int) Option {
	return func(m *Model) {
		if cells >= 0 {
			m.dragThreshold = cells
		}
	}
}

// WithShowHelp toggles the help bar below the grid.
func WithShowHelp(show bool) Option {
	return func(m *Model) {
		m.showHelpBar = show
	}
}

// WithShowRegions shows the registered region count and hovered target id in the header.
func WithShowRegions(show bool) Option {
	return func(m *Model) {
		m.showRegions = show
	}
}

// WithSessionIDs names drag sessions. The default leaves them blank.
func WithSessionIDs(newID func() string) Option {
	return func(m *Model) {
		if newID != nil {
			m.newSessionID = newID
		}
	}
}

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

func defaultClipboard(text string) error {
	return clipboard.WriteAll(text)
}
