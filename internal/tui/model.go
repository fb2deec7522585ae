package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/trestle/internal/dnd"
	"github.com/hylla/trestle/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	LoadGrid(context.Context) (*domain.Grid, error)
	SaveLayout(context.Context, *domain.Grid) error
	AddRow(context.Context, string) (domain.Row, error)
	AddColumn(context.Context, string) (domain.Column, error)
	AddElement(context.Context, string, int, int) (domain.Element, error)
	RenameElement(context.Context, int, string) (domain.Element, error)
	DeleteElement(context.Context, int) error
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeAddElement
	modeRenameElement
	modeAddRow
	modeAddColumn
	modeHelp
)

// dragSource records which sensor opened the current drag.
type dragSource int

const (
	sourceNone dragSource = iota
	sourceMouse
	sourceKeyboard
)

func (s dragSource) String() string {
	switch s {
	case sourceMouse:
		return "mouse"
	case sourceKeyboard:
		return "keyboard"
	default:
		return "none"
	}
}

// press is an armed mouse press that has not crossed the drag threshold yet.
type press struct {
	target  dnd.Target
	originX int
	originY int
	bounds  box
}

// Model represents model data used by this package.
type Model struct {
	svc  Service
	ctrl *dnd.Controller

	ready  bool
	width  int
	height int
	err    error
	status string

	help  help.Model
	keys  keyMap
	mode  inputMode
	input textinput.Model
	// inputTarget is the element being renamed or the cell receiving a new element.
	inputTarget dnd.Target

	focus   dnd.Target
	press   *press
	source  dragSource
	dragged box
	pointer *dnd.Point

	dragThreshold int
	showHelpBar   bool
	showRegions   bool
	newSessionID  func() string
	copyText      func(string) error
	logger        Logger
	// dragLog tags events of the open drag with its session id.
	dragLog  Logger
	markdown *markdownRenderer
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	grid *domain.Grid
	err  error
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err    error
	status string
	reload bool
	focus  dnd.Target
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	input := textinput.New()
	input.CharLimit = 80
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		input:         input,
		dragThreshold: 1,
		showHelpBar:   true,
		newSessionID:  func() string { return "" },
		copyText:      defaultClipboard,
		markdown:      &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	m.ctrl = dnd.NewController(nil, m.newSessionID)
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.abortDrag()
		_ = m.ctrl.SetGrid(msg.grid)
		m.clampFocus()
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			logWarn(m.logger, "grid action failed", "err", msg.err)
			return m, m.loadData
		}
		if msg.status != "" {
			m.status = msg.status
		}
		if !msg.focus.IsZero() {
			m.focus = msg.focus
		}
		if msg.reload {
			return m, m.loadData
		}
		return m, nil

	case tea.KeyPressMsg:
		switch {
		case m.mode == modeHelp:
			return m.handleHelpKey(msg)
		case m.mode != modeNone:
			return m.handleInputModeKey(msg)
		case m.ctrl.Dragging():
			return m.handleDragKey(msg)
		}
		return m.handleNormalModeKey(msg)

	case tea.MouseClickMsg:
		return m.handleMouseClick(msg)

	case tea.MouseMotionMsg:
		return m.handleMouseMotion(msg)

	case tea.MouseReleaseMsg:
		return m.handleMouseRelease(msg)

	default:
		return m, nil
	}
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	grid, err := m.svc.LoadGrid(context.Background())
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{grid: grid}
}

// layout runs a layout pass over the grid as it is right now.
func (m Model) layout() gridLayout {
	return computeLayout(m.ctrl.Grid(), m.width)
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.mode = modeHelp
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadData
	case key.Matches(msg, m.keys.moveLeft):
		m.moveFocus(-1, 0)
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.moveFocus(1, 0)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.moveFocus(0, -1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.moveFocus(0, 1)
		return m, nil
	case key.Matches(msg, m.keys.pickUp):
		if m.focus.Kind() == dnd.KindCell || m.focus.IsZero() {
			m.status = "focus an element, row or column to pick it up"
			return m, nil
		}
		if err := m.startDrag(m.focus, sourceKeyboard); err != nil {
			m.status = "pick up failed: " + err.Error()
			return m, nil
		}
		m.tick()
		return m, nil
	case key.Matches(msg, m.keys.newElement):
		cell, ok := m.focusedCell()
		if !ok {
			m.status = "focus a cell to add an element"
			return m, nil
		}
		return m, m.startInput(modeAddElement, "new element: ", "", cell)
	case key.Matches(msg, m.keys.rename):
		elem, ok := m.focusedElement()
		if !ok {
			m.status = "focus an element to rename it"
			return m, nil
		}
		return m, m.startInput(modeRenameElement, "rename: ", elem.Name, dnd.ElementTarget(elem.ID))
	case key.Matches(msg, m.keys.delete):
		elem, ok := m.focusedElement()
		if !ok {
			m.status = "focus an element to delete it"
			return m, nil
		}
		m.status = "deleting " + elem.Name
		return m, m.deleteElement(elem)
	case key.Matches(msg, m.keys.addRow):
		return m, m.startInput(modeAddRow, "new row: ", "", dnd.Target{})
	case key.Matches(msg, m.keys.addColumn):
		return m, m.startInput(modeAddColumn, "new column: ", "", dnd.Target{})
	case key.Matches(msg, m.keys.copyName):
		name := m.label(m.focus)
		if name == "" {
			m.status = "nothing to copy"
			return m, nil
		}
		if err := m.copyText(name); err != nil {
			m.status = "copy failed: " + err.Error()
			return m, nil
		}
		m.status = "copied " + name
		return m, nil
	default:
		return m, nil
	}
}

// handleDragKey handles keys while a drag is open. Keyboard drags move the
// dragged rectangle; mouse drags only accept cancel and quit.
func (m Model) handleDragKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.cancelDrag()
		return m, tea.Quit
	case key.Matches(msg, m.keys.cancel):
		m.cancelDrag()
		return m, nil
	}
	if m.source != sourceKeyboard {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.drop):
		return m.endDrag()
	case key.Matches(msg, m.keys.moveLeft):
		m.nudge(-1, 0)
	case key.Matches(msg, m.keys.moveRight):
		m.nudge(1, 0)
	case key.Matches(msg, m.keys.moveUp):
		m.nudge(0, -1)
	case key.Matches(msg, m.keys.moveDown):
		m.nudge(0, 1)
	}
	return m, nil
}

// handleHelpKey handles keys while the help overlay is open.
func (m Model) handleHelpKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp), key.Matches(msg, m.keys.cancel):
		m.mode = modeNone
	}
	return m, nil
}

// handleInputModeKey handles input mode key.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.stopInput()
		m.status = "cancelled"
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.input.Value())
		if name == "" {
			m.status = "name is required"
			return m, nil
		}
		mode, target := m.mode, m.inputTarget
		m.stopInput()
		m.status = "saving..."
		return m, m.submitInput(mode, target, name)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startInput opens the name prompt.
func (m *Model) startInput(mode inputMode, prompt, value string, target dnd.Target) tea.Cmd {
	m.mode = mode
	m.inputTarget = target
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

// stopInput closes the name prompt.
func (m *Model) stopInput() {
	m.mode = modeNone
	m.inputTarget = dnd.Target{}
	m.input.Blur()
	m.input.SetValue("")
}

// submitInput persists the prompt's value.
func (m Model) submitInput(mode inputMode, target dnd.Target, name string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		switch mode {
		case modeAddElement:
			elem, err := svc.AddElement(ctx, name, target.ColumnID(), target.RowID())
			if err != nil {
				return actionMsg{err: fmt.Errorf("add element: %w", err)}
			}
			return actionMsg{status: "added " + elem.Name, reload: true, focus: dnd.ElementTarget(elem.ID)}
		case modeRenameElement:
			elem, err := svc.RenameElement(ctx, target.ElementID(), name)
			if err != nil {
				return actionMsg{err: fmt.Errorf("rename element: %w", err)}
			}
			return actionMsg{status: "renamed " + elem.Name, reload: true}
		case modeAddRow:
			row, err := svc.AddRow(ctx, name)
			if err != nil {
				return actionMsg{err: fmt.Errorf("add row: %w", err)}
			}
			return actionMsg{status: "added row " + row.Name, reload: true, focus: dnd.RowTarget(row.ID)}
		case modeAddColumn:
			col, err := svc.AddColumn(ctx, name)
			if err != nil {
				return actionMsg{err: fmt.Errorf("add column: %w", err)}
			}
			return actionMsg{status: "added column " + col.Name, reload: true, focus: dnd.ColumnTarget(col.ID)}
		default:
			return actionMsg{}
		}
	}
}

// deleteElement deletes one element.
func (m Model) deleteElement(elem domain.Element) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.DeleteElement(context.Background(), elem.ID); err != nil {
			return actionMsg{err: fmt.Errorf("delete element: %w", err)}
		}
		return actionMsg{status: "deleted " + elem.Name, reload: true, focus: dnd.CellTarget(elem.ColumnID, elem.RowID)}
	}
}

// saveLayout persists the committed grid.
func (m Model) saveLayout(grid *domain.Grid) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.SaveLayout(context.Background(), grid); err != nil {
			return actionMsg{err: fmt.Errorf("save layout: %w", err)}
		}
		return actionMsg{}
	}
}

// handleMouseClick arms a drag on a handle or element and focuses whatever was hit.
func (m Model) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	if m.mode != modeNone || msg.Button != tea.MouseLeft || m.ctrl.Dragging() {
		return m, nil
	}
	l := m.layout()
	target, ok := l.hit(msg.X, msg.Y)
	if !ok {
		m.press = nil
		return m, nil
	}
	m.focus = target
	if target.Kind() == dnd.KindCell {
		m.press = nil
		return m, nil
	}
	bounds, _ := l.bounds(target)
	m.press = &press{target: target, originX: msg.X, originY: msg.Y, bounds: bounds}
	return m, nil
}

// handleMouseMotion starts the drag once the threshold is crossed and ticks it on every move.
func (m Model) handleMouseMotion(msg tea.MouseMotionMsg) (tea.Model, tea.Cmd) {
	if m.press == nil {
		return m, nil
	}
	dx, dy := msg.X-m.press.originX, msg.Y-m.press.originY
	if !m.ctrl.Dragging() {
		if max(iabs(dx), iabs(dy)) < m.dragThreshold {
			return m, nil
		}
		if err := m.startDrag(m.press.target, sourceMouse); err != nil {
			m.press = nil
			m.status = "drag failed: " + err.Error()
			return m, nil
		}
	}
	m.followPointer(msg.X, msg.Y)
	m.tick()
	return m, nil
}

// handleMouseRelease drops a mouse drag, or disarms a press that never moved far enough.
func (m Model) handleMouseRelease(msg tea.MouseReleaseMsg) (tea.Model, tea.Cmd) {
	armed := m.press != nil
	if !armed || m.source != sourceMouse || !m.ctrl.Dragging() {
		m.press = nil
		return m, nil
	}
	m.followPointer(msg.X, msg.Y)
	return m.endDrag()
}

// followPointer moves the dragged rectangle with the pointer.
func (m *Model) followPointer(x, y int) {
	m.dragged = box{
		x: m.press.bounds.x + x - m.press.originX,
		y: m.press.bounds.y + y - m.press.originY,
		w: m.press.bounds.w,
		h: m.press.bounds.h,
	}
	m.pointer = &dnd.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5}
}

// nudge moves a keyboard-dragged rectangle one step. Rows only travel
// vertically and columns only horizontally.
func (m *Model) nudge(dx, dy int) {
	active, ok := m.ctrl.Active()
	if !ok {
		return
	}
	l := m.layout()
	switch active.Kind() {
	case dnd.KindRow:
		dx = 0
		dy *= m.dragged.h
	case dnd.KindColumn:
		dy = 0
		dx *= l.columnWidth
	default:
		dx *= l.columnWidth
	}
	if dx == 0 && dy == 0 {
		return
	}
	m.dragged.x += dx
	m.dragged.y += dy
	m.tick()
}

// startDrag opens a controller session for target.
func (m *Model) startDrag(target dnd.Target, source dragSource) error {
	if err := m.ctrl.Start(target.String()); err != nil {
		return err
	}
	m.source = source
	m.pointer = nil
	if b, ok := m.layout().bounds(target); ok {
		m.dragged = b
	}
	m.status = "dragging " + m.label(target)
	if m.logger != nil {
		m.dragLog = m.logger.With("session", m.ctrl.Session().ID)
	}
	logDebug(m.dragLog, "drag started", "active", target.String(), "source", source.String())
	return nil
}

// tick resolves one drag-over tick against a fresh layout pass.
func (m *Model) tick() {
	l := m.layout()
	over, ok := m.ctrl.Move(dnd.Args{
		Regions: l.regions,
		Pointer: m.pointer,
		Dragged: m.dragged.rect(),
	})
	if ok {
		m.status = fmt.Sprintf("dragging %s over %s", m.label(m.activeTarget()), over)
	}
}

// endDrag resolves the drop tick and persists the committed layout.
func (m Model) endDrag() (tea.Model, tea.Cmd) {
	l := m.layout()
	log := m.dragLog
	out, err := m.ctrl.End(dnd.Args{
		Regions: l.regions,
		Pointer: m.pointer,
		Dragged: m.dragged.rect(),
	})
	m.resetDrag()
	if err != nil {
		m.status = "drop failed: " + err.Error()
		logWarn(log, "drag commit failed", "err", err)
		return m, nil
	}
	m.focus = out.Active
	if out.Over.IsZero() {
		m.status = "dropped outside the grid"
		logDebug(log, "drag dropped without target", "active", out.Active.String())
		return m, nil
	}
	if !out.Changed {
		m.status = "no change"
		return m, nil
	}
	m.status = fmt.Sprintf("%s: %s", out.Kind, m.label(out.Active))
	logDebug(log, "drag committed", "outcome", out.Kind.String(), "active", out.Active.String(), "over", out.Over.String())
	return m, m.saveLayout(m.ctrl.Grid().Clone())
}

// cancelDrag restores the pre-drag grid.
func (m *Model) cancelDrag() {
	if !m.ctrl.Dragging() {
		return
	}
	log := m.dragLog
	m.ctrl.Cancel()
	m.resetDrag()
	m.status = "drag cancelled"
	logDebug(log, "drag cancelled")
}

// abortDrag drops any drag state without a status update.
func (m *Model) abortDrag() {
	m.ctrl.Cancel()
	m.resetDrag()
}

func (m *Model) resetDrag() {
	m.press = nil
	m.source = sourceNone
	m.pointer = nil
	m.dragged = box{}
	m.dragLog = nil
}

func (m Model) activeTarget() dnd.Target {
	active, _ := m.ctrl.Active()
	return active
}

// moveFocus moves focus to the nearest target in a direction.
func (m *Model) moveFocus(dx, dy int) {
	if next, ok := m.layout().step(m.focus, dx, dy); ok {
		m.focus = next
	}
}

// clampFocus keeps focus on a target that still exists.
func (m *Model) clampFocus() {
	l := m.layout()
	if _, ok := l.bounds(m.focus); ok {
		return
	}
	m.focus = dnd.Target{}
	for _, t := range l.targets {
		if t.Kind() == dnd.KindElement {
			m.focus = t
			return
		}
	}
	if len(l.targets) > 0 {
		m.focus = l.targets[0]
	}
}

// focusedCell returns the focused cell, or the cell of the focused element.
func (m Model) focusedCell() (dnd.Target, bool) {
	switch m.focus.Kind() {
	case dnd.KindCell:
		return m.focus, true
	case dnd.KindElement:
		if elem, ok := m.ctrl.Grid().Element(m.focus.ElementID()); ok {
			return dnd.CellTarget(elem.ColumnID, elem.RowID), true
		}
	}
	return dnd.Target{}, false
}

func (m Model) focusedElement() (domain.Element, bool) {
	if m.focus.Kind() != dnd.KindElement {
		return domain.Element{}, false
	}
	return m.ctrl.Grid().Element(m.focus.ElementID())
}

// label returns the display name of t.
func (m Model) label(t dnd.Target) string {
	g := m.ctrl.Grid()
	switch t.Kind() {
	case dnd.KindRow:
		if row, ok := g.Row(t.RowID()); ok {
			return row.Name
		}
	case dnd.KindColumn:
		if col, ok := g.Column(t.ColumnID()); ok {
			return col.Name
		}
	case dnd.KindCell:
		col, okC := g.Column(t.ColumnID())
		row, okR := g.Row(t.RowID())
		if okC && okR {
			return col.Name + " / " + row.Name
		}
	case dnd.KindElement:
		if elem, ok := g.Element(t.ElementID()); ok {
			return elem.Name
		}
	}
	return ""
}

func logDebug(l Logger, msg string, keyvals ...any) {
	if l != nil {
		l.Debug(msg, keyvals...)
	}
}

func logWarn(l Logger, msg string, keyvals ...any) {
	if l != nil {
		l.Warn(msg, keyvals...)
	}
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.MouseMode = tea.MouseModeCellMotion
		v.AltScreen = true
		return v
	}

	content := m.renderGrid()
	footer := []string{m.renderStatus()}
	if m.mode != modeNone && m.mode != modeHelp {
		footer = append(footer, m.input.View())
	}
	if m.showHelpBar {
		helpBubble := m.help
		helpBubble.ShowAll = false
		helpBubble.SetWidth(max(0, m.width-2))
		footer = append(footer, lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			BorderTop(true).
			BorderForeground(lipgloss.Color("239")).
			Render(helpBubble.View(m.keys)))
	}
	fullContent := content + "\n" + strings.Join(footer, "\n")
	if m.mode == modeHelp {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, m.renderHelpOverlay(), max(1, m.width), max(1, overlayHeight))
	}

	v := tea.NewView(fullContent)
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}
