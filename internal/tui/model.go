package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	sigyaml "sigs.k8s.io/yaml"

	"github.com/mqtt-tools/hivemq-tui/internal/browser"
	"github.com/mqtt-tools/hivemq-tui/pkg/logger"
)

// ─── Detail view mode ─────────────────────────────────────────────────────────

type detailViewMode int

const (
	viewModeJSON detailViewMode = iota
	viewModeYAML
)

func (m detailViewMode) String() string {
	if m == viewModeYAML {
		return "YAML"
	}
	return "JSON"
}

func (m detailViewMode) next() detailViewMode {
	return (m + 1) % 2
}

// ─── Tabs / messages ──────────────────────────────────────────────────────────

// Tab is one browsable resource.
type Tab struct {
	Title      string
	Controller *browser.Controller
}

type tab struct {
	Tab
	started  bool
	offset   int    // first visible list row
	detailID string // id rendered in the detail pane
}

// actionMsg carries a task completion back to the controller of tab.
type actionMsg struct {
	tab    int
	action browser.Action
}

// Options configures the model.
type Options struct {
	Context  context.Context // passed to background tasks
	Endpoint string          // shown in the header
	Logger   *logger.Logger
}

// ─── Model ────────────────────────────────────────────────────────────────────

// Model is the Bubble Tea application model. Every tab owns a browser
// controller; the model translates keys into controller actions and runs the
// returned tasks as commands.
type Model struct {
	ctx      context.Context
	log      *logger.Logger
	endpoint string

	width, height int

	tabs   []*tab
	active int
	mode   browser.InputMode

	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	editor      textarea.Model
	filterInput textinput.Model
	viewport    viewport.Model

	detailViewMode detailViewMode
	detailContent  string // syntax-colored document of the selected item
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// New creates a model over tabs. The first tab starts loading on Init.
func New(tabs []Tab, opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	fi := textinput.New()
	fi.Placeholder = "pattern..."
	fi.Prompt = "/ "
	fi.Width = 40

	ed := textarea.New()
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.Placeholder = `{"id": "..."}`

	sp := spinner.New(spinner.WithSpinner(spinner.Spinner{
		Frames: spinnerFrames,
		FPS:    100 * time.Millisecond,
	}))

	h := help.New()
	h.Styles.ShortKey = styleHelpKey
	h.Styles.ShortDesc = styleHelpDesc
	h.Styles.ShortSeparator = styleHelpDesc

	vp := viewport.New(60, 20)
	vp.Style = lipgloss.NewStyle()

	m := Model{
		ctx:         ctx,
		log:         log,
		endpoint:    opts.Endpoint,
		keys:        defaultKeyMap(),
		help:        h,
		spinner:     sp,
		editor:      ed,
		filterInput: fi,
		viewport:    vp,
	}
	for _, t := range tabs {
		m.tabs = append(m.tabs, &tab{Tab: t})
	}
	return m
}

// ─── Init ─────────────────────────────────────────────────────────────────────

// Init implements tea.Model. It starts loading the first tab.
func (m Model) Init() tea.Cmd {
	if len(m.tabs) == 0 {
		return nil
	}
	return tea.Batch(textinput.Blink, m.start(m.active))
}

// ─── Update ───────────────────────────────────────────────────────────────────

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case actionMsg:
		cmds = append(cmds, m.dispatch(msg.tab, msg.action))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case tea.KeyMsg:
		// Global quit always wins.
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if len(m.tabs) > 0 {
			cmds = append(cmds, m.handleKey(msg))
		}

	default:
		// Cursor blink and other widget-internal messages.
		switch m.mode {
		case browser.ModeEditor:
			var cmd tea.Cmd
			m.editor, cmd = m.editor.Update(msg)
			cmds = append(cmds, cmd)
		case browser.ModeFilterInput:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

// dispatch hands a to the controller of tab idx and turns the resulting
// effects into commands.
func (m *Model) dispatch(idx int, a browser.Action) tea.Cmd {
	if idx < 0 || idx >= len(m.tabs) {
		return nil
	}
	t := m.tabs[idx]
	eff := t.Controller.Handle(a)

	cmds := []tea.Cmd{m.runTasks(idx, eff.Tasks)}
	if len(eff.Tasks) > 0 {
		cmds = append(cmds, m.spinner.Tick)
	}
	if idx == m.active {
		cmds = append(cmds, m.enterMode(eff.Mode))
		m.refreshDetail()
	}
	return tea.Batch(cmds...)
}

func (m Model) runTasks(idx int, tasks []browser.Task) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(tasks))
	ctx := m.ctx
	for _, task := range tasks {
		task := task
		cmds = append(cmds, func() tea.Msg {
			return actionMsg{tab: idx, action: task(ctx)}
		})
	}
	return tea.Batch(cmds...)
}

// start loads tab idx the first time it is shown.
func (m *Model) start(idx int) tea.Cmd {
	t := m.tabs[idx]
	if t.started {
		return nil
	}
	t.started = true
	m.log.Debug(m.ctx, "Opening resource tab", logger.Fields{"resource": t.Controller.Name()})
	return m.dispatch(idx, browser.LoadAllItems{})
}

// enterMode moves keyboard focus to the widget of mode.
func (m *Model) enterMode(mode browser.InputMode) tea.Cmd {
	if mode == m.mode {
		return nil
	}
	switch m.mode {
	case browser.ModeEditor:
		m.editor.Blur()
	case browser.ModeFilterInput:
		m.filterInput.Blur()
	}
	m.mode = mode

	v, _ := m.currentView()
	switch mode {
	case browser.ModeEditor:
		if ed, ok := v.Focus.(browser.Editing); ok {
			m.editor.SetValue(ed.Buffer)
		}
		return m.editor.Focus()
	case browser.ModeFilterInput:
		if p, ok := v.Popup.(browser.FilterPopup); ok {
			m.filterInput.SetValue(p.Input)
			m.filterInput.CursorEnd()
		}
		return m.filterInput.Focus()
	}
	return nil
}

func (m Model) currentView() (browser.View, bool) {
	if len(m.tabs) == 0 {
		return browser.View{}, false
	}
	st, ok := m.tabs[m.active].Controller.State().(browser.Loaded)
	if !ok {
		return browser.View{}, false
	}
	return st.View, true
}

// busy reports whether the active tab waits on the network.
func (m Model) busy() bool {
	if len(m.tabs) == 0 {
		return false
	}
	c := m.tabs[m.active].Controller
	if _, loading := c.State().(browser.Loading); loading {
		return true
	}
	return c.Busy()
}

// ─── Key handlers ─────────────────────────────────────────────────────────────

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	c := m.tabs[m.active].Controller
	switch c.State().(type) {
	case browser.Loading:
		return m.handleTabKey(msg)
	case browser.Errored:
		if key.Matches(msg, m.keys.Reload) {
			return m.dispatch(m.active, browser.LoadAllItems{})
		}
		return m.handleTabKey(msg)
	}

	switch m.mode {
	case browser.ModeEditor:
		return m.handleEditorKey(msg)
	case browser.ModeViewer:
		return m.handleViewerKey(msg)
	case browser.ModeFilterInput:
		return m.handleFilterKey(msg)
	case browser.ModePopup:
		return m.handlePopupKey(msg)
	}
	return m.handleNavigateKey(msg)
}

func (m *Model) handleTabKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab(+1)
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab(-1)
	}
	return nil
}

func (m *Model) handleNavigateKey(msg tea.KeyMsg) tea.Cmd {
	var a browser.Action
	switch {
	case key.Matches(msg, m.keys.NextTab), key.Matches(msg, m.keys.PrevTab):
		return m.handleTabKey(msg)
	case key.Matches(msg, m.keys.Up):
		a = browser.PrevItem{}
	case key.Matches(msg, m.keys.Down):
		a = browser.NextItem{}
	case key.Matches(msg, m.keys.Open):
		a = browser.Enter{}
	case key.Matches(msg, m.keys.Back):
		a = browser.Escape{}
	case key.Matches(msg, m.keys.New):
		a = browser.NewItem{}
	case key.Matches(msg, m.keys.Delete):
		a = browser.Delete{}
	case key.Matches(msg, m.keys.Filter):
		a = browser.Filter{}
	case key.Matches(msg, m.keys.Copy):
		a = browser.Copy{}
	case key.Matches(msg, m.keys.Reload):
		a = browser.LoadAllItems{}
	case key.Matches(msg, m.keys.Refresh):
		a = browser.Refresh{}
	case key.Matches(msg, m.keys.ViewMode):
		m.cycleDetailViewMode()
		return nil
	default:
		return nil
	}
	return m.dispatch(m.active, a)
}

func (m *Model) handleEditorKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Save):
		return m.dispatch(m.active, browser.Submit{})
	case key.Matches(msg, m.keys.Back):
		return m.dispatch(m.active, browser.Escape{})
	}
	v, _ := m.currentView()
	if ed, ok := v.Focus.(browser.Editing); ok && ed.Saving {
		return nil
	}
	before := m.editor.Value()
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	if after := m.editor.Value(); after != before {
		return tea.Batch(cmd, m.dispatch(m.active, browser.SetBuffer{Text: after}))
	}
	return cmd
}

func (m *Model) handleViewerKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m.dispatch(m.active, browser.Escape{})
	case key.Matches(msg, m.keys.Copy):
		return m.dispatch(m.active, browser.Copy{})
	case key.Matches(msg, m.keys.Refresh), key.Matches(msg, m.keys.Reload):
		return m.dispatch(m.active, browser.Refresh{})
	case key.Matches(msg, m.keys.ViewMode):
		m.cycleDetailViewMode()
		return nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type { //nolint:exhaustive
	case tea.KeyEnter:
		set := m.dispatch(m.active, browser.SetFilterInput{Text: m.filterInput.Value()})
		return tea.Batch(set, m.dispatch(m.active, browser.ConfirmPopup{}))
	case tea.KeyEscape:
		return m.dispatch(m.active, browser.ClosePopup{})
	}
	before := m.filterInput.Value()
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	if after := m.filterInput.Value(); after != before {
		return tea.Batch(cmd, m.dispatch(m.active, browser.SetFilterInput{Text: after}))
	}
	return cmd
}

func (m *Model) handlePopupKey(msg tea.KeyMsg) tea.Cmd {
	v, _ := m.currentView()
	switch v.Popup.(type) {
	case browser.DeleteConfirm:
		switch {
		case key.Matches(msg, m.keys.Confirm):
			return m.dispatch(m.active, browser.ConfirmPopup{})
		case key.Matches(msg, m.keys.Cancel):
			return m.dispatch(m.active, browser.ClosePopup{})
		}
	case browser.ErrorPopup:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEscape {
			return m.dispatch(m.active, browser.ClosePopup{})
		}
	case nil:
		// DetailsError: enter goes back to the editor, esc to the list.
		switch msg.Type { //nolint:exhaustive
		case tea.KeyEnter:
			return m.dispatch(m.active, browser.Enter{})
		case tea.KeyEscape:
			return m.dispatch(m.active, browser.Escape{})
		}
	}
	return nil
}

func (m *Model) switchTab(delta int) tea.Cmd {
	n := len(m.tabs)
	if n < 2 {
		return nil
	}
	m.active = (m.active + delta + n) % n
	var cmds []tea.Cmd
	cmds = append(cmds, m.enterMode(m.tabs[m.active].Controller.Mode()))
	if cmd := m.start(m.active); cmd != nil {
		cmds = append(cmds, cmd)
	}
	m.tabs[m.active].detailID = "\x00"
	m.refreshDetail()
	return tea.Batch(cmds...)
}

// ─── Mouse handler ────────────────────────────────────────────────────────────

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if len(m.tabs) == 0 || m.mode == browser.ModePopup || m.mode == browser.ModeFilterInput {
		return nil
	}
	overList := msg.X < m.listWidth()

	switch msg.Button { //nolint:exhaustive
	case tea.MouseButtonWheelUp:
		if overList && m.mode == browser.ModeNavigate {
			return m.dispatch(m.active, browser.PrevItem{})
		}
		m.viewport.ScrollUp(3)
	case tea.MouseButtonWheelDown:
		if overList && m.mode == browser.ModeNavigate {
			return m.dispatch(m.active, browser.NextItem{})
		}
		m.viewport.ScrollDown(3)
	}
	return nil
}

// ─── Detail / layout helpers ──────────────────────────────────────────────────

// cycleDetailViewMode advances the view mode and refreshes the viewport.
func (m *Model) cycleDetailViewMode() {
	m.detailViewMode = m.detailViewMode.next()
	m.tabs[m.active].detailID = "\x00"
	m.refreshDetail()
}

// refreshDetail re-renders the selected item and keeps the list cursor in
// view. The viewport only jumps to the top when the selection changed.
func (m *Model) refreshDetail() {
	t := m.tabs[m.active]
	v, ok := m.currentView()

	id := ""
	if ok {
		id = v.SelectedID()
		if ed, editing := v.Focus.(browser.Editing); editing && ed.IsNew() {
			id = ""
		}
		m.keepSelectionVisible(t, v.Selected())
	}

	content := ""
	if id != "" {
		item, found, err := t.Controller.Item(id)
		switch {
		case err != nil:
			m.log.Warn(m.ctx, "Reading cached item failed", logger.Fields{"id": id, "error": err.Error()})
			content = styleErrMsg.Render(err.Error())
		case found:
			content = renderDocument(item.Document, m.detailViewMode)
		}
	}
	m.detailContent = content
	m.viewport.SetContent(content)
	if id != t.detailID {
		m.viewport.GotoTop()
		t.detailID = id
	}
}

func (m *Model) keepSelectionVisible(t *tab, selected int) {
	rows := m.listRows()
	switch {
	case selected < 0:
		t.offset = 0
	case selected < t.offset:
		t.offset = selected
	case selected >= t.offset+rows:
		t.offset = selected - rows + 1
	}
}

// renderDocument pretty-prints and colors a JSON document in mode.
func renderDocument(doc []byte, mode detailViewMode) string {
	if mode == viewModeYAML {
		if y, err := sigyaml.JSONToYAML(doc); err == nil {
			return colorizeYAML(string(y))
		}
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, doc, "", "  "); err != nil {
		return string(doc)
	}
	return colorizeJSON(buf.String())
}

func (m Model) listWidth() int {
	return int(float64(m.width) * 0.40)
}

// bodyHeight is the height of the list and detail panels: the screen minus
// the header and help rows.
func (m Model) bodyHeight() int {
	h := m.height - 2
	if h < 5 {
		h = 5
	}
	return h
}

// listRows is the number of item rows the list panel shows: border(2) +
// title(1) + filter(1).
func (m Model) listRows() int {
	rows := m.bodyHeight() - 4
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) resize() {
	rightW := m.width - m.listWidth()
	bodyH := m.bodyHeight()

	// border(2) + title(1) + status(1)
	m.viewport.Width = rightW - 4
	m.viewport.Height = bodyH - 4
	if m.viewport.Height < 1 {
		m.viewport.Height = 1
	}
	m.editor.SetWidth(rightW - 4)
	m.editor.SetHeight(m.viewport.Height)
	m.help.Width = m.width
	m.viewport.SetContent(m.detailContent)
	if len(m.tabs) > 0 {
		if v, ok := m.currentView(); ok {
			m.keepSelectionVisible(m.tabs[m.active], v.Selected())
		}
	}
}
