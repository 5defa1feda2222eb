// Package viewer implements the side-by-side view of a document's human text
// and the source it maps onto.
package viewer

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/colonyops/phyline/internal/core/diff"
	"github.com/colonyops/phyline/internal/core/highlight"
	"github.com/colonyops/phyline/internal/core/logging"
	"github.com/colonyops/phyline/internal/core/phy"
	"github.com/colonyops/phyline/internal/core/reconcile"
	"github.com/colonyops/phyline/internal/integration/provider"
)

type pane int

const (
	paneHuman pane = iota
	paneSource
	paneDiff
)

func (p pane) side() highlight.Side {
	if p == paneSource {
		return highlight.SideSource
	}
	return highlight.SideHuman
}

func paneFor(s highlight.Side) pane {
	if s == highlight.SideSource {
		return paneSource
	}
	return paneHuman
}

type level int

const (
	levelInfo level = iota
	levelWarn
	levelError
)

const (
	headerHeight = 1
	panelChrome  = 3 // top and bottom border plus the title row
	wheelStep    = 3
)

// Deps are the viewer's collaborators.
type Deps struct {
	Session      *reconcile.Session
	Provider     provider.Provider         // optional, enables reload
	Save         func(source string) error // optional, persists applied source
	SourcePath   string
	DocumentPath string
	Editor       string
	TempDir      string
}

type applyDoneMsg struct {
	res     reconcile.Result
	err     error
	saveErr error
}

type reloadDoneMsg struct {
	doc *phy.Document
	err error
}

type editorDoneMsg struct {
	path string
	err  error
}

// Model is the Bubble Tea model for the viewer.
type Model struct {
	deps Deps
	keys KeyMap
	help help.Model
	log  zerolog.Logger

	width  int
	height int

	focus  pane
	cursor [2]int // 1-based cursor line per text panel
	offset [2]int // first visible line per text panel, 0-based

	hoverPane pane
	hoverLine int // 0 when nothing is hovered

	diffView viewport.Model
	showDiff bool
	summary  string

	applying  bool
	reloading bool

	status      string
	statusLevel level
}

// New creates a viewer over the session in deps.
func New(deps Deps) Model {
	m := Model{
		deps:     deps,
		keys:     defaultKeyMap(),
		help:     help.New(),
		log:      logging.Component("viewer"),
		cursor:   [2]int{1, 1},
		diffView: viewport.New(0, 0),
	}
	m.refresh()
	if err := deps.Session.LastError(); err != nil {
		m.setStatus(levelWarn, "text is not mapped: "+err.Error())
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeDiff()
		m.clampAll()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg), nil

	case applyDoneMsg:
		return m.handleApplyDone(msg)

	case reloadDoneMsg:
		return m.handleReloadDone(msg), nil

	case editorDoneMsg:
		return m.handleEditorDone(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resizeDiff()
		m.clampAll()
		return m, nil

	case key.Matches(msg, m.keys.Focus):
		m.cycleFocus()
		return m, nil

	case key.Matches(msg, m.keys.Diff):
		m.showDiff = !m.showDiff
		if !m.showDiff && m.focus == paneDiff {
			m.focus = paneHuman
		}
		m.resizeDiff()
		m.refresh()
		m.clampAll()
		return m, nil

	case key.Matches(msg, m.keys.Edit):
		return m, m.openEditor()

	case key.Matches(msg, m.keys.Apply):
		return m.startApply()

	case key.Matches(msg, m.keys.Reload):
		return m.startReload()

	case key.Matches(msg, m.keys.Discard):
		m.deps.Session.Edit(m.deps.Session.Saved())
		m.refresh()
		m.clampAll()
		m.setStatus(levelInfo, "edits discarded")
		return m, nil
	}

	if m.focus == paneDiff {
		var cmd tea.Cmd
		m.diffView, cmd = m.diffView.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(m.cursor[m.focus] - 1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(m.cursor[m.focus] + 1)
	case key.Matches(msg, m.keys.Top):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCursor(len(m.lines(m.focus)))
	}

	return m, nil
}

func (m *Model) cycleFocus() {
	switch m.focus {
	case paneHuman:
		m.focus = paneSource
	case paneSource:
		if m.showDiff {
			m.focus = paneDiff
		} else {
			m.focus = paneHuman
		}
	default:
		m.focus = paneHuman
	}
}

// moveCursor moves the focused panel's cursor and projects it like a hover.
func (m *Model) moveCursor(line int) {
	p := m.focus
	n := len(m.lines(p))
	if n == 0 {
		return
	}
	line = min(max(line, 1), n)
	m.cursor[p] = line
	m.reveal(p, line)
	m.project(p, line)
}

// project hovers line on p and scrolls the other panel to the projection.
func (m *Model) project(p pane, line int) {
	m.hoverPane = p
	m.hoverLine = line

	h := m.deps.Session.Hover(line, p.side())
	if h.Empty() {
		return
	}
	m.reveal(paneFor(h.Side), h.Lines[0])
}

func (m *Model) leave() {
	m.hoverLine = 0
	m.deps.Session.Leave()
}

func (m Model) handleMouse(msg tea.MouseMsg) Model {
	p, line, ok := m.hitTest(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp && ok:
		m.scroll(p, -wheelStep)
	case msg.Button == tea.MouseButtonWheelDown && ok:
		m.scroll(p, wheelStep)
	case msg.Action == tea.MouseActionMotion:
		if !ok {
			m.leave()
			return m
		}
		if p != m.hoverPane || line != m.hoverLine {
			m.project(p, line)
		}
	}

	return m
}

// hitTest maps a screen cell to a text panel line.
func (m Model) hitTest(x, y int) (pane, int, bool) {
	top := headerHeight + 2
	row := y - top
	if row < 0 || row >= m.visibleRows() {
		return paneHuman, 0, false
	}

	p := paneHuman
	if left, _ := m.panelWidths(); x >= left {
		p = paneSource
	}

	line := m.offset[p] + row + 1
	if line > len(m.lines(p)) {
		return p, 0, false
	}
	return p, line, true
}

func (m *Model) scroll(p pane, delta int) {
	maxOffset := max(len(m.lines(p))-m.visibleRows(), 0)
	m.offset[p] = min(max(m.offset[p]+delta, 0), maxOffset)
}

// reveal scrolls p so line is visible.
func (m *Model) reveal(p pane, line int) {
	rows := m.visibleRows()
	switch {
	case line-1 < m.offset[p]:
		m.offset[p] = line - 1
	case line-1 >= m.offset[p]+rows:
		m.offset[p] = line - rows
	}
	m.offset[p] = max(m.offset[p], 0)
}

func (m *Model) clampAll() {
	for _, p := range []pane{paneHuman, paneSource} {
		n := len(m.lines(p))
		m.cursor[p] = min(max(m.cursor[p], 1), max(n, 1))
		m.scroll(p, 0)
	}
}

func (m Model) startApply() (tea.Model, tea.Cmd) {
	s := m.deps.Session

	switch {
	case m.applying:
		m.setStatus(levelWarn, reconcile.ErrConcurrentApply.Error())
		return m, nil
	case s.Stale():
		m.setStatus(levelWarn, "source changed since the tree was loaded, press r to reload")
		return m, nil
	case s.State() == reconcile.StateClean:
		m.setStatus(levelInfo, "nothing to apply")
		return m, nil
	}

	m.applying = true
	m.setStatus(levelInfo, "applying "+m.summary+"...")
	m.log.Debug().Str("session_id", s.ID()).Msg("apply requested")

	save := m.deps.Save
	return m, func() tea.Msg {
		ctx := logging.WithDocument(context.Background(), m.deps.DocumentPath)
		res, err := s.Apply(ctx)

		var saveErr error
		if err == nil && res.Changed && save != nil {
			saveErr = save(res.Source)
		}
		return applyDoneMsg{res: res, err: err, saveErr: saveErr}
	}
}

func (m Model) handleApplyDone(msg applyDoneMsg) (tea.Model, tea.Cmd) {
	m.applying = false
	m.refresh()

	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("apply failed")
		m.setStatus(levelError, msg.err.Error())
		if !m.showDiff {
			m.showDiff = true
			m.resizeDiff()
			m.refresh()
		}
		return m, nil
	}

	if msg.saveErr != nil {
		m.setStatus(levelError, "applied but not saved: "+msg.saveErr.Error())
		return m, nil
	}

	m.leave()
	m.clampAll()
	if msg.res.Changed {
		m.setStatus(levelInfo, fmt.Sprintf("applied %d edit(s)", len(msg.res.Edits)))
	} else {
		m.setStatus(levelWarn, "rewriter left the source unchanged")
	}

	if m.deps.Provider != nil {
		return m.startReload()
	}
	return m, nil
}

func (m Model) startReload() (tea.Model, tea.Cmd) {
	s := m.deps.Session

	switch {
	case m.deps.Provider == nil:
		m.setStatus(levelWarn, "no tree provider configured")
		return m, nil
	case m.applying || m.reloading:
		m.setStatus(levelWarn, "busy, try again when the current operation finishes")
		return m, nil
	case s.State() == reconcile.StateDirty && !s.Stale():
		m.setStatus(levelWarn, "unapplied edits, apply or discard (u) before reloading")
		return m, nil
	}

	m.reloading = true
	p, path := m.deps.Provider, m.deps.SourcePath
	return m, func() tea.Msg {
		doc, err := p.Tree(context.Background(), path)
		return reloadDoneMsg{doc: doc, err: err}
	}
}

func (m Model) handleReloadDone(msg reloadDoneMsg) Model {
	m.reloading = false

	if msg.err != nil {
		m.setStatus(levelError, "reload: "+msg.err.Error())
		return m
	}

	if err := m.deps.Session.Reload(msg.doc.Root()); err != nil {
		m.setStatus(levelError, "reload: "+err.Error())
		return m
	}

	m.leave()
	m.cursor = [2]int{1, 1}
	m.offset = [2]int{}
	m.refresh()
	m.setStatus(levelInfo, "tree reloaded")
	return m
}

// openEditor writes the working text to a temporary file and suspends the
// program while the editor runs.
func (m *Model) openEditor() tea.Cmd {
	fields := strings.Fields(m.deps.Editor)
	if len(fields) == 0 {
		m.setStatus(levelWarn, "no editor configured")
		return nil
	}

	f, err := os.CreateTemp(m.deps.TempDir, "phyline-*.txt")
	if err != nil {
		m.setStatus(levelError, "edit: "+err.Error())
		return nil
	}
	path := f.Name()
	_, err = f.WriteString(m.deps.Session.Text())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		m.setStatus(levelError, "edit: "+err.Error())
		return nil
	}

	c := exec.Command(fields[0], append(fields[1:], path)...) //nolint:gosec // editor comes from user config
	return tea.ExecProcess(c, func(err error) tea.Msg {
		return editorDoneMsg{path: path, err: err}
	})
}

func (m Model) handleEditorDone(msg editorDoneMsg) Model {
	defer func() { _ = os.Remove(msg.path) }()

	if msg.err != nil {
		m.setStatus(levelError, "editor: "+msg.err.Error())
		return m
	}

	data, err := os.ReadFile(msg.path)
	if err != nil {
		m.setStatus(levelError, "edit: "+err.Error())
		return m
	}

	m.deps.Session.Edit(string(data))
	m.refresh()
	m.clampAll()
	m.setStatus(levelInfo, m.summary)
	return m
}

func (m *Model) setStatus(l level, msg string) {
	m.statusLevel = l
	m.status = msg
}

// refresh recomputes the diff summary and, when shown, the diff panel.
func (m *Model) refresh() {
	s := m.deps.Session
	saved, text := s.Saved(), s.Text()
	m.summary = diff.Compute(saved, text).Summary().String()

	if !m.showDiff {
		return
	}

	unified, err := diff.Unified(saved, text, "saved", "edited", diff.DefaultContext)
	if err != nil {
		m.diffView.SetContent(err.Error())
		return
	}
	m.diffView.SetContent(colorizeUnified(unified))
}

func (m *Model) resizeDiff() {
	m.diffView.Width = max(m.width-2, 0)
	m.diffView.Height = max(m.diffHeight()-panelChrome, 1)
}

func (m Model) lines(p pane) []string {
	switch p {
	case paneHuman:
		return expandTabs(diff.SplitLines(m.deps.Session.Text()))
	case paneSource:
		return expandTabs(diff.SplitLines(m.deps.Session.Source()))
	}
	return nil
}

func expandTabs(lines []string) []string {
	for i, l := range lines {
		lines[i] = strings.ReplaceAll(l, "\t", "    ")
	}
	return lines
}
