// Package tui hosts the visualization in a terminal.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanshika/chronos/internal/controller"
	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/export"
	"github.com/vanshika/chronos/internal/logging"
	"github.com/vanshika/chronos/internal/scheduler"
	"github.com/vanshika/chronos/internal/service"
)

const (
	minCanvasCols = 20
	minCanvasRows = 6
	chromeRows    = 8
	maxResults    = 5
)

type taskMsg struct{ task scheduler.Task }

type loadedMsg struct{ res controller.LoadResult }

type searchMsg struct {
	term    string
	results []domain.Transaction
	err     error
}

type patternMsg struct {
	pattern domain.Pattern
	err     error
}

type exportedMsg struct {
	path string
	err  error
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the host logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) { m.logger = logging.Component(logger, "tui") }
}

// WithRemoteSearch sends searches to the data service instead of scanning
// the loaded collection.
func WithRemoteSearch(on bool) Option {
	return func(m *Model) { m.remoteSearch = on }
}

// WithExportDir sets where snapshots are written.
func WithExportDir(dir string) Option {
	return func(m *Model) { m.exportDir = dir }
}

// WithExportFormat selects the snapshot exporter.
func WithExportFormat(format string) Option {
	return func(m *Model) { m.exportFormat = format }
}

// WithLayout sets the virtual canvas the network layout runs in.
func WithLayout(width, height float64) Option {
	return func(m *Model) { m.layoutW, m.layoutH = width, height }
}

// Model is the bubbletea model. The controller and its views are only touched
// from Update, which bubbletea runs on a single goroutine.
type Model struct {
	ctx    context.Context
	ctrl   *controller.Controller
	queue  *scheduler.Queue
	logger *slog.Logger
	styles Styles

	input   textinput.Model
	spinner spinner.Model

	width, height    int
	layoutW, layoutH float64
	remoteSearch     bool
	exportDir        string
	exportFormat     string

	cursor  int
	results []domain.Transaction
	pattern *domain.Pattern
	notice  string
}

// New builds the host around ctrl. Timer callbacks scheduled by the views
// arrive on queue and run inside Update.
func New(ctx context.Context, ctrl *controller.Controller, queue *scheduler.Queue, opts ...Option) Model {
	input := textinput.New()
	input.Placeholder = "search id, account, scenario or pattern"
	input.Prompt = "/ "
	input.CharLimit = 64

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:          ctx,
		ctrl:         ctrl,
		queue:        queue,
		logger:       logging.Discard(),
		styles:       defaultStyles(),
		input:        input,
		spinner:      sp,
		width:        100,
		height:       30,
		layoutW:      800,
		layoutH:      500,
		exportDir:    ".",
		exportFormat: "json",
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForTask(), m.spinner.Tick, m.load(m.ctrl.Scenario()))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case taskMsg:
		msg.task.Run()
		return m, m.waitForTask()

	case loadedMsg:
		if m.ctrl.Apply(msg.res) {
			m.cursor = 0
			m.results = nil
		}
		return m, nil

	case searchMsg:
		if msg.err != nil {
			m.notice = "search failed: " + msg.err.Error()
			return m, nil
		}
		m.results = msg.results
		m.notice = fmt.Sprintf("%d match(es) for %q", len(msg.results), msg.term)
		if len(msg.results) > 0 {
			m.selectResult(msg.results[0])
		}
		return m, nil

	case patternMsg:
		if msg.err != nil {
			m.notice = "pattern generation failed: " + msg.err.Error()
			return m, nil
		}
		m.pattern = &msg.pattern
		m.notice = fmt.Sprintf("generated %s with %d steps", msg.pattern.ID, len(msg.pattern.Steps))
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.notice = "export failed: " + msg.err.Error()
		} else {
			m.notice = "snapshot written to " + msg.path
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.ctrl.Teardown()
		return m, tea.Quit
	}

	if m.ctrl.SearchFocused() {
		switch key {
		case "esc":
			m.ctrl.HandleKey(key)
			m.input.Blur()
			return m, nil
		case "enter":
			term := strings.TrimSpace(m.input.Value())
			m.ctrl.SetSearchFocus(false)
			m.input.Blur()
			return m, m.search(term)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		m.ctrl.Teardown()
		return m, tea.Quit
	case "tab":
		m.selectNext()
		return m, nil
	case "g":
		return m, m.generatePattern()
	case "x":
		return m, m.exportSnapshot()
	}

	switch m.ctrl.HandleKey(key) {
	case controller.ActionFocusSearch:
		m.input.SetValue("")
		return m, m.input.Focus()
	case controller.ActionRetry:
		return m, m.load(m.ctrl.Scenario())
	case controller.ActionClear:
		m.results = nil
		m.pattern = nil
		m.notice = ""
	}
	return m, nil
}

func (m Model) waitForTask() tea.Cmd {
	tasks, ctx := m.queue.Tasks(), m.ctx
	return func() tea.Msg {
		select {
		case task := <-tasks:
			return taskMsg{task: task}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) load(scenario string) tea.Cmd {
	fetch, ctx := m.ctrl.Request(scenario), m.ctx
	return func() tea.Msg {
		return loadedMsg{res: fetch(ctx)}
	}
}

func (m Model) search(term string) tea.Cmd {
	if !m.remoteSearch {
		results, err := m.ctrl.Search(m.ctx, controller.SearchQuery{Term: term})
		return func() tea.Msg { return searchMsg{term: term, results: results, err: err} }
	}
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		results, err := ctrl.Search(ctx, controller.SearchQuery{Term: term, Scope: service.ScopeAll, Remote: true})
		return searchMsg{term: term, results: results, err: err}
	}
}

func (m Model) generatePattern() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		p, err := ctrl.GeneratePattern(ctx)
		return patternMsg{pattern: p, err: err}
	}
}

func (m Model) exportSnapshot() tea.Cmd {
	snap := m.ctrl.Snapshot()
	dir, format, logger := m.exportDir, m.exportFormat, m.logger
	return func() tea.Msg {
		exporter, err := export.ForFormat(format)
		if err != nil {
			return exportedMsg{err: err}
		}
		path := filepath.Join(dir, export.FileName(snap, exporter))
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{err: err}
		}
		if err := exporter.Write(f, snap); err != nil {
			f.Close()
			return exportedMsg{err: err}
		}
		if err := f.Close(); err != nil {
			return exportedMsg{err: err}
		}
		logger.Info("snapshot exported", "path", path, "transactions", len(snap.Transactions))
		return exportedMsg{path: path}
	}
}

// selectNext walks the selection through transactions in timeline mode and
// accounts in network mode.
func (m *Model) selectNext() {
	var ids []string
	if m.ctrl.Mode() == controller.ModeNetwork {
		for _, n := range m.ctrl.Network().Nodes() {
			ids = append(ids, n.ID)
		}
	} else {
		for _, tx := range m.ctrl.Timeline().Transactions() {
			ids = append(ids, tx.ID)
		}
	}
	if len(ids) == 0 {
		return
	}
	m.cursor %= len(ids)
	m.ctrl.Select(ids[m.cursor])
	m.cursor++
}

func (m *Model) selectResult(tx domain.Transaction) {
	if m.ctrl.Mode() == controller.ModeNetwork {
		m.ctrl.Select(tx.FromAccount)
		return
	}
	m.ctrl.Select(tx.ID)
}

func (m Model) View() string {
	sections := []string{m.headerView(), m.bodyView()}
	if m.ctrl.SearchFocused() {
		sections = append(sections, m.input.View())
	}
	if side := m.sideView(); side != "" {
		sections = append(sections, side)
	}
	sections = append(sections, m.statusView(), m.styles.Help.Render(helpText))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

const helpText = "space play/pause · r reset · t/n view · / search · tab select · esc clear · +/- speed · g pattern · x export · q quit"

func (m Model) headerView() string {
	tabs := make([]string, 0, 2)
	for _, mode := range []controller.Mode{controller.ModeTimeline, controller.ModeNetwork} {
		label := strings.ToUpper(string(mode))
		if mode == m.ctrl.Mode() {
			tabs = append(tabs, m.styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, m.styles.TabIdle.Render(label))
		}
	}
	parts := []string{m.styles.Title.Render("CHRONOS"), " "}
	parts = append(parts, tabs...)
	if m.ctrl.Synthetic() {
		parts = append(parts, " ", m.styles.Demo.Render("DEMO DATA"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m Model) canvasSize() (int, int) {
	cols := max(m.width-2, minCanvasCols)
	rows := max(m.height-chromeRows, minCanvasRows)
	return cols, rows
}

func (m Model) bodyView() string {
	cols, rows := m.canvasSize()
	var content string
	switch m.ctrl.Status() {
	case controller.StatusIdle, controller.StatusLoading:
		content = m.spinner.View() + " loading " + m.ctrl.Scenario() + " transactions..."
	case controller.StatusEmpty:
		content = m.styles.Muted.Render(fmt.Sprintf("No transactions for scenario %q in the last %s.", m.ctrl.Scenario(), m.ctrl.TimeRange()))
	case controller.StatusError:
		st := m.ctrl.Error()
		content = m.styles.Error.Render(fmt.Sprintf("%s error: %s", st.Kind, st.Message))
		if st.Retryable {
			content += "\n" + m.styles.Muted.Render("press R to retry")
		}
	default:
		if m.ctrl.Mode() == controller.ModeNetwork {
			content = renderNetwork(m.ctrl.Network(), m.layoutW, m.layoutH, cols, rows, m.styles)
		} else {
			content = renderTimeline(m.ctrl.Timeline(), cols, rows, m.styles)
		}
	}
	return m.styles.Canvas.Width(cols).Height(rows).Render(content)
}

func (m Model) sideView() string {
	var lines []string
	if m.ctrl.Mode() == controller.ModeNetwork {
		if id, ok := m.ctrl.Network().Selected(); ok {
			lines = append(lines, fmt.Sprintf("%s ↔ %s", id, strings.Join(m.ctrl.Network().ConnectedAccounts(id), ", ")))
		}
	} else if id, ok := m.ctrl.Timeline().Selected(); ok {
		for _, tx := range m.ctrl.Timeline().Transactions() {
			if tx.ID == id {
				lines = append(lines, fmt.Sprintf("%s  %s → %s  %s  score %.2f (%s)",
					tx.ID, tx.FromAccount, tx.ToAccount, tx.Amount.StringFixed(2), tx.SuspicionScore, tx.Level()))
				break
			}
		}
	}
	for i, tx := range m.results {
		if i == maxResults {
			lines = append(lines, m.styles.Muted.Render(fmt.Sprintf("… %d more", len(m.results)-maxResults)))
			break
		}
		lines = append(lines, fmt.Sprintf("  %s %s → %s", tx.ID, tx.FromAccount, tx.ToAccount))
	}
	if m.pattern != nil {
		for _, s := range m.pattern.Steps {
			lines = append(lines, fmt.Sprintf("  %d. %s → %s %s via %s (+%dm)",
				s.Step, s.FromAccount, s.ToAccount, s.Amount.StringFixed(2), s.Technique, s.DelayMinutes))
		}
	}
	if m.notice != "" {
		lines = append(lines, m.styles.Muted.Render(m.notice))
	}
	if len(lines) == 0 {
		return ""
	}
	return m.styles.Panel.Render(strings.Join(lines, "\n"))
}

func (m Model) statusView() string {
	stats := m.ctrl.Stats()
	risk := lipgloss.NewStyle().Foreground(m.styles.RiskColors[string(stats.Risk)]).Bold(true).Render(string(stats.Risk))
	progress := m.ctrl.Progress()

	fields := []string{
		fmt.Sprintf("scenario %s", m.ctrl.Scenario()),
		fmt.Sprintf("%d txns", stats.Total),
		fmt.Sprintf("%d suspicious", stats.Suspicious),
		"risk " + risk,
	}
	if m.ctrl.Mode() == controller.ModeTimeline {
		fields = append(fields,
			fmt.Sprintf("%s %3.0f%%", m.ctrl.Timeline().State(), progress.Percent()),
			fmt.Sprintf("speed %dx", m.ctrl.Timeline().Speed()),
		)
	} else {
		fields = append(fields, fmt.Sprintf("ticks %d", m.ctrl.Network().Ticks()))
	}
	return m.styles.StatusBar.Render(strings.Join(fields, " │ "))
}
