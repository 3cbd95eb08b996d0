// Package meterui provides the Bubble Tea damage meter interface.
package meterui

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuimeter/internal/backend"
	"github.com/verte-zerg/tuimeter/internal/meter"
	"github.com/verte-zerg/tuimeter/internal/model"
	"github.com/verte-zerg/tuimeter/internal/store"
)

const (
	tabDamage = iota
	tabPartyBuffs
	tabSelfBuffs
	tabTank
	tabChart
)

const (
	defaultChartHeight = 10
	actionTimeout      = 5 * time.Second
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	noticeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
	modalStyle      = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
)

// Controller sends encounter commands to the backend.
type Controller interface {
	ResetEncounter(ctx context.Context) error
	TogglePause(ctx context.Context) error
	SaveEncounter(ctx context.Context) error
}

// Options wires optional collaborators into the UI.
type Options struct {
	// Source feeds push events; nil for a static encounter.
	Source backend.Source
	// Controller is nil when the backend cannot take commands.
	Controller Controller
	// Store receives snapshots on save-encounter events when set.
	Store       *store.Store
	Logger      *zap.Logger
	ChartHeight int
}

type eventMsg backend.Event

type sourceClosedMsg struct{}

type actionMsg struct {
	action string
	err    error
}

// Model implements the Bubble Tea meter UI.
type Model struct {
	meter *meter.Meter
	opts  Options
	log   *zap.Logger

	errMsg string

	tabs        []string
	activeTab   int
	viewports   []viewport.Model
	damageTable table.Model
	rowNames    []string

	width  int
	height int

	focusMode  bool
	focusInput textinput.Model
}

// NewModel constructs a meter UI model over m.
func NewModel(m *meter.Meter, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ChartHeight <= 0 {
		opts.ChartHeight = defaultChartHeight
	}
	ui := &Model{
		meter: m,
		opts:  opts,
		log:   opts.Logger,
		tabs:  []string{"Damage", "Party Buffs", "Self Buffs", "Tank", "Chart"},
	}
	ui.activeTab = uiTab(m.Tab())
	ui.initFocusInput()
	ui.initViewports()
	ui.damageTable = buildDamageTable(nil, 0, 1)
	ui.refresh()
	return ui
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	if m.opts.Source == nil {
		return nil
	}
	return waitForEvent(m.opts.Source.Events())
}

func waitForEvent(events <-chan backend.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sourceClosedMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.refresh()
		return m, nil
	case eventMsg:
		m.handleEvent(backend.Event(msg))
		if m.opts.Source == nil {
			return m, nil
		}
		return m, waitForEvent(m.opts.Source.Events())
	case sourceClosedMsg:
		m.errMsg = "Backend disconnected."
		return m, nil
	case actionMsg:
		if msg.err != nil {
			m.log.Warn("backend action failed", zap.String("action", msg.action), zap.Error(msg.err))
			m.errMsg = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.errMsg = ""
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.focusMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.focusMode {
			return m.updateFocusInput(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m *Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		m.moveTab(-1)
		return m, tea.ClearScreen
	case "right", "l":
		m.moveTab(1)
		return m, tea.ClearScreen
	case "enter":
		if m.activeTab == tabDamage {
			if name := m.selectedName(); name != "" {
				m.meter.Focus(name)
				m.refresh()
			}
		}
		return m, nil
	case "/":
		return m.startFocusInput()
	case "esc":
		if m.meter.FocusName() != "" {
			m.meter.Unfocus()
			m.refresh()
		}
		return m, nil
	case "s":
		m.meter.CycleShieldTab()
		m.refresh()
		return m, nil
	case "p":
		return m, m.action("pause", func(c Controller, ctx context.Context) error { return c.TogglePause(ctx) })
	case "r":
		return m, m.action("reset", func(c Controller, ctx context.Context) error { return c.ResetEncounter(ctx) })
	case "w":
		return m, m.action("save", func(c Controller, ctx context.Context) error { return c.SaveEncounter(ctx) })
	case "g", "home":
		if m.activeTab == tabDamage {
			m.damageTable.GotoTop()
		} else {
			m.viewports[m.activeTab].GotoTop()
		}
		return m, nil
	case "G", "end":
		if m.activeTab == tabDamage {
			m.damageTable.GotoBottom()
		} else {
			m.viewports[m.activeTab].GotoBottom()
		}
		return m, nil
	}
	if m.activeTab == tabDamage {
		var cmd tea.Cmd
		m.damageTable, cmd = m.damageTable.Update(msg)
		return m, cmd
	}
	vp := m.viewports[m.activeTab]
	var cmd tea.Cmd
	vp, cmd = vp.Update(msg)
	m.viewports[m.activeTab] = vp
	return m, cmd
}

func (m *Model) action(name string, call func(Controller, context.Context) error) tea.Cmd {
	if m.opts.Controller == nil {
		m.errMsg = "No backend connected."
		return nil
	}
	c := m.opts.Controller
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionMsg{action: name, err: call(c, ctx)}
	}
}

func (m *Model) handleEvent(ev backend.Event) {
	m.log.Debug("event", zap.String("event", ev.Name))
	if ev.Name == backend.EventSaveEncounter {
		m.saveSnapshot()
	}
	if err := m.meter.Handle(ev); err != nil {
		m.log.Warn("dropping event", zap.String("event", ev.Name), zap.Error(err))
		m.errMsg = err.Error()
		return
	}
	m.updateLayout()
	m.refresh()
}

func (m *Model) saveSnapshot() {
	enc := m.meter.Encounter()
	if m.opts.Store == nil || enc == nil {
		return
	}
	raw := m.meter.Raw()
	if raw == nil {
		encoded, err := json.Marshal(enc)
		if err != nil {
			m.errMsg = fmt.Sprintf("failed to encode encounter: %v", err)
			return
		}
		raw = encoded
	}
	id, err := m.opts.Store.InsertEncounter(context.Background(), raw)
	if err != nil {
		m.log.Error("failed to store encounter", zap.Error(err))
		m.errMsg = fmt.Sprintf("failed to store encounter: %v", err)
		return
	}
	m.log.Info("stored encounter", zap.Int64("id", id), zap.String("boss", enc.CurrentBossName))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.focusMode {
		return fitLines(m.renderFocusModal(), m.width, m.height)
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initFocusInput() {
	input := textinput.New()
	input.Prompt = "Player: "
	input.Placeholder = "name"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	m.focusInput = input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if m.errMsg != "" || m.meter.Notice() != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.damageTable.SetWidth(m.width)
	m.damageTable.SetHeight(maxInt(1, vpHeight-1))
	promptWidth := lipgloss.Width(m.focusInput.Prompt)
	m.focusInput.Width = maxInt(10, modalInnerWidth(m.width)-promptWidth)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.meter.SetTab(meterTab(next))
	if m.activeTab == tabDamage {
		m.damageTable.Focus()
	} else {
		m.damageTable.Blur()
	}
	m.refresh()
}

// meterTab maps a UI tab to the meter tab whose data it shows.
func meterTab(tab int) model.Tab {
	switch tab {
	case tabPartyBuffs:
		return model.TabPartyBuffs
	case tabSelfBuffs:
		return model.TabSelfBuffs
	case tabTank:
		return model.TabTank
	default:
		return model.TabDamage
	}
}

func uiTab(tab model.Tab) int {
	switch tab {
	case model.TabPartyBuffs:
		return tabPartyBuffs
	case model.TabSelfBuffs:
		return tabSelfBuffs
	case model.TabTank:
		return tabTank
	default:
		return tabDamage
	}
}

func (m *Model) startFocusInput() (tea.Model, tea.Cmd) {
	m.focusMode = true
	m.focusInput.SetValue(m.meter.FocusName())
	return m, m.focusInput.Focus()
}

func (m *Model) updateFocusInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.focusMode = false
		m.focusInput.Blur()
		return m, nil
	case tea.KeyEnter:
		m.focusMode = false
		m.focusInput.Blur()
		m.meter.Focus(strings.TrimSpace(m.focusInput.Value()))
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.focusInput, cmd = m.focusInput.Update(msg)
	return m, cmd
}

func (m *Model) selectedName() string {
	i := m.damageTable.Cursor()
	if i < 0 || i >= len(m.rowNames) {
		return ""
	}
	return m.rowNames[i]
}

func (m *Model) renderFocusModal() string {
	body := []string{
		cardValueStyle.Render("Focus Player"),
		m.focusInput.View(),
		headerStyle.Render("Empty name clears the focus."),
		headerStyle.Render("Enter to apply / Esc to cancel"),
	}
	box := modalStyle.Width(modalWidth(m.width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}
