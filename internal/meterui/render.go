package meterui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuimeter/internal/meter"
	"github.com/verte-zerg/tuimeter/internal/stats"
)

func (m *Model) refresh() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	v := m.meter.View()
	switch m.activeTab {
	case tabDamage:
		m.applyDamageTable(v, width)
	case tabPartyBuffs:
		m.viewports[tabPartyBuffs].SetContent(render(func(buf *bytes.Buffer) error {
			return stats.RenderBuffTable(buf, v.BuffTable(""))
		}))
	case tabSelfBuffs:
		m.viewports[tabSelfBuffs].SetContent(renderSelfBuffs(v))
	case tabTank:
		m.viewports[tabTank].SetContent(render(func(buf *bytes.Buffer) error {
			return stats.RenderBuffTable(buf, v.BuffTable("Shields "+v.ShieldTab.String()))
		}))
	case tabChart:
		m.viewports[tabChart].SetContent(render(func(buf *bytes.Buffer) error {
			return stats.RenderDPSChart(buf, v.Players, width, m.opts.ChartHeight, true)
		}))
	}
}

func renderSelfBuffs(v *meter.View) string {
	return render(func(buf *bytes.Buffer) error {
		if err := stats.RenderBuffTable(buf, v.BuffTable("")); err != nil {
			return err
		}
		if v.Focused == nil {
			return nil
		}
		if _, err := fmt.Fprintf(buf, "Skills of %s\n", v.Focused.Name); err != nil {
			return err
		}
		return stats.RenderSkillBuffs(buf, v.Grouped, v.Skills, v.SkillKeys, v.SkillDetails)
	})
}

func render(fn func(buf *bytes.Buffer) error) string {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return fmt.Sprintf("Failed to render: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func damageColumns(multiParty bool) []table.Column {
	columns := []table.Column{
		{Title: "Name", Width: 16},
		{Title: "Class", Width: 12},
		{Title: "Damage", Width: 9},
		{Title: "DPS", Width: 8},
		{Title: "%", Width: 5},
		{Title: "Crit", Width: 6},
		{Title: "Trend", Width: 20},
	}
	if multiParty {
		columns = append([]table.Column{{Title: "P", Width: 2}}, columns...)
	}
	return columns
}

func buildDamageTable(rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(damageColumns(false)),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
		table.WithFocused(true),
	)
	t.SetWidth(width)
	t.SetStyles(damageTableStyles())
	return t
}

func (m *Model) applyDamageTable(v *meter.View, width int) {
	multiParty := len(v.Parties) > 1
	rows := make([]table.Row, 0, len(v.Players))
	names := make([]string, 0, len(v.Players))
	durationMs := int64(0)
	if v.Encounter != nil {
		durationMs = v.Encounter.Duration
	}
	for i, party := range v.Parties {
		for _, member := range party.Members {
			e := member.Entity
			name := e.Name
			if name == m.meter.FocusName() {
				name = "> " + name
			}
			row := table.Row{
				name,
				e.Class,
				stats.Abbreviate(float64(e.DamageStats.DamageDealt)),
				stats.Abbreviate(stats.DPS(e.DamageStats.DamageDealt, durationMs)),
				stats.FormatPercent(member.Percentage),
				stats.FormatPercent(stats.CritRate(e)) + "%",
				stats.Sparkline(e.DamageStats.DPSRolling10sAvg),
			}
			if multiParty {
				row = append(table.Row{fmt.Sprintf("%d", i+1)}, row...)
			}
			rows = append(rows, row)
			names = append(names, e.Name)
		}
	}
	// Columns must change before rows so row widths always match.
	m.damageTable.SetRows(nil)
	m.damageTable.SetColumns(damageColumns(multiParty))
	m.damageTable.SetRows(rows)
	m.damageTable.SetWidth(width)
	m.rowNames = names
	if m.damageTable.Cursor() >= len(rows) && len(rows) > 0 {
		m.damageTable.SetCursor(len(rows) - 1)
	}
}

func damageTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	summary := padLines(m.renderSummary(), m.width)
	return tabs + "\n" + summary
}

func (m *Model) renderSummary() string {
	var buf bytes.Buffer
	if err := stats.RenderHeader(&buf, m.meter.Encounter()); err != nil {
		return errorStyle.Render(err.Error())
	}
	parts := []string{strings.TrimRight(buf.String(), "\n")}
	if name := m.meter.FocusName(); name != "" {
		parts = append(parts, "focus="+name)
	}
	if m.activeTab == tabTank {
		parts = append(parts, "shields="+m.meter.ShieldTab().String())
	}
	if m.meter.Paused() {
		parts = append(parts, "paused")
	}
	return headerStyle.Render(truncateLine(strings.Join(parts, "  "), m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down  Focus: /  Unfocus: esc  Quit: q"
	switch m.activeTab {
	case tabDamage:
		help = "Nav: left/right  Select: up/down  Focus: enter  Unfocus: esc  Pause: p  Reset: r  Save: w  Quit: q"
	case tabTank:
		help = "Nav: left/right  Scroll: up/down  Shield metric: s  Focus: /  Quit: q"
	}
	return headerStyle.Render(truncateLine(help, m.width))
}

func (m *Model) renderFooter() string {
	switch {
	case m.errMsg != "":
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	case m.meter.Notice() != "":
		return m.renderHelp() + "\n" + noticeStyle.Render(m.meter.Notice())
	}
	return m.renderHelp()
}

func (m *Model) renderBody() string {
	if m.activeTab == tabDamage {
		if len(m.rowNames) == 0 {
			return "No players found."
		}
		return tableMutedStyle.Render(m.damageTable.View())
	}
	return m.viewports[m.activeTab].View()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func modalWidth(width int) int {
	return maxInt(40, minInt(width-4, 80))
}

func modalInnerWidth(width int) int {
	w := modalWidth(width)
	w -= 6 // 2 border + 4 padding
	if w < 10 {
		return 10
	}
	return w
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
