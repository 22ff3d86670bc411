package monitor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ytqueue/internal/api"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	selStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("16")).Background(lipgloss.Color("117"))
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	barFillStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
)

var statusStyles = map[string]lipgloss.Style{
	"pending":   mutedStyle,
	"running":   accentStyle,
	"failed":    errorStyle,
	"completed": okStyle,
}

func (m model) View() string {
	if m.width <= 0 {
		m.width = 100
	}
	if m.height <= 0 {
		m.height = 30
	}

	header := titleStyle.Render("ytqueue queue-watch") + "\n" + mutedStyle.Render(keys.helpLine())
	body := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRunnerPanel(m.width),
		m.renderQueuePanel(m.width),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, m.renderStatusLine(m.width))
}

func (m model) renderRunnerPanel(width int) string {
	state := m.runner.State
	if state == "" {
		state = "idle"
	}
	indicator := " "
	if state == "processing" {
		indicator = m.spinner.View()
	}
	lines := []string{
		fmt.Sprintf("%s runner: %s   pass: %d completed, %d failed", indicator, state, m.runner.Completed, m.runner.Failed),
		fmt.Sprintf("queue: %d pending, %d running, %d failed, %d completed",
			m.summary.Pending, m.summary.Running, m.summary.Failed, m.summary.Completed),
	}
	if cur := m.runner.Current; cur != nil {
		p, ok := m.progress[cur.Index]
		if !ok {
			p = progressState{phase: cur.Phase, percent: cur.Progress}
		}
		lines = append(lines, "")
		lines = append(lines, truncate(fmt.Sprintf("#%d %s", cur.Index, cur.Label), width-6))
		lines = append(lines, renderBar(p, width-6))
	}
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m model) renderQueuePanel(width int) string {
	if !m.loaded {
		return panelStyle.Width(width).Render(mutedStyle.Render("Loading queue..."))
	}
	if len(m.items) == 0 {
		return panelStyle.Width(width).Render(mutedStyle.Render("Queue is empty."))
	}
	maxRows := max(m.height-14, 4)
	start, end := listWindow(len(m.items), m.cursor, maxRows)

	lines := make([]string, 0, maxRows+2)
	if start > 0 {
		lines = append(lines, mutedStyle.Render("..."))
	}
	for i := start; i < end; i++ {
		lines = append(lines, m.renderItem(m.items[i], i == m.cursor, width))
	}
	if end < len(m.items) {
		lines = append(lines, mutedStyle.Render("..."))
	}
	if sel := m.selected(); sel != nil && sel.Error != "" {
		lines = append(lines, "", errorStyle.Render(truncate("error: "+sel.Error, width-6)))
	}
	return panelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (m model) renderItem(item api.QueueItem, selected bool, width int) string {
	status := fmt.Sprintf("%-9s", item.Status)
	line := fmt.Sprintf("%3d  %s  %-16s  %s", item.Index, status, item.Kind, item.Label)
	if item.Retries > 0 {
		line += fmt.Sprintf("  (retries %d)", item.Retries)
	}
	if p, ok := m.progress[item.Index]; ok && item.Status == "running" {
		line += fmt.Sprintf("  %s %.0f%%", p.phase, p.percent)
	}
	line = truncate(line, width-6)
	if selected {
		return selStyle.Width(max(width-4, 6)).Render(line)
	}
	if style, ok := statusStyles[item.Status]; ok {
		return strings.Replace(line, status, style.Render(status), 1)
	}
	return line
}

func (m model) renderStatusLine(width int) string {
	msg := strings.TrimSpace(m.statusMessage)
	if msg == "" {
		if m.disconnected {
			msg = "disconnected"
		} else {
			msg = "connected"
		}
		return mutedStyle.Render(truncate(msg, width))
	}
	if m.statusIsError {
		return errorStyle.Render(truncate(msg, width))
	}
	return okStyle.Render(truncate(msg, width))
}

func (m model) selected() *api.QueueItem {
	if m.cursor < 0 || m.cursor >= len(m.items) {
		return nil
	}
	return &m.items[m.cursor]
}

func renderBar(p progressState, width int) string {
	label := fmt.Sprintf(" %5.1f%% %s", p.percent, p.phase)
	barWidth := max(width-len(label)-2, 10)
	filled := int(p.percent / 100 * float64(barWidth))
	filled = min(max(filled, 0), barWidth)
	bar := barFillStyle.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
	return "[" + bar + "]" + label
}

func listWindow(total, cursor, maxRows int) (int, int) {
	if total <= maxRows {
		return 0, total
	}
	start := max(cursor-maxRows/2, 0)
	end := start + maxRows
	if end > total {
		end = total
		start = end - maxRows
	}
	return start, end
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
