package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-infomap/pkg/infomap"
)

// maxSummaryModules caps the module listing of the summary.
const maxSummaryModules = 10

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginTop(1)

	statsBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FF00")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FFFF")).
			Width(22)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

func statRow(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

// renderSummary renders the outcome of a run for the terminal.
func renderSummary(source string, res *infomap.Result, written []string) string {
	rows := []string{
		statRow("Network", source),
		statRow("Vertices / links", fmt.Sprintf("%d / %d", res.NumVertices(), len(res.Links))),
		statRow("Codelength", fmt.Sprintf("%.9f bits", res.Codelength)),
		statRow("One-level codelength", fmt.Sprintf("%.9f bits", res.OneLevelCodelength)),
		statRow("Savings", fmt.Sprintf("%.2f%%", 100*res.RelativeCodelengthSavings())),
		statRow("Top modules", fmt.Sprintf("%d", res.NumModules())),
		statRow("Levels", fmt.Sprintf("%d", res.Depth())),
		statRow("Per level", formatLevels(res.PerLevel)),
		statRow("Elapsed", res.Elapsed.String()),
	}
	if res.BestTrial >= 0 {
		rows = append(rows, statRow("Best trial", fmt.Sprintf("%d of %d", res.BestTrial+1, len(res.Trials))))
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Infomap"))
	b.WriteString("\n")
	b.WriteString(statsBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")

	if !res.FlowConverged {
		b.WriteString(warnStyle.Render(fmt.Sprintf("Flow did not converge in %d iterations", res.FlowIterations)))
		b.WriteString("\n")
	}

	modules := res.Modules()
	if len(modules) > 0 {
		lines := make([]string, 0, maxSummaryModules+1)
		for i, m := range modules {
			if i == maxSummaryModules {
				lines = append(lines, helpStyle.Render(fmt.Sprintf("... %d more", len(modules)-maxSummaryModules)))
				break
			}
			lines = append(lines, statRow(
				fmt.Sprintf("Module %d", m.Index+1),
				fmt.Sprintf("flow %.4f, %d vertices", m.Flow, len(m.Vertices))))
		}
		b.WriteString(statsBoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
		b.WriteString("\n")
	}

	for _, path := range written {
		b.WriteString(helpStyle.Render("wrote " + path))
		b.WriteString("\n")
	}
	return b.String()
}

func formatLevels(levels []float64) string {
	parts := make([]string, len(levels))
	for i, l := range levels {
		parts[i] = fmt.Sprintf("%.4f", l)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
