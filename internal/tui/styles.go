package tui

import "github.com/charmbracelet/lipgloss"

// Styles groups every lipgloss style the host renders with.
type Styles struct {
	Title      lipgloss.Style
	TabActive  lipgloss.Style
	TabIdle    lipgloss.Style
	Canvas     lipgloss.Style
	StatusBar  lipgloss.Style
	Demo       lipgloss.Style
	Error      lipgloss.Style
	Muted      lipgloss.Style
	Dim        lipgloss.Style
	Panel      lipgloss.Style
	Help       lipgloss.Style
	RiskColors map[string]lipgloss.Color
}

func defaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00d4ff")).Bold(true),
		TabActive: lipgloss.NewStyle().Foreground(lipgloss.Color("#0a0e27")).Background(lipgloss.Color("#00d4ff")).Padding(0, 1),
		TabIdle:   lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")).Padding(0, 1),
		Canvas:    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2f3542")),
		StatusBar: lipgloss.NewStyle().Foreground(lipgloss.Color("#dfe4ea")).Background(lipgloss.Color("#2f3542")).Padding(0, 1),
		Demo:      lipgloss.NewStyle().Foreground(lipgloss.Color("#0a0e27")).Background(lipgloss.Color("#ffa502")).Bold(true).Padding(0, 1),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4757")).Bold(true),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("#828282")),
		Dim:       lipgloss.NewStyle().Foreground(lipgloss.Color("#3d4451")),
		Panel:     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
		Help:      lipgloss.NewStyle().Foreground(lipgloss.Color("#57606f")),
		RiskColors: map[string]lipgloss.Color{
			"HIGH":    lipgloss.Color("#ff4757"),
			"MEDIUM":  lipgloss.Color("#ffa502"),
			"LOW":     lipgloss.Color("#eccc68"),
			"MINIMAL": lipgloss.Color("#2ed573"),
		},
	}
}
