package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanshika/chronos/internal/domain"
	"github.com/vanshika/chronos/internal/network"
	"github.com/vanshika/chronos/internal/timeline"
)

// canvas is a character grid. Later plots overwrite earlier ones.
type canvas struct {
	cols, rows int
	cells      [][]string
}

func newCanvas(cols, rows int) *canvas {
	cols, rows = max(cols, 1), max(rows, 1)
	cells := make([][]string, rows)
	for r := range cells {
		cells[r] = make([]string, cols)
		for c := range cells[r] {
			cells[r][c] = " "
		}
	}
	return &canvas{cols: cols, rows: rows, cells: cells}
}

// plot maps (x, y) from a width×height plane onto the grid.
func (c *canvas) plot(x, y, width, height float64, glyph string) {
	col, row := project(x, width, c.cols), project(y, height, c.rows)
	c.cells[row][col] = glyph
}

func project(v, extent float64, cells int) int {
	if extent <= 0 {
		return cells / 2
	}
	i := int(v / extent * float64(cells-1))
	return min(max(i, 0), cells-1)
}

func (c *canvas) String() string {
	lines := make([]string, c.rows)
	for r, row := range c.cells {
		lines[r] = strings.Join(row, "")
	}
	return strings.Join(lines, "\n")
}

func renderTimeline(v *timeline.View, cols, rows int, st Styles) string {
	c := newCanvas(cols, rows)
	scales := v.Scales()
	for _, p := range v.Points() {
		var glyph string
		switch {
		case p.Highlighted:
			glyph = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Bold(true).Render("◆")
		case p.Opacity <= timeline.OpacityUnselected:
			glyph = st.Dim.Render("·")
		case p.Revealed:
			glyph = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Color)).Render(markerFor(p.Transaction.Level()))
		default:
			glyph = st.Dim.Render("·")
		}
		c.plot(p.X, p.Y, scales.Width, scales.Height, glyph)
	}
	return c.String()
}

func markerFor(level domain.SuspicionLevel) string {
	switch level {
	case domain.LevelCritical:
		return "●"
	case domain.LevelSuspicious:
		return "•"
	default:
		return "∙"
	}
}

func renderNetwork(v *network.View, width, height float64, cols, rows int, st Styles) string {
	c := newCanvas(cols, rows)
	for _, n := range v.Nodes() {
		color := domain.LevelNormal.Color()
		if n.Suspicious {
			color = domain.LevelCritical.Color()
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		glyph := style.Render("◉")
		if n.Opacity < network.OpacitySelected {
			glyph = st.Dim.Render("○")
		}
		c.plot(n.X, n.Y, width, height, glyph)
	}
	return c.String()
}
