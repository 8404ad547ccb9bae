package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF")).
			MarginLeft(1)

	canvasStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))

	focusedCanvasStyle = canvasStyle.
				BorderForeground(lipgloss.Color("#00FFFF"))

	sideStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			MarginLeft(1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	edgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#555555"))
	pathStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD700")).Bold(true)

	dimColor = lipgloss.Color("#333333")
)

// entityColor follows the renderer palette
func entityColor(t graph.EntityType) lipgloss.Color {
	c := render.TypeColor(t)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}
