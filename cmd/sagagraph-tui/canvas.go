package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/saga-graph/pkg/graph"
	"github.com/dd0wney/saga-graph/pkg/interaction"
	"github.com/dd0wney/saga-graph/pkg/viewer"
)

// cellKind decides how a canvas cell is styled
type cellKind int

const (
	cellEmpty cellKind = iota
	cellEdge
	cellPathEdge
	cellNode
	cellLabel
)

type cell struct {
	r      rune
	kind   cellKind
	entity graph.EntityType
	strong bool // selected or on the highlighted path
	dimmed bool
}

// frameNode is a node projected to screen space
type frameNode struct {
	id          string
	label       string
	entity      graph.EntityType
	x, y        float64
	importance  float64
	selected    bool
	highlighted bool
	dimmed      bool
}

type frameEdge struct {
	x1, y1, x2, y2 float64
	highlighted    bool
	dimmed         bool
}

// frame is one consistent snapshot of the graph in screen coordinates
type frame struct {
	nodes         []frameNode
	edges         []frameEdge
	width, height float64
}

// capture copies visible nodes and edges under the host lock and projects
// them through the viewport
func capture(s *viewer.Session) frame {
	var vp interaction.Viewport
	s.Controller().Viewport(func(v *interaction.Viewport) { vp = *v })
	g := s.Graph()

	f := frame{width: vp.Width, height: vp.Height}
	s.Host().Read(func() {
		f.nodes = make([]frameNode, 0, len(g.Nodes))
		for _, n := range g.Nodes {
			if n.Hidden || !n.HasFinitePosition() {
				continue
			}
			x, y := vp.WorldToScreen(n.X, n.Y)
			f.nodes = append(f.nodes, frameNode{
				id: n.ID, label: n.Label, entity: n.Type,
				x: x, y: y, importance: n.Importance,
				selected: n.Selected, highlighted: n.Highlighted, dimmed: n.Dimmed,
			})
		}
		f.edges = make([]frameEdge, 0, len(g.Edges))
		for _, e := range g.Edges {
			if e.From.Hidden || e.To.Hidden || !e.From.HasFinitePosition() || !e.To.HasFinitePosition() {
				continue
			}
			x1, y1 := vp.WorldToScreen(e.From.X, e.From.Y)
			x2, y2 := vp.WorldToScreen(e.To.X, e.To.Y)
			f.edges = append(f.edges, frameEdge{x1, y1, x2, y2, e.Highlighted, e.Opacity < 1})
		}
	})
	return f
}

// grid is a character raster of a frame
type grid struct {
	cols, rows int
	cells      [][]cell
}

// rasterize scales the frame onto cols × rows cells. Edges are drawn
// first, then nodes, then labels into space that is still free.
func rasterize(f frame, cols, rows int) *grid {
	g := &grid{cols: cols, rows: rows, cells: make([][]cell, rows)}
	for i := range g.cells {
		g.cells[i] = make([]cell, cols)
	}
	if cols <= 0 || rows <= 0 || f.width <= 0 || f.height <= 0 {
		return g
	}
	sx := float64(cols) / f.width
	sy := float64(rows) / f.height
	toCell := func(x, y float64) (int, int) {
		return int(math.Floor(x * sx)), int(math.Floor(y * sy))
	}

	for _, e := range f.edges {
		c1, r1 := toCell(e.x1, e.y1)
		c2, r2 := toCell(e.x2, e.y2)
		steps := max(abs(c2-c1), abs(r2-r1))
		kind, glyph := cellEdge, '·'
		if e.highlighted {
			kind, glyph = cellPathEdge, '•'
		}
		for i := 1; i < steps; i++ {
			t := float64(i) / float64(steps)
			c := c1 + int(math.Round(t*float64(c2-c1)))
			r := r1 + int(math.Round(t*float64(r2-r1)))
			if g.in(c, r) && g.cells[r][c].kind <= kind {
				g.cells[r][c] = cell{r: glyph, kind: kind, dimmed: e.dimmed}
			}
		}
	}

	for _, n := range f.nodes {
		c, r := toCell(n.x, n.y)
		if !g.in(c, r) {
			continue
		}
		glyph := '●'
		switch {
		case n.selected:
			glyph = '◉'
		case n.highlighted:
			glyph = '★'
		}
		g.cells[r][c] = cell{r: glyph, kind: cellNode, entity: n.entity, strong: n.selected || n.highlighted, dimmed: n.dimmed}
	}

	for _, n := range f.nodes {
		if n.dimmed {
			continue
		}
		c, r := toCell(n.x, n.y)
		g.label(c+2, r, n.label, n.entity, n.selected || n.highlighted)
	}
	return g
}

func (g *grid) in(c, r int) bool {
	return c >= 0 && r >= 0 && c < g.cols && r < g.rows
}

// label writes text at (c, r) when every cell it needs is free
func (g *grid) label(c, r int, text string, entity graph.EntityType, strong bool) {
	runes := []rune(text)
	if len(runes) == 0 || !g.in(c, r) || c+len(runes) > g.cols {
		return
	}
	for i := range runes {
		if k := g.cells[r][c+i].kind; k == cellNode || k == cellLabel {
			return
		}
	}
	for i, ch := range runes {
		g.cells[r][c+i] = cell{r: ch, kind: cellLabel, entity: entity, strong: strong}
	}
}

// plain renders the grid without styling
func (g *grid) plain() string {
	var b strings.Builder
	for i, row := range g.cells {
		for _, c := range row {
			if c.kind == cellEmpty {
				b.WriteRune(' ')
			} else {
				b.WriteRune(c.r)
			}
		}
		if i < len(g.cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// styled renders the grid with one lipgloss style per run of equal cells
func (g *grid) styled() string {
	var b strings.Builder
	for i, row := range g.cells {
		var run strings.Builder
		var runStyle *lipgloss.Style
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runStyle == nil {
				b.WriteString(run.String())
			} else {
				b.WriteString(runStyle.Render(run.String()))
			}
			run.Reset()
		}
		var prev cell
		for j, c := range row {
			if j == 0 || c.kind != prev.kind || c.entity != prev.entity || c.strong != prev.strong || c.dimmed != prev.dimmed {
				flush()
				runStyle = cellStyle(c)
			}
			if c.kind == cellEmpty {
				run.WriteRune(' ')
			} else {
				run.WriteRune(c.r)
			}
			prev = c
		}
		flush()
		if i < len(g.cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func cellStyle(c cell) *lipgloss.Style {
	var s lipgloss.Style
	switch c.kind {
	case cellEmpty:
		return nil
	case cellEdge:
		s = edgeStyle
	case cellPathEdge:
		s = pathStyle
	case cellNode, cellLabel:
		s = lipgloss.NewStyle().Foreground(entityColor(c.entity))
		if c.strong {
			s = s.Bold(true)
		}
		if c.kind == cellLabel && !c.strong {
			s = s.Faint(true)
		}
	}
	if c.dimmed {
		s = s.Foreground(dimColor)
	}
	return &s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
