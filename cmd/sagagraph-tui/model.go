package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/saga-graph/pkg/interaction"
	"github.com/dd0wney/saga-graph/pkg/viewer"
)

const sideWidth = 38

type focus int

const (
	focusGraph focus = iota
	focusNodes
	focusPath
)

type (
	loadedMsg struct{ err error }
	redrawMsg struct{}
	eventMsg  string
	pathMsg   struct {
		path []string
		ok   bool
		err  error
	}
)

// events carries session callbacks into the program. Redraws coalesce.
type events struct {
	redraw chan struct{}
	msgs   chan tea.Msg
}

func newEvents() *events {
	return &events{redraw: make(chan struct{}, 1), msgs: make(chan tea.Msg, 16)}
}

func (e *events) Redraw() {
	select {
	case e.redraw <- struct{}{}:
	default:
	}
}

func (e *events) Send(msg tea.Msg) {
	select {
	case e.msgs <- msg:
	default:
	}
}

// options wires the session callbacks to e
func (e *events) options() []viewer.Option {
	return []viewer.Option{
		viewer.WithRedraw(e.Redraw),
		viewer.WithNavigate(func(url string) { e.Send(eventMsg("Open " + url)) }),
		viewer.WithDetails(func(id string) { e.Send(eventMsg("Details: " + id)) }),
	}
}

func (e *events) waitRedraw() tea.Msg {
	<-e.redraw
	return redrawMsg{}
}

func (e *events) waitMsg() tea.Msg {
	return <-e.msgs
}

type model struct {
	ctx     context.Context
	session *viewer.Session
	events  *events

	keys      keyMap
	help      help.Model
	spinner   spinner.Model
	nodes     table.Model
	pathInput textinput.Model

	focus   focus
	loading bool
	loadErr string
	message string
	width   int
	height  int
}

func newModel(ctx context.Context, s *viewer.Session, ev *events) model {
	ti := textinput.New()
	ti.Placeholder = "from-id to-id"
	ti.CharLimit = 200
	ti.Width = 40
	ti.Prompt = "path> "

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 10},
			{Title: "Label", Width: 14},
			{Title: "Deg", Width: 4},
		}),
		table.WithHeight(10),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	st.Selected = st.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(st)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		ctx:       ctx,
		session:   s,
		events:    ev,
		keys:      keys,
		help:      help.New(),
		spinner:   sp,
		nodes:     t,
		pathInput: ti,
		loading:   true,
		width:     100,
		height:    30,
	}
}

func (m model) load() tea.Msg {
	return loadedMsg{err: m.session.Load(m.ctx)}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.load, m.events.waitRedraw, m.events.waitMsg)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.nodes.SetHeight(max(3, msg.Height-18))
		return m, nil

	case loadedMsg:
		m.loading = false
		m.loadErr = ""
		if msg.err != nil {
			st := m.session.Status()
			m.loadErr = st.Message
			if st.Retryable {
				m.loadErr += " Press R to retry."
			}
			return m, nil
		}
		m.refreshNodes()
		return m, nil

	case redrawMsg:
		return m, m.events.waitRedraw

	case eventMsg:
		m.message = string(msg)
		return m, m.events.waitMsg

	case pathMsg:
		switch {
		case msg.err != nil:
			m.message = msg.err.Error()
		case !msg.ok:
			m.message = interaction.NoPathMessage
		default:
			m.message = fmt.Sprintf("%s (%d hops)", strings.Join(msg.path, " → "), len(msg.path)-1)
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.focus == focusPath {
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.pathInput.Blur()
			m.focus = focusGraph
			return m, nil
		case "enter":
			fields := strings.Fields(m.pathInput.Value())
			m.pathInput.Blur()
			m.pathInput.SetValue("")
			m.focus = focusGraph
			if len(fields) != 2 {
				m.message = "Enter two node ids"
				return m, nil
			}
			return m, m.findPath(fields[0], fields[1])
		}
		// text input has focus; shortcuts are not forwarded
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Retry):
		if m.loadErr != "" && !m.loading {
			m.loading = true
			m.loadErr = ""
			return m, tea.Batch(m.spinner.Tick, m.retry)
		}
		return m, nil
	case m.loading || m.loadErr != "":
		return m, nil
	case key.Matches(msg, m.keys.Tab):
		if m.focus == focusGraph {
			m.focus = focusNodes
			m.nodes.Focus()
		} else {
			m.focus = focusGraph
			m.nodes.Blur()
		}
		return m, nil
	case key.Matches(msg, m.keys.Path):
		m.focus = focusPath
		m.nodes.Blur()
		return m, m.pathInput.Focus()
	}

	if m.focus == focusNodes {
		return m.handleNodesKey(msg)
	}
	return m.handleGraphKey(msg)
}

func (m model) handleNodesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.session.Controller()
	row := m.nodes.SelectedRow()
	switch {
	case key.Matches(msg, m.keys.Select):
		if row != nil {
			ctrl.Click(row[0], interaction.Modifiers{})
		}
		return m, nil
	case key.Matches(msg, m.keys.Toggle):
		if row != nil {
			ctrl.Click(row[0], interaction.Modifiers{Shift: true})
		}
		return m, nil
	case key.Matches(msg, m.keys.FindPath):
		sel := ctrl.Selection()
		if len(sel) != 2 {
			m.message = "Select exactly two nodes (space) to find a path"
			return m, nil
		}
		return m, m.findPath(sel[0], sel[1])
	case key.Matches(msg, m.keys.Clear):
		return m, m.keyPress(msg)
	}
	var cmd tea.Cmd
	m.nodes, cmd = m.nodes.Update(msg)
	return m, cmd
}

func (m model) handleGraphKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Pan) {
		step := 40.0
		dx, dy := 0.0, 0.0
		switch msg.String() {
		case "up":
			dy = step
		case "down":
			dy = -step
		case "left":
			dx = step
		case "right":
			dx = -step
		}
		m.session.Controller().Viewport(func(v *interaction.Viewport) { v.Pan(dx, dy) })
		return m, nil
	}
	return m, m.keyPress(msg)
}

// keyPress forwards a shortcut to the controller off the update loop;
// layout switches animate and would otherwise block input.
func (m model) keyPress(msg tea.KeyMsg) tea.Cmd {
	ctrl := m.session.Controller()
	ev := interaction.KeyEvent{Key: controllerKey(msg.String())}
	return func() tea.Msg {
		ctrl.KeyPress(ev)
		return nil
	}
}

func (m model) findPath(from, to string) tea.Cmd {
	s, ctx := m.session, m.ctx
	return func() tea.Msg {
		path, ok, err := s.FindPath(ctx, from, to)
		return pathMsg{path: path, ok: ok, err: err}
	}
}

func (m model) retry() tea.Msg {
	return loadedMsg{err: m.session.Retry(m.ctx)}
}

// refreshNodes fills the node table, highest degree first
func (m *model) refreshNodes() {
	g := m.session.Graph()
	rows := make([]table.Row, 0, g.Len())
	for _, n := range g.Nodes {
		rows = append(rows, table.Row{n.ID, n.Label, strconv.Itoa(len(g.Incident(n.ID)))})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		di, _ := strconv.Atoi(rows[i][2])
		dj, _ := strconv.Atoi(rows[j][2])
		if di != dj {
			return di > dj
		}
		return rows[i][0] < rows[j][0]
	})
	m.nodes.SetRows(rows)
}

func (m model) View() string {
	title := titleStyle.Render("saga graph · " + m.session.GraphID())

	if m.loading {
		return lipgloss.JoinVertical(lipgloss.Left, title, "",
			"  "+m.spinner.View()+" Loading graph…")
	}
	if m.loadErr != "" {
		return lipgloss.JoinVertical(lipgloss.Left, title, "",
			"  "+errorStyle.Render(m.loadErr), "", m.help.View(m.keys))
	}

	cols := max(10, m.width-sideWidth-4)
	rows := max(5, m.height-6)
	canvas := canvasStyle
	if m.focus == focusGraph {
		canvas = focusedCanvasStyle
	}
	graphView := canvas.Render(rasterize(capture(m.session), cols, rows).styled())

	body := lipgloss.JoinHorizontal(lipgloss.Top, graphView, m.sidebar())

	bottom := statusStyle.Render(m.statusLine())
	if m.focus == focusPath {
		bottom = " " + m.pathInput.View()
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, body, bottom, m.help.View(m.keys))
}

func (m model) statusLine() string {
	st := m.session.Status()
	parts := []string{
		"layout " + st.Layout,
		"host " + st.HostMode,
		fmt.Sprintf("%d nodes", st.Nodes),
		fmt.Sprintf("%d edges", st.Edges),
	}
	if st.Issues > 0 {
		parts = append(parts, fmt.Sprintf("%d issues", st.Issues))
	}
	var zoom float64
	m.session.Controller().Viewport(func(v *interaction.Viewport) { zoom = v.Zoom() })
	parts = append(parts, fmt.Sprintf("zoom %.2f", zoom))
	return strings.Join(parts, " · ")
}

func (m model) sidebar() string {
	ctrl := m.session.Controller()
	var b strings.Builder

	b.WriteString(m.nodes.View())
	b.WriteString("\n\n")

	sel := ctrl.Selection()
	if len(sel) > 0 {
		b.WriteString("Selected: " + strings.Join(sel, ", ") + "\n")
		if d := m.details(sel[len(sel)-1]); d != "" {
			b.WriteString(d)
		}
	}
	if path := ctrl.Path(); len(path) > 0 {
		b.WriteString("Path: " + strings.Join(path, " → ") + "\n")
	}
	for _, n := range m.session.Notices() {
		b.WriteString(noticeStyle.Render(n) + "\n")
	}
	if m.message != "" {
		b.WriteString(m.message + "\n")
	}
	return sideStyle.Width(sideWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m model) details(id string) string {
	g := m.session.Graph()
	n, ok := g.Node(id)
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "  %s (%s)\n", n.Label, n.Type)
	fmt.Fprintf(&b, "  importance %.0f · %d links\n", n.Importance, len(g.Incident(id)))
	if n.URL != "" {
		fmt.Fprintf(&b, "  %s\n", n.URL)
	}
	return b.String()
}
