package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pneustab/internal/config"
	"github.com/san-kum/pneustab/internal/control"
	"github.com/san-kum/pneustab/internal/experiment"
	"github.com/san-kum/pneustab/internal/physics"
	"github.com/san-kum/pneustab/internal/pneumo"
	"github.com/san-kum/pneustab/internal/realtime"
	"github.com/san-kum/pneustab/internal/sim"
)

const (
	frameRate   = 60
	historySize = 240
	// receiverStep scales the receiver volume per +/- press.
	receiverStep = 1.1
)

// Session is the part of a live simulation session the dashboard drives.
type Session interface {
	Start() error
	Pause() error
	Reset() error
	Status() sim.Status
	LatestSnapshot() (sim.Snapshot, bool)
	Performance() realtime.PerformanceSummary
	DroppedSnapshots() uint64
	Err() error
	SetValvePolicy(control.Policy) error
	SetValves(pneumo.ValveCommand) error
	SetReceiverVolume(volume float64) error
}

// PolicyFactory builds a named valve policy.
type PolicyFactory func(name string) (control.Policy, error)

type Options struct {
	Theme    string
	Policy   string
	Policies []string
	// NewPolicy and Policies default to the experiment registry with the
	// default configuration.
	NewPolicy PolicyFactory
	Body      physics.BodyParams
}

type TickMsg time.Time

// Model is the Bubble Tea model of the live dashboard.
type Model struct {
	sess    Session
	opts    Options
	theme   Theme
	st      styles
	geom    Geometry
	rear    *Canvas
	side    *Canvas
	snap    sim.Snapshot
	hasSnap bool

	policy  int
	manual  pneumo.ValveCommand
	message string
	err     error

	roll  []float64
	pitch []float64
	heave []float64

	showHelp bool
	width    int
	height   int
}

func NewModel(sess Session, opts Options) Model {
	if opts.NewPolicy == nil || len(opts.Policies) == 0 {
		reg := experiment.NewRegistry()
		if opts.NewPolicy == nil {
			cfg := config.DefaultConfig()
			opts.NewPolicy = func(name string) (control.Policy, error) {
				return reg.Policy(name, cfg)
			}
		}
		if len(opts.Policies) == 0 {
			opts.Policies = reg.ListPolicies()
		}
	}
	if opts.Body.Mass == 0 {
		opts.Body = physics.DefaultBodyParams()
	}
	theme := GetTheme(opts.Theme)

	policy := 0
	for i, name := range opts.Policies {
		if name == opts.Policy {
			policy = i
		}
	}

	return Model{
		sess:   sess,
		opts:   opts,
		theme:  theme,
		st:     newStyles(theme),
		geom:   GeometryFrom(opts.Body),
		rear:   NewCanvas(30, 8),
		side:   NewCanvas(30, 8),
		policy: policy,
		width:  120,
		height: 40,
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case TickMsg:
		m.poll()
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "space":
		if m.sess.Status() == sim.StatusRunning {
			m.report("paused", m.sess.Pause())
		} else {
			m.report("running", m.sess.Start())
		}
	case "r":
		m.manual = pneumo.ValveCommand{}
		m.roll, m.pitch, m.heave = nil, nil, nil
		m.report("reset", m.sess.Reset())
	case "p":
		m.cyclePolicy()
	case "1", "2", "3", "4":
		m.toggleValve(int(key[0]-'1'), true)
	case "5", "6", "7", "8":
		m.toggleValve(int(key[0]-'5'), false)
	case "+", "=":
		m.scaleReceiver(receiverStep)
	case "-", "_":
		m.scaleReceiver(1 / receiverStep)
	case "t":
		m.theme = nextTheme(m.theme)
		m.st = newStyles(m.theme)
		m.message = "theme: " + m.theme.Name
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) report(ok string, err error) {
	m.err = err
	if err != nil {
		m.message = err.Error()
		return
	}
	m.message = ok
}

func (m *Model) cyclePolicy() {
	next := (m.policy + 1) % len(m.opts.Policies)
	name := m.opts.Policies[next]
	p, err := m.opts.NewPolicy(name)
	if err != nil {
		m.report("", err)
		return
	}
	if err := m.sess.SetValvePolicy(p); err != nil {
		m.report("", err)
		return
	}
	m.policy = next
	m.manual = pneumo.ValveCommand{}
	m.report("policy: "+name, nil)
}

func (m Model) policyName() string { return m.opts.Policies[m.policy] }

// toggleValve flips one valve of a line. Valve keys only act under the
// manual policy; other policies overwrite the command every tick.
func (m *Model) toggleValve(line int, tank bool) {
	if m.policyName() != control.NameManual {
		m.message = "valve keys need the manual policy (p)"
		return
	}
	v := &m.manual[line]
	label := "vent"
	if tank {
		v.Tank = 1 - math.Round(v.Tank)
		label = "tank"
	} else {
		v.Atmosphere = 1 - math.Round(v.Atmosphere)
	}
	m.report(fmt.Sprintf("%s %s toggled", pneumo.Topology[line].Name, label), m.sess.SetValves(m.manual))
}

func (m *Model) scaleReceiver(f float64) {
	if !m.hasSnap {
		return
	}
	r := m.snap.Receiver
	if !r.VariableVolume {
		m.message = "receiver volume is fixed"
		return
	}
	vol := r.Volume * f
	m.report(fmt.Sprintf("receiver volume %.1f L", vol*1000), m.sess.SetReceiverVolume(vol))
}

// poll takes the newest published snapshot, if any, without blocking.
func (m *Model) poll() {
	if err := m.sess.Err(); err != nil {
		m.err = err
	}
	snap, ok := m.sess.LatestSnapshot()
	if !ok {
		return
	}
	m.snap, m.hasSnap = snap, true
	m.roll = push(m.roll, snap.Body.Roll*180/math.Pi)
	m.pitch = push(m.pitch, snap.Body.Pitch*180/math.Pi)
	m.heave = push(m.heave, snap.Body.Heave*1000)
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historySize {
		h = h[len(h)-historySize:]
	}
	return h
}

func (m Model) View() string {
	title := lipgloss.NewStyle().Bold(true).Foreground(m.theme.Primary).
		Render(fmt.Sprintf("PNEUSTAB  %s  policy=%s", m.statusText(), m.policyName()))

	if m.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left, title, m.st.panel.Render(helpText))
	}

	drawRear(m.rear, m.geom, m.snap.Body, m.snap.Excitation)
	drawSide(m.side, m.geom, m.snap.Body, m.snap.Excitation)
	views := lipgloss.JoinHorizontal(lipgloss.Top,
		m.st.panel.Render(m.st.header.Render("REAR")+"\n"+m.st.graph.Render(m.rear.String())),
		m.st.panel.Render(m.st.header.Render("SIDE")+"\n"+m.st.graph.Render(m.side.String())),
		m.st.panel.Render(m.bodyPanel()),
	)

	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		m.st.panel.Render(m.linesPanel()),
		m.st.panel.Render(m.valvesPanel()),
		m.st.panel.Render(m.energyPanel()),
	)

	footer := m.st.muted.Render("space run/pause  r reset  p policy  1-8 valves  +/- receiver  t theme  ? help  q quit")
	if m.message != "" {
		style := m.st.value
		if m.err != nil {
			style = m.st.bad
		}
		footer = style.Render(m.message) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, views, m.graphs(), stats, footer)
}

func (m Model) statusText() string {
	s := m.sess.Status()
	switch s {
	case sim.StatusRunning:
		return m.st.good.Render(s.String())
	case sim.StatusHalted:
		return m.st.bad.Render(s.String())
	default:
		return m.st.warn.Render(s.String())
	}
}

func (m Model) bodyPanel() string {
	b := m.snap.Body
	var sb strings.Builder
	sb.WriteString(m.st.header.Render("BODY") + "\n")
	m.row(&sb, "time", fmt.Sprintf("%.3f s", m.snap.Time))
	m.row(&sb, "step", fmt.Sprintf("%d (%s)", m.snap.Step, m.snap.Method))
	m.row(&sb, "heave", fmt.Sprintf("%+.2f mm", b.Heave*1000))
	m.row(&sb, "roll", fmt.Sprintf("%+.3f°", b.Roll*180/math.Pi))
	m.row(&sb, "pitch", fmt.Sprintf("%+.3f°", b.Pitch*180/math.Pi))
	m.row(&sb, "road", fmt.Sprintf("%.1f mm", m.snap.Excitation.MaxAbs()*1000))
	m.row(&sb, "roll trend", m.st.graph.Render(Sparkline(m.roll, 16)))
	if m.snap.Diag.Warnings > 0 {
		sb.WriteString(m.st.warn.Render(fmt.Sprintf("%d warnings", m.snap.Diag.Warnings)) + "\n")
		sb.WriteString(m.st.muted.Render(truncate(m.snap.Diag.LastWarning, 28)))
	}
	return sb.String()
}

func (m Model) graphs() string {
	if len(m.roll) < 2 {
		return m.st.muted.Render("  waiting for data...")
	}
	plot := func(data []float64, caption string) string {
		return m.st.panel.Render(m.st.graph.Render(
			asciigraph.Plot(data, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption(caption))))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		plot(m.roll, "roll (deg)"),
		plot(m.pitch, "pitch (deg)"),
		plot(m.heave, "heave (mm)"),
	)
}

func (m Model) linesPanel() string {
	var sb strings.Builder
	sb.WriteString(m.st.header.Render("LINES") + "\n")
	for i, l := range m.snap.Lines {
		m.row(&sb, pneumo.Topology[i].Name,
			fmt.Sprintf("%6.1f kPa %5.1f K", l.Pressure/1000, l.Temperature))
	}
	r := m.snap.Receiver
	m.row(&sb, "receiver", fmt.Sprintf("%6.1f kPa %5.1f L", r.Pressure/1000, r.Volume*1000))
	return sb.String()
}

func (m Model) valvesPanel() string {
	var sb strings.Builder
	sb.WriteString(m.st.header.Render("VALVES  tank / vent") + "\n")
	for i, v := range m.snap.Valves {
		fmt.Fprintf(&sb, "%-3s %s %s\n", pneumo.Topology[i].Name,
			m.st.good.Render(OpeningBar(v.Tank, 8)), m.st.warn.Render(OpeningBar(v.Atmosphere, 8)))
	}
	m.row(&sb, "flow", fmt.Sprintf("%.4f kg", m.snap.Diag.CumulativeFlow))
	m.row(&sb, "exhausted", fmt.Sprintf("%.4f kg", m.snap.Diag.ExhaustedMass))
	return sb.String()
}

func (m Model) energyPanel() string {
	e := m.snap.Diag.Energy
	perf := m.sess.Performance()
	var sb strings.Builder
	sb.WriteString(m.st.header.Render("ENERGY / PERF") + "\n")
	m.row(&sb, "kinetic", fmt.Sprintf("%.2f J", e.Kinetic))
	m.row(&sb, "potential", fmt.Sprintf("%.2f J", e.Potential))
	m.row(&sb, "pneumatic", fmt.Sprintf("%.2f J", e.Pneumatic))
	m.row(&sb, "fps", fmt.Sprintf("%.0f / %.0f", perf.MeasuredFPS, perf.TargetFPS))
	m.row(&sb, "rtf", fmt.Sprintf("%.2fx", perf.RealtimeFactor))
	m.row(&sb, "step", fmt.Sprintf("%s avg %s max", perf.AvgStep.Round(time.Microsecond), perf.MaxStep.Round(time.Microsecond)))
	m.row(&sb, "dropped", fmt.Sprintf("%d", m.sess.DroppedSnapshots()))
	return sb.String()
}

func (m Model) row(sb *strings.Builder, label, value string) {
	sb.WriteString(m.st.label.Render(label) + m.st.value.Render(value) + "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

const helpText = `KEY BINDINGS

  space   start / pause the driver
  r       reset to the initial state
  p       cycle valve policy
  1-4     toggle tank valve of A1 B1 A2 B2 (manual policy)
  5-8     toggle vent valve of A1 B1 A2 B2 (manual policy)
  + / -   grow / shrink a variable-volume receiver
  t       cycle theme
  ?       toggle this help
  q       quit`
