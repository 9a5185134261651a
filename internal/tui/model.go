// Package tui provides the Bubble Tea gesture capture interface.
package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tuipass/internal/canvas"
	"github.com/verte-zerg/tuipass/internal/gesture"
	"github.com/verte-zerg/tuipass/internal/logging"
	"github.com/verte-zerg/tuipass/internal/model"
	"github.com/verte-zerg/tuipass/internal/session"
)

const (
	defaultWidth     = 80
	defaultHeight    = 24
	defaultFrameRate = 30
	// Header, progress, status and help lines around the drawing field.
	chromeLines = 4
)

var (
	fieldStyles = map[session.Mode]lipgloss.Style{
		session.Idle:      lipgloss.NewStyle().Background(lipgloss.Color("#161616")).Foreground(lipgloss.Color("#8C8C8C")),
		session.Recording: lipgloss.NewStyle().Background(lipgloss.Color("#2A1414")).Foreground(lipgloss.Color("#FF7875")),
		session.Verifying: lipgloss.NewStyle().Background(lipgloss.Color("#14202E")).Foreground(lipgloss.Color("#69B1FF")),
	}
	statusStyles = map[session.Outcome]lipgloss.Style{
		session.OutcomeInfo:      lipgloss.NewStyle().Foreground(lipgloss.Color("#B0B0B0")),
		session.OutcomeRecording: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF7875")),
		session.OutcomeVerifying: lipgloss.NewStyle().Foreground(lipgloss.Color("#69B1FF")),
		session.OutcomeAccepted:  lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true),
		session.OutcomeRejected:  lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true),
		session.OutcomeWarning:   lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")),
	}
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	enrolledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	missingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

type frameMsg time.Time

type trailPoint struct {
	x, y  int
	click bool
}

// Model implements the Bubble Tea capture UI.
type Model struct {
	session *session.Session
	config  model.Config
	logger  *slog.Logger

	keys     keyMap
	help     help.Model
	progress progress.Model

	width  int
	height int

	// trail holds the accepted samples of the current or last window in
	// screen cells.
	trail []trailPoint
}

// NewModel constructs a capture UI model.
func NewModel(sess *session.Session, cfg model.Config, logger *slog.Logger) *Model {
	if logger == nil {
		logger = logging.Discard()
	}
	bar := progress.New(progress.WithGradient("#C89A3A", "#FF4D4F"), progress.WithoutPercentage())
	m := &Model{
		session:  sess,
		config:   cfg,
		logger:   logger,
		keys:     newKeyMap(),
		help:     help.New(),
		progress: bar,
	}
	m.resize(defaultWidth, defaultHeight)
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) tick() tea.Cmd {
	rate := m.config.FrameRate
	if rate <= 0 {
		rate = defaultFrameRate
	}
	return tea.Tick(time.Second/time.Duration(rate), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case frameMsg:
		if m.session.Poll() {
			m.logger.Debug("window closed by deadline")
		}
		return m, m.tick()
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.keys.Quit.Matches(msg):
		return m, tea.Quit
	case m.keys.Enroll.Matches(msg):
		m.trail = nil
		m.session.BeginEnroll()
	case m.keys.Verify.Matches(msg):
		m.session.BeginVerify()
		if m.session.Mode() != session.Idle {
			m.trail = nil
		}
	case m.keys.Reset.Matches(msg):
		m.trail = nil
		m.session.Reset()
	case m.keys.Finish.Matches(msg):
		m.session.Finish()
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	if m.session.Mode() == session.Idle {
		return
	}
	kind, ok := sampleKind(msg)
	if !ok {
		return
	}
	before := len(m.session.Buffer())
	m.session.RecordSample(kind, gesture.Point{
		X: float64(msg.X),
		Y: float64(msg.Y) * m.cellAspect(),
	})
	if len(m.session.Buffer()) > before {
		m.trail = append(m.trail, trailPoint{x: msg.X, y: msg.Y, click: kind == gesture.Click})
	}
}

// sampleKind maps a mouse event to a sample kind. Wheel and release events
// are not samples.
func sampleKind(msg tea.MouseMsg) (gesture.Kind, bool) {
	switch msg.Action {
	case tea.MouseActionMotion:
		return gesture.Move, true
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft, tea.MouseButtonMiddle, tea.MouseButtonRight:
			return gesture.Click, true
		}
	}
	return 0, false
}

func (m *Model) cellAspect() float64 {
	if m.config.CellAspect <= 0 {
		return 1
	}
	return m.config.CellAspect
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	m.progress.Width = max(width-12, 10)
}

// View implements tea.Model.
func (m *Model) View() string {
	fieldHeight := max(m.height-chromeLines, 1)
	lines := []string{
		m.renderHeader(),
		m.renderField(fieldHeight),
		m.renderProgress(),
		m.renderStatus(),
		m.help.View(m.keys),
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderHeader() string {
	segments := []string{titleStyle.Render("tuipass"), mutedStyle.Render(m.session.Mode().String())}
	if m.session.HasReference() {
		segments = append(segments, enrolledStyle.Render("● enrolled"))
	} else {
		segments = append(segments, missingStyle.Render("○ not enrolled"))
	}
	if failed := m.session.FailedAttempts(); failed > 0 {
		segments = append(segments, failedStyle.Render(fmt.Sprintf("failed %d", failed)))
	}
	return strings.Join(segments, "  ")
}

// renderField draws the trail on the rows between the header and the
// progress line. Trail coordinates are screen cells, so row 0 of the field is
// screen row 1.
func (m *Model) renderField(height int) string {
	c := canvas.New(m.width, height)
	for i, p := range m.trail {
		if i > 0 {
			prev := m.trail[i-1]
			c.Line(prev.x, prev.y-1, p.x, p.y-1, canvas.PathRune)
		}
	}
	for i, p := range m.trail {
		switch {
		case p.click:
			c.Set(p.x, p.y-1, canvas.ClickRune)
		case i == 0:
			c.Set(p.x, p.y-1, canvas.StartRune)
		default:
			c.Set(p.x, p.y-1, canvas.PointRune)
		}
	}
	if len(m.trail) == 0 {
		hint := m.fieldHint()
		c.Text((m.width-len(hint))/2, height/2, hint)
	}
	style := fieldStyles[m.session.Mode()]
	return lipgloss.Place(m.width, height, lipgloss.Left, lipgloss.Top, style.Render(c.String()),
		lipgloss.WithWhitespaceBackground(style.GetBackground()))
}

func (m *Model) fieldHint() string {
	switch m.session.Mode() {
	case session.Recording:
		return "draw your gesture here"
	case session.Verifying:
		return "repeat your gesture here"
	default:
		return "press r to record, v to verify"
	}
}

func (m *Model) renderProgress() string {
	if m.session.Mode() == session.Idle {
		return mutedStyle.Render(m.scoreLine())
	}
	window := m.session.Params().Window
	remaining := m.session.Remaining()
	fraction := 0.0
	if window > 0 {
		fraction = float64(remaining) / float64(window)
	}
	return fmt.Sprintf("%s %4.1fs", m.progress.ViewAs(fraction), remaining.Seconds())
}

func (m *Model) scoreLine() string {
	score, ok := m.session.LastScore()
	if !ok {
		return ""
	}
	if score.ClickMismatch {
		return "last: click count differs"
	}
	return fmt.Sprintf("last: position %.2f · time %.2f · sequence %.2f · similarity %.3f",
		score.Position, score.Time, score.Sequence, score.Similarity)
}

func (m *Model) renderStatus() string {
	status := m.session.Status()
	style, ok := statusStyles[status.Outcome]
	if !ok {
		style = statusStyles[session.OutcomeInfo]
	}
	return style.Render(status.Message)
}
