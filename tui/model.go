// Package tui is the terminal control surface of the player.
package tui

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/log"
	"github.com/njyeung/kplay/output"
	"github.com/njyeung/kplay/player"
	"github.com/sirupsen/logrus"
)

// telemetryInterval is how often the status line is refreshed
const telemetryInterval = 100 * time.Millisecond

// statusTimeout is how long a status message replaces the status line
const statusTimeout = 2 * time.Second

// reservedRows are the text rows under the picture: status, progress, help
const reservedRows = 3

// resizeSettle is how long the terminal size must hold before the file is
// reloaded at the new picture size
const resizeSettle = 300 * time.Millisecond

// Messages
type (
	openedMsg    struct{ path string }
	openErrorMsg struct {
		path string
		err  error
	}
	tickMsg    time.Time
	repaintMsg struct{}
	resizeMsg  struct{ seq int }
)

type state int

const (
	stateLoading state = iota
	statePlaying
	stateError
)

// Player is the part of player.AVPlayer the UI drives
type Player interface {
	Open(path string) error
	Play() error
	TogglePause() error
	Skip(ms int64) error
	SeekFraction(f float64) error
	StepFrame(n int64) error
	StepPacket(n int64) error
	Restart() error
	MarkTab()
	JumpTab() error
	AdjustVolume(delta float64) float64
	ToggleMute() bool
	SetMaxSize(width, height int)
	Reload() error
	SetLoop(loop bool)
	Telemetry() player.Telemetry
	Close()
}

// Screen is the picture surface the UI sizes and clears
type Screen interface {
	SetTerminalSize(cols, rows, widthPx, heightPx int)
	Repaints() <-chan struct{}
	Clear() error
}

// Config holds the control settings
type Config struct {
	Path       string
	SkipMs     int64
	VolumeStep float64
	Loop       bool

	// TerminalSize reports cells and pixels, output.TerminalSize by default
	TerminalSize func() (cols, rows, widthPx, heightPx int, err error)
}

// Model is the Bubble Tea model
type Model struct {
	state  state
	player Player
	screen Screen
	cfg    Config
	log    *logrus.Entry

	keys     keyMap
	help     help.Model
	progress progress.Model
	spinner  spinner.Model

	path   string
	opened bool
	loop   bool
	tel    player.Telemetry

	width  int
	height int
	err    error

	// picture area last handed to the player, and the pending resize
	areaW, areaH int
	resizeSeq    int

	status   string
	statusAt time.Time
}

// NewModel creates a new TUI model
func NewModel(p Player, screen Screen, cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	if cfg.TerminalSize == nil {
		cfg.TerminalSize = output.TerminalSize
	}

	p.SetLoop(cfg.Loop)

	return Model{
		state:    stateLoading,
		player:   p,
		screen:   screen,
		cfg:      cfg,
		log:      log.For("tui"),
		keys:     newKeyMap(),
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		spinner:  s,
		path:     cfg.Path,
		loop:     cfg.Loop,
		status:   "Opening " + filepath.Base(cfg.Path),
	}
}

// Init initializes the model. The file is opened on the first window size
// so the decoder knows how large the picture may be.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tick(),
		m.waitForRepaint(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(telemetryInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) waitForRepaint() tea.Cmd {
	if m.screen == nil {
		return nil
	}
	ch := m.screen.Repaints()
	return func() tea.Msg {
		<-ch
		return repaintMsg{}
	}
}

// open opens path and starts playing it
func (m Model) open(path string) tea.Cmd {
	p := m.player
	return func() tea.Msg {
		if err := p.Open(path); err != nil {
			return openErrorMsg{path: path, err: err}
		}
		if err := p.Play(); err != nil {
			return openErrorMsg{path: path, err: err}
		}
		return openedMsg{path: path}
	}
}

// sibling opens the file offset positions away in the same directory
func (m Model) sibling(offset int) tea.Cmd {
	next, err := filesystem.Sibling(m.path, offset)
	if err != nil {
		m.log.WithError(err).Warn("list directory")
		return nil
	}
	return m.open(next)
}

// resize sizes the picture area to the terminal minus the text rows. It
// reports whether the area changed.
func (m *Model) resize() bool {
	cols, rows, wpx, hpx, err := m.cfg.TerminalSize()
	if err != nil {
		m.log.WithError(err).Debug("terminal size")
		return false
	}
	if m.screen != nil {
		m.screen.SetTerminalSize(cols, rows, wpx, hpx)
	}
	w, h := output.VideoArea(cols, rows, wpx, hpx, reservedRows)
	if w == m.areaW && h == m.areaH {
		return false
	}
	m.areaW, m.areaH = w, h
	m.player.SetMaxSize(w, h)
	return true
}

// reload reopens the file at its position so the picture is decoded at the
// new size
func (m Model) reload() tea.Cmd {
	p, path := m.player, m.path
	return func() tea.Msg {
		if err := p.Reload(); err != nil {
			return openErrorMsg{path: path, err: err}
		}
		return nil
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.player.Close()
			if m.screen != nil {
				m.screen.Clear()
			}
			return m, tea.Quit
		}
		switch m.state {
		case statePlaying:
			return m.updatePlaying(msg)
		case stateError:
			return m.updateError(msg)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-2, 10)
		changed := m.resize()
		if !m.opened {
			m.opened = true
			return m, m.open(m.path)
		}
		if changed && m.state == statePlaying {
			m.resizeSeq++
			seq := m.resizeSeq
			return m, tea.Tick(resizeSettle, func(time.Time) tea.Msg { return resizeMsg{seq: seq} })
		}

	case resizeMsg:
		if msg.seq == m.resizeSeq && m.state == statePlaying {
			return m, m.reload()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.tel = m.player.Telemetry()
		if m.state == statePlaying && m.status != "" && time.Time(msg).Sub(m.statusAt) > statusTimeout {
			m.status = ""
		}
		return m, tick()

	case repaintMsg:
		m.tel = m.player.Telemetry()
		return m, m.waitForRepaint()

	case openedMsg:
		m.state = statePlaying
		m.path = msg.path
		m.status = ""
		m.tel = m.player.Telemetry()
		m.log.WithField("path", msg.path).Info("playing")
		return m, nil

	case openErrorMsg:
		// a failed open leaves the player stopped with nothing loaded
		m.log.WithError(msg.err).WithField("path", msg.path).Error("open failed")
		if m.screen != nil {
			if err := m.screen.Clear(); err != nil {
				m.log.WithError(err).Debug("clear picture")
			}
		}
		m.state = stateError
		m.path = msg.path
		m.err = fmt.Errorf("cannot open %s: %w", filepath.Base(msg.path), msg.err)
		m.tel = m.player.Telemetry()
		return m, nil
	}

	return m, nil
}

func (m Model) updatePlaying(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var err error

	switch {
	case key.Matches(msg, m.keys.PlayPause):
		err = m.player.TogglePause()
	case key.Matches(msg, m.keys.Forward):
		err = m.player.Skip(m.cfg.SkipMs)
	case key.Matches(msg, m.keys.Backward):
		err = m.player.Skip(-m.cfg.SkipMs)
	case key.Matches(msg, m.keys.VolumeUp):
		v := m.player.AdjustVolume(m.cfg.VolumeStep)
		m.status = fmt.Sprintf("Volume %d%%", int(v*100+0.5))
	case key.Matches(msg, m.keys.VolumeDown):
		v := m.player.AdjustVolume(-m.cfg.VolumeStep)
		m.status = fmt.Sprintf("Volume %d%%", int(v*100+0.5))
	case key.Matches(msg, m.keys.Mute):
		if m.player.ToggleMute() {
			m.status = "Muted"
		} else {
			m.status = ""
		}
	case key.Matches(msg, m.keys.StepFrame):
		err = m.player.StepFrame(1)
	case key.Matches(msg, m.keys.StepPacket):
		err = m.player.StepPacket(1)
	case key.Matches(msg, m.keys.Restart):
		err = m.player.Restart()
	case key.Matches(msg, m.keys.Jump):
		err = m.player.SeekFraction(digitFraction(msg.String()))
	case key.Matches(msg, m.keys.MarkTab):
		m.player.MarkTab()
		m.status = "Marked " + player.FormatDuration(m.player.Telemetry().TabMs)
	case key.Matches(msg, m.keys.JumpTab):
		err = m.player.JumpTab()
	case key.Matches(msg, m.keys.Next):
		return m, m.sibling(1)
	case key.Matches(msg, m.keys.Prev):
		return m, m.sibling(-1)
	case key.Matches(msg, m.keys.Loop):
		m.loop = !m.loop
		m.player.SetLoop(m.loop)
		if m.loop {
			m.status = "Loop on"
		} else {
			m.status = "Loop off"
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	if err != nil {
		m.status = err.Error()
	}
	m.statusAt = time.Now()
	m.tel = m.player.Telemetry()
	return m, nil
}

// updateError handles keys while nothing is loaded: another file of the
// directory can still be opened
func (m Model) updateError(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.keys.Next):
		cmd = m.sibling(1)
	case key.Matches(msg, m.keys.Prev):
		cmd = m.sibling(-1)
	}
	if cmd != nil {
		m.state = stateLoading
	}
	return m, cmd
}

// digitFraction maps "0".."9" to 0.0..0.9
func digitFraction(s string) float64 {
	if len(s) != 1 || s[0] < '0' || s[0] > '9' {
		return 0
	}
	return float64(s[0]-'0') / 10
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case stateLoading:
		return m.viewLoading()
	case stateError:
		return m.viewError()
	case statePlaying:
		return m.viewPlayer()
	default:
		return ""
	}
}
