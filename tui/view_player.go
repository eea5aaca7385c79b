package tui

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/njyeung/kplay/player"
)

func stateIcon(t player.Telemetry) string {
	switch t.State {
	case player.StatePlaying, player.StateRestarting:
		return "▶"
	case player.StatePaused:
		return "❚❚"
	case player.StateEndOfFile, player.StateStopped:
		return "■"
	}
	if _, ok := t.State.Seeking(); ok {
		return "»"
	}
	return " "
}

// statusLine is "▶ name   00:12 / 03:40  [muted] [loop]" fit to width
func (m Model) statusLine(width int) string {
	right := m.tel.Text()
	if m.tel.Muted {
		right += "  muted"
	} else {
		right += "  vol " + volumeText(m.tel.Volume)
	}
	if m.loop {
		right += "  loop"
	}

	icon := stateIcon(m.tel)
	nameWidth := width - runewidth.StringWidth(icon) - runewidth.StringWidth(right) - 4
	name := ""
	if nameWidth > 0 {
		name = runewidth.Truncate(filepath.Base(m.path), nameWidth, "…")
	}
	gap := max(width-runewidth.StringWidth(icon)-1-runewidth.StringWidth(name)-runewidth.StringWidth(right), 1)

	return stateStyle.Render(icon) + " " + fileStyle.Render(name) + strings.Repeat(" ", gap) + timeStyle.Render(right)
}

func volumeText(v float64) string {
	return strconv.Itoa(int(v*100+0.5)) + "%"
}

// viewPlayer leaves the top of the screen to the picture and draws the
// controls in the reserved rows at the bottom
func (m Model) viewPlayer() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	helpView := m.help.View(m.keys)
	helpRows := strings.Count(helpView, "\n") + 1

	b.WriteString(strings.Repeat("\n", max(m.height-2-helpRows, 0)))

	line := m.statusLine(m.width)
	if m.status != "" {
		line = statusStyle.Render(runewidth.Truncate(m.status, m.width, "…"))
	}
	b.WriteString(line + "\n")
	b.WriteString(m.progress.ViewAs(m.tel.Progress()) + "\n")
	b.WriteString(helpView)

	return b.String()
}
