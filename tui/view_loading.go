package tui

import (
	"fmt"
	"strings"
)

var logo = []string{
	" _  _______  _        _ __   __",
	"| |/ /  __ \\| |      / \\\\ \\ / /",
	"| ' /| |__) | |     / _ \\\\ V / ",
	"|  < |  ___/| |___ / ___ \\| |  ",
	"|_|\\_\\_|    |_____/_/   \\_\\_|  ",
}

func (m Model) viewLoading() string {
	if m.width == 0 || m.height == 0 {
		return fmt.Sprintf("\n\n   %s %s\n\n", m.spinner.View(), m.status)
	}

	return renderLoadingScreen(m.width, m.height, m.spinner.View()+" "+m.status)
}

func renderLoadingScreen(width, height int, status string) string {
	startRow := (height - len(logo) - 2) / 2

	var b strings.Builder
	for y := range height {
		switch {
		case y >= startRow && y < startRow+len(logo):
			b.WriteString(center(titleStyle.Render(logo[y-startRow]), len(logo[y-startRow]), width))
		case y == startRow+len(logo)+1:
			b.WriteString(center(status, len([]rune(status)), width))
		}
		if y < height-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// center pads s, textWidth cells wide once rendered, to the middle of width
func center(s string, textWidth, width int) string {
	pad := max(width-textWidth, 0)
	return strings.Repeat(" ", pad/2) + s
}
