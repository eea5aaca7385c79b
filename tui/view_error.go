package tui

import "fmt"

func (m Model) viewError() string {
	return fmt.Sprintf("\n\n   %s\n\n   %s\n\n   Press n or p for another file, q to quit.\n",
		stateStyle.Render("■ stopped"),
		errorStyle.Render(m.err.Error()),
	)
}
