package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	PlayPause  key.Binding
	Forward    key.Binding
	Backward   key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	Mute       key.Binding
	StepFrame  key.Binding
	StepPacket key.Binding
	Restart    key.Binding
	Jump       key.Binding
	MarkTab    key.Binding
	JumpTab    key.Binding
	Next       key.Binding
	Prev       key.Binding
	Loop       key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		PlayPause: key.NewBinding(
			key.WithKeys(" ", "space"),
			key.WithHelp("space", "play/pause"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "forward"),
		),
		Backward: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "back"),
		),
		VolumeUp: key.NewBinding(
			key.WithKeys("up", "k", "+"),
			key.WithHelp("↑/k", "volume up"),
		),
		VolumeDown: key.NewBinding(
			key.WithKeys("down", "j", "-"),
			key.WithHelp("↓/j", "volume down"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		StepFrame: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "next frame"),
		),
		StepPacket: key.NewBinding(
			key.WithKeys(","),
			key.WithHelp(",", "next packet"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart"),
		),
		Jump: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "jump to 0%-90%"),
		),
		MarkTab: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "mark position"),
		),
		JumpTab: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "back to mark"),
		),
		Next: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next file"),
		),
		Prev: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous file"),
		),
		Loop: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "loop"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PlayPause, k.Backward, k.Forward, k.Mute, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PlayPause, k.Backward, k.Forward, k.Jump, k.Restart},
		{k.VolumeUp, k.VolumeDown, k.Mute, k.Loop},
		{k.StepFrame, k.StepPacket, k.MarkTab, k.JumpTab},
		{k.Next, k.Prev, k.Help, k.Quit},
	}
}
