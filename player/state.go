package player

import "fmt"

// PlayerState is the authoritative playback state every worker polls
type PlayerState uint8

const (
	StateStopped PlayerState = iota
	StateEndOfFile
	stateSeekingInProgress
	stateSeekingSettled
	StatePaused
	StatePlaying
	StateRestarting
)

// Seeking returns the seeking state. inProgress is true from the moment a
// seek is issued until the first frame after the flush has been presented.
func Seeking(inProgress bool) PlayerState {
	if inProgress {
		return stateSeekingInProgress
	}
	return stateSeekingSettled
}

// Seeking reports whether s is a seeking state and whether that seek is still in progress
func (s PlayerState) Seeking() (inProgress bool, ok bool) {
	switch s {
	case stateSeekingInProgress:
		return true, true
	case stateSeekingSettled:
		return false, true
	}
	return false, false
}

func (s PlayerState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateEndOfFile:
		return "end of file"
	case stateSeekingInProgress:
		return "seeking"
	case stateSeekingSettled:
		return "seeked"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	case StateRestarting:
		return "restarting"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// CommandKind selects the trick-play operation carried by a CommandGo
type CommandKind uint8

const (
	CommandNone CommandKind = iota
	CommandPacket
	CommandFrame
	CommandGoMs
	CommandSeek
)

// CommandGo is a pending trick-play request. The sign of N gives the direction.
//
//	Packet(n)  forward n packets now
//	Frame(n)   present the n-th next frame
//	GoMs(ms)   relative skip in milliseconds
//	Seek(t)    absolute seek, t in container ticks (microseconds)
type CommandGo struct {
	Kind CommandKind
	N    int64
}

func NoCommand() CommandGo { return CommandGo{} }
func PacketCommand(n int64) CommandGo { return CommandGo{Kind: CommandPacket, N: n} }
func FrameCommand(n int64) CommandGo { return CommandGo{Kind: CommandFrame, N: n} }
func GoMsCommand(ms int64) CommandGo { return CommandGo{Kind: CommandGoMs, N: ms} }
func SeekCommand(ticks int64) CommandGo { return CommandGo{Kind: CommandSeek, N: ticks} }

// Reverse flips the direction of a relative command. Seek is absolute and
// is returned unchanged.
func (c CommandGo) Reverse() CommandGo {
	if c.Kind == CommandSeek {
		return c
	}
	c.N = -c.N
	return c
}

// ownedByReader reports whether the packet reader consumes this command
func (c CommandGo) ownedByReader() bool {
	switch c.Kind {
	case CommandPacket, CommandGoMs, CommandSeek:
		return true
	}
	return false
}

func (c CommandGo) String() string {
	switch c.Kind {
	case CommandNone:
		return "none"
	case CommandPacket:
		return fmt.Sprintf("packet(%d)", c.N)
	case CommandFrame:
		return fmt.Sprintf("frame(%d)", c.N)
	case CommandGoMs:
		return fmt.Sprintf("go(%dms)", c.N)
	case CommandSeek:
		return fmt.Sprintf("seek(%d)", c.N)
	default:
		return fmt.Sprintf("command(%d)", c.Kind)
	}
}
