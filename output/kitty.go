// Package output holds the audio device and the terminal video sink.
package output

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"sync"

	"github.com/njyeung/kplay/filesystem"
	"github.com/njyeung/kplay/log"
	"github.com/njyeung/kplay/player"
	"github.com/sirupsen/logrus"
)

const (
	// VideoImageID is the kitty image id every frame replaces
	VideoImageID = 1

	// chunkSize is the kitty limit for one escape sequence payload
	chunkSize = 4096

	shmDir  = "/dev/shm"
	shmName = "/kplay-frame"
)

// KittyRenderer renders frames using Kitty's graphics protocol. It
// implements player.VideoSink.
type KittyRenderer struct {
	mu sync.Mutex

	out     io.Writer
	imageID int
	lastW   int
	lastH   int

	// Cell position for placement (1-indexed row/col)
	cellRow int
	cellCol int

	// Terminal dimensions in cells and pixels
	termCols     int
	termRows     int
	termWidthPx  int
	termHeightPx int

	useShm bool
	frames int

	repaint chan struct{}
	log     *logrus.Entry
}

// NewKittyRenderer creates a new Kitty graphics renderer
func NewKittyRenderer(out io.Writer) *KittyRenderer {
	return &KittyRenderer{
		out:     out,
		imageID: VideoImageID,
		repaint: make(chan struct{}, 1),
		log:     log.For("kitty"),
	}
}

// SetUseShm switches frame transmission to shared memory files
func (r *KittyRenderer) SetUseShm(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.useShm = v
}

// SetTerminalSize sets the terminal dimensions (cells and pixels)
func (r *KittyRenderer) SetTerminalSize(cols, rows, widthPx, heightPx int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.termCols = cols
	r.termRows = rows
	r.termWidthPx = widthPx
	r.termHeightPx = heightPx

	if r.lastW > 0 {
		r.centerLocked(r.lastW, r.lastH)
	}
}

// centerLocked places a picture of the given pixel size in the middle of the terminal
func (r *KittyRenderer) centerLocked(videoWidth, videoHeight int) {
	if r.termCols <= 0 || r.termRows <= 0 || r.termWidthPx <= 0 || r.termHeightPx <= 0 {
		return
	}

	cellW := max(r.termWidthPx/r.termCols, 1)
	cellH := max(r.termHeightPx/r.termRows, 1)

	videoCols := (videoWidth + cellW - 1) / cellW
	videoRows := (videoHeight + cellH - 1) / cellH

	r.cellCol = max((r.termCols-videoCols)/2+1, 1)
	r.cellRow = max((r.termRows-videoRows)/2+1, 1)
}

// Position returns the 1-indexed cell the picture is drawn at
func (r *KittyRenderer) Position() (row, col int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cellRow, r.cellCol
}

// Frames returns how many frames have been rendered
func (r *KittyRenderer) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Render draws a frame, replacing the previous one
func (r *KittyRenderer) Render(frame *player.VideoPlayFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if frame.Width != r.lastW || frame.Height != r.lastH {
		r.centerLocked(frame.Width, frame.Height)
	}

	// Buffer the entire frame to write atomically
	var buf bytes.Buffer

	// Begin synchronized update
	buf.WriteString("\x1b[?2026h")
	buf.WriteString("\x1b7")

	if r.lastW > 0 && (frame.Width != r.lastW || frame.Height != r.lastH) {
		fmt.Fprintf(&buf, "\x1b_Ga=d,d=i,i=%d,q=2\x1b\\", r.imageID)
	}

	if r.cellRow > 0 && r.cellCol > 0 {
		fmt.Fprintf(&buf, "\x1b[%d;%dH", r.cellRow, r.cellCol)
	} else {
		buf.WriteString("\x1b[H")
	}

	if r.useShm {
		if err := r.writeShmLocked(&buf, frame); err != nil {
			r.log.WithError(err).Warn("shared memory transmission failed, falling back to direct")
			r.useShm = false
			writeDirect(&buf, frame, r.imageID)
		}
	} else {
		writeDirect(&buf, frame, r.imageID)
	}

	r.lastW = frame.Width
	r.lastH = frame.Height
	r.frames++

	buf.WriteString("\x1b8")
	buf.WriteString("\x1b[?2026l")

	_, err := r.out.Write(buf.Bytes())
	return err
}

// writeDirect transmits the pixels inline, base64 encoded in chunks
//
// Keys:
//
//	a=T - action: transmit and display
//	f=24 - format: 24-bit RGB
//	s=W, v=H - size in pixels
//	i=ID - image ID for updates
//	q=2 - quiet mode (suppress responses)
//	m=1 - more chunks follow
func writeDirect(buf *bytes.Buffer, frame *player.VideoPlayFrame, imageID int) {
	encoded := base64.StdEncoding.EncodeToString(frame.Pixels)

	first := true
	for first || len(encoded) > 0 {
		chunk := encoded
		more := 0
		if len(chunk) > chunkSize {
			chunk = encoded[:chunkSize]
			encoded = encoded[chunkSize:]
			more = 1
		} else {
			encoded = ""
		}

		if first {
			fmt.Fprintf(buf, "\x1b_Ga=T,f=24,s=%d,v=%d,i=%d,q=2,m=%d;%s\x1b\\",
				frame.Width, frame.Height, imageID, more, chunk)
			first = false
		} else {
			fmt.Fprintf(buf, "\x1b_Gm=%d;%s\x1b\\", more, chunk)
		}
	}
}

// writeShmLocked hands the pixels over in a /dev/shm file. The terminal
// unlinks the file once it has read it.
func (r *KittyRenderer) writeShmLocked(buf *bytes.Buffer, frame *player.VideoPlayFrame) error {
	name := fmt.Sprintf("%s-%d", shmName, r.frames%2)
	if err := filesystem.API().WriteFile(shmDir+name, frame.Pixels, 0o600); err != nil {
		return fmt.Errorf("write shm frame: %w", err)
	}

	encodedName := base64.StdEncoding.EncodeToString([]byte(name))
	fmt.Fprintf(buf, "\x1b_Ga=T,f=24,s=%d,v=%d,i=%d,q=2,t=s,S=%d;%s\x1b\\",
		frame.Width, frame.Height, r.imageID, len(frame.Pixels), encodedName)
	return nil
}

// RequestRepaint tells the UI a new frame is on screen. It never blocks.
func (r *KittyRenderer) RequestRepaint() {
	select {
	case r.repaint <- struct{}{}:
	default:
	}
}

// Repaints delivers a value after each RequestRepaint, coalesced
func (r *KittyRenderer) Repaints() <-chan struct{} {
	return r.repaint
}

// Clear deletes the picture from the terminal
func (r *KittyRenderer) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastW, r.lastH = 0, 0
	_, err := fmt.Fprintf(r.out, "\x1b_Ga=d,d=i,i=%d,q=2\x1b\\", r.imageID)
	return err
}
