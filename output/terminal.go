package output

import (
	"os"

	"golang.org/x/sys/unix"
)

// TerminalSize returns terminal dimensions (cols, rows, widthPx, heightPx)
func TerminalSize() (cols, rows, widthPx, heightPx int, err error) {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return int(ws.Col), int(ws.Row), int(ws.Xpixel), int(ws.Ypixel), nil
}

// VideoArea returns the pixel size left for the picture once reserveRows
// text rows are kept free. Both are 0 when the terminal does not report
// its pixel size.
func VideoArea(cols, rows, widthPx, heightPx, reserveRows int) (int, int) {
	if cols <= 0 || rows <= reserveRows || widthPx <= 0 || heightPx <= 0 {
		return 0, 0
	}
	cellH := heightPx / rows
	return widthPx, heightPx - reserveRows*cellH
}
