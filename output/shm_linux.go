//go:build linux

package output

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/njyeung/kplay/filesystem"
	"golang.org/x/sys/unix"
)

// ShmSupported reports whether frames can be handed to the terminal through
// /dev/shm. It talks to the terminal on stdin/stdout, so it must run before
// the UI takes them over.
func ShmSupported() bool {
	if ok, _ := filesystem.API().DirExists(shmDir); !ok {
		return false
	}
	return probeShm(os.Stdin, os.Stdout)
}

// probeShm asks the terminal to display a 1x1 image from shared memory,
// without q= so it has to answer. A terminal that can do it replies
// \x1b_Gi=999;OK\x1b\\, anything else errors or stays silent.
func probeShm(in, out *os.File) bool {
	restore, err := rawMode(int(in.Fd()))
	if err != nil {
		return false
	}
	defer restore()

	// drop whatever input is already pending
	in.Read(make([]byte, 256))

	fs := filesystem.API()
	path := shmDir + probeName
	if err := fs.WriteFile(path, []byte{0, 0, 0}, 0o600); err != nil {
		return false
	}
	defer fs.Remove(path)

	name := base64.StdEncoding.EncodeToString([]byte(probeName))
	fmt.Fprintf(out, "\x1b_Ga=T,f=24,s=1,v=1,i=%d,t=s;%s\x1b\\", probeImageID, name)

	reply := make([]byte, 256)
	n, _ := in.Read(reply)

	fmt.Fprintf(out, "\x1b_Ga=d,d=i,i=%d,q=2\x1b\\", probeImageID)

	return shmReplyOK(reply[:n])
}

// rawMode switches the terminal to unbuffered reads with a 200ms timeout
func rawMode(fd int) (func(), error) {
	old, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	raw := *old
	raw.Lflag &^= unix.ECHO | unix.ICANON | unix.ISIG
	raw.Iflag &^= unix.IXON | unix.ICRNL
	raw.Cc[unix.VMIN] = 0
	raw.Cc[unix.VTIME] = 2
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return nil, err
	}
	return func() { unix.IoctlSetTermios(fd, unix.TCSETS, old) }, nil
}
