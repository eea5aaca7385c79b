package output

import (
	"bytes"
	"fmt"
)

const (
	probeImageID = 999
	probeName    = "/kplay-probe"
)

// shmReplyOK checks the graphics reply to the shared memory probe
func shmReplyOK(reply []byte) bool {
	return bytes.Contains(reply, fmt.Appendf(nil, "i=%d;OK", probeImageID))
}
