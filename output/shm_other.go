//go:build !linux

package output

// ShmSupported is false where /dev/shm does not exist
func ShmSupported() bool {
	return false
}
