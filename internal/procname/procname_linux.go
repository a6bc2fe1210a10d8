//go:build linux

package procname

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Set names the calling OS thread.
func Set(name string) error {
	ptr, err := unix.BytePtrFromString(Truncate(name))
	if err != nil {
		return err
	}
	return unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(ptr)), 0, 0, 0)
}

// Get returns the calling OS thread's name.
func Get() (string, error) {
	var buf [MaxLen + 1]byte
	if err := unix.Prctl(unix.PR_GET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(buf[:]), nil
}
