//go:build !linux

package procname

import "errors"

var errUnsupported = errors.New("thread naming not supported on this platform")

// Set is a no-op outside linux.
func Set(string) error { return errUnsupported }

// Get is a no-op outside linux.
func Get() (string, error) { return "", errUnsupported }
