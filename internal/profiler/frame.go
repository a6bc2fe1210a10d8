package profiler

import (
	"path/filepath"
	"strconv"
	"strings"
)

// rootMarker stands in for the caller of a frame that has none.
const rootMarker = "---"

// Location is the static position of a function in source.
type Location struct {
	File   string
	Line   int // first line of the function
	Symbol string
}

// ID returns the simple identity "file:line:symbol".
func (l Location) ID() string {
	return l.File + ":" + strconv.Itoa(l.Line) + ":" + l.Symbol
}

// Unit returns the file qualified by its directory, e.g. "events/consumer.go".
func (l Location) Unit() string {
	dir := filepath.Base(filepath.Dir(l.File))
	if dir == "." || dir == "/" || dir == "" {
		return filepath.Base(l.File)
	}
	return dir + "/" + filepath.Base(l.File)
}

// Stack is a sampled call stack, innermost frame first.
type Stack []Location

// GUID returns the call-site identity "<caller id>><self id>". It depends
// only on the two innermost locations.
func (s Stack) GUID() string {
	if len(s) == 0 {
		return ""
	}
	base := rootMarker
	if len(s) > 1 {
		base = s[1].ID()
	}
	return base + ">" + s[0].ID()
}

// Caller returns the stack as seen from the immediate caller, or nil.
func (s Stack) Caller() Stack {
	if len(s) < 2 {
		return nil
	}
	return s[1:]
}

// BaseGUID returns the identity of the caller's call site.
func (s Stack) BaseGUID() (string, bool) {
	caller := s.Caller()
	if caller == nil {
		return "", false
	}
	return caller.GUID(), true
}

// shortSymbol drops the import path from a fully qualified Go symbol,
// leaving "pkg.(*Type).Method".
func shortSymbol(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
