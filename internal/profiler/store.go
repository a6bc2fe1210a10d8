package profiler

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// FrameStat accumulates samples for one call-site identity. Every field is
// updated independently; readers may observe a count and a self time that
// belong to slightly different moments.
type FrameStat struct {
	count  atomic.Int64
	selfNs atomic.Int64
	frame  atomic.Pointer[Stack]
}

// Count returns the number of samples charged to the call site.
func (f *FrameStat) Count() int64 { return f.count.Load() }

// SelfTime returns the wall time charged to the call site itself.
func (f *FrameStat) SelfTime() time.Duration { return time.Duration(f.selfNs.Load()) }

// Frame returns the most recent raw stack observed for the call site.
func (f *FrameStat) Frame() Stack {
	if p := f.frame.Load(); p != nil {
		return *p
	}
	return nil
}

// Store maps call-site identities to statistics.
//
// Consistency is at-least-once and approximate: concurrent first hits for
// the same identity collapse onto a single entry, the stored frame is last
// write wins, and counters are not updated atomically with respect to each
// other. Entries live for the life of the process.
type Store struct {
	stats sync.Map // string -> *FrameStat
	size  atomic.Int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Record charges one sample of elapsed time to the call site at the top of frame.
func (s *Store) Record(frame Stack, elapsed time.Duration) {
	if len(frame) == 0 {
		return
	}
	stat := s.ensure(frame)
	stat.count.Add(1)
	stat.selfNs.Add(int64(elapsed))
	stat.frame.Store(&frame)
}

// ensure returns the stat for frame's identity, inserting an empty
// placeholder that remembers frame when none exists.
func (s *Store) ensure(frame Stack) *FrameStat {
	guid := frame.GUID()
	if v, ok := s.stats.Load(guid); ok {
		return v.(*FrameStat)
	}
	fresh := &FrameStat{}
	fresh.frame.Store(&frame)
	v, loaded := s.stats.LoadOrStore(guid, fresh)
	if !loaded {
		s.size.Add(1)
	}
	return v.(*FrameStat)
}

// Lookup returns the stat stored for guid.
func (s *Store) Lookup(guid string) (*FrameStat, bool) {
	v, ok := s.stats.Load(guid)
	if !ok {
		return nil, false
	}
	return v.(*FrameStat), true
}

// Len returns the number of identities held.
func (s *Store) Len() int {
	return int(s.size.Load())
}

// Samples returns the total sample count across identities.
func (s *Store) Samples() int64 {
	var total int64
	s.stats.Range(func(_, v any) bool {
		total += v.(*FrameStat).Count()
		return true
	})
	return total
}

// StatSnapshot is a point-in-time copy of one FrameStat.
type StatSnapshot struct {
	GUID     string
	Count    int64
	SelfTime time.Duration
	Frame    Stack
}

// Snapshot copies every entry, sorted by identity.
func (s *Store) Snapshot() []StatSnapshot {
	var out []StatSnapshot
	s.stats.Range(func(k, v any) bool {
		stat := v.(*FrameStat)
		out = append(out, StatSnapshot{
			GUID:     k.(string),
			Count:    stat.Count(),
			SelfTime: stat.SelfTime(),
			Frame:    stat.Frame(),
		})
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].GUID < out[j].GUID })
	return out
}
