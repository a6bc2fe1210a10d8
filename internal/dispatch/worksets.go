package dispatch

import (
	"maps"
	"slices"

	"syncer/internal/events"
	"syncer/internal/textutil"
)

// WorkSets are the deduplicated units of work derived from one batch.
type WorkSets struct {
	Build     map[string]struct{}            // user
	Invoke    map[string]map[string]struct{} // user -> mailbox names
	Replicate map[string]map[string]struct{} // user -> mailbox GUIDs
}

// NewWorkSets returns empty work sets.
func NewWorkSets() WorkSets {
	return WorkSets{
		Build:     make(map[string]struct{}),
		Invoke:    make(map[string]map[string]struct{}),
		Replicate: make(map[string]map[string]struct{}),
	}
}

// Add folds one event into the sets according to p. An event may land in
// any subset of the three.
func (w WorkSets) Add(p Patterns, ev events.Event) {
	if p.Change.MatchString(ev.ChangeType) && p.Define.MatchString(ev.MailboxName) {
		w.Build[ev.UserName] = struct{}{}
	}
	if p.Invoke.MatchString(ev.MailboxName) {
		addPair(w.Invoke, ev.UserName, ev.MailboxName)
	}
	if p.Replicate.MatchString(ev.MailboxName) {
		addPair(w.Replicate, ev.UserName, ev.MailboxGUID)
	}
}

// Classify folds every event into fresh work sets.
func Classify(p Patterns, evs []events.Event) WorkSets {
	w := NewWorkSets()
	for _, ev := range evs {
		w.Add(p, ev)
	}
	return w
}

// BuildCount returns the number of distinct users needing a filter build.
func (w WorkSets) BuildCount() int { return len(w.Build) }

// InvokeCount returns the number of distinct (user, mailbox) pairs.
func (w WorkSets) InvokeCount() int { return textutil.CountValues(w.Invoke) }

// ReplicateCount returns the number of distinct (user, GUID) pairs.
func (w WorkSets) ReplicateCount() int { return textutil.CountValues(w.Replicate) }

// Empty reports whether no work was derived.
func (w WorkSets) Empty() bool {
	return len(w.Build) == 0 && len(w.Invoke) == 0 && len(w.Replicate) == 0
}

func addPair(m map[string]map[string]struct{}, key, value string) {
	set, ok := m[key]
	if !ok {
		set = make(map[string]struct{})
		m[key] = set
	}
	set[value] = struct{}{}
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
