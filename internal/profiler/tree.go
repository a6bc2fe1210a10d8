package profiler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Node is one call site in a built tree.
type Node struct {
	GUID     string
	Frame    Stack
	Count    int64
	SelfTime time.Duration
	// TotalTime is SelfTime plus the TotalTime of every reachable child.
	TotalTime time.Duration
	Children  []string
}

// PerCall returns the average self time per sample.
func (n *Node) PerCall() time.Duration {
	if n.Count <= 0 {
		return 0
	}
	return n.SelfTime / time.Duration(n.Count)
}

// Tree is a call tree derived from a Store snapshot. Building a tree never
// alters the counters in the store.
type Tree struct {
	nodes map[string]*Node
	roots []string
}

const (
	unvisited = iota
	inProgress
	done
)

// Build inserts placeholders for every missing ancestor into store, then
// links a snapshot into a tree and computes inclusive times. Cycles caused
// by recursion terminate: a node already on the current path contributes
// nothing further along that path.
func Build(store *Store) *Tree {
	for _, stat := range store.Snapshot() {
		for caller := stat.Frame.Caller(); caller != nil; caller = caller.Caller() {
			store.ensure(caller)
		}
	}

	snapshot := store.Snapshot()
	tree := &Tree{nodes: make(map[string]*Node, len(snapshot))}
	for _, stat := range snapshot {
		tree.nodes[stat.GUID] = &Node{
			GUID:     stat.GUID,
			Frame:    stat.Frame,
			Count:    stat.Count,
			SelfTime: stat.SelfTime,
		}
	}
	for _, stat := range snapshot {
		node := tree.nodes[stat.GUID]
		base, ok := node.Frame.BaseGUID()
		if ok {
			if parent, found := tree.nodes[base]; found && parent != node {
				parent.Children = append(parent.Children, node.GUID)
				continue
			}
		}
		tree.roots = append(tree.roots, node.GUID)
	}
	// The snapshot is sorted, so children and roots already are.

	state := make(map[string]int, len(tree.nodes))
	for _, stat := range snapshot {
		tree.total(tree.nodes[stat.GUID], state)
	}
	return tree
}

func (t *Tree) total(node *Node, state map[string]int) time.Duration {
	switch state[node.GUID] {
	case done:
		return node.TotalTime
	case inProgress:
		return 0
	}
	state[node.GUID] = inProgress
	sum := node.SelfTime
	for _, id := range node.Children {
		if child, ok := t.nodes[id]; ok {
			sum += t.total(child, state)
		}
	}
	node.TotalTime = sum
	state[node.GUID] = done
	return sum
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns the node for guid.
func (t *Tree) Node(guid string) (*Node, bool) {
	n, ok := t.nodes[guid]
	return n, ok
}

// Roots returns the root nodes sorted by identity.
func (t *Tree) Roots() []*Node {
	out := make([]*Node, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.nodes[id])
	}
	return out
}

// Hottest returns up to limit nodes ordered by descending self time.
func (t *Tree) Hottest(limit int) []*Node {
	out := make([]*Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		if n.Count > 0 {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SelfTime != out[j].SelfTime {
			return out[i].SelfTime > out[j].SelfTime
		}
		return out[i].GUID < out[j].GUID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Render writes every root's subtree depth first, two spaces of indent per
// level. Within one root a node is printed at most once.
func (t *Tree) Render() string {
	var b strings.Builder
	for _, id := range t.roots {
		visited := make(map[string]bool)
		t.render(&b, t.nodes[id], 0, visited)
	}
	return b.String()
}

func (t *Tree) render(b *strings.Builder, node *Node, level int, visited map[string]bool) {
	if visited[node.GUID] {
		return
	}
	visited[node.GUID] = true
	b.WriteString(FormatLine(node, level))
	b.WriteByte('\n')
	for _, id := range node.Children {
		if child, ok := t.nodes[id]; ok {
			t.render(b, child, level+1, visited)
		}
	}
}

// FormatLine renders one node as
// "<indent><total> [<per call>] <symbol> @ <unit>:<line>" with times in seconds.
func FormatLine(node *Node, level int) string {
	var loc Location
	if len(node.Frame) > 0 {
		loc = node.Frame[0]
	}
	return fmt.Sprintf("%s%.3f [%.3f] %s @ %s:%d",
		strings.Repeat("  ", level),
		node.TotalTime.Seconds(),
		node.PerCall().Seconds(),
		loc.Symbol,
		loc.Unit(),
		loc.Line,
	)
}
