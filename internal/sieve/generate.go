package sieve

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	systemSuffix = ".system"
	fileSuffix   = ".sieve"
)

// defineRegex matches "Base/<path> [keyword] addr@domain":
// group 1 is the base mailbox, 2 the optional [keyword], 3 the address.
var defineRegex = regexp.MustCompile(`(?i)^([^/]+)/[^\[\]]*[ ]*(\[[^/]+\])?[ ]+([^/ ]*@[^/ ]+)$`)

// Script is one generated sieve script.
type Script struct {
	Name string // name registered with dovecot, e.g. "Vendor.system"
	Text string
}

// File returns the on-disk file name of the script.
func (s Script) File() string {
	return s.Name + fileSuffix
}

// SystemName returns the generated script name for a mailbox.
func SystemName(mailbox string) string {
	return mailbox + systemSuffix
}

// Generated holds the scripts for one user.
type Generated struct {
	Bases []Script // one per top level mailbox, in mailbox order
	Root  Script
}

// Scripts returns bases followed by the root, the order they are uploaded in.
func (g Generated) Scripts() []Script {
	return append(append([]Script(nil), g.Bases...), g.Root)
}

// BaseNames returns the top level mailbox names.
func (g Generated) BaseNames() []string {
	out := make([]string, 0, len(g.Bases))
	for _, s := range g.Bases {
		out = append(out, strings.TrimSuffix(s.Name, systemSuffix))
	}
	return out
}

// Generate builds the scripts for a sorted mailbox list. Definitions whose
// base mailbox is not itself listed are ignored.
func Generate(arkon string, mailboxes []string) Generated {
	rootName := SystemName(arkon)
	var root strings.Builder
	fmt.Fprintf(&root, "# %s\n", rootName)
	root.WriteString("require \"include\";\n")

	bodies := make(map[string]*strings.Builder)
	var order []string
	for _, mbox := range mailboxes {
		if mbox == "" || strings.Contains(mbox, "/") {
			continue
		}
		if _, seen := bodies[mbox]; seen {
			continue
		}
		name := SystemName(mbox)
		fmt.Fprintf(&root, "include :personal \"%s\";\n", name)
		body := &strings.Builder{}
		fmt.Fprintf(body, "# %s\n", name)
		body.WriteString("require \"fileinto\";\n")
		bodies[mbox] = body
		order = append(order, mbox)
	}

	for _, mbox := range mailboxes {
		match := defineRegex.FindStringSubmatch(mbox)
		if match == nil {
			continue
		}
		body, ok := bodies[match[1]]
		if !ok {
			continue
		}
		keyword := strings.TrimSuffix(strings.TrimPrefix(match[2], "["), "]")
		body.WriteString(Rule(keyword, match[3], mbox))
		body.WriteByte('\n')
	}

	gen := Generated{Root: Script{Name: rootName, Text: root.String()}}
	for _, mbox := range order {
		gen.Bases = append(gen.Bases, Script{Name: SystemName(mbox), Text: bodies[mbox].String()})
	}
	return gen
}

// Rule renders one filing rule. An empty keyword matches on address only.
func Rule(keyword, address, mailbox string) string {
	testAddr := fmt.Sprintf(`address :contains [ "To", "CC", "From", "Sender", "Reply-To" ] "%s"`, address)
	body := fmt.Sprintf(`{ fileinto "%s"; stop; }`, mailbox)
	if keyword == "" {
		return fmt.Sprintf("if %s %s", testAddr, body)
	}
	testSubj := fmt.Sprintf(`header :contains [ "From", "Subject" ] "%s"`, keyword)
	return fmt.Sprintf("if allof( %s , %s ) %s", testAddr, testSubj, body)
}
