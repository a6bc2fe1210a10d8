package dispatch

import (
	"fmt"
	"regexp"

	"syncer/internal/config"
)

// Patterns are the four independent event predicates. Each is anchored at
// the start of the field only, so "^(inbox)" style patterns match prefixes
// unless they end with "$".
type Patterns struct {
	Change    *regexp.Regexp // chng_type, filter build trigger
	Define    *regexp.Regexp // mbox_name, filter build trigger
	Invoke    *regexp.Regexp // mbox_name, filter invoke trigger
	Replicate *regexp.Regexp // mbox_name, replication trigger
}

// CompilePatterns compiles the predicates. The change pattern is case
// sensitive; the three mailbox patterns ignore case.
func CompilePatterns(change, define, invoke, replicate string) (Patterns, error) {
	var (
		p   Patterns
		err error
	)
	if p.Change, err = compile("change", change, false); err != nil {
		return Patterns{}, err
	}
	if p.Define, err = compile("define", define, true); err != nil {
		return Patterns{}, err
	}
	if p.Invoke, err = compile("invoke", invoke, true); err != nil {
		return Patterns{}, err
	}
	if p.Replicate, err = compile("replicate", replicate, true); err != nil {
		return Patterns{}, err
	}
	return p, nil
}

// PatternsFromConfig compiles the configured predicates.
func PatternsFromConfig(cfg *config.Config) (Patterns, error) {
	return CompilePatterns(cfg.Syncer.RegexChange, cfg.Syncer.RegexDefine, cfg.Syncer.RegexInvoke, cfg.Syncer.RegexReplicate)
}

func compile(name, pattern string, foldCase bool) (*regexp.Regexp, error) {
	expr := "^(?:" + pattern + ")"
	if foldCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compile %s pattern %q: %w", name, pattern, err)
	}
	return re, nil
}
