package dovecot

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// MailboxList returns the user's mailboxes version-sorted without duplicates.
func MailboxList(ctx context.Context, runner Runner, user string) ([]string, error) {
	out, err := runner.Run(ctx, Command{Name: Doveadm, Args: []string{"mailbox", "list", "-u", user}})
	if err != nil {
		return nil, fmt.Errorf("list mailboxes for %s: %w", user, err)
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if name := strings.TrimRight(line, "\r"); strings.TrimSpace(name) != "" {
			names = append(names, name)
		}
	}
	slices.SortStableFunc(names, CompareVersion)
	return slices.Compact(names), nil
}

// SievePut uploads script as the user's sieve script name.
func SievePut(ctx context.Context, runner Runner, user, name, script string) error {
	_, err := runner.Run(ctx, Command{
		Name:  Doveadm,
		Args:  []string{"sieve", "put", "-u", user, name},
		Stdin: script,
	})
	if err != nil {
		return fmt.Errorf("upload sieve %s for %s: %w", name, user, err)
	}
	return nil
}

// CompareVersion orders strings so that embedded digit runs compare by
// numeric value, e.g. "Box 2" before "Box 10".
func CompareVersion(a, b string) int {
	for a != "" && b != "" {
		if isDigit(a[0]) && isDigit(b[0]) {
			na, ra := splitDigits(a)
			nb, rb := splitDigits(b)
			if c := compareNumeric(na, nb); c != 0 {
				return c
			}
			a, b = ra, rb
			continue
		}
		if a[0] != b[0] {
			if a[0] < b[0] {
				return -1
			}
			return 1
		}
		a, b = a[1:], b[1:]
	}
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	default:
		return 1
	}
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func splitDigits(s string) (string, string) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
