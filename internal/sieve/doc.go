// Package sieve generates and applies per-user sieve filters.
//
// Filters are derived from the mailbox layout: a mailbox named
// "Base/.../Label [keyword] user@domain" files mail addressed to or from
// user@domain (and, with a keyword, mentioning it) into itself. One script
// per top level mailbox collects those rules, and a root script includes
// them all.
package sieve
