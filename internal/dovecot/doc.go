// Package dovecot wraps the dovecot command line tools used by the syncer:
// doveconf for settings, doveadm for mailbox listing, sieve upload and
// replication, and sieve-filter for applying filters.
//
// Every command goes through a Runner so collaborators can be exercised
// without a mail server. ExecRunner is the production implementation and
// always passes the configured dovecot.conf with -c.
package dovecot
