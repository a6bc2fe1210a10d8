package dovecot

import (
	"context"
	"fmt"
	"strconv"

	"syncer/internal/config"
)

// Replicator runs doveadm sync for one mailbox against one peer.
type Replicator struct {
	runner   Runner
	lockTime int
	protocol string
}

// NewReplicator builds a Replicator from the replicate config section.
func NewReplicator(cfg *config.Config, runner Runner) *Replicator {
	return &Replicator{
		runner:   runner,
		lockTime: cfg.Replicate.LockTime,
		protocol: cfg.Replicate.Protocol,
	}
}

// Destination formats the doveadm sync target.
func (r *Replicator) Destination(addr string, port int) string {
	return fmt.Sprintf("%s:%s:%d", r.protocol, addr, port)
}

// Replicate synchronises the mailbox with guid for user to addr:port.
func (r *Replicator) Replicate(ctx context.Context, user, guid, addr string, port int) error {
	_, err := r.runner.Run(ctx, Command{
		Name: Doveadm,
		Args: []string{
			"sync", "-N",
			"-l", strconv.Itoa(r.lockTime),
			"-u", user,
			"-g", guid,
			r.Destination(addr, port),
		},
	})
	if err != nil {
		return fmt.Errorf("replicate %s/%s to %s:%d: %w", user, guid, addr, port, err)
	}
	return nil
}
