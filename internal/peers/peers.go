// Package peers discovers live mesh peers from the tinc layout.
//
// The tinc up/down scripts keep one file per reachable node under
// <etc_dir>/<net_name>/<node_base>; each holds a Node_Addr entry. The local
// node's own name comes from tinc.conf.
package peers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"syncer/internal/config"
	"syncer/internal/logging"
	"syncer/internal/services"
	"syncer/internal/textutil"
)

// Peer is one reachable replication target.
type Peer struct {
	Name string
	Addr string
	Port int
}

// PortSource supplies the doveadm port shared by every peer.
type PortSource interface {
	DoveadmPort(ctx context.Context) (int, error)
}

// Mesh iterates peers of the local tinc network.
type Mesh struct {
	confFile string
	nodeDir  string
	skip     map[string]struct{}
	ports    PortSource
	logger   *slog.Logger
}

// NewMesh constructs a Mesh from the tinker config section.
func NewMesh(cfg *config.Config, ports PortSource, logger *slog.Logger) *Mesh {
	skip := make(map[string]struct{}, len(cfg.Tinker.SkipList))
	for _, name := range cfg.Tinker.SkipList {
		skip[name] = struct{}{}
	}
	return &Mesh{
		confFile: cfg.TinkerConfFile(),
		nodeDir:  cfg.TinkerNodeDir(),
		skip:     skip,
		ports:    ports,
		logger:   logging.NewComponentLogger(logger, "peers"),
	}
}

// SelfName returns the local node name from tinc.conf.
func (m *Mesh) SelfName() (string, error) {
	conf, err := textutil.ParseConfFile(m.confFile)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "peers", "self", "read tinc.conf", err)
	}
	name, ok := conf["name"]
	if !ok || name == "" {
		return "", services.Wrap(services.ErrConfiguration, "peers", "self", fmt.Sprintf("no Name in %s", m.confFile), nil)
	}
	return name, nil
}

// NodeNames returns the sorted live node names except self and skipped
// entries. A missing node directory means no peers.
func (m *Mesh) NodeNames() ([]string, error) {
	entries, err := os.ReadDir(m.nodeDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	self, err := m.SelfName()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if name == self {
			continue
		}
		if _, skipped := m.skip[name]; skipped {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// EachPeer calls fn once per live peer. Failures to list nodes, read a node
// file or run fn are logged and never returned.
func (m *Mesh) EachPeer(ctx context.Context, fn func(ctx context.Context, peer Peer) error) {
	names, err := m.NodeNames()
	if err != nil {
		logging.WarnWithContext(m.logger, "peer listing failed", "peer_list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the tinc configuration"),
			logging.String(logging.FieldImpact, "replication skipped for this batch"),
		)
		return
	}
	m.logger.Debug("peer list", logging.Strings("nodes", names))
	if len(names) == 0 {
		return
	}
	port, err := m.ports.DoveadmPort(ctx)
	if err != nil {
		logging.WarnWithContext(m.logger, "doveadm port lookup failed", "peer_port_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "set doveadm_port in dovecot.conf"),
			logging.String(logging.FieldImpact, "replication skipped for this batch"),
		)
		return
	}
	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		peer := Peer{Name: name, Port: port}
		conf, err := textutil.ParseConfFile(filepath.Join(m.nodeDir, name))
		if err == nil {
			peer.Addr = conf["node_addr"]
			if peer.Addr == "" {
				err = services.Wrap(services.ErrNotFound, "peers", name, "no Node_Addr in node file", nil)
			}
		}
		if err == nil {
			err = fn(ctx, peer)
		}
		if err != nil {
			logging.WarnWithContext(m.logger, "peer operation failed", "peer_failed",
				logging.String("peer", peer.Name),
				logging.String(logging.FieldPeer, fmt.Sprintf("%s:%d", peer.Addr, peer.Port)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "peer may be out of sync until the next event"),
			)
		}
	}
}
