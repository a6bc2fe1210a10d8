package peers_test

import (
	"context"
	"errors"
	"testing"

	"syncer/internal/logging"
	"syncer/internal/peers"
	"syncer/internal/testsupport"
)

type staticPort int

func (p staticPort) DoveadmPort(context.Context) (int, error) { return int(p), nil }

func collect(t *testing.T, mesh *peers.Mesh, fail string) []peers.Peer {
	t.Helper()
	var seen []peers.Peer
	mesh.EachPeer(context.Background(), func(_ context.Context, peer peers.Peer) error {
		seen = append(seen, peer)
		if peer.Name == fail {
			return errors.New("sync refused")
		}
		return nil
	})
	return seen
}

func TestEachPeerSkipsSelfAndSkipList(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPeers("alpha", map[string]string{
		"alpha":     "10.0.0.1",
		"gamma":     "10.0.0.3",
		"beta":      "10.0.0.2",
		"readme.md": "ignored",
	}))
	mesh := peers.NewMesh(cfg, staticPort(12345), logging.NewNop())

	got := collect(t, mesh, "beta")
	testsupport.Diff(t, "peers", []peers.Peer{
		{Name: "beta", Addr: "10.0.0.2", Port: 12345},
		{Name: "gamma", Addr: "10.0.0.3", Port: 12345},
	}, got)
}

func TestEachPeerWithoutNodeDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	mesh := peers.NewMesh(cfg, staticPort(1), logging.NewNop())
	if got := collect(t, mesh, ""); len(got) != 0 {
		t.Fatalf("expected no peers, got %v", got)
	}
}

func TestEachPeerSkipsNodeWithoutAddress(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithPeers("alpha", map[string]string{
		"beta": "",
		"zeta": "10.0.0.9",
	}))
	mesh := peers.NewMesh(cfg, staticPort(2), logging.NewNop())
	got := collect(t, mesh, "")
	if len(got) != 1 || got[0].Name != "zeta" {
		t.Fatalf("expected only zeta, got %v", got)
	}
}
