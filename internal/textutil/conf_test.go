package textutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"syncer/internal/textutil"
)

func TestParseConfTabRecord(t *testing.T) {
	conf := textutil.ParseConf("Chng_Type = mailbox_create\tuser_name=a@b\tbogus\tmbox_name= Work/Mail \n", "\t")
	if conf["chng_type"] != "mailbox_create" {
		t.Fatalf("unexpected chng_type: %q", conf["chng_type"])
	}
	if conf["mbox_name"] != "Work/Mail" {
		t.Fatalf("expected trimmed value, got %q", conf["mbox_name"])
	}
	if _, ok := conf["bogus"]; ok {
		t.Fatal("expected piece without '=' to be ignored")
	}
	if len(conf) != 3 {
		t.Fatalf("unexpected key count: %v", conf)
	}
}

func TestParseConfSplitsOnFirstEquals(t *testing.T) {
	conf := textutil.ParseConf("query=a=b\nquery=c=d", "\n")
	if conf["query"] != "c=d" {
		t.Fatalf("expected last value with embedded '=', got %q", conf["query"])
	}
}

func TestParseConfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node")
	if err := os.WriteFile(path, []byte("node_name=beta\nnode_addr=10.0.0.2\n"), 0o644); err != nil {
		t.Fatalf("write node file: %v", err)
	}
	conf, err := textutil.ParseConfFile(path)
	if err != nil {
		t.Fatalf("ParseConfFile returned error: %v", err)
	}
	if conf["node_addr"] != "10.0.0.2" {
		t.Fatalf("unexpected node_addr: %q", conf["node_addr"])
	}
	if _, err := textutil.ParseConfFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCountValues(t *testing.T) {
	m := map[string]map[string]struct{}{
		"a@b": {"Inbox": {}, "Sent": {}},
		"c@d": {"Inbox": {}},
	}
	if got := textutil.CountValues(m); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}
