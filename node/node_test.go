package node

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"

	"katana-node/pkg/config"
)

func newTestConfig(t *testing.T) config.NodeConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.DBDir = t.TempDir()
	cfg.Dev = true
	cfg.Accounts = 2
	cfg.HTTPPort = 0
	return cfg
}

func newTestNode(t *testing.T) *Node {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	n, err := New(newTestConfig(t), log)
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	t.Cleanup(func() { _ = n.Store.Close() })
	return n
}

func TestNewSeedsGenesisAndPrimesPool(t *testing.T) {
	n := newTestNode(t)

	num, ok := n.Store.LatestNumber()
	if !ok || num != 0 {
		t.Fatalf("expected genesis block 0 sealed, got %d ok=%v", num, ok)
	}

	account := n.Spec.Allocations[0].Address
	ch, _, err := n.Store.LatestContractClass(account)
	if err != nil {
		t.Fatalf("lookup allocated class: %v", err)
	}
	if !ch.Equal(n.Spec.Allocations[0].ClassHash) {
		t.Fatalf("predeployed account class not visible after genesis")
	}
}

func TestNewRejectsMismatchedDBVersion(t *testing.T) {
	cfg := newTestConfig(t)
	if err := checkOrInitDBVersion(cfg.DBDir); err != nil {
		t.Fatalf("init db version: %v", err)
	}

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	n, err := New(cfg, log)
	if err != nil {
		t.Fatalf("node.New: %v", err)
	}
	_ = n.Store.Close()

	bumped := CurrentDBVersion + 1
	buf := []byte{byte(bumped >> 24), byte(bumped >> 16), byte(bumped >> 8), byte(bumped)}
	path := cfg.DBDir + "/" + dbVersionFileName
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("rewrite version file: %v", err)
	}

	if _, err := New(cfg, log); err == nil {
		t.Fatalf("expected a version mismatch error")
	}
}

func TestRequireDevOrChainSpecFile(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Dev = false

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	if _, err := New(cfg, log); err == nil {
		t.Fatalf("expected an error when neither --dev nor --chain-spec-file is set")
	}
}
