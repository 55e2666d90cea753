package producer

import (
	"testing"

	"github.com/sirupsen/logrus"

	"katana-node/core/chainspec"
	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/state"
	"katana-node/core/store"
	"katana-node/core/trie"
	"katana-node/core/txpool"
	"katana-node/core/types"
)

func newTestProducer(t *testing.T) (*Producer, Store, *chainspec.ChainSpec) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	st, err := store.Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	tries := trie.NewManager(st)
	spec := chainspec.Dev()
	cfg := executor.DefaultCfgEnv(spec.ChainID, spec.FeeTokenETHAddress, spec.FeeTokenSTRKAddress)
	vm := executor.NewCairoVM(cfg)

	base := state.NewLatestStateProvider(st)
	validator := txpool.NewValidator(vm, executor.BlockEnv{SequencerAddr: spec.SequencerAddress})
	pool := txpool.New(base, validator, log)

	p := New(st, pool, vm, tries, spec, cfg, nil, log)
	return p, st, spec
}

func TestEnsureGenesisProducesBlockZero(t *testing.T) {
	p, st, spec := newTestProducer(t)

	block, err := p.EnsureGenesis()
	if err != nil {
		t.Fatalf("ensure genesis: %v", err)
	}
	if block.Header.Number != 0 {
		t.Fatalf("expected genesis at height 0, got %d", block.Header.Number)
	}

	n, ok := st.LatestNumber()
	if !ok || n != 0 {
		t.Fatalf("expected store latest number 0, got %d ok=%v", n, ok)
	}

	ch, _, err := st.LatestContractClass(spec.Allocations[0].Address)
	if err != nil {
		t.Fatalf("lookup allocated class: %v", err)
	}
	if !ch.Equal(spec.Allocations[0].ClassHash) {
		t.Fatalf("expected allocated class hash to be visible after genesis")
	}
}

func TestForceMineOnEmptyQueueProducesEmptyBlock(t *testing.T) {
	p, st, _ := newTestProducer(t)
	if _, err := p.EnsureGenesis(); err != nil {
		t.Fatalf("ensure genesis: %v", err)
	}

	block, err := p.Seal()
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if len(block.Transactions) != 0 {
		t.Fatalf("expected empty body")
	}
	if block.Header.Number != 1 {
		t.Fatalf("expected height 1, got %d", block.Header.Number)
	}

	parentHeader, err := st.Header(0)
	if err != nil {
		t.Fatalf("parent header: %v", err)
	}
	if !block.Header.StateRoot.Equal(parentHeader.StateRoot) {
		t.Fatalf("expected state root unchanged on empty force-mined block")
	}
}

func TestExecuteNextAndSealAdvancesHeight(t *testing.T) {
	p, st, spec := newTestProducer(t)
	if _, err := p.EnsureGenesis(); err != nil {
		t.Fatalf("ensure genesis: %v", err)
	}

	sender := spec.Allocations[0].Address
	recipient := felt.NewAddress(felt.FromUint64(0x200))
	tx := &types.InvokeTransaction{
		TxHash:    felt.FromUint64(42),
		Sender:    sender,
		TxNonce:   felt.Zero(),
		MaxFee:    felt.FromUint64(5000),
		Signature: []felt.Felt{felt.FromUint64(1)},
		Calldata:  []felt.Felt{recipient.Felt(), felt.FromUint64(1000)},
	}

	if err := p.ExecuteNext(tx); err != nil {
		t.Fatalf("execute next: %v", err)
	}
	block, err := p.Seal()
	if err != nil {
		t.Fatalf("seal: %v", err)
	}
	if block.Header.Number != 1 {
		t.Fatalf("expected height 1, got %d", block.Header.Number)
	}
	if len(block.Transactions) != 1 {
		t.Fatalf("expected 1 transaction in block, got %d", len(block.Transactions))
	}

	receipts, err := st.ReceiptsByBlock(1)
	if err != nil {
		t.Fatalf("receipts by block: %v", err)
	}
	if len(receipts) != 1 || receipts[0].Status != types.ExecutionSucceeded {
		t.Fatalf("expected 1 succeeded receipt, got %+v", receipts)
	}
}
