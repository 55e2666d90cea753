package txpool

import (
	"testing"

	"github.com/sirupsen/logrus"

	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/types"
)

type fakeReader struct {
	classHashes map[felt.Address]felt.Felt
	classes     map[felt.Felt]*types.ContractClass
	balances    map[felt.Address]felt.Felt
}

func (f *fakeReader) Nonce(felt.Address) (felt.Felt, error) { return felt.Zero(), nil }
func (f *fakeReader) StorageAt(addr felt.Address, key felt.Felt) (felt.Felt, error) {
	return f.balances[addr], nil
}
func (f *fakeReader) ClassHashAt(addr felt.Address) (felt.Felt, error) { return f.classHashes[addr], nil }
func (f *fakeReader) Class(ch felt.Felt) (*types.ContractClass, error) { return f.classes[ch], nil }
func (f *fakeReader) CompiledClassHash(felt.Felt) (felt.Felt, error)   { return felt.Zero(), nil }

func newFakeReaderWithAccount(addr felt.Address, classHash felt.Felt) *fakeReader {
	return &fakeReader{
		classHashes: map[felt.Address]felt.Felt{addr: classHash},
		classes: map[felt.Felt]*types.ContractClass{
			classHash: {Kind: types.ClassSierra, Hash: classHash},
		},
		balances: map[felt.Address]felt.Felt{},
	}
}

func newTestPool(base *fakeReader) *Pool {
	eth := felt.NewAddress(felt.FromUint64(1001))
	strk := felt.NewAddress(felt.FromUint64(1002))
	cfg := executor.DefaultCfgEnv(felt.FromUint64(1), eth, strk)
	vm := executor.NewCairoVM(cfg)
	validator := NewValidator(vm, executor.BlockEnv{})
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(base, validator, log)
}

func TestAddTxAcceptsValidTransaction(t *testing.T) {
	sender := felt.NewAddress(felt.FromUint64(1))
	base := newFakeReaderWithAccount(sender, felt.FromUint64(500))
	pool := newTestPool(base)

	tx := &types.InvokeTransaction{
		TxHash:    felt.FromUint64(1),
		Sender:    sender,
		TxNonce:   felt.Zero(),
		MaxFee:    felt.FromUint64(1000),
		Signature: []felt.Felt{felt.FromUint64(1)},
	}
	if err := pool.AddTx(tx); err != nil {
		t.Fatalf("add tx: %v", err)
	}
	if pool.Len() != 1 {
		t.Fatalf("expected 1 queued tx, got %d", pool.Len())
	}
}

func TestAddTxRejectsBadNonce(t *testing.T) {
	sender := felt.NewAddress(felt.FromUint64(1))
	base := newFakeReaderWithAccount(sender, felt.FromUint64(500))
	pool := newTestPool(base)

	tx := &types.InvokeTransaction{
		TxHash:    felt.FromUint64(1),
		Sender:    sender,
		TxNonce:   felt.FromUint64(99),
		MaxFee:    felt.FromUint64(1000),
		Signature: []felt.Felt{felt.FromUint64(1)},
	}
	err := pool.AddTx(tx)
	if err == nil {
		t.Fatal("expected rejection")
	}
	invalidErr, ok := err.(*InvalidTransactionError)
	if !ok || invalidErr.Kind != RejectInvalidNonce {
		t.Fatalf("expected InvalidNonce rejection, got %v", err)
	}
	if pool.Len() != 0 {
		t.Fatalf("rejected tx must not be retained")
	}
}

func TestL1HandlerSkipsValidation(t *testing.T) {
	base := &fakeReader{classHashes: map[felt.Address]felt.Felt{}, classes: map[felt.Felt]*types.ContractClass{}, balances: map[felt.Address]felt.Felt{}}
	pool := newTestPool(base)

	tx := &types.L1HandlerTransaction{
		TxHash:   felt.FromUint64(1),
		Contract: felt.NewAddress(felt.FromUint64(123)),
	}
	if err := pool.AddTx(tx); err != nil {
		t.Fatalf("expected l1 handler to skip validation: %v", err)
	}
}

func TestDrainPreservesInsertionOrder(t *testing.T) {
	sender := felt.NewAddress(felt.FromUint64(1))
	base := newFakeReaderWithAccount(sender, felt.FromUint64(500))
	pool := newTestPool(base)

	for i := uint64(0); i < 3; i++ {
		tx := &types.InvokeTransaction{
			TxHash:    felt.FromUint64(100 + i),
			Sender:    sender,
			TxNonce:   felt.Zero(),
			MaxFee:    felt.FromUint64(1000),
			Signature: []felt.Felt{felt.FromUint64(1)},
		}
		if err := pool.AddTx(tx); err != nil {
			t.Fatalf("add tx %d: %v", i, err)
		}
	}

	drained := pool.Drain()
	if len(drained) != 3 {
		t.Fatalf("expected 3 drained, got %d", len(drained))
	}
	for i, tx := range drained {
		if !tx.Hash().Equal(felt.FromUint64(100 + uint64(i))) {
			t.Fatalf("expected insertion order preserved at index %d", i)
		}
	}
	if pool.Len() != 0 {
		t.Fatal("pool should be empty after drain")
	}
}

func TestSubscribeReceivesNotification(t *testing.T) {
	sender := felt.NewAddress(felt.FromUint64(1))
	base := newFakeReaderWithAccount(sender, felt.FromUint64(500))
	pool := newTestPool(base)

	ch, unsub := pool.Subscribe(4)
	defer unsub()

	tx := &types.InvokeTransaction{
		TxHash:    felt.FromUint64(1),
		Sender:    sender,
		TxNonce:   felt.Zero(),
		MaxFee:    felt.FromUint64(1000),
		Signature: []felt.Felt{felt.FromUint64(1)},
	}
	if err := pool.AddTx(tx); err != nil {
		t.Fatalf("add tx: %v", err)
	}

	select {
	case h := <-ch:
		if !h.Equal(tx.TxHash) {
			t.Fatalf("expected hash %s, got %s", tx.TxHash, h)
		}
	default:
		t.Fatal("expected a notification")
	}
}
