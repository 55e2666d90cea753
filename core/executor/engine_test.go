package executor

import (
	"testing"

	"katana-node/core/felt"
	"katana-node/core/state"
	"katana-node/core/types"
)

type emptyReader struct{}

func (emptyReader) Nonce(felt.Address) (felt.Felt, error)                { return felt.Zero(), nil }
func (emptyReader) StorageAt(felt.Address, felt.Felt) (felt.Felt, error) { return felt.Zero(), nil }
func (emptyReader) ClassHashAt(felt.Address) (felt.Felt, error)          { return felt.Zero(), nil }
func (emptyReader) Class(felt.Felt) (*types.ContractClass, error)        { return nil, nil }
func (emptyReader) CompiledClassHash(felt.Felt) (felt.Felt, error)       { return felt.Zero(), nil }

func newTestVM() *CairoVM {
	eth := felt.NewAddress(felt.FromUint64(1001))
	strk := felt.NewAddress(felt.FromUint64(1002))
	cfg := DefaultCfgEnv(felt.FromUint64(1), eth, strk)
	return NewCairoVM(cfg)
}

func deployAccount(t *testing.T, vm *CairoVM, ovl *state.CachedState, addr felt.Address, classHash felt.Felt) {
	t.Helper()
	declare := &types.DeclareTransaction{TxHash: felt.FromUint64(1), ClassHash: classHash}
	if _, err := vm.Transact(ovl, BlockEnv{}, Flags{SkipValidate: true}, declare); err != nil {
		t.Fatalf("declare: %v", err)
	}
	ovl.SetClassHash(addr, classHash)
}

func TestInvokeTransferSucceeds(t *testing.T) {
	vm := newTestVM()
	base := emptyReader{}
	ovl := state.NewCachedState(base)

	sender := felt.NewAddress(felt.FromUint64(1))
	recipient := felt.NewAddress(felt.FromUint64(2))
	classHash := felt.FromUint64(500)

	deployAccount(t, vm, ovl, sender, classHash)
	ovl.SetStorage(vm.cfg.FeeTokenSTRKAddress, balanceKey(sender), felt.FromUint64(10_000))

	tx := &types.InvokeTransaction{
		TxHash:    felt.FromUint64(42),
		Sender:    sender,
		TxNonce:   felt.Zero(),
		MaxFee:    felt.FromUint64(5000),
		Signature: []felt.Felt{felt.FromUint64(1)},
		Calldata:  []felt.Felt{recipient.Felt(), felt.FromUint64(100)},
	}

	info, err := vm.Transact(ovl, BlockEnv{SequencerAddr: felt.NewAddress(felt.FromUint64(9))}, Flags{}, tx)
	if err != nil {
		t.Fatalf("transact: %v", err)
	}
	if info.Status != types.ExecutionSucceeded {
		t.Fatalf("expected success, got revert: %s", info.RevertError)
	}

	recipientBal, _ := ovl.StorageAt(vm.cfg.FeeTokenSTRKAddress, balanceKey(recipient))
	if !recipientBal.Equal(felt.FromUint64(100)) {
		t.Fatalf("expected recipient balance 100, got %s", recipientBal)
	}

	nonce, _ := ovl.Nonce(sender)
	if !nonce.Equal(felt.One()) {
		t.Fatalf("expected nonce incremented to 1, got %s", nonce)
	}
}

func TestInvalidNonceRejected(t *testing.T) {
	vm := newTestVM()
	ovl := state.NewCachedState(emptyReader{})
	sender := felt.NewAddress(felt.FromUint64(1))
	deployAccount(t, vm, ovl, sender, felt.FromUint64(500))

	tx := &types.InvokeTransaction{
		TxHash:    felt.FromUint64(42),
		Sender:    sender,
		TxNonce:   felt.FromUint64(7),
		MaxFee:    felt.FromUint64(5000),
		Signature: []felt.Felt{felt.FromUint64(1)},
	}

	_, err := vm.Transact(ovl, BlockEnv{}, Flags{}, tx)
	execErr, ok := AsExecutionError(err)
	if !ok || execErr.Kind != ErrInvalidNonce {
		t.Fatalf("expected InvalidNonce, got %v", err)
	}
}

func TestInsufficientBalanceReverts(t *testing.T) {
	vm := newTestVM()
	ovl := state.NewCachedState(emptyReader{})
	sender := felt.NewAddress(felt.FromUint64(1))
	recipient := felt.NewAddress(felt.FromUint64(2))
	deployAccount(t, vm, ovl, sender, felt.FromUint64(500))

	tx := &types.InvokeTransaction{
		TxHash:    felt.FromUint64(42),
		Sender:    sender,
		TxNonce:   felt.Zero(),
		MaxFee:    felt.FromUint64(5000),
		Signature: []felt.Felt{felt.FromUint64(1)},
		Calldata:  []felt.Felt{recipient.Felt(), felt.FromUint64(100)},
	}

	info, err := vm.Transact(ovl, BlockEnv{}, Flags{}, tx)
	if err != nil {
		t.Fatalf("expected revert, not a hard error: %v", err)
	}
	if info.Status != types.ExecutionReverted {
		t.Fatalf("expected reverted status")
	}
}

func TestDeclareAlreadyDeclaredRejected(t *testing.T) {
	vm := newTestVM()
	ovl := state.NewCachedState(emptyReader{})
	classHash := felt.FromUint64(999)

	first := &types.DeclareTransaction{TxHash: felt.FromUint64(1), ClassHash: classHash}
	if _, err := vm.Transact(ovl, BlockEnv{}, Flags{SkipValidate: true}, first); err != nil {
		t.Fatalf("first declare: %v", err)
	}

	second := &types.DeclareTransaction{TxHash: felt.FromUint64(2), ClassHash: classHash, TxNonce: felt.One()}
	_, err := vm.Transact(ovl, BlockEnv{}, Flags{SkipValidate: true, SkipNonceCheck: true}, second)
	execErr, ok := AsExecutionError(err)
	if !ok || execErr.Kind != ErrClassAlreadyDeclared {
		t.Fatalf("expected ClassAlreadyDeclared, got %v", err)
	}
}
