package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"katana-node/core/felt"
)

// Encodable describes a value that encodes itself into bytes suitable for a
// database value. No record type in this package implements it: persisted
// records round-trip through the package's Encode*/Decode* function pairs
// below. The wire format is RLP (github.com/ethereum/go-ethereum/rlp), the
// chosen binary codec (see core/ledger.go).
type Encodable interface {
	Encode() ([]byte, error)
}

// txWire tags which variant is present so a single RLP shape round-trips the
// Transaction interface; exactly one of the four pointers is non-nil.
type txWire struct {
	Type          uint8
	Invoke        *InvokeTransaction        `rlp:"nil"`
	Declare       *DeclareTransaction       `rlp:"nil"`
	DeployAccount *DeployAccountTransaction `rlp:"nil"`
	L1Handler     *L1HandlerTransaction     `rlp:"nil"`
}

func toTxWire(tx Transaction) (txWire, error) {
	switch v := tx.(type) {
	case *InvokeTransaction:
		return txWire{Type: uint8(TxInvoke), Invoke: v}, nil
	case *DeclareTransaction:
		return txWire{Type: uint8(TxDeclare), Declare: v}, nil
	case *DeployAccountTransaction:
		return txWire{Type: uint8(TxDeployAccount), DeployAccount: v}, nil
	case *L1HandlerTransaction:
		return txWire{Type: uint8(TxL1Handler), L1Handler: v}, nil
	default:
		return txWire{}, fmt.Errorf("types: unknown transaction implementation %T", tx)
	}
}

func (w txWire) toTx() (Transaction, error) {
	switch TxType(w.Type) {
	case TxInvoke:
		return w.Invoke, nil
	case TxDeclare:
		return w.Declare, nil
	case TxDeployAccount:
		return w.DeployAccount, nil
	case TxL1Handler:
		return w.L1Handler, nil
	default:
		return nil, fmt.Errorf("types: unknown transaction type tag %d", w.Type)
	}
}

// EncodeTransaction serializes any Transaction variant.
func EncodeTransaction(tx Transaction) ([]byte, error) {
	w, err := toTxWire(tx)
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(w)
}

// DecodeTransaction reverses EncodeTransaction.
func DecodeTransaction(b []byte) (Transaction, error) {
	var w txWire
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return nil, fmt.Errorf("types: decode transaction: %w", err)
	}
	return w.toTx()
}

// blockWire is Block's RLP shape: the interface-valued Transactions field is
// replaced with its tagged wire form.
type blockWire struct {
	Header BlockHeader
	Txs    []txWire
}

// EncodeBlock serializes a Block.
func EncodeBlock(b Block) ([]byte, error) {
	w := blockWire{Header: b.Header}
	for _, tx := range b.Transactions {
		tw, err := toTxWire(tx)
		if err != nil {
			return nil, err
		}
		w.Txs = append(w.Txs, tw)
	}
	return rlp.EncodeToBytes(w)
}

// DecodeBlock reverses EncodeBlock.
func DecodeBlock(b []byte) (Block, error) {
	var w blockWire
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return Block{}, fmt.Errorf("types: decode block: %w", err)
	}
	out := Block{Header: w.Header}
	for _, tw := range w.Txs {
		tx, err := tw.toTx()
		if err != nil {
			return Block{}, err
		}
		out.Transactions = append(out.Transactions, tx)
	}
	return out, nil
}

// EncodeReceipt serializes a Receipt.
func EncodeReceipt(r Receipt) ([]byte, error) { return rlp.EncodeToBytes(r) }

// DecodeReceipt reverses EncodeReceipt.
func DecodeReceipt(b []byte) (Receipt, error) {
	var r Receipt
	err := rlp.DecodeBytes(b, &r)
	return r, err
}

// EncodeClass serializes a ContractClass.
func EncodeClass(c *ContractClass) ([]byte, error) { return rlp.EncodeToBytes(c) }

// DecodeClass reverses EncodeClass.
func DecodeClass(b []byte) (*ContractClass, error) {
	c := new(ContractClass)
	if err := rlp.DecodeBytes(b, c); err != nil {
		return nil, err
	}
	return c, nil
}

// nonceEntry/storageEntry/classEntry/compiledEntry linearize StateDelta's
// maps, since RLP has no native map support.
type nonceEntry struct {
	Addr  felt.Address
	Nonce felt.Felt
}
type classHashEntry struct {
	Addr      felt.Address
	ClassHash felt.Felt
}
type compiledEntry struct {
	ClassHash         felt.Felt
	CompiledClassHash felt.Felt
}

type stateDeltaWire struct {
	NonceUpdates       []nonceEntry
	StorageWrites      []StorageKV
	ClassHashUpdates   []classHashEntry
	DeclaredClasses    []*ContractClass
	CompiledClassPairs []compiledEntry
}

// EncodeStateDelta serializes a StateDelta.
func EncodeStateDelta(d *StateDelta) ([]byte, error) {
	w := stateDeltaWire{StorageWrites: d.StorageWrites, DeclaredClasses: d.DeclaredClasses}
	for addr, n := range d.NonceUpdates {
		w.NonceUpdates = append(w.NonceUpdates, nonceEntry{Addr: addr, Nonce: n})
	}
	for addr, ch := range d.ClassHashUpdates {
		w.ClassHashUpdates = append(w.ClassHashUpdates, classHashEntry{Addr: addr, ClassHash: ch})
	}
	for ch, cch := range d.CompiledClassPairs {
		w.CompiledClassPairs = append(w.CompiledClassPairs, compiledEntry{ClassHash: ch, CompiledClassHash: cch})
	}
	return rlp.EncodeToBytes(w)
}

// DecodeStateDelta reverses EncodeStateDelta.
func DecodeStateDelta(b []byte) (*StateDelta, error) {
	var w stateDeltaWire
	if err := rlp.DecodeBytes(b, &w); err != nil {
		return nil, err
	}
	d := NewStateDelta()
	d.StorageWrites = w.StorageWrites
	d.DeclaredClasses = w.DeclaredClasses
	for _, e := range w.NonceUpdates {
		d.NonceUpdates[e.Addr] = e.Nonce
	}
	for _, e := range w.ClassHashUpdates {
		d.ClassHashUpdates[e.Addr] = e.ClassHash
	}
	for _, e := range w.CompiledClassPairs {
		d.CompiledClassPairs[e.ClassHash] = e.CompiledClassHash
	}
	return d, nil
}
