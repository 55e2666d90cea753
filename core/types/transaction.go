// Package types defines every persisted record of the sequencer: blocks,
// transactions, receipts, state deltas and contract classes.
package types

import (
	"katana-node/core/crypto"
	"katana-node/core/felt"
)

// TxType enumerates the transaction variants this adapter supports.
type TxType uint8

const (
	TxInvoke TxType = iota
	TxDeclare
	TxDeployAccount
	TxL1Handler
)

func (t TxType) String() string {
	switch t {
	case TxInvoke:
		return "INVOKE"
	case TxDeclare:
		return "DECLARE"
	case TxDeployAccount:
		return "DEPLOY_ACCOUNT"
	case TxL1Handler:
		return "L1_HANDLER"
	default:
		return "UNKNOWN"
	}
}

// ResourceBounds mirrors the v3 fee-market bounds: a max amount and a max
// price per unit. Only InvokeTransaction carries one.
type ResourceBounds struct {
	MaxAmount    uint64
	MaxPricePerUnit felt.Felt
}

// Transaction is the common surface every variant satisfies. Hash is a
// variant-specific structured hash over its fields plus chain id; IsQuery marks simulation-only transaction versions, which the RPC
// write methods must reject.
type Transaction interface {
	Hash() felt.Felt
	Type() TxType
	SenderAddress() felt.Address
	Nonce() felt.Felt
	IsQuery() bool
}

// InvokeTransaction invokes an already-deployed account's __execute__.
type InvokeTransaction struct {
	TxHash      felt.Felt
	ChainID     felt.Felt
	Sender      felt.Address
	TxNonce     felt.Felt
	MaxFee      felt.Felt
	Bounds      ResourceBounds
	Signature   []felt.Felt
	Calldata    []felt.Felt
	Version     uint64
	Query       bool
}

func (t *InvokeTransaction) Hash() felt.Felt          { return t.TxHash }
func (t *InvokeTransaction) Type() TxType             { return TxInvoke }
func (t *InvokeTransaction) SenderAddress() felt.Address { return t.Sender }
func (t *InvokeTransaction) Nonce() felt.Felt         { return t.TxNonce }
func (t *InvokeTransaction) IsQuery() bool            { return t.Query }

// ComputeHash derives TxHash from the structured fields, per the "invoke"
// domain tag plus chain id.
func (t *InvokeTransaction) ComputeHash() felt.Felt {
	inputs := []felt.Felt{domainTag("invoke"), t.ChainID, t.Sender.Felt(), t.TxNonce, t.MaxFee}
	inputs = append(inputs, t.Calldata...)
	return crypto.Poseidon(inputs...)
}

// DeclareTransaction declares a new contract class.
type DeclareTransaction struct {
	TxHash            felt.Felt
	ChainID           felt.Felt
	Sender            felt.Address
	TxNonce           felt.Felt
	MaxFee            felt.Felt
	Signature         []felt.Felt
	ClassHash         felt.Felt
	CompiledClassHash felt.Felt // zero for legacy (Cairo 0) classes
	Version           uint64
	Query             bool
}

func (t *DeclareTransaction) Hash() felt.Felt          { return t.TxHash }
func (t *DeclareTransaction) Type() TxType             { return TxDeclare }
func (t *DeclareTransaction) SenderAddress() felt.Address { return t.Sender }
func (t *DeclareTransaction) Nonce() felt.Felt         { return t.TxNonce }
func (t *DeclareTransaction) IsQuery() bool            { return t.Query }

func (t *DeclareTransaction) ComputeHash() felt.Felt {
	return crypto.Poseidon(domainTag("declare"), t.ChainID, t.Sender.Felt(), t.TxNonce, t.MaxFee, t.ClassHash, t.CompiledClassHash)
}

// DeployAccountTransaction deploys and simultaneously validates a new
// account contract.
type DeployAccountTransaction struct {
	TxHash              felt.Felt
	ChainID             felt.Felt
	ClassHash           felt.Felt
	ContractAddressSalt felt.Felt
	ConstructorCalldata []felt.Felt
	TxNonce             felt.Felt
	MaxFee              felt.Felt
	Signature           []felt.Felt
	Version             uint64
	Query               bool

	// DeployedAddress is computed deterministically from ClassHash, salt and
	// constructor calldata at construction time.
	DeployedAddress felt.Address
}

func (t *DeployAccountTransaction) Hash() felt.Felt { return t.TxHash }
func (t *DeployAccountTransaction) Type() TxType    { return TxDeployAccount }
func (t *DeployAccountTransaction) SenderAddress() felt.Address {
	return t.DeployedAddress
}
func (t *DeployAccountTransaction) Nonce() felt.Felt { return t.TxNonce }
func (t *DeployAccountTransaction) IsQuery() bool    { return t.Query }

func (t *DeployAccountTransaction) ComputeHash() felt.Felt {
	inputs := []felt.Felt{domainTag("deploy_account"), t.ChainID, t.ClassHash, t.ContractAddressSalt, t.TxNonce, t.MaxFee}
	inputs = append(inputs, t.ConstructorCalldata...)
	return crypto.Poseidon(inputs...)
}

// ComputeAddress derives the deterministic deployed contract address from
// class hash, salt and constructor calldata.
func ComputeAddress(classHash, salt felt.Felt, constructorCalldata []felt.Felt) felt.Address {
	inputs := []felt.Felt{domainTag("contract_address"), classHash, salt}
	inputs = append(inputs, constructorCalldata...)
	return felt.NewAddress(crypto.Poseidon(inputs...))
}

// L1HandlerTransaction is injected by the (out-of-core) L1 bridge; it skips
// the stateful admission validator.
type L1HandlerTransaction struct {
	TxHash       felt.Felt
	ChainID      felt.Felt
	Contract     felt.Address
	EntryPoint   felt.Felt
	Calldata     []felt.Felt
	TxNonce      felt.Felt
	Version      uint64
}

func (t *L1HandlerTransaction) Hash() felt.Felt          { return t.TxHash }
func (t *L1HandlerTransaction) Type() TxType             { return TxL1Handler }
func (t *L1HandlerTransaction) SenderAddress() felt.Address { return t.Contract }
func (t *L1HandlerTransaction) Nonce() felt.Felt         { return t.TxNonce }
func (t *L1HandlerTransaction) IsQuery() bool            { return false }

func (t *L1HandlerTransaction) ComputeHash() felt.Felt {
	inputs := []felt.Felt{domainTag("l1_handler"), t.ChainID, t.Contract.Felt(), t.EntryPoint, t.TxNonce}
	inputs = append(inputs, t.Calldata...)
	return crypto.Poseidon(inputs...)
}

func domainTag(s string) felt.Felt {
	return felt.FromBytesBE([]byte(s))
}
