package types

import (
	"katana-node/core/crypto"
	"katana-node/core/felt"
)

// BlockHeader carries every field the block commitment covers. ProtocolVersion is
// pinned to a single synthetic value for this reimplementation (see
// DESIGN.md's resolution of the "v3 resource bounds hashing" open question).
type BlockHeader struct {
	ParentHash      felt.Felt
	Number          uint64
	Timestamp       uint64
	SequencerAddr   felt.Address
	StateRoot       felt.Felt
	L1GasPriceETH   felt.Felt
	L1GasPriceSTRK  felt.Felt
	L1DataPriceETH  felt.Felt
	L1DataPriceSTRK felt.Felt
	ProtocolVersion string
	TxCommitment    felt.Felt
	EventCommitment felt.Felt
}

// Hash computes the header hash per the invariant:
// H(parent_hash, number, state_root, sequencer, timestamp, tx_commitment,
// event_commitment, version).
func (h BlockHeader) Hash() felt.Felt {
	return crypto.Poseidon(
		h.ParentHash,
		felt.FromUint64(h.Number),
		h.StateRoot,
		h.SequencerAddr.Felt(),
		felt.FromUint64(h.Timestamp),
		h.TxCommitment,
		h.EventCommitment,
		felt.FromBytesBE([]byte(h.ProtocolVersion)),
	)
}

// Block is a sealed header plus its ordered, executed transaction body.
type Block struct {
	Header       BlockHeader
	Transactions []Transaction
}

// TxHashes returns the ordered list of transaction hashes that make up the
// block body (used by both storage's BlockBodies table and the RPC
// getBlockWithTxHashes method).
func (b Block) TxHashes() []felt.Felt {
	out := make([]felt.Felt, len(b.Transactions))
	for i, tx := range b.Transactions {
		out[i] = tx.Hash()
	}
	return out
}

// ComputeTxCommitment hashes the ordered transaction hash list into a single
// commitment, the value stored in the header.
func ComputeTxCommitment(hashes []felt.Felt) felt.Felt {
	return crypto.Poseidon(append([]felt.Felt{domainTag("tx_commitment")}, hashes...)...)
}

// ComputeEventCommitment hashes the ordered per-transaction event list into a
// single commitment.
func ComputeEventCommitment(events []Event) felt.Felt {
	inputs := []felt.Felt{domainTag("event_commitment")}
	for _, e := range events {
		inputs = append(inputs, e.From.Felt())
		inputs = append(inputs, e.Keys...)
		inputs = append(inputs, e.Data...)
	}
	return crypto.Poseidon(inputs...)
}
