package rpc

import (
	"katana-node/core/felt"
	"katana-node/rpc/jsonrpc"
)

// devGate rejects every dev_* call when the node wasn't started with --dev.
func (b *Backend) devGate() *jsonrpc.Error {
	if !b.DevEnabled {
		return jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "dev namespace disabled", nil)
	}
	return nil
}

// GenerateBlock force-mines the producer's currently open block, or an
// empty one if nothing is pending (dev_generateBlock).
func (b *Backend) GenerateBlock() (*struct{}, *jsonrpc.Error) {
	if rpcErr := b.devGate(); rpcErr != nil {
		return nil, rpcErr
	}
	b.Producer.ForceMine()
	return &struct{}{}, nil
}

// SetNextBlockTimestamp pins the timestamp the next sealed block will carry
// (dev_setNextBlockTimestamp).
func (b *Backend) SetNextBlockTimestamp(timestamp uint64) (*struct{}, *jsonrpc.Error) {
	if rpcErr := b.devGate(); rpcErr != nil {
		return nil, rpcErr
	}
	b.Producer.SetNextBlockTimestamp(timestamp)
	return &struct{}{}, nil
}

// IncreaseNextBlockTimestamp advances the next sealed block's timestamp
// relative to the parent's (dev_increaseNextBlockTimestamp).
func (b *Backend) IncreaseNextBlockTimestamp(delta uint64) (*struct{}, *jsonrpc.Error) {
	if rpcErr := b.devGate(); rpcErr != nil {
		return nil, rpcErr
	}
	b.Producer.IncreaseNextBlockTimestamp(delta)
	return &struct{}{}, nil
}

// SetStorageAt writes one slot directly into the currently open block's
// overlay (dev_setStorageAt), bypassing transaction execution entirely.
func (b *Backend) SetStorageAt(contractAddress felt.Felt, key felt.Felt, value felt.Felt) (*struct{}, *jsonrpc.Error) {
	if rpcErr := b.devGate(); rpcErr != nil {
		return nil, rpcErr
	}
	if err := b.Producer.SetStorageAt(felt.NewAddress(contractAddress), key, value); err != nil {
		return nil, internalError(err)
	}
	return &struct{}{}, nil
}

// PredeployedAccountDTO describes one genesis-funded account for local
// development tooling to pick up without parsing the chain spec itself.
type PredeployedAccountDTO struct {
	Address   felt.Felt `json:"address"`
	ClassHash felt.Felt `json:"class_hash"`
	Balance   felt.Felt `json:"balance"`
}

// PredeployedAccounts lists every account the chain spec funded at genesis
// (dev_predeployedAccounts).
func (b *Backend) PredeployedAccounts() ([]PredeployedAccountDTO, *jsonrpc.Error) {
	if rpcErr := b.devGate(); rpcErr != nil {
		return nil, rpcErr
	}
	out := make([]PredeployedAccountDTO, 0, len(b.Spec.Allocations))
	for _, alloc := range b.Spec.Allocations {
		out = append(out, PredeployedAccountDTO{
			Address:   alloc.Address.Felt(),
			ClassHash: alloc.ClassHash,
			Balance:   b.Spec.STRKBalances[alloc.Address],
		})
	}
	return out, nil
}
