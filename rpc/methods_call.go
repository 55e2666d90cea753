package rpc

import (
	"encoding/hex"

	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/state"
	"katana-node/rpc/jsonrpc"
)

// CallRequest is the request_params shape for starknet_call.
type CallRequest struct {
	ContractAddress    felt.Felt   `json:"contract_address"`
	EntryPointSelector felt.Felt   `json:"entry_point_selector"`
	Calldata           []felt.Felt `json:"calldata"`
}

// Call executes a read-only view function against the requested block's
// state, without touching the pool or producer.
func (b *Backend) Call(req CallRequest, id BlockID) ([]felt.Felt, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	base := b.latestStateReader()
	if latest, ok := b.Store.LatestNumber(); ok && number != latest {
		base = state.NewHistoricalStateProvider(b.Store, number)
	}
	out, err := b.VM.Call(base, felt.NewAddress(req.ContractAddress), req.EntryPointSelector, req.Calldata)
	if err != nil {
		if execErr, ok := executor.AsExecutionError(err); ok {
			return nil, jsonrpc.NewError(jsonrpc.CodeContractError, execErr.Error(), nil)
		}
		return nil, internalError(err)
	}
	return out, nil
}

// FeeEstimateDTO is one estimate_fee/simulate_transactions fee result.
type FeeEstimateDTO struct {
	OverallFee felt.Felt `json:"overall_fee"`
	Unit       string    `json:"unit"`
}

// EstimateFee estimates the fee of each transaction in txs without
// admitting them to the pool or mutating durable state.
func (b *Backend) EstimateFee(txs []WireTx, id BlockID) ([]FeeEstimateDTO, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	block := b.blockEnvAt(number)

	out := make([]FeeEstimateDTO, 0, len(txs))
	for _, w := range txs {
		tx, err := w.toTransaction(b.Spec.ChainID)
		if err != nil {
			return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error(), nil)
		}
		fee, err := b.VM.EstimateFee(b.latestStateReader(), block, tx)
		if err != nil {
			if execErr, ok := executor.AsExecutionError(err); ok {
				return nil, jsonrpc.NewError(jsonrpc.CodeContractError, execErr.Error(), nil)
			}
			return nil, internalError(err)
		}
		out = append(out, FeeEstimateDTO{OverallFee: fee, Unit: "STRK"})
	}
	return out, nil
}

// SimulationDTO is one simulate_transactions result: the would-be receipt
// plus the fee estimate.
type SimulationDTO struct {
	TransactionTrace ReceiptDTO     `json:"transaction_trace"`
	FeeEstimate      FeeEstimateDTO `json:"fee_estimate"`
}

// SimulateTransactions runs each transaction in txs against a disposable
// overlay and reports what would happen, without admitting them to the
// pool.
func (b *Backend) SimulateTransactions(txs []WireTx, id BlockID, skipValidate bool) ([]SimulationDTO, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	block := b.blockEnvAt(number)
	flags := executor.Flags{SkipValidate: skipValidate}

	out := make([]SimulationDTO, 0, len(txs))
	for _, w := range txs {
		tx, err := w.toTransaction(b.Spec.ChainID)
		if err != nil {
			return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error(), nil)
		}
		info, err := b.VM.Simulate(b.latestStateReader(), block, flags, tx)
		if err != nil {
			if execErr, ok := executor.AsExecutionError(err); ok {
				return nil, jsonrpc.NewError(jsonrpc.CodeContractError, execErr.Error(), nil)
			}
			return nil, internalError(err)
		}
		receipt := toReceiptDTO(receiptFromInfo(info))
		out = append(out, SimulationDTO{
			TransactionTrace: receipt,
			FeeEstimate:      FeeEstimateDTO{OverallFee: info.FeeCharged, Unit: "STRK"},
		})
	}
	return out, nil
}

func (b *Backend) blockEnvAt(number uint64) executor.BlockEnv {
	var seq felt.Felt
	if h, err := b.Store.Header(number); err == nil {
		seq = h.SequencerAddr.Felt()
	}
	return executor.BlockEnv{
		Number:        number + 1,
		SequencerAddr: felt.NewAddress(seq),
	}
}

// GetStorageProof produces a multi-proof over the contract trie's
// current root for the requested contract addresses.
func (b *Backend) GetStorageProof(id BlockID, contractAddresses []felt.Felt) (*StorageProofDTO, *jsonrpc.Error) {
	if _, rpcErr := b.blockNumber(id); rpcErr != nil {
		return nil, rpcErr
	}
	proof, err := b.Tries.GetMultiProof("contract", contractAddresses)
	if err != nil {
		return nil, internalError(err)
	}
	dto := &StorageProofDTO{Root: proof.Root(), Nodes: make(map[string]string, proof.Size())}
	for hash, encoded := range proof.EncodedNodes() {
		dto.Nodes[hash.Hex()] = "0x" + hex.EncodeToString(encoded)
	}
	return dto, nil
}
