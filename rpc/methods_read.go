package rpc

import (
	"errors"

	"katana-node/core/felt"
	"katana-node/core/store"
	"katana-node/rpc/jsonrpc"
)

// ChainID returns the chain's id.
func (b *Backend) ChainID() (felt.Felt, *jsonrpc.Error) {
	return b.Spec.ChainID, nil
}

// BlockNumber returns the latest sealed block's height.
func (b *Backend) BlockNumber() (uint64, *jsonrpc.Error) {
	n, ok := b.Store.LatestNumber()
	if !ok {
		return 0, jsonrpc.NewError(jsonrpc.CodeBlockNotFound, "", nil)
	}
	return n, nil
}

// BlockHashAndNumberResult is block_hash_and_number's response shape.
type BlockHashAndNumberResult struct {
	BlockHash   felt.Felt `json:"block_hash"`
	BlockNumber uint64    `json:"block_number"`
}

// BlockHashAndNumber returns the latest block's hash and height together.
func (b *Backend) BlockHashAndNumber() (*BlockHashAndNumberResult, *jsonrpc.Error) {
	n, ok := b.Store.LatestNumber()
	if !ok {
		return nil, jsonrpc.NewError(jsonrpc.CodeBlockNotFound, "", nil)
	}
	h, err := b.Store.Header(n)
	if err != nil {
		return nil, internalError(err)
	}
	return &BlockHashAndNumberResult{BlockHash: h.Hash(), BlockNumber: n}, nil
}

// GetBlockWithTxHashes returns a block's header plus its ordered body of
// transaction hashes.
func (b *Backend) GetBlockWithTxHashes(id BlockID) (*BlockWithTxHashesDTO, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h, err := b.Store.Header(number)
	if err != nil {
		return nil, blockLookupError(err)
	}
	block, err := b.Store.Block(number)
	if err != nil {
		return nil, blockLookupError(err)
	}
	return &BlockWithTxHashesDTO{HeaderDTO: toHeaderDTO(h), TransactionHashes: block.TxHashes()}, nil
}

// GetBlockWithTxs returns a block's header plus its full transaction body.
func (b *Backend) GetBlockWithTxs(id BlockID) (*BlockWithTxsDTO, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	block, err := b.Store.Block(number)
	if err != nil {
		return nil, blockLookupError(err)
	}
	dto := &BlockWithTxsDTO{HeaderDTO: toHeaderDTO(block.Header)}
	for _, tx := range block.Transactions {
		dto.Transactions = append(dto.Transactions, toTransactionDTO(tx))
	}
	return dto, nil
}

// GetBlockWithReceipts returns a block's header plus every (transaction,
// receipt) pair in body order.
func (b *Backend) GetBlockWithReceipts(id BlockID) (*BlockWithReceiptsDTO, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	block, err := b.Store.Block(number)
	if err != nil {
		return nil, blockLookupError(err)
	}
	receipts, err := b.Store.ReceiptsByBlock(number)
	if err != nil {
		return nil, blockLookupError(err)
	}
	dto := &BlockWithReceiptsDTO{HeaderDTO: toHeaderDTO(block.Header)}
	for i, tx := range block.Transactions {
		dto.Transactions = append(dto.Transactions, TxWithReceiptDTO{
			Transaction: toTransactionDTO(tx),
			Receipt:     toReceiptDTO(receipts[i]),
		})
	}
	return dto, nil
}

// GetStateUpdate returns the state diff applied at the requested block.
func (b *Backend) GetStateUpdate(id BlockID) (*StateUpdateDTO, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	h, err := b.Store.Header(number)
	if err != nil {
		return nil, blockLookupError(err)
	}
	delta, err := b.Store.StateUpdate(number)
	if err != nil {
		return nil, blockLookupError(err)
	}
	return &StateUpdateDTO{BlockHash: h.Hash(), NewRoot: h.StateRoot, StateDiff: toStateDiffDTO(delta)}, nil
}

// GetStorageAt reads one (contract, key) storage slot as of the requested
// block.
func (b *Backend) GetStorageAt(address felt.Felt, key felt.Felt, id BlockID) (felt.Felt, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return felt.Zero(), rpcErr
	}
	v, _, err := b.stateAt(number).Storage(felt.NewAddress(address), key)
	if err != nil {
		return felt.Zero(), internalError(err)
	}
	return v, nil
}

// GetTransactionByHash looks up a transaction by hash, independent of
// block_id.
func (b *Backend) GetTransactionByHash(hash felt.Felt) (*TransactionDTO, *jsonrpc.Error) {
	tx, err := b.Store.Transaction(hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, jsonrpc.NewError(44, "transaction hash not found", nil)
		}
		return nil, internalError(err)
	}
	dto := toTransactionDTO(tx)
	return &dto, nil
}

// GetTransactionReceipt looks up a transaction's receipt by hash.
func (b *Backend) GetTransactionReceipt(hash felt.Felt) (*ReceiptDTO, *jsonrpc.Error) {
	r, err := b.Store.Receipt(hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, jsonrpc.NewError(44, "transaction hash not found", nil)
		}
		return nil, internalError(err)
	}
	dto := toReceiptDTO(r)
	return &dto, nil
}

// GetClass returns a declared class by class hash as of the requested
// block.
func (b *Backend) GetClass(id BlockID, classHash felt.Felt) (*ClassDTO, *jsonrpc.Error) {
	if _, rpcErr := b.blockNumber(id); rpcErr != nil {
		return nil, rpcErr
	}
	c, err := b.Store.Class(classHash)
	if err != nil {
		return nil, classLookupError(err)
	}
	dto := toClassDTO(c)
	return &dto, nil
}

// GetClassAt returns the class declared at a deployed contract address as
// of the requested block.
func (b *Backend) GetClassAt(id BlockID, address felt.Felt) (*ClassDTO, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return nil, rpcErr
	}
	classHash, ok, err := b.stateAt(number).ClassHash(felt.NewAddress(address))
	if err != nil {
		return nil, internalError(err)
	}
	if !ok || classHash.IsZero() {
		return nil, jsonrpc.NewError(20, "contract not found", nil)
	}
	c, err := b.Store.Class(classHash)
	if err != nil {
		return nil, classLookupError(err)
	}
	dto := toClassDTO(c)
	return &dto, nil
}

// GetClassHashAt returns the class hash assigned to a deployed contract
// address as of the requested block.
func (b *Backend) GetClassHashAt(id BlockID, address felt.Felt) (felt.Felt, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return felt.Zero(), rpcErr
	}
	classHash, ok, err := b.stateAt(number).ClassHash(felt.NewAddress(address))
	if err != nil {
		return felt.Zero(), internalError(err)
	}
	if !ok || classHash.IsZero() {
		return felt.Zero(), jsonrpc.NewError(20, "contract not found", nil)
	}
	return classHash, nil
}

// GetNonce returns an account's nonce as of the requested block.
func (b *Backend) GetNonce(id BlockID, address felt.Felt) (felt.Felt, *jsonrpc.Error) {
	number, rpcErr := b.blockNumber(id)
	if rpcErr != nil {
		return felt.Zero(), rpcErr
	}
	n, _, err := b.stateAt(number).Nonce(felt.NewAddress(address))
	if err != nil {
		return felt.Zero(), internalError(err)
	}
	return n, nil
}

// StorageProofDTO is the response of get_storage_proof: the encoded node
// set plus the root it was produced against.
type StorageProofDTO struct {
	Root  felt.Felt         `json:"global_roots"`
	Nodes map[string]string `json:"nodes"`
}
