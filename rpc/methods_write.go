package rpc

import (
	"katana-node/core/felt"
	"katana-node/core/txpool"
	"katana-node/rpc/jsonrpc"
)

// AddInvokeResult is add_invoke_transaction's response shape.
type AddInvokeResult struct {
	TransactionHash felt.Felt `json:"transaction_hash"`
}

// AddInvokeTransaction admits an INVOKE transaction to the pool.
func (b *Backend) AddInvokeTransaction(tx WireTx) (*AddInvokeResult, *jsonrpc.Error) {
	if tx.IsQuery {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "is_query transactions cannot be broadcast", nil)
	}
	domainTx, err := tx.toTransaction(b.Spec.ChainID)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error(), nil)
	}
	if err := b.Pool.AddTx(domainTx); err != nil {
		return nil, poolAdmissionError(err)
	}
	return &AddInvokeResult{TransactionHash: domainTx.Hash()}, nil
}

// AddDeclareResult is add_declare_transaction's response shape.
type AddDeclareResult struct {
	TransactionHash felt.Felt `json:"transaction_hash"`
	ClassHash       felt.Felt `json:"class_hash"`
}

// AddDeclareTransaction admits a DECLARE transaction to the pool.
func (b *Backend) AddDeclareTransaction(tx WireTx) (*AddDeclareResult, *jsonrpc.Error) {
	if tx.IsQuery {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "is_query transactions cannot be broadcast", nil)
	}
	domainTx, err := tx.toTransaction(b.Spec.ChainID)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error(), nil)
	}
	if err := b.Pool.AddTx(domainTx); err != nil {
		return nil, poolAdmissionError(err)
	}
	return &AddDeclareResult{TransactionHash: domainTx.Hash(), ClassHash: tx.ClassHash}, nil
}

// AddDeployAccountResult is add_deploy_account_transaction's response shape.
type AddDeployAccountResult struct {
	TransactionHash felt.Felt `json:"transaction_hash"`
	ContractAddress felt.Felt `json:"contract_address"`
}

// AddDeployAccountTransaction admits a DEPLOY_ACCOUNT transaction to the
// pool.
func (b *Backend) AddDeployAccountTransaction(tx WireTx) (*AddDeployAccountResult, *jsonrpc.Error) {
	if tx.IsQuery {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "is_query transactions cannot be broadcast", nil)
	}
	domainTx, err := tx.toTransaction(b.Spec.ChainID)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error(), nil)
	}
	if err := b.Pool.AddTx(domainTx); err != nil {
		return nil, poolAdmissionError(err)
	}
	return &AddDeployAccountResult{
		TransactionHash: domainTx.Hash(),
		ContractAddress: domainTx.SenderAddress().Felt(),
	}, nil
}

// poolAdmissionError maps a pool rejection's taxonomy to the Starknet RPC
// code closest to its cause; anything
// unrecognized falls back to a generic contract error so the caller at
// least sees the pool's message.
func poolAdmissionError(err error) *jsonrpc.Error {
	invalid, ok := err.(*txpool.InvalidTransactionError)
	if !ok {
		return jsonrpc.NewError(jsonrpc.CodeContractError, err.Error(), nil)
	}
	switch invalid.Kind {
	case txpool.RejectInvalidNonce:
		return jsonrpc.NewError(jsonrpc.CodeInvalidTransactionNonce, invalid.Msg, nil)
	case txpool.RejectInsufficientFunds:
		return jsonrpc.NewError(jsonrpc.CodeInsufficientBalance, invalid.Msg, nil)
	case txpool.RejectIntrinsicFeeTooLow:
		return jsonrpc.NewError(jsonrpc.CodeInsufficientMaxFee, invalid.Msg, nil)
	case txpool.RejectClassAlreadyDeclared:
		return jsonrpc.NewError(jsonrpc.CodeClassAlreadyDeclared, invalid.Msg, nil)
	default:
		return jsonrpc.NewError(jsonrpc.CodeContractError, invalid.Msg, nil)
	}
}
