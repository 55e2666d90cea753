package rpc

import (
	"fmt"

	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/types"
)

// WireTx is the JSON shape add_invoke_transaction, add_declare_transaction,
// add_deploy_account_transaction, estimate_fee and simulate_transactions all
// accept: a type-tagged union covering every broadcast transaction variant.
type WireTx struct {
	Type                string      `json:"type"`
	SenderAddress       felt.Felt   `json:"sender_address,omitempty"`
	Nonce               felt.Felt   `json:"nonce"`
	MaxFee              felt.Felt   `json:"max_fee,omitempty"`
	Signature           []felt.Felt `json:"signature,omitempty"`
	Calldata            []felt.Felt `json:"calldata,omitempty"`
	ClassHash           felt.Felt   `json:"class_hash,omitempty"`
	CompiledClassHash   felt.Felt   `json:"compiled_class_hash,omitempty"`
	ContractAddressSalt felt.Felt   `json:"contract_address_salt,omitempty"`
	ConstructorCalldata []felt.Felt `json:"constructor_calldata,omitempty"`
	EntryPointSelector  felt.Felt   `json:"entry_point_selector,omitempty"`
	Version             uint64      `json:"version"`
	IsQuery             bool        `json:"is_query,omitempty"`
}

// toTransaction builds the domain Transaction the wire payload describes and
// stamps its hash, rejecting is_query transactions is left to callers that
// must enforce it (write handlers); estimate_fee/simulate_transactions allow
// is_query through unchanged.
func (w WireTx) toTransaction(chainID felt.Felt) (types.Transaction, error) {
	switch w.Type {
	case "INVOKE", "INVOKE_FUNCTION":
		tx := &types.InvokeTransaction{
			ChainID:   chainID,
			Sender:    felt.NewAddress(w.SenderAddress),
			TxNonce:   w.Nonce,
			MaxFee:    w.MaxFee,
			Signature: w.Signature,
			Calldata:  w.Calldata,
			Version:   w.Version,
			Query:     w.IsQuery,
		}
		tx.TxHash = tx.ComputeHash()
		return tx, nil
	case "DECLARE":
		tx := &types.DeclareTransaction{
			ChainID:           chainID,
			Sender:            felt.NewAddress(w.SenderAddress),
			TxNonce:           w.Nonce,
			MaxFee:            w.MaxFee,
			Signature:         w.Signature,
			ClassHash:         w.ClassHash,
			CompiledClassHash: w.CompiledClassHash,
			Version:           w.Version,
			Query:             w.IsQuery,
		}
		tx.TxHash = tx.ComputeHash()
		return tx, nil
	case "DEPLOY_ACCOUNT":
		deployed := types.ComputeAddress(w.ClassHash, w.ContractAddressSalt, w.ConstructorCalldata)
		tx := &types.DeployAccountTransaction{
			ChainID:             chainID,
			ClassHash:           w.ClassHash,
			ContractAddressSalt: w.ContractAddressSalt,
			ConstructorCalldata: w.ConstructorCalldata,
			TxNonce:             w.Nonce,
			MaxFee:              w.MaxFee,
			Signature:           w.Signature,
			Version:             w.Version,
			Query:               w.IsQuery,
			DeployedAddress:     deployed,
		}
		tx.TxHash = tx.ComputeHash()
		return tx, nil
	case "L1_HANDLER":
		tx := &types.L1HandlerTransaction{
			ChainID:    chainID,
			Contract:   felt.NewAddress(w.SenderAddress),
			EntryPoint: w.EntryPointSelector,
			Calldata:   w.Calldata,
			TxNonce:    w.Nonce,
			Version:    w.Version,
		}
		tx.TxHash = tx.ComputeHash()
		return tx, nil
	default:
		return nil, fmt.Errorf("unknown transaction type %q", w.Type)
	}
}

// receiptFromInfo adapts an in-flight execution outcome to the same receipt
// shape a sealed block's store row carries, for simulate_transactions and
// trace responses that never touch durable storage.
func receiptFromInfo(info *executor.TxExecInfo) types.Receipt {
	return types.Receipt{
		TransactionHash:   info.TransactionHash,
		Status:            info.Status,
		RevertError:       info.RevertError,
		FeeCharged:        info.FeeCharged,
		Resources:         info.Resources,
		Events:            info.Events,
		L2ToL1Messages:    info.L2ToL1Messages,
		DeployedContracts: deployedContracts(info),
		Finality:          types.FinalityAcceptedOnL2,
	}
}

func deployedContracts(info *executor.TxExecInfo) []felt.Address {
	if info.DeployedAddress == nil {
		return nil
	}
	return []felt.Address{*info.DeployedAddress}
}
