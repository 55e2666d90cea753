package rpc

import (
	"katana-node/core/felt"
	"katana-node/core/types"
)

// HeaderDTO is the JSON shape of a block header.
type HeaderDTO struct {
	Hash            felt.Felt `json:"block_hash"`
	ParentHash      felt.Felt `json:"parent_hash"`
	Number          uint64    `json:"block_number"`
	Timestamp       uint64    `json:"timestamp"`
	SequencerAddr   felt.Felt `json:"sequencer_address"`
	StateRoot       felt.Felt `json:"new_root"`
	L1GasPriceETH   felt.Felt `json:"l1_gas_price_eth"`
	L1GasPriceSTRK  felt.Felt `json:"l1_gas_price_strk"`
	L1DataPriceETH  felt.Felt `json:"l1_data_gas_price_eth"`
	L1DataPriceSTRK felt.Felt `json:"l1_data_gas_price_strk"`
	ProtocolVersion string    `json:"starknet_version"`
}

func toHeaderDTO(h types.BlockHeader) HeaderDTO {
	return HeaderDTO{
		Hash:            h.Hash(),
		ParentHash:      h.ParentHash,
		Number:          h.Number,
		Timestamp:       h.Timestamp,
		SequencerAddr:   h.SequencerAddr.Felt(),
		StateRoot:       h.StateRoot,
		L1GasPriceETH:   h.L1GasPriceETH,
		L1GasPriceSTRK:  h.L1GasPriceSTRK,
		L1DataPriceETH:  h.L1DataPriceETH,
		L1DataPriceSTRK: h.L1DataPriceSTRK,
		ProtocolVersion: h.ProtocolVersion,
	}
}

// TransactionDTO is a type-tagged, JSON-friendly rendering of any
// Transaction variant.
type TransactionDTO struct {
	TransactionHash felt.Felt   `json:"transaction_hash"`
	Type            string      `json:"type"`
	SenderAddress   felt.Felt   `json:"sender_address,omitempty"`
	Nonce           felt.Felt   `json:"nonce"`
	MaxFee          felt.Felt   `json:"max_fee,omitempty"`
	Signature       []felt.Felt `json:"signature,omitempty"`
	Calldata        []felt.Felt `json:"calldata,omitempty"`
	ClassHash       felt.Felt   `json:"class_hash,omitempty"`
	CompiledClassHash felt.Felt `json:"compiled_class_hash,omitempty"`
	ContractAddressSalt felt.Felt `json:"contract_address_salt,omitempty"`
	ConstructorCalldata []felt.Felt `json:"constructor_calldata,omitempty"`
	EntryPointSelector felt.Felt `json:"entry_point_selector,omitempty"`
	Version         uint64      `json:"version"`
	IsQuery         bool        `json:"is_query,omitempty"`
}

func toTransactionDTO(tx types.Transaction) TransactionDTO {
	dto := TransactionDTO{
		TransactionHash: tx.Hash(),
		Type:            tx.Type().String(),
		SenderAddress:   tx.SenderAddress().Felt(),
		Nonce:           tx.Nonce(),
		IsQuery:         tx.IsQuery(),
	}
	switch t := tx.(type) {
	case *types.InvokeTransaction:
		dto.MaxFee = t.MaxFee
		dto.Signature = t.Signature
		dto.Calldata = t.Calldata
		dto.Version = t.Version
	case *types.DeclareTransaction:
		dto.MaxFee = t.MaxFee
		dto.Signature = t.Signature
		dto.ClassHash = t.ClassHash
		dto.CompiledClassHash = t.CompiledClassHash
		dto.Version = t.Version
	case *types.DeployAccountTransaction:
		dto.MaxFee = t.MaxFee
		dto.Signature = t.Signature
		dto.ClassHash = t.ClassHash
		dto.ContractAddressSalt = t.ContractAddressSalt
		dto.ConstructorCalldata = t.ConstructorCalldata
		dto.Version = t.Version
	case *types.L1HandlerTransaction:
		dto.Calldata = t.Calldata
		dto.EntryPointSelector = t.EntryPoint
		dto.Version = t.Version
	}
	return dto
}

// EventDTO is the JSON shape of one emitted event.
type EventDTO struct {
	FromAddress felt.Felt   `json:"from_address"`
	Keys        []felt.Felt `json:"keys"`
	Data        []felt.Felt `json:"data"`
}

// ReceiptDTO is the JSON shape of a transaction receipt.
type ReceiptDTO struct {
	TransactionHash felt.Felt  `json:"transaction_hash"`
	Status          string     `json:"execution_status"`
	RevertReason    string     `json:"revert_reason,omitempty"`
	ActualFee       felt.Felt  `json:"actual_fee"`
	FinalityStatus  string     `json:"finality_status"`
	Events          []EventDTO `json:"events"`
	DeployedContracts []felt.Felt `json:"deployed_contracts,omitempty"`
}

func toReceiptDTO(r types.Receipt) ReceiptDTO {
	dto := ReceiptDTO{
		TransactionHash: r.TransactionHash,
		ActualFee:       r.FeeCharged,
	}
	if r.Status == types.ExecutionReverted {
		dto.Status = "REVERTED"
		dto.RevertReason = r.RevertError
	} else {
		dto.Status = "SUCCEEDED"
	}
	if r.Finality == types.FinalityAcceptedOnL1 {
		dto.FinalityStatus = "ACCEPTED_ON_L1"
	} else {
		dto.FinalityStatus = "ACCEPTED_ON_L2"
	}
	for _, e := range r.Events {
		dto.Events = append(dto.Events, EventDTO{FromAddress: e.From.Felt(), Keys: e.Keys, Data: e.Data})
	}
	for _, addr := range r.DeployedContracts {
		dto.DeployedContracts = append(dto.DeployedContracts, addr.Felt())
	}
	return dto
}

// BlockWithTxHashesDTO is the response of get_block_with_tx_hashes.
type BlockWithTxHashesDTO struct {
	HeaderDTO
	TransactionHashes []felt.Felt `json:"transactions"`
}

// BlockWithTxsDTO is the response of get_block_with_txs.
type BlockWithTxsDTO struct {
	HeaderDTO
	Transactions []TransactionDTO `json:"transactions"`
}

// BlockWithReceiptsDTO is the response of get_block_with_receipts.
type BlockWithReceiptsDTO struct {
	HeaderDTO
	Transactions []TxWithReceiptDTO `json:"transactions"`
}

// TxWithReceiptDTO pairs a transaction with its receipt, as
// get_block_with_receipts returns.
type TxWithReceiptDTO struct {
	Transaction TransactionDTO `json:"transaction"`
	Receipt     ReceiptDTO     `json:"receipt"`
}

// StateUpdateDTO is the response of get_state_update.
type StateUpdateDTO struct {
	BlockHash felt.Felt        `json:"block_hash"`
	NewRoot   felt.Felt        `json:"new_root"`
	StateDiff StateDiffDTO     `json:"state_diff"`
}

// StateDiffDTO linearizes a StateDelta's maps for JSON.
type StateDiffDTO struct {
	Nonces           []NonceDiffDTO   `json:"nonces"`
	StorageDiffs     []StorageDiffDTO `json:"storage_diffs"`
	DeployedContracts []ClassHashDiffDTO `json:"deployed_contracts"`
	DeclaredClasses  []felt.Felt      `json:"declared_classes"`
}

type NonceDiffDTO struct {
	ContractAddress felt.Felt `json:"contract_address"`
	Nonce           felt.Felt `json:"nonce"`
}

type ClassHashDiffDTO struct {
	Address   felt.Felt `json:"address"`
	ClassHash felt.Felt `json:"class_hash"`
}

type StorageDiffDTO struct {
	Address felt.Felt          `json:"address"`
	Key     felt.Felt          `json:"key"`
	Value   felt.Felt          `json:"value"`
}

func toStateDiffDTO(d *types.StateDelta) StateDiffDTO {
	dto := StateDiffDTO{}
	for addr, n := range d.NonceUpdates {
		dto.Nonces = append(dto.Nonces, NonceDiffDTO{ContractAddress: addr.Felt(), Nonce: n})
	}
	for addr, ch := range d.ClassHashUpdates {
		dto.DeployedContracts = append(dto.DeployedContracts, ClassHashDiffDTO{Address: addr.Felt(), ClassHash: ch})
	}
	for _, kv := range d.StorageWrites {
		dto.StorageDiffs = append(dto.StorageDiffs, StorageDiffDTO{Address: kv.Address.Felt(), Key: kv.Key, Value: kv.Value})
	}
	for _, c := range d.DeclaredClasses {
		dto.DeclaredClasses = append(dto.DeclaredClasses, c.Hash)
	}
	return dto
}

// ClassDTO is the JSON shape of a declared contract class.
type ClassDTO struct {
	Kind              string      `json:"kind"`
	ClassHash         felt.Felt   `json:"class_hash"`
	CompiledClassHash felt.Felt   `json:"compiled_class_hash,omitempty"`
	ABI               string      `json:"abi,omitempty"`
	SierraProgram     []felt.Felt `json:"sierra_program,omitempty"`
	ProgramCompressed []byte      `json:"program,omitempty"`
}

func toClassDTO(c *types.ContractClass) ClassDTO {
	dto := ClassDTO{ClassHash: c.Hash}
	if c.Kind == types.ClassSierra {
		dto.Kind = "SIERRA"
		dto.CompiledClassHash = c.CompiledClassHash
		dto.ABI = c.ABI
		dto.SierraProgram = c.SierraProgram
	} else {
		dto.Kind = "LEGACY"
		dto.ProgramCompressed = c.ProgramCompressed
	}
	return dto
}
