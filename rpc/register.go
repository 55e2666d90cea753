package rpc

import "katana-node/rpc/jsonrpc"

// RegisterAll binds every Starknet-RPC method to backend, wiring them
// into server's dispatch table. Dev methods are registered unconditionally;
// devGate rejects them at call time on non-dev nodes, so a --dev toggle
// never needs a second server instance.
func RegisterAll(server *jsonrpc.Server, backend *Backend) error {
	methods := []jsonrpc.Method{
		{Name: "chain_id", Handler: backend.ChainID},
		{Name: "block_number", Handler: backend.BlockNumber},
		{Name: "block_hash_and_number", Handler: backend.BlockHashAndNumber},
		{Name: "get_block_with_tx_hashes", Params: []jsonrpc.Param{{Name: "block_id"}}, Handler: backend.GetBlockWithTxHashes},
		{Name: "get_block_with_txs", Params: []jsonrpc.Param{{Name: "block_id"}}, Handler: backend.GetBlockWithTxs},
		{Name: "get_block_with_receipts", Params: []jsonrpc.Param{{Name: "block_id"}}, Handler: backend.GetBlockWithReceipts},
		{Name: "get_state_update", Params: []jsonrpc.Param{{Name: "block_id"}}, Handler: backend.GetStateUpdate},
		{
			Name:    "get_storage_at",
			Params:  []jsonrpc.Param{{Name: "contract_address"}, {Name: "key"}, {Name: "block_id"}},
			Handler: backend.GetStorageAt,
		},
		{Name: "get_transaction_by_hash", Params: []jsonrpc.Param{{Name: "transaction_hash"}}, Handler: backend.GetTransactionByHash},
		{Name: "get_transaction_receipt", Params: []jsonrpc.Param{{Name: "transaction_hash"}}, Handler: backend.GetTransactionReceipt},
		{Name: "get_class", Params: []jsonrpc.Param{{Name: "block_id"}, {Name: "class_hash"}}, Handler: backend.GetClass},
		{Name: "get_class_at", Params: []jsonrpc.Param{{Name: "block_id"}, {Name: "contract_address"}}, Handler: backend.GetClassAt},
		{Name: "get_class_hash_at", Params: []jsonrpc.Param{{Name: "block_id"}, {Name: "contract_address"}}, Handler: backend.GetClassHashAt},
		{Name: "get_nonce", Params: []jsonrpc.Param{{Name: "block_id"}, {Name: "contract_address"}}, Handler: backend.GetNonce},

		{Name: "call", Params: []jsonrpc.Param{{Name: "request"}, {Name: "block_id"}}, Handler: backend.Call},
		{Name: "estimate_fee", Params: []jsonrpc.Param{{Name: "request"}, {Name: "block_id"}}, Handler: backend.EstimateFee},
		{
			Name:    "simulate_transactions",
			Params:  []jsonrpc.Param{{Name: "transactions"}, {Name: "block_id"}, {Name: "skip_validate", Optional: true}},
			Handler: backend.SimulateTransactions,
		},
		{Name: "get_storage_proof", Params: []jsonrpc.Param{{Name: "block_id"}, {Name: "contract_addresses"}}, Handler: backend.GetStorageProof},

		{Name: "add_invoke_transaction", Params: []jsonrpc.Param{{Name: "invoke_transaction"}}, Handler: backend.AddInvokeTransaction},
		{Name: "add_declare_transaction", Params: []jsonrpc.Param{{Name: "declare_transaction"}}, Handler: backend.AddDeclareTransaction},
		{
			Name:    "add_deploy_account_transaction",
			Params:  []jsonrpc.Param{{Name: "deploy_account_transaction"}},
			Handler: backend.AddDeployAccountTransaction,
		},

		{Name: "dev_generate_block", Handler: backend.GenerateBlock},
		{Name: "dev_set_next_block_timestamp", Params: []jsonrpc.Param{{Name: "timestamp"}}, Handler: backend.SetNextBlockTimestamp},
		{Name: "dev_increase_next_block_timestamp", Params: []jsonrpc.Param{{Name: "delta"}}, Handler: backend.IncreaseNextBlockTimestamp},
		{
			Name:    "dev_set_storage_at",
			Params:  []jsonrpc.Param{{Name: "contract_address"}, {Name: "key"}, {Name: "value"}},
			Handler: backend.SetStorageAt,
		},
		{Name: "dev_predeployed_accounts", Handler: backend.PredeployedAccounts},
	}

	for _, m := range methods {
		if err := server.RegisterMethod(m); err != nil {
			return err
		}
	}
	return nil
}
