package executor

import (
	"fmt"

	"github.com/wasmerio/wasmer-go/wasmer"

	"katana-node/core/felt"
	"katana-node/core/types"
)

// ContractVM runs a declared class's CasmBytecode as a WASM module instead
// of going through CairoVM's built-in entry-point table. This is an
// optional execution path: most declared classes in this adapter never
// carry WASM bytecode and keep running through CairoVM's built-ins; a class
// whose CasmBytecode happens to be a valid WASM module (a harness/test
// fixture, not real Sierra-to-CASM output) can opt into this path instead.
// Grounded on the wasmer-go dependency in core/virtual_machine.go,
// kept as a pluggable executor behind the same dispatch shape rather than
// dropped.
type ContractVM struct {
	engine *wasmer.Engine
	store  *wasmer.Store
}

// NewContractVM constructs a fresh wasmer store. Cheap enough to build per
// call; callers that invoke it often should cache the result.
func NewContractVM() *ContractVM {
	engine := wasmer.NewEngine()
	return &ContractVM{engine: engine, store: wasmer.NewStore(engine)}
}

// CallEntryPoint instantiates class.CasmBytecode as a WASM module and
// invokes the named export, passing calldata as little-endian i64 values
// and collecting i64 results back into Felts. Returns ErrEntryPointNotFound
// if the module exposes no such export, and ErrExecutionFailed for any
// instantiation or trap error.
func (vm *ContractVM) CallEntryPoint(class *types.ContractClass, export string, calldata []felt.Felt) ([]felt.Felt, error) {
	module, err := wasmer.NewModule(vm.store, class.CasmBytecode)
	if err != nil {
		return nil, NewExecutionError(ErrExecutionFailed, fmt.Sprintf("invalid wasm module: %v", err))
	}

	importObject := wasmer.NewImportObject()
	instance, err := wasmer.NewInstance(module, importObject)
	if err != nil {
		return nil, NewExecutionError(ErrExecutionFailed, fmt.Sprintf("instantiate: %v", err))
	}

	fn, err := instance.Exports.GetFunction(export)
	if err != nil {
		return nil, NewExecutionError(ErrEntryPointNotFound, export)
	}

	args := make([]interface{}, len(calldata))
	for i, c := range calldata {
		args[i] = int64(c.BigInt().Int64())
	}

	res, err := fn(args...)
	if err != nil {
		return nil, NewExecutionError(ErrExecutionFailed, fmt.Sprintf("trap: %v", err))
	}

	switch v := res.(type) {
	case nil:
		return nil, nil
	case int64:
		return []felt.Felt{felt.FromUint64(uint64(v))}, nil
	case []interface{}:
		out := make([]felt.Felt, 0, len(v))
		for _, r := range v {
			if n, ok := r.(int64); ok {
				out = append(out, felt.FromUint64(uint64(n)))
			}
		}
		return out, nil
	default:
		return nil, nil
	}
}
