// Package rpc implements the JSON-RPC façade: read methods
// over the durable store, write methods that feed the pool, subscription
// feeds over the pool's listener channels, and a dev namespace for local
// chains.
package rpc

import (
	"errors"

	"github.com/sirupsen/logrus"

	"katana-node/core/chainspec"
	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/producer"
	"katana-node/core/state"
	"katana-node/core/store"
	"katana-node/core/trie"
	"katana-node/core/txpool"
	"katana-node/rpc/jsonrpc"
)

// Backend wires the façade to the node's actual components. Every handler
// in this package is a method on Backend so it can be registered directly
// as a jsonrpc.Method.Handler.
type Backend struct {
	Store     *store.Store
	Pool      *txpool.Pool
	Producer  *producer.Producer
	VM        *executor.CairoVM
	Tries     *trie.Manager
	Cfg       executor.CfgEnv
	Spec      *chainspec.ChainSpec
	Log       *logrus.Logger

	// DevEnabled gates the dev_* namespace; only set on
	// --dev nodes.
	DevEnabled bool
}

// NewBackend constructs a Backend over an already-running node's
// components.
func NewBackend(st *store.Store, pool *txpool.Pool, prod *producer.Producer, vm *executor.CairoVM, tries *trie.Manager, cfg executor.CfgEnv, spec *chainspec.ChainSpec, devEnabled bool, log *logrus.Logger) *Backend {
	return &Backend{
		Store:      st,
		Pool:       pool,
		Producer:   prod,
		VM:         vm,
		Tries:      tries,
		Cfg:        cfg,
		Spec:       spec,
		DevEnabled: devEnabled,
		Log:        log,
	}
}

// latestStateReader returns a state.Reader over the store's current tip,
// the base every call/estimate_fee/simulate_transactions handler executes
// against.
func (b *Backend) latestStateReader() state.Reader {
	return state.NewLatestStateProvider(b.Store)
}

// blockNumber resolves a BlockID to a concrete height, erroring with
// CodeBlockNotFound when the requested block doesn't exist.
func (b *Backend) blockNumber(id BlockID) (uint64, *jsonrpc.Error) {
	switch {
	case id.Tag == TagLatest || id.Tag == TagPending:
		n, ok := b.Store.LatestNumber()
		if !ok {
			return 0, jsonrpc.NewError(jsonrpc.CodeBlockNotFound, "", nil)
		}
		return n, nil
	case id.Hash != nil:
		n, err := b.Store.NumberByHash(*id.Hash)
		if err != nil {
			return 0, blockLookupError(err)
		}
		return n, nil
	case id.Number != nil:
		if _, err := b.Store.Header(*id.Number); err != nil {
			return 0, blockLookupError(err)
		}
		return *id.Number, nil
	default:
		return 0, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "block_id requires a tag, number, or hash", nil)
	}
}

func blockLookupError(err error) *jsonrpc.Error {
	if errors.Is(err, store.ErrNotFound) {
		return jsonrpc.NewError(jsonrpc.CodeBlockNotFound, "", nil)
	}
	return jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error(), nil)
}

// classLookupError converts a store lookup miss into the RPC's
// dedicated "class hash not found" code.
func classLookupError(err error) *jsonrpc.Error {
	if errors.Is(err, store.ErrNotFound) {
		return jsonrpc.NewError(jsonrpc.CodeClassHashNotFound, "", nil)
	}
	return jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error(), nil)
}

func internalError(err error) *jsonrpc.Error {
	return jsonrpc.NewError(jsonrpc.CodeInternalError, err.Error(), nil)
}

// stateAt resolves the read view for a block: the latest view for the tip,
// a historical view otherwise.
func (b *Backend) stateAt(number uint64) reader {
	if latest, ok := b.Store.LatestNumber(); ok && number == latest {
		return latestReader{b.Store}
	}
	return historicalReader{b.Store, number}
}

// reader is the minimal read surface get_storage_at/get_nonce/get_class_hash_at
// need, letting stateAt paper over latest vs. historical without exposing
// core/state's constructors here.
type reader interface {
	Nonce(addr felt.Address) (felt.Felt, bool, error)
	Storage(addr felt.Address, key felt.Felt) (felt.Felt, bool, error)
	ClassHash(addr felt.Address) (felt.Felt, bool, error)
}

type latestReader struct{ s *store.Store }

func (r latestReader) Nonce(addr felt.Address) (felt.Felt, bool, error) { return r.s.LatestNonce(addr) }
func (r latestReader) Storage(addr felt.Address, key felt.Felt) (felt.Felt, bool, error) {
	return r.s.LatestStorage(addr, key)
}
func (r latestReader) ClassHash(addr felt.Address) (felt.Felt, bool, error) {
	return r.s.LatestContractClass(addr)
}

type historicalReader struct {
	s      *store.Store
	number uint64
}

func (r historicalReader) Nonce(addr felt.Address) (felt.Felt, bool, error) {
	return r.s.HistoricalNonce(addr, r.number)
}
func (r historicalReader) Storage(addr felt.Address, key felt.Felt) (felt.Felt, bool, error) {
	return r.s.HistoricalStorage(addr, key, r.number)
}
func (r historicalReader) ClassHash(addr felt.Address) (felt.Felt, bool, error) {
	return r.s.HistoricalContractClass(addr, r.number)
}
