// Package txpool implements the validated-pending transaction queue
//: a FIFO of admitted transactions plus a fan-out of
// listener channels notified on every acceptance.
package txpool

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/state"
	"katana-node/core/types"
)

// Validator is the stateful admission check every non-L1Handler transaction
// runs through before the pool accepts it: a pinned BlockEnv, with the
// state view passed to each Validate call, validated with fee checks
// enabled by default.
type Validator struct {
	vm    *executor.CairoVM
	block executor.BlockEnv
}

// NewValidator pins a validator to a block context.
func NewValidator(vm *executor.CairoVM, block executor.BlockEnv) *Validator {
	return &Validator{vm: vm, block: block}
}

// Validate runs admission + __validate__ + fee sufficiency checks over a
// throwaway overlay, discarding any state changes regardless of outcome.
func (v *Validator) Validate(base state.Reader, tx types.Transaction) error {
	overlay := state.NewCachedState(base)
	flags := executor.Flags{SkipFeeTransfer: true}
	info, err := v.vm.Transact(overlay, v.block, flags, tx)
	if err != nil {
		return err
	}
	if info.Status == types.ExecutionReverted {
		return executor.NewExecutionError(executor.ErrTransactionValidationFailed, info.RevertError)
	}
	return nil
}

// entry is one queued transaction plus its pool-assigned sequence, used to
// preserve insertion order across Snapshot/Drain calls.
type entry struct {
	tx  types.Transaction
	seq uint64
}

// Pool is the FIFO admitted-transaction queue. Grounded on
// the hand-rolled lock-guarded queue shape in core/txpool_addtx.go,
// core/txpool_snapshot.go) and its listener/cleanup idiom
// (core/connection_pool.go), generalized to run a stateful validator before
// admission and to reject with a typed error on failure.
type Pool struct {
	mu        sync.RWMutex
	entries   []entry
	nextSeq   uint64
	byHash    map[felt.Felt]bool

	listeners   map[uint64]chan felt.Felt
	nextListener uint64

	base      state.Reader
	validator *Validator

	log *logrus.Logger
}

// New constructs an empty pool reading admission state through base and
// validating with validator.
func New(base state.Reader, validator *Validator, log *logrus.Logger) *Pool {
	return &Pool{
		byHash:    make(map[felt.Felt]bool),
		listeners: make(map[uint64]chan felt.Felt),
		base:      base,
		validator: validator,
		log:       log,
	}
}

// SetBase swaps the state view the validator reads through (called by the
// producer after each block commits, so later validations see fresh
// nonces/balances).
func (p *Pool) SetBase(base state.Reader) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = base
}

// AddTx runs the admission pipeline and, on success, appends tx and
// notifies every listener. L1Handler transactions skip the
// stateful validator.
func (p *Pool) AddTx(tx types.Transaction) error {
	if _, isL1 := tx.(*types.L1HandlerTransaction); !isL1 {
		p.mu.RLock()
		base, validator := p.base, p.validator
		p.mu.RUnlock()
		if err := validator.Validate(base, tx); err != nil {
			return classifyExecutionError(err)
		}
	}

	p.mu.Lock()
	h := tx.Hash()
	if p.byHash[h] {
		p.mu.Unlock()
		return &InvalidTransactionError{Kind: RejectValidationFailure, Msg: fmt.Sprintf("duplicate transaction %s", h)}
	}
	p.byHash[h] = true
	p.entries = append(p.entries, entry{tx: tx, seq: p.nextSeq})
	p.nextSeq++
	listeners := make([]chan felt.Felt, 0, len(p.listeners))
	for _, ch := range p.listeners {
		listeners = append(listeners, ch)
	}
	p.mu.Unlock()

	for _, ch := range listeners {
		select {
		case ch <- h:
		default:
			p.log.WithField("hash", h.Hex()).Warn("txpool: listener channel full, dropping notification")
		}
	}
	return nil
}

// Subscribe registers a new listener channel and returns it plus an
// unsubscribe function. The pool never blocks publication on a slow
// listener: a full channel just drops that notification.
func (p *Pool) Subscribe(buffer int) (<-chan felt.Felt, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextListener
	p.nextListener++
	ch := make(chan felt.Felt, buffer)
	p.listeners[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if existing, ok := p.listeners[id]; ok {
			close(existing)
			delete(p.listeners, id)
		}
	}
}

// Snapshot copies out the current queue contents in insertion order without
// removing them.
func (p *Pool) Snapshot() []types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]types.Transaction, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.tx
	}
	return out
}

// Drain removes and returns every currently queued transaction, in
// insertion order.
func (p *Pool) Drain() []types.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.Transaction, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.tx
		delete(p.byHash, e.tx.Hash())
	}
	p.entries = p.entries[:0]
	return out
}

// Len reports the number of currently queued transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Has reports whether hash is currently queued.
func (p *Pool) Has(hash felt.Felt) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byHash[hash]
}
