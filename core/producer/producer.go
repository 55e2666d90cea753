// Package producer implements the single-writer block-production state
// machine: Idle -> Opened -> Sealing -> Idle, under either an
// Instant or an Interval(t) policy, with a force_mine escape hatch.
//
// Grounded on core/consensus.go's SynnergyConsensus run-loop
// shape (init-time constants, logrus boundary logging, a
// context.Context-cancelable single goroutine) with its PoH/PoW sub-block
// aggregation stripped out: multi-node consensus is out of scope here, so
// only the single-block state machine survives.
package producer

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"katana-node/core/chainspec"
	"katana-node/core/crypto"
	"katana-node/core/executor"
	"katana-node/core/felt"
	"katana-node/core/gasoracle"
	"katana-node/core/state"
	"katana-node/core/trie"
	"katana-node/core/txpool"
	"katana-node/core/types"
)

// Phase is one of the three producer states.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseOpened
	PhaseSealing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseOpened:
		return "Opened"
	case PhaseSealing:
		return "Sealing"
	default:
		return "Unknown"
	}
}

// Metrics is the subset of pkg/metrics.Registry the producer reports
// through, kept as an interface so core/producer never imports the
// ambient pkg/metrics package directly. Nil is a valid Metrics: every
// method below is called unconditionally.
type Metrics interface {
	IncBlocksProduced()
	IncTransactionSealed(reverted bool)
	SetBlockNumber(n uint64)
}

// noopMetrics discards every observation; used when New is given no Metrics.
type noopMetrics struct{}

func (noopMetrics) IncBlocksProduced()                {}
func (noopMetrics) IncTransactionSealed(reverted bool) {}
func (noopMetrics) SetBlockNumber(n uint64)            {}

// Store is the subset of core/store.Store the producer writes through.
type Store interface {
	LatestNumber() (uint64, bool)
	Header(number uint64) (types.BlockHeader, error)
	InsertBlockWithStatesAndReceipts(block types.Block, receipts []types.Receipt, delta *types.StateDelta, stateRoot felt.Felt) error
	LatestNonce(addr felt.Address) (felt.Felt, bool, error)
	LatestStorage(addr felt.Address, key felt.Felt) (felt.Felt, bool, error)
	LatestContractClass(addr felt.Address) (felt.Felt, bool, error)
	HistoricalNonce(addr felt.Address, number uint64) (felt.Felt, bool, error)
	HistoricalStorage(addr felt.Address, key felt.Felt, number uint64) (felt.Felt, bool, error)
	HistoricalContractClass(addr felt.Address, number uint64) (felt.Felt, bool, error)
	Class(classHash felt.Felt) (*types.ContractClass, error)
	CompiledClassHash(classHash felt.Felt) (felt.Felt, bool, error)
}

const (
	namespaceContract = "contract"
	namespaceClass    = "class"
)

func storageNamespace(addr felt.Address) string {
	b := addr.Felt().BytesBE()
	return "storage:" + string(b[:])
}

// StorageNamespace and the Namespace* constants expose the trie-namespace
// convention this package commits into, so a read-only caller (the RPC
// façade's get_storage_proof) can request a proof from the exact trie a
// block's state root was derived from.
func StorageNamespace(addr felt.Address) string { return storageNamespace(addr) }

const (
	NamespaceContract = namespaceContract
	NamespaceClass    = namespaceClass
)

// Producer owns the currently-open block exclusively until it commits
//. Exactly one instance should run per node.
type Producer struct {
	mu sync.Mutex

	store  Store
	pool   *txpool.Pool
	vm     *executor.CairoVM
	tries  *trie.Manager
	spec   *chainspec.ChainSpec
	cfg    executor.CfgEnv
	oracle gasoracle.GasOracle
	log    *logrus.Logger
	metrics Metrics
	flags  executor.Flags

	phase     Phase
	overlay   *state.CachedState
	pending   []types.Transaction
	receipts  []types.Receipt
	parent    types.BlockHeader
	haveParent bool

	forceMine chan struct{}

	// nextTimestamp, when set, overrides the synthetic clock for the next
	// sealed block (dev_setNextBlockTimestamp / dev_increaseNextBlockTimestamp).
	nextTimestamp *uint64

	headListeners   map[uint64]chan types.BlockHeader
	nextHeadListener uint64
}

// New constructs a producer. genesis must already have been applied to
// store before the first block is produced; see EnsureGenesis. oracle may
// be nil, in which case blocks are produced with zero L1 gas/data-gas
// prices (equivalent to gasoracle.NewFixed(gasoracle.Prices{})).
func New(st Store, pool *txpool.Pool, vm *executor.CairoVM, tries *trie.Manager, spec *chainspec.ChainSpec, cfg executor.CfgEnv, oracle gasoracle.GasOracle, log *logrus.Logger) *Producer {
	if oracle == nil {
		oracle = gasoracle.NewFixed(gasoracle.Prices{})
	}
	return &Producer{
		store:         st,
		pool:          pool,
		vm:            vm,
		tries:         tries,
		spec:          spec,
		cfg:           cfg,
		oracle:        oracle,
		log:           log,
		metrics:       noopMetrics{},
		phase:         PhaseIdle,
		forceMine:     make(chan struct{}, 1),
		headListeners: make(map[uint64]chan types.BlockHeader),
	}
}

// SetMetrics wires m as the producer's observation sink; passing nil
// restores the no-op default. Called once by the node launcher, after New
// and before Run, when --metrics.addr was set.
func (p *Producer) SetMetrics(m Metrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if m == nil {
		m = noopMetrics{}
	}
	p.metrics = m
}

// SetFlags wires the execution flags every subsequently executed
// transaction in this block and onward runs under (--dev.no-fee,
// --dev.no-account-validation). Takes effect starting with the next
// ExecuteNext call, including calls that add to a block already open.
func (p *Producer) SetFlags(f executor.Flags) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags = f
}

// SubscribeNewHeads registers a listener notified with every block's header
// right after it seals. Sealing never
// blocks on a slow listener: a full channel just drops that
// notification, mirroring txpool.Pool.Subscribe's behavior.
func (p *Producer) SubscribeNewHeads(buffer int) (<-chan types.BlockHeader, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextHeadListener
	p.nextHeadListener++
	ch := make(chan types.BlockHeader, buffer)
	p.headListeners[id] = ch
	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if existing, ok := p.headListeners[id]; ok {
			close(existing)
			delete(p.headListeners, id)
		}
	}
}

// Phase reports the producer's current state.
func (p *Producer) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// ForceMine requests an immediate seal, even of an empty block.
func (p *Producer) ForceMine() {
	select {
	case p.forceMine <- struct{}{}:
	default:
	}
}

// SetNextBlockTimestamp pins the timestamp the next sealed block will carry
// (dev_setNextBlockTimestamp), overriding the synthetic clock once.
func (p *Producer) SetNextBlockTimestamp(ts uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextTimestamp = &ts
}

// IncreaseNextBlockTimestamp advances the next sealed block's timestamp by
// delta relative to the parent's (dev_increaseNextBlockTimestamp).
func (p *Producer) IncreaseNextBlockTimestamp(delta uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	base := uint64(0)
	if number, ok := p.store.LatestNumber(); ok {
		if h, err := p.store.Header(number); err == nil {
			base = h.Timestamp
		}
	}
	ts := base + delta
	p.nextTimestamp = &ts
}

// open transitions Idle -> Opened: builds a fresh overlay over the latest
// state and resolves the parent header.
func (p *Producer) open() error {
	number, ok := p.store.LatestNumber()
	var parent types.BlockHeader
	if ok {
		h, err := p.store.Header(number)
		if err != nil {
			return fmt.Errorf("producer: load parent header: %w", err)
		}
		parent = h
	}
	p.parent = parent
	p.haveParent = ok
	p.overlay = state.NewCachedState(state.NewLatestStateProvider(p.store))
	p.pending = nil
	p.receipts = nil
	p.phase = PhaseOpened
	return nil
}

// ExecuteNext runs one transaction against the open overlay. Opens a block first if currently
// Idle.
func (p *Producer) ExecuteNext(tx types.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase == PhaseIdle {
		if err := p.open(); err != nil {
			return err
		}
	}

	nextNumber := uint64(0)
	if p.haveParent {
		nextNumber = p.parent.Number + 1
	}
	prices := p.oracle.Prices()
	block := executor.BlockEnv{
		Number:          nextNumber,
		SequencerAddr:   p.spec.SequencerAddress,
		L1GasPriceETH:   prices.L1GasPriceETH,
		L1GasPriceSTRK:  prices.L1GasPriceSTRK,
		L1DataPriceETH:  prices.L1DataGasPriceETH,
		L1DataPriceSTRK: prices.L1DataGasPriceSTRK,
	}

	info, err := p.vm.Transact(p.overlay, block, p.flags, tx)
	if err != nil {
		// Protocol-level rejection: log and skip.
		p.log.WithFields(logrus.Fields{"tx": tx.Hash().Hex(), "err": err}).Warn("producer: dropping transaction, execution rejected it")
		return nil
	}

	p.pending = append(p.pending, tx)
	p.receipts = append(p.receipts, types.Receipt{
		TransactionHash:   info.TransactionHash,
		Status:            info.Status,
		RevertError:       info.RevertError,
		FeeCharged:        info.FeeCharged,
		Resources:         info.Resources,
		Events:            info.Events,
		L2ToL1Messages:    info.L2ToL1Messages,
		Finality:          types.FinalityAcceptedOnL2,
	})
	if info.DeployedAddress != nil {
		p.receipts[len(p.receipts)-1].DeployedContracts = []felt.Address{*info.DeployedAddress}
	}
	return nil
}

// SetStorageAt writes directly into the open block's overlay (dev_setStorageAt),
// opening a block first if currently Idle. The write lands in the next
// sealed block's state diff like any executed transaction's writes would.
func (p *Producer) SetStorageAt(addr felt.Address, key, value felt.Felt) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase == PhaseIdle {
		if err := p.open(); err != nil {
			return err
		}
	}
	p.overlay.SetStorage(addr, key, value)
	return nil
}

// Seal commits the open block atomically and returns to Idle. Calling Seal while Idle opens an empty block first, so
// force-mining an idle producer still produces a block with an empty body.
func (p *Producer) Seal() (types.Block, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase == PhaseIdle {
		if err := p.open(); err != nil {
			return types.Block{}, err
		}
	}
	p.phase = PhaseSealing

	number := uint64(0)
	parentHash := felt.Zero()
	if p.haveParent {
		number = p.parent.Number + 1
		parentHash = p.parent.Hash()
	}

	delta := p.overlay.Diff()
	stateRoot, err := p.applyDeltaToTries(delta, number)
	if err != nil {
		p.phase = PhaseOpened
		return types.Block{}, fmt.Errorf("producer: apply state delta: %w", err)
	}

	hashes := make([]felt.Felt, len(p.pending))
	var events []types.Event
	for i, tx := range p.pending {
		hashes[i] = tx.Hash()
		events = append(events, p.receipts[i].Events...)
	}

	timestamp := uint64(len(p.pending)) + number
	if p.nextTimestamp != nil {
		timestamp = *p.nextTimestamp
		p.nextTimestamp = nil
	}

	header := types.BlockHeader{
		ParentHash:      parentHash,
		Number:          number,
		Timestamp:       timestamp,
		SequencerAddr:   p.spec.SequencerAddress,
		StateRoot:       stateRoot,
		ProtocolVersion: "0.1.0",
		TxCommitment:    types.ComputeTxCommitment(hashes),
		EventCommitment: types.ComputeEventCommitment(events),
	}

	block := types.Block{Header: header, Transactions: p.pending}
	if err := p.store.InsertBlockWithStatesAndReceipts(block, p.receipts, delta, stateRoot); err != nil {
		p.phase = PhaseOpened
		return types.Block{}, fmt.Errorf("producer: insert block: %w", err)
	}

	p.metrics.IncBlocksProduced()
	p.metrics.SetBlockNumber(header.Number)
	for _, receipt := range p.receipts {
		p.metrics.IncTransactionSealed(receipt.Status == types.ExecutionReverted)
	}

	p.overlay = nil
	p.pending = nil
	p.receipts = nil
	p.phase = PhaseIdle

	for _, ch := range p.headListeners {
		select {
		case ch <- header:
		default:
			p.log.WithField("number", header.Number).Warn("producer: new-heads listener channel full, dropping notification")
		}
	}
	return block, nil
}

// applyDeltaToTries folds a committed block's state delta into the
// contract/class/per-contract-storage tries and returns the resulting state
// commitment. Two Commit passes are needed:
// the per-contract storage root feeds into the contract trie's leaf value,
// so storage and class writes must be committed (materializing their
// roots) before the contract trie leaves that read those roots are
// inserted.
func (p *Producer) applyDeltaToTries(delta *types.StateDelta, commitID uint64) (felt.Felt, error) {
	touchedContracts := make(map[felt.Address]bool)

	for addr := range delta.NonceUpdates {
		touchedContracts[addr] = true
	}
	for _, kv := range delta.StorageWrites {
		ns := storageNamespace(kv.Address)
		p.tries.Insert(ns, kv.Key, kv.Value)
		touchedContracts[kv.Address] = true
	}
	for addr := range delta.ClassHashUpdates {
		touchedContracts[addr] = true
	}

	for _, class := range delta.DeclaredClasses {
		leaf := crypto.Poseidon(felt.FromBytesBE([]byte("CONTRACT_CLASS_LEAF_V0")), class.CompiledClassHash)
		p.tries.Insert(namespaceClass, class.Hash, leaf)
	}
	for classHash, compiledHash := range delta.CompiledClassPairs {
		leaf := crypto.Poseidon(felt.FromBytesBE([]byte("CONTRACT_CLASS_LEAF_V0")), compiledHash)
		p.tries.Insert(namespaceClass, classHash, leaf)
	}

	if _, err := p.tries.Commit(commitID); err != nil {
		return felt.Zero(), fmt.Errorf("producer: commit storage/class tries: %w", err)
	}

	for addr := range touchedContracts {
		nonce, err := p.overlay.Nonce(addr)
		if err != nil {
			return felt.Zero(), err
		}
		classHash, err := p.overlay.ClassHashAt(addr)
		if err != nil {
			return felt.Zero(), err
		}
		storageRoot := p.tries.Root(storageNamespace(addr))
		value := crypto.Poseidon(classHash, storageRoot, nonce, felt.Zero())
		p.tries.Insert(namespaceContract, addr.Felt(), value)
	}

	if _, err := p.tries.Commit(commitID); err != nil {
		return felt.Zero(), fmt.Errorf("producer: commit contract trie: %w", err)
	}

	contractRoot := p.tries.Root(namespaceContract)
	classRoot := p.tries.Root(namespaceClass)
	return crypto.Poseidon(felt.FromBytesBE([]byte("STARKNET_STATE_V0")), contractRoot, classRoot), nil
}

// Run drives the state machine under the given policy until ctx is
// cancelled.
func (p *Producer) Run(ctx context.Context, policy Policy) {
	txHashes, unsubscribe := p.pool.Subscribe(256)
	defer unsubscribe()

	p.log.WithField("policy", policy.Name()).Info("producer: run loop starting")
	policy.Run(ctx, p, txHashes)
	p.log.Info("producer: run loop stopped")
}

// drainAndExecute pulls every currently queued transaction and executes it
// in pool order; used by both policies at their respective trigger points.
func (p *Producer) drainAndExecute() {
	for _, tx := range p.pool.Drain() {
		if err := p.ExecuteNext(tx); err != nil {
			p.log.WithField("err", err).Error("producer: failed to open block for draining")
			return
		}
	}
}
