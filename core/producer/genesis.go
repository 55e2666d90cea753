package producer

import (
	"katana-node/core/executor"
	"katana-node/core/types"
)

// EnsureGenesis produces block 0 from the chain spec's predeployed classes
// and allocations if the store is empty, then returns. Calling it on a
// store that already has a block 0 is a no-op.
func (p *Producer) EnsureGenesis() (types.Block, error) {
	if _, ok := p.store.LatestNumber(); ok {
		return types.Block{}, nil
	}

	p.mu.Lock()
	p.phase = PhaseIdle
	p.mu.Unlock()

	if err := p.openLocked(); err != nil {
		return types.Block{}, err
	}

	p.mu.Lock()
	for _, class := range p.spec.PredeployedClasses {
		p.overlay.DeclareClass(class)
	}
	for _, alloc := range p.spec.Allocations {
		p.overlay.SetClassHash(alloc.Address, alloc.ClassHash)
		for k, v := range alloc.Storage {
			p.overlay.SetStorage(alloc.Address, k, v)
		}
	}
	for holder, amount := range p.spec.STRKBalances {
		p.overlay.SetStorage(p.spec.FeeTokenSTRKAddress, executor.BalanceKey(holder), amount)
	}
	for holder, amount := range p.spec.ETHBalances {
		p.overlay.SetStorage(p.spec.FeeTokenETHAddress, executor.BalanceKey(holder), amount)
	}
	p.mu.Unlock()

	return p.Seal()
}

// openLocked is open() without assuming the caller already holds p.mu,
// used only by EnsureGenesis which otherwise never touches the producer
// concurrently with Run.
func (p *Producer) openLocked() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open()
}
