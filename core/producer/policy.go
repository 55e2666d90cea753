package producer

import (
	"context"
	"time"

	"katana-node/core/felt"
)

// Policy decides when the producer transitions Opened -> Sealing. Both variants share the same Producer surface; only the trigger
// differs.
type Policy interface {
	Name() string
	Run(ctx context.Context, p *Producer, txHashes <-chan felt.Felt)
}

// InstantPolicy opens, executes and seals a block for every accepted
// transaction.
type InstantPolicy struct{}

func (InstantPolicy) Name() string { return "instant" }

func (InstantPolicy) Run(ctx context.Context, p *Producer, txHashes <-chan felt.Felt) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.forceMine:
			p.drainAndExecute()
			if _, err := p.Seal(); err != nil {
				p.log.WithField("err", err).Error("producer: force-mine seal failed")
			}
		case <-txHashes:
			// One block per transaction; a notification whose transaction an
			// earlier drain already took finds the queue empty and seals nothing.
			for _, tx := range p.pool.Drain() {
				if err := p.ExecuteNext(tx); err != nil {
					p.log.WithField("err", err).Error("producer: failed to open block for draining")
					continue
				}
				if _, err := p.Seal(); err != nil {
					p.log.WithField("err", err).Error("producer: instant-mine seal failed")
				}
			}
		}
	}
}

// IntervalPolicy arms a timer of duration Period on the first transaction
// of a cycle; further transactions accumulate and execute incrementally
// until the timer fires or force_mine short-circuits it.
type IntervalPolicy struct {
	Period time.Duration
}

func (IntervalPolicy) Name() string { return "interval" }

func (ip IntervalPolicy) Run(ctx context.Context, p *Producer, txHashes <-chan felt.Felt) {
	var timer *time.Timer
	var timerC <-chan time.Time

	armIfNeeded := func() {
		if timer == nil {
			timer = time.NewTimer(ip.Period)
			timerC = timer.C
		}
	}
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-p.forceMine:
			p.drainAndExecute()
			stopTimer()
			if _, err := p.Seal(); err != nil {
				p.log.WithField("err", err).Error("producer: force-mine seal failed")
			}
		case <-txHashes:
			armIfNeeded()
			p.drainAndExecute()
		case <-timerC:
			p.drainAndExecute()
			stopTimer()
			if _, err := p.Seal(); err != nil {
				p.log.WithField("err", err).Error("producer: interval seal failed")
			}
		}
	}
}
