package cache

import (
	"time"
)

// DefaultPruneInterval is how often a Pruner sweeps when none is configured.
const DefaultPruneInterval = time.Hour

// Pruner periodically evicts expired user-generated entries.
type Pruner struct {
	Cache    *Cache
	Interval time.Duration
	OnPrune  func(removed int)
	Stop     chan struct{}
}

func NewPruner(c *Cache, interval time.Duration) *Pruner {
	if interval <= 0 {
		interval = DefaultPruneInterval
	}
	return &Pruner{Cache: c, Interval: interval, Stop: make(chan struct{})}
}

func (p *Pruner) Start() {
	go func() {
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-p.Stop:
				return
			case <-ticker.C:
				p.runOnce()
			}
		}
	}()
}

func (p *Pruner) runOnce() int {
	n := p.Cache.Prune()
	if n > 0 && p.OnPrune != nil {
		p.OnPrune(n)
	}
	return n
}
