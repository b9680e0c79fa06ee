// Package trading implements the threshold trading loop: per-symbol position
// gating and the poll-evaluate-order cycle.
package trading

import "sync"

// PositionState tracks, per symbol, whether this process believes it opened a
// long position. It is deliberately NOT reconciled against brokerage-reported
// holdings: a position opened by hand or by a prior run is invisible here,
// and the sell gate only fires for positions this loop opened itself.
//
// State flips strictly after a confirmed order acceptance, never before, so a
// rejected order leaves the next cycle free to retry the same decision.
type PositionState struct {
	mu      sync.Mutex
	holding map[string]bool
}

// NewPositionState creates an empty position map.
func NewPositionState() *PositionState {
	return &PositionState{holding: make(map[string]bool)}
}

// Holding reports whether a position is believed open for symbol.
func (p *PositionState) Holding(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holding[symbol]
}

// SetHolding records whether a position is open for symbol.
func (p *PositionState) SetHolding(symbol string, holding bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holding[symbol] = holding
}

// Snapshot returns a copy of the full position map, for status surfaces.
func (p *PositionState) Snapshot() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]bool, len(p.holding))
	for k, v := range p.holding {
		out[k] = v
	}
	return out
}
