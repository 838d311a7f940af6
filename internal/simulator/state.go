package simulator

import (
	"sort"
	"sync"
	"time"

	"github.com/petrolink/marketstream/internal/model"
)

// Seed is a commodity's starting state.
type Seed struct {
	Symbol string
	Price  float64
	Volume int64
}

// Store holds current commodity state. The simulator is the only writer;
// readers always receive copies.
type Store struct {
	mu    sync.RWMutex
	ticks map[string]model.CommodityTick
}

// NewStore seeds a store with starting prices and volumes.
func NewStore(seeds []Seed) *Store {
	now := time.Now().UTC()
	ticks := make(map[string]model.CommodityTick, len(seeds))
	for _, seed := range seeds {
		ticks[seed.Symbol] = model.CommodityTick{
			Symbol: seed.Symbol,
			TickMetrics: model.TickMetrics{
				Price:     seed.Price,
				Volume:    seed.Volume,
				High24h:   seed.Price,
				Low24h:    seed.Price,
				Timestamp: now,
			},
		}
	}
	return &Store{ticks: ticks}
}

// Get returns a copy of one commodity's current tick.
func (s *Store) Get(symbol string) (model.CommodityTick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tick, ok := s.ticks[symbol]
	return tick, ok
}

// Snapshot returns a copy of the full commodity state, keyed by symbol.
func (s *Store) Snapshot() map[string]model.CommodityTick {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.CommodityTick, len(s.ticks))
	for symbol, tick := range s.ticks {
		out[symbol] = tick
	}
	return out
}

// Symbols returns all tracked symbols in stable order.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.ticks))
	for symbol := range s.ticks {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracked commodities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ticks)
}

// put replaces one commodity's tick. Simulator-only.
func (s *Store) put(tick model.CommodityTick) {
	s.mu.Lock()
	s.ticks[tick.Symbol] = tick
	s.mu.Unlock()
}
