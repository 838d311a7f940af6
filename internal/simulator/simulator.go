package simulator

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/petrolink/marketstream/internal/metrics"
	"github.com/petrolink/marketstream/internal/model"
)

// Config holds Market Simulator settings.
type Config struct {
	TickInterval    time.Duration
	PriceJitterPct  float64 // Max price move per tick, percent of current price
	VolumeJitterPct float64 // Max volume move per tick, percent
	MinVolume       int64   // Volume floor after jitter
	ActivityMin     int     // Synthetic trades per tick, lower bound
	ActivityMax     int     // Synthetic trades per tick, upper bound
	Seeds           []Seed
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:    5 * time.Second,
		PriceJitterPct:  0.5,
		VolumeJitterPct: 10,
		MinVolume:       100,
		ActivityMin:     1,
		ActivityMax:     5,
		Seeds: []Seed{
			{Symbol: "crude_oil", Price: 75.50, Volume: 12000},
			{Symbol: "natural_gas", Price: 2.85, Volume: 45000},
			{Symbol: "lng", Price: 12.40, Volume: 8000},
			{Symbol: "gasoline", Price: 2.20, Volume: 30000},
			{Symbol: "diesel", Price: 2.65, Volume: 25000},
		},
	}
}

// Publisher is the fan-out sink for simulated market data.
type Publisher interface {
	Publish(topic string, msg model.Outbound) int
}

// Stats provides statistics about the simulator.
type Stats struct {
	Running         int64 // 1 while the tick loop runs
	TicksRun        int64
	EventsPublished int64
}

// Simulator drives the periodic market simulation.
type Simulator interface {
	// Start begins the tick loop. Calling Start while running is a no-op.
	Start(ctx context.Context) error

	// Stop halts the loop; an in-flight tick always completes first.
	// Calling Stop while stopped is a no-op.
	Stop(ctx context.Context) error

	// Running reports whether the tick loop is active.
	Running() bool

	// Tick advances the simulation by one cycle. The loop calls this on
	// every interval; tests call it directly for determinism.
	Tick()

	// Store returns the commodity state store.
	Store() *Store

	// Stats returns current simulator statistics.
	Stats() Stats
}

// Synthetic trade shaping.
var tradeLocations = []string{"houston", "rotterdam", "singapore", "fujairah", "cushing"}

const (
	minTradeQuantity = 10
	maxTradeQuantity = 1000
	tradePricePct    = 1.0 // Trade price scatter around the current tick, percent
)

// simulatorImpl implements the Simulator interface.
type simulatorImpl struct {
	cfg     Config
	pub     Publisher
	store   *Store
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	statsMu sync.Mutex
	ticks   int64
	events  int64
}

// NewSimulator creates a new Market Simulator and seeds its state store.
func NewSimulator(cfg Config, pub Publisher, m *metrics.Metrics, logger *slog.Logger) Simulator {
	if logger == nil {
		logger = slog.Default()
	}

	return &simulatorImpl{
		cfg:     cfg,
		pub:     pub,
		store:   NewStore(cfg.Seeds),
		logger:  logger,
		metrics: m,
	}
}

// Start begins the periodic tick loop.
func (s *simulatorImpl) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go s.run(loopCtx)

	s.logger.Info("market simulator started",
		"interval", s.cfg.TickInterval,
		"commodities", s.store.Len(),
	)

	return nil
}

// Stop halts the tick loop, letting an in-flight tick finish.
func (s *simulatorImpl) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("market simulator stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("simulator stop timed out")
		return ctx.Err()
	}
}

// Running reports whether the tick loop is active.
func (s *simulatorImpl) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Store returns the commodity state store.
func (s *simulatorImpl) Store() *Store {
	return s.store
}

// Stats returns current statistics.
func (s *simulatorImpl) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	var running int64
	if s.Running() {
		running = 1
	}
	return Stats{
		Running:         running,
		TicksRun:        s.ticks,
		EventsPublished: s.events,
	}
}

// run is the tick loop goroutine.
func (s *simulatorImpl) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the simulation by one cycle: walk every commodity,
// broadcast the fresh ticks, then emit synthetic trading activity.
// A failure inside one tick never kills the loop.
func (s *simulatorImpl) Tick() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick failed", "panic", r)
		}
	}()

	start := time.Now()

	for _, symbol := range s.store.Symbols() {
		tick, ok := s.store.Get(symbol)
		if !ok {
			continue
		}
		s.advance(&tick)
		s.store.put(tick)

		update := model.NewMarketUpdate(tick)
		s.pub.Publish(model.MarketDataTopic(symbol), update)
		s.pub.Publish(model.TopicMarketDataAll, update)
	}

	events := s.generateActivity()
	for _, ev := range events {
		s.pub.Publish(model.TopicTradingActivity, model.NewTradingActivity(ev))
	}

	s.metrics.Ticks.Inc()
	s.metrics.TickDuration.Observe(time.Since(start).Seconds())

	s.statsMu.Lock()
	s.ticks++
	s.events += int64(len(events))
	s.statsMu.Unlock()
}

// advance applies one random-walk step to a tick in place.
func (s *simulatorImpl) advance(tick *model.CommodityTick) {
	now := time.Now().UTC()
	if !now.After(tick.Timestamp) {
		// Never publish a timestamp at or before the previous tick's.
		now = tick.Timestamp.Add(time.Millisecond)
	}

	old := tick.Price

	jitter := (rand.Float64()*2 - 1) * s.cfg.PriceJitterPct / 100
	price := round2(old * (1 + jitter))
	if price <= 0 {
		price = 0.01
	}

	volJitter := (rand.Float64()*2 - 1) * s.cfg.VolumeJitterPct / 100
	volume := int64(math.Round(float64(tick.Volume) * (1 + volJitter)))
	if volume < s.cfg.MinVolume {
		volume = s.cfg.MinVolume
	}

	tick.Price = price
	tick.Volume = volume
	tick.Change = round2((price - old) / old * 100)
	if price > tick.High24h {
		tick.High24h = price
	}
	if price < tick.Low24h {
		tick.Low24h = price
	}
	tick.Timestamp = now
}

// generateActivity produces this tick's synthetic trades.
func (s *simulatorImpl) generateActivity() []model.TradingActivityEvent {
	symbols := s.store.Symbols()
	if len(symbols) == 0 {
		return nil
	}

	n := s.cfg.ActivityMin
	if spread := s.cfg.ActivityMax - s.cfg.ActivityMin; spread > 0 {
		n += rand.IntN(spread + 1)
	}

	events := make([]model.TradingActivityEvent, 0, n)
	for i := 0; i < n; i++ {
		symbol := symbols[rand.IntN(len(symbols))]
		tick, _ := s.store.Get(symbol)

		side := model.SideBuy
		if rand.IntN(2) == 1 {
			side = model.SideSell
		}

		scatter := (rand.Float64()*2 - 1) * tradePricePct / 100
		price := round2(tick.Price * (1 + scatter))
		if price <= 0 {
			price = 0.01
		}

		events = append(events, model.TradingActivityEvent{
			ID:        uuid.New(),
			Commodity: symbol,
			Side:      side,
			Quantity:  round2(minTradeQuantity + rand.Float64()*(maxTradeQuantity-minTradeQuantity)),
			Price:     price,
			Location:  tradeLocations[rand.IntN(len(tradeLocations))],
			Timestamp: time.Now().UTC(),
		})
	}
	return events
}

// round2 rounds to 2 decimal places, matching the published precision.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
