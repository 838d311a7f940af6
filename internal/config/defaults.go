package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultPort              = 8080
	DefaultWSPath            = "/ws"
	DefaultOutboundQueueSize = 256
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxFrameBytes     = 64 * 1024
	DefaultTickInterval      = 5 * time.Second
	DefaultPriceJitterPct    = 0.5
	DefaultVolumeJitterPct   = 10.0
	DefaultMinVolume         = 100
	DefaultActivityMin       = 1
	DefaultActivityMax       = 5
	DefaultMetricsPath       = "/metrics"
)

// DefaultCommodities returns the seed list used when the config names none.
func DefaultCommodities() []CommoditySeed {
	return []CommoditySeed{
		{Symbol: "crude_oil", Price: 75.50, Volume: 12000},
		{Symbol: "natural_gas", Price: 2.85, Volume: 45000},
		{Symbol: "lng", Price: 12.40, Volume: 8000},
		{Symbol: "gasoline", Price: 2.20, Volume: 30000},
		{Symbol: "diesel", Price: 2.65, Volume: 25000},
	}
}

func (c *StreamConfig) applyDefaults() {
	// Server defaults
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}

	// Stream defaults
	if c.Stream.OutboundQueueSize == 0 {
		c.Stream.OutboundQueueSize = DefaultOutboundQueueSize
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.IdleTimeout == 0 {
		c.Stream.IdleTimeout = DefaultIdleTimeout
	}
	if c.Stream.MaxFrameBytes == 0 {
		c.Stream.MaxFrameBytes = DefaultMaxFrameBytes
	}

	// Simulator defaults
	if c.Simulator.TickInterval == 0 {
		c.Simulator.TickInterval = DefaultTickInterval
	}
	if c.Simulator.PriceJitterPct == 0 {
		c.Simulator.PriceJitterPct = DefaultPriceJitterPct
	}
	if c.Simulator.VolumeJitterPct == 0 {
		c.Simulator.VolumeJitterPct = DefaultVolumeJitterPct
	}
	if c.Simulator.MinVolume == 0 {
		c.Simulator.MinVolume = DefaultMinVolume
	}
	if c.Simulator.ActivityMin == 0 {
		c.Simulator.ActivityMin = DefaultActivityMin
	}
	if c.Simulator.ActivityMax == 0 {
		c.Simulator.ActivityMax = DefaultActivityMax
	}
	if len(c.Simulator.Commodities) == 0 {
		c.Simulator.Commodities = DefaultCommodities()
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
