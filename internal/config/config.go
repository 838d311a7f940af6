package config

import "time"

// StreamConfig is the root configuration for a stream engine instance.
type StreamConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Server    ServerConfig    `yaml:"server"`
	Stream    StreamSettings  `yaml:"stream"`
	Simulator SimulatorConfig `yaml:"simulator"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this stream engine instance.
type InstanceConfig struct {
	ID string `yaml:"id"`
	AZ string `yaml:"az"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	WSPath string `yaml:"ws_path"`
}

// StreamSettings holds per-connection streaming limits.
type StreamSettings struct {
	OutboundQueueSize int           `yaml:"outbound_queue_size"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"` // Liveness window; pings go out at 9/10 of this
	MaxFrameBytes     int64         `yaml:"max_frame_bytes"`
}

// SimulatorConfig holds the market simulator settings.
type SimulatorConfig struct {
	TickInterval     time.Duration   `yaml:"tick_interval"`
	PriceJitterPct   float64         `yaml:"price_jitter_pct"`  // Max price move per tick, percent
	VolumeJitterPct  float64         `yaml:"volume_jitter_pct"` // Max volume move per tick, percent
	MinVolume        int64           `yaml:"min_volume"`
	ActivityMin      int             `yaml:"activity_min"` // Synthetic trades per tick, lower bound
	ActivityMax      int             `yaml:"activity_max"` // Synthetic trades per tick, upper bound
	Commodities      []CommoditySeed `yaml:"commodities"`
}

// CommoditySeed is a commodity's starting state.
type CommoditySeed struct {
	Symbol string  `yaml:"symbol"`
	Price  float64 `yaml:"price"`
	Volume int64   `yaml:"volume"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
