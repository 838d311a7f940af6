package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *StreamConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.WSPath == "" || c.Server.WSPath[0] != '/' {
		return fmt.Errorf("server.ws_path must start with '/', got %q", c.Server.WSPath)
	}

	if c.Stream.OutboundQueueSize < 1 {
		return errors.New("stream.outbound_queue_size must be >= 1")
	}
	if c.Stream.WriteTimeout <= 0 {
		return errors.New("stream.write_timeout must be > 0")
	}
	if c.Stream.IdleTimeout <= 0 {
		return errors.New("stream.idle_timeout must be > 0")
	}
	if c.Stream.MaxFrameBytes < 1 {
		return errors.New("stream.max_frame_bytes must be >= 1")
	}

	if c.Simulator.TickInterval <= 0 {
		return errors.New("simulator.tick_interval must be > 0")
	}
	if c.Simulator.PriceJitterPct <= 0 || c.Simulator.PriceJitterPct >= 100 {
		return fmt.Errorf("simulator.price_jitter_pct must be in (0, 100), got %v", c.Simulator.PriceJitterPct)
	}
	if c.Simulator.VolumeJitterPct <= 0 || c.Simulator.VolumeJitterPct >= 100 {
		return fmt.Errorf("simulator.volume_jitter_pct must be in (0, 100), got %v", c.Simulator.VolumeJitterPct)
	}
	if c.Simulator.MinVolume < 0 {
		return errors.New("simulator.min_volume must be >= 0")
	}
	if c.Simulator.ActivityMin < 0 {
		return errors.New("simulator.activity_min must be >= 0")
	}
	if c.Simulator.ActivityMax < c.Simulator.ActivityMin {
		return fmt.Errorf("simulator.activity_max (%d) cannot be less than activity_min (%d)",
			c.Simulator.ActivityMax, c.Simulator.ActivityMin)
	}

	for i, seed := range c.Simulator.Commodities {
		if seed.Symbol == "" {
			return fmt.Errorf("simulator.commodities[%d].symbol is required", i)
		}
		if seed.Price <= 0 {
			return fmt.Errorf("simulator.commodities[%d].price must be > 0, got %v", i, seed.Price)
		}
		if seed.Volume < 0 {
			return fmt.Errorf("simulator.commodities[%d].volume must be >= 0, got %d", i, seed.Volume)
		}
	}

	return nil
}
