package simulator

import "time"

type ServerConfig struct {
	HTTPPort        uint16  `json:"http_port" yaml:"http_port"`
	TickIntervalMs  int     `json:"tick_interval_ms" yaml:"tick_interval_ms"`
	SpeedMultiplier float64 `json:"speed_multiplier" yaml:"speed_multiplier"`
}

const defaultTickInterval = 50 * time.Millisecond

func (c *ServerConfig) TickInterval() time.Duration {
	if c.TickIntervalMs <= 0 {
		return defaultTickInterval
	}

	return time.Duration(c.TickIntervalMs) * time.Millisecond
}

func (c *ServerConfig) Speed() float64 {
	if c.SpeedMultiplier <= 0 {
		return 1.0
	}

	return c.SpeedMultiplier
}

type RaceConfig struct {
	SessionDir string `json:"session_dir" yaml:"session_dir"`
	CacheFile  string `json:"cache_file" yaml:"cache_file"`
	RaceID     string `json:"race_id" yaml:"race_id"`
	UserDriver string `json:"user_driver" yaml:"user_driver"`
}
