package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/FutureSDR/xilinx-dma"
)

// Config is the top-level deployment topology: one AXI-DMA engine and the
// buffers it is allowed to use.
type Config struct {
	Engine  Engine             `toml:"engine"`
	Buffers map[string]Buffer  `toml:"buffers"`
}

// Engine names the UIO device backing one AxiDma core, and the descriptor
// ring sizes to use for its Scatter-Gather channels.
type Engine struct {
	UIO          string `toml:"uio"`
	H2DRingSize  int    `toml:"h2d_ring_size"`
	D2HRingSize  int    `toml:"d2h_ring_size"`
}

// Buffer names one u-dma-buf region and which direction it is meant to
// carry traffic for. Direction is advisory: axidma itself doesn't enforce
// it, but it lets tooling built on this package validate a topology before
// it's used (e.g. refusing to enqueue an H2D transfer against a buffer
// tagged d2h).
type Buffer struct {
	Name      string `toml:"name"`
	Direction string `toml:"direction"`
}

// Load reads and parses a TOML topology file at path.
func Load(path string) (*Config, error) {
	var c Config
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, xdma.Wrap("config.Load", xdma.Io, err)
	}
	if err := c.validate(); err != nil {
		return nil, xdma.Wrap("config.Load", xdma.Io, err)
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Engine.UIO == "" {
		return fmt.Errorf("config: engine.uio is required")
	}
	if c.Engine.H2DRingSize < 0 || c.Engine.D2HRingSize < 0 {
		return fmt.Errorf("config: ring sizes must be non-negative")
	}
	for key, b := range c.Buffers {
		if b.Name == "" {
			return fmt.Errorf("config: buffers.%s.name is required", key)
		}
		switch b.Direction {
		case "h2d", "d2h", "":
		default:
			return fmt.Errorf("config: buffers.%s.direction must be h2d or d2h, got %q", key, b.Direction)
		}
	}
	return nil
}
