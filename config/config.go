package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jakecoffman/arena"
)

// Config holds the tunables of a simulation and the demo driving it.
//
// File format: YAML, see Default for the values used when a key is missing.
type Config struct {
	// TickRate is the number of fixed ticks per second.
	TickRate int `yaml:"tickRate"`

	// CellWidth is the grid cell size of the broad phase.
	CellWidth float64 `yaml:"cellWidth"`
	// NumCells is the number of hash slots grid cells map onto.
	NumCells int `yaml:"numCells"`
	// PushOut is how far a resolution moves a body off what it hit.
	PushOut float64 `yaml:"pushOut"`
	// MaxCascade caps the pairs resolved in one tick.
	MaxCascade int `yaml:"maxCascade"`

	// WallSize is the side of the square wall each level pixel becomes.
	WallSize float64 `yaml:"wallSize"`
	// Level is the PNG room to load. Empty means a plain walled box.
	Level string `yaml:"level"`

	// WalkSpeed is how fast ordered units move.
	WalkSpeed float64 `yaml:"walkSpeed"`
	// StopDistance is how close to its goal a unit has to get to stop.
	StopDistance float64 `yaml:"stopDistance"`
}

func Default() *Config {
	return &Config{
		TickRate:     60,
		CellWidth:    35,
		NumCells:     1000,
		PushOut:      arena.DefaultPushOut,
		MaxCascade:   arena.DefaultMaxCascade,
		WallSize:     32,
		WalkSpeed:    120,
		StopDistance: 4,
	}
}

// Load reads and validates a config file. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tickRate must be positive, got %d", c.TickRate)
	}
	if c.CellWidth <= 0 {
		return fmt.Errorf("cellWidth must be positive, got %f", c.CellWidth)
	}
	if c.NumCells <= 0 {
		return fmt.Errorf("numCells must be positive, got %d", c.NumCells)
	}
	if c.PushOut <= 0 {
		return fmt.Errorf("pushOut must be positive, got %f", c.PushOut)
	}
	if c.MaxCascade <= 0 {
		return fmt.Errorf("maxCascade must be positive, got %d", c.MaxCascade)
	}
	if c.WallSize <= 0 {
		return fmt.Errorf("wallSize must be positive, got %f", c.WallSize)
	}
	if c.WalkSpeed < 0 {
		return fmt.Errorf("walkSpeed must not be negative, got %f", c.WalkSpeed)
	}
	if c.StopDistance < 0 {
		return fmt.Errorf("stopDistance must not be negative, got %f", c.StopDistance)
	}
	if c.PushOut >= c.WallSize {
		return errors.New("pushOut must be smaller than wallSize")
	}
	return nil
}

// Tick is the length of one tick in seconds.
func (c *Config) Tick() float64 {
	return 1 / float64(c.TickRate)
}

func (c *Config) TickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Options builds world options that log through logger.
func (c *Config) Options(logger *log.Logger) arena.Options {
	return arena.Options{
		CellWidth:  c.CellWidth,
		NumCells:   c.NumCells,
		PushOut:    c.PushOut,
		MaxCascade: c.MaxCascade,
		Logger:     logger,
	}
}
