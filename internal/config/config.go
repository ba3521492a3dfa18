package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plus3/tickbridge/coord"
)

// Config is the file-level configuration for the stress harness and the
// world it drives.
type Config struct {
	Log    Log    `yaml:"log"`
	World  World  `yaml:"world"`
	Stress Stress `yaml:"stress"`
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

type World struct {
	// PruneInterval is how many ticks pass between sweeps of the weak
	// wrapper caches.
	PruneInterval int  `yaml:"prune_interval"`
	BatchRenew    bool `yaml:"batch_renew"`
}

type Stress struct {
	Ticks       int               `yaml:"ticks"`
	Entities    int               `yaml:"entities"`
	Shards      int               `yaml:"shards"`
	DeathRate   float64           `yaml:"death_rate"`
	ReissueRate float64           `yaml:"reissue_rate"`
	Seed        int64             `yaml:"seed"`
	Body        []string          `yaml:"body"`
	Rooms       []coord.RoomCoord `yaml:"rooms"`
}

func Default() Config {
	return Config{
		Log: Log{
			Level:    "info",
			Encoding: "console",
		},
		World: World{
			PruneInterval: 10,
			BatchRenew:    true,
		},
		Stress: Stress{
			Ticks:       1000,
			Entities:    2000,
			Shards:      1,
			DeathRate:   0.01,
			ReissueRate: 0.25,
			Seed:        1,
			Body:        []string{"work", "work", "carry", "move", "move"},
			Rooms: []coord.RoomCoord{
				{X: 0, Y: 0},
				{X: -6, Y: -4},
				{X: 15, Y: 7},
			},
		},
	}
}

// Decode reads YAML from r on top of the defaults. An empty document yields
// the defaults.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads the YAML file at path. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func (c Config) Validate() error {
	var errs []error
	if c.World.PruneInterval <= 0 {
		errs = append(errs, fmt.Errorf("world.prune_interval must be positive, got %d", c.World.PruneInterval))
	}
	if c.Stress.Ticks < 0 {
		errs = append(errs, fmt.Errorf("stress.ticks must not be negative, got %d", c.Stress.Ticks))
	}
	if c.Stress.Entities < 0 {
		errs = append(errs, fmt.Errorf("stress.entities must not be negative, got %d", c.Stress.Entities))
	}
	if c.Stress.Shards <= 0 {
		errs = append(errs, fmt.Errorf("stress.shards must be positive, got %d", c.Stress.Shards))
	}
	if c.Stress.DeathRate < 0 || c.Stress.DeathRate > 1 {
		errs = append(errs, fmt.Errorf("stress.death_rate must be within [0, 1], got %g", c.Stress.DeathRate))
	}
	if c.Stress.ReissueRate < 0 || c.Stress.ReissueRate > 1 {
		errs = append(errs, fmt.Errorf("stress.reissue_rate must be within [0, 1], got %g", c.Stress.ReissueRate))
	}
	if len(c.Stress.Rooms) == 0 {
		errs = append(errs, errors.New("stress.rooms must list at least one room"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
