// Package appconfig loads the training configuration from a yaml file
// and the environment, environment winning.
package appconfig

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"holdemcfr/abstraction"
)

type GameConfig struct {
	NumPlayers         int   `yaml:"num_players" env:"GAME_NUM_PLAYERS" env-default:"2"`
	ChipsForEach       int   `yaml:"chips_for_each" env:"GAME_CHIPS_FOR_EACH" env-default:"200"`
	SmallBlindChips    int   `yaml:"small_blind_chips" env:"GAME_SMALL_BLIND_CHIPS" env-default:"1"`
	MaxRaisesPerStreet int   `yaml:"max_raises_per_street" env:"GAME_MAX_RAISES_PER_STREET" env-default:"4"`
	Seed               int64 `yaml:"seed" env:"GAME_SEED" env-default:"44"`
}

type TrainConfig struct {
	RunID string `yaml:"run_id" env:"TRAIN_RUN_ID"`

	// Stopping criteria; training halts when any bound is hit.
	MaxIterations        int           `yaml:"max_iterations" env:"TRAIN_MAX_ITERATIONS" env-default:"100000"`
	MaxWallClock         time.Duration `yaml:"max_wall_clock" env:"TRAIN_MAX_WALL_CLOCK" env-default:"24h"`
	TargetExploitability float64       `yaml:"target_exploitability" env:"TRAIN_TARGET_EXPLOITABILITY" env-default:"0"`

	Workers      int `yaml:"workers" env:"TRAIN_WORKERS" env-default:"8"`
	RetrainEvery int `yaml:"retrain_every" env:"TRAIN_RETRAIN_EVERY" env-default:"100"`
	TrainPasses  int `yaml:"train_passes" env:"TRAIN_PASSES" env-default:"200"`
	BatchSize    int `yaml:"batch_size" env:"TRAIN_BATCH_SIZE" env-default:"2048"`

	ReservoirCapacity int `yaml:"reservoir_capacity" env:"TRAIN_RESERVOIR_CAPACITY" env-default:"1500000"`

	HiddenDim    int     `yaml:"hidden_dim" env:"TRAIN_HIDDEN_DIM" env-default:"128"`
	LearningRate float32 `yaml:"learning_rate" env:"TRAIN_LEARNING_RATE" env-default:"0.001"`

	// Snapshot retention: "all" keeps every snapshot, "thin" caps the
	// arena and folds dropped weights forward.
	Retention     string `yaml:"retention" env:"TRAIN_RETENTION" env-default:"all"`
	RetentionSize int    `yaml:"retention_size" env:"TRAIN_RETENTION_SIZE" env-default:"512"`

	EvalEvery int `yaml:"eval_every" env:"TRAIN_EVAL_EVERY" env-default:"10"`
	EvalHands int `yaml:"eval_hands" env:"TRAIN_EVAL_HANDS" env-default:"2000"`
}

type CheckpointConfig struct {
	Dir   string `yaml:"dir" env:"CHECKPOINT_DIR" env-default:"checkpoints"`
	Every int    `yaml:"every" env:"CHECKPOINT_EVERY" env-default:"500"`
	Keep  int    `yaml:"keep" env:"CHECKPOINT_KEEP" env-default:"5"`
}

type AppConfig struct {
	Game        GameConfig         `yaml:"game"`
	Train       TrainConfig        `yaml:"train"`
	Checkpoint  CheckpointConfig   `yaml:"checkpoint"`
	Abstraction abstraction.Config `yaml:"abstraction"`

	AbstractionPath string `yaml:"abstraction_path" env:"ABSTRACTION_PATH" env-default:"abstraction.bin"`
	MetricsPath     string `yaml:"metrics_path" env:"METRICS_PATH" env-default:"metrics.db"`
	StrategyPath    string `yaml:"strategy_path" env:"STRATEGY_PATH" env-default:"strategy.json"`
	// PriorsPath optionally points at an external chart of infoset-key
	// to action-frequency maps, merged into the exported artifact.
	PriorsPath string `yaml:"priors_path" env:"PRIORS_PATH"`
	LogLevel   string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
}

// LoadAppConfig reads the optional yaml file, then overlays the
// environment.
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := &AppConfig{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
			return cfg, cfg.validate()
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.validate()
}

func (c *AppConfig) validate() error {
	if c.Game.NumPlayers < 2 || c.Game.NumPlayers > 6 {
		return fmt.Errorf("num_players %d out of range [2,6]", c.Game.NumPlayers)
	}
	if c.Game.SmallBlindChips <= 0 {
		return fmt.Errorf("small_blind_chips must be positive")
	}
	if c.Game.ChipsForEach < 2*c.Game.SmallBlindChips {
		return fmt.Errorf("chips_for_each %d cannot cover the big blind", c.Game.ChipsForEach)
	}
	if c.Train.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.Train.RetrainEvery <= 0 {
		return fmt.Errorf("retrain_every must be positive")
	}
	if r := c.Train.Retention; r != "all" && r != "thin" {
		return fmt.Errorf("retention %q, want all or thin", r)
	}
	return nil
}
