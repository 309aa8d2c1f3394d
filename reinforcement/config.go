package reinforcement

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"avoidholes/grid_world"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// OuterConfig is the envelope of a config file: a kind selector and the definition proper.
type OuterConfig struct {
	Kind string      `mapstructure:"kind"`
	Def  interface{} `mapstructure:"def"`
}

// EnvConfig holds the parameters of the simulated world. Sizes come from the
// floor tile and agent assets of whatever engine renders the world.
// Yaml keys are lowercase because viper folds the case of every key it reads;
// config files may spell them in any case.
type EnvConfig struct {
	MoveSpeed       float64 `yaml:"movespeed"`
	GridWidth       int     `yaml:"gridwidth"`
	GridDepth       int     `yaml:"griddepth"`
	HoleProbability float64 `yaml:"holeprobability"`
	TileSize        Vec3    `yaml:"tilesize"`
	AgentSize       Vec3    `yaml:"agentsize"`
	TargetSize      Vec3    `yaml:"targetsize"`
	Origin          Vec3    `yaml:"origin"`
	// ProbeDistance bounds every downward ground probe.
	ProbeDistance float64 `yaml:"probedistance"`
	// GroundLevel is the height at or below which an unsupported agent has fallen.
	GroundLevel float64 `yaml:"groundlevel"`
	FallSpeed   float64 `yaml:"fallspeed"`
	// MaxSteps truncates an episode after that many ticks; zero disables truncation.
	MaxSteps int   `yaml:"maxsteps"`
	Seed     int64 `yaml:"seed"`
}

// DefaultEnvConfig returns the stock 8x6 world.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		MoveSpeed:       20,
		GridWidth:       8,
		GridDepth:       6,
		HoleProbability: 0.15,
		TileSize:        Vec3{X: 1, Y: 1, Z: 1},
		AgentSize:       Vec3{X: 1, Y: 1, Z: 1},
		TargetSize:      Vec3{X: 1, Y: 1, Z: 1},
		ProbeDistance:   1,
		GroundLevel:     0,
		FallSpeed:       9.81,
	}
}

// ErrInvalidConfig wraps every environment configuration error.
var ErrInvalidConfig = errors.New("invalid environment config")

// GridConfig projects the generator's parameters.
func (cfg *EnvConfig) GridConfig() grid_world.GridConfig {
	return grid_world.GridConfig{
		Width:           cfg.GridWidth,
		Depth:           cfg.GridDepth,
		HoleProbability: cfg.HoleProbability,
		TileSize:        cfg.TileSize,
		Origin:          cfg.Origin,
	}
}

// Validate fails fast on values the environment cannot run with; nothing is clamped.
func (cfg *EnvConfig) Validate() error {
	grid := cfg.GridConfig()
	if err := grid.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if !isFinite(cfg.MoveSpeed) || cfg.MoveSpeed < 0 {
		return fmt.Errorf("%w: movespeed %v", ErrInvalidConfig, cfg.MoveSpeed)
	}
	if !isFinite(cfg.ProbeDistance) || cfg.ProbeDistance <= 0 {
		return fmt.Errorf("%w: probedistance %v", ErrInvalidConfig, cfg.ProbeDistance)
	}
	if !isFinite(cfg.FallSpeed) || cfg.FallSpeed < 0 {
		return fmt.Errorf("%w: fallspeed %v", ErrInvalidConfig, cfg.FallSpeed)
	}
	if !isFinite(cfg.GroundLevel) {
		return fmt.Errorf("%w: groundlevel %v", ErrInvalidConfig, cfg.GroundLevel)
	}
	if cfg.MaxSteps < 0 {
		return fmt.Errorf("%w: maxsteps %d", ErrInvalidConfig, cfg.MaxSteps)
	}
	for name, size := range map[string]Vec3{"agentsize": cfg.AgentSize, "targetsize": cfg.TargetSize} {
		if !(size.X > 0 && size.Y > 0 && size.Z > 0) {
			return fmt.Errorf("%w: %s %v", ErrInvalidConfig, name, size)
		}
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// TrainingConfig encodes the world and the runner parameters outside of code.
type TrainingConfig struct {
	Env EnvConfig `yaml:"env"`
	// HyperParams is a key-val pair of param names and their value.
	HyperParams []HyperParameter `yaml:"hyperparams"`
	// TrainingDeadline is a fixed duration describing when to terminate training.
	TrainingDeadline map[string]string `yaml:"trainingdeadline"`
}

type HyperParameter struct {
	Key string  `yaml:"key"`
	Val float64 `yaml:"val"`
}

// DefaultTrainingConfig returns the default world with no hyper-parameters and no deadline.
func DefaultTrainingConfig() *TrainingConfig {
	return &TrainingConfig{
		Env: DefaultEnvConfig(),
	}
}

func (cfg *TrainingConfig) GetHyperParamOrDefault(param string, defaultVal float64) float64 {
	for _, kvp := range cfg.HyperParams {
		if kvp.Key == param {
			return kvp.Val
		}
	}
	return defaultVal
}

// WithTrainingDeadline returns a context extended by the training deadline, if one is specified.
func (cfg *TrainingConfig) WithTrainingDeadline(
	ctx context.Context,
) (context.Context, context.CancelFunc, error) {
	if val, ok := cfg.TrainingDeadline["duration"]; ok {
		duration, err := time.ParseDuration(val)
		if err != nil {
			return nil, nil, err
		}
		innerCtx, cancel := context.WithTimeout(ctx, duration)
		return innerCtx, cancel, nil
	}
	defaultCtx, cancel := context.WithCancel(ctx)
	return defaultCtx, cancel, nil
}

// FromYaml reads a training config. Viper reads the outer {kind, def} envelope and
// the definition is decoded with yaml over the defaults, so omitted keys keep their
// default values.
func FromYaml(path string) (*TrainingConfig, error) {
	vp := viper.New()
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	var err error
	if err = vp.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	outerConfig := &OuterConfig{}
	if err = vp.Unmarshal(outerConfig); err != nil {
		return nil, err
	}

	var spec []byte
	if spec, err = yaml.Marshal(outerConfig.Def); err != nil {
		return nil, err
	}

	innerConfig := DefaultTrainingConfig()
	if err = yaml.Unmarshal(spec, innerConfig); err != nil {
		return nil, err
	}

	if err = innerConfig.Env.Validate(); err != nil {
		return nil, err
	}
	return innerConfig, nil
}
