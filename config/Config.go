// Package config loads YAML descriptions of wrapped ManiSkill2
// environments.
//
// A configuration looks like:
//
//	env_name: PickCube-v0
//	obs_mode: pointcloud
//	control_mode: pd_ee_delta_pose
//	reward_mode: dense
//	reward_scale: 0.3
//	n_points: 1200
//	n_goal_points: 50
//	obs_frame: ee
//	max_episode_steps: 200
//	wrappers:
//	  - type: RenderInfoWrapper
//	  - type: FixedInitWrapper
//	    params:
//	      init_state: [0, 0.5, 1, 0]
//	      level: 3
package config

import (
	"errors"
	"fmt"
	"io"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/internal/log"
	"github.com/samuelfneumann/msgym/obsproc"
	"github.com/samuelfneumann/msgym/wrappers"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvConfig describes a ManiSkill2 environment and how it is wrapped
type EnvConfig struct {
	EnvName     string `yaml:"env_name"`
	ObsMode     string `yaml:"obs_mode"`
	ControlMode string `yaml:"control_mode"`
	RewardMode  string `yaml:"reward_mode"`

	RewardScale float64 `yaml:"reward_scale"`
	UseCost     bool    `yaml:"use_cost"`

	wrappers.ObsConfig `yaml:",inline"`

	// MaxEpisodeSteps adds a TimeLimit wrapper when positive
	MaxEpisodeSteps int `yaml:"max_episode_steps"`

	// Wrappers are applied in order, innermost first, on top of the
	// observation wrapper
	Wrappers []wrappers.WrapperConfig `yaml:"wrappers"`
}

// Default returns the default configuration. The environment name
// must still be set.
func Default() *EnvConfig {
	return &EnvConfig{
		ObsMode:     msgym.ObsModeState,
		RewardScale: 1,
		ObsConfig:   wrappers.DefaultObsConfig(),
	}
}

// LoadYAML loads a configuration from a YAML reader. Unset fields take
// their default values and unknown fields are an error.
func LoadYAML(r io.Reader) (*EnvConfig, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("loadYAML: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("loadYAML: %w", err)
	}
	return c, nil
}

// Validate checks the configuration for errors
func (c *EnvConfig) Validate() error {
	if c.EnvName == "" {
		return fmt.Errorf("validate: env_name is required")
	}

	switch c.ObsMode {
	case msgym.ObsModeState, msgym.ObsModeRGBD, msgym.ObsModePointCloud,
		msgym.ObsModeParticles:
	default:
		return fmt.Errorf("validate: unknown obs_mode %q", c.ObsMode)
	}

	if !(c.RewardScale > 0) {
		return fmt.Errorf("validate: %w", wrappers.ErrNonPositiveScale)
	}
	if _, err := obsproc.ParseFrame(c.ObsFrame); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if c.ObsMode == msgym.ObsModePointCloud && !c.SkipDownsample &&
		c.NPoints <= 0 {
		return fmt.Errorf("validate: n_points must be positive, got %v",
			c.NPoints)
	}
	if c.MaxEpisodeSteps < 0 {
		return fmt.Errorf("validate: max_episode_steps must be non-negative, "+
			"got %v", c.MaxEpisodeSteps)
	}

	for i, w := range c.Wrappers {
		if w.Type == "" {
			return fmt.Errorf("validate: wrapper %v has no type", i)
		}
	}
	return nil
}

// Wrap wraps env as described by the configuration: observations are
// processed by a ManiSkill2Obs wrapper, then the configured wrappers
// are applied, then an optional TimeLimit, and finally an ExtendedEnv.
func (c *EnvConfig) Wrap(env msgym.Environment) (*wrappers.ExtendedEnv,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}
	logger := log.Provide().With(zap.String("env", c.EnvName))

	var wrapped msgym.Environment
	wrapped, err := wrappers.NewManiSkill2Obs(env, c.ObsConfig)
	if err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}

	for _, w := range c.Wrappers {
		wrapped, err = wrappers.Build(wrapped, w)
		if err != nil {
			return nil, fmt.Errorf("wrap: %w", err)
		}
		logger.Debug("applied wrapper", zap.String("type", w.Type))
	}

	if c.MaxEpisodeSteps > 0 {
		wrapped, err = wrappers.NewTimeLimit(wrapped, c.MaxEpisodeSteps)
		if err != nil {
			return nil, fmt.Errorf("wrap: %w", err)
		}
	}

	extended, err := wrappers.NewExtendedEnv(wrapped, c.RewardScale,
		c.UseCost)
	if err != nil {
		return nil, fmt.Errorf("wrap: %w", err)
	}
	logger.Info("wrapped environment", zap.String("name", extended.Name()))
	return extended, nil
}
