// Command rollout runs random actions in a wrapped ManiSkill2
// environment described by a YAML configuration.
//
// Before running, ensure python-3.7.pc is in a directory pointed to
// by PKG_CONFIG_PATH and that mani_skill2 is installed in the Python
// environment.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/samuelfneumann/msgym/config"
	"github.com/samuelfneumann/msgym/internal/log"
	"github.com/samuelfneumann/msgym/pyenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	// The Python interpreter must always be called from the same thread
	runtime.LockOSThread()
}

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd creates the rollout command
func NewRootCmd() *cobra.Command {
	var (
		configPath string
		envName    string
		logLevel   string
		steps      int
		seed       int
	)

	rootCmd := &cobra.Command{
		Use:           "rollout",
		Short:         "step a wrapped ManiSkill2 environment with random actions",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			_, err = log.New(level)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(configPath)
			if err != nil {
				return fmt.Errorf("rollout: %w", err)
			}
			defer f.Close()

			cfg, err := config.LoadYAML(f)
			if err != nil {
				return fmt.Errorf("rollout: %w", err)
			}
			if envName != "" {
				cfg.EnvName = envName
			}
			return rollout(cfg, steps, seed, cmd.Flags().Changed("seed"))
		},
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", "", "path to the YAML "+
		"environment configuration")
	flags.StringVar(&envName, "env", "", "environment name, overriding "+
		"env_name of the configuration")
	flags.IntVarP(&steps, "steps", "n", 100, "number of steps to take")
	flags.IntVar(&seed, "seed", 0, "seed of the environment and action "+
		"sampling")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"one of debug, info, warn or error")
	_ = rootCmd.MarkFlagRequired("config")

	return rootCmd
}

// rollout makes and wraps the environment described by cfg and takes
// steps random actions in it
func rollout(cfg *config.EnvConfig, steps, seed int, seeded bool) error {
	logger := log.Provide()
	defer logger.Sync() //nolint:errcheck
	defer pyenv.Close()

	if steps <= 0 {
		return fmt.Errorf("rollout: steps must be positive, got %v", steps)
	}

	inner, err := pyenv.Make(cfg.EnvName, pyenv.MakeOptions{
		ObsMode:     cfg.ObsMode,
		ControlMode: cfg.ControlMode,
		RewardMode:  cfg.RewardMode,
	})
	if err != nil {
		return fmt.Errorf("rollout: %w", err)
	}

	env, err := cfg.Wrap(inner)
	if err != nil {
		inner.Close()
		return fmt.Errorf("rollout: %w", err)
	}
	defer env.Close()

	if seeded {
		if _, err := env.Seed(seed); err != nil {
			return fmt.Errorf("rollout: %w", err)
		}
		env.ActionSpace().Seed(uint64(seed))
	}

	traj, err := env.StepRandomActions(steps)
	if err != nil {
		return fmt.Errorf("rollout: %w", err)
	}

	logger.Info("rollout finished",
		zap.String("env", env.Name()),
		zap.Int("steps", traj.Len()),
		zap.Int("episodes", traj.Episodes()),
		zap.Float64("totalReward", traj.TotalReward()),
	)
	return nil
}
