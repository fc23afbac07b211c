package wrappers

import (
	"errors"
	"fmt"
	"math"

	"github.com/samuelfneumann/msgym"
	"github.com/samuelfneumann/msgym/gdict"
	"github.com/samuelfneumann/msgym/internal/log"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNonPositiveScale is returned when an ExtendedEnv is created
	// with a reward scale <= 0
	ErrNonPositiveScale = errors.New("reward scale must be positive")

	// ErrDiscreteActionDim is returned when a discrete action does not
	// hold exactly one element
	ErrDiscreteActionDim = errors.New("discrete actions must have " +
		"exactly one element")
)

// ExtendedEnv scales rewards and converts all float64 observation and
// step information values to float32. For discrete action spaces, the
// single action element is truncated to an integer index before
// stepping.
//
// If the environment measures costs rather than rewards, the reward
// sign is flipped.
type ExtendedEnv struct {
	Wrapper

	isDiscrete  bool
	isCost      float64
	rewardScale float64

	logger *zap.Logger
}

// NewExtendedEnv returns a new ExtendedEnv. The rewardScale must be
// positive.
func NewExtendedEnv(env msgym.Environment, rewardScale float64,
	useCost bool) (*ExtendedEnv, error) {
	if !(rewardScale > 0) {
		return nil, fmt.Errorf("newExtendedEnv: got %v: %w", rewardScale,
			ErrNonPositiveScale)
	}

	_, isDiscrete := env.ActionSpace().(*msgym.Discrete)
	isCost := 1.0
	if useCost {
		isCost = -1.0
	}

	return &ExtendedEnv{
		Wrapper:     Wrapper{env},
		isDiscrete:  isDiscrete,
		isCost:      isCost,
		rewardScale: rewardScale * isCost,
		logger: log.Provide().With(zap.String("wrapper", "ExtendedEnv"),
			zap.String("env", env.Name())),
	}, nil
}

// Name gets the name of the environment
func (e *ExtendedEnv) Name() string {
	return fmt.Sprintf("ExtendedEnv(%v)", e.Environment.Name())
}

// IsDiscrete returns whether the action space is discrete
func (e *ExtendedEnv) IsDiscrete() bool {
	return e.isDiscrete
}

// IsCost returns whether rewards are treated as costs
func (e *ExtendedEnv) IsCost() bool {
	return e.isCost < 0
}

// RewardScale returns the signed factor rewards are multiplied by
func (e *ExtendedEnv) RewardScale() float64 {
	return e.rewardScale
}

// processAction truncates discrete actions to an integer index
func (e *ExtendedEnv) processAction(a *mat.VecDense) (*mat.VecDense, error) {
	if !e.isDiscrete {
		return a, nil
	}
	if a == nil || a.Len() != 1 {
		n := 0
		if a != nil {
			n = a.Len()
		}
		return nil, fmt.Errorf("processAction: got %v elements: %w", n,
			ErrDiscreteActionDim)
	}
	return mat.NewVecDense(1, []float64{math.Trunc(a.AtVec(0))}), nil
}

// Reset resets the environment, converting the observation to float32
func (e *ExtendedEnv) Reset(opts ...msgym.ResetOption) (*gdict.Dict, error) {
	obs, err := e.Environment.Reset(opts...)
	if err != nil {
		return nil, err
	}
	return obs.F64ToF32(), nil
}

// Step takes one environmental step. The returned reward is scaled and
// rounded to float32 precision, and the step information always holds
// a "TimeLimit.truncated" entry.
func (e *ExtendedEnv) Step(a *mat.VecDense) (*gdict.Dict, float64, bool,
	*gdict.Dict, error) {
	action, err := e.processAction(a)
	if err != nil {
		return nil, 0, false, nil, fmt.Errorf("step: %w", err)
	}

	obs, reward, done, info, err := e.Environment.Step(action)
	if err != nil {
		return nil, 0, false, nil, err
	}
	if info == nil {
		info = gdict.New()
	}
	if !info.Has(truncatedKey) {
		info.Set(truncatedKey, false)
	}

	reward = float64(float32(reward * e.rewardScale))
	return obs.F64ToF32(), reward, done, info.F64ToF32(), nil
}

// GetObs returns the current observation converted to float32
func (e *ExtendedEnv) GetObs() (*gdict.Dict, error) {
	obs, err := msgym.GetObs(e.Environment)
	if err != nil {
		return nil, err
	}
	return obs.F64ToF32(), nil
}

// Trajectory holds consecutive transitions. Dones marks true episode
// ends, i.e. those not caused by a time limit, while EpisodeDones marks
// every episode end.
type Trajectory struct {
	Obs          []*gdict.Dict
	NextObs      []*gdict.Dict
	Actions      []*mat.VecDense
	Rewards      []float64
	Dones        []bool
	EpisodeDones []bool
	Infos        []*gdict.Dict
}

// Len returns the number of transitions in the trajectory
func (t *Trajectory) Len() int {
	return len(t.Rewards)
}

// TotalReward returns the sum of rewards over the trajectory
func (t *Trajectory) TotalReward() float64 {
	return floats.Sum(t.Rewards)
}

// Episodes returns the number of episodes that ended in the trajectory
func (t *Trajectory) Episodes() int {
	n := 0
	for _, done := range t.EpisodeDones {
		if done {
			n++
		}
	}
	return n
}

// StepRandomActions resets the environment and takes n uniformly random
// actions, resetting whenever an episode ends.
func (e *ExtendedEnv) StepRandomActions(n int) (*Trajectory, error) {
	obs, err := e.Reset()
	if err != nil {
		return nil, fmt.Errorf("stepRandomActions: %w", err)
	}

	traj := &Trajectory{}
	for i := 0; i < n; i++ {
		action := e.ActionSpace().Sample()[0]
		next, reward, done, info, err := e.Step(action)
		if err != nil {
			return nil, fmt.Errorf("stepRandomActions: step %v: %w", i, err)
		}

		traj.Obs = append(traj.Obs, obs.Copy())
		traj.NextObs = append(traj.NextObs, next.Copy())
		traj.Actions = append(traj.Actions, action)
		traj.Rewards = append(traj.Rewards, reward)
		traj.Dones = append(traj.Dones, TrueDone(done, info))
		traj.EpisodeDones = append(traj.EpisodeDones, done)
		traj.Infos = append(traj.Infos, info.Copy())

		obs = next
		if done {
			e.logger.Debug("episode finished", zap.Int("step", i))
			if obs, err = e.Reset(); err != nil {
				return nil, fmt.Errorf("stepRandomActions: %w", err)
			}
		}
	}
	return traj, nil
}

// StepStatesActions evaluates action sequences from given start
// states. Row i of states, if states is not nil, is restored before
// the action sequence actions[i] is applied one row at a time. The
// returned matrix holds the reward of action j of sequence i at (i, j).
//
// States are only restored if the environment supports state access.
func (e *ExtendedEnv) StepStatesActions(states *mat.Dense,
	actions []*mat.Dense) (*mat.Dense, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("stepStatesActions: no action sequences")
	}
	if states != nil {
		if r, _ := states.Dims(); r != len(actions) {
			return nil, fmt.Errorf("stepStatesActions: %v states for %v "+
				"action sequences", r, len(actions))
		}
	}
	length, _ := actions[0].Dims()
	for i, seq := range actions {
		if r, _ := seq.Dims(); r != length {
			return nil, fmt.Errorf("stepStatesActions: sequence %v has "+
				"length %v, expected %v", i, r, length)
		}
	}

	restore := states != nil && msgym.IsStateful(e.Environment)
	if states != nil && !restore {
		e.logger.Warn("environment does not support state access, " +
			"ignoring start states")
	}

	rewards := mat.NewDense(len(actions), length, nil)
	for i, seq := range actions {
		if restore {
			if err := e.SetState(mat.Row(nil, i, states)); err != nil {
				return nil, fmt.Errorf("stepStatesActions: %w", err)
			}
		}
		for j := 0; j < length; j++ {
			action := mat.VecDenseCopyOf(seq.RowView(j))
			_, reward, _, _, err := e.Step(action)
			if err != nil {
				return nil, fmt.Errorf("stepStatesActions: sequence %v, "+
					"step %v: %w", i, j, err)
			}
			rewards.Set(i, j, reward)
		}
	}
	return rewards, nil
}

// EnvState returns the simulator state under "env_states", if the
// environment supports state access, and the current level under
// "env_levels", if the environment reports one.
func (e *ExtendedEnv) EnvState() (*gdict.Dict, error) {
	ret := gdict.New()
	if msgym.IsStateful(e.Environment) {
		state, err := e.GetState()
		if err != nil {
			return nil, fmt.Errorf("envState: %w", err)
		}
		ret.Set("env_states", gdict.Vector(state...))
	}
	if level, ok := e.Level(); ok {
		ret.Set("env_levels", level)
	}
	return ret, nil
}
