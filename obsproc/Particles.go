package obsproc

import (
	"fmt"

	"github.com/samuelfneumann/msgym/gdict"
)

// Particles converts a particle observation (soft-body tasks) into the
// particle positions and the flattened agent state:
//
//	xyz   [N, 3] particles/x
//	state float32 [S] flattened agent dictionary
//
// Particle velocities are dropped.
func Particles(obs *gdict.Dict) (*gdict.Dict, error) {
	particles, err := obs.Dict("particles")
	if err != nil {
		return nil, fmt.Errorf("particles: %w", err)
	}
	xyz, err := particles.Tensor("x")
	if err != nil {
		return nil, fmt.Errorf("particles: %w", err)
	}

	agent, err := obs.Dict("agent")
	if err != nil {
		return nil, fmt.Errorf("particles: %w", err)
	}
	state, err := gdict.FlattenState(agent)
	if err != nil {
		return nil, fmt.Errorf("particles: %w", err)
	}

	out := gdict.New()
	out.Set("xyz", gdict.Clone(xyz))
	out.Set("state", gdict.NewFloat32([]int{len(state)}, state))
	return out, nil
}
