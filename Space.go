package msgym

import (
	"gonum.org/v1/gonum/mat"
)

// Space describes a space of actions, observations, etc. It is the Go
// equivalent of the gym.spaces package. Composite spaces return one
// vector per contained simple space, in order.
type Space interface {
	// Sample takes a sample from within the spaces bounds
	Sample() []*mat.VecDense

	// Contains returns whether x is in the space
	Contains(x interface{}) bool

	// Seed seeds the sampler for the space
	Seed(uint64)

	// Low returns the lower bounds of the space
	Low() []*mat.VecDense

	// High returns the upper bounds of the space
	High() []*mat.VecDense
}
