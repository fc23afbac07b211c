package obsproc

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"github.com/samuelfneumann/msgym/gdict"
	"golang.org/x/exp/rand"
)

// DefaultGroundEps is the height below which points are considered
// part of the ground and removed before downsampling
const DefaultGroundEps = 1e-4

// UniformDownsample removes ground points from a point cloud and then
// samples exactly num points uniformly at random.
//
// The point cloud must hold an N x 3 "xyz" tensor; every other tensor
// in pcd whose first dimension is N is treated as a per-point field and
// sampled along with xyz. Points with z <= groundEps are removed. If at
// least num points remain, a random subset of num distinct points is
// kept; otherwise all remaining points are kept and the cloud is padded
// to num points by resampling remaining points with replacement.
//
// pcd is modified in place.
func UniformDownsample(pcd *gdict.Dict, groundEps float64, num int,
	rng *rand.Rand) error {
	if num <= 0 {
		return fmt.Errorf("uniformDownsample: num must be positive, got %v",
			num)
	}

	xyz, err := pcd.Tensor("xyz")
	if err != nil {
		return fmt.Errorf("uniformDownsample: %w", err)
	}
	shape := xyz.Shapes()
	if len(shape) != 2 || shape[1] != 3 {
		return fmt.Errorf("uniformDownsample: expected N x 3 xyz, got %v",
			shape)
	}
	n := shape[0]

	above := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if xyz.FloatVal1D(i*3+2) > groundEps {
			above = append(above, i)
		}
	}
	if len(above) == 0 {
		return fmt.Errorf("uniformDownsample: no points above ground")
	}

	var indices []int
	if len(above) >= num {
		perm := rng.Perm(len(above))[:num]
		indices = make([]int, num)
		for i, p := range perm {
			indices[i] = above[p]
		}
	} else {
		indices = append(indices, above...)
		for len(indices) < num {
			indices = append(indices, above[rng.Intn(len(above))])
		}
	}

	return gatherPoints(pcd, n, indices)
}

// gatherPoints replaces every per-point tensor in pcd, i.e. every
// tensor with n rows, by its rows at indices
func gatherPoints(pcd *gdict.Dict, n int, indices []int) error {
	for _, key := range pcd.Keys() {
		v, _ := pcd.Get(key)
		t, ok := v.(etensor.Tensor)
		if !ok || len(t.Shapes()) == 0 || t.Shapes()[0] != n {
			continue
		}
		rows, err := gdict.Rows(t, indices)
		if err != nil {
			return fmt.Errorf("gatherPoints: %q: %w", key, err)
		}
		pcd.Set(key, rows)
	}
	return nil
}
