// Package pose implements rigid-body poses (a position and a unit
// quaternion) and their action on points, following the conventions of
// the SAPIEN physics engine: a pose vector is laid out as
// [x, y, z, qw, qx, qy, qz].
package pose

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a rigid transform. Applying a Pose to a point first rotates
// the point by Q and then translates it by P.
type Pose struct {
	P [3]float64
	Q quat.Number
}

// Identity returns the identity pose
func Identity() Pose {
	return Pose{Q: quat.Number{Real: 1}}
}

// New returns a new Pose. The quaternion is given in (w, x, y, z)
// order and is normalised.
func New(p [3]float64, w, x, y, z float64) Pose {
	q := quat.Number{Real: w, Imag: x, Jmag: y, Kmag: z}
	if n := quat.Abs(q); n > 0 {
		q = quat.Scale(1/n, q)
	} else {
		q = quat.Number{Real: 1}
	}
	return Pose{P: p, Q: q}
}

// FromVector constructs a Pose from a 7-element pose vector
// [x, y, z, qw, qx, qy, qz].
func FromVector(v []float64) (Pose, error) {
	if len(v) != 7 {
		return Pose{}, fmt.Errorf("fromVector: expected 7 elements, got %v",
			len(v))
	}
	return New([3]float64{v[0], v[1], v[2]}, v[3], v[4], v[5], v[6]), nil
}

// Vector returns the 7-element pose vector [x, y, z, qw, qx, qy, qz]
func (p Pose) Vector() []float64 {
	return []float64{
		p.P[0], p.P[1], p.P[2],
		p.Q.Real, p.Q.Imag, p.Q.Jmag, p.Q.Kmag,
	}
}

// Inv returns the inverse transform of p
func (p Pose) Inv() Pose {
	qInv := quat.Conj(p.Q)
	t := rotate(qInv, p.P)
	return Pose{P: [3]float64{-t[0], -t[1], -t[2]}, Q: qInv}
}

// Mul returns the composition p * other, which applies other first and
// then p.
func (p Pose) Mul(other Pose) Pose {
	t := rotate(p.Q, other.P)
	return Pose{
		P: [3]float64{t[0] + p.P[0], t[1] + p.P[1], t[2] + p.P[2]},
		Q: quat.Mul(p.Q, other.Q),
	}
}

// Apply transforms a single point by p
func (p Pose) Apply(point [3]float64) [3]float64 {
	t := rotate(p.Q, point)
	return [3]float64{t[0] + p.P[0], t[1] + p.P[1], t[2] + p.P[2]}
}

// ApplySlice transforms a 3-element slice by p
func (p Pose) ApplySlice(point []float64) ([]float64, error) {
	if len(point) != 3 {
		return nil, fmt.Errorf("applySlice: expected 3 elements, got %v",
			len(point))
	}
	out := p.Apply([3]float64{point[0], point[1], point[2]})
	return out[:], nil
}

// ApplyPoints transforms every row of an n x 3 matrix of points by p
// and returns the result as a new matrix.
func (p Pose) ApplyPoints(points mat.Matrix) (*mat.Dense, error) {
	r, c := points.Dims()
	if c != 3 {
		return nil, fmt.Errorf("applyPoints: expected n x 3 points, got "+
			"%v x %v", r, c)
	}

	// out = points * R^T + 1 p^T
	var out mat.Dense
	out.Mul(points, p.Rotation().T())
	for i := 0; i < r; i++ {
		for j := 0; j < 3; j++ {
			out.Set(i, j, out.At(i, j)+p.P[j])
		}
	}
	return &out, nil
}

// Rotation returns the 3 x 3 rotation matrix of p
func (p Pose) Rotation() *mat.Dense {
	w, x, y, z := p.Q.Real, p.Q.Imag, p.Q.Jmag, p.Q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// Matrix returns the 4 x 4 homogeneous transformation matrix of p
func (p Pose) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	m.Slice(0, 3, 0, 3).(*mat.Dense).Copy(p.Rotation())
	for i := 0; i < 3; i++ {
		m.Set(i, 3, p.P[i])
	}
	m.Set(3, 3, 1)
	return m
}

// Equal returns whether p and other represent the same transform to
// within tol. Quaternions q and -q are considered equal.
func (p Pose) Equal(other Pose, tol float64) bool {
	for i := range p.P {
		if math.Abs(p.P[i]-other.P[i]) > tol {
			return false
		}
	}
	dot := p.Q.Real*other.Q.Real + p.Q.Imag*other.Q.Imag +
		p.Q.Jmag*other.Q.Jmag + p.Q.Kmag*other.Q.Kmag
	return math.Abs(math.Abs(dot)-1) <= tol
}

// rotate rotates v by the unit quaternion q, computing q v q*
func rotate(q quat.Number, v [3]float64) [3]float64 {
	pure := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	r := quat.Mul(quat.Mul(q, pure), quat.Conj(q))
	return [3]float64{r.Imag, r.Jmag, r.Kmag}
}
