package vec3

import (
	"math"
	"math/rand"
)

type T [3]float64

func (v T) NormSquared() float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

func (v T) Norm() float64 {
	return math.Sqrt(v.NormSquared())
}

// Normalize divides v by its length.  The zero vector has no direction, and
// normalizing it yields NaN components.
func Normalize(v T) T {
	l := v.Norm()
	return T{
		v[0] / l,
		v[1] / l,
		v[2] / l,
	}
}

func AddVV(a, b T) T {
	return T{
		a[0] + b[0],
		a[1] + b[1],
		a[2] + b[2],
	}
}

func SubVV(a, b T) T {
	return T{
		a[0] - b[0],
		a[1] - b[1],
		a[2] - b[2],
	}
}

// MulVV multiplies componentwise.
func MulVV(a, b T) T {
	return T{
		a[0] * b[0],
		a[1] * b[1],
		a[2] * b[2],
	}
}

// DivVV divides componentwise.
func DivVV(a, b T) T {
	return T{
		a[0] / b[0],
		a[1] / b[1],
		a[2] / b[2],
	}
}

func MulVS(a T, b float64) T {
	return T{
		a[0] * b,
		a[1] * b,
		a[2] * b,
	}
}

func DivVS(a T, b float64) T {
	return T{
		a[0] / b,
		a[1] / b,
		a[2] / b,
	}
}

func IProd(a, b T) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func CProd(a, b T) T {
	return T{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Lerp blends from a (t == 0) to b (t == 1).
func Lerp(t float64, a, b T) T {
	return AddVV(MulVS(a, 1.0-t), MulVS(b, t))
}

// Reflect mirrors a about the plane with normal n.  n must be unit length.
func Reflect(a, n T) T {
	return SubVV(a, MulVS(n, 2*IProd(a, n)))
}

// UniformInUnitBall draws a point uniformly from the open unit ball by
// rejection from the enclosing cube.
func UniformInUnitBall(rng *rand.Rand) T {
	result := T{}
	for {
		result[0] = 2 * (rng.Float64() - 0.5)
		result[1] = 2 * (rng.Float64() - 0.5)
		result[2] = 2 * (rng.Float64() - 0.5)
		if result.NormSquared() < 1.0 {
			return result
		}
	}
}

// UniformInUnitDisk draws a point uniformly from the open unit disk in the
// z == 0 plane.
func UniformInUnitDisk(rng *rand.Rand) T {
	result := T{}
	for {
		result[0] = 2 * (rng.Float64() - 0.5)
		result[1] = 2 * (rng.Float64() - 0.5)
		if result.NormSquared() < 1.0 {
			return result
		}
	}
}
