package ray

import (
	"math"

	"row-major/skylight/vmath/vec3"
)

// Span is the open interval (Lo, Hi) of ray parameters.
type Span struct {
	Lo, Hi float64
}

// Forward is the span used for scene queries.  Lo sits slightly above zero so
// that a ray leaving a surface does not immediately hit that same surface
// again through rounding error.
func Forward() Span {
	return Span{Lo: 0.001, Hi: math.Inf(1)}
}

func (s Span) Contains(t float64) bool {
	return s.Lo < t && t < s.Hi
}

func (s Span) IsEmpty() bool {
	return !(s.Lo < s.Hi)
}

// Ray is the half-line Point + t*Slope.  Slope need not be unit length.
type Ray struct {
	Point vec3.T
	Slope vec3.T
}

func (r *Ray) Eval(t float64) vec3.T {
	return vec3.T{
		r.Point[0] + t*r.Slope[0],
		r.Point[1] + t*r.Slope[1],
		r.Point[2] + t*r.Slope[2],
	}
}

type RaySegment struct {
	TheRay     Ray
	TheSegment Span
}
