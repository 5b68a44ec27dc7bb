package scene

import (
	"math/rand"

	"row-major/skylight/color"
	"row-major/skylight/contact"
	"row-major/skylight/geometry"
	"row-major/skylight/ray"
	"row-major/skylight/vmath/vec3"
)

type Scene struct {
	Elements geometry.List
}

func (s *Scene) Add(g geometry.Geometry) {
	s.Elements = append(s.Elements, g)
}

func (s *Scene) RayIntersect(query ray.RaySegment) (contact.Contact, bool) {
	return s.Elements.RayInto(query)
}

var skyBlue = vec3.T{0.5, 0.7, 1.0}

// Background is the color of the sky seen along dir: white at the horizon
// and below, blending to blue straight up.
func Background(dir vec3.T) color.RGB {
	unit := vec3.Normalize(dir)
	t := 0.5 * (unit[1] + 1.0)
	return color.FromVec3(vec3.Lerp(t, vec3.T{1, 1, 1}, skyBlue))
}

// Trace estimates the light arriving back along r.  The ray may scatter at
// most maxDepth times; a path that is still bouncing after that contributes
// nothing.
func (s *Scene) Trace(r ray.Ray, maxDepth int, rng *rand.Rand) color.RGB {
	attenuation := color.White
	cur := r

	for depth := 0; ; depth++ {
		c, ok := s.RayIntersect(ray.RaySegment{TheRay: cur, TheSegment: ray.Forward()})
		if !ok {
			return attenuation.Mul(Background(cur.Slope))
		}

		if depth >= maxDepth {
			return color.Black
		}

		rec, ok := c.Material.Scatter(cur, c.P, c.N, rng)
		if !ok {
			return color.Black
		}

		attenuation = attenuation.Mul(rec.Attenuation)
		cur = rec.Scattered
	}
}
