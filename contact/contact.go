package contact

import (
	"row-major/skylight/material"
	"row-major/skylight/ray"
	"row-major/skylight/vmath/vec3"
)

// Contact describes where a ray meets a surface.
//
// P is R.Eval(T), and N is the unit normal at P pointing out of the surface.
// Material belongs to the geometry that was hit; a Contact must not outlive
// the scene it came from.
type Contact struct {
	T        float64
	R        ray.Ray
	P        vec3.T
	N        vec3.T
	Material material.Material
}
